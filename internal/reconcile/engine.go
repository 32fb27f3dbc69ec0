package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// SocialContributionRatio is the flat net/gross ratio used to estimate a gross
// salary from a net one.
const SocialContributionRatio = 0.77

var (
	// ContractTolerance is inclusive: |gross - estimated| <= 200 matches.
	ContractTolerance = decimal.NewFromInt(200)
	// BankTolerance is exclusive: |amount - net| < 50 matches.
	BankTolerance = decimal.NewFromInt(50)

	ratio = decimal.NewFromFloat(SocialContributionRatio)
)

// Reason strings attached to negative verdicts.
const (
	ReasonInsufficientData = "insufficient salary data"
	ReasonNoDocuments      = "no contract or bank document supplied"
	ReasonNoContractGross  = "no contract gross salary found"
	ReasonNoBankMatch      = "no bank transfer match"
)

// Input is everything the engine compares. Net salaries keep the pay slip order.
type Input struct {
	NetSalaries []float64
	Contracts   []entity.ExtractedRecord
	Banks       []entity.BankRecord
}

// Engine decides whether declared net income is corroborated by a contract or
// bank statement. The search is first-match over the input order, not best-match.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Reconcile runs the contract check, then the bank check, and explains the
// first failure it cannot recover from.
func (e *Engine) Reconcile(in Input) entity.Verdict {
	if len(in.NetSalaries) == 0 {
		e.logger.Info("reconcile.insufficient_data",
			"contracts", len(in.Contracts), "banks", len(in.Banks))
		return negative(entity.ReasonInsufficientData, ReasonInsufficientData)
	}
	if len(in.Contracts) == 0 && len(in.Banks) == 0 {
		return negative(entity.ReasonNoDocuments, ReasonNoDocuments)
	}

	nets := toDecimals(in.NetSalaries)

	var failed *entity.Verdict
	if len(in.Contracts) > 0 {
		v := e.checkContracts(nets, in.Contracts)
		if v.Verified {
			return v
		}
		failed = &v
	}

	if len(in.Banks) > 0 {
		v := e.checkBanks(nets, in.Banks)
		if v.Verified {
			return v
		}
		if failed != nil {
			v.Reason = failed.Reason + "; " + v.Reason
		}
		return v
	}
	return *failed
}

// checkContracts compares each contract gross against the gross estimated from
// every net salary; the first pair within tolerance wins.
func (e *Engine) checkContracts(nets []decimal.Decimal, contracts []entity.ExtractedRecord) entity.Verdict {
	var (
		sawGross      bool
		lastGross     decimal.Decimal
		lastEstimated decimal.Decimal
	)
	for ci, c := range contracts {
		if c.GrossSalary == nil {
			continue
		}
		sawGross = true
		gross := decimal.NewFromFloat(*c.GrossSalary)
		for ni, net := range nets {
			estimated := EstimateGross(net)
			if gross.Sub(estimated).Abs().LessThanOrEqual(ContractTolerance) {
				e.logger.Info("reconcile.contract_match",
					"contract_index", ci, "net_index", ni,
					"gross", gross.StringFixed(2), "estimated_gross", estimated.StringFixed(2))
				return entity.Verdict{Verified: true, MatchedBy: "contract"}
			}
			lastGross, lastEstimated = gross, estimated
		}
	}
	if !sawGross {
		return negative(entity.ReasonNoContractGross, ReasonNoContractGross)
	}
	return negative(entity.ReasonContractMismatch, fmt.Sprintf(
		"contract gross salary %s differs from estimated gross %s by more than %s",
		lastGross.StringFixed(2), lastEstimated.StringFixed(2), ContractTolerance.String()))
}

// checkBanks looks, statement by statement and amount by amount, for a transfer
// strictly closer than the tolerance to any net salary.
func (e *Engine) checkBanks(nets []decimal.Decimal, banks []entity.BankRecord) entity.Verdict {
	for bi, b := range banks {
		for ai, a := range b.Amounts {
			amount := decimal.NewFromFloat(a)
			for _, net := range nets {
				if amount.Sub(net).Abs().LessThan(BankTolerance) {
					e.logger.Info("reconcile.bank_match",
						"bank_index", bi, "amount_index", ai,
						"employer", b.Employer, "amount", amount.StringFixed(2), "net", net.StringFixed(2))
					return entity.Verdict{Verified: true, MatchedBy: "bank_statement"}
				}
			}
		}
	}
	return negative(entity.ReasonNoBankMatch, ReasonNoBankMatch)
}

// EstimateGross returns net / SocialContributionRatio rounded to cents.
func EstimateGross(net decimal.Decimal) decimal.Decimal {
	return net.DivRound(ratio, 2)
}

func negative(code entity.ReasonCode, reason string) entity.Verdict {
	return entity.Verdict{Verified: false, Reason: reason, ReasonCode: code}
}

func toDecimals(vs []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}
