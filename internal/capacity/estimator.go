package capacity

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// DebtToIncomeRatio is the share of the average net salary allowed for the monthly payment.
const DebtToIncomeRatio = 0.33

const monthsPerYear = 12

var dti = decimal.NewFromFloat(DebtToIncomeRatio)

// Estimate turns net salaries and a loan duration into a repayment capacity.
// Every step rounds to cents, half away from zero:
//
//	average = round(mean(net), 2)
//	monthly = round(average * 0.33, 2)
//	total   = round(monthly * 12 * years, 2)
//
// An empty salary list has no defined capacity and returns ErrInsufficientData.
func Estimate(netSalaries []float64, loanYears int) (entity.Estimate, error) {
	if err := common.ValidateLoanYears(loanYears); err != nil {
		return entity.Estimate{}, err
	}
	if len(netSalaries) == 0 {
		return entity.Estimate{}, fmt.Errorf("estimate capacity: %w", common.ErrInsufficientData)
	}

	sum := decimal.Zero
	for _, s := range netSalaries {
		sum = sum.Add(decimal.NewFromFloat(s))
	}
	average := sum.DivRound(decimal.NewFromInt(int64(len(netSalaries))), 2)
	monthly := average.Mul(dti).Round(2)
	total := monthly.Mul(decimal.NewFromInt(int64(monthsPerYear * loanYears))).Round(2)

	return entity.Estimate{
		AverageNetSalary: average.InexactFloat64(),
		MonthlyCapacity:  monthly.InexactFloat64(),
		TotalBorrowable:  total.InexactFloat64(),
		LoanYears:        loanYears,
	}, nil
}
