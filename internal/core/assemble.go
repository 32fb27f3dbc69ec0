package core

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// PickIdentity returns the first pay slip carrying salary data, or the first
// pay slip when none does. The bool is false when there are no pay slips.
func PickIdentity(paySlips []entity.ExtractedRecord) (entity.ExtractedRecord, bool) {
	for _, r := range paySlips {
		if r.HasSalaryData() {
			return r, true
		}
	}
	if len(paySlips) > 0 {
		return paySlips[0], true
	}
	return entity.ExtractedRecord{}, false
}

// FullName joins first name and name. Both absent gives nil.
func FullName(r entity.ExtractedRecord) *string {
	full := strings.TrimSpace(strings.TrimSpace(entity.StringValue(r.FirstName)) + " " + strings.TrimSpace(entity.StringValue(r.Name)))
	if full == "" {
		return nil
	}
	return &full
}

// AssembleRecord builds the record persisted for one run.
func AssembleRecord(paySlips []entity.ExtractedRecord, verdict entity.Verdict, est entity.Estimate, now time.Time) entity.FinalRecord {
	identity, _ := PickIdentity(paySlips)
	rec := entity.FinalRecord{
		ID:               uuid.New(),
		CreatedAt:        now.UTC(),
		FullName:         FullName(identity),
		Position:         nonBlank(identity.Position),
		Employer:         nonBlank(identity.Employer),
		AverageNetSalary: est.AverageNetSalary,
		MonthlyCapacity:  est.MonthlyCapacity,
		TotalBorrowable:  est.TotalBorrowable,
		LoanYears:        est.LoanYears,
		Verified:         verdict.Verified,
	}
	if !verdict.Verified {
		rec.Reason = verdict.Reason
	}
	return rec
}

func nonBlank(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
