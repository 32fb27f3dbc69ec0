package entity

import (
	"time"

	"github.com/google/uuid"
)

// Estimate is the loan capacity computed from the average net salary.
type Estimate struct {
	AverageNetSalary float64 `json:"average_net_salary"`
	MonthlyCapacity  float64 `json:"monthly_capacity"`
	TotalBorrowable  float64 `json:"total_borrowable"`
	LoanYears        int     `json:"loan_years"`
}

// FinalRecord is the persisted result of one analysis run. It is never updated.
type FinalRecord struct {
	ID               uuid.UUID `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	FullName         *string   `json:"full_name"`
	Position         *string   `json:"position"`
	Employer         *string   `json:"employer"`
	AverageNetSalary float64   `json:"average_net_salary"`
	MonthlyCapacity  float64   `json:"monthly_capacity"`
	TotalBorrowable  float64   `json:"total_borrowable"`
	LoanYears        int       `json:"loan_years"`
	Verified         bool      `json:"verified"`
	Reason           string    `json:"reason,omitempty"`
}
