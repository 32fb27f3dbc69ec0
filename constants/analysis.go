package constants

// Loan duration bounds offered to the user, in years.
const (
	MinLoanYears     = 5
	MaxLoanYears     = 30
	DefaultLoanYears = 20
)

// Orchestration preconditions on the uploaded document set.
const (
	DefaultMinPaySlips  = 3
	DefaultMaxDocuments = 5
)
