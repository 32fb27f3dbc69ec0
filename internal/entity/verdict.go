package entity

// ReasonCode identifies which reconciliation check produced a negative verdict.
type ReasonCode string

const (
	ReasonInsufficientData ReasonCode = "INSUFFICIENT_DATA"
	ReasonNoDocuments      ReasonCode = "NO_CORROBORATING_DOCUMENT"
	ReasonNoContractGross  ReasonCode = "NO_CONTRACT_GROSS"
	ReasonContractMismatch ReasonCode = "CONTRACT_MISMATCH"
	ReasonNoBankMatch      ReasonCode = "NO_BANK_MATCH"
)

// Verdict is the outcome of reconciliation. Reason is set only when Verified is false;
// MatchedBy only when it is true.
type Verdict struct {
	Verified   bool       `json:"verified"`
	Reason     string     `json:"reason,omitempty"`
	ReasonCode ReasonCode `json:"reason_code,omitempty"`
	MatchedBy  string     `json:"matched_by,omitempty"`
}

// BankRecord is the set of transfer amounts read from one bank statement.
type BankRecord struct {
	Employer string    `json:"employer"`
	Amounts  []float64 `json:"amounts"`
}
