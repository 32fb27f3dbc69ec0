package constants

import (
	"strings"
)

// DocumentType is the label the classifier assigns to an uploaded document.
type DocumentType string

const (
	PaySlip       DocumentType = "pay_slip"
	Contract      DocumentType = "contract"
	BankStatement DocumentType = "bank_statement"
	Unknown       DocumentType = "unknown"
)

var knownDocumentTypes = []DocumentType{
	PaySlip,
	Contract,
	BankStatement,
}

// AsStringSlice returns the labels a classifier may answer with (unknown excluded).
func AsStringSlice() []string {
	result := make([]string, len(knownDocumentTypes))
	for i, dt := range knownDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// Canonicalize maps a free-form classifier answer onto a DocumentType.
// The bool is false when the answer is outside the known set.
func Canonicalize(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.Trim(normalized, "\"'`.")
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return Unknown, false
	}

	// synonyms map, including the labels of the French prompt set
	synonyms := map[string]DocumentType{
		"payslip":             PaySlip,
		"pay slip":            PaySlip,
		"pay stub":            PaySlip,
		"salary slip":         PaySlip,
		"fiche_de_paie":       PaySlip,
		"fiche de paie":       PaySlip,
		"bulletin de salaire": PaySlip,
		"employment_contract": Contract,
		"employment contract": Contract,
		"contrat_de_travail":  Contract,
		"contrat de travail":  Contract,
		"bank statement":      BankStatement,
		"statement":           BankStatement,
		"releve_bancaire":     BankStatement,
		"relevé bancaire":     BankStatement,
		"releve bancaire":     BankStatement,
		"relevé de compte":    BankStatement,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	for _, dt := range knownDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}

	return Unknown, false
}
