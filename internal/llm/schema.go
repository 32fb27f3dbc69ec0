package llm

import "github.com/joseph-ayodele/income-verifier/constants"

// BuildRecordJSONSchema returns the JSON Schema (draft 2020-12 subset) for one document type.
// It is sent to providers as a structured output hint and used locally to validate.
// Nothing is required: a missing field is a nil in the record, not a failure.
func BuildRecordJSONSchema(docType constants.DocumentType) map[string]any {
	props := map[string]any{
		"name":       stringProp(),
		"first_name": stringProp(),
		"position":   stringProp(),
		"employer":   stringProp(),
	}

	switch docType {
	case constants.PaySlip:
		props["net_salary"] = moneyProp()
		props["gross_salary"] = moneyProp()
		props["period"] = stringProp()
	case constants.Contract:
		props["gross_salary"] = moneyProp()
	case constants.BankStatement:
		props["received_amount"] = moneyProp()
		props["received_amounts"] = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "number", "minimum": 0},
		}
		props["transfer_label"] = stringProp()
		props["iban"] = stringProp()
		props["period"] = stringProp()
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func stringProp() map[string]any {
	return map[string]any{"type": "string", "minLength": 1}
}

func moneyProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0}
}
