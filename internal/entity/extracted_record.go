package entity

// ExtractedRecord is the best-effort structure the model returns for one document.
// Every field is optional; nil means the model did not find it.
type ExtractedRecord struct {
	Name            *string   `json:"name,omitempty"`
	FirstName       *string   `json:"first_name,omitempty"`
	Position        *string   `json:"position,omitempty"`
	Employer        *string   `json:"employer,omitempty"`
	Period          *string   `json:"period,omitempty"`
	GrossSalary     *float64  `json:"gross_salary,omitempty"`
	NetSalary       *float64  `json:"net_salary,omitempty"`
	ReceivedAmount  *float64  `json:"received_amount,omitempty"`
	ReceivedAmounts []float64 `json:"received_amounts,omitempty"`
	TransferLabel   *string   `json:"transfer_label,omitempty"`
	IBAN            *string   `json:"iban,omitempty"`
}

// HasSalaryData reports whether the record carries anything reconciliation can use.
func (r ExtractedRecord) HasSalaryData() bool {
	return r.GrossSalary != nil || r.NetSalary != nil || r.ReceivedAmount != nil || len(r.ReceivedAmounts) > 0
}

// Amounts returns the received transfer amounts, single value first.
func (r ExtractedRecord) Amounts() []float64 {
	out := make([]float64, 0, len(r.ReceivedAmounts)+1)
	if r.ReceivedAmount != nil {
		out = append(out, *r.ReceivedAmount)
	}
	for _, a := range r.ReceivedAmounts {
		if r.ReceivedAmount != nil && a == *r.ReceivedAmount {
			continue
		}
		out = append(out, a)
	}
	return out
}

// StringValue dereferences an optional string field.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
