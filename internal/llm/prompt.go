package llm

import (
	"strings"

	"github.com/joseph-ayodele/income-verifier/constants"
)

const maxPromptTextChars = 6000

// BuildClassifyPrompt asks for a single label from the known document types.
func BuildClassifyPrompt(text string) CompletionRequest {
	sys := strings.Join([]string{
		"You classify French or English financial documents.",
		"Possible types: pay slip (fiche de paie, bulletin de salaire), employment contract (contrat de travail), bank statement (relevé de compte).",
		"Answer with exactly one word among: " + strings.Join(constants.AsStringSlice(), ", ") + ".",
		"Answer nothing else.",
	}, " ")
	return CompletionRequest{
		System: sys,
		Prompt: "Text:\n" + clip(text),
	}
}

// BuildSystemPrompt composes the extraction instructions for one document type.
func BuildSystemPrompt(docType constants.DocumentType) string {
	parts := []string{
		"You read text extracted from a French or English financial document and return ONLY a JSON object matching the provided JSON Schema.",
		"Money values are plain numbers in euros with a dot as decimal separator (2500.00, not \"2 500,00 €\").",
		"If a field is not present, omit it or set it to null. Never invent values.",
	}

	switch docType {
	case constants.PaySlip:
		parts = append(parts,
			"This is a pay slip. Extract: name (family name), first_name, position, employer, net_salary, period (month and year).",
			"net_salary is the amount actually paid (\"net à payer\"). Ignore \"net imposable\" unless nothing else is available.",
			"If several periods appear, keep the most recent one.",
		)
	case constants.Contract:
		parts = append(parts,
			"This is an employment contract. Extract: name (family name), first_name, position, employer, gross_salary.",
			"gross_salary is the MONTHLY gross salary (\"salaire brut mensuel\"). Divide an annual figure by 12.",
		)
	case constants.BankStatement:
		parts = append(parts,
			"This is a bank statement. Extract the salary transfers received: received_amounts is the list of credited amounts, one per month when possible.",
			"Also return transfer_label (the label of the salary transfer) and iban when visible.",
		)
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the document text and hints.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if f := strings.TrimSpace(req.FilenameHint); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	if req.DocType == constants.BankStatement {
		if e := strings.TrimSpace(req.EmployerHint); e != "" {
			b.WriteString("Only keep transfers received from the employer \"")
			b.WriteString(e)
			b.WriteString("\" or labelled as salary.\n")
		} else {
			b.WriteString("Only keep transfers labelled as salary.\n")
		}
	}
	b.WriteString("\nDocument text:\n")
	b.WriteString(clip(req.Text))
	return b.String()
}

func clip(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= maxPromptTextChars {
		return text
	}
	return string(r[:maxPromptTextChars]) + "\n...(truncated)"
}
