package core

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/joseph-ayodele/income-verifier/constants"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// Summary renders a run as markdown: document counts, identity, periods
// covered, figures and verdict.
func Summary(res *AnalysisResult) string {
	var b strings.Builder
	counts := map[constants.DocumentType]int{}
	var periods []string
	seen := map[string]struct{}{}
	for _, d := range res.Documents {
		counts[d.Type]++
		if d.Type != constants.PaySlip || d.Record == nil || d.Record.Period == nil {
			continue
		}
		p := strings.TrimSpace(*d.Record.Period)
		if _, ok := seen[p]; p != "" && !ok {
			seen[p] = struct{}{}
			periods = append(periods, p)
		}
	}
	sort.Strings(periods)

	fmt.Fprintf(&b, "Documents received: %d pay slip(s), %d contract(s), %d bank statement(s)",
		counts[constants.PaySlip], counts[constants.Contract], counts[constants.BankStatement])
	if n := counts[constants.Unknown]; n > 0 {
		fmt.Fprintf(&b, ", %d unrecognized", n)
	}
	b.WriteString(".\n\n")

	if res.Record != nil {
		writeIdentity(&b, res.Record.FullName, res.Record.Position, res.Record.Employer)
	} else if res.Identity != nil {
		writeIdentity(&b, FullName(*res.Identity), res.Identity.Position, res.Identity.Employer)
	}
	if len(periods) > 0 {
		fmt.Fprintf(&b, "Periods covered: **%s**.\n\n", strings.Join(periods, ", "))
	}

	switch {
	case res.Record != nil:
		writeFigures(&b, *res.Record)
	case res.Verdict != nil:
		writeVerdict(&b, res.Verdict.Verified, res.Verdict.Reason)
	default:
		b.WriteString("No estimate: not enough pay slips with a net salary.\n\n")
	}

	for _, d := range res.Documents {
		if d.Status == constants.DocumentStatusUsable {
			continue
		}
		fmt.Fprintf(&b, "- `%s`: %s\n", d.Name, d.Status)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// RecordSummary renders a stored record on its own.
func RecordSummary(rec entity.FinalRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis of %s.\n\n", rec.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	writeIdentity(&b, rec.FullName, rec.Position, rec.Employer)
	writeFigures(&b, rec)
	return strings.TrimSpace(b.String()) + "\n"
}

// SummaryHTML converts a markdown summary to an HTML fragment.
func SummaryHTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}
	return buf.Bytes(), nil
}

func writeIdentity(b *strings.Builder, name, position, employer *string) {
	fmt.Fprintf(b, "Employee: **%s**, position: **%s**, employer: **%s**.\n\n",
		orUnknown(name), orUnknown(position), orUnknown(employer))
}

func writeFigures(b *strings.Builder, rec entity.FinalRecord) {
	fmt.Fprintf(b, "Average net salary: **%.2f**. Monthly capacity: **%.2f**. Borrowable over %d years: **%.2f**.\n\n",
		rec.AverageNetSalary, rec.MonthlyCapacity, rec.LoanYears, rec.TotalBorrowable)
	writeVerdict(b, rec.Verified, rec.Reason)
}

func writeVerdict(b *strings.Builder, verified bool, reason string) {
	if verified {
		b.WriteString("Income verified: **YES**.\n\n")
		return
	}
	b.WriteString("Income verified: **NO**.\n\n")
	if reason != "" {
		fmt.Fprintf(b, "Reason: %s.\n\n", reason)
	}
}

func orUnknown(p *string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return "unknown"
	}
	return *p
}
