package llm

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a money figure the way it shows up on French and English
// documents: "2 500,00 €", "2.500,00", "2,500.00", "2500 EUR". The result is
// rounded to cents.
func ParseAmount(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == ',', r == '.', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'':
			// thousands separators
		}
	}
	clean := strings.Trim(b.String(), ",.")
	if clean == "" || strings.Trim(clean, "-") == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(clean, ",")
	lastDot := strings.LastIndex(clean, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		clean = resolveSingleSeparator(clean, ",")
	case lastDot >= 0:
		clean = resolveSingleSeparator(clean, ".")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, false
	}
	return d.Round(2).InexactFloat64(), true
}

// resolveSingleSeparator decides whether sep is a decimal or thousands separator
// when it is the only separator kind present. Several occurrences, or exactly
// three trailing digits, mean thousands.
func resolveSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	if len(s)-idx-1 == 3 {
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}
