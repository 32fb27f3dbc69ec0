package llm

import (
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/income-verifier/constants"
)

// keySynonyms maps the keys models tend to answer with onto our field names.
// Keys are compared lowercased with accents folded. When several keys land on
// the same field, the field's own name wins, then the earlier entry here.
var keySynonyms = []struct{ from, to string }{
	{"nom", "name"},
	{"last_name", "name"},
	{"lastname", "name"},
	{"family_name", "name"},
	{"prenom", "first_name"},
	{"firstname", "first_name"},
	{"given_name", "first_name"},
	{"poste", "position"},
	{"job_title", "position"},
	{"fonction", "position"},
	{"employeur", "employer"},
	{"entreprise", "employer"},
	{"societe", "employer"},
	{"company", "employer"},
	{"periode", "period"},
	{"mois", "period"},
	{"month", "period"},
	{"salaire_brut", "gross_salary"},
	{"brut", "gross_salary"},
	{"salaire_net", "net_salary"},
	{"net_a_payer", "net_salary"},
	{"salaire", "net_salary"},
	{"salary", "net_salary"},
	{"montant_recu", "received_amount"},
	{"montants_recus", "received_amounts"},
	{"montants", "received_amounts"},
	{"amounts", "received_amounts"},
	{"libelle_virement", "transfer_label"},
}

// synonymRank indexes keySynonyms by folded key.
var synonymRank = func() map[string]int {
	m := make(map[string]int, len(keySynonyms))
	for i, s := range keySynonyms {
		m[s.from] = i
	}
	return m
}()

func foldKey(k string) string {
	return accentFold.Replace(strings.ToLower(strings.TrimSpace(k)))
}

// canonicalKey returns the field a model key maps to and its precedence;
// lower wins. Our own field names rank before every synonym.
func canonicalKey(k string) (string, int) {
	key := foldKey(k)
	if i, ok := synonymRank[key]; ok {
		return keySynonyms[i].to, i
	}
	return key, -1
}

var (
	moneyKeys  = []string{"gross_salary", "net_salary", "received_amount"}
	stringKeys = []string{"name", "first_name", "position", "employer", "period", "transfer_label", "iban"}
	accentFold = strings.NewReplacer("é", "e", "è", "e", "ê", "e", "à", "a", "ç", "c", "ô", "o", "î", "i", "û", "u", " ", "_", "-", "_")
)

// NormalizeAndSanitizeJSON rewrites a model answer into our record shape:
//   - renames French and English synonyms to our keys
//   - parses money written as text ("2 500,00 €") into numbers
//   - drops null, empty and negative values
//   - drops keys the document type does not carry
//
// A top-level array is read as the list of received amounts.
func NormalizeAndSanitizeJSON(raw []byte, docType constants.DocumentType, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var top any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var in map[string]any
	switch t := top.(type) {
	case map[string]any:
		in = t
	case []any:
		in = map[string]any{"received_amounts": t}
	default:
		return nil, nil, fmt.Errorf("sanitize: unexpected top-level %T", top)
	}

	keys := slices.SortedFunc(maps.Keys(in), func(a, b string) int {
		_, ra := canonicalKey(a)
		_, rb := canonicalKey(b)
		if c := cmp.Compare(ra, rb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	dropped := make([]string, 0, 4)
	m := make(map[string]any, len(in))
	for _, k := range keys {
		key, _ := canonicalKey(k)
		if _, exists := m[key]; exists {
			dropped = append(dropped, k+"(duplicate)")
			continue
		}
		m[key] = in[k]
	}

	for _, k := range moneyKeys {
		v, ok := m[k]
		if !ok {
			continue
		}
		if f, ok := coerceAmount(v); ok {
			m[k] = f
		} else {
			delete(m, k)
			dropped = append(dropped, k+"(invalid)")
		}
	}

	if v, ok := m["received_amounts"]; ok {
		amounts := coerceAmountList(v)
		if len(amounts) == 0 {
			delete(m, "received_amounts")
			dropped = append(dropped, "received_amounts(empty)")
		} else {
			m["received_amounts"] = amounts
		}
	}

	for _, k := range stringKeys {
		v, ok := m[k]
		if !ok {
			continue
		}
		s, ok := coerceString(v)
		if !ok {
			delete(m, k)
			dropped = append(dropped, k+"(empty)")
			continue
		}
		m[k] = s
	}

	allowed := BuildRecordJSONSchema(docType)["properties"].(map[string]any)
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Debug("llm.extract.normalize_sanitize", "doc_type", docType, "dropped", dropped)
	}
	return out, dropped, nil
}

func coerceAmount(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if isNullish(s) {
			return 0, false
		}
		var ok bool
		if f, ok = ParseAmount(s); !ok {
			return 0, false
		}
	default:
		return 0, false
	}
	if f < 0 {
		return 0, false
	}
	return f, true
}

func coerceAmountList(v any) []float64 {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case nil:
		return nil
	default:
		items = []any{t}
	}

	out := make([]float64, 0, len(items))
	for _, it := range items {
		// models sometimes answer [{"montant": 2500}] instead of [2500]
		if obj, ok := it.(map[string]any); ok {
			for _, k := range []string{"amount", "montant", "received_amount", "montant_recu", "value"} {
				if inner, ok := obj[k]; ok {
					it = inner
					break
				}
			}
		}
		if f, ok := coerceAmount(it); ok {
			out = append(out, f)
		}
	}
	return out
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if isNullish(s) {
			return "", false
		}
		return s, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func isNullish(s string) bool {
	switch strings.ToLower(s) {
	case "", "null", "none", "n/a", "na", "...", "inconnu", "unknown", "non trouvé", "non trouve":
		return true
	}
	return false
}
