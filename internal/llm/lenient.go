package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

var (
	reFence = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

	errNoJSON = errors.New("no JSON value found in model output")
)

// ExtractJSON recovers a JSON object or array from free-form model output.
// Order of attempts: as is, inside a markdown fence, sliced between the outer
// brackets, repaired with json-repair, parsed as Hjson.
func ExtractJSON(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, errNoJSON
	}
	if isJSONContainer(s) {
		return []byte(s), nil
	}

	if m := reFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
		if isJSONContainer(s) {
			return []byte(s), nil
		}
	}

	candidate := sliceOuter(s)
	if candidate == "" {
		return nil, errNoJSON
	}
	if isJSONContainer(candidate) {
		return []byte(candidate), nil
	}

	if repaired, err := jsonrepair.RepairJSON(candidate); err == nil && isJSONContainer(repaired) {
		return []byte(repaired), nil
	}

	var v any
	if err := hjson.Unmarshal([]byte(candidate), &v); err == nil {
		switch v.(type) {
		case map[string]any, []any:
			return json.Marshal(v)
		}
	}
	return nil, errNoJSON
}

// sliceOuter cuts s from the first opening bracket to the matching last closing one.
func sliceOuter(s string) string {
	obj := strings.Index(s, "{")
	arr := strings.Index(s, "[")

	open, closer := obj, "}"
	if obj < 0 || (arr >= 0 && arr < obj) {
		open, closer = arr, "]"
	}
	if open < 0 {
		return ""
	}
	end := strings.LastIndex(s, closer)
	if end <= open {
		// unterminated; let the repair step close it
		return s[open:]
	}
	return s[open : end+1]
}

func isJSONContainer(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return false
	}
	return json.Valid([]byte(s))
}
