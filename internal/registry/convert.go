package registry

import (
	"encoding/json"
	"strconv"
	"strings"
)

// IPEDS encodes "missing" three ways: -1 not reported, -2 not applicable,
// -3 suppressed. They show up both as numbers and as strings depending on the
// vintage, so every mapper funnels values through IsMissing before casting.

// IsMissing reports whether v should be treated as absent: nil, empty or
// whitespace-only strings, and the reserved codes in either string or numeric
// form. Zero and booleans are real values.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		return s == "" || s == "-1" || s == "-2" || s == "-3"
	case float64:
		return t == -1 || t == -2 || t == -3
	case int:
		return t == -1 || t == -2 || t == -3
	case int64:
		return t == -1 || t == -2 || t == -3
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false
		}
		return f == -1 || f == -2 || f == -3
	default:
		return false
	}
}

// Pick returns the first non-missing value among the candidate keys, in order.
// Payloads vary in field names across years, so mappers declare a preference
// list, e.g. Pick(row, "inst_name", "institution_name", "instnm").
func Pick(row map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := row[k]; ok && !IsMissing(v) {
			return v
		}
	}
	return nil
}

// ToInt casts to *int, returning nil for missing or malformed input. Floats
// truncate toward zero; strings are trimmed and must parse as a whole number.
func ToInt(v any) *int {
	if IsMissing(v) {
		return nil
	}
	switch t := v.(type) {
	case int:
		return &t
	case int64:
		n := int(t)
		return &n
	case float64:
		n := int(t)
		return &n
	case json.Number:
		if i, err := t.Int64(); err == nil {
			n := int(i)
			return &n
		}
		return nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

// ToFloat casts to *float64, returning nil for missing or malformed input.
func ToFloat(v any) *float64 {
	if IsMissing(v) {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
		return nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// ToString casts to a trimmed *string, returning nil when missing or when the
// trimmed result is empty.
func ToString(v any) *string {
	if IsMissing(v) {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// intColumn and friends adapt the typed casts to the map[string]any rows the
// loader consumes; a nil pointer becomes an explicit nil (SQL NULL).
func intColumn(v any) any {
	if p := ToInt(v); p != nil {
		return *p
	}
	return nil
}

func floatColumn(v any) any {
	if p := ToFloat(v); p != nil {
		return *p
	}
	return nil
}

func stringColumn(v any) any {
	if p := ToString(v); p != nil {
		return *p
	}
	return nil
}
