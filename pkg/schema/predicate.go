package schema

import (
	"encoding/json"
	"strings"
)

// Operator is a predicate comparison operator.
type Operator string

// Valid predicate operators.
const (
	OpEquals Operator = "eq"
	OpIn     Operator = "in"
)

// Predicate is an equality or membership check over a flat or dot-path key
// in an evidence document. It drives conditional display and
// conditionally-required rules.
type Predicate struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
	Values   []any    `json:"values,omitempty"`
}

// Eval evaluates the predicate against the candidate evidence.
// It is total: an absent or unreadable key evaluates to false, never an error.
func (p Predicate) Eval(evidence map[string]any) bool {
	value, ok := Lookup(evidence, p.Field)
	if !ok {
		return false
	}

	switch p.Operator {
	case OpEquals:
		return equalValues(value, p.Value)
	case OpIn:
		for _, v := range p.Values {
			if equalValues(value, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Lookup resolves a flat or dot-path key against nested evidence maps.
// Returns false when any segment is missing or a non-map intervenes.
func Lookup(evidence map[string]any, path string) (any, bool) {
	if evidence == nil || path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	current := any(evidence)

	for _, segment := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// Set writes a value at a flat or dot-path key, creating intermediate
// maps as needed. Existing non-map intermediates are replaced.
func Set(evidence map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := evidence

	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}

	current[segments[len(segments)-1]] = value
}

// equalValues compares evidence values loosely: JSON decoding produces
// float64 for all numbers, so numeric comparison normalizes both sides.
func equalValues(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
