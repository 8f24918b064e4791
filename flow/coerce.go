package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// Coercion helpers shared by the condition evaluator, validator, and field
// converter. Every function here is total: a value that cannot be coerced
// reports ok=false (or falls back to the input) instead of erroring, so
// callers can fail closed per the engine's error policy.

// CoerceString renders any stored answer as a string. Slices join with
// ", " so multiselect answers compare the same way they were collected.
func CoerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = CoerceString(item)
		}
		return strings.Join(parts, ", ")
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// CoerceNumber parses a stored answer as a float64.
func CoerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// CoerceBool interprets yes/true and no/false case-insensitively. Anything
// else is ambiguous and reports ok=false so the raw value survives for
// downstream validation to reject.
func CoerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true":
			return true, true
		case "no", "false":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}

// CoerceList converts a stored answer into a string slice. Comma-separated
// strings split with whitespace trimmed; empty tokens are dropped.
func CoerceList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, CoerceString(item))
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	default:
		return []string{CoerceString(t)}
	}
}

// isBlank reports whether the answer renders to an empty trimmed string.
// A missing key, nil, and "" are all blank.
func isBlank(v any) bool {
	return strings.TrimSpace(CoerceString(v)) == ""
}
