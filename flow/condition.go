package flow

import (
	"fmt"
	"regexp"
	"strings"
)

// maxGroupDepth caps condition-group recursion. Groups are authored as
// trees so no cycle guard is needed, but malformed data beyond the cap
// fails closed.
const maxGroupDepth = 32

// Evaluator evaluates conditions and condition groups against a response
// map. It accumulates diagnostics for fail-closed decisions; a fresh
// Evaluator is cheap and intended to live for a single evaluation pass.
type Evaluator struct {
	known map[string]bool // field keys known to the flow, nil = don't check
	exprs *exprCache
	diags []Diagnostic
}

// NewEvaluator creates an evaluator. fields may be nil when the caller has
// no field list; missing-key diagnostics are then suppressed (the
// missing-key operator semantics themselves are unaffected).
func NewEvaluator(fields []Field) *Evaluator {
	e := &Evaluator{}
	if fields != nil {
		e.known = make(map[string]bool, len(fields))
		for _, f := range fields {
			e.known[f.Key] = true
		}
	}
	return e
}

// Diagnostics returns the fail-closed decisions recorded so far, in order.
func (e *Evaluator) Diagnostics() []Diagnostic {
	return e.diags
}

func (e *Evaluator) report(code DiagnosticCode, fieldKey, format string, args ...any) {
	e.diags = append(e.diags, Diagnostic{
		Code:     code,
		FieldKey: fieldKey,
		Detail:   fmt.Sprintf(format, args...),
	})
}

// Condition evaluates one atomic condition. Data-shape problems (unknown
// operator, bad regex, unparseable numbers) evaluate to false, never
// error. A missing field key is false for every operator except empty.
func (e *Evaluator) Condition(responses Responses, c Condition) bool {
	raw, present := responses[c.FieldKey]

	if e.known != nil && !e.known[c.FieldKey] {
		e.report(DiagUnknownField, c.FieldKey, "condition references unknown field %q", c.FieldKey)
	}

	switch c.Operator {
	case OpEmpty:
		return isBlank(raw)
	case OpNotEmpty:
		return present && !isBlank(raw)
	}

	if !present {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return foldEquals(CoerceString(raw), CoerceString(c.Value), c.CaseSensitive)

	case OpNotEquals:
		return !foldEquals(CoerceString(raw), CoerceString(c.Value), c.CaseSensitive)

	case OpContains:
		return foldContains(CoerceString(raw), CoerceString(c.Value), c.CaseSensitive)

	case OpNotContains:
		return !foldContains(CoerceString(raw), CoerceString(c.Value), c.CaseSensitive)

	case OpStartsWith:
		s, prefix := CoerceString(raw), CoerceString(c.Value)
		if !c.CaseSensitive {
			s, prefix = strings.ToLower(s), strings.ToLower(prefix)
		}
		return strings.HasPrefix(s, prefix)

	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual:
		left, okL := CoerceNumber(raw)
		right, okR := CoerceNumber(c.Value)
		if !okL || !okR {
			return false
		}
		switch c.Operator {
		case OpGreaterThan:
			return left > right
		case OpLessThan:
			return left < right
		case OpGreaterThanOrEqual:
			return left >= right
		default:
			return left <= right
		}

	case OpInList:
		needle := CoerceString(raw)
		for _, item := range conditionList(c.Value) {
			if foldEquals(needle, item, c.CaseSensitive) {
				return true
			}
		}
		return false

	case OpMatchesRegex:
		pattern := CoerceString(c.Value)
		if !c.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			e.report(DiagBadRegex, c.FieldKey, "invalid pattern %q: %v", CoerceString(c.Value), err)
			return false
		}
		return re.MatchString(CoerceString(raw))

	case OpArrayContains:
		want := CoerceString(c.Value)
		for _, item := range CoerceList(raw) {
			if foldEquals(item, want, c.CaseSensitive) {
				return true
			}
		}
		return false

	case OpArrayLengthEquals:
		want, ok := CoerceNumber(c.Value)
		if !ok {
			return false
		}
		return float64(len(CoerceList(raw))) == want

	case OpExpression:
		return e.expression(responses, c)

	default:
		e.report(DiagUnknownOperator, c.FieldKey, "unknown operator %q", c.Operator)
		return false
	}
}

func (e *Evaluator) expression(responses Responses, c Condition) bool {
	src := CoerceString(c.Value)
	if e.exprs == nil {
		cache, err := newExprCache()
		if err != nil {
			e.report(DiagBadExpression, c.FieldKey, "expression environment: %v", err)
			return false
		}
		e.exprs = cache
	}

	matched, err := e.exprs.evalBool(src, responses)
	if err != nil {
		e.report(DiagBadExpression, c.FieldKey, "expression %q: %v", src, err)
		return false
	}
	return matched
}

// Group recursively evaluates a condition group. AND requires every direct
// condition and nested group to hold (vacuously true when empty); OR needs
// any one of them (vacuously false when empty).
func (e *Evaluator) Group(responses Responses, g ConditionGroup) bool {
	return e.group(responses, g, 0)
}

func (e *Evaluator) group(responses Responses, g ConditionGroup, depth int) bool {
	if depth >= maxGroupDepth {
		e.report(DiagDepthExceeded, "", "condition group nesting exceeds %d levels", maxGroupDepth)
		return false
	}

	if g.Logic == LogicOr {
		for _, c := range g.Conditions {
			if e.Condition(responses, c) {
				return true
			}
		}
		for _, sub := range g.Groups {
			if e.group(responses, sub, depth+1) {
				return true
			}
		}
		return false
	}

	// AND is the default for any other logic value.
	for _, c := range g.Conditions {
		if !e.Condition(responses, c) {
			return false
		}
	}
	for _, sub := range g.Groups {
		if !e.group(responses, sub, depth+1) {
			return false
		}
	}
	return true
}

// Rule evaluates a branching rule's trigger. A rule with neither a
// condition nor a group always matches.
func (e *Evaluator) Rule(responses Responses, r BranchingRule) bool {
	switch {
	case r.Condition != nil:
		return e.Condition(responses, *r.Condition)
	case r.Conditions != nil:
		return e.Group(responses, *r.Conditions)
	default:
		return true
	}
}

func foldEquals(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

func foldContains(s, substr string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(s, substr)
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// conditionList renders condition.Value as a list of strings for in_list.
// A scalar value is treated as a single-item list, matching how loosely
// these rules get authored.
func conditionList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = CoerceString(item)
		}
		return out
	case nil:
		return nil
	default:
		return []string{CoerceString(t)}
	}
}
