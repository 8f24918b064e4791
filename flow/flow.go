package flow

import (
	"errors"
	"fmt"
)

// Flow is an immutable, loaded flow definition: the full field list plus
// the CEL programs its rules reference, compiled once up front. A Flow is
// safe for concurrent use; per-call state lives in the responses map and
// the returned FlowState, both owned by the calling session.
type Flow struct {
	fields  []Field
	byKey   map[string]Field
	maxStep int
	exprs   *exprCache
}

// NewFlow builds a Flow from a field list. Expressions referenced by
// branching rules are compiled eagerly so authoring mistakes surface at
// load time instead of mid-session. A nil field list is programmer error.
func NewFlow(fields []Field) (*Flow, error) {
	if fields == nil {
		return nil, errors.New("flow: nil field list")
	}

	exprs, err := newExprCache()
	if err != nil {
		return nil, err
	}

	f := &Flow{
		fields: fields,
		byKey:  make(map[string]Field, len(fields)),
		exprs:  exprs,
	}

	for _, field := range fields {
		if _, dup := f.byKey[field.Key]; dup {
			return nil, fmt.Errorf("flow: duplicate field key %q", field.Key)
		}
		f.byKey[field.Key] = field
		if field.Step > f.maxStep {
			f.maxStep = field.Step
		}

		for _, rule := range field.BranchingRules {
			for _, src := range ruleExpressions(rule) {
				if _, err := exprs.compile(src); err != nil {
					return nil, fmt.Errorf("flow: field %q: %w", field.Key, err)
				}
			}
		}
	}

	return f, nil
}

// ruleExpressions collects every CEL source string a rule carries.
func ruleExpressions(rule BranchingRule) []string {
	var srcs []string
	if rule.Condition != nil && rule.Condition.Operator == OpExpression {
		srcs = append(srcs, CoerceString(rule.Condition.Value))
	}
	if rule.Conditions != nil {
		srcs = append(srcs, groupExpressions(*rule.Conditions)...)
	}
	if rule.ValueExpression != "" {
		srcs = append(srcs, rule.ValueExpression)
	}
	return srcs
}

func groupExpressions(g ConditionGroup) []string {
	var srcs []string
	for _, c := range g.Conditions {
		if c.Operator == OpExpression {
			srcs = append(srcs, CoerceString(c.Value))
		}
	}
	for _, sub := range g.Groups {
		srcs = append(srcs, groupExpressions(sub)...)
	}
	return srcs
}

// Fields returns the flow's field list in authored order.
func (f *Flow) Fields() []Field {
	return f.fields
}

// Field looks up a field definition by key.
func (f *Flow) Field(key string) (Field, bool) {
	field, ok := f.byKey[key]
	return field, ok
}

// MaxStep is the highest step number any field is assigned to.
func (f *Flow) MaxStep() int {
	return f.maxStep
}

// evaluator builds a per-pass evaluator sharing the flow's compiled
// expression cache.
func (f *Flow) evaluator() *Evaluator {
	e := NewEvaluator(f.fields)
	e.exprs = f.exprs
	return e
}

// Rules collects the branching rules attached to fields in the given
// step. step <= 0 collects every rule in the flow.
func (f *Flow) Rules(step int) []BranchingRule {
	var rules []BranchingRule
	for _, field := range f.fields {
		if step > 0 && field.Step != step {
			continue
		}
		rules = append(rules, field.BranchingRules...)
	}
	return rules
}

// Evaluate runs every branching rule in the flow against the responses.
func (f *Flow) Evaluate(responses Responses) *FlowState {
	return f.evaluator().Apply(responses, f.Rules(0))
}

// EvaluateStep runs only the rules attached to fields in the given step,
// which is how step transitions are computed.
func (f *Flow) EvaluateStep(step int, responses Responses) *FlowState {
	return f.evaluator().Apply(responses, f.Rules(step))
}
