package flow

import "sort"

// Apply runs a rule set against the responses and folds every matching
// rule's effect into a FlowState.
//
// Rules run in priority-descending order; the sort is stable so equal
// priorities keep their authored order. Because higher priorities run
// first, visibility and the step jump are first-writer-wins: once a rule
// has decided a field's visibility (or set the next step), later rules in
// the pass cannot override it.
func (e *Evaluator) Apply(responses Responses, rules []BranchingRule) *FlowState {
	ordered := make([]BranchingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	state := &FlowState{
		RequiredOverrides: make(map[string]bool),
		DerivedValues:     make(map[string]any),
	}

	// visibility decided so far: true = visible, false = hidden
	decided := make(map[string]bool)

	for _, rule := range ordered {
		if !e.Rule(responses, rule) {
			continue
		}
		state.AppliedRules = append(state.AppliedRules, rule)

		switch rule.Action {
		case ActionShow:
			for _, key := range e.ruleTargets(rule) {
				if _, done := decided[key]; !done {
					decided[key] = true
					state.VisibleFields = append(state.VisibleFields, key)
				}
			}

		case ActionHide:
			for _, key := range e.ruleTargets(rule) {
				if _, done := decided[key]; !done {
					decided[key] = false
					state.HiddenFields = append(state.HiddenFields, key)
				}
			}

		case ActionRequireField:
			for _, key := range e.ruleTargets(rule) {
				state.RequiredOverrides[key] = true
			}

		case ActionSetFieldValue:
			value, ok := e.ruleValue(responses, rule)
			if !ok {
				continue
			}
			for _, key := range e.ruleTargets(rule) {
				state.DerivedValues[key] = value
			}

		case ActionSkipToStep:
			if state.NextStep == nil {
				step := rule.TargetStep
				state.NextStep = &step
			}

		default:
			e.report(DiagUnknownAction, "", "unknown action %q", rule.Action)
		}
	}

	state.Diagnostics = e.diags
	return state
}

// ruleTargets filters a rule's target fields down to keys the flow knows
// about. Unknown targets are skipped (the action becomes a no-op for that
// key) with a diagnostic; the rule's remaining targets still apply.
func (e *Evaluator) ruleTargets(rule BranchingRule) []string {
	if e.known == nil {
		return rule.TargetFields
	}
	targets := make([]string, 0, len(rule.TargetFields))
	for _, key := range rule.TargetFields {
		if !e.known[key] {
			e.report(DiagUnknownField, key, "rule %q targets unknown field %q", rule.Action, key)
			continue
		}
		targets = append(targets, key)
	}
	return targets
}

// ruleValue resolves the value written by a set_field_value rule: the
// compiled ValueExpression when present, otherwise the literal TargetValue.
func (e *Evaluator) ruleValue(responses Responses, rule BranchingRule) (any, bool) {
	if rule.ValueExpression == "" {
		return rule.TargetValue, true
	}

	if e.exprs == nil {
		cache, err := newExprCache()
		if err != nil {
			e.report(DiagBadExpression, "", "expression environment: %v", err)
			return nil, false
		}
		e.exprs = cache
	}

	value, err := e.exprs.eval(rule.ValueExpression, responses)
	if err != nil {
		e.report(DiagBadExpression, "", "value expression %q: %v", rule.ValueExpression, err)
		return nil, false
	}
	return value, true
}
