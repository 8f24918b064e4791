package flow

import (
	"testing"
)

func applyRules(t *testing.T, responses Responses, rules []BranchingRule) *FlowState {
	t.Helper()
	return NewEvaluator(nil).Apply(responses, rules)
}

// Higher priority decides visibility regardless of authored order.
func TestApplyPriorityOrdering(t *testing.T) {
	responses := Responses{"level": "Advanced"}
	match := &Condition{FieldKey: "level", Operator: OpEquals, Value: "Advanced"}

	testCases := []struct {
		name    string
		rules   []BranchingRule
		wantVis bool
	}{
		{
			"high-priority show authored last",
			[]BranchingRule{
				{Condition: match, Action: ActionHide, TargetFields: []string{"bonus"}, Priority: 1},
				{Condition: match, Action: ActionShow, TargetFields: []string{"bonus"}, Priority: 5},
			},
			true,
		},
		{
			"high-priority hide authored first",
			[]BranchingRule{
				{Condition: match, Action: ActionHide, TargetFields: []string{"bonus"}, Priority: 5},
				{Condition: match, Action: ActionShow, TargetFields: []string{"bonus"}, Priority: 1},
			},
			false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state := applyRules(t, responses, tc.rules)
			if got := state.IsVisible("bonus"); got != tc.wantVis {
				t.Errorf("IsVisible(bonus) = %v, want %v", got, tc.wantVis)
			}
			if got := state.IsHidden("bonus"); got == tc.wantVis {
				t.Errorf("IsHidden(bonus) = %v, want %v", got, !tc.wantVis)
			}
		})
	}
}

// Equal priorities keep authored order; the first writer still wins.
func TestApplyStableTieBreak(t *testing.T) {
	match := &Condition{FieldKey: "x", Operator: OpEquals, Value: "1"}
	rules := []BranchingRule{
		{Condition: match, Action: ActionShow, TargetFields: []string{"f"}, Priority: 3},
		{Condition: match, Action: ActionHide, TargetFields: []string{"f"}, Priority: 3},
	}

	state := applyRules(t, Responses{"x": "1"}, rules)
	if !state.IsVisible("f") {
		t.Error("first authored rule at equal priority should win")
	}
}

func TestApplyRequireField(t *testing.T) {
	rules := []BranchingRule{
		{
			Condition:    &Condition{FieldKey: "role", Operator: OpEquals, Value: "developer"},
			Action:       ActionRequireField,
			TargetFields: []string{"github", "languages"},
		},
	}

	state := applyRules(t, Responses{"role": "developer"}, rules)
	if !state.RequiredOverrides["github"] || !state.RequiredOverrides["languages"] {
		t.Errorf("RequiredOverrides = %v, want github and languages required", state.RequiredOverrides)
	}

	state = applyRules(t, Responses{"role": "designer"}, rules)
	if len(state.RequiredOverrides) != 0 {
		t.Errorf("RequiredOverrides = %v, want empty for non-matching condition", state.RequiredOverrides)
	}
}

func TestApplySetFieldValue(t *testing.T) {
	rules := []BranchingRule{
		{
			Condition:    &Condition{FieldKey: "languages", Operator: OpEmpty},
			Action:       ActionSetFieldValue,
			TargetFields: []string{"experience_level"},
			TargetValue:  "Beginner",
		},
	}

	state := applyRules(t, Responses{}, rules)
	if got := state.DerivedValues["experience_level"]; got != "Beginner" {
		t.Errorf("DerivedValues[experience_level] = %v, want Beginner", got)
	}
}

func TestApplySetFieldValueExpression(t *testing.T) {
	rules := []BranchingRule{
		{
			Action:          ActionSetFieldValue,
			TargetFields:    []string{"total"},
			ValueExpression: `responses["a"] + responses["b"]`,
		},
	}

	state := applyRules(t, Responses{"a": 2.0, "b": 3.0}, rules)
	if got, ok := state.DerivedValues["total"].(float64); !ok || got != 5.0 {
		t.Errorf("DerivedValues[total] = %v, want 5", state.DerivedValues["total"])
	}
}

func TestApplySetFieldValueBadExpression(t *testing.T) {
	e := NewEvaluator(nil)
	rules := []BranchingRule{
		{
			Action:          ActionSetFieldValue,
			TargetFields:    []string{"total"},
			ValueExpression: `responses[`,
		},
	}

	state := e.Apply(Responses{}, rules)
	if _, ok := state.DerivedValues["total"]; ok {
		t.Error("bad value expression should skip the action")
	}
	found := false
	for _, d := range state.Diagnostics {
		if d.Code == DiagBadExpression {
			found = true
		}
	}
	if !found {
		t.Error("expected bad_expression diagnostic")
	}
}

// The first (highest-priority) skip rule wins the step jump.
func TestApplySkipToStepFirstWriterWins(t *testing.T) {
	match := &Condition{FieldKey: "x", Operator: OpEquals, Value: "1"}
	rules := []BranchingRule{
		{Condition: match, Action: ActionSkipToStep, TargetStep: 4, Priority: 1},
		{Condition: match, Action: ActionSkipToStep, TargetStep: 2, Priority: 9},
	}

	state := applyRules(t, Responses{"x": "1"}, rules)
	if state.NextStep == nil || *state.NextStep != 2 {
		t.Errorf("NextStep = %v, want 2 (priority 9 rule)", state.NextStep)
	}
}

func TestApplyRecordsAppliedRules(t *testing.T) {
	rules := []BranchingRule{
		{
			Condition:    &Condition{FieldKey: "x", Operator: OpEquals, Value: "1"},
			Action:       ActionShow,
			TargetFields: []string{"a"},
			Priority:     5,
			Description:  "matched",
		},
		{
			Condition:    &Condition{FieldKey: "x", Operator: OpEquals, Value: "2"},
			Action:       ActionHide,
			TargetFields: []string{"a"},
			Priority:     9,
			Description:  "not matched",
		},
	}

	state := applyRules(t, Responses{"x": "1"}, rules)
	if len(state.AppliedRules) != 1 {
		t.Fatalf("AppliedRules has %d entries, want 1", len(state.AppliedRules))
	}
	if state.AppliedRules[0].Description != "matched" {
		t.Errorf("AppliedRules[0] = %q, want the matching rule", state.AppliedRules[0].Description)
	}
}

// A target key the flow doesn't know is a no-op for that key only; the
// rule's other targets still apply.
func TestApplyUnknownTargetIsNoOp(t *testing.T) {
	fields := []Field{
		{Key: "x", Type: FieldText, Step: 1},
		{Key: "real", Type: FieldText, Step: 1},
	}
	e := NewEvaluator(fields)

	rules := []BranchingRule{
		{Action: ActionShow, TargetFields: []string{"ghost", "real"}},
	}

	state := e.Apply(Responses{}, rules)
	if !state.IsVisible("real") {
		t.Error("known target should still be shown")
	}
	if state.IsVisible("ghost") {
		t.Error("unknown target should be skipped")
	}

	found := false
	for _, d := range state.Diagnostics {
		if d.Code == DiagUnknownField && d.FieldKey == "ghost" {
			found = true
		}
	}
	if !found {
		t.Errorf("Diagnostics = %+v, want unknown_field for ghost", state.Diagnostics)
	}
}

func TestApplyUnknownAction(t *testing.T) {
	state := applyRules(t, Responses{}, []BranchingRule{{Action: "explode"}})

	found := false
	for _, d := range state.Diagnostics {
		if d.Code == DiagUnknownAction {
			found = true
		}
	}
	if !found {
		t.Errorf("Diagnostics = %+v, want unknown_action", state.Diagnostics)
	}
}

func TestApplyDoesNotMutateInputRules(t *testing.T) {
	rules := []BranchingRule{
		{Action: ActionSkipToStep, TargetStep: 3, Priority: 1},
		{Action: ActionSkipToStep, TargetStep: 5, Priority: 9},
	}

	applyRules(t, Responses{}, rules)

	if rules[0].Priority != 1 || rules[1].Priority != 9 {
		t.Error("Apply must sort a copy, not the caller's slice")
	}
	if rules[0].TargetStep != 3 {
		t.Error("caller's rule order changed")
	}
}
