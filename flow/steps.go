package flow

import "sort"

// Step sequencing. Steps default to sequential order; a matching
// skip_to_step rule on the current step overrides, bounds-checked against
// the highest known step.

// GroupByStep buckets fields by step number, sorted by SortOrder within
// each step with the authored order preserved for ties.
func (f *Flow) GroupByStep() map[int][]Field {
	groups := make(map[int][]Field)
	for _, field := range f.fields {
		step := field.Step
		if step < 1 {
			step = 1
		}
		groups[step] = append(groups[step], field)
	}
	for step := range groups {
		bucket := groups[step]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].SortOrder < bucket[j].SortOrder
		})
		groups[step] = bucket
	}
	return groups
}

// Steps returns the distinct step numbers in ascending order.
func (f *Flow) Steps() []int {
	seen := make(map[int]bool)
	var steps []int
	for _, field := range f.fields {
		step := field.Step
		if step < 1 {
			step = 1
		}
		if !seen[step] {
			seen[step] = true
			steps = append(steps, step)
		}
	}
	sort.Ints(steps)
	return steps
}

// NextStep computes the step following currentStep for the given
// responses. ok is false when the flow is complete: either a skip rule
// targeted a step beyond the last known one, or there is no later step.
//
// Only rules attached to the current step's fields participate, so a rule
// on a later, not-yet-answered step cannot yank the user around.
func (f *Flow) NextStep(currentStep int, responses Responses) (next int, ok bool) {
	state := f.EvaluateStep(currentStep, responses)
	if state.NextStep != nil {
		target := *state.NextStep
		if target > f.maxStep {
			return 0, false
		}
		return target, true
	}

	if f.stepExists(currentStep + 1) {
		return currentStep + 1, true
	}
	return 0, false
}

func (f *Flow) stepExists(step int) bool {
	for _, field := range f.fields {
		if field.Step == step {
			return true
		}
	}
	return false
}

// VisibleFieldsForStep returns the fields of a step that should be shown
// for the current responses: fields the full rule pass marked visible,
// plus fields no show/hide rule governs at all. Fields default to visible
// unless something explicitly governs them.
func (f *Flow) VisibleFieldsForStep(step int, responses Responses) []Field {
	state := f.Evaluate(responses)
	governed := f.governedFields()

	var visible []Field
	for _, field := range f.fields {
		if field.Step != step {
			continue
		}
		if !governed[field.Key] || state.IsVisible(field.Key) {
			if !state.IsHidden(field.Key) {
				visible = append(visible, field)
			}
		}
	}
	return visible
}

// governedFields is the set of keys any show/hide rule targets.
func (f *Flow) governedFields() map[string]bool {
	governed := make(map[string]bool)
	for _, field := range f.fields {
		for _, rule := range field.BranchingRules {
			if rule.Action != ActionShow && rule.Action != ActionHide {
				continue
			}
			for _, key := range rule.TargetFields {
				governed[key] = true
			}
		}
	}
	return governed
}
