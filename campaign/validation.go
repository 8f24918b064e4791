package campaign

import (
	"fmt"
	"regexp"

	"github.com/virionlabs/onboardflow/flow"
)

// Definition validation. This is the load-time counterpart of the engine's
// fail-closed runtime policy: the engine tolerates bad data mid-session,
// but authoring mistakes should be rejected when a campaign is deployed.

var validKeyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateFields validates a campaign's full field list: per-field checks
// plus cross-field ones (key uniqueness, resolvable rule references).
func ValidateFields(fields []flow.Field) error {
	keys := make(map[string]bool, len(fields))
	for _, f := range fields {
		if err := ValidateField(f); err != nil {
			return err
		}
		if keys[f.Key] {
			return fmt.Errorf("duplicate field key %q", f.Key)
		}
		keys[f.Key] = true
	}

	// References to other fields must resolve within the list.
	for _, f := range fields {
		for i, rule := range f.BranchingRules {
			for _, target := range rule.TargetFields {
				if !keys[target] {
					return fmt.Errorf("field %q rule %d targets unknown field %q", f.Key, i, target)
				}
			}
			if err := checkConditionRefs(f.Key, i, rule, keys); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkConditionRefs(fieldKey string, ruleIdx int, rule flow.BranchingRule, keys map[string]bool) error {
	check := func(c flow.Condition) error {
		if c.Operator == flow.OpExpression {
			return nil // expressions reference the whole response map
		}
		if !keys[c.FieldKey] {
			return fmt.Errorf("field %q rule %d references unknown field %q", fieldKey, ruleIdx, c.FieldKey)
		}
		return nil
	}

	if rule.Condition != nil {
		return check(*rule.Condition)
	}
	if rule.Conditions != nil {
		return walkGroup(*rule.Conditions, check)
	}
	return nil
}

func walkGroup(g flow.ConditionGroup, check func(flow.Condition) error) error {
	for _, c := range g.Conditions {
		if err := check(c); err != nil {
			return err
		}
	}
	for _, sub := range g.Groups {
		if err := walkGroup(sub, check); err != nil {
			return err
		}
	}
	return nil
}

// ValidateField validates a single field definition in isolation.
func ValidateField(f flow.Field) error {
	if f.Key == "" {
		return fmt.Errorf("field key cannot be empty")
	}
	if len(f.Key) > 100 {
		return fmt.Errorf("field key %q exceeds 100 characters", f.Key)
	}
	if !validKeyPattern.MatchString(f.Key) {
		return fmt.Errorf("field key %q must match ^[a-zA-Z_][a-zA-Z0-9_]*$", f.Key)
	}

	if !knownFieldType(f.Type) {
		return fmt.Errorf("field %q has invalid type %q", f.Key, f.Type)
	}

	if f.Step < 1 {
		return fmt.Errorf("field %q has step %d, steps start at 1", f.Key, f.Step)
	}

	if (f.Type == flow.FieldSelect || f.Type == flow.FieldMultiselect) && len(f.Options) == 0 {
		return fmt.Errorf("field %q of type %s needs at least one option", f.Key, f.Type)
	}

	for i, rule := range f.BranchingRules {
		if err := validateRule(f.Key, i, rule); err != nil {
			return err
		}
	}

	return nil
}

func validateRule(fieldKey string, idx int, rule flow.BranchingRule) error {
	if !flow.KnownAction(rule.Action) {
		return fmt.Errorf("field %q rule %d has unknown action %q", fieldKey, idx, rule.Action)
	}

	if rule.Condition != nil && rule.Conditions != nil {
		return fmt.Errorf("field %q rule %d sets both condition and conditions", fieldKey, idx)
	}

	switch rule.Action {
	case flow.ActionShow, flow.ActionHide, flow.ActionRequireField, flow.ActionSetFieldValue:
		if len(rule.TargetFields) == 0 {
			return fmt.Errorf("field %q rule %d (%s) has no target fields", fieldKey, idx, rule.Action)
		}
	case flow.ActionSkipToStep:
		if rule.TargetStep < 1 {
			return fmt.Errorf("field %q rule %d targets step %d, steps start at 1", fieldKey, idx, rule.TargetStep)
		}
	}

	check := func(c flow.Condition) error {
		if !flow.KnownOperator(c.Operator) {
			return fmt.Errorf("field %q rule %d has unknown operator %q", fieldKey, idx, c.Operator)
		}
		return nil
	}
	if rule.Condition != nil {
		return check(*rule.Condition)
	}
	if rule.Conditions != nil {
		return walkGroup(*rule.Conditions, check)
	}
	return nil
}

func knownFieldType(t flow.FieldType) bool {
	for _, valid := range flow.ValidFieldTypes() {
		if t == valid {
			return true
		}
	}
	return false
}
