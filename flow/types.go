package flow

import (
	"encoding/json"
	"time"
)

// FieldType names the rich input type a field is authored with. The engine
// flattens every type to a single free-text representation for collection
// (see convert.go) and coerces back for evaluation.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldEmail       FieldType = "email"
	FieldNumber      FieldType = "number"
	FieldBoolean     FieldType = "boolean"
	FieldURL         FieldType = "url"
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
)

// ValidFieldTypes lists every recognized field type.
func ValidFieldTypes() []FieldType {
	return []FieldType{
		FieldText, FieldEmail, FieldNumber, FieldBoolean,
		FieldURL, FieldSelect, FieldMultiselect,
	}
}

// Operator is the closed set of condition operators. Unknown operators
// evaluate to false and surface a diagnostic rather than an error.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpStartsWith         Operator = "starts_with"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpEmpty              Operator = "empty"
	OpNotEmpty           Operator = "not_empty"
	OpInList             Operator = "in_list"
	OpMatchesRegex       Operator = "matches_regex"
	OpArrayContains      Operator = "array_contains"
	OpArrayLengthEquals  Operator = "array_length_equals"

	// OpExpression evaluates condition.Value as a CEL expression over the
	// response map bound to the `responses` variable.
	OpExpression Operator = "expression"
)

// KnownOperator reports whether op is part of the supported operator set.
func KnownOperator(op Operator) bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpNotContains, OpStartsWith,
		OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
		OpEmpty, OpNotEmpty, OpInList, OpMatchesRegex,
		OpArrayContains, OpArrayLengthEquals, OpExpression:
		return true
	}
	return false
}

// Logic combines conditions and nested groups inside a ConditionGroup.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Action is the closed set of branching-rule effects.
type Action string

const (
	ActionShow          Action = "show"
	ActionHide          Action = "hide"
	ActionRequireField  Action = "require_field"
	ActionSkipToStep    Action = "skip_to_step"
	ActionSetFieldValue Action = "set_field_value"
)

// KnownAction reports whether a is part of the supported action set.
func KnownAction(a Action) bool {
	switch a {
	case ActionShow, ActionHide, ActionRequireField, ActionSkipToStep, ActionSetFieldValue:
		return true
	}
	return false
}

// Condition is an atomic predicate over one field's current answer.
type Condition struct {
	FieldKey      string   `json:"field_key"`
	Operator      Operator `json:"operator"`
	Value         any      `json:"value,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
}

// ConditionGroup combines conditions and nested groups with AND/OR logic.
// An empty AND group is vacuously true; an empty OR group is vacuously
// false. The asymmetry is deliberate and pinned by tests.
type ConditionGroup struct {
	Logic      Logic            `json:"logic"`
	Conditions []Condition      `json:"conditions"`
	Groups     []ConditionGroup `json:"groups,omitempty"`
}

// BranchingRule pairs a condition (or group) with an action. Exactly one of
// Condition and Conditions should be set; a rule with neither matches
// unconditionally, matching how campaign authors write "always" rules.
type BranchingRule struct {
	Condition  *Condition      `json:"condition,omitempty"`
	Conditions *ConditionGroup `json:"conditions,omitempty"`
	Action     Action          `json:"action"`

	TargetFields []string `json:"target_fields,omitempty"`
	TargetStep   int      `json:"target_step,omitempty"`
	TargetValue  any      `json:"target_value,omitempty"`

	// ValueExpression is an optional CEL expression computing the value for
	// set_field_value actions; it wins over TargetValue when present.
	ValueExpression string `json:"value_expression,omitempty"`

	Priority    int    `json:"priority,omitempty"`
	Description string `json:"description,omitempty"`
}

// ValidationRuleType is the closed set of per-field validation checks.
type ValidationRuleType string

const (
	RuleRequired    ValidationRuleType = "required"
	RuleMin         ValidationRuleType = "min"
	RuleMax         ValidationRuleType = "max"
	RuleEmail       ValidationRuleType = "email"
	RuleURL         ValidationRuleType = "url"
	RuleNumeric     ValidationRuleType = "numeric"
	RuleContains    ValidationRuleType = "contains"
	RuleNotContains ValidationRuleType = "not_contains"
	RuleGreaterThan ValidationRuleType = "greater_than"
	RuleLessThan    ValidationRuleType = "less_than"
	RuleEquals      ValidationRuleType = "equals"
	RuleNotEquals   ValidationRuleType = "not_equals"
	RuleRegex       ValidationRuleType = "regex"
	RuleEmpty       ValidationRuleType = "empty"
	RuleNotEmpty    ValidationRuleType = "not_empty"
)

// ValidationRule is one entry in a field's ordered validation list.
type ValidationRule struct {
	Type          ValidationRuleType `json:"type"`
	Value         any                `json:"value,omitempty"`
	Message       string             `json:"message,omitempty"`
	CaseSensitive bool               `json:"case_sensitive,omitempty"`
}

// Field is a single onboarding question definition. Fields are authored
// externally, loaded once per flow, and immutable during evaluation.
type Field struct {
	ID         string `json:"id,omitempty"`
	CampaignID string `json:"campaign_id,omitempty"`

	Key      string    `json:"field_key"`
	Label    string    `json:"field_label"`
	Type     FieldType `json:"field_type"`
	Options  []string  `json:"field_options,omitempty"`
	Required bool      `json:"is_required"`
	Step     int       `json:"step_number"`

	ValidationRules []ValidationRule `json:"validation_rules,omitempty"`
	BranchingRules  []BranchingRule  `json:"branching_logic,omitempty"`

	// SortOrder preserves the authored ordering within a step.
	SortOrder int `json:"sort_order,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Responses is the accumulated answer map keyed by field key. Values are
// the raw strings received from input unless the caller pre-coerced them.
type Responses map[string]any

// Clone returns a shallow copy so evaluation passes can stage derived
// values without mutating the caller's map.
func (r Responses) Clone() Responses {
	out := make(Responses, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FlowState is the derived snapshot produced by one evaluation pass. It is
// recomputed whenever responses change and never persisted by the engine.
type FlowState struct {
	VisibleFields     []string        `json:"visibleFields"`
	HiddenFields      []string        `json:"hiddenFields"`
	RequiredOverrides map[string]bool `json:"requiredOverrides"`
	DerivedValues     map[string]any  `json:"derivedValues"`

	// NextStep is nil when no skip_to_step rule fired.
	NextStep *int `json:"nextStep"`

	// AppliedRules lists every rule whose condition matched, in evaluation
	// order, for caller-side auditing.
	AppliedRules []BranchingRule `json:"appliedRules"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// IsVisible reports whether the pass decided key is visible.
func (s *FlowState) IsVisible(key string) bool {
	for _, k := range s.VisibleFields {
		if k == key {
			return true
		}
	}
	return false
}

// IsHidden reports whether the pass decided key is hidden.
func (s *FlowState) IsHidden(key string) bool {
	for _, k := range s.HiddenFields {
		if k == key {
			return true
		}
	}
	return false
}

// ValidationResult is the structured outcome of validating one answer.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// DiagnosticCode classifies non-fatal evaluation problems. Bad authored
// data fails closed and is reported here instead of aborting the session.
type DiagnosticCode string

const (
	DiagUnknownField    DiagnosticCode = "unknown_field"
	DiagUnknownOperator DiagnosticCode = "unknown_operator"
	DiagUnknownAction   DiagnosticCode = "unknown_action"
	DiagBadRegex        DiagnosticCode = "bad_regex"
	DiagBadExpression   DiagnosticCode = "bad_expression"
	DiagDepthExceeded   DiagnosticCode = "depth_exceeded"
)

// Diagnostic describes one fail-closed decision made during evaluation.
type Diagnostic struct {
	Code     DiagnosticCode `json:"code"`
	FieldKey string         `json:"field_key,omitempty"`
	Detail   string         `json:"detail,omitempty"`
}

// ParseValidationRules decodes a validation_rules payload. The canonical
// shape is an ordered JSON array of ValidationRule. Legacy definitions use
// an object {"min_length": n, "max_length": n, "required": bool}; those are
// normalized into list form as min, max, required in that fixed order.
func ParseValidationRules(raw json.RawMessage) ([]ValidationRule, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var list []ValidationRule
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var legacy struct {
		MinLength *float64 `json:"min_length"`
		MaxLength *float64 `json:"max_length"`
		Required  bool     `json:"required"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}

	var rules []ValidationRule
	if legacy.MinLength != nil {
		rules = append(rules, ValidationRule{Type: RuleMin, Value: *legacy.MinLength})
	}
	if legacy.MaxLength != nil {
		rules = append(rules, ValidationRule{Type: RuleMax, Value: *legacy.MaxLength})
	}
	if legacy.Required {
		rules = append(rules, ValidationRule{Type: RuleRequired})
	}
	return rules, nil
}
