package flow

import (
	"reflect"
	"testing"
)

func TestToTextInput(t *testing.T) {
	testCases := []struct {
		name            string
		field           Field
		wantPlaceholder string
		wantHelp        string
	}{
		{
			name:            "select lists options",
			field:           Field{Type: FieldSelect, Options: []string{"Beginner", "Advanced"}},
			wantPlaceholder: "e.g. Beginner",
			wantHelp:        "Choose one of: Beginner, Advanced",
		},
		{
			name:            "multiselect mentions comma separation",
			field:           Field{Type: FieldMultiselect, Options: []string{"Go", "Rust", "Zig"}},
			wantPlaceholder: "e.g. Go, Rust",
			wantHelp:        "Choose any of: Go, Rust, Zig (comma-separated)",
		},
		{
			name:            "boolean",
			field:           Field{Type: FieldBoolean},
			wantPlaceholder: "yes or no",
			wantHelp:        "Answer yes or no",
		},
		{
			name:            "number without bounds",
			field:           Field{Type: FieldNumber},
			wantPlaceholder: "0",
			wantHelp:        "Enter a number",
		},
		{
			name: "number with both bounds",
			field: Field{Type: FieldNumber, ValidationRules: []ValidationRule{
				{Type: RuleGreaterThan, Value: 1},
				{Type: RuleLessThan, Value: 10},
			}},
			wantPlaceholder: "0",
			wantHelp:        "Enter a number between 1 and 10",
		},
		{
			name: "number with lower bound only",
			field: Field{Type: FieldNumber, ValidationRules: []ValidationRule{
				{Type: RuleGreaterThan, Value: 18},
			}},
			wantPlaceholder: "0",
			wantHelp:        "Enter a number greater than 18",
		},
		{
			name:            "email",
			field:           Field{Type: FieldEmail},
			wantPlaceholder: "name@example.com",
			wantHelp:        "Enter your email address",
		},
		{
			name:            "url",
			field:           Field{Type: FieldURL},
			wantPlaceholder: "https://example.com",
			wantHelp:        "Enter a URL",
		},
		{
			name:            "text falls back to the label",
			field:           Field{Type: FieldText, Label: "Company Name"},
			wantPlaceholder: "Company Name",
			wantHelp:        "Enter company name",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToTextInput(tc.field)
			if got.Placeholder != tc.wantPlaceholder {
				t.Errorf("Placeholder = %q, want %q", got.Placeholder, tc.wantPlaceholder)
			}
			if got.HelpText != tc.wantHelp {
				t.Errorf("HelpText = %q, want %q", got.HelpText, tc.wantHelp)
			}
		})
	}
}

func TestParseTextInput(t *testing.T) {
	testCases := []struct {
		name  string
		field Field
		raw   string
		want  any
	}{
		{"boolean yes", Field{Type: FieldBoolean}, "Yes", true},
		{"boolean false", Field{Type: FieldBoolean}, "false", false},
		{"boolean ambiguous passes through", Field{Type: FieldBoolean}, "maybe", "maybe"},
		{"number", Field{Type: FieldNumber}, " 42.5 ", 42.5},
		{"number unparseable passes through", Field{Type: FieldNumber}, "lots", "lots"},
		{"multiselect splits and trims", Field{Type: FieldMultiselect}, "Go, Rust ,Zig", []string{"Go", "Rust", "Zig"}},
		{"multiselect single token collapses", Field{Type: FieldMultiselect}, "Go", "Go"},
		{"multiselect empty passes through", Field{Type: FieldMultiselect}, "", ""},
		{"text unchanged", Field{Type: FieldText}, " hi ", " hi "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTextInput(tc.field, tc.raw)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseTextInput(%q) = %#v, want %#v", tc.raw, got, tc.want)
			}
		})
	}
}

// A parsed multiselect answer must satisfy list conditions on the same
// values the user typed.
func TestParseTextInputFeedsListConditions(t *testing.T) {
	field := Field{Key: "langs", Type: FieldMultiselect, Step: 1}
	parsed := ParseTextInput(field, "go, rust")

	responses := Responses{"langs": parsed}
	matched := evalCondition(t, responses, Condition{
		FieldKey: "langs",
		Operator: OpArrayLengthEquals,
		Value:    2,
	})
	if !matched {
		t.Error("parsed multiselect should have length 2")
	}

	matched = evalCondition(t, responses, Condition{
		FieldKey: "langs",
		Operator: OpArrayContains,
		Value:    "rust",
	})
	if !matched {
		t.Error("parsed multiselect should contain rust")
	}
}
