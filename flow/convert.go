package flow

import (
	"fmt"
	"strings"
)

// Every rich field type is collected through a single free-text input (the
// bot surface only has text modals), so the converter synthesizes a human
// prompt on the way out and coerces the typed answer back on the way in.
// This is the one conversion path used before both validation and condition
// evaluation; operators never need platform-specific type knowledge.

// TextInput is the flattened free-text representation of a field.
type TextInput struct {
	Placeholder string `json:"placeholder"`
	HelpText    string `json:"help_text"`
}

// ToTextInput synthesizes the placeholder and help text for a field.
func ToTextInput(field Field) TextInput {
	switch field.Type {
	case FieldSelect:
		placeholder := ""
		if len(field.Options) > 0 {
			placeholder = fmt.Sprintf("e.g. %s", field.Options[0])
		}
		return TextInput{
			Placeholder: placeholder,
			HelpText:    fmt.Sprintf("Choose one of: %s", strings.Join(field.Options, ", ")),
		}

	case FieldMultiselect:
		placeholder := ""
		if len(field.Options) > 1 {
			placeholder = fmt.Sprintf("e.g. %s, %s", field.Options[0], field.Options[1])
		} else if len(field.Options) == 1 {
			placeholder = fmt.Sprintf("e.g. %s", field.Options[0])
		}
		return TextInput{
			Placeholder: placeholder,
			HelpText:    fmt.Sprintf("Choose any of: %s (comma-separated)", strings.Join(field.Options, ", ")),
		}

	case FieldBoolean:
		return TextInput{
			Placeholder: "yes or no",
			HelpText:    "Answer yes or no",
		}

	case FieldNumber:
		return TextInput{
			Placeholder: "0",
			HelpText:    numberHelp(field.ValidationRules),
		}

	case FieldEmail:
		return TextInput{
			Placeholder: "name@example.com",
			HelpText:    "Enter your email address",
		}

	case FieldURL:
		return TextInput{
			Placeholder: "https://example.com",
			HelpText:    "Enter a URL",
		}

	default:
		return TextInput{
			Placeholder: field.Label,
			HelpText:    fmt.Sprintf("Enter %s", strings.ToLower(field.Label)),
		}
	}
}

// numberHelp derives range guidance from the field's numeric rules.
func numberHelp(rules []ValidationRule) string {
	var lower, upper string
	for _, rule := range rules {
		switch rule.Type {
		case RuleGreaterThan:
			lower = CoerceString(rule.Value)
		case RuleLessThan:
			upper = CoerceString(rule.Value)
		}
	}
	switch {
	case lower != "" && upper != "":
		return fmt.Sprintf("Enter a number between %s and %s", lower, upper)
	case lower != "":
		return fmt.Sprintf("Enter a number greater than %s", lower)
	case upper != "":
		return fmt.Sprintf("Enter a number less than %s", upper)
	default:
		return "Enter a number"
	}
}

// ParseTextInput coerces a raw free-text answer into the field's semantic
// type. Ambiguous input is preserved as the original string, not rejected,
// so validation can produce the user-facing message.
//
//   - boolean: yes/true and no/false (case-insensitive), else pass through
//   - number: parsed as float64, original string on failure
//   - multiselect: comma-split with trimming; a single token collapses to
//     a plain string
//   - everything else: the raw string unchanged
func ParseTextInput(field Field, raw string) any {
	switch field.Type {
	case FieldBoolean:
		if b, ok := CoerceBool(raw); ok {
			return b
		}
		return raw

	case FieldNumber:
		if n, ok := CoerceNumber(raw); ok {
			return n
		}
		return raw

	case FieldMultiselect:
		parts := CoerceList(raw)
		if len(parts) == 1 {
			return parts[0]
		}
		if parts == nil {
			return raw
		}
		return parts

	default:
		return raw
	}
}
