package flow

import (
	"fmt"
	"regexp"
	"strings"
)

// Fixed-form patterns for email/url rules. Deliberately loose: they catch
// obviously malformed input, the backing API does the authoritative check.
var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	urlPattern   = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
)

// Validate applies an ordered rule list to one answer. Rules run in
// authored order and the first failure short-circuits, returning that
// rule's message (or a generated default).
//
// A rule whose own definition is broken (unknown type, uncompilable regex)
// is skipped rather than failing the value: a bad authored rule must not
// lock a user out of the flow.
func Validate(value any, rules []ValidationRule) ValidationResult {
	for _, rule := range rules {
		if ok, msg := checkRule(value, rule); !ok {
			return ValidationResult{Valid: false, Message: msg}
		}
	}
	return ValidationResult{Valid: true}
}

func checkRule(value any, rule ValidationRule) (bool, string) {
	s := CoerceString(value)
	trimmed := strings.TrimSpace(s)

	fail := func(defaultMsg string) (bool, string) {
		if rule.Message != "" {
			return false, rule.Message
		}
		return false, defaultMsg
	}

	switch rule.Type {
	case RuleRequired:
		if trimmed == "" {
			return fail("This field is required")
		}

	case RuleMin:
		n, ok := CoerceNumber(rule.Value)
		if !ok {
			return true, ""
		}
		if float64(len(trimmed)) < n {
			return fail(fmt.Sprintf("Must be at least %d characters", int(n)))
		}

	case RuleMax:
		n, ok := CoerceNumber(rule.Value)
		if !ok {
			return true, ""
		}
		if float64(len(trimmed)) > n {
			return fail(fmt.Sprintf("Must be at most %d characters", int(n)))
		}

	case RuleEmail:
		if !emailPattern.MatchString(trimmed) {
			return fail("Must be a valid email address")
		}

	case RuleURL:
		if !urlPattern.MatchString(trimmed) {
			return fail("Must be a valid URL")
		}

	case RuleNumeric:
		if _, ok := CoerceNumber(value); !ok {
			return fail("Must be a number")
		}

	case RuleGreaterThan:
		left, okL := CoerceNumber(value)
		right, okR := CoerceNumber(rule.Value)
		// a non-numeric value fails the comparison, it is not a type error
		if !okR {
			return true, ""
		}
		if !okL || left <= right {
			return fail(fmt.Sprintf("Must be greater than %v", rule.Value))
		}

	case RuleLessThan:
		left, okL := CoerceNumber(value)
		right, okR := CoerceNumber(rule.Value)
		if !okR {
			return true, ""
		}
		if !okL || left >= right {
			return fail(fmt.Sprintf("Must be less than %v", rule.Value))
		}

	case RuleContains:
		if !foldContains(s, CoerceString(rule.Value), rule.CaseSensitive) {
			return fail(fmt.Sprintf("Must contain %q", CoerceString(rule.Value)))
		}

	case RuleNotContains:
		if foldContains(s, CoerceString(rule.Value), rule.CaseSensitive) {
			return fail(fmt.Sprintf("Must not contain %q", CoerceString(rule.Value)))
		}

	case RuleEquals:
		if !foldEquals(s, CoerceString(rule.Value), rule.CaseSensitive) {
			return fail(fmt.Sprintf("Must equal %q", CoerceString(rule.Value)))
		}

	case RuleNotEquals:
		if foldEquals(s, CoerceString(rule.Value), rule.CaseSensitive) {
			return fail(fmt.Sprintf("Must not equal %q", CoerceString(rule.Value)))
		}

	case RuleRegex:
		pattern := CoerceString(rule.Value)
		if !rule.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return true, ""
		}
		if !re.MatchString(s) {
			return fail("Invalid format")
		}

	case RuleEmpty:
		if trimmed != "" {
			return fail("Must be empty")
		}

	case RuleNotEmpty:
		if trimmed == "" {
			return fail("Must not be empty")
		}

	default:
		// unknown rule type, skip
	}

	return true, ""
}

// ValidateField validates an answer against a field definition: the
// field-level required flag (or its override) first, then the authored
// rule list.
func ValidateField(field Field, value any, requiredOverride bool) ValidationResult {
	if field.Required || requiredOverride {
		if isBlank(value) {
			return ValidationResult{Valid: false, Message: "This field is required"}
		}
	}
	return Validate(value, field.ValidationRules)
}
