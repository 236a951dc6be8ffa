package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/visibility"
	"github.com/goliatone/go-formgrid/pkg/visibility/expr"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator evaluates field rules. It holds no state besides the predicate
// rules used for the disabled check, so a single instance may be shared.
type Validator struct {
	rules visibility.Rules
}

// Option customises a Validator.
type Option func(*Validator)

// WithRules replaces the predicate rules used to decide whether a field is
// disabled.
func WithRules(rules visibility.Rules) Option {
	return func(v *Validator) {
		v.rules = rules
	}
}

// New returns a Validator backed by the expression evaluator.
func New(opts ...Option) *Validator {
	v := &Validator{rules: visibility.Rules{Evaluator: expr.New()}}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

var defaultValidator = New()

// Validate checks value against the default validator.
func Validate(field schema.Field, value any, all schema.Values) string {
	return defaultValidator.Validate(field, value, all)
}

// Validate returns the first failing message for field, or "" when value
// passes. Checks run in order: disabled fields are skipped, then required,
// then the field's custom validator, then kind-specific checks which only
// apply to non-empty values.
func (v *Validator) Validate(field schema.Field, value any, all schema.Values) string {
	if !field.IsData() {
		return ""
	}
	if v.rules.Disabled(field, all) {
		return ""
	}

	label := field.DisplayLabel()
	if field.Required {
		if isList(value) && listLen(value) == 0 {
			return "Please select at least one " + strings.ToLower(label)
		}
		if IsEmpty(value) {
			return label + " is required"
		}
	}

	if field.Validate != nil {
		if msg := field.Validate(value, all); msg != "" {
			return msg
		}
	}

	if IsEmpty(value) {
		return ""
	}
	return checkKind(field, label, value)
}

// Form validates every data field of form and returns the failing messages
// keyed by field name. Hidden fields are skipped.
func (v *Validator) Form(form schema.Form, values schema.Values) map[string]string {
	errs := make(map[string]string)
	for _, field := range form.DataFields() {
		if !v.rules.Visible(field, values) {
			continue
		}
		if msg := v.Validate(field, values[field.Name], values); msg != "" {
			errs[field.Name] = msg
		}
	}
	return errs
}

func checkKind(field schema.Field, label string, value any) string {
	switch field.Type {
	case schema.KindEmail:
		if !emailPattern.MatchString(fmt.Sprint(value)) {
			return "Please enter a valid email address"
		}
	case schema.KindNumber:
		number, ok := toNumber(value)
		if !ok {
			return label + " must be a valid number"
		}
		if field.Min != nil && number < *field.Min {
			return fmt.Sprintf("%s must be at least %s", label, formatNumber(*field.Min))
		}
		if field.Max != nil && number > *field.Max {
			return fmt.Sprintf("%s must be no more than %s", label, formatNumber(*field.Max))
		}
	case schema.KindDate, schema.KindDateTime:
		if _, ok := schema.ParseDate(fmt.Sprint(value)); !ok {
			return label + " must be a valid date"
		}
	case schema.KindDateRange:
		for _, sel := range dateSelections(value) {
			for _, raw := range []string{sel.StartDate, sel.EndDate} {
				if raw == "" {
					continue
				}
				if _, ok := schema.ParseDate(raw); !ok {
					return label + " must be a valid date"
				}
			}
		}
	}

	if field.MaxLength > 0 {
		if s, ok := value.(string); ok && utf8.RuneCountInString(s) > field.MaxLength {
			return fmt.Sprintf("%s must not exceed %d characters", label, field.MaxLength)
		}
	}
	return ""
}

// IsEmpty reports whether value counts as absent: nil, "", false, zero
// numbers, empty collections and date ranges without a start date.
func IsEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case bool:
		return !typed
	case int:
		return typed == 0
	case int64:
		return typed == 0
	case float64:
		return typed == 0
	case []schema.DateSelection:
		for _, sel := range typed {
			if sel.StartDate != "" || sel.EndDate != "" {
				return false
			}
		}
		return true
	}
	if isList(value) {
		return listLen(value) == 0
	}
	return false
}

func isList(value any) bool {
	switch value.(type) {
	case []string, []any:
		return true
	case []schema.DateSelection:
		return false
	}
	if value == nil {
		return false
	}
	kind := reflect.TypeOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func listLen(value any) int {
	switch typed := value.(type) {
	case []string:
		return len(typed)
	case []any:
		return len(typed)
	}
	return reflect.ValueOf(value).Len()
}

func dateSelections(value any) []schema.DateSelection {
	switch typed := value.(type) {
	case []schema.DateSelection:
		return typed
	case schema.DateSelection:
		return []schema.DateSelection{typed}
	case []any:
		out := make([]schema.DateSelection, 0, len(typed))
		for _, item := range typed {
			if m, ok := item.(map[string]any); ok {
				start, _ := m["startDate"].(string)
				end, _ := m["endDate"].(string)
				out = append(out, schema.DateSelection{StartDate: start, EndDate: end})
			}
		}
		return out
	}
	return nil
}

func toNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f, err == nil
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
