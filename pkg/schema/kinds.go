package schema

import (
	"fmt"
	"strings"
)

// Kind identifies a field type. The set is closed: renderers, coercion and
// validation dispatch on these values and loaders reject anything else.
type Kind string

const (
	KindInput       Kind = "input"
	KindNumber      Kind = "number"
	KindEmail       Kind = "email"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
	KindCheckbox    Kind = "checkbox"
	KindRadioGroup  Kind = "radiogroup"
	KindDate        Kind = "date"
	KindDateRange   Kind = "dateRange"
	KindDateTime    Kind = "dayTimePicker"
	KindTime        Kind = "time"
	KindFile        Kind = "file"
	KindMultiFile   Kind = "multifile"
	KindTextarea    Kind = "textarea"
	KindHTML        Kind = "litertext"
	KindHidden      Kind = "hidden"
	KindHeader      Kind = "header"
	KindAlert       Kind = "alert"
	KindLineBreak   Kind = "linebreak"
)

var allKinds = []Kind{
	KindInput,
	KindNumber,
	KindEmail,
	KindSelect,
	KindMultiSelect,
	KindCheckbox,
	KindRadioGroup,
	KindDate,
	KindDateRange,
	KindDateTime,
	KindTime,
	KindFile,
	KindMultiFile,
	KindTextarea,
	KindHTML,
	KindHidden,
	KindHeader,
	KindAlert,
	KindLineBreak,
}

var kindAliases = map[string]Kind{
	"text":          KindInput,
	"string":        KindInput,
	"password":      KindInput,
	"integer":       KindNumber,
	"radio":         KindRadioGroup,
	"radio-group":   KindRadioGroup,
	"multi-select":  KindMultiSelect,
	"date-range":    KindDateRange,
	"daterange":     KindDateRange,
	"datetime":      KindDateTime,
	"date-time":     KindDateTime,
	"multi-file":    KindMultiFile,
	"html":          KindHTML,
	"static":        KindHTML,
	"line-break":    KindLineBreak,
	"daytimepicker": KindDateTime,
}

// Kinds returns every supported kind in declaration order.
func Kinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// ParseKind resolves a raw type name, accepting a few legacy aliases. An empty
// name resolves to KindInput.
func ParseKind(raw string) (Kind, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return KindInput, nil
	}
	for _, kind := range allKinds {
		if string(kind) == trimmed || strings.EqualFold(string(kind), trimmed) {
			return kind, nil
		}
	}
	if kind, ok := kindAliases[strings.ToLower(trimmed)]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("schema: unknown field type %q", raw)
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	for _, kind := range allKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Decorative kinds never carry a value.
func (k Kind) Decorative() bool {
	switch k {
	case KindHeader, KindAlert, KindLineBreak, KindHTML:
		return true
	default:
		return false
	}
}

// Multi reports whether values of this kind are collections of strings.
func (k Kind) Multi() bool {
	return k == KindMultiSelect || k == KindMultiFile
}

// HasOptions reports whether the kind renders a choice list.
func (k Kind) HasOptions() bool {
	switch k {
	case KindSelect, KindMultiSelect, KindRadioGroup:
		return true
	default:
		return false
	}
}

// EmptyValue is the value a field of this kind is reset to.
func (k Kind) EmptyValue() any {
	switch k {
	case KindMultiSelect:
		return []string{}
	case KindMultiFile:
		return []any{}
	default:
		return ""
	}
}
