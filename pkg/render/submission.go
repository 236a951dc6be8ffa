package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// HiddenField is a hidden input emitted alongside the visible schema.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// CSRFToken carries a CSRF token under the input name the backend expects.
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// HiddenValues collects hidden-kind schema values so they travel with the
// form even though they have no visible control.
func HiddenValues(view FormView) []HiddenField {
	var out []HiddenField
	for _, state := range view.Fields {
		if state.Field.IsData() && state.Field.Type == schema.KindHidden {
			out = append(out, Hidden(state.Field.Name, displayValue(state.Value)))
		}
	}
	return out
}

// SortedHiddenFields merges groups of hidden fields, later groups winning on
// name collisions, and sorts them by name. Empty names are dropped.
func SortedHiddenFields(groups ...[]HiddenField) []HiddenField {
	merged := make(map[string]string)
	for _, group := range groups {
		for _, field := range group {
			if name := strings.TrimSpace(field.Name); name != "" {
				merged[name] = field.Value
			}
		}
	}
	if len(merged) == 0 {
		return nil
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]HiddenField, 0, len(names))
	for _, name := range names {
		out = append(out, HiddenField{Name: name, Value: merged[name]})
	}
	return out
}

func displayValue(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
