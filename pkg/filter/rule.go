// Package filter holds the per-grid filter state engine: the active filter
// set, the editor scratch state it is committed from, and the injectable store
// that shares filter sets and field catalogues between grid instances.
package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Operators understood by the grid endpoints.
const (
	OpContains   = "contains"
	OpEquals     = "equals"
	OpStartsWith = "starts with"
	OpIn         = "in"
	OpBetween    = "between"
)

// TextOperators lists the operators offered by the free-text editor. The
// first entry is the default.
var TextOperators = []string{OpContains, OpEquals, OpStartsWith}

// ValidTextOperator reports whether op is one of TextOperators.
func ValidTextOperator(op string) bool {
	for _, candidate := range TextOperators {
		if candidate == op {
			return true
		}
	}
	return false
}

// Rule is one committed filter predicate. Value holds a string for text
// rules, a []string for checkbox groups and a schema.DateRange for date
// ranges.
type Rule struct {
	FieldType schema.FilterKind `json:"field_type"`
	Title     string            `json:"title"`
	DBField   string            `json:"DBField,omitempty"`
	Source    any               `json:"source,omitempty"`
	Operator  string            `json:"operator"`
	Value     any               `json:"value"`
}

// UnmarshalJSON restores typed values and converts legacy string-encoded date
// ranges into schema.DateRange.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw struct {
		FieldType schema.FilterKind `json:"field_type"`
		Title     string            `json:"title"`
		DBField   string            `json:"DBField"`
		Source    any               `json:"source"`
		Operator  string            `json:"operator"`
		Value     any               `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("filter: decode rule: %w", err)
	}
	*r = Rule{
		FieldType: raw.FieldType,
		Title:     raw.Title,
		DBField:   raw.DBField,
		Source:    raw.Source,
		Operator:  raw.Operator,
		Value:     raw.Value,
	}
	r.Value = r.normalizedValue()
	return nil
}

func (r Rule) normalizedValue() any {
	switch {
	case r.FieldType.IsGroup():
		return r.Values()
	case r.FieldType.IsDateRange():
		return r.Range()
	default:
		return r.Text()
	}
}

// Text returns the value of a text rule.
func (r Rule) Text() string {
	switch typed := r.Value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return stringify(typed)
	}
}

// Values returns the selected keys of a checkbox-group rule. A scalar value is
// treated as a single selection.
func (r Rule) Values() []string {
	switch typed := r.Value.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, stringify(item))
		}
		return out
	default:
		return []string{stringify(typed)}
	}
}

// Range returns the bounds of a date-range rule, applying the legacy string
// shim when needed.
func (r Rule) Range() schema.DateRange {
	switch typed := r.Value.(type) {
	case schema.DateRange:
		return typed
	case *schema.DateRange:
		if typed != nil {
			return *typed
		}
	case map[string]any:
		from, _ := typed["from"].(string)
		to, _ := typed["to"].(string)
		return schema.DateRange{From: from, To: to}
	case map[string]string:
		return schema.DateRange{From: typed["from"], To: typed["to"]}
	case string:
		rng, _ := ParseLegacyRange(typed)
		return rng
	}
	return schema.DateRange{}
}

// Set is the active filter set of one grid keyed by field key. A cleared rule
// is absent, never stored with an empty value.
type Set map[string]Rule

// Clone returns a deep enough copy for callers to mutate freely.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for key, rule := range s {
		if values, ok := rule.Value.([]string); ok {
			rule.Value = append([]string{}, values...)
		}
		out[key] = rule
	}
	return out
}

// Keys returns the field keys in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64, int, int64, bool:
		return strings.TrimSpace(fmt.Sprint(typed))
	default:
		return fmt.Sprint(typed)
	}
}
