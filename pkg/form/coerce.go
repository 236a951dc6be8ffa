package form

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// coerce converts raw input into the stored shape for the field kind.
func coerce(field schema.Field, raw any) any {
	switch field.Type {
	case schema.KindMultiSelect:
		return stringList(raw)
	case schema.KindDateRange:
		return dateSelection(raw)
	case schema.KindDateTime:
		return dateTime(raw)
	default:
		return raw
	}
}

func stringList(raw any) []string {
	switch typed := raw.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if typed == "" {
			return []string{}
		}
		return []string{typed}
	default:
		return []string{fmt.Sprint(typed)}
	}
}

// dateSelection accepts a DateRange, a DateSelection, their slices or
// decoded JSON objects with from/to or startDate/endDate keys, and returns
// the single-element collection tagged with schema.SelectionKey.
func dateSelection(raw any) []schema.DateSelection {
	var from, to string
	switch typed := raw.(type) {
	case schema.DateRange:
		from, to = typed.From, typed.To
	case []schema.DateRange:
		if len(typed) > 0 {
			from, to = typed[0].From, typed[0].To
		}
	case schema.DateSelection:
		from, to = typed.StartDate, typed.EndDate
	case []schema.DateSelection:
		if len(typed) > 0 {
			from, to = typed[0].StartDate, typed[0].EndDate
		}
	case map[string]any:
		from, to = rangeKeys(typed)
	case []any:
		if len(typed) > 0 {
			if m, ok := typed[0].(map[string]any); ok {
				from, to = rangeKeys(m)
			}
		}
	}
	return []schema.DateSelection{{
		StartDate: schema.NormalizeDate(from),
		EndDate:   schema.NormalizeDate(to),
		Key:       schema.SelectionKey,
	}}
}

func rangeKeys(m map[string]any) (string, string) {
	pick := func(keys ...string) string {
		for _, key := range keys {
			if s, ok := m[key].(string); ok {
				return s
			}
		}
		return ""
	}
	return pick("from", "startDate"), pick("to", "endDate")
}

func dateTime(raw any) string {
	switch typed := raw.(type) {
	case nil:
		return ""
	case time.Time:
		if typed.IsZero() {
			return ""
		}
		return typed.Format(schema.DateTimeLayout)
	case string:
		if strings.TrimSpace(typed) == "" {
			return ""
		}
		if t, ok := schema.ParseDate(typed); ok {
			return t.Format(schema.DateTimeLayout)
		}
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func charCount(value any) int {
	s, ok := value.(string)
	if !ok {
		return 0
	}
	return len([]rune(s))
}
