package schema

import (
	"strings"
	"time"
)

const (
	// DateLayout is the canonical date encoding used in values and filters.
	DateLayout = "2006-01-02"
	// DateTimeLayout is the canonical encoding for dayTimePicker values.
	DateTimeLayout = "2006-01-02 15:04:05"
	// SelectionKey tags date-range selections.
	SelectionKey = "selection"
)

var dateLayouts = []string{
	DateLayout,
	DateTimeLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// ParseDate accepts the date encodings produced by pickers and servers.
func ParseDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateRange is a from/to pair of canonical dates.
type DateRange struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Empty reports whether neither bound is set.
func (r DateRange) Empty() bool {
	return strings.TrimSpace(r.From) == "" && strings.TrimSpace(r.To) == ""
}

// DateSelection is the stored shape of a dateRange field value. The engine
// keeps a single-element collection tagged with SelectionKey.
type DateSelection struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Key       string `json:"key"`
}

// FormatDate renders t with DateLayout, returning "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// NormalizeDate re-encodes any accepted date string as DateLayout. Unparseable
// input is returned trimmed.
func NormalizeDate(raw string) string {
	if t, ok := ParseDate(raw); ok {
		return FormatDate(t)
	}
	return strings.TrimSpace(raw)
}
