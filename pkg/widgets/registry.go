// Package widgets picks how grid cells are presented. A column resolves to a
// widget through its declared type or registered matchers, and the widget
// formats each cell value into text, a tone hint or sanitised markup.
package widgets

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetText    = "text"
	WidgetHTML    = "html"
	WidgetStatus  = "status"
	WidgetBoolean = "boolean"
	WidgetDate    = "date"
	WidgetLink    = "link"
	WidgetList    = "list"
)

// Matcher decides whether a widget should handle the supplied column. value is
// a sample cell, possibly nil.
type Matcher func(column schema.Column, value any) bool

// Cell is a formatted grid cell.
type Cell struct {
	Widget string `json:"widget"`
	Text   string `json:"text"`
	// HTML holds sanitised markup for the html and link widgets.
	HTML string `json:"html,omitempty"`
	Tone string `json:"tone,omitempty"`
}

// Class is the CSS class list for the cell: the widget name plus its tone.
func (c Cell) Class() string {
	return CellClass(c.Widget, c.Tone)
}

// CellClass builds the class list for a widget and an optional tone.
func CellClass(widget, tone string) string {
	class := "cell-" + widget
	if tone != "" {
		class += " tone-" + tone
	}
	return class
}

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects cell widgets for columns based on explicit column types or
// registered matchers. Higher priority wins; ties fall back to registration
// order. Unmatched columns use WidgetText.
type Registry struct {
	mu     sync.RWMutex
	rules  []rule
	policy *bluemonday.Policy
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{policy: bluemonday.UGCPolicy()}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority. Higher
// priority values take precedence.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a column. A column type naming a
// registered widget is honoured before matcher evaluation.
func (r *Registry) Resolve(column schema.Column, sample any) string {
	if r == nil {
		return WidgetText
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()

	if explicit := strings.ToLower(strings.TrimSpace(column.Type)); explicit != "" {
		for _, entry := range rules {
			if entry.name == explicit {
				return explicit
			}
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(column, sample) {
			return entry.name
		}
	}
	return WidgetText
}

// Format renders value for column.
func (r *Registry) Format(column schema.Column, value any) Cell {
	widget := r.Resolve(column, value)
	cell := Cell{Widget: widget, Text: Text(value)}
	switch widget {
	case WidgetHTML:
		cell.HTML = r.sanitize(cell.Text)
		cell.Text = bluemonday.StrictPolicy().Sanitize(cell.Text)
	case WidgetStatus:
		cell.Tone = filter.Tone(filter.Rule{Title: column.Title, Value: cell.Text})
		if cell.Tone == "gray" {
			cell.Tone = ""
		}
	case WidgetBoolean:
		if truthy(value) {
			cell.Text = "Yes"
		} else {
			cell.Text = "No"
		}
	case WidgetDate:
		cell.Text = schema.NormalizeDate(cell.Text)
	case WidgetLink:
		if cell.Text != "" {
			cell.HTML = r.sanitize(fmt.Sprintf(`<a href="%s">%s</a>`, cell.Text, cell.Text))
		}
	case WidgetList:
		cell.Text = strings.Join(listText(value), ", ")
	}
	return cell
}

// Row formats every column of record, keyed by column key.
func (r *Registry) Row(columns []schema.Column, record map[string]any) map[string]Cell {
	out := make(map[string]Cell, len(columns))
	for _, column := range columns {
		out[column.Key()] = r.Format(column, record[column.Field])
	}
	return out
}

func (r *Registry) sanitize(markup string) string {
	if r == nil || r.policy == nil {
		return bluemonday.UGCPolicy().Sanitize(markup)
	}
	return r.policy.Sanitize(markup)
}

// Text renders a scalar cell value as plain text.
func Text(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	case []any, []string:
		return strings.Join(listText(value), ", ")
	default:
		return fmt.Sprint(typed)
	}
}

func listText(value any) []string {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, Text(item))
		}
		return out
	default:
		if text := Text(value); text != "" {
			return []string{text}
		}
		return nil
	}
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	case float64:
		return typed != 0
	default:
		return false
	}
}

func titled(column schema.Column, words ...string) bool {
	title := strings.ToLower(column.Title + " " + column.Field)
	for _, word := range words {
		if strings.Contains(title, word) {
			return true
		}
	}
	return false
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetHTML, 90, func(column schema.Column, _ any) bool {
		kind, err := schema.ParseKind(column.Type)
		return err == nil && column.Type != "" && kind == schema.KindHTML
	})

	r.Register(WidgetBoolean, 80, func(column schema.Column, value any) bool {
		if strings.EqualFold(column.Type, "bool") || strings.EqualFold(column.Type, "checkbox") {
			return true
		}
		_, ok := value.(bool)
		return ok
	})

	r.Register(WidgetStatus, 70, func(column schema.Column, _ any) bool {
		return titled(column, "status", "state", "result")
	})

	r.Register(WidgetList, 60, func(_ schema.Column, value any) bool {
		switch value.(type) {
		case []any, []string:
			return true
		}
		return false
	})

	r.Register(WidgetDate, 50, func(column schema.Column, value any) bool {
		if strings.EqualFold(column.Type, "datetime") || strings.EqualFold(column.Type, "dayTimePicker") {
			return true
		}
		if !titled(column, "date", "_at", "created", "updated") {
			return false
		}
		text, ok := value.(string)
		if !ok {
			return value == nil
		}
		_, parsed := schema.ParseDate(text)
		return parsed
	})

	r.Register(WidgetLink, 40, func(column schema.Column, value any) bool {
		if strings.EqualFold(column.Type, "url") {
			return true
		}
		text, _ := value.(string)
		return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://")
	})
}
