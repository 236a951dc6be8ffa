package filter

import (
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Chip is the display form of one active rule.
type Chip struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Tone     string `json:"tone"`
}

// Label is the chip body: "<operator> <value>" for text rules and the bare
// value otherwise.
func (c Chip) Label() string {
	if c.Operator != "" && c.Operator != OpIn && c.Operator != OpBetween {
		return c.Operator + " " + c.Value
	}
	return c.Value
}

// Chips lists the active rules of set in key order, skipping rules whose
// value renders empty.
func Chips(set Set) []Chip {
	chips := make([]Chip, 0, len(set))
	for _, key := range set.Keys() {
		rule := set[key]
		value := ChipValue(rule)
		if value == "" {
			continue
		}
		title := rule.Title
		if title == "" {
			title = schema.Humanize(key)
		}
		chips = append(chips, Chip{
			Key:      key,
			Title:    title,
			Operator: rule.Operator,
			Value:    value,
			Tone:     Tone(rule),
		})
	}
	return chips
}

// ChipValue formats the value of rule for display. Checkbox selections are
// mapped to their source labels when the rule carries a source.
func ChipValue(rule Rule) string {
	switch {
	case rule.FieldType.IsGroup():
		values := rule.Values()
		labels := labelIndex(rule.Source)
		for idx, value := range values {
			if label, ok := labels[value]; ok && label != "" {
				values[idx] = label
			}
		}
		return strings.Join(values, ", ")
	case rule.FieldType.IsDateRange():
		rng := rule.Range()
		if rng.From == "" || rng.To == "" {
			return ""
		}
		return rng.From + " – " + rng.To
	default:
		return rule.Text()
	}
}

func labelIndex(source any) map[string]string {
	options := schema.OptionsFrom(source)
	if len(options) == 0 {
		return nil
	}
	out := make(map[string]string, len(options))
	for _, opt := range options {
		out[opt.Value] = opt.Label
	}
	return out
}

// Tone picks a colour hint for a chip. Status-like titles map their values to
// positive, pending and negative tones; other rules are coloured by operator.
func Tone(rule Rule) string {
	op := strings.ToLower(rule.Operator)
	var value string
	if rule.FieldType.IsDateRange() {
		rng := rule.Range()
		value = strings.ToLower(rng.From + " " + rng.To)
	} else if rule.FieldType.IsGroup() {
		value = strings.ToLower(strings.Join(rule.Values(), " "))
	} else {
		value = strings.ToLower(rule.Text())
	}

	title := strings.ToLower(rule.Title)
	if strings.Contains(title, "status") || strings.Contains(title, "state") || strings.Contains(title, "result") {
		switch {
		case containsAny(value, "approved", "active", "success"):
			return "jade"
		case containsAny(value, "pending", "progress", "review"):
			return "amber"
		case containsAny(value, "rejected", "denied", "error"):
			return "ruby"
		}
	}

	switch {
	case strings.Contains(op, "between"):
		return "orange"
	case strings.Contains(op, "contains") || strings.Contains(op, "in"):
		return "indigo"
	case strings.Contains(op, "equals") || op == "=":
		return "jade"
	case strings.Contains(op, "not") || op == "!=":
		return "ruby"
	case strings.Contains(op, ">") || strings.Contains(op, "<"):
		return "orange"
	}
	return "gray"
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
