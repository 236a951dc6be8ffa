package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Values is the form value map keyed by field name.
type Values map[string]any

// Clone returns a shallow copy with slices duplicated so callers cannot mutate
// engine state through the result. Empty slices stay empty, not nil.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		switch typed := value.(type) {
		case []string:
			if typed != nil {
				out[key] = append(make([]string, 0, len(typed)), typed...)
				continue
			}
			out[key] = typed
		case []any:
			if typed != nil {
				out[key] = append(make([]any, 0, len(typed)), typed...)
				continue
			}
			out[key] = typed
		case []DateSelection:
			if typed != nil {
				out[key] = append(make([]DateSelection, 0, len(typed)), typed...)
				continue
			}
			out[key] = typed
		default:
			out[key] = value
		}
	}
	return out
}

// Map exposes the values as a plain map for expression evaluation.
func (v Values) Map() map[string]any {
	return map[string]any(v)
}

// Predicate is a declarative boolean expression evaluated against the value
// map, e.g. `country == "US" && !optOut`. Documents may also supply a bare
// boolean which is stored as the literal "true" or "false".
type Predicate string

// Empty reports whether the predicate is unset.
func (p Predicate) Empty() bool {
	return strings.TrimSpace(string(p)) == ""
}

func (p *Predicate) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schema: predicate: %w", err)
	}
	return p.assign(raw)
}

func (p *Predicate) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("schema: predicate: %w", err)
	}
	return p.assign(raw)
}

func (p *Predicate) assign(raw any) error {
	switch typed := raw.(type) {
	case nil:
		*p = ""
	case bool:
		*p = Predicate(strconv.FormatBool(typed))
	case string:
		*p = Predicate(strings.TrimSpace(typed))
	default:
		return fmt.Errorf("schema: predicate must be a string or boolean, got %T", raw)
	}
	return nil
}

// Option is a single choice for select, radio and checkbox-group inputs.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value any `json:"value"`
		Label any `json:"label"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Value = scalarString(raw.Value)
	o.Label = scalarString(raw.Label)
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// OptionsFrom normalises an option source that may be a list of scalars, a
// list of {value,label} objects, or an object map of value to label. Object
// maps are ordered by key, numerically when every key is a number.
func OptionsFrom(source any) []Option {
	switch typed := source.(type) {
	case nil:
		return nil
	case []Option:
		return append([]Option(nil), typed...)
	case []string:
		out := make([]Option, 0, len(typed))
		for _, v := range typed {
			out = append(out, Option{Value: v, Label: v})
		}
		return out
	case []any:
		out := make([]Option, 0, len(typed))
		for _, item := range typed {
			if m, ok := item.(map[string]any); ok {
				value := scalarString(m["value"])
				label := scalarString(m["label"])
				if label == "" {
					label = value
				}
				out = append(out, Option{Value: value, Label: label})
				continue
			}
			v := scalarString(item)
			out = append(out, Option{Value: v, Label: v})
		}
		return out
	case map[string]string:
		generic := make(map[string]any, len(typed))
		for k, v := range typed {
			generic[k] = v
		}
		return OptionsFrom(generic)
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sortOptionKeys(keys)
		out := make([]Option, 0, len(keys))
		for _, key := range keys {
			out = append(out, Option{Value: key, Label: scalarString(typed[key])})
		}
		return out
	default:
		return nil
	}
}

func sortOptionKeys(keys []string) {
	numeric := true
	for _, key := range keys {
		if _, err := strconv.ParseFloat(key, 64); err != nil {
			numeric = false
			break
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseFloat(keys[i], 64)
			b, _ := strconv.ParseFloat(keys[j], 64)
			return a < b
		}
		return keys[i] < keys[j]
	})
}

func scalarString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

// Field describes one form input or decorative element.
//
// ShowIf and Disabled are declarative predicates. ShowIfFunc, DisabledFunc and
// Validate are programmatic alternatives for callers building schemas in Go;
// they must be pure functions of their arguments because the engine calls them
// at arbitrary points and may skip calls through its dependency graph.
type Field struct {
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Type        Kind      `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Help        string    `json:"help,omitempty" yaml:"help,omitempty"`
	Value       any       `json:"value,omitempty" yaml:"value,omitempty"`
	Min         *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64  `json:"max,omitempty" yaml:"max,omitempty"`
	MaxLength   int       `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Rows        int       `json:"rows,omitempty" yaml:"rows,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	OptionsURL  string    `json:"optionsUrl,omitempty" yaml:"optionsUrl,omitempty"`
	ShowIf      Predicate `json:"showIf,omitempty" yaml:"showIf,omitempty"`
	Disabled    Predicate `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	DependsOn   []string  `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Accept      string    `json:"accept,omitempty" yaml:"accept,omitempty"`
	MaxSize     int64     `json:"maxSize,omitempty" yaml:"maxSize,omitempty"`
	MaxFiles    int       `json:"maxFiles,omitempty" yaml:"maxFiles,omitempty"`
	Variant     string    `json:"variant,omitempty" yaml:"variant,omitempty"`
	Content     string    `json:"content,omitempty" yaml:"content,omitempty"`

	ShowIfFunc   func(Values) bool                  `json:"-" yaml:"-"`
	DisabledFunc func(Values) bool                  `json:"-" yaml:"-"`
	Validate     func(value any, all Values) string `json:"-" yaml:"-"`
}

// IsData reports whether the field contributes to the value map.
func (f Field) IsData() bool {
	return strings.TrimSpace(f.Name) != "" && !f.Type.Decorative()
}

// DisplayLabel returns the label, falling back to a humanised name.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return Humanize(f.Name)
}

// InitialValue resolves the starting value for the field: the caller default
// when present, the static value next, the kind's empty value otherwise.
func (f Field) InitialValue(defaults Values) any {
	if defaults != nil {
		if v, ok := defaults[f.Name]; ok && v != nil {
			return v
		}
	}
	if f.Value != nil {
		return f.Value
	}
	return f.Type.EmptyValue()
}

// HasStaticValue reports whether the field carries a non-empty static value.
func (f Field) HasStaticValue() bool {
	switch typed := f.Value.(type) {
	case nil:
		return false
	case string:
		return typed != ""
	case bool:
		return typed
	case []any:
		return len(typed) > 0
	case []string:
		return len(typed) > 0
	default:
		return true
	}
}

// Form is a complete form schema.
type Form struct {
	ID          string  `json:"id,omitempty" yaml:"id,omitempty"`
	Title       string  `json:"title,omitempty" yaml:"title,omitempty"`
	Action      string  `json:"action,omitempty" yaml:"action,omitempty"`
	SubmitLabel string  `json:"submitLabel,omitempty" yaml:"submitLabel,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

// Validate checks the closed kind set and name uniqueness.
func (f Form) Validate() error {
	seen := make(map[string]struct{}, len(f.Fields))
	for idx, field := range f.Fields {
		if !field.Type.Valid() {
			return fmt.Errorf("schema: field %d (%q): unknown type %q", idx, field.Name, field.Type)
		}
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		if _, exists := seen[name]; exists {
			return fmt.Errorf("schema: duplicate field name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Field looks up a data field by name.
func (f Form) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name && field.IsData() {
			return field, true
		}
	}
	return Field{}, false
}

// DataFields returns the fields that contribute to the value map.
func (f Form) DataFields() []Field {
	out := make([]Field, 0, len(f.Fields))
	for _, field := range f.Fields {
		if field.IsData() {
			out = append(out, field)
		}
	}
	return out
}

// HasStaticValues reports whether at least one field carries a non-empty
// static value.
func (f Form) HasStaticValues() bool {
	for _, field := range f.Fields {
		if field.IsData() && field.HasStaticValue() {
			return true
		}
	}
	return false
}

// Normalize resolves kind aliases in place and validates the result.
func (f *Form) Normalize() error {
	for idx := range f.Fields {
		kind, err := ParseKind(string(f.Fields[idx].Type))
		if err != nil {
			return fmt.Errorf("schema: field %q: %w", f.Fields[idx].Name, err)
		}
		f.Fields[idx].Type = kind
	}
	return f.Validate()
}
