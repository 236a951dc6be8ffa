package schema

import (
	"encoding/json"
	"strings"
)

// Column describes one grid column as declared by the server (headers) or by
// a grid document.
type Column struct {
	Title        string `json:"title" yaml:"title"`
	Field        string `json:"field" yaml:"field"`
	SortKey      string `json:"sortKey,omitempty" yaml:"sortKey,omitempty"`
	Display      *bool  `json:"display,omitempty" yaml:"display,omitempty"`
	IsPrimaryKey bool   `json:"isPrimaryKey,omitempty" yaml:"isPrimaryKey,omitempty"`
	Type         string `json:"type,omitempty" yaml:"type,omitempty"`
	Source       string `json:"source,omitempty" yaml:"source,omitempty"`
}

// UnmarshalJSON accepts the snake_case sort_key spelling used by older
// endpoints.
func (c *Column) UnmarshalJSON(data []byte) error {
	type plain Column
	var raw struct {
		plain
		SortKeySnake string `json:"sort_key"`
		Source       any    `json:"source"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Column(raw.plain)
	if c.SortKey == "" {
		c.SortKey = raw.SortKeySnake
	}
	if s, ok := raw.Source.(string); ok {
		c.Source = s
	}
	return nil
}

// Visible reports whether the column is displayed. An absent display flag
// means visible.
func (c Column) Visible() bool {
	return c.Display == nil || *c.Display
}

// Sortable reports whether the column declares a sort key.
func (c Column) Sortable() bool {
	return strings.TrimSpace(c.SortKey) != ""
}

// Key identifies the column for rendering.
func (c Column) Key() string {
	if c.Field != "" {
		return c.Field
	}
	if c.SortKey != "" {
		return c.SortKey
	}
	return c.Title
}

// PrimaryKeys returns the fields flagged as primary keys.
func PrimaryKeys(columns []Column) []string {
	var out []string
	for _, column := range columns {
		if column.IsPrimaryKey && column.Field != "" {
			out = append(out, column.Field)
		}
	}
	return out
}

// FilterKind selects the filter editor and commit rule for a field.
type FilterKind string

const (
	FilterText          FilterKind = "TextBox"
	FilterCheckboxGroup FilterKind = "CheckBoxGroup"
	FilterDateRange     FilterKind = "DateRange"
	// FilterRangePicker is the legacy spelling of FilterDateRange.
	FilterRangePicker FilterKind = "RangePickerField"
)

// IsText reports whether the kind uses the free-text editor.
func (k FilterKind) IsText() bool { return k == FilterText }

// IsGroup reports whether the kind uses the checkbox-group editor.
func (k FilterKind) IsGroup() bool { return k == FilterCheckboxGroup }

// IsDateRange reports whether the kind uses the date-range editor.
func (k FilterKind) IsDateRange() bool { return k == FilterDateRange || k == FilterRangePicker }

// FilterDefinition describes a filterable field advertised by a grid endpoint
// (one entry of its searchForm). Source carries checkbox choices as a list or
// an object map of key to label.
type FilterDefinition struct {
	Title     string     `json:"title" yaml:"title"`
	FieldType FilterKind `json:"field_type" yaml:"field_type"`
	DBField   string     `json:"DBField,omitempty" yaml:"DBField,omitempty"`
	Source    any        `json:"source,omitempty" yaml:"source,omitempty"`
}

// Choices returns the checkbox options declared by Source.
func (d FilterDefinition) Choices() []Option {
	return OptionsFrom(d.Source)
}

// Catalogue is the set of filterable fields keyed by field key.
type Catalogue map[string]FilterDefinition

// Clone returns a copy of the catalogue.
func (c Catalogue) Clone() Catalogue {
	if c == nil {
		return nil
	}
	out := make(Catalogue, len(c))
	for key, def := range c {
		out[key] = def
	}
	return out
}

// Grid is a grid document: where to fetch rows and how to present them.
type Grid struct {
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Title     string   `json:"title,omitempty" yaml:"title,omitempty"`
	Endpoint  string   `json:"endpoint" yaml:"endpoint"`
	PageSize  int      `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	Selection bool     `json:"selection,omitempty" yaml:"selection,omitempty"`
	Persist   *bool    `json:"persistFilters,omitempty" yaml:"persistFilters,omitempty"`
	Columns   []Column `json:"columns,omitempty" yaml:"columns,omitempty"`
	Empty     string   `json:"noRecordsMessage,omitempty" yaml:"noRecordsMessage,omitempty"`
}

// PersistFilters reports whether the grid shares the filter store. Absent
// means yes.
func (g Grid) PersistFilters() bool {
	return g.Persist == nil || *g.Persist
}
