// Package text renders forms and grids as aligned plain text for terminals
// and logs.
package text

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-formgrid/pkg/render"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgets"
)

// Name is the registry name of the renderer.
const Name = "text"

// Renderer implements render.Renderer with tab-aligned columns.
type Renderer struct {
	widgets *widgets.Registry
}

var _ render.Renderer = (*Renderer)(nil)

// New returns a text renderer. A nil registry uses the built-in widgets.
func New(reg *widgets.Registry) *Renderer {
	if reg == nil {
		reg = widgets.NewRegistry()
	}
	return &Renderer{widgets: reg}
}

func (r *Renderer) Name() string        { return Name }
func (r *Renderer) ContentType() string { return "text/plain; charset=utf-8" }

// RenderForm lists visible fields with their values and visible errors.
func (r *Renderer) RenderForm(_ context.Context, view render.FormView, opts render.Options) ([]byte, error) {
	view = render.Localize(view, opts)

	var buf bytes.Buffer
	if title := strings.TrimSpace(view.Form.Title); title != "" {
		fmt.Fprintf(&buf, "%s\n%s\n", title, strings.Repeat("=", len([]rune(title))))
	}
	for _, message := range view.FormErrors {
		fmt.Fprintf(&buf, "! %s\n", message)
	}

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, state := range view.Fields {
		if !state.Visible {
			continue
		}
		field := state.Field
		switch field.Type {
		case schema.KindHeader:
			tw.Flush()
			fmt.Fprintf(&buf, "\n%s\n", strings.ToUpper(firstNonEmpty(field.Content, field.Label)))
			continue
		case schema.KindAlert:
			fmt.Fprintf(tw, "[%s]\t%s\n", firstNonEmpty(field.Variant, "info"), field.Content)
			continue
		case schema.KindLineBreak:
			tw.Flush()
			buf.WriteString("\n")
			continue
		case schema.KindHTML, schema.KindHidden:
			continue
		}

		value := r.widgets.Format(schema.Column{Title: field.Label, Field: field.Name}, state.Value).Text
		if field.Type == schema.KindDateRange {
			value = rangeText(state.Value)
		}
		line := field.DisplayLabel() + ":\t" + value
		if state.Disabled {
			line += "\t(disabled)"
		}
		if state.Error != "" {
			line += "\t! " + state.Error
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("text renderer: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderGrid prints the visible columns of the current page, the active
// filters and the pagination caption.
func (r *Renderer) RenderGrid(_ context.Context, view render.GridView, _ render.Options) ([]byte, error) {
	var buf bytes.Buffer
	if title := strings.TrimSpace(view.Title); title != "" {
		fmt.Fprintf(&buf, "%s\n", title)
	}
	if len(view.Chips) > 0 {
		parts := make([]string, 0, len(view.Chips))
		for _, chip := range view.Chips {
			parts = append(parts, chip.Title+" "+chip.Label())
		}
		fmt.Fprintf(&buf, "Filters: %s\n", strings.Join(parts, "; "))
	}

	columns := view.VisibleColumns()
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	titles := make([]string, 0, len(columns)+1)
	if view.State.Selectable {
		titles = append(titles, "")
	}
	for _, column := range columns {
		title := column.Title
		if column.Sortable() && column.SortKey == view.State.SortKey {
			switch view.State.SortOrder() {
			case "ASC":
				title += " ^"
			case "DESC":
				title += " v"
			}
		}
		titles = append(titles, title)
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))

	for _, record := range view.State.Records {
		cells := make([]string, 0, len(columns)+1)
		if view.State.Selectable {
			if record.Checked() {
				cells = append(cells, "[x]")
			} else {
				cells = append(cells, "[ ]")
			}
		}
		for _, column := range columns {
			cells = append(cells, r.widgets.Format(column, record[column.Field]).Text)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("text renderer: %w", err)
	}

	if len(view.State.Records) == 0 {
		empty := strings.TrimSpace(view.Empty)
		if empty == "" {
			empty = "No records found"
		}
		fmt.Fprintln(&buf, empty)
	}
	fmt.Fprintln(&buf, view.State.Pagination.Text)
	return buf.Bytes(), nil
}

func rangeText(value any) string {
	selections, _ := value.([]schema.DateSelection)
	if len(selections) == 0 || (selections[0].StartDate == "" && selections[0].EndDate == "") {
		return ""
	}
	return selections[0].StartDate + " - " + selections[0].EndDate
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
