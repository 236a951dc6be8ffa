// Package render holds the presentation contract shared by the form and grid
// renderers: the views they consume, the renderer registry, the closed kind
// dispatch table and small helpers for hidden inputs and translations.
// Renderers are stateless; every user action is routed back to the engines.
package render

import (
	"context"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/form"
	"github.com/goliatone/go-formgrid/pkg/grid"
	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Renderer turns engine views into bytes (HTML, plain text).
type Renderer interface {
	Name() string
	ContentType() string
	RenderForm(ctx context.Context, view FormView, opts Options) ([]byte, error)
	RenderGrid(ctx context.Context, view GridView, opts Options) ([]byte, error)
}

// Options carry per-request presentation data.
type Options struct {
	// Action and Method override the form submission target.
	Action string
	Method string
	// Hidden inputs emitted with the form, e.g. CSRF tokens.
	Hidden []HiddenField
	// Locale and Translator localise labels and messages.
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
	// Theme supplies tokens, CSS variables and asset URLs.
	Theme *theme.RendererConfig
	// BasePath prefixes the links a grid renders for paging and sorting.
	BasePath string
}

// FormView is everything a renderer needs to draw a form.
type FormView struct {
	Form       schema.Form
	Fields     []form.FieldState
	FormErrors []string
}

// FormViewOf snapshots a form engine.
func FormViewOf(engine *form.Engine) FormView {
	return FormView{
		Form:       engine.Schema(),
		Fields:     engine.State(),
		FormErrors: engine.FormErrors(),
	}
}

// GridView is everything a renderer needs to draw a grid.
type GridView struct {
	Title string
	Empty string
	State grid.State
	Chips []filter.Chip
}

// GridViewOf snapshots a grid engine.
func GridViewOf(engine *grid.Engine, doc schema.Grid) GridView {
	state := engine.Snapshot()
	return GridView{
		Title: doc.Title,
		Empty: doc.Empty,
		State: state,
		Chips: filter.Chips(state.Filter),
	}
}

// VisibleColumns returns the displayed columns of the view.
func (v GridView) VisibleColumns() []schema.Column {
	out := make([]schema.Column, 0, len(v.State.Headers))
	for _, column := range v.State.Headers {
		if column.Visible() {
			out = append(out, column)
		}
	}
	return out
}
