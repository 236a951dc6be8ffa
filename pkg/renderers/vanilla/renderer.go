// Package vanilla renders forms and grids as server-side HTML from embedded
// pongo2 templates. Each field kind maps to a partial; grid cells are
// formatted through the widgets registry.
package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/grid"
	"github.com/goliatone/go-formgrid/pkg/render"
	rendertemplate "github.com/goliatone/go-formgrid/pkg/render/template"
	"github.com/goliatone/go-formgrid/pkg/render/template/pongo"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgets"
)

// Name is the registry name of the renderer.
const Name = "vanilla"

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templatesDir     string
	templateRenderer rendertemplate.TemplateRenderer
	widgets          *widgets.Registry
	classes          Classes
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk laid out like the
// embedded bundle. Partials missing from the directory fall back to the
// bundle.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.templatesDir = path
	}
}

// WithTemplateRenderer injects a custom template renderer implementation. The
// chrome classes are handed to it through GlobalContext; it must provide the
// filters listed by TemplateFuncs itself.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithWidgets replaces the grid cell widget registry.
func WithWidgets(reg *widgets.Registry) Option {
	return func(cfg *config) {
		if reg != nil {
			cfg.widgets = reg
		}
	}
}

// WithClasses overrides the chrome CSS classes.
func WithClasses(classes Classes) Option {
	return func(cfg *config) {
		cfg.classes = classes
	}
}

// Renderer implements render.Renderer for HTML output.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
	widgets   *widgets.Registry
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.widgets == nil {
		cfg.widgets = widgets.NewRegistry()
	}

	classes := cfg.classes.resolve()
	globals := map[string]any{"classes": classes}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := pongo.New(
			pongo.WithBaseDir(cfg.templatesDir),
			pongo.WithFS(cfg.templateFS),
			pongo.WithExtension(".tpl"),
			pongo.WithGlobalData(globals),
			pongo.WithTemplateFunc(TemplateFuncs()),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	} else if err := renderer.GlobalContext(globals); err != nil {
		return nil, fmt.Errorf("vanilla renderer: template globals: %w", err)
	}

	return &Renderer{
		templates: renderer,
		widgets:   cfg.widgets,
	}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// RenderForm draws the visible fields of view in schema order.
func (r *Renderer) RenderForm(_ context.Context, view render.FormView, opts render.Options) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	view = render.Localize(view, opts)

	fields := make([]string, 0, len(view.Fields))
	multipart := false
	for _, state := range view.Fields {
		if !state.Visible {
			continue
		}
		if state.Field.Type == schema.KindFile || state.Field.Type == schema.KindMultiFile {
			multipart = true
		}
		ctl, err := controls.Lookup(state.Field.Type)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: %w", err)
		}
		model := buildField(state, ctl)
		control, err := r.templates.RenderTemplate(
			partialName(opts.Theme, "templates/fields/"+ctl.partial),
			map[string]any{"field": model},
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: render field %q: %w", state.Field.Name, err)
		}
		if ctl.bare {
			fields = append(fields, control)
			continue
		}
		wrapped, err := r.templates.RenderTemplate(
			partialName(opts.Theme, "templates/field"),
			map[string]any{"field": model, "control": control},
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: wrap field %q: %w", state.Field.Name, err)
		}
		fields = append(fields, wrapped)
	}

	action := strings.TrimSpace(opts.Action)
	if action == "" {
		action = view.Form.Action
	}
	method := strings.ToLower(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "post"
	}
	submit := strings.TrimSpace(view.Form.SubmitLabel)
	if submit == "" {
		submit = render.Translate(opts, "forms.submit", "Submit")
	}
	themeAttrs, stylesheet := themeAttributes(opts.Theme)

	result, err := r.templates.RenderTemplate(partialName(opts.Theme, "templates/form"), map[string]any{
		"form": map[string]any{
			"id":    view.Form.ID,
			"title": view.Form.Title,
		},
		"action":      action,
		"method":      method,
		"multipart":   multipart,
		"submitLabel": submit,
		"hidden":      hiddenInputs(opts.Hidden),
		"formErrors":  view.FormErrors,
		"fields":      fields,
		"theme":       themeAttrs,
		"stylesheet":  stylesheet,
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}

type columnModel struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Href  string `json:"href,omitempty"`
	Sort  string `json:"sort,omitempty"`
}

type rowModel struct {
	Key     string         `json:"key"`
	Checked bool           `json:"checked"`
	Cells   []widgets.Cell `json:"cells"`
}

type pageLink struct {
	Number  int    `json:"number"`
	Href    string `json:"href"`
	Current bool   `json:"current"`
}

// RenderGrid draws the current page of a grid with its chips and pagination.
func (r *Renderer) RenderGrid(_ context.Context, view render.GridView, opts render.Options) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	state := view.State
	columns := view.VisibleColumns()

	headers := make([]columnModel, 0, len(columns))
	for _, column := range columns {
		model := columnModel{Key: column.Key(), Title: column.Title}
		if column.Sortable() {
			model.Href = pageHref(opts.BasePath, state, 1, column.SortKey)
			if column.SortKey == state.SortKey {
				switch state.SortOrder() {
				case "ASC":
					model.Sort = "ascending"
				case "DESC":
					model.Sort = "descending"
				}
			}
		}
		headers = append(headers, model)
	}

	rows := make([]rowModel, 0, len(state.Records))
	for _, record := range state.Records {
		row := rowModel{Checked: record.Checked(), Cells: make([]widgets.Cell, 0, len(columns))}
		if state.PrimaryKey != "" {
			row.Key = record.Key(state.PrimaryKey)
		}
		for _, column := range columns {
			row.Cells = append(row.Cells, r.widgets.Format(column, record[column.Field]))
		}
		rows = append(rows, row)
	}

	pages := make([]pageLink, 0, len(state.Pagination.Pages))
	for _, n := range state.Pagination.Pages {
		pages = append(pages, pageLink{
			Number:  n,
			Href:    pageHref(opts.BasePath, state, n, ""),
			Current: n == state.Pagination.Page,
		})
	}
	var prev, next string
	if state.Pagination.HasPrev {
		prev = pageHref(opts.BasePath, state, state.Pagination.Page-1, "")
	}
	if state.Pagination.HasNext {
		next = pageHref(opts.BasePath, state, state.Pagination.Page+1, "")
	}

	chips := make([]map[string]string, 0, len(view.Chips))
	for _, chip := range view.Chips {
		chips = append(chips, map[string]string{
			"key":   chip.Key,
			"title": chip.Title,
			"label": chip.Label(),
			"tone":  chip.Tone,
		})
	}

	colspan := len(columns)
	if state.Selectable {
		colspan++
	}
	empty := strings.TrimSpace(view.Empty)
	if empty == "" {
		empty = render.Translate(opts, "grids.empty", "No records found")
	}
	themeAttrs, stylesheet := themeAttributes(opts.Theme)

	result, err := r.templates.RenderTemplate(partialName(opts.Theme, "templates/grid"), map[string]any{
		"title":       view.Title,
		"endpoint":    state.Endpoint,
		"columns":     headers,
		"rows":        rows,
		"selectable":  state.Selectable,
		"allSelected": state.AllSelected(),
		"chips":       chips,
		"pagination":  state.Pagination,
		"pages":       pages,
		"prev":        prev,
		"next":        next,
		"colspan":     colspan,
		"empty":       empty,
		"loading":     state.Loading,
		"theme":       themeAttrs,
		"stylesheet":  stylesheet,
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render grid: %w", err)
	}
	return []byte(result), nil
}

// pageHref links to page n. A non-empty sortKey produces the link a header
// uses to request that sort.
func pageHref(base string, state grid.State, n int, sortKey string) string {
	query := url.Values{}
	query.Set("page", strconv.Itoa(n))
	query.Set("pageSize", strconv.Itoa(state.PageSize))
	if sortKey != "" {
		query.Set("sort", sortKey)
	} else if state.SortKey != "" {
		query.Set("sort", state.SortKey)
		if order := state.SortOrder(); order != "" {
			query.Set("order", order)
		}
	}
	return base + "?" + query.Encode()
}

func hiddenInputs(fields []render.HiddenField) []map[string]string {
	sorted := render.SortedHiddenFields(fields)
	out := make([]map[string]string, 0, len(sorted))
	for _, field := range sorted {
		out = append(out, map[string]string{"name": field.Name, "value": field.Value})
	}
	return out
}
