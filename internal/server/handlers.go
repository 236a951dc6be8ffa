package server

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	theme "github.com/goliatone/go-theme"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/form"
	"github.com/goliatone/go-formgrid/pkg/grid"
	"github.com/goliatone/go-formgrid/pkg/notify"
	"github.com/goliatone/go-formgrid/pkg/render"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/upload"
	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

func (s *Server) renderOptions(action string) render.Options {
	return render.Options{
		Action:   action,
		BasePath: action,
		Theme: &theme.RendererConfig{
			AssetURL: func(name string) string { return "/assets/" + name },
		},
	}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"forms": s.catalog.FormIDs(),
			"grids": s.catalog.GridIDs(),
		},
	})
}

// --- forms ---

func (s *Server) newForm(r *http.Request, doc schema.Form) (*form.Engine, error) {
	logger := s.logger.WithField("form", doc.ID)
	engine, err := form.New(doc,
		form.WithClient(s.client),
		form.WithUploader(s.uploader),
		form.WithLogger(logger),
		form.WithNotifier(notify.NewLogger(logger)),
	)
	if err != nil {
		return nil, err
	}
	if err := engine.Mount(r.Context()); err != nil {
		return nil, err
	}
	return engine, nil
}

func (s *Server) lookupForm(w http.ResponseWriter, r *http.Request) (schema.Form, bool) {
	id := chi.URLParam(r, "id")
	doc, ok := s.catalog.Form(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "form "+strconv.Quote(id)+" not found")
	}
	return doc, ok
}

func (s *Server) showForm(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	engine, err := s.newForm(r, doc)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeForm(w, r, engine, http.StatusOK)
}

// submitForm replays the posted values through the engine in schema order so
// visibility and dependent resets behave as they do interactively. A form
// that fails validation is re-rendered with its errors.
func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	if err := parseBody(r, s.cfg.Upload.MaxSize); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	engine, err := s.newForm(r, doc)
	if err != nil {
		s.fail(w, err)
		return
	}

	for _, field := range doc.DataFields() {
		if field.Type == schema.KindFile || field.Type == schema.KindMultiFile {
			if err := s.uploadFiles(r, engine, field.Name); err != nil {
				s.fail(w, err)
				return
			}
			continue
		}
		if value, present := submittedValue(r, field); present {
			engine.HandleChange(field.Name, value)
		}
	}

	failed, err := engine.Submit(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(failed) > 0 {
		s.writeForm(w, r, engine, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": engine.Values().Map()})
}

func (s *Server) writeForm(w http.ResponseWriter, r *http.Request, engine *form.Engine, status int) {
	id := chi.URLParam(r, "id")
	out, err := s.renderer.RenderForm(r.Context(), render.FormViewOf(engine), s.renderOptions("/forms/"+id))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", s.renderer.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func parseBody(r *http.Request, maxMemory int64) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if maxMemory <= 0 {
			maxMemory = 32 << 20
		}
		return r.ParseMultipartForm(maxMemory)
	}
	return r.ParseForm()
}

// submittedValue reads one field from the parsed body. Browsers omit
// unchecked boxes and empty multi-selects, so those count as present.
func submittedValue(r *http.Request, field schema.Field) (any, bool) {
	name := field.Name
	switch field.Type {
	case schema.KindCheckbox:
		return r.PostForm.Get(name) == "true", true
	case schema.KindMultiSelect:
		return append([]string{}, r.PostForm[name]...), true
	case schema.KindDateRange:
		from, hasFrom := r.PostForm[name+"[startDate]"]
		to, hasTo := r.PostForm[name+"[endDate]"]
		if !hasFrom && !hasTo {
			return nil, false
		}
		return schema.DateRange{From: first(from), To: first(to)}, true
	default:
		values, ok := r.PostForm[name]
		if !ok {
			return nil, false
		}
		return first(values), true
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (s *Server) uploadFiles(r *http.Request, engine *form.Engine, name string) error {
	if r.MultipartForm == nil {
		return nil
	}
	headers := r.MultipartForm.File[name]
	if len(headers) == 0 {
		return nil
	}
	files := make([]upload.File, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return err
		}
		opened = append(opened, f)
		files = append(files, upload.File{Name: header.Filename, Size: header.Size, Content: f})
	}
	return engine.UploadFiles(r.Context(), name, files)
}

// --- grids ---

// gridEngine returns the engine for a grid id, creating and fetching it on
// first use.
func (s *Server) gridEngine(r *http.Request, id string) (*grid.Engine, schema.Grid, error) {
	doc, ok := s.catalog.Grid(id)
	if !ok {
		return nil, schema.Grid{}, errNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if engine, ok := s.grids[id]; ok {
		return engine, doc, nil
	}

	logger := s.logger.WithField("grid_id", id)
	opts := []grid.Option{
		grid.WithStore(s.store),
		grid.WithSchema(doc),
		grid.WithLogger(logger),
		grid.WithNotifier(notify.NewLogger(logger)),
	}
	if doc.PageSize == 0 {
		opts = append(opts, grid.WithPageSize(s.cfg.Grid.PageSize))
	}
	engine, err := grid.New(doc.Endpoint, s.client, opts...)
	if err != nil {
		return nil, doc, err
	}
	if err := engine.FetchPage(r.Context(), 0); err != nil {
		engine.Close()
		return nil, doc, err
	}
	s.grids[id] = engine
	return engine, doc, nil
}

var errNotFound = errors.New("server: not found")

func (s *Server) withGrid(w http.ResponseWriter, r *http.Request) (*grid.Engine, schema.Grid, bool) {
	engine, doc, err := s.gridEngine(r, chi.URLParam(r, "id"))
	if errors.Is(err, errNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "grid "+strconv.Quote(chi.URLParam(r, "id"))+" not found")
		return nil, doc, false
	}
	if err != nil {
		s.fail(w, err)
		return nil, doc, false
	}
	return engine, doc, true
}

// showGrid applies the page, pageSize, sort and order parameters the rendered
// links carry. A sort link without an order toggles the direction.
func (s *Server) showGrid(w http.ResponseWriter, r *http.Request) {
	engine, doc, ok := s.withGrid(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	query := r.URL.Query()

	if size, err := strconv.Atoi(query.Get("pageSize")); err == nil && size > 0 && size != engine.Snapshot().PageSize {
		if err := engine.SetPageSize(ctx, size); err != nil {
			s.fail(w, err)
			return
		}
	}
	if key := query.Get("sort"); key != "" {
		order := strings.ToUpper(query.Get("order"))
		state := engine.Snapshot()
		switch {
		case order == "":
			if err := engine.SortBy(ctx, key); err != nil {
				s.fail(w, err)
				return
			}
		case state.SortKey != key || state.SortOrder() != order:
			for attempt := 0; attempt < 2; attempt++ {
				if err := engine.SortBy(ctx, key); err != nil {
					s.fail(w, err)
					return
				}
				if engine.Snapshot().SortOrder() == order {
					break
				}
			}
		}
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil && page != engine.Snapshot().Page {
		if err := engine.SetPage(ctx, page); err != nil {
			s.fail(w, err)
			return
		}
	}

	out, err := s.renderer.RenderGrid(ctx, render.GridViewOf(engine, doc), s.renderOptions("/grids/"+doc.ID))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", s.renderer.ContentType())
	_, _ = w.Write(out)
}

// applyFilter commits one rule from the posted key, operator, value, checked
// and from/to fields.
func (s *Server) applyFilter(w http.ResponseWriter, r *http.Request) {
	engine, doc, ok := s.withGrid(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	scratch := filter.Scratch{
		Operator: r.PostForm.Get("operator"),
		Value:    r.PostForm.Get("value"),
		Checked:  r.PostForm["checked"],
		Range:    schema.DateRange{From: r.PostForm.Get("from"), To: r.PostForm.Get("to")},
	}
	if scratch.Operator == "" {
		scratch.Operator = filter.OpContains
	}
	outcome, err := engine.Filters().ApplyRule(r.Context(), r.PostForm.Get("key"), scratch)
	if errors.Is(err, filter.ErrUnknownField) {
		writeError(w, http.StatusBadRequest, "UNKNOWN_FILTER", err.Error())
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logger.WithField("grid_id", doc.ID).Info(outcome.Message)
	http.Redirect(w, r, "/grids/"+doc.ID, http.StatusSeeOther)
}

func (s *Server) removeFilter(w http.ResponseWriter, r *http.Request) {
	engine, doc, ok := s.withGrid(w, r)
	if !ok {
		return
	}
	outcome := engine.Filters().RemoveRule(r.Context(), chi.URLParam(r, "key"))
	s.logger.WithField("grid_id", doc.ID).Info(outcome.Message)
	http.Redirect(w, r, "/grids/"+doc.ID, http.StatusSeeOther)
}

func (s *Server) clearFilters(w http.ResponseWriter, r *http.Request) {
	engine, doc, ok := s.withGrid(w, r)
	if !ok {
		return
	}
	outcome := engine.Filters().ClearAll(r.Context())
	s.logger.WithField("grid_id", doc.ID).Info(outcome.Message)
	http.Redirect(w, r, "/grids/"+doc.ID, http.StatusSeeOther)
}

func (s *Server) exportGrid(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := s.withGrid(w, r)
	if !ok {
		return
	}
	fileURL, err := engine.Export(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if fileURL == "" {
		writeError(w, http.StatusBadGateway, "EXPORT_FAILED", "Error exporting list")
		return
	}
	http.Redirect(w, r, fileURL, http.StatusSeeOther)
}

// --- responses ---

func (s *Server) fail(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	if widgeterr.IsConfiguration(err) {
		code = "CONFIGURATION"
	}
	s.logger.WithError(err).WithFields(logrus.Fields{"code": code}).Error("server: request failed")
	writeError(w, status, code, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
