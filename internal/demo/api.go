package demo

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgets"
)

const maxBodyBytes = 1 << 20

// gridBody is what the grid engine posts alongside its query string.
type gridBody struct {
	Filter  filter.Set      `json:"filter"`
	Headers []schema.Column `json:"headers"`
}

// API serves the dataset as a grid endpoint.
type API struct {
	data   *Dataset
	base   string
	logger logrus.FieldLogger
}

// NewAPI returns an API over data. base prefixes the export file URLs.
func NewAPI(data *Dataset, base string, logger logrus.FieldLogger) *API {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &API{data: data, base: base, logger: logger}
}

// RegisterRoutes mounts the grid endpoint at /api/users and export downloads
// at /exports/{id}.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/api/users", a.serveGrid)
	r.Get("/exports/{id}", a.serveExport)
}

func (a *API) serveGrid(w http.ResponseWriter, r *http.Request) {
	var body gridBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	query := r.URL.Query()
	if query.Get("export") == "csv" {
		a.export(w, body)
		return
	}

	params := Params{
		Page:      atoi(query.Get("page")),
		PageSize:  atoi(query.Get("page_size")),
		SortKey:   query.Get("sort_key"),
		SortOrder: query.Get("sort_order"),
		Filter:    body.Filter,
	}
	page := a.data.Query(params)
	a.logger.WithFields(logrus.Fields{
		"page":    params.Page,
		"filters": len(params.Filter),
		"total":   page.TotalCount,
	}).Debug("demo: grid query")

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"list":           page.List,
			"headers":        mergeHeaders(a.data.Columns(), body.Headers),
			"searchForm":     a.data.SearchForm(),
			"totalCount":     page.TotalCount,
			"enableCheckbox": true,
		},
	})
}

// mergeHeaders keeps the caller's display flags so hidden columns stay
// hidden across fetches.
func mergeHeaders(columns, requested []schema.Column) []schema.Column {
	display := make(map[string]*bool, len(requested))
	for _, col := range requested {
		if col.Display != nil {
			display[col.Key()] = col.Display
		}
	}
	out := make([]schema.Column, len(columns))
	for i, col := range columns {
		if flag, ok := display[col.Key()]; ok {
			visible := *flag
			col.Display = &visible
		}
		out[i] = col
	}
	return out
}

func (a *API) export(w http.ResponseWriter, body gridBody) {
	columns := mergeHeaders(a.data.Columns(), body.Headers)
	records := a.data.Matching(body.Filter)

	var buf bytes.Buffer
	out := csv.NewWriter(&buf)
	header := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.Visible() {
			header = append(header, col.Title)
		}
	}
	_ = out.Write(header)
	for _, record := range records {
		row := make([]string, 0, len(header))
		for _, col := range columns {
			if col.Visible() {
				row = append(row, widgets.Text(record[col.Field]))
			}
		}
		_ = out.Write(row)
	}
	out.Flush()
	if err := out.Error(); err != nil {
		writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error())
		return
	}

	id := uuid.NewString() + ".csv"
	a.data.mu.Lock()
	a.data.exports[id] = buf.Bytes()
	a.data.mu.Unlock()
	a.logger.WithFields(logrus.Fields{"export": id, "rows": len(records)}).Info("demo: export ready")

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"file": a.base + "/exports/" + id},
	})
}

func (a *API) serveExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.data.mu.RLock()
	content, ok := a.data.exports[id]
	a.data.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "export not found: "+id)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`"`)
	_, _ = w.Write(content)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("demo: encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

func atoi(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
