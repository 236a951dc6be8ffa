// Package grid implements the data grid engine: it turns page, sort and
// filter state into requests against the injected client, normalises the
// responses and tracks row selection.
package grid

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/notify"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

const (
	msgFetchFailed  = "Error fetching list"
	msgExportFailed = "Error exporting list"
	msgNoExportFile = "No export file URL returned"
)

// Engine owns the page, sort, selection and fetch lifecycle of one grid.
//
// Every trigger (page, page size, sort, filter, refresh, column visibility)
// results in exactly one fetch. Responses are applied only when they belong to
// the most recently issued request.
type Engine struct {
	endpoint string
	client   client.Client

	store      *filter.Store
	private    bool
	filters    *filter.Engine
	logger     logrus.FieldLogger
	notifier   notify.Notifier
	downloader Downloader

	selectionOpt bool
	unsubscribe  func()

	mu         sync.Mutex
	seq        uint64
	inflight   int
	exporting  bool
	page       int
	pageSize   int
	sortKey    string
	reverse    *bool
	total      int
	records    []Record
	headers    []schema.Column
	selectable bool
	primaryKey string
	selected   []string
}

// New constructs a grid engine. endpoint identifies the grid both as the
// request path and as the filter store key.
func New(endpoint string, c client.Client, opts ...Option) (*Engine, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, widgeterr.Configuration("grid", "endpoint is required")
	}
	if c == nil {
		return nil, widgeterr.Configuration("grid", "data client is required for %s", endpoint)
	}

	e := &Engine{
		endpoint: endpoint,
		client:   c,
		logger:   logrus.StandardLogger(),
		page:     1,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.store == nil || e.private {
		e.store = filter.NewStore(filter.WithStoreLogger(e.logger))
	}
	e.logger = e.logger.WithField("grid", endpoint)

	if e.selectionOpt && len(e.headers) > 0 {
		key, err := primaryKey(e.headers)
		if err != nil {
			e.logger.WithError(err).Error("grid: configuration")
			return nil, err
		}
		e.selectable, e.primaryKey = true, key
	}

	filters, err := filter.NewEngine(e.store, endpoint)
	if err != nil {
		return nil, err
	}
	e.filters = filters
	e.unsubscribe = e.store.Subscribe(endpoint, e.onFilterChange)
	return e, nil
}

// Close detaches the engine from its filter store.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// Endpoint returns the grid identifier.
func (e *Engine) Endpoint() string { return e.endpoint }

// Filters returns the filter engine bound to this grid. Committing a rule
// through it resets the page and triggers a fetch.
func (e *Engine) Filters() *filter.Engine { return e.filters }

// Store returns the filter store backing this grid.
func (e *Engine) Store() *filter.Store { return e.store }

func (e *Engine) onFilterChange(ctx context.Context, _ string, _ filter.Set) {
	e.mu.Lock()
	e.page = 1
	e.selected = nil
	e.mu.Unlock()
	if err := e.fetch(ctx); err != nil {
		e.logger.WithError(err).Error("grid: fetch after filter change")
	}
}

// FetchPage fetches the current page. A positive size replaces the page size.
func (e *Engine) FetchPage(ctx context.Context, size int) error {
	if size > 0 {
		e.mu.Lock()
		e.pageSize = size
		e.mu.Unlock()
	}
	return e.fetch(ctx)
}

// SetPage moves to page n (minimum 1) and clears the selection.
func (e *Engine) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	e.mu.Lock()
	e.page = n
	e.selected = nil
	e.mu.Unlock()
	return e.fetch(ctx)
}

// SetPageSize changes the page size, returning to page 1.
func (e *Engine) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		size = DefaultPageSize
	}
	e.mu.Lock()
	e.pageSize = size
	e.page = 1
	e.selected = nil
	e.mu.Unlock()
	return e.fetch(ctx)
}

// SortBy sorts by key and toggles the direction. The direction carries over
// when switching to a different key.
func (e *Engine) SortBy(ctx context.Context, key string) error {
	e.mu.Lock()
	e.sortKey = key
	next := true
	if e.reverse != nil {
		next = !*e.reverse
	}
	e.reverse = &next
	e.page = 1
	e.selected = nil
	e.mu.Unlock()
	return e.fetch(ctx)
}

// Refresh refetches the current page and clears the selection.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	e.selected = nil
	e.mu.Unlock()
	return e.fetch(ctx)
}

// SetColumnVisible toggles a column's display flag and refetches so the
// endpoint receives the updated headers.
func (e *Engine) SetColumnVisible(ctx context.Context, field string, visible bool) error {
	e.mu.Lock()
	found := false
	headers := make([]schema.Column, len(e.headers))
	copy(headers, e.headers)
	for idx := range headers {
		if headers[idx].Field == field {
			v := visible
			headers[idx].Display = &v
			found = true
		}
	}
	e.headers = headers
	e.mu.Unlock()
	if !found {
		return fmt.Errorf("grid: unknown column %q", field)
	}
	return e.fetch(ctx)
}

// Request is the outgoing request for the current state.
type Request struct {
	URL  string         `json:"url"`
	Body map[string]any `json:"body"`
}

// CurrentRequest builds the request FetchPage would send.
func (e *Engine) CurrentRequest() Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requestLocked()
}

func (e *Engine) requestLocked() Request {
	sortOrder := ""
	if e.reverse != nil {
		sortOrder = "ASC"
		if *e.reverse {
			sortOrder = "DESC"
		}
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(e.page))
	query.Set("page_size", strconv.Itoa(e.pageSize))
	query.Set("sort_key", e.sortKey)
	query.Set("sort_order", sortOrder)
	return Request{
		URL:  withQuery(e.endpoint, query),
		Body: e.bodyLocked(),
	}
}

func (e *Engine) bodyLocked() map[string]any {
	headers := make([]schema.Column, len(e.headers))
	copy(headers, e.headers)
	return map[string]any{
		"filter":  e.store.Filter(e.endpoint),
		"headers": headers,
	}
}

func withQuery(endpoint string, query url.Values) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + query.Encode()
}

func (e *Engine) fetch(ctx context.Context) error {
	e.mu.Lock()
	e.seq++
	seq := e.seq
	req := e.requestLocked()
	e.inflight++
	e.mu.Unlock()

	log := e.logger.WithField("seq", seq)
	raw, err := e.client.Post(ctx, req.URL, req.Body)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight--

	if seq != e.seq {
		log.Debug("grid: discarding stale response")
		return nil
	}
	if err != nil {
		log.WithError(err).Error("grid: fetch failed")
		notify.Error(e.notifier, msgFetchFailed)
		return nil
	}

	resp, err := Normalize(raw)
	if err != nil {
		log.WithError(err).Error("grid: fetch failed")
		notify.Error(e.notifier, msgFetchFailed)
		return nil
	}

	e.records = resp.List
	e.headers = resp.Headers
	e.total = resp.TotalCount
	if len(resp.SearchForm) > 0 {
		e.store.MergeCatalogue(ctx, e.endpoint, resp.SearchForm)
	}

	var cfgErr error
	if e.selectionOpt || resp.EnableCheckbox {
		key, err := primaryKey(e.headers)
		if err != nil {
			log.WithError(err).Error("grid: configuration")
			e.selectable, e.primaryKey = false, ""
			cfgErr = err
		} else {
			e.selectable, e.primaryKey = true, key
		}
	} else {
		e.selectable, e.primaryKey = false, ""
	}
	e.stampCheckedLocked()
	return cfgErr
}

func primaryKey(columns []schema.Column) (string, error) {
	keys := schema.PrimaryKeys(columns)
	if len(keys) != 1 {
		return "", widgeterr.Configuration("grid", "row selection requires exactly one primary key column, found %d", len(keys))
	}
	return keys[0], nil
}

func (e *Engine) stampCheckedLocked() {
	if !e.selectable {
		return
	}
	selected := make(map[string]struct{}, len(e.selected))
	for _, key := range e.selected {
		selected[key] = struct{}{}
	}
	records := make([]Record, len(e.records))
	for idx, record := range e.records {
		next := record.clone()
		_, checked := selected[record.Key(e.primaryKey)]
		next["checked"] = checked
		records[idx] = next
	}
	e.records = records
}

// ToggleRow flips the selection of the row whose primary key equals key. It
// returns false when selection is disabled or no loaded row matches.
func (e *Engine) ToggleRow(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.selectable {
		return false
	}

	matched := false
	for _, record := range e.records {
		if record.Key(e.primaryKey) == key {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	removed := false
	for idx, selected := range e.selected {
		if selected == key {
			e.selected = append(e.selected[:idx:idx], e.selected[idx+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		e.selected = append(e.selected, key)
	}
	e.stampCheckedLocked()
	return true
}

// SelectAll selects every loaded row on the current page, or clears the
// selection when checked is false.
func (e *Engine) SelectAll(checked bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.selectable {
		return
	}
	e.selected = nil
	if checked {
		for _, record := range e.records {
			e.selected = append(e.selected, record.Key(e.primaryKey))
		}
	}
	e.stampCheckedLocked()
}

// ClearSelection empties the selection set.
func (e *Engine) ClearSelection() {
	e.SelectAll(false)
}

// Selected returns the selected primary keys in selection order.
func (e *Engine) Selected() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.selected...)
}

// SelectedRecords returns the loaded records that are selected.
func (e *Engine) SelectedRecords() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Record
	for _, record := range e.records {
		if record.Checked() {
			out = append(out, record.clone())
		}
	}
	return out
}

// Export requests a CSV export of the current filter and hands the returned
// file reference to the downloader. Failures are logged and notified; the
// returned URL is empty in that case.
func (e *Engine) Export(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.exporting {
		e.mu.Unlock()
		return "", nil
	}
	e.exporting = true
	body := e.bodyLocked()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.exporting = false
		e.mu.Unlock()
	}()

	exportURL := withQuery(e.endpoint, url.Values{"export": []string{"csv"}})
	raw, err := e.client.Post(ctx, exportURL, body)
	if err != nil {
		e.logger.WithError(err).Error("grid: export failed")
		notify.Error(e.notifier, msgExportFailed)
		return "", nil
	}

	fileURL := ExportURL(raw)
	if fileURL == "" {
		e.logger.Error("grid: export returned no file")
		notify.Error(e.notifier, msgNoExportFile)
		return "", nil
	}
	if e.downloader != nil {
		if err := e.downloader(ctx, fileURL); err != nil {
			e.logger.WithError(err).WithField("file", fileURL).Error("grid: download failed")
			notify.Error(e.notifier, msgExportFailed)
			return fileURL, nil
		}
	}
	return fileURL, nil
}

// State is a point-in-time copy of the engine state for renderers.
type State struct {
	Endpoint   string           `json:"endpoint"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	SortKey    string           `json:"sortKey"`
	Reverse    *bool            `json:"reverse"`
	TotalCount int              `json:"totalCount"`
	Records    []Record         `json:"records"`
	Headers    []schema.Column  `json:"headers"`
	Catalogue  schema.Catalogue `json:"catalogue"`
	Filter     filter.Set       `json:"filter"`
	Loading    bool             `json:"loading"`
	Exporting  bool             `json:"exporting"`
	Selectable bool             `json:"selectable"`
	PrimaryKey string           `json:"primaryKey,omitempty"`
	Selected   []string         `json:"selected"`
	Pagination Summary          `json:"pagination"`
	PageSizes  []int            `json:"pageSizes"`
}

// SortOrder renders the direction as sent to the endpoint.
func (s State) SortOrder() string {
	if s.Reverse == nil {
		return ""
	}
	if *s.Reverse {
		return "DESC"
	}
	return "ASC"
}

// AllSelected reports whether every loaded row is selected.
func (s State) AllSelected() bool {
	return s.Selectable && len(s.Records) > 0 && len(s.Selected) == len(s.Records)
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	records := make([]Record, len(e.records))
	for idx, record := range e.records {
		records[idx] = record.clone()
	}
	headers := make([]schema.Column, len(e.headers))
	copy(headers, e.headers)

	var reverse *bool
	if e.reverse != nil {
		r := *e.reverse
		reverse = &r
	}

	return State{
		Endpoint:   e.endpoint,
		Page:       e.page,
		PageSize:   e.pageSize,
		SortKey:    e.sortKey,
		Reverse:    reverse,
		TotalCount: e.total,
		Records:    records,
		Headers:    headers,
		Catalogue:  e.store.Catalogue(e.endpoint),
		Filter:     e.store.Filter(e.endpoint),
		Loading:    e.inflight > 0,
		Exporting:  e.exporting,
		Selectable: e.selectable,
		PrimaryKey: e.primaryKey,
		Selected:   append([]string(nil), e.selected...),
		Pagination: Pagination(e.page, e.pageSize, e.total),
		PageSizes:  append([]int(nil), PageSizes...),
	}
}
