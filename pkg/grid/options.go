package grid

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/notify"
	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Option customises an Engine.
type Option func(*Engine)

// Downloader receives the file reference returned by an export.
type Downloader func(ctx context.Context, fileURL string) error

// WithStore shares filter state through store. Grids sharing a store and an
// endpoint see each other's filters.
func WithStore(store *filter.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithoutPersistence gives the grid a private store, ignoring WithStore.
func WithoutPersistence() Option {
	return func(e *Engine) {
		e.private = true
	}
}

// WithPageSize sets the initial page size.
func WithPageSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.pageSize = size
		}
	}
}

// WithSelection enables row selection. The column catalogue must then declare
// exactly one primary key. New checks columns given through WithColumns;
// without them the check runs on the first fetch, against the server headers.
func WithSelection(enabled bool) Option {
	return func(e *Engine) {
		e.selectionOpt = enabled
	}
}

// WithColumns declares columns up front. Server headers replace them after
// the first fetch.
func WithColumns(columns []schema.Column) Option {
	return func(e *Engine) {
		e.headers = append([]schema.Column(nil), columns...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithNotifier routes user notifications.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithDownloader handles export file references.
func WithDownloader(d Downloader) Option {
	return func(e *Engine) {
		e.downloader = d
	}
}

// WithSchema applies a grid document: page size, selection, columns and
// persistence.
func WithSchema(doc schema.Grid) Option {
	return func(e *Engine) {
		WithPageSize(doc.PageSize)(e)
		if doc.Selection {
			e.selectionOpt = true
		}
		if len(doc.Columns) > 0 {
			WithColumns(doc.Columns)(e)
		}
		if !doc.PersistFilters() {
			e.private = true
		}
	}
}
