package form

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/notify"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/upload"
	"github.com/goliatone/go-formgrid/pkg/visibility"
)

// DefaultIncrementalThreshold is the number of data fields above which the
// engine revalidates through the dependency graph instead of recomputing the
// whole error map.
const DefaultIncrementalThreshold = 32

// DefaultOptionsCacheSize bounds the remote options cache.
const DefaultOptionsCacheSize = 128

// SubmitFunc receives the value map once the form validates.
type SubmitFunc func(ctx context.Context, values schema.Values) error

// Option customises an Engine.
type Option func(*Engine)

// WithDefaults seeds initial values; they win over static field values.
func WithDefaults(values schema.Values) Option {
	return func(e *Engine) {
		e.defaults = values.Clone()
	}
}

// WithClient sets the data-access client used to load remote options.
func WithClient(c client.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// WithUploader sets the uploader used by file and multifile fields.
func WithUploader(u *upload.Uploader) Option {
	return func(e *Engine) {
		e.uploader = u
	}
}

// WithNotifier sets the sink for user notifications.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
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

// WithOnFieldsChange registers an observer invoked with a copy of the value
// map after every change.
func WithOnFieldsChange(fn func(schema.Values)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithSubmit sets the callback invoked by Submit when the form is valid.
func WithSubmit(fn SubmitFunc) Option {
	return func(e *Engine) {
		e.submit = fn
	}
}

// WithEvaluator replaces the predicate evaluator.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(e *Engine) {
		if evaluator != nil {
			e.rules.Evaluator = evaluator
		}
	}
}

// WithExtras exposes host values to predicates under the extras. prefix.
func WithExtras(extras map[string]any) Option {
	return func(e *Engine) {
		e.rules.Extras = extras
	}
}

// WithIncrementalThreshold sets the data field count above which
// revalidation goes through the dependency graph. Zero always uses the graph;
// a negative value never does.
func WithIncrementalThreshold(n int) Option {
	return func(e *Engine) {
		e.threshold = n
	}
}

// WithOptionsCacheSize sets the capacity of the remote options cache.
func WithOptionsCacheSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.cacheSize = size
		}
	}
}
