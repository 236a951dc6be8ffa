// Package form implements the form state engine: it owns values, errors,
// touched flags and character counts for a schema, applies user changes and
// orchestrates validation, dependent-field resets, remote options and
// uploads.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/notify"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/upload"
	"github.com/goliatone/go-formgrid/pkg/validation"
	"github.com/goliatone/go-formgrid/pkg/visibility"
	"github.com/goliatone/go-formgrid/pkg/visibility/expr"
	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

// ErrUnknownField is returned when an operation names a field the schema
// does not declare.
var ErrUnknownField = errors.New("form: unknown field")

// InvalidFormMessage is the notification shown when submit is blocked.
const InvalidFormMessage = "Please correct the errors in the form"

// Engine holds the state of one form instance. It is safe for concurrent use;
// observers and notifications are invoked without holding the lock.
type Engine struct {
	mu sync.Mutex

	form       schema.Form
	defaults   schema.Values
	values     schema.Values
	errors     map[string]string
	server     map[string]string
	formErrors []string
	touched    map[string]bool
	charCounts map[string]int
	options    map[string][]schema.Option
	graph      depGraph

	rules     visibility.Rules
	validator *validation.Validator
	client    client.Client
	uploader  *upload.Uploader
	notifier  notify.Notifier
	logger    logrus.FieldLogger
	onChange  func(schema.Values)
	submit    SubmitFunc
	threshold int
	cacheSize int
	cache     *lru.Cache[string, []schema.Option]
}

// New builds an engine for form and initialises its values from the
// defaults, static field values and kind empty values.
func New(form schema.Form, opts ...Option) (*Engine, error) {
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("form: %w", err)
	}

	e := &Engine{
		rules:     visibility.Rules{Evaluator: expr.New()},
		notifier:  notify.NewLogger(nil),
		logger:    logrus.StandardLogger(),
		threshold: DefaultIncrementalThreshold,
		cacheSize: DefaultOptionsCacheSize,
		options:   make(map[string][]schema.Option),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.rules.OnError = func(field string, rule schema.Predicate, err error) {
		e.logger.WithFields(logrus.Fields{"field": field, "rule": string(rule)}).WithError(err).Warn("form: predicate evaluation failed")
	}
	e.validator = validation.New(validation.WithRules(e.rules))

	cache, err := lru.New[string, []schema.Option](e.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("form: options cache: %w", err)
	}
	e.cache = cache

	e.install(form, true)
	return e, nil
}

func (e *Engine) install(form schema.Form, reset bool) {
	e.form = form
	e.graph = buildGraph(form, e.rules)

	if reset || e.values == nil {
		e.values = make(schema.Values)
		e.touched = make(map[string]bool)
		e.charCounts = make(map[string]int)
		e.server = make(map[string]string)
		e.formErrors = nil
	}
	for _, field := range form.DataFields() {
		if _, ok := e.values[field.Name]; ok && !reset {
			continue
		}
		value := field.InitialValue(e.defaults)
		e.values[field.Name] = value
		if field.Type == schema.KindTextarea {
			e.charCounts[field.Name] = charCount(value)
		}
	}
	e.errors = e.validator.Form(e.form, e.values)
}

// SetSchema replaces the schema. Values are re-initialised only when the
// new schema carries at least one static value, so a schema arriving in
// pieces does not clobber what the user already typed; otherwise existing
// values are kept and new fields get their initial value.
func (e *Engine) SetSchema(form schema.Form) error {
	if err := form.Validate(); err != nil {
		return fmt.Errorf("form: %w", err)
	}
	e.mu.Lock()
	e.install(form, form.HasStaticValues())
	values := e.values.Clone()
	e.mu.Unlock()

	e.emit(values)
	return nil
}

// Schema returns the current schema.
func (e *Engine) Schema() schema.Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

// Mount loads remote options for every field declaring an options URL. A
// schema needing remote options without a client is a configuration error;
// it is reported to the user and returned. Individual load failures are
// logged and leave the field with its static options.
func (e *Engine) Mount(ctx context.Context) error {
	e.mu.Lock()
	var remote []schema.Field
	for _, field := range e.form.DataFields() {
		if strings.TrimSpace(field.OptionsURL) != "" {
			remote = append(remote, field)
		}
	}
	c := e.client
	e.mu.Unlock()

	for _, field := range remote {
		if c == nil {
			reason := fmt.Sprintf("a data client is required when using fields with optionsUrl. Field %q requires optionsUrl but no client was provided.", field.Name)
			err := &widgeterr.ConfigurationError{Component: "form", Reason: reason}
			e.logger.WithField("field", field.Name).WithError(err).Error("form: missing data client")
			notify.Error(e.notifier, reason)
			return err
		}
		e.loadOptions(ctx, c, field)
	}
	return nil
}

func (e *Engine) loadOptions(ctx context.Context, c client.Client, field schema.Field) {
	url := "/" + strings.TrimLeft(field.OptionsURL, "/")
	options, ok := e.cache.Get(url)
	if !ok {
		response, err := c.Get(ctx, url)
		if err != nil {
			e.logger.WithFields(logrus.Fields{"field": field.Name, "url": url}).WithError(err).Error("form: load options failed")
			return
		}
		options = schema.OptionsFrom(client.Unwrap(response))
		e.cache.Add(url, options)
	}

	if field.Type == schema.KindSelect {
		placeholder := schema.Option{Value: "", Label: "Select " + strings.ToLower(field.DisplayLabel())}
		options = append([]schema.Option{placeholder}, options...)
	}

	e.mu.Lock()
	e.options[field.Name] = options
	e.mu.Unlock()
}

// Options returns the choices for a field: remotely loaded options when
// present, the static options otherwise.
func (e *Engine) Options(name string) []schema.Option {
	e.mu.Lock()
	defer e.mu.Unlock()
	if loaded, ok := e.options[name]; ok {
		return append([]schema.Option(nil), loaded...)
	}
	if field, ok := e.form.Field(name); ok {
		return append([]schema.Option(nil), field.Options...)
	}
	return nil
}

// HandleChange applies raw input to a field. Unknown fields are ignored.
//
// The value is coerced for the field kind, then every field directly reading
// the changed field through its showIf predicate is reset to its empty value
// when it is now hidden, and every data field whose disabled predicate now
// holds is reset as well. The reset is a single pass evaluated against the
// post-change values; it does not cascade further. Errors are recomputed
// afterwards and the change observer runs.
func (e *Engine) HandleChange(name string, raw any) {
	e.mu.Lock()
	field, ok := e.form.Field(name)
	if !ok {
		e.mu.Unlock()
		e.logger.WithField("field", name).Debug("form: change for unknown field ignored")
		return
	}

	next := e.values.Clone()
	next[name] = coerce(field, raw)
	if field.Type == schema.KindTextarea {
		e.charCounts[name] = charCount(next[name])
	}
	delete(e.server, name)

	changed := []string{name}
	reset := make(map[string]bool)
	for _, depName := range e.graph.dependentsOf(name) {
		if dep, ok := e.form.Field(depName); ok && !e.rules.Visible(dep, next) {
			reset[depName] = true
		}
	}
	for _, candidate := range e.form.DataFields() {
		if e.rules.Disabled(candidate, next) {
			reset[candidate.Name] = true
		}
	}
	for _, candidate := range e.form.DataFields() {
		if !reset[candidate.Name] {
			continue
		}
		was := next[candidate.Name]
		next[candidate.Name] = candidate.Type.EmptyValue()
		if candidate.Type == schema.KindTextarea {
			e.charCounts[candidate.Name] = 0
		}
		if candidate.Name != name && !validation.IsEmpty(was) {
			changed = append(changed, candidate.Name)
		}
	}

	e.values = next
	e.revalidate(changed)
	values := e.values.Clone()
	e.mu.Unlock()

	e.emit(values)
}

func (e *Engine) revalidate(changed []string) {
	if !e.incremental() {
		e.errors = e.validator.Form(e.form, e.values)
		return
	}
	for _, name := range e.graph.affected(changed...) {
		field, ok := e.form.Field(name)
		if !ok {
			continue
		}
		delete(e.errors, name)
		if !e.rules.Visible(field, e.values) {
			continue
		}
		if msg := e.validator.Validate(field, e.values[name], e.values); msg != "" {
			e.errors[name] = msg
		}
	}
}

func (e *Engine) incremental() bool {
	if e.threshold < 0 {
		return false
	}
	return len(e.form.DataFields()) > e.threshold
}

func (e *Engine) emit(values schema.Values) {
	if e.onChange != nil {
		e.onChange(values)
	}
}

// HandleBlur marks a field as touched so its error becomes visible.
func (e *Engine) HandleBlur(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.form.Field(name); ok {
		e.touched[name] = true
	}
}

// Submit marks every field touched and validates the visible, enabled
// fields. When none fail the submit callback receives the value map and its
// error is returned. Otherwise the failing messages are returned as data,
// the user is notified and the callback is not invoked.
func (e *Engine) Submit(ctx context.Context) (widgeterr.FieldErrors, error) {
	e.mu.Lock()
	for _, field := range e.form.DataFields() {
		e.touched[field.Name] = true
	}
	e.errors = e.validator.Form(e.form, e.values)
	failed := make(widgeterr.FieldErrors, len(e.errors))
	for name, msg := range e.errors {
		failed[name] = msg
	}
	values := e.values.Clone()
	submit := e.submit
	e.mu.Unlock()

	if len(failed) > 0 {
		notify.Error(e.notifier, InvalidFormMessage)
		return failed, nil
	}
	if submit == nil {
		return nil, nil
	}
	return nil, submit(ctx, values)
}

// ApplyServerErrors merges a server validation payload into the error map.
// Field messages stay until that field changes; unmatched keys become form
// level messages.
func (e *Engine) ApplyServerErrors(payload map[string][]string) ServerErrors {
	e.mu.Lock()
	defer e.mu.Unlock()
	mapped := MapServerErrors(e.form, payload)
	for name, messages := range mapped.Fields {
		e.server[name] = messages[0]
		e.touched[name] = true
	}
	e.formErrors = mapped.Form
	return mapped
}

// FormErrors returns the form level messages from the last server payload.
func (e *Engine) FormErrors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.formErrors...)
}

// UploadFiles uploads files for a file or multifile field and stores the
// result through HandleChange. Constraint violations and network failures
// are logged and reported to the user; only configuration problems are
// returned.
func (e *Engine) UploadFiles(ctx context.Context, name string, files []upload.File) error {
	e.mu.Lock()
	field, ok := e.form.Field(name)
	current := e.values[name]
	uploader := e.uploader
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if field.Type != schema.KindFile && field.Type != schema.KindMultiFile {
		return widgeterr.Configuration("form", "field %q does not accept files", name)
	}
	if uploader == nil {
		return widgeterr.Configuration("form", "field %q requires an uploader", name)
	}

	next, err := uploader.Upload(ctx, field, current, files)
	if err != nil {
		var constraint *widgeterr.UploadConstraintError
		if errors.As(err, &constraint) {
			notify.Error(e.notifier, constraint.Message)
		} else {
			e.logger.WithField("field", name).WithError(err).Error("form: upload failed")
			notify.Error(e.notifier, "Upload failed: "+uploadMessage(err))
		}
		return nil
	}
	e.HandleChange(name, next)
	return nil
}

func uploadMessage(err error) string {
	var network *widgeterr.NetworkError
	if errors.As(err, &network) && network.Err != nil {
		return network.Err.Error()
	}
	return err.Error()
}

// RemoveFile drops the file at index from a multifile field, or clears a
// file field.
func (e *Engine) RemoveFile(name string, index int) {
	e.mu.Lock()
	field, ok := e.form.Field(name)
	current := e.values[name]
	e.mu.Unlock()
	if !ok {
		return
	}
	e.HandleChange(name, upload.Remove(field, current, index))
}

// Values returns a copy of the value map.
func (e *Engine) Values() schema.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values.Clone()
}

// Value returns a single field value.
func (e *Engine) Value(name string) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values[name]
}

// Errors returns every current message, touched or not. Client-side
// messages win over server ones for the same field.
func (e *Engine) Errors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mergedErrors(false)
}

// VisibleErrors returns the messages of touched fields only.
func (e *Engine) VisibleErrors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mergedErrors(true)
}

func (e *Engine) mergedErrors(touchedOnly bool) map[string]string {
	out := make(map[string]string, len(e.errors)+len(e.server))
	for name, msg := range e.server {
		out[name] = msg
	}
	for name, msg := range e.errors {
		out[name] = msg
	}
	if touchedOnly {
		for name := range out {
			if !e.touched[name] {
				delete(out, name)
			}
		}
	}
	return out
}

// Touched reports whether the field has been blurred or submitted.
func (e *Engine) Touched(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.touched[name]
}

// CharCounts returns the rune counts of textarea fields.
func (e *Engine) CharCounts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.charCounts))
	for name, n := range e.charCounts {
		out[name] = n
	}
	return out
}

// Visible evaluates the field's showIf predicate against current values.
// Decorative fields are addressed by index through State.
func (e *Engine) Visible(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	field, ok := e.form.Field(name)
	return ok && e.rules.Visible(field, e.values)
}

// Disabled evaluates the field's disabled predicate against current values.
func (e *Engine) Disabled(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	field, ok := e.form.Field(name)
	return ok && e.rules.Disabled(field, e.values)
}

// FieldState is the render-ready view of one schema entry.
type FieldState struct {
	Field     schema.Field
	Value     any
	Error     string
	Options   []schema.Option
	Visible   bool
	Disabled  bool
	CharCount int
}

// State returns the render-ready view of every schema entry in order,
// decorative ones included. Error carries a message only once the field is
// touched.
func (e *Engine) State() []FieldState {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := e.mergedErrors(true)
	out := make([]FieldState, 0, len(e.form.Fields))
	for _, field := range e.form.Fields {
		state := FieldState{
			Field:   field,
			Visible: e.rules.Visible(field, e.values),
		}
		if field.IsData() {
			state.Value = e.values[field.Name]
			state.Error = errs[field.Name]
			state.Disabled = e.rules.Disabled(field, e.values)
			state.CharCount = e.charCounts[field.Name]
			if loaded, ok := e.options[field.Name]; ok {
				state.Options = append([]schema.Option(nil), loaded...)
			} else {
				state.Options = append([]schema.Option(nil), field.Options...)
			}
		}
		out = append(out, state)
	}
	return out
}
