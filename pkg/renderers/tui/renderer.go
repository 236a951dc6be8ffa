// Package tui drives a form engine from a terminal. Each visible field is
// prompted in schema order through a PromptDriver; every answer goes through
// the engine, so visibility, dependent resets and validation behave exactly
// as in any other host.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formgrid/pkg/form"
	"github.com/goliatone/go-formgrid/pkg/render"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/upload"
)

// Renderer runs terminal form sessions.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	maxAttempts       int
	openFile          FileOpener
}

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		maxAttempts:  DefaultMaxAttempts,
		openFile:     openFromDisk,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Run.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// prompter asks for one field and feeds the answer to the engine.
type prompter func(ctx context.Context, r *Renderer, engine *form.Engine, state form.FieldState) error

var prompters = render.MustKindTable(map[schema.Kind]prompter{
	schema.KindInput:       promptInput,
	schema.KindNumber:      promptInput,
	schema.KindEmail:       promptInput,
	schema.KindDate:        promptInput,
	schema.KindTime:        promptInput,
	schema.KindDateTime:    promptInput,
	schema.KindSelect:      promptSelect,
	schema.KindRadioGroup:  promptSelect,
	schema.KindMultiSelect: promptMultiSelect,
	schema.KindCheckbox:    promptConfirm,
	schema.KindDateRange:   promptDateRange,
	schema.KindFile:        promptFiles,
	schema.KindMultiFile:   promptFiles,
	schema.KindTextarea:    promptTextArea,
	schema.KindHTML:        promptStatic,
	schema.KindHeader:      promptStatic,
	schema.KindAlert:       promptStatic,
	schema.KindHidden:      skip,
	schema.KindLineBreak:   skip,
})

// Run mounts engine, prompts every visible enabled field and submits. Fields
// still invalid after the configured attempts are reported by Submit and
// returned as widgeterr.FieldErrors. On success the value map is serialized
// in the configured output format.
func (r *Renderer) Run(ctx context.Context, engine *form.Engine) ([]byte, error) {
	if ctx == nil {
		return nil, fmt.Errorf("tui: context is required")
	}
	if engine == nil {
		return nil, ErrNoEngine
	}
	if err := engine.Mount(ctx); err != nil {
		return nil, err
	}

	for idx := 0; ; idx++ {
		states := engine.State()
		if idx >= len(states) {
			break
		}
		if err := r.promptState(ctx, engine, idx, states[idx]); err != nil {
			return nil, err
		}
	}

	failed, err := engine.Submit(ctx)
	if err != nil {
		return nil, fmt.Errorf("tui: submit: %w", err)
	}
	if len(failed) > 0 {
		return nil, failed
	}

	values, err := plainValues(engine.Values())
	if err != nil {
		return nil, err
	}
	if r.submitTransformer != nil {
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return r.serialize(values)
}

func (r *Renderer) promptState(ctx context.Context, engine *form.Engine, idx int, state form.FieldState) error {
	if !state.Visible || (state.Field.IsData() && state.Disabled) {
		return nil
	}
	ask, err := prompters.Lookup(state.Field.Type)
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if err := ask(ctx, r, engine, state); err != nil {
			return err
		}
		if !state.Field.IsData() {
			return nil
		}
		engine.HandleBlur(state.Field.Name)
		msg := engine.VisibleErrors()[state.Field.Name]
		if msg == "" {
			return nil
		}
		if err := r.driver.Info(ctx, r.theme.ErrorPrefix+msg); err != nil {
			return err
		}
		state = engine.State()[idx]
	}
	return nil
}

func (r *Renderer) message(field schema.Field) string {
	return r.theme.PromptPrefix + field.DisplayLabel()
}

func promptInput(ctx context.Context, r *Renderer, engine *form.Engine, state form.FieldState) error {
	field := state.Field
	cfg := InputConfig{
		Message: r.message(field),
		Default: valueText(state.Value),
		Help:    field.Help,
	}
	var (
		answer string
		err    error
	)
	if strings.EqualFold(field.Variant, "password") {
		answer, err = r.driver.Password(ctx, cfg)
	} else {
		answer, err = r.driver.Input(ctx, cfg)
	}
	if err != nil {
		return err
	}
	engine.HandleChange(field.Name, strings.TrimSpace(answer))
	return nil
}

func promptTextArea(ctx context.Context, r *Renderer, engine *form.Engine, state form.FieldState) error {
	answer, err := r.driver.TextArea(ctx, TextAreaConfig{
		Message: r.message(state.Field),
		Default: valueText(state.Value),
		Help:    state.Field.Help,
	})
	if err != nil {
		return err
	}
	engine.HandleChange(state.Field.Name, answer)
	return nil
}

func promptSelect(ctx context.Context, r *Renderer, engine *form.Engine, state form.FieldState) error {
	if len(state.Options) == 0 {
		return promptInput(ctx, r, engine, state)
	}
	labels, values := optionLabels(state.Options)
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      r.message(state.Field),
		Options:      labels,
		DefaultIndex: indexOf(values, valueText(state.Value)),
		Help:         state.Field.Help,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(values) {
		return nil
	}
	engine.HandleChange(state.Field.Name, values[idx])
	return nil
}

func promptMultiSelect(ctx context.Context, r *Renderer, engine *form.Engine, state form.FieldState) error {
	labels, values := optionLabels(state.Options)
	current, _ := state.Value.([]string)
	indices, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  r.message(state.Field),
		Options:  labels,
		Defaults: indicesOf(values, current),
		Help:     state.Field.Help,
	})
	if err != nil {
		return err
	}
	engine.HandleChange(state.Field.Name, defaultsFromIndices(values, indices))
	return nil
}

func promptConfirm(ctx context.Context, r *Renderer, engine *form.Engine, state form.FieldState) error {
	current, _ := state.Value.(bool)
	answer, err := r.driver.Confirm(ctx, ConfirmConfig{
		Message: r.message(state.Field),
		Default: current,
		Help:    state.Field.Help,
	})
	if err != nil {
		return err
	}
	engine.HandleChange(state.Field.Name, answer)
	return nil
}

func promptDateRange(ctx context.Context, r *Renderer, engine *form.Engine, state form.FieldState) error {
	var from, to string
	if selections, ok := state.Value.([]schema.DateSelection); ok && len(selections) > 0 {
		from, to = selections[0].StartDate, selections[0].EndDate
	}
	label := r.message(state.Field)
	start, err := r.driver.Input(ctx, InputConfig{Message: label + " (from)", Default: from, Help: state.Field.Help})
	if err != nil {
		return err
	}
	end, err := r.driver.Input(ctx, InputConfig{Message: label + " (to)", Default: to})
	if err != nil {
		return err
	}
	engine.HandleChange(state.Field.Name, schema.DateRange{From: strings.TrimSpace(start), To: strings.TrimSpace(end)})
	return nil
}

// promptFiles reads comma separated paths and uploads them through the
// engine. An empty answer keeps the current value.
func promptFiles(ctx context.Context, r *Renderer, engine *form.Engine, state form.FieldState) error {
	message := r.message(state.Field) + " (path"
	if state.Field.Type == schema.KindMultiFile {
		message += "s, comma separated"
	}
	message += ")"
	answer, err := r.driver.Input(ctx, InputConfig{Message: message, Help: state.Field.Help})
	if err != nil {
		return err
	}

	var files []upload.File
	for _, path := range strings.Split(answer, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		file, err := r.openFile(path)
		if err != nil {
			if infoErr := r.driver.Info(ctx, r.theme.ErrorPrefix+err.Error()); infoErr != nil {
				return infoErr
			}
			return nil
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil
	}
	return engine.UploadFiles(ctx, state.Field.Name, files)
}

var terminalPolicy = bluemonday.StrictPolicy()

func promptStatic(ctx context.Context, r *Renderer, _ *form.Engine, state form.FieldState) error {
	field := state.Field
	text := field.Content
	switch field.Type {
	case schema.KindHTML:
		text = terminalPolicy.Sanitize(text)
	case schema.KindHeader:
		if text == "" {
			text = field.Label
		}
		text = strings.ToUpper(text)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return r.driver.Info(ctx, r.theme.InfoPrefix+text)
}

func skip(context.Context, *Renderer, *form.Engine, form.FieldState) error {
	return nil
}

func optionLabels(options []schema.Option) (labels, values []string) {
	for _, opt := range options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		labels = append(labels, label)
		values = append(values, opt.Value)
	}
	return labels, values
}

func valueText(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

// plainValues converts the engine's typed values into JSON-shaped data so
// every output format sees maps, slices and scalars only.
func plainValues(values schema.Values) (map[string]any, error) {
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("tui: encode values: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("tui: decode values: %w", err)
	}
	return out, nil
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, val, out)
		}
	case []any:
		for idx, val := range v {
			if nested, ok := val.(map[string]any); ok {
				flatten(fmt.Sprintf("%s[%d]", prefix, idx), nested, out)
				continue
			}
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	case nil:
		out.Set(prefix, "")
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			writePretty(b, next, v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}
