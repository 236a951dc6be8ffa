// Package pongo implements the template seam with pongo2. Templates are
// resolved from an optional directory on disk first and an fs.FS bundle
// second, so a host can override single partials. View data goes through a
// JSON round trip, so struct fields are addressed by their JSON names.
package pongo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formgrid/pkg/render/template"
)

// DefaultExtension is appended to template names that carry none.
const DefaultExtension = ".tpl"

// Option configures an Engine.
type Option func(*config)

type config struct {
	dir     string
	bundle  fs.FS
	ext     string
	funcs   map[string]any
	globals map[string]any
}

// WithBaseDir loads templates from dir. Files found there take precedence
// over the bundle given to WithFS.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.dir = strings.TrimSpace(dir)
	}
}

// WithFS sets the template bundle.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.bundle = files
	}
}

// WithExtension overrides DefaultExtension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.ext = ext
	}
}

// WithTemplateFunc registers template helpers. A pongo2.FilterFunction, a
// func(any) string or a func(any) any becomes a filter; any other function is
// exposed as a callable global.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		for name, fn := range funcs {
			name = strings.TrimSpace(name)
			if name == "" || fn == nil {
				continue
			}
			if cfg.funcs == nil {
				cfg.funcs = make(map[string]any, len(funcs))
			}
			cfg.funcs[name] = fn
		}
	}
}

// WithGlobalData seeds values visible to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		for key, value := range data {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if cfg.globals == nil {
				cfg.globals = make(map[string]any, len(data))
			}
			cfg.globals[key] = value
		}
	}
}

// filters guards the process wide pongo2 filter table, which is read while
// templates are parsed.
var filters sync.RWMutex

// Engine renders named templates from a pongo2 template set.
type Engine struct {
	mu    sync.RWMutex
	set   *pongo2.TemplateSet
	cache map[string]*pongo2.Template
	ext   string
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New builds an Engine. At least one of WithBaseDir and WithFS is required.
func New(opts ...Option) (*Engine, error) {
	cfg := &config{ext: DefaultExtension}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.dir == "" && cfg.bundle == nil {
		return nil, errors.New("pongo: a template directory or fs.FS is required")
	}

	var loaders []pongo2.TemplateLoader
	if cfg.dir != "" {
		local, err := pongo2.NewLocalFileSystemLoader(cfg.dir)
		if err != nil {
			return nil, fmt.Errorf("pongo: template dir %s: %w", cfg.dir, err)
		}
		loaders = append(loaders, local)
	}
	if cfg.bundle != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.bundle))
	}

	e := &Engine{
		set:   pongo2.NewSet("formgrid", loaders...),
		cache: make(map[string]*pongo2.Template),
		ext:   cfg.ext,
	}
	e.set.Globals = pongo2.Context{}
	for name, fn := range cfg.funcs {
		if err := e.register(name, fn); err != nil {
			return nil, err
		}
	}
	if err := e.GlobalContext(cfg.globals); err != nil {
		return nil, err
	}
	return e, nil
}

// RenderTemplate executes the template called name with data and copies the
// result to every writer in out.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if !strings.HasSuffix(name, e.ext) {
		name += e.ext
	}
	tmpl, err := e.lookup(name)
	if err != nil {
		return "", err
	}
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("pongo: %s: convert data: %w", name, err)
	}

	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(ctx, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("pongo: execute %s: %w", name, err)
	}
	for _, w := range out {
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// GlobalContext merges data into the values visible to every template. Later
// calls overwrite earlier keys.
func (e *Engine) GlobalContext(data any) error {
	if data == nil {
		return nil
	}
	ctx, err := toContext(data)
	if err != nil {
		return fmt.Errorf("pongo: global data: %w", err)
	}
	e.mu.Lock()
	e.set.Globals.Update(ctx)
	e.mu.Unlock()
	return nil
}

func (e *Engine) lookup(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.cache[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.cache[name]; ok {
		return tmpl, nil
	}
	filters.RLock()
	tmpl, err := e.set.FromFile(name)
	filters.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("pongo: load %s: %w", name, err)
	}
	e.cache[name] = tmpl
	return tmpl, nil
}

// register installs fn. pongo2 filters are process wide, so a filter name
// that already exists is left as is.
func (e *Engine) register(name string, fn any) error {
	var filter pongo2.FilterFunction
	switch typed := fn.(type) {
	case pongo2.FilterFunction:
		filter = typed
	case func(*pongo2.Value, *pongo2.Value) (*pongo2.Value, *pongo2.Error):
		filter = typed
	case func(any) string:
		filter = func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
			return pongo2.AsValue(typed(in.Interface())), nil
		}
	case func(any) any:
		filter = func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
			return pongo2.AsValue(typed(in.Interface())), nil
		}
	default:
		if reflect.ValueOf(fn).Kind() != reflect.Func {
			return fmt.Errorf("pongo: template func %q is not a function", name)
		}
		e.set.Globals[name] = fn
		return nil
	}
	filters.Lock()
	defer filters.Unlock()
	if pongo2.FilterExists(name) {
		return nil
	}
	if err := pongo2.RegisterFilter(name, filter); err != nil {
		return fmt.Errorf("pongo: register filter %q: %w", name, err)
	}
	return nil
}

func toContext(data any) (pongo2.Context, error) {
	switch typed := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return plainMap(typed)
	case map[string]any:
		return plainMap(typed)
	}
	decoded, err := roundTrip(data)
	if err != nil {
		return nil, err
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("template data must be an object, got %T", data)
	}
	return pongo2.Context(m), nil
}

// plainMap converts every value to JSON shapes except functions, which stay
// callable from templates.
func plainMap(in map[string]any) (pongo2.Context, error) {
	out := make(pongo2.Context, len(in))
	for key, value := range in {
		if value != nil && reflect.ValueOf(value).Kind() == reflect.Func {
			out[key] = value
			continue
		}
		decoded, err := roundTrip(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = decoded
	}
	return out, nil
}

func roundTrip(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
