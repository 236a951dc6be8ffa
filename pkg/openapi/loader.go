package openapi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
)

// LoadOptions configure document loading.
type LoadOptions struct {
	// ResolveReferences allows external $ref targets and validates the
	// document after loading.
	ResolveReferences bool
}

// LoadOption mutates LoadOptions.
type LoadOption func(*LoadOptions)

// WithReferenceResolution enables external references and validation.
func WithReferenceResolution() LoadOption {
	return func(opts *LoadOptions) {
		opts.ResolveReferences = true
	}
}

// Load parses an OpenAPI document from raw JSON or YAML.
func Load(ctx context.Context, data []byte, options ...LoadOption) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	var opts LoadOptions
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = opts.ResolveReferences

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if opts.ResolveReferences {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate: %w", err)
		}
	}
	return doc, nil
}

// LoadFile reads and parses a document from disk.
func LoadFile(ctx context.Context, path string, options ...LoadOption) (*openapi3.T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	return Load(ctx, data, options...)
}

// LoadFS reads and parses a document from an fs.FS.
func LoadFS(ctx context.Context, fsys fs.FS, name string, options ...LoadOption) (*openapi3.T, error) {
	if fsys == nil {
		return nil, errors.New("openapi: filesystem is nil")
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", name, err)
	}
	return Load(ctx, data, options...)
}
