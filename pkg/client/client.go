// Package client defines the data-access contract the form and grid engines
// require from their host, and an HTTP implementation of it.
package client

import (
	"context"
	"io"
)

// Client is the injected data-access collaborator. Responses are decoded JSON
// (maps, slices, scalars) either carrying the payload directly or wrapping it
// under a "data" key; use Unwrap to normalise.
type Client interface {
	Get(ctx context.Context, url string) (any, error)
	Post(ctx context.Context, url string, body any) (any, error)
}

// Uploader sends a single file as a multipart form. field names the form part
// carrying the file content.
type Uploader interface {
	Upload(ctx context.Context, url, field, filename string, content io.Reader) (any, error)
}

// Funcs adapts plain functions into a Client. Nil functions fail with
// ErrNotSupported.
type Funcs struct {
	GetFunc  func(ctx context.Context, url string) (any, error)
	PostFunc func(ctx context.Context, url string, body any) (any, error)
}

var _ Client = Funcs{}

// Get delegates to GetFunc.
func (f Funcs) Get(ctx context.Context, url string) (any, error) {
	if f.GetFunc == nil {
		return nil, ErrNotSupported
	}
	return f.GetFunc(ctx, url)
}

// Post delegates to PostFunc.
func (f Funcs) Post(ctx context.Context, url string, body any) (any, error) {
	if f.PostFunc == nil {
		return nil, ErrNotSupported
	}
	return f.PostFunc(ctx, url, body)
}

// Unwrap returns response["data"] when the response is an object carrying a
// data key, and the response itself otherwise.
func Unwrap(response any) any {
	if m, ok := response.(map[string]any); ok {
		if data, exists := m["data"]; exists && data != nil {
			return data
		}
	}
	return response
}
