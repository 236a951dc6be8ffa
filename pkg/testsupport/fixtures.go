// Package testsupport holds fixtures, golden helpers and fake collaborators
// shared by the package tests.
package testsupport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/schema"
)

// LoadDocument parses a schema fixture, failing the test on error.
func LoadDocument(t *testing.T, path string) schema.Document {
	t.Helper()

	doc, err := LoadDocumentFromPath(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// LoadDocumentFromPath parses a schema fixture without a testing.T so setup
// code can use it.
func LoadDocumentFromPath(path string) (schema.Document, error) {
	if path == "" {
		return schema.Document{}, errors.New("testsupport: document path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Document{}, fmt.Errorf("testsupport: read document: %w", err)
	}
	doc, err := schema.ParseDocument(data, filepath.Base(path))
	if err != nil {
		return schema.Document{}, fmt.Errorf("testsupport: parse document: %w", err)
	}
	return doc, nil
}

// MustForm returns a named form from a parsed document.
func MustForm(t *testing.T, doc schema.Document, id string) schema.Form {
	t.Helper()
	form, ok := doc.Forms[id]
	if !ok {
		t.Fatalf("form %q not found in fixture", id)
	}
	return form
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CaptureTemplateOutput executes a render function that writes to an
// io.Writer, returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}

// Call records one request made to a FakeClient.
type Call struct {
	Method string
	URL    string
	Body   any
}

// FakeClient is a client.Client answering from a responder function and
// recording every call.
type FakeClient struct {
	Respond func(method, url string, body any) (any, error)

	mu    sync.Mutex
	calls []Call
}

var _ client.Client = (*FakeClient)(nil)

// Get implements client.Client.
func (f *FakeClient) Get(_ context.Context, url string) (any, error) {
	return f.record("GET", url, nil)
}

// Post implements client.Client.
func (f *FakeClient) Post(_ context.Context, url string, body any) (any, error) {
	return f.record("POST", url, body)
}

func (f *FakeClient) record(method, url string, body any) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, URL: url, Body: body})
	respond := f.Respond
	f.mu.Unlock()
	if respond == nil {
		return map[string]any{}, nil
	}
	return respond(method, url, body)
}

// Calls returns a copy of the recorded calls.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// GridPage builds a grid response payload wrapped in a data envelope.
func GridPage(total int, headers []schema.Column, rows ...map[string]any) map[string]any {
	list := make([]any, 0, len(rows))
	for _, row := range rows {
		list = append(list, row)
	}
	hdrs := make([]any, 0, len(headers))
	for _, column := range headers {
		entry := map[string]any{
			"title":        column.Title,
			"field":        column.Field,
			"sortKey":      column.SortKey,
			"isPrimaryKey": column.IsPrimaryKey,
		}
		if column.Display != nil {
			entry["display"] = *column.Display
		}
		if column.Type != "" {
			entry["type"] = column.Type
		}
		hdrs = append(hdrs, entry)
	}
	return map[string]any{"data": map[string]any{
		"list":       list,
		"headers":    hdrs,
		"totalCount": float64(total),
	}}
}
