package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

func TestHTTPPostEncodesBodyAndDecodesResponse(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/users" || r.URL.Query().Get("page") != "2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		if r.Header.Get("X-Token") != "secret" {
			t.Errorf("missing header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"data":{"list":[{"id":1}],"totalCount":1}}`)
	}))
	defer server.Close()

	c := NewHTTP(server.URL+"/", WithHeader("X-Token", "secret"))
	resp, err := c.Post(context.Background(), "/api/users?page=2", map[string]any{"filter": map[string]any{}})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if _, ok := gotBody["filter"]; !ok {
		t.Fatalf("expected filter in body, got %#v", gotBody)
	}
	want := map[string]any{"list": []any{map[string]any{"id": 1.0}}, "totalCount": 1.0}
	if diff := cmp.Diff(want, Unwrap(resp)); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPNon2xxIsNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"message":"upstream down"}`)
	}))
	defer server.Close()

	_, err := NewHTTP(server.URL).Get(context.Background(), "options")
	if !widgeterr.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestHTTPUploadSendsMultipartFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		_ = json.NewEncoder(w).Encode(map[string]any{"name": header.Filename, "size": len(body)})
	}))
	defer server.Close()

	resp, err := NewHTTP(server.URL).Upload(context.Background(), "uploads", "file", "a.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	want := map[string]any{"name": "a.txt", "size": 5.0}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Fatalf("upload response mismatch (-want +got):\n%s", diff)
	}
}

func TestUnwrapAndFuncs(t *testing.T) {
	t.Parallel()

	if got := Unwrap([]any{1.0}); len(got.([]any)) != 1 {
		t.Fatalf("flat payload should pass through")
	}
	if _, err := (Funcs{}).Get(context.Background(), "x"); err != ErrNotSupported {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
	if got := NewHTTP("http://h/api/").Resolve("https://other/x"); got != "https://other/x" {
		t.Fatalf("absolute url rewritten: %q", got)
	}
}
