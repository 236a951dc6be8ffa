package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

type fakeUploader struct {
	mu    sync.Mutex
	urls  []string
	names []string
	fail  string
}

func (f *fakeUploader) Upload(_ context.Context, url, field, filename string, content io.Reader) (any, error) {
	body, _ := io.ReadAll(content)
	f.mu.Lock()
	f.urls = append(f.urls, url+"#"+field)
	f.names = append(f.names, filename)
	f.mu.Unlock()
	if filename == f.fail {
		return nil, &widgeterr.NetworkError{Op: "POST", URL: url, Status: 500}
	}
	return map[string]any{"data": map[string]any{"original_name": filename, "size": float64(len(body))}}, nil
}

func file(name string, size int64) File {
	return File{Name: name, Size: size, Content: strings.NewReader(strings.Repeat("x", int(size)))}
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := New("", &fakeUploader{}); !widgeterr.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	u, err := New("https://api.example.com/", &fakeUploader{})
	if err != nil || u.URL() != "https://api.example.com/uploads" {
		t.Fatalf("unexpected uploader %v %v", u, err)
	}
}

func TestSingleFileReplacesValue(t *testing.T) {
	t.Parallel()

	fake := &fakeUploader{}
	u, _ := New("/api/", fake)
	field := schema.Field{Name: "avatar", Type: schema.KindFile, MaxSize: 10}

	got, err := u.Upload(context.Background(), field, "old", []File{file("a.png", 4)})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	want := map[string]any{"original_name": "a.png", "size": 4.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/api/uploads#file"}, fake.urls); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestConstraintsAbortBeforeDispatch(t *testing.T) {
	t.Parallel()

	fake := &fakeUploader{}
	u, _ := New("/api/", fake)
	ctx := context.Background()

	single := schema.Field{Name: "avatar", Type: schema.KindFile, MaxSize: 2 * 1024 * 1024}
	_, err := u.Upload(ctx, single, "", []File{file("big.png", 3*1024*1024)})
	var constraint *widgeterr.UploadConstraintError
	if !errors.As(err, &constraint) || constraint.Message != "File size must not exceed 2 MB" {
		t.Fatalf("unexpected error %v", err)
	}

	multi := schema.Field{Name: "docs", Type: schema.KindMultiFile, MaxFiles: 2, MaxSize: 1536}
	_, err = u.Upload(ctx, multi, []any{"existing"}, []File{file("a", 1), file("b", 1)})
	if !errors.As(err, &constraint) || constraint.Message != "Maximum 2 files allowed" {
		t.Fatalf("unexpected error %v", err)
	}
	_, err = u.Upload(ctx, multi, nil, []File{file("a", 1), file("b", 2048)})
	if !errors.As(err, &constraint) || constraint.Message != "Each file must not exceed 1.5 KB" {
		t.Fatalf("unexpected error %v", err)
	}
	if len(fake.urls) != 0 {
		t.Fatalf("no upload may be dispatched, got %v", fake.urls)
	}
}

func TestMultiFileAppendsInOrder(t *testing.T) {
	t.Parallel()

	u, _ := New("/api/", &fakeUploader{}, WithConcurrency(2))
	field := schema.Field{Name: "docs", Type: schema.KindMultiFile, MaxFiles: 5}
	got, err := u.Upload(context.Background(), field, []any{"first"}, []File{file("a", 1), file("b", 2), file("c", 3)})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	list := got.([]any)
	if len(list) != 4 || list[0] != "first" {
		t.Fatalf("unexpected list %#v", list)
	}
	for idx, name := range []string{"a", "b", "c"} {
		if list[idx+1].(map[string]any)["original_name"] != name {
			t.Fatalf("result %d out of order: %#v", idx, list[idx+1])
		}
	}
}

func TestMultiFileFailureKeepsCurrentValue(t *testing.T) {
	t.Parallel()

	u, _ := New("/api/", &fakeUploader{fail: "b"})
	field := schema.Field{Name: "docs", Type: schema.KindMultiFile}
	got, err := u.Upload(context.Background(), field, []any{"first"}, []File{file("a", 1), file("b", 1)})
	if !widgeterr.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if diff := cmp.Diff([]any{"first"}, got); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveAndFormat(t *testing.T) {
	t.Parallel()

	multi := schema.Field{Name: "docs", Type: schema.KindMultiFile}
	if diff := cmp.Diff([]any{"a", "c"}, Remove(multi, []any{"a", "b", "c"}, 1)); diff != "" {
		t.Fatalf("remove mismatch (-want +got):\n%s", diff)
	}
	if got := Remove(schema.Field{Type: schema.KindFile}, "x", 0); got != "" {
		t.Fatalf("single remove = %#v", got)
	}

	cases := map[int64]string{0: "0 Bytes", 512: "512 Bytes", 1024: "1 KB", 1536: "1.5 KB", 5 * 1024 * 1024: "5 MB", 3 * 1024 * 1024 * 1024: "3 GB"}
	for bytes, want := range cases {
		if got := FormatFileSize(bytes); got != want {
			t.Fatalf("FormatFileSize(%d) = %q, want %q", bytes, got, want)
		}
	}
}
