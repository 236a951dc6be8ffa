package text

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formgrid/pkg/grid"
	"github.com/goliatone/go-formgrid/pkg/render"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/testsupport"
)

func TestRenderGridFromEngineMatchesGolden(t *testing.T) {
	t.Parallel()

	headers := []schema.Column{
		{Title: "ID", Field: "id", IsPrimaryKey: true},
		{Title: "Name", Field: "name", SortKey: "name"},
	}
	fake := &testsupport.FakeClient{Respond: func(_, _ string, _ any) (any, error) {
		return testsupport.GridPage(2, headers,
			map[string]any{"id": 1.0, "name": "Ada"},
			map[string]any{"id": 2.0, "name": "Grace"},
		), nil
	}}
	engine, err := grid.New("api/users", fake, grid.WithoutPersistence())
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.FetchPage(ctx, 0); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if err := engine.SortBy(ctx, "name"); err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	calls := fake.Calls()
	if len(calls) != 2 || calls[1].Method != "POST" || !strings.Contains(calls[1].URL, "sort_key=name") {
		t.Fatalf("unexpected calls %+v", calls)
	}

	out, err := New(nil).RenderGrid(ctx, render.GridViewOf(engine, schema.Grid{}), render.Options{})
	if err != nil {
		t.Fatalf("RenderGrid: %v", err)
	}

	golden := filepath.Join("testdata", "grid.golden")
	if testsupport.WriteMaybeGolden(t, golden, out) {
		return
	}
	if diff := testsupport.CompareGolden(testsupport.MustReadGoldenString(t, golden), string(out)); diff != "" {
		t.Fatalf("golden mismatch (-want +got):\n%s", diff)
	}
}
