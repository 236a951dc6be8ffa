package formgrid

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

func TestNewStorePersistsFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "filters.db")

	store, closer, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	set := filter.Set{"name": {FieldType: schema.FilterText, Title: "Name", Operator: filter.OpContains, Value: "ada"}}
	store.SetFilter(ctx, "api/users", set)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, closer, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer closer.Close()
	if diff := cmp.Diff(set, reopened.Filter("api/users")); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestNewStoreInMemory(t *testing.T) {
	t.Parallel()

	store, closer, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store == nil || closer.Close() != nil {
		t.Fatalf("expected an in-memory store")
	}
}

func TestNewGridFromSchemaRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := NewGridFromSchema(schema.Grid{Endpoint: "api/users"}, nil, nil)
	if !widgeterr.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	stub := client.Funcs{PostFunc: func(context.Context, string, any) (any, error) { return map[string]any{}, nil }}
	store, _, _ := NewStore(context.Background(), "")
	engine, err := NewGridFromSchema(schema.Grid{Endpoint: "api/users", PageSize: 50}, stub, store)
	if err != nil {
		t.Fatalf("NewGridFromSchema: %v", err)
	}
	defer engine.Close()
	if engine.Store() != store || engine.Snapshot().PageSize != 50 {
		t.Fatalf("grid did not pick up the document settings")
	}
}

func TestNewRenderersRegistersBuiltins(t *testing.T) {
	t.Parallel()

	reg, err := NewRenderers()
	if err != nil {
		t.Fatalf("NewRenderers: %v", err)
	}
	if diff := cmp.Diff([]string{"text", "vanilla"}, reg.List()); diff != "" {
		t.Fatalf("renderers mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbeddedFiles(t *testing.T) {
	t.Parallel()

	if _, err := fs.Stat(EmbeddedTemplates(), "templates/form.tpl"); err != nil {
		t.Fatalf("form template missing: %v", err)
	}
	if _, err := fs.Stat(AssetsFS(), "formgrid.css"); err != nil {
		t.Fatalf("stylesheet missing: %v", err)
	}
}

func TestNewFormRejectsUnknownKinds(t *testing.T) {
	t.Parallel()

	if _, err := NewForm(schema.Form{Fields: []schema.Field{{Name: "x", Type: "slider"}}}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
