// Package formgrid is the entry point for embedding the form and grid
// engines: constructors for both widgets, the shared filter store and the
// built-in renderers.
package formgrid

import (
	"context"
	"io"
	"io/fs"

	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/filter/boltstore"
	"github.com/goliatone/go-formgrid/pkg/form"
	"github.com/goliatone/go-formgrid/pkg/grid"
	"github.com/goliatone/go-formgrid/pkg/render"
	"github.com/goliatone/go-formgrid/pkg/renderers/text"
	"github.com/goliatone/go-formgrid/pkg/renderers/vanilla"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgets"
)

// NewForm builds a form engine for schema. Call Mount on the result before
// rendering when fields declare remote options.
func NewForm(doc schema.Form, options ...form.Option) (*form.Engine, error) {
	return form.New(doc, options...)
}

// NewGrid builds a grid engine for endpoint.
func NewGrid(endpoint string, c client.Client, options ...grid.Option) (*grid.Engine, error) {
	return grid.New(endpoint, c, options...)
}

// NewGridFromSchema builds a grid engine from a grid document sharing store.
// A document that opts out of persisted filters gets a private store.
func NewGridFromSchema(doc schema.Grid, c client.Client, store *filter.Store, options ...grid.Option) (*grid.Engine, error) {
	base := []grid.Option{grid.WithSchema(doc)}
	if store != nil {
		base = append(base, grid.WithStore(store))
	}
	return grid.New(doc.Endpoint, c, append(base, options...)...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewStore returns the filter store shared by grids. An empty path keeps
// filter state in memory; otherwise state is persisted in a bbolt file and
// restored on the next start. The closer releases the file.
func NewStore(ctx context.Context, path string, options ...filter.StoreOption) (*filter.Store, io.Closer, error) {
	if path == "" {
		return filter.NewStore(options...), nopCloser{}, nil
	}
	store, db, err := boltstore.OpenStore(ctx, path, options...)
	if err != nil {
		return nil, nil, err
	}
	return store, db, nil
}

// LoadSchemas parses every form and grid document in fsys.
func LoadSchemas(fsys fs.FS) (*schema.Catalog, error) {
	return schema.LoadFS(fsys)
}

// NewRenderers returns a registry holding the HTML and plain-text renderers
// sharing one widget registry.
func NewRenderers(options ...vanilla.Option) (*render.Registry, error) {
	reg := widgets.NewRegistry()
	html, err := vanilla.New(append([]vanilla.Option{vanilla.WithWidgets(reg)}, options...)...)
	if err != nil {
		return nil, err
	}
	return render.NewRegistry(html, text.New(reg))
}

// EmbeddedTemplates exposes the built-in HTML templates so callers can reuse
// or extend them.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the stylesheet the HTML renderer links to.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(formgrid.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
