// Package server wires the form and grid engines into a small HTTP
// application: server-rendered forms and grids backed by the demo user API,
// the options endpoint and the upload store.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid"
	"github.com/goliatone/go-formgrid/components/options"
	"github.com/goliatone/go-formgrid/internal/demo"
	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/config"
	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/grid"
	"github.com/goliatone/go-formgrid/pkg/openapi"
	"github.com/goliatone/go-formgrid/pkg/render"
	"github.com/goliatone/go-formgrid/pkg/renderers/vanilla"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/upload"
)

const shutdownTimeout = 5 * time.Second

// Server serves forms and grids from a schema catalog.
//
// Grid engines are created on first use and kept for the life of the server,
// so paging, sorting and filtering state is shared by every visitor.
type Server struct {
	cfg      config.Config
	base     string
	logger   logrus.FieldLogger
	catalog  *schema.Catalog
	store    *filter.Store
	renderer render.Renderer
	client   *client.HTTP
	uploader *upload.Uploader
	api      *demo.API
	uploads  *demo.Uploads

	mu    sync.Mutex
	grids map[string]*grid.Engine
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the logger used by the server and the engines it creates.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore shares a filter store with the grid engines.
func WithStore(store *filter.Store) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalog replaces the built-in demo schemas.
func WithCatalog(catalog *schema.Catalog) Option {
	return func(s *Server) {
		if catalog != nil {
			s.catalog = catalog
		}
	}
}

// New assembles a server from cfg. The engines talk back to the server
// through cfg.Server.BaseURL, which defaults to localhost on the listen
// address.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logrus.StandardLogger(),
		grids:  make(map[string]*grid.Engine),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.base = baseURL(cfg.Server)
	if s.store == nil {
		s.store = filter.NewStore(filter.WithStoreLogger(s.logger))
	}
	if s.catalog == nil {
		catalog, err := loadCatalog(context.Background(), cfg.Server)
		if err != nil {
			return nil, err
		}
		s.catalog = catalog
	}

	renderers, err := formgrid.NewRenderers(vanilla.WithTemplatesDir(cfg.Server.TemplatesDir))
	if err != nil {
		return nil, err
	}
	if s.renderer, err = renderers.Get(vanilla.Name); err != nil {
		return nil, err
	}

	s.client = client.NewHTTP(s.base, client.WithTimeout(cfg.Server.ReadTimeout))
	s.uploader, err = upload.New(s.base, s.client,
		upload.WithLogger(s.logger),
		upload.WithConcurrency(cfg.Upload.Concurrency),
	)
	if err != nil {
		return nil, err
	}

	root := strings.TrimRight(s.base, "/")
	exportBase := cfg.Grid.ExportBaseURL
	if exportBase == "" {
		exportBase = root
	}
	s.api = demo.NewAPI(demo.NewDataset(cfg.Grid.DemoRecords), exportBase, s.logger)
	if s.uploads, err = demo.NewUploads(cfg.Upload.Dir, root, cfg.Upload.MaxSize, s.logger); err != nil {
		return nil, err
	}
	return s, nil
}

func baseURL(cfg config.ServerConfig) string {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		addr := cfg.Addr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		base = "http://" + addr
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// loadCatalog reads the embedded demo schemas, then the schema directory and
// the OpenAPI document when configured.
func loadCatalog(ctx context.Context, cfg config.ServerConfig) (*schema.Catalog, error) {
	catalog, err := formgrid.LoadSchemas(demo.Schemas())
	if err != nil {
		return nil, err
	}
	if cfg.SchemaDir != "" {
		fsys := os.DirFS(cfg.SchemaDir)
		err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			switch strings.ToLower(path.Ext(name)) {
			case ".json", ".yaml", ".yml":
			default:
				return nil
			}
			if entry.IsDir() {
				return nil
			}
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return err
			}
			doc, err := schema.ParseDocument(data, name)
			if err != nil {
				return err
			}
			return catalog.Add(doc, name)
		})
		if err != nil {
			return nil, fmt.Errorf("server: schema dir %s: %w", cfg.SchemaDir, err)
		}
	}
	if cfg.OpenAPI != "" {
		api, err := openapi.LoadFile(ctx, cfg.OpenAPI)
		if err != nil {
			return nil, err
		}
		doc, err := openapi.Document(api)
		if err != nil {
			return nil, err
		}
		if err := catalog.Add(doc, cfg.OpenAPI); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// Catalog returns the schemas the server serves.
func (s *Server) Catalog() *schema.Catalog { return s.catalog }

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", s.index)
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(formgrid.AssetsFS()))))

	s.api.RegisterRoutes(r)
	s.uploads.RegisterRoutes(r)
	roles := options.New(
		options.WithRoutePath("/api/options/roles"),
		options.WithSource(options.Static(demo.RoleOptions())),
	)
	if _, err := roles.RegisterRoutes(r, ""); err != nil {
		s.logger.WithError(err).Error("server: options route")
	}

	r.Route("/forms/{id}", func(r chi.Router) {
		r.Get("/", s.showForm)
		r.Post("/", s.submitForm)
	})
	r.Route("/grids/{id}", func(r chi.Router) {
		r.Get("/", s.showGrid)
		r.Get("/export", s.exportGrid)
		r.Post("/filters", s.applyFilter)
		r.Post("/filters/clear", s.clearFilters)
		r.Post("/filters/{key}/remove", s.removeFilter)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
			"request":  middleware.GetReqID(r.Context()),
		}).Debug("server: request")
	})
}

// Run listens on cfg.Server.Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Warn("server: shutdown")
		}
	}()

	s.logger.WithFields(logrus.Fields{
		"addr":  s.cfg.Server.Addr,
		"forms": len(s.catalog.FormIDs()),
		"grids": len(s.catalog.GridIDs()),
	}).Info("server: listening")
	err := srv.ListenAndServe()
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close detaches every grid engine from the filter store.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, engine := range s.grids {
		engine.Close()
		delete(s.grids, id)
	}
}
