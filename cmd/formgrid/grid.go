package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formgrid"
	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/grid"
	"github.com/goliatone/go-formgrid/pkg/notify"
	"github.com/goliatone/go-formgrid/pkg/render"
	"github.com/goliatone/go-formgrid/pkg/renderers/text"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgets"
)

type gridFlags struct {
	endpoint string
	title    string
	page     int
	pageSize int
	sortKey  []string
	filters  []string
	clear    bool
	export   bool
	hide     []string
}

func newGridCmd(a *app) *cobra.Command {
	var f gridFlags
	cmd := &cobra.Command{
		Use:   "grid <base-url>",
		Short: "Fetch one page from a grid endpoint and print it as a table",
		Long: "Fetch one page from a grid endpoint and print it as a table.\n\n" +
			"Filters use the endpoint's search form: text fields take a value\n" +
			"(name=ada or name~=ada for equals), checkbox groups a comma list\n" +
			"(status=approved,pending) and date ranges from..to.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGrid(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "api/users", "grid endpoint relative to the base URL")
	cmd.Flags().StringVar(&f.title, "title", "", "title printed above the table")
	cmd.Flags().IntVar(&f.page, "page", 1, "page to show")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page (config grid.page_size when 0)")
	cmd.Flags().StringArrayVar(&f.sortKey, "sort", nil, "sort by column; repeat to toggle direction")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "filter as field=value (repeatable)")
	cmd.Flags().BoolVar(&f.clear, "clear", false, "clear stored filters before applying --filter")
	cmd.Flags().BoolVar(&f.export, "export", false, "request a CSV export and print its URL")
	cmd.Flags().StringArrayVar(&f.hide, "hide", nil, "hide a column (repeatable)")
	return cmd
}

func (a *app) runGrid(cmd *cobra.Command, baseURL string, f gridFlags) error {
	ctx := cmd.Context()
	store, closer, err := formgrid.NewStore(ctx, a.cfg.Store.Path, filter.WithStoreLogger(a.logger))
	if err != nil {
		return err
	}
	defer closer.Close()

	pageSize := f.pageSize
	if pageSize <= 0 {
		pageSize = a.cfg.Grid.PageSize
	}
	engine, err := grid.New(f.endpoint, client.NewHTTP(baseURL),
		grid.WithStore(store),
		grid.WithPageSize(pageSize),
		grid.WithLogger(a.logger),
		grid.WithNotifier(notify.NewLogger(a.logger)),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.FetchPage(ctx, 0); err != nil {
		return err
	}
	if f.clear {
		engine.Filters().ClearAll(ctx)
	}
	if err := applyFilters(ctx, engine.Filters(), f.filters); err != nil {
		return err
	}
	for _, key := range f.sortKey {
		if err := engine.SortBy(ctx, key); err != nil {
			return err
		}
	}
	for _, field := range f.hide {
		if err := engine.SetColumnVisible(ctx, field, false); err != nil {
			return err
		}
	}
	if f.page > 1 {
		if err := engine.SetPage(ctx, f.page); err != nil {
			return err
		}
	}

	view := render.GridViewOf(engine, schema.Grid{Title: f.title})
	out, err := text.New(widgets.NewRegistry()).RenderGrid(ctx, view, render.Options{})
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return err
	}

	if f.export {
		fileURL, err := engine.Export(ctx)
		if err != nil {
			return err
		}
		if fileURL == "" {
			return fmt.Errorf("export failed, see log")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Export:", fileURL)
		return err
	}
	return nil
}

// applyFilters commits each field=value flag through the filter engine using
// the catalogue the endpoint advertised.
func applyFilters(ctx context.Context, filters *filter.Engine, raw []string) error {
	if len(raw) == 0 {
		return nil
	}
	catalogue := filters.Catalogue()
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return fmt.Errorf("expected field=value, got %q", item)
		}
		operator := filter.OpContains
		if strings.HasSuffix(key, "~") {
			key, operator = strings.TrimSuffix(key, "~"), filter.OpEquals
		}
		key = strings.TrimSpace(key)

		def, ok := catalogue[key]
		if !ok {
			return fmt.Errorf("unknown filter %q, available: %s", key, strings.Join(catalogueKeys(catalogue), ", "))
		}
		scratch := filter.Scratch{Operator: operator, Value: value}
		switch {
		case def.FieldType.IsGroup():
			scratch.Checked = strings.Split(value, ",")
		case def.FieldType.IsDateRange():
			from, to, _ := strings.Cut(value, "..")
			scratch.Range = schema.DateRange{From: from, To: to}
		}
		if _, err := filters.ApplyRule(ctx, key, scratch); err != nil {
			return err
		}
	}
	return nil
}

func catalogueKeys(catalogue schema.Catalogue) []string {
	keys := make([]string, 0, len(catalogue))
	for key := range catalogue {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
