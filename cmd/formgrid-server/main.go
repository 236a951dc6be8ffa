// Command formgrid-server serves the demo forms and grids over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formgrid"
	"github.com/goliatone/go-formgrid/internal/server"
	"github.com/goliatone/go-formgrid/pkg/config"
	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "formgrid-server:", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)
	cmd := &cobra.Command{
		Use:          "formgrid-server",
		Short:        "Serve schema-driven forms and grids",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger, err := logging.New(cfg.Log, os.Stderr)
			if err != nil {
				return err
			}

			store, closer, err := formgrid.NewStore(cmd.Context(), cfg.Store.Path, filter.WithStoreLogger(logger))
			if err != nil {
				return err
			}
			defer closer.Close()

			srv, err := server.New(cfg, server.WithLogger(logger), server.WithStore(store))
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "formgrid.toml", "configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "override server.addr")
	return cmd
}
