package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formgrid/pkg/config"
	"github.com/goliatone/go-formgrid/pkg/logging"
	"github.com/goliatone/go-formgrid/pkg/openapi"
	"github.com/goliatone/go-formgrid/pkg/schema"
)

// app carries what every subcommand needs after flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "formgrid",
		Short:         "Schema-driven forms and data grids",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "formgrid.toml", "configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level")

	root.AddCommand(newFormCmd(a), newGridCmd(a), newLintCmd(a), newRenderCmd(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

// loadForm reads one form from a schema document, or from an OpenAPI
// document when operation is set. id may be empty when the document holds a
// single form.
func loadForm(ctx context.Context, path, id, operation string) (schema.Form, error) {
	if operation != "" {
		doc, err := openapi.LoadFile(ctx, path)
		if err != nil {
			return schema.Form{}, err
		}
		return openapi.FormFromOperation(doc, operation)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Form{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := schema.ParseDocument(data, filepath.Base(path))
	if err != nil {
		return schema.Form{}, err
	}
	if id != "" {
		form, ok := doc.Forms[id]
		if !ok {
			return schema.Form{}, fmt.Errorf("form %q not found in %s", id, path)
		}
		return form, nil
	}
	if len(doc.Forms) != 1 {
		ids := make([]string, 0, len(doc.Forms))
		for formID := range doc.Forms {
			ids = append(ids, formID)
		}
		sort.Strings(ids)
		return schema.Form{}, fmt.Errorf("%s defines %d forms, pick one with --form (%s)", path, len(ids), strings.Join(ids, ", "))
	}
	for _, form := range doc.Forms {
		return form, nil
	}
	return schema.Form{}, nil
}

// parseAssignments turns repeated key=value flags into a map.
func parseAssignments(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", item)
		}
		out[key] = value
	}
	return out, nil
}
