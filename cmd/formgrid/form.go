package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/form"
	"github.com/goliatone/go-formgrid/pkg/notify"
	"github.com/goliatone/go-formgrid/pkg/renderers/tui"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/upload"
)

func newFormCmd(a *app) *cobra.Command {
	var (
		formID    string
		operation string
		format    string
		baseURL   string
		defaults  []string
	)
	cmd := &cobra.Command{
		Use:   "form <schema>",
		Short: "Fill in a form interactively and print the submitted values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := loadForm(ctx, args[0], formID, operation)
			if err != nil {
				return err
			}
			assigned, err := parseAssignments(defaults)
			if err != nil {
				return err
			}
			values := make(schema.Values, len(assigned))
			for key, value := range assigned {
				values[key] = value
			}

			if baseURL == "" {
				baseURL = a.cfg.Server.BaseURL
			}
			opts := []form.Option{
				form.WithDefaults(values),
				form.WithLogger(a.logger),
				form.WithNotifier(notify.NewLogger(a.logger)),
			}
			if baseURL != "" {
				if !strings.HasSuffix(baseURL, "/") {
					baseURL += "/"
				}
				c := client.NewHTTP(baseURL)
				uploader, err := upload.New(baseURL, c, upload.WithLogger(a.logger), upload.WithConcurrency(a.cfg.Upload.Concurrency))
				if err != nil {
					return err
				}
				opts = append(opts, form.WithClient(c), form.WithUploader(uploader))
			}

			engine, err := form.New(doc, opts...)
			if err != nil {
				return err
			}
			renderer, err := tui.New(
				tui.WithPromptDriver(tui.NewSurveyDriver(cmd.ErrOrStderr())),
				tui.WithOutputFormat(tui.OutputFormat(format)),
				tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
			)
			if err != nil {
				return err
			}
			out, err := renderer.Run(ctx, engine)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
			return err
		},
	}
	cmd.Flags().StringVar(&formID, "form", "", "form id when the document holds several")
	cmd.Flags().StringVar(&operation, "operation", "", "treat the schema as an OpenAPI document and use this operation")
	cmd.Flags().StringVar(&format, "format", string(tui.OutputFormatJSON), "output format: json, form or pretty")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base for remote options and uploads")
	cmd.Flags().StringArrayVar(&defaults, "set", nil, "initial value as name=value (repeatable)")
	return cmd
}
