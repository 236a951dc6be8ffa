package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formgrid"
	"github.com/goliatone/go-formgrid/pkg/form"
	"github.com/goliatone/go-formgrid/pkg/render"
	"github.com/goliatone/go-formgrid/pkg/renderers/vanilla"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		formID    string
		operation string
		renderer  string
		templates string
	)
	cmd := &cobra.Command{
		Use:   "render <schema>",
		Short: "Render a form's initial state as HTML or text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := loadForm(ctx, args[0], formID, operation)
			if err != nil {
				return err
			}
			engine, err := form.New(doc, form.WithLogger(a.logger))
			if err != nil {
				return err
			}
			registry, err := formgrid.NewRenderers(vanilla.WithTemplatesDir(templates))
			if err != nil {
				return err
			}
			r, err := registry.Get(renderer)
			if err != nil {
				return err
			}
			out, err := r.RenderForm(ctx, render.FormViewOf(engine), render.Options{})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&formID, "form", "", "form id when the document holds several")
	cmd.Flags().StringVar(&operation, "operation", "", "treat the schema as an OpenAPI document and use this operation")
	cmd.Flags().StringVar(&renderer, "renderer", vanilla.Name, "renderer name (vanilla or text)")
	cmd.Flags().StringVar(&templates, "templates", "", "directory overriding the embedded HTML templates")
	return cmd
}
