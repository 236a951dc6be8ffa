package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formgrid/pkg/validation"
)

func newLintCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "lint <schema>...",
		Short: "Check schema documents for problems the engines would hit at runtime",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make(map[string]validation.SchemaValidationResult, len(args))
			failed := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				result := validation.CheckDocument(data, path)
				results[path] = result
				if !result.Valid {
					failed++
				}
				a.logger.WithField("file", path).WithField("issues", len(result.Issues)).Debug("lint: checked")
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				for _, path := range args {
					result := results[path]
					if result.Valid {
						fmt.Fprintf(out, "%s: ok\n", path)
						continue
					}
					for _, issue := range result.Issues {
						location := issue.Path
						if issue.Field != "" {
							location += "." + issue.Field
						}
						if location == "" {
							fmt.Fprintf(out, "%s: %s\n", path, issue.Message)
						} else {
							fmt.Fprintf(out, "%s: %s: %s\n", path, location, issue.Message)
						}
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents have issues", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
