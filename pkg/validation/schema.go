package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/visibility/expr"
)

// SchemaIssue represents a schema problem with optional location metadata.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures the outcome of CheckDocument.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// CheckDocument parses raw as a schema document and reports problems the
// loader tolerates but the engines would trip over at runtime: predicates that
// do not compile or reference unknown fields, choice fields without options,
// inverted numeric bounds and selectable grids without a single primary key.
func CheckDocument(raw []byte, source string) SchemaValidationResult {
	result := SchemaValidationResult{Valid: true}

	doc, err := schema.ParseDocument(raw, source)
	if err != nil {
		result.Valid = false
		result.Issues = []SchemaIssue{{Message: strings.TrimPrefix(err.Error(), "schema: ")}}
		return result
	}

	for _, id := range sortedKeys(doc.Forms) {
		result.Issues = append(result.Issues, checkForm(id, doc.Forms[id])...)
	}
	for _, id := range sortedKeys(doc.Grids) {
		result.Issues = append(result.Issues, checkGrid(id, doc.Grids[id])...)
	}
	result.Valid = len(result.Issues) == 0
	return result
}

func checkForm(id string, form schema.Form) []SchemaIssue {
	var issues []SchemaIssue
	known := make(map[string]struct{})
	for _, field := range form.DataFields() {
		known[field.Name] = struct{}{}
	}

	for idx, field := range form.Fields {
		base := fmt.Sprintf("forms.%s.fields.%d", id, idx)
		for attr, rule := range map[string]schema.Predicate{"showIf": field.ShowIf, "disabled": field.Disabled} {
			if rule.Empty() || rule == "true" || rule == "false" {
				continue
			}
			program, err := expr.Compile(string(rule))
			if err != nil {
				issues = append(issues, SchemaIssue{
					Path:    base + "." + attr,
					Field:   field.Name,
					Message: strings.TrimPrefix(err.Error(), "visibility/expr: "),
				})
				continue
			}
			for _, ident := range program.Identifiers() {
				if strings.Contains(ident, ".") {
					continue
				}
				if _, ok := known[ident]; !ok {
					issues = append(issues, SchemaIssue{
						Path:    base + "." + attr,
						Field:   field.Name,
						Message: fmt.Sprintf("references unknown field %q", ident),
					})
				}
			}
		}

		if field.Type.HasOptions() && len(field.Options) == 0 && strings.TrimSpace(field.OptionsURL) == "" {
			issues = append(issues, SchemaIssue{
				Path:    base + ".options",
				Field:   field.Name,
				Message: fmt.Sprintf("%s field declares neither options nor optionsUrl", field.Type),
			})
		}
		if field.Min != nil && field.Max != nil && *field.Min > *field.Max {
			issues = append(issues, SchemaIssue{
				Path:    base + ".min",
				Field:   field.Name,
				Message: "min is greater than max",
			})
		}
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues
}

func checkGrid(id string, grid schema.Grid) []SchemaIssue {
	if !grid.Selection || len(grid.Columns) == 0 {
		return nil
	}
	if keys := schema.PrimaryKeys(grid.Columns); len(keys) != 1 {
		return []SchemaIssue{{
			Path:    fmt.Sprintf("grids.%s.columns", id),
			Message: fmt.Sprintf("row selection needs exactly one primary key column, found %d", len(keys)),
		}}
	}
	return nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
