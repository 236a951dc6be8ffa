package vanilla

import (
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

func controlID(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return "fg-" + trimmed
}

func labelID(name string) string {
	id := controlID(name)
	if id == "" {
		return ""
	}
	return id + "-label"
}

// sanitizeClassList drops the fg- prefix reserved for generated ids.
func sanitizeClassList(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	tokens := strings.Fields(value)
	keep := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.HasPrefix(token, "fg-") {
			continue
		}
		keep = append(keep, token)
	}
	return strings.Join(keep, " ")
}

// labelSupportsFor reports whether the label can point at a single control.
// Grouped controls are labelled through aria-labelledby instead.
func labelSupportsFor(kind schema.Kind) bool {
	switch kind {
	case schema.KindRadioGroup, schema.KindDateRange, schema.KindMultiFile:
		return false
	default:
		return true
	}
}

// themeAttributes turns a theme configuration into the data the form and grid
// chrome need: a name, a variant, an inline style of CSS variables and the
// stylesheet URL.
func themeAttributes(cfg *theme.RendererConfig) (map[string]string, string) {
	attrs := map[string]string{}
	if cfg == nil {
		return attrs, ""
	}
	attrs["name"] = strings.TrimSpace(cfg.Theme)
	attrs["variant"] = strings.TrimSpace(cfg.Variant)

	if len(cfg.CSSVars) > 0 {
		names := make([]string, 0, len(cfg.CSSVars))
		for name := range cfg.CSSVars {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			key := strings.TrimSpace(name)
			if key == "" {
				continue
			}
			if !strings.HasPrefix(key, "--") {
				key = "--" + key
			}
			parts = append(parts, fmt.Sprintf("%s: %s;", key, strings.TrimSpace(cfg.CSSVars[name])))
		}
		attrs["style"] = strings.Join(parts, " ")
	}

	var stylesheet string
	if cfg.AssetURL != nil {
		stylesheet = cfg.AssetURL(StylesheetName)
	}
	return attrs, stylesheet
}

// partialName resolves a template, honouring theme partial overrides.
func partialName(cfg *theme.RendererConfig, name string) string {
	if cfg != nil && cfg.Partials != nil {
		if override := strings.TrimSpace(cfg.Partials[name]); override != "" {
			return override
		}
	}
	return name
}
