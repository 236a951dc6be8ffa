package filter

import (
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// ParseLegacyRange converts string-encoded date ranges written by older
// clients into a DateRange. Accepted shapes:
//
//	"2025-10-01 - 2025-10-16"
//	"2025-10-01 – 2025-10-16"
//	"2025-10-01,2025-10-16"
//	"2025-10-01-2025-10-16"
//
// The boolean is false when the string does not hold two bounds.
func ParseLegacyRange(raw string) (schema.DateRange, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "–", "-"))
	if cleaned == "" {
		return schema.DateRange{}, false
	}

	var parts []string
	switch {
	case strings.Contains(cleaned, " - "):
		parts = strings.SplitN(cleaned, " - ", 2)
	case strings.Contains(cleaned, ","):
		parts = strings.SplitN(cleaned, ",", 2)
	case len(cleaned) == 2*len(schema.DateLayout)+1 && cleaned[len(schema.DateLayout)] == '-':
		parts = []string{cleaned[:len(schema.DateLayout)], cleaned[len(schema.DateLayout)+1:]}
	default:
		parts = strings.Split(cleaned, "-")
	}
	if len(parts) < 2 {
		return schema.DateRange{}, false
	}

	rng := schema.DateRange{From: strings.TrimSpace(parts[0]), To: strings.TrimSpace(parts[1])}
	if rng.From == "" || rng.To == "" {
		return schema.DateRange{}, false
	}
	return rng, true
}

// FormatLegacyRange renders a range in the legacy " - " separated form.
func FormatLegacyRange(rng schema.DateRange) string {
	if rng.From == "" && rng.To == "" {
		return ""
	}
	return rng.From + " - " + rng.To
}
