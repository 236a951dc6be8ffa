package options

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Search filters list by a case-insensitive substring match on label or
// value. Prefix matches rank first, then labels alphabetically.
func Search(list []schema.Option, query string, limit int, opts Options) []schema.Option {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode != EmptySearchAll {
			return nil
		}
		if len(list) <= limit {
			return append([]schema.Option{}, list...)
		}
		return append([]schema.Option{}, list[:limit]...)
	}

	q := strings.ToLower(query)
	matches := make([]matched, 0, 32)
	for _, opt := range list {
		label := strings.ToLower(opt.Label)
		value := strings.ToLower(opt.Value)
		if !strings.Contains(label, q) && !strings.Contains(value, q) {
			continue
		}
		matches = append(matches, matched{
			option:   opt,
			isPrefix: strings.HasPrefix(label, q) || strings.HasPrefix(value, q),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].option.Label < matches[j].option.Label
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]schema.Option, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.option)
	}
	return out
}

type matched struct {
	option   schema.Option
	isPrefix bool
}
