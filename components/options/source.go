package options

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Query is what a source receives for one request.
type Query struct {
	Search string
	Limit  int
	// Values holds the submitting form's current values for dependent
	// option lists. Empty for GET requests.
	Values map[string]any
}

// Source produces the full candidate list for a query. Filtering by
// Query.Search and Query.Limit is applied by the handler afterwards.
type Source interface {
	Options(ctx context.Context, q Query) ([]schema.Option, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, q Query) ([]schema.Option, error)

func (fn SourceFunc) Options(ctx context.Context, q Query) ([]schema.Option, error) {
	return fn(ctx, q)
}

// Static returns a source over a fixed list.
func Static(list []schema.Option) Source {
	list = append([]schema.Option(nil), list...)
	return SourceFunc(func(context.Context, Query) ([]schema.Option, error) {
		return list, nil
	})
}

// LoadList reads one option per line as "value" or "value|label". Blank lines
// and lines starting with # are skipped; duplicate values keep the first
// label. The result is sorted by label.
func LoadList(r io.Reader) ([]schema.Option, error) {
	if r == nil {
		return nil, fmt.Errorf("options: missing reader")
	}

	scanner := bufio.NewScanner(r)
	list := make([]schema.Option, 0, 64)
	seen := map[string]struct{}{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		value, label, found := strings.Cut(line, "|")
		value = strings.TrimSpace(value)
		label = strings.TrimSpace(label)
		if !found || label == "" {
			label = value
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		list = append(list, schema.Option{Value: value, Label: label})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("options: read list: %w", err)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Label < list[j].Label
	})
	return list, nil
}
