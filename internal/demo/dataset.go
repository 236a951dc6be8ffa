// Package demo provides the in-memory dataset, grid API and upload store used
// by the demo host and by integration tests.
package demo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/grid"
	"github.com/goliatone/go-formgrid/pkg/schema"
)

var (
	firstNames = []string{"Ada", "Grace", "Alan", "Barbara", "Edsger", "Frances", "Ken", "Margaret", "Dennis", "Radia"}
	lastNames  = []string{"Lovelace", "Hopper", "Turing", "Liskov", "Dijkstra", "Allen", "Thompson", "Hamilton", "Ritchie", "Perlman"}
	statuses   = []string{"approved", "pending", "rejected"}
	roles      = []string{"admin", "editor", "viewer"}
)

var epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Dataset is a fixed in-memory table of users.
type Dataset struct {
	mu      sync.RWMutex
	records []grid.Record
	exports map[string][]byte
}

// NewDataset generates n deterministic user records.
func NewDataset(n int) *Dataset {
	records := make([]grid.Record, 0, n)
	for i := 0; i < n; i++ {
		first := firstNames[i%len(firstNames)]
		last := lastNames[(i/len(firstNames))%len(lastNames)]
		records = append(records, grid.Record{
			"id":         i + 1,
			"name":       first + " " + last,
			"email":      strings.ToLower(first+"."+last) + "@example.com",
			"status":     statuses[i%len(statuses)],
			"role":       roles[(i/2)%len(roles)],
			"active":     i%4 != 0,
			"created_at": epoch.AddDate(0, 0, i*3).Format(schema.DateLayout),
			"website":    fmt.Sprintf("https://example.com/u/%d", i+1),
		})
	}
	return &Dataset{records: records, exports: make(map[string][]byte)}
}

// Columns returns the headers the grid API reports.
func (d *Dataset) Columns() []schema.Column {
	return []schema.Column{
		{Title: "ID", Field: "id", SortKey: "id", IsPrimaryKey: true},
		{Title: "Name", Field: "name", SortKey: "name"},
		{Title: "Email", Field: "email"},
		{Title: "Status", Field: "status", SortKey: "status"},
		{Title: "Role", Field: "role"},
		{Title: "Active", Field: "active", Type: "bool"},
		{Title: "Created", Field: "created_at", SortKey: "created_at", Type: "datetime"},
		{Title: "Website", Field: "website", Type: "url"},
	}
}

// SearchForm returns the filter catalogue the grid API advertises.
func (d *Dataset) SearchForm() schema.Catalogue {
	return schema.Catalogue{
		"name":       {Title: "Name", FieldType: schema.FilterText},
		"email":      {Title: "Email", FieldType: schema.FilterText},
		"status":     {Title: "Status", FieldType: schema.FilterCheckboxGroup, Source: optionSource(statuses)},
		"role":       {Title: "Role", FieldType: schema.FilterCheckboxGroup, Source: optionSource(roles)},
		"created_at": {Title: "Created", FieldType: schema.FilterDateRange},
	}
}

// RoleOptions lists the roles as select options.
func RoleOptions() []schema.Option {
	out := make([]schema.Option, 0, len(roles))
	for _, role := range roles {
		out = append(out, schema.Option{Value: role, Label: schema.Humanize(role)})
	}
	return out
}

func optionSource(values []string) map[string]any {
	out := make(map[string]any, len(values))
	for _, v := range values {
		out[v] = schema.Humanize(v)
	}
	return out
}

// Params select one page of the dataset.
type Params struct {
	Page      int
	PageSize  int
	SortKey   string
	SortOrder string
	Filter    filter.Set
}

// Page is the result of a query.
type Page struct {
	List       []grid.Record
	TotalCount int
}

// Query filters, sorts and pages the dataset. Pages past the end are empty.
func (d *Dataset) Query(p Params) Page {
	matched := d.Matching(p.Filter)
	sortRecords(matched, p.SortKey, strings.EqualFold(p.SortOrder, "DESC"))

	total := len(matched)
	size := p.PageSize
	if size <= 0 {
		size = 15
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * size
	if start >= total {
		return Page{List: []grid.Record{}, TotalCount: total}
	}
	end := start + size
	if end > total {
		end = total
	}
	return Page{List: matched[start:end], TotalCount: total}
}

// Matching returns copies of the records satisfying every rule in set.
func (d *Dataset) Matching(set filter.Set) []grid.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]grid.Record, 0, len(d.records))
	for _, record := range d.records {
		if matches(record, set) {
			copied := make(grid.Record, len(record))
			for k, v := range record {
				copied[k] = v
			}
			out = append(out, copied)
		}
	}
	return out
}

func matches(record grid.Record, set filter.Set) bool {
	for key, rule := range set {
		field := key
		if rule.DBField != "" {
			field = rule.DBField
		}
		value := cellText(record[field])

		switch {
		case rule.FieldType.IsGroup():
			if !containsString(rule.Values(), value) {
				return false
			}
		case rule.FieldType.IsDateRange():
			if !inRange(value, rule.Range()) {
				return false
			}
		default:
			if !matchText(value, rule.Operator, rule.Text()) {
				return false
			}
		}
	}
	return true
}

func matchText(value, op, needle string) bool {
	value, needle = strings.ToLower(value), strings.ToLower(strings.TrimSpace(needle))
	switch op {
	case filter.OpEquals:
		return value == needle
	case filter.OpStartsWith:
		return strings.HasPrefix(value, needle)
	default:
		return strings.Contains(value, needle)
	}
}

func inRange(value string, rng schema.DateRange) bool {
	at, ok := schema.ParseDate(value)
	if !ok {
		return false
	}
	if from, ok := schema.ParseDate(rng.From); ok && at.Before(from) {
		return false
	}
	if to, ok := schema.ParseDate(rng.To); ok && at.After(to) {
		return false
	}
	return true
}

func sortRecords(records []grid.Record, key string, desc bool) {
	if key == "" {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i][key], records[j][key]
		if desc {
			a, b = b, a
		}
		return less(a, b)
	})
}

func less(a, b any) bool {
	af, aok := number(a)
	bf, bok := number(b)
	if aok && bok {
		return af < bf
	}
	return cellText(a) < cellText(b)
}

func number(v any) (float64, bool) {
	switch typed := v.(type) {
	case int:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

func cellText(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case int:
		return strconv.Itoa(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
