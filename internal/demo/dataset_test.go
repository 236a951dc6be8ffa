package demo

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/schema"
)

func names(page Page) []string {
	out := make([]string, 0, len(page.List))
	for _, record := range page.List {
		out = append(out, record["name"].(string))
	}
	return out
}

func TestQueryFilters(t *testing.T) {
	t.Parallel()

	data := NewDataset(30)
	cases := []struct {
		name  string
		set   filter.Set
		total int
	}{
		{"none", nil, 30},
		{"text contains", filter.Set{"name": {FieldType: schema.FilterText, Operator: filter.OpContains, Value: "ada"}}, 3},
		{"text equals", filter.Set{"name": {FieldType: schema.FilterText, Operator: filter.OpEquals, Value: "Ada Hopper"}}, 1},
		{"text starts with", filter.Set{"email": {FieldType: schema.FilterText, Operator: filter.OpStartsWith, Value: "grace."}}, 3},
		{"group", filter.Set{"status": {FieldType: schema.FilterCheckboxGroup, Operator: filter.OpIn, Value: []string{"approved"}}}, 10},
		{"date range", filter.Set{"created_at": {FieldType: schema.FilterDateRange, Operator: filter.OpBetween, Value: schema.DateRange{From: "2024-01-01", To: "2024-01-10"}}}, 4},
		{"db field", filter.Set{"who": {FieldType: schema.FilterText, DBField: "name", Value: "radia"}}, 3},
		{
			"combined",
			filter.Set{
				"name":   {FieldType: schema.FilterText, Operator: filter.OpContains, Value: "ada"},
				"status": {FieldType: schema.FilterCheckboxGroup, Operator: filter.OpIn, Value: []string{"approved"}},
			},
			1,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			page := data.Query(Params{Page: 1, PageSize: 50, Filter: tc.set})
			if page.TotalCount != tc.total || len(page.List) != tc.total {
				t.Fatalf("total = %d (%d rows), want %d", page.TotalCount, len(page.List), tc.total)
			}
		})
	}
}

func TestQuerySortsAndPages(t *testing.T) {
	t.Parallel()

	data := NewDataset(30)

	asc := data.Query(Params{Page: 1, PageSize: 2, SortKey: "name", SortOrder: "ASC"})
	if diff := cmp.Diff([]string{"Ada Hopper", "Ada Lovelace"}, names(asc)); diff != "" {
		t.Fatalf("ascending mismatch (-want +got):\n%s", diff)
	}
	desc := data.Query(Params{Page: 1, PageSize: 1, SortKey: "name", SortOrder: "DESC"})
	if diff := cmp.Diff([]string{"Radia Turing"}, names(desc)); diff != "" {
		t.Fatalf("descending mismatch (-want +got):\n%s", diff)
	}
	byID := data.Query(Params{Page: 2, PageSize: 15, SortKey: "id", SortOrder: "DESC"})
	if got := byID.List[0]["id"]; got != 15 {
		t.Fatalf("first id on page 2 = %v, want 15", got)
	}
	past := data.Query(Params{Page: 9, PageSize: 15})
	if past.TotalCount != 30 || len(past.List) != 0 {
		t.Fatalf("unexpected page past the end: %+v", past)
	}
}

func TestQueryDoesNotLeakRecords(t *testing.T) {
	t.Parallel()

	data := NewDataset(3)
	page := data.Query(Params{Page: 1, PageSize: 3})
	page.List[0]["name"] = "changed"
	if again := data.Query(Params{Page: 1, PageSize: 3}); again.List[0]["name"] == "changed" {
		t.Fatalf("query returned shared records")
	}
}
