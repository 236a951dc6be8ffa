package filter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

const gridID = "api/companies"

func newEngine(t *testing.T) (*Store, *Engine) {
	t.Helper()
	store := NewStore()
	store.MergeCatalogue(context.Background(), gridID, schema.Catalogue{
		"name":    {Title: "Name", FieldType: schema.FilterText, DBField: "c.name"},
		"status":  {Title: "Status", FieldType: schema.FilterCheckboxGroup, Source: map[string]any{"1": "Yes", "2": "No"}},
		"created": {Title: "Created", FieldType: schema.FilterDateRange},
	})
	engine, err := NewEngine(store, gridID)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return store, engine
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(nil, gridID); !widgeterr.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := NewEngine(NewStore(), " "); !widgeterr.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTextRuleCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, engine := newEngine(t)

	if _, err := engine.ApplyRule(ctx, "name", Scratch{Operator: "regex", Value: "  acme "}); err != nil {
		t.Fatalf("ApplyRule: %v", err)
	}
	want := Rule{FieldType: schema.FilterText, Title: "Name", DBField: "c.name", Operator: OpContains, Value: "acme"}
	if diff := cmp.Diff(want, store.Filter(gridID)["name"]); diff != "" {
		t.Fatalf("rule mismatch (-want +got):\n%s", diff)
	}

	outcome, err := engine.ApplyRule(ctx, "name", Scratch{Operator: OpEquals, Value: "   "})
	if err != nil {
		t.Fatalf("ApplyRule: %v", err)
	}
	if !outcome.Removed || outcome.Message != "Removed filter for Name." {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
	if _, ok := store.Filter(gridID)["name"]; ok {
		t.Fatalf("empty text should remove the rule")
	}
}

func TestCheckboxGroupCheckThenUncheckRemovesKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, engine := newEngine(t)

	if _, err := engine.Begin("status"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	engine.Toggle("1")
	if _, err := engine.Apply(ctx); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff([]string{"1"}, store.Filter(gridID)["status"].Value); diff != "" {
		t.Fatalf("checked values mismatch (-want +got):\n%s", diff)
	}

	scratch, err := engine.Begin("status")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if diff := cmp.Diff([]string{"1"}, scratch.Checked); diff != "" {
		t.Fatalf("scratch should restore checked values (-want +got):\n%s", diff)
	}
	engine.Toggle("1")
	if _, err := engine.Apply(ctx); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok := store.Filter(gridID)["status"]; ok {
		t.Fatalf("unchecking every box must remove the key")
	}
}

func TestSelectAllUsesCatalogueChoices(t *testing.T) {
	t.Parallel()

	_, engine := newEngine(t)
	if _, err := engine.Begin("status"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	engine.SelectAll()
	if diff := cmp.Diff([]string{"1", "2"}, engine.Scratch().Checked); diff != "" {
		t.Fatalf("select all mismatch (-want +got):\n%s", diff)
	}
	engine.ClearCheckboxes()
	if len(engine.Scratch().Checked) != 0 {
		t.Fatalf("expected no checked values")
	}
}

func TestDateRangeCommitSwapsAndRemoves(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, engine := newEngine(t)

	if _, err := engine.ApplyRule(ctx, "created", Scratch{Range: schema.DateRange{From: "2025-10-16", To: "2025-10-01"}}); err != nil {
		t.Fatalf("ApplyRule: %v", err)
	}
	rule := store.Filter(gridID)["created"]
	if rule.Operator != OpBetween {
		t.Fatalf("operator = %q", rule.Operator)
	}
	if diff := cmp.Diff(schema.DateRange{From: "2025-10-01", To: "2025-10-16"}, rule.Value); diff != "" {
		t.Fatalf("range mismatch (-want +got):\n%s", diff)
	}

	if _, err := engine.ApplyRule(ctx, "created", Scratch{Range: schema.DateRange{From: "2025-10-01"}}); err != nil {
		t.Fatalf("ApplyRule: %v", err)
	}
	if _, ok := store.Filter(gridID)["created"]; ok {
		t.Fatalf("half-open range must remove the rule")
	}
}

func TestApplyingSameRuleTwiceIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, engine := newEngine(t)

	notifications := 0
	unsubscribe := store.Subscribe(gridID, func(context.Context, string, Set) { notifications++ })
	defer unsubscribe()

	scratch := Scratch{Operator: OpStartsWith, Value: "ac"}
	if _, err := engine.ApplyRule(ctx, "name", scratch); err != nil {
		t.Fatalf("ApplyRule: %v", err)
	}
	first := store.Filter(gridID)
	if _, err := engine.ApplyRule(ctx, "name", scratch); err != nil {
		t.Fatalf("ApplyRule: %v", err)
	}
	if diff := cmp.Diff(first, store.Filter(gridID)); diff != "" {
		t.Fatalf("second apply changed the set (-want +got):\n%s", diff)
	}
	if notifications != 1 {
		t.Fatalf("expected one notification, got %d", notifications)
	}
}

func TestBeginRestoresTextOperator(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, engine := newEngine(t)
	store.SetFilter(ctx, gridID, Set{"name": {FieldType: schema.FilterText, Operator: "bogus", Value: "x"}})

	scratch, err := engine.Begin("name")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if scratch.Operator != OpContains || scratch.Value != "x" {
		t.Fatalf("unexpected scratch %#v", scratch)
	}
	if _, err := engine.Begin("missing"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestClearAllNotifiesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, engine := newEngine(t)
	store.SetFilter(ctx, gridID, Set{
		"name":   {FieldType: schema.FilterText, Operator: OpContains, Value: "x"},
		"status": {FieldType: schema.FilterCheckboxGroup, Operator: OpIn, Value: []string{"2"}},
	})

	var got []Set
	unsubscribe := store.Subscribe(gridID, func(_ context.Context, _ string, set Set) { got = append(got, set) })
	outcome := engine.ClearAll(ctx)
	unsubscribe()
	engine.ClearAll(ctx)

	if outcome.Message != "All filters cleared." {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
	if len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("expected a single empty notification, got %#v", got)
	}
	if len(store.Grids()) != 0 {
		t.Fatalf("cleared grid should not be listed")
	}
}

func TestCatalogueNeverShrinks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	catalogue := func(n int) schema.Catalogue {
		out := schema.Catalogue{}
		for i := 0; i < n; i++ {
			out[string(rune('a'+i))] = schema.FilterDefinition{FieldType: schema.FilterText}
		}
		return out
	}

	var sizes []int
	for _, n := range []int{5, 0, 3, 8} {
		store.MergeCatalogue(ctx, gridID, catalogue(n))
		sizes = append(sizes, len(store.Catalogue(gridID)))
	}
	if diff := cmp.Diff([]int{5, 5, 5, 8}, sizes); diff != "" {
		t.Fatalf("catalogue sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestStoresAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, b := NewStore(), NewStore()
	a.SetFilter(ctx, gridID, Set{"name": {FieldType: schema.FilterText, Operator: OpContains, Value: "x"}})
	if len(b.Filter(gridID)) != 0 {
		t.Fatalf("stores must not share state")
	}
}

func TestStoreConcurrentWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			store.Update(ctx, gridID, func(current Set) Set {
				current[key] = Rule{FieldType: schema.FilterText, Operator: OpContains, Value: key}
				return current
			})
		}(i)
	}
	wg.Wait()
	if got := len(store.Filter(gridID)); got != 16 {
		t.Fatalf("expected 16 rules, got %d", got)
	}
}

func TestLegacyRangeRoundTrip(t *testing.T) {
	t.Parallel()

	ranges := []schema.DateRange{
		{From: "2025-10-01", To: "2025-10-16"},
		{From: "2024-01-31", To: "2024-02-01"},
	}
	for _, rng := range ranges {
		got, ok := ParseLegacyRange(FormatLegacyRange(rng))
		if !ok {
			t.Fatalf("ParseLegacyRange failed for %v", rng)
		}
		if diff := cmp.Diff(rng, got); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}

	for raw, want := range map[string]schema.DateRange{
		"2025-10-01 – 2025-10-16": {From: "2025-10-01", To: "2025-10-16"},
		"2025-10-01,2025-10-16":   {From: "2025-10-01", To: "2025-10-16"},
		"2025-10-01-2025-10-16":   {From: "2025-10-01", To: "2025-10-16"},
	} {
		got, ok := ParseLegacyRange(raw)
		if !ok || got != want {
			t.Fatalf("ParseLegacyRange(%q) = %v, %v", raw, got, ok)
		}
	}
	if _, ok := ParseLegacyRange("2025-10-01"); ok {
		t.Fatalf("single date must not parse as a range")
	}
}

func TestRuleUnmarshalNormalisesValues(t *testing.T) {
	t.Parallel()

	var set Set
	payload := `{
		"status": {"field_type":"CheckBoxGroup","title":"Status","operator":"in","value":[1,"2"]},
		"kind":   {"field_type":"CheckBoxGroup","title":"Kind","operator":"in","value":"a"},
		"date":   {"field_type":"DateRange","title":"Date","operator":"between","value":{"from":"2025-01-01","to":"2025-02-01"}}
	}`
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "2"}, set["status"].Value); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, set["kind"].Value); diff != "" {
		t.Fatalf("kind mismatch (-want +got):\n%s", diff)
	}
	if set["date"].Range().To != "2025-02-01" {
		t.Fatalf("unexpected date rule %#v", set["date"])
	}
}

func TestChips(t *testing.T) {
	t.Parallel()

	set := Set{
		"name":    {FieldType: schema.FilterText, Title: "Name", Operator: OpStartsWith, Value: "ian"},
		"status":  {FieldType: schema.FilterCheckboxGroup, Title: "Status", Operator: OpIn, Value: []string{"Approved", "Pending"}},
		"flag":    {FieldType: schema.FilterCheckboxGroup, Title: "Flag", Operator: OpIn, Value: []string{"1"}, Source: map[string]any{"1": "Yes"}},
		"created": {FieldType: schema.FilterDateRange, Title: "Created", Operator: OpBetween, Value: schema.DateRange{From: "2025-10-01", To: "2025-10-16"}},
	}
	want := []Chip{
		{Key: "created", Title: "Created", Operator: OpBetween, Value: "2025-10-01 – 2025-10-16", Tone: "orange"},
		{Key: "flag", Title: "Flag", Operator: OpIn, Value: "Yes", Tone: "indigo"},
		{Key: "name", Title: "Name", Operator: OpStartsWith, Value: "ian", Tone: "gray"},
		{Key: "status", Title: "Status", Operator: OpIn, Value: "Approved, Pending", Tone: "jade"},
	}
	chips := Chips(set)
	if diff := cmp.Diff(want, chips); diff != "" {
		t.Fatalf("chips mismatch (-want +got):\n%s", diff)
	}
	if chips[2].Label() != "starts with ian" || chips[3].Label() != "Approved, Pending" {
		t.Fatalf("unexpected labels %q / %q", chips[2].Label(), chips[3].Label())
	}
}

type brokenPersister struct {
	catalogues map[string]schema.Catalogue
}

func (brokenPersister) LoadFilters(context.Context) (map[string]Set, error) {
	return nil, errors.New("disk on fire")
}

func (p brokenPersister) LoadCatalogues(context.Context) (map[string]schema.Catalogue, error) {
	return p.catalogues, nil
}

func (brokenPersister) SaveFilter(context.Context, string, Set) error { return nil }

func (brokenPersister) SaveCatalogue(context.Context, string, schema.Catalogue) error { return nil }

func TestOpenStoreToleratesUnreadableState(t *testing.T) {
	t.Parallel()

	persister := brokenPersister{catalogues: map[string]schema.Catalogue{
		gridID: {"name": {Title: "Name", FieldType: schema.FilterText}},
	}}
	store, err := OpenStore(context.Background(), WithPersister(persister))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if len(store.Filter(gridID)) != 0 {
		t.Fatalf("expected no filters, got %v", store.Filter(gridID))
	}
	if len(store.Catalogue(gridID)) != 1 {
		t.Fatalf("readable catalogue should still load")
	}
}
