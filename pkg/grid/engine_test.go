package grid

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/notify"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

type call struct {
	URL  string
	Body map[string]any
}

type fakeClient struct {
	mu      sync.Mutex
	calls   []call
	respond func(url string, body any) (any, error)
}

func (f *fakeClient) Get(context.Context, string) (any, error) { return nil, client.ErrNotSupported }

func (f *fakeClient) Post(_ context.Context, u string, body any) (any, error) {
	f.mu.Lock()
	b, _ := body.(map[string]any)
	f.calls = append(f.calls, call{URL: u, Body: b})
	respond := f.respond
	f.mu.Unlock()
	return respond(u, body)
}

func (f *fakeClient) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func query(t *testing.T, raw string) url.Values {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return parsed.Query()
}

func usersPayload(ids ...float64) map[string]any {
	list := make([]any, 0, len(ids))
	for _, id := range ids {
		list = append(list, map[string]any{"id": id, "name": "user"})
	}
	return map[string]any{"data": map[string]any{
		"list": list,
		"headers": []any{
			map[string]any{"title": "ID", "field": "id", "isPrimaryKey": true, "sortKey": "id"},
			map[string]any{"title": "Name", "field": "name", "sort_key": "name"},
		},
		"searchForm": map[string]any{
			"name": map[string]any{"title": "Name", "field_type": "TextBox"},
		},
		"totalCount": 25.0,
	}}
}

func TestNewRequiresEndpointAndClient(t *testing.T) {
	t.Parallel()

	if _, err := New("", &fakeClient{}); !widgeterr.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := New("api/users", nil); !widgeterr.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	_, err := New("api/users", &fakeClient{}, WithSelection(true), WithColumns([]schema.Column{{Field: "name"}}))
	if !widgeterr.IsConfiguration(err) {
		t.Fatalf("selection without primary key must fail, got %v", err)
	}
}

func TestFetchBuildsRequestAndNormalises(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{respond: func(string, any) (any, error) { return usersPayload(1, 2), nil }}
	engine, err := New("api/users", fake)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := engine.FetchPage(context.Background(), 10); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	if !strings.HasPrefix(calls[0].URL, "api/users?") {
		t.Fatalf("unexpected url %q", calls[0].URL)
	}
	want := url.Values{"page": {"1"}, "page_size": {"10"}, "sort_key": {""}, "sort_order": {""}}
	if diff := cmp.Diff(want, query(t, calls[0].URL)); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
	if _, ok := calls[0].Body["filter"]; !ok {
		t.Fatalf("body must carry the filter")
	}

	state := engine.Snapshot()
	if state.TotalCount != 25 || len(state.Records) != 2 || len(state.Headers) != 2 {
		t.Fatalf("unexpected state %#v", state)
	}
	if state.Headers[1].SortKey != "name" {
		t.Fatalf("snake_case sort key not normalised: %#v", state.Headers[1])
	}
	if len(state.Catalogue) != 1 || state.Loading {
		t.Fatalf("unexpected catalogue/loading %#v / %v", state.Catalogue, state.Loading)
	}
	if state.Pagination.Text != "Showing 1 to 10 of 25 results" {
		t.Fatalf("unexpected pagination %q", state.Pagination.Text)
	}
}

func TestSortTogglesAndPersistsAcrossColumns(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{respond: func(string, any) (any, error) { return usersPayload(1), nil }}
	engine, err := New("api/users", fake)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	_ = engine.SetPage(ctx, 3)
	_ = engine.SortBy(ctx, "name")
	_ = engine.SortBy(ctx, "name")
	_ = engine.SortBy(ctx, "id")

	var got []string
	for _, c := range fake.Calls()[1:] {
		q := query(t, c.URL)
		got = append(got, q.Get("page")+" "+q.Get("sort_key")+" "+q.Get("sort_order"))
	}
	want := []string{"1 name DESC", "1 name ASC", "1 id DESC"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sort requests mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterChangeResetsPageAndFetchesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := filter.NewStore()
	fake := &fakeClient{respond: func(string, any) (any, error) { return usersPayload(1, 2), nil }}
	engine, err := New("api/users", fake, WithStore(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer engine.Close()

	_ = engine.FetchPage(ctx, 0)
	_ = engine.SetPage(ctx, 2)
	before := len(fake.Calls())

	if _, err := engine.Filters().ApplyRule(ctx, "name", filter.Scratch{Operator: filter.OpEquals, Value: "ada"}); err != nil {
		t.Fatalf("ApplyRule: %v", err)
	}
	calls := fake.Calls()
	if len(calls) != before+1 {
		t.Fatalf("expected exactly one fetch after filter change, got %d", len(calls)-before)
	}
	last := calls[len(calls)-1]
	if query(t, last.URL).Get("page") != "1" {
		t.Fatalf("filter change must reset page, got %q", last.URL)
	}
	sent, ok := last.Body["filter"].(filter.Set)
	if !ok || sent["name"].Text() != "ada" {
		t.Fatalf("request must carry the new filter, got %#v", last.Body["filter"])
	}
}

func TestGridsSharingStoreAndEndpointShareFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := filter.NewStore()
	respond := func(string, any) (any, error) { return usersPayload(1), nil }
	a, _ := New("api/users", &fakeClient{respond: respond}, WithStore(store))
	bClient := &fakeClient{respond: respond}
	b, _ := New("api/users", bClient, WithStore(store))
	private, _ := New("api/users", &fakeClient{respond: respond}, WithStore(store), WithoutPersistence())
	defer a.Close()
	defer b.Close()
	defer private.Close()

	_ = a.FetchPage(ctx, 0)
	if _, err := a.Filters().ApplyRule(ctx, "name", filter.Scratch{Value: "x"}); err != nil {
		t.Fatalf("ApplyRule: %v", err)
	}
	if len(bClient.Calls()) != 1 || b.Snapshot().Filter["name"].Text() != "x" {
		t.Fatalf("second grid should observe the shared filter")
	}
	if len(private.Snapshot().Filter) != 0 {
		t.Fatalf("private grid must not observe shared filters")
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	fake := &fakeClient{respond: func(u string, _ any) (any, error) {
		if strings.Contains(u, "sort_key=slow") {
			close(started)
			<-release
			return usersPayload(1), nil
		}
		return usersPayload(2, 3), nil
	}}
	engine, err := New("api/users", fake)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.SortBy(ctx, "slow")
	}()
	<-started
	if err := engine.SortBy(ctx, "fast"); err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	close(release)
	<-done

	state := engine.Snapshot()
	var ids []string
	for _, record := range state.Records {
		ids = append(ids, record.Key("id"))
	}
	if diff := cmp.Diff([]string{"2", "3"}, ids); diff != "" {
		t.Fatalf("stale response clobbered state (-want +got):\n%s", diff)
	}
	if state.Loading {
		t.Fatalf("loading flag should be cleared")
	}
}

func TestNetworkErrorKeepsStateAndNotifies(t *testing.T) {
	t.Parallel()

	fail := false
	fake := &fakeClient{respond: func(string, any) (any, error) {
		if fail {
			return nil, &widgeterr.NetworkError{Op: "POST", URL: "api/users", Err: errors.New("boom")}
		}
		return usersPayload(1, 2), nil
	}}
	recorder := &notify.Recorder{}
	engine, err := New("api/users", fake, WithNotifier(recorder))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	_ = engine.FetchPage(ctx, 0)
	fail = true
	if err := engine.SetPage(ctx, 2); err != nil {
		t.Fatalf("network errors must not be returned, got %v", err)
	}
	state := engine.Snapshot()
	if len(state.Records) != 2 || state.Loading {
		t.Fatalf("stale data should be retained, got %#v", state)
	}
	if diff := cmp.Diff([]string{"Error fetching list"}, recorder.Messages(notify.LevelError)); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestSelection(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{respond: func(string, any) (any, error) { return usersPayload(1, 2, 3), nil }}
	engine, err := New("api/users", fake, WithSelection(true), WithStore(filter.NewStore()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()
	_ = engine.FetchPage(ctx, 0)

	assertCleared := func(after string) {
		t.Helper()
		if selected := engine.Selected(); len(selected) != 0 {
			t.Fatalf("%s must clear the selection, still have %v", after, selected)
		}
		for _, record := range engine.Snapshot().Records {
			if record.Checked() {
				t.Fatalf("%s left record %v checked", after, record["id"])
			}
		}
	}

	if !engine.ToggleRow("2") || engine.ToggleRow("99") {
		t.Fatalf("unexpected toggle results")
	}
	state := engine.Snapshot()
	if !state.Records[1].Checked() || state.Records[0].Checked() {
		t.Fatalf("checked flags not stamped: %#v", state.Records)
	}
	engine.ToggleRow("2")
	if len(engine.Selected()) != 0 {
		t.Fatalf("second toggle should deselect")
	}

	engine.SelectAll(true)
	if diff := cmp.Diff([]string{"1", "2", "3"}, engine.Selected()); diff != "" {
		t.Fatalf("select all mismatch (-want +got):\n%s", diff)
	}
	if !engine.Snapshot().AllSelected() || len(engine.SelectedRecords()) != 3 {
		t.Fatalf("expected every record selected")
	}

	_ = engine.Refresh(ctx)
	assertCleared("refresh")

	engine.SelectAll(true)
	if _, err := engine.Filters().ApplyRule(ctx, "name", filter.Scratch{Operator: filter.OpEquals, Value: "ada"}); err != nil {
		t.Fatalf("ApplyRule: %v", err)
	}
	assertCleared("a filter change")

	engine.SelectAll(true)
	if len(engine.Selected()) != 3 {
		t.Fatalf("expected rows selected before paging, got %v", engine.Selected())
	}
	if err := engine.SetPage(ctx, 2); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	assertCleared("a page change")
}

func TestSelectionWithoutDeclaredColumnsIsCheckedOnFetch(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{respond: func(string, any) (any, error) {
		return map[string]any{
			"records":    []any{map[string]any{"name": "a"}},
			"headers":    []any{map[string]any{"title": "Name", "field": "name"}},
			"totalCount": 1.0,
		}, nil
	}}
	engine, err := New("api/users", fake, WithSelection(true), WithoutPersistence())
	if err != nil {
		t.Fatalf("New must defer the primary key check without declared columns: %v", err)
	}
	defer engine.Close()

	if err := engine.FetchPage(context.Background(), 0); !widgeterr.IsConfiguration(err) {
		t.Fatalf("expected configuration error on first fetch, got %v", err)
	}
	if engine.Snapshot().Selectable || engine.ToggleRow("a") {
		t.Fatalf("selection must stay off after a failed primary key check")
	}
}

func TestEnableCheckboxWithoutPrimaryKeyIsConfigurationError(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{respond: func(string, any) (any, error) {
		return map[string]any{
			"records":        []any{map[string]any{"name": "a"}},
			"headers":        []any{map[string]any{"title": "Name", "field": "name"}},
			"enableCheckbox": true,
			"totalCount":     1.0,
		}, nil
	}}
	engine, err := New("api/users", fake)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = engine.FetchPage(context.Background(), 0)
	if !widgeterr.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	state := engine.Snapshot()
	if state.Selectable || len(state.Records) != 1 {
		t.Fatalf("unexpected state %#v", state)
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	var downloaded string
	recorder := &notify.Recorder{}
	responses := []any{
		map[string]any{"data": map[string]any{"file": "https://cdn/export.csv"}},
		map[string]any{"ok": true},
	}
	fake := &fakeClient{respond: func(string, any) (any, error) {
		resp := responses[0]
		responses = responses[1:]
		return resp, nil
	}}
	engine, err := New("api/users", fake, WithNotifier(recorder), WithDownloader(func(_ context.Context, u string) error {
		downloaded = u
		return nil
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fileURL, err := engine.Export(context.Background())
	if err != nil || fileURL != "https://cdn/export.csv" || downloaded != fileURL {
		t.Fatalf("unexpected export result %q %v (downloaded %q)", fileURL, err, downloaded)
	}
	if got := fake.Calls()[0].URL; got != "api/users?export=csv" {
		t.Fatalf("unexpected export url %q", got)
	}

	fileURL, _ = engine.Export(context.Background())
	if fileURL != "" {
		t.Fatalf("expected empty url")
	}
	if diff := cmp.Diff([]string{"No export file URL returned"}, recorder.Messages(notify.LevelError)); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
	if engine.Snapshot().Exporting {
		t.Fatalf("exporting flag should be cleared")
	}
}

func TestSetColumnVisibleSendsHeaders(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{respond: func(string, any) (any, error) { return usersPayload(1), nil }}
	engine, _ := New("api/users", fake)
	ctx := context.Background()
	_ = engine.FetchPage(ctx, 0)
	if err := engine.SetColumnVisible(ctx, "name", false); err != nil {
		t.Fatalf("SetColumnVisible: %v", err)
	}
	calls := fake.Calls()
	headers, _ := calls[len(calls)-1].Body["headers"].([]schema.Column)
	if len(headers) != 2 || headers[1].Visible() {
		t.Fatalf("hidden column should be sent, got %#v", headers)
	}
	if err := engine.SetColumnVisible(ctx, "missing", true); err == nil {
		t.Fatalf("expected unknown column error")
	}
}

func TestPaginationScenario(t *testing.T) {
	t.Parallel()

	first := Pagination(1, 10, 25)
	if diff := cmp.Diff([]int{1, 2, 3}, first.Pages); diff != "" {
		t.Fatalf("pages mismatch (-want +got):\n%s", diff)
	}
	if first.Text != "Showing 1 to 10 of 25 results" || first.TotalPages != 3 || first.HasPrev || !first.HasNext {
		t.Fatalf("unexpected first page summary %#v", first)
	}
	last := Pagination(3, 10, 25)
	if last.Text != "Showing 21 to 25 of 25 results" || last.HasNext {
		t.Fatalf("unexpected last page summary %#v", last)
	}
	if empty := Pagination(1, 10, 0); empty.Text != "Showing 0 to 0 of 0 results" || len(empty.Pages) != 0 {
		t.Fatalf("unexpected empty summary %#v", empty)
	}
}

func TestNormalizeShapes(t *testing.T) {
	t.Parallel()

	resp, err := Normalize([]any{map[string]any{"id": 1.0}})
	if err != nil || len(resp.List) != 1 || resp.TotalCount != 1 {
		t.Fatalf("bare array: %#v %v", resp, err)
	}
	resp, err = Normalize(map[string]any{
		"records":    []any{map[string]any{"id": 1.0, "actions": map[string]any{"edit": map[string]any{"func_name": "edit"}}}},
		"headers":    map[string]any{"name": map[string]any{"title": "Name"}, "id": map[string]any{"title": "ID", "isPrimaryKey": true}},
		"totalCount": "7",
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if resp.TotalCount != 7 || resp.Headers[0].Field != "id" || resp.List[0].Actions() == nil {
		t.Fatalf("unexpected response %#v", resp)
	}
	if _, err := Normalize("nope"); err == nil {
		t.Fatalf("expected error for scalar payload")
	}
}
