package widgets

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

func TestResolve_ExplicitTypeWins(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	column := schema.Column{Title: "Status", Field: "status", Type: "link"}
	if got := reg.Resolve(column, "approved"); got != WidgetLink {
		t.Fatalf("expected explicit widget to win, got %q", got)
	}
}

func TestResolve_Builtins(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	cases := []struct {
		name   string
		column schema.Column
		value  any
		expect string
	}{
		{"markup column", schema.Column{Field: "bio", Type: "litertext"}, "<b>x</b>", WidgetHTML},
		{"boolean value", schema.Column{Field: "active"}, true, WidgetBoolean},
		{"status title", schema.Column{Title: "Review State", Field: "review"}, "pending", WidgetStatus},
		{"list value", schema.Column{Field: "tags"}, []any{"a", "b"}, WidgetList},
		{"date field", schema.Column{Title: "Created", Field: "created_at"}, "2025-03-01T10:00:00Z", WidgetDate},
		{"date title with free text", schema.Column{Title: "Update notes", Field: "notes"}, "soon", WidgetText},
		{"url value", schema.Column{Field: "homepage"}, "https://example.com", WidgetLink},
		{"plain", schema.Column{Field: "name"}, "Ada", WidgetText},
	}
	for _, tc := range cases {
		if got := reg.Resolve(tc.column, tc.value); got != tc.expect {
			t.Fatalf("%s: Resolve = %q, want %q", tc.name, got, tc.expect)
		}
	}
}

func TestRegisterPriorityAndOrder(t *testing.T) {
	t.Parallel()

	reg := &Registry{}
	always := func(schema.Column, any) bool { return true }
	reg.Register("first", 10, always)
	reg.Register("second", 10, always)
	reg.Register("boosted", 20, func(c schema.Column, _ any) bool { return c.Field == "vip" })
	reg.Register("", 99, always)
	reg.Register("nil", 99, nil)

	if got := reg.Resolve(schema.Column{Field: "name"}, nil); got != "first" {
		t.Fatalf("tie should keep registration order, got %q", got)
	}
	if got := reg.Resolve(schema.Column{Field: "vip"}, nil); got != "boosted" {
		t.Fatalf("higher priority should win, got %q", got)
	}
	if got := (&Registry{}).Resolve(schema.Column{Field: "x"}, nil); got != WidgetText {
		t.Fatalf("empty registry should fall back to text, got %q", got)
	}
}

func TestFormatCells(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	columns := []schema.Column{
		{Title: "Name", Field: "name"},
		{Title: "Status", Field: "status"},
		{Title: "Active", Field: "active"},
		{Title: "Created", Field: "created_at"},
		{Title: "Site", Field: "site"},
		{Title: "Bio", Field: "bio", Type: "html"},
		{Title: "Score", Field: "score"},
	}
	record := map[string]any{
		"name":       "Ada",
		"status":     "Rejected",
		"active":     false,
		"created_at": "2025-03-01T10:00:00Z",
		"site":       "https://example.com",
		"bio":        `<p onclick="x()">Hi <script>alert(1)</script></p>`,
		"score":      12.5,
	}

	want := map[string]Cell{
		"name":       {Widget: WidgetText, Text: "Ada"},
		"status":     {Widget: WidgetStatus, Text: "Rejected", Tone: "ruby"},
		"active":     {Widget: WidgetBoolean, Text: "No"},
		"created_at": {Widget: WidgetDate, Text: "2025-03-01"},
		"site":       {Widget: WidgetLink, Text: "https://example.com", HTML: `<a href="https://example.com" rel="nofollow">https://example.com</a>`},
		"bio":        {Widget: WidgetHTML, Text: "Hi ", HTML: "<p>Hi </p>"},
		"score":      {Widget: WidgetText, Text: "12.5"},
	}
	if diff := cmp.Diff(want, reg.Row(columns, record)); diff != "" {
		t.Fatalf("cells mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusWithoutKeywordHasNoTone(t *testing.T) {
	t.Parallel()

	cell := NewRegistry().Format(schema.Column{Title: "Status", Field: "status"}, "archived")
	if cell.Tone != "" || cell.Text != "archived" {
		t.Fatalf("unexpected cell %#v", cell)
	}
}

func TestCellClass(t *testing.T) {
	t.Parallel()

	got := []string{
		Cell{Widget: "badge", Tone: "success"}.Class(),
		Cell{Widget: "text"}.Class(),
	}
	if diff := cmp.Diff([]string{"cell-badge tone-success", "cell-text"}, got); diff != "" {
		t.Fatalf("class mismatch (-want +got):\n%s", diff)
	}
}
