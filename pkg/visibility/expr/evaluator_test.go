package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgrid/pkg/visibility"
)

func TestEvaluatorBooleanComparison(t *testing.T) {
	t.Parallel()

	eval := New()

	ok, err := eval.Eval("threshold", "enabled == true", visibility.Context{
		Values: map[string]any{"enabled": true},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true")
	}

	ok, err = eval.Eval("threshold", "enabled == true", visibility.Context{
		Values: map[string]any{"enabled": "true"},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true for string true")
	}
}

func TestEvaluatorTruthyAndNot(t *testing.T) {
	t.Parallel()

	eval := New()
	cases := []struct {
		rule   string
		values map[string]any
		want   bool
	}{
		{"subscribe", map[string]any{"subscribe": true}, true},
		{"!subscribe", map[string]any{"subscribe": false}, true},
		{"subscribe", map[string]any{"subscribe": ""}, false},
		{"tags", map[string]any{"tags": []string{}}, false},
		{"tags", map[string]any{"tags": []string{"a"}}, true},
		{"missing", nil, false},
		{"", nil, true},
	}
	for _, tc := range cases {
		got, err := eval.Eval("x", tc.rule, visibility.Context{Values: tc.values})
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
		}
	}
}

func TestEvaluatorComparisonsAndComposition(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"country": "US",
		"age":     21.0,
		"count":   "3",
		"start":   "2025-03-01",
		"tags":    []string{"beta", "ops"},
		"address": map[string]any{"city": "Austin"},
	}
	cases := map[string]bool{
		`country == "US"`:                      true,
		`country == 'CA'`:                      false,
		`country != "CA"`:                      true,
		`country == US`:                        true,
		`age >= 18`:                            true,
		`age < 18`:                             false,
		`count <= 3`:                           true,
		`count > 3`:                            false,
		`start > "2025-01-01"`:                 true,
		`tags == "beta"`:                       true,
		`tags != "alpha"`:                      true,
		`address.city == "Austin"`:             true,
		`country == "US" && (age > 30 || tags)`: true,
		`country == "US" and not tags`:         false,
		`notes == null`:                        true,
	}
	eval := New()
	for rule, want := range cases {
		got, err := eval.Eval("x", rule, visibility.Context{Values: values})
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", rule, err)
		}
		if got != want {
			t.Fatalf("Eval(%q) = %v, want %v", rule, got, want)
		}
	}
}

func TestEvaluatorExtras(t *testing.T) {
	t.Parallel()

	ok, err := New().Eval("x", `extras.role == "admin"`, visibility.Context{
		Extras: map[string]any{"role": "admin"},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected extras lookup to match")
	}
}

func TestEvaluatorRejectsMalformedRules(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{`a = 1`, `a & b`, `(a == 1`, `"unterminated`, `a ==`, `a >= true`} {
		if _, err := New().Eval("x", rule, visibility.Context{Values: map[string]any{"a": 1}}); err == nil {
			t.Fatalf("expected error for %q", rule)
		}
	}
}

func TestDependenciesListIdentifiers(t *testing.T) {
	t.Parallel()

	eval := New()
	deps, err := eval.Dependencies(`country == "US" && !optOut || address.city == "x" || extras.role`)
	if err != nil {
		t.Fatalf("Dependencies returned error: %v", err)
	}
	want := []string{"address", "address.city", "country", "optOut"}
	if diff := cmp.Diff(want, deps); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}

	deps, err = eval.Dependencies("")
	if err != nil || len(deps) != 0 {
		t.Fatalf("empty rule should have no dependencies, got %v (%v)", deps, err)
	}
}

func TestCompileCachesPrograms(t *testing.T) {
	t.Parallel()

	eval := New()
	first, err := eval.program(" a == 1 ")
	if err != nil {
		t.Fatalf("program: %v", err)
	}
	second, err := eval.program("a == 1")
	if err != nil {
		t.Fatalf("program: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached program to be reused")
	}
	if MustCompile("a").Source() != "a" {
		t.Fatalf("unexpected source")
	}
}
