package visibility

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Rules evaluates the showIf and disabled predicates of schema fields.
// Programmatic predicates (ShowIfFunc, DisabledFunc) take precedence over the
// declarative ones. A predicate that fails to evaluate leaves the field
// visible and enabled; OnError observes the failure.
type Rules struct {
	Evaluator Evaluator
	Extras    map[string]any
	OnError   func(field string, rule schema.Predicate, err error)
}

// Visible reports whether field should be shown for values.
func (r Rules) Visible(field schema.Field, values schema.Values) bool {
	if field.ShowIfFunc != nil {
		return field.ShowIfFunc(values)
	}
	return r.holds(field.Name, field.ShowIf, values, true)
}

// Disabled reports whether field is disabled for values.
func (r Rules) Disabled(field schema.Field, values schema.Values) bool {
	if field.DisabledFunc != nil {
		return field.DisabledFunc(values)
	}
	if field.Disabled.Empty() {
		return false
	}
	return r.holds(field.Name, field.Disabled, values, false)
}

func (r Rules) holds(name string, rule schema.Predicate, values schema.Values, fallback bool) bool {
	if rule.Empty() {
		return true
	}
	if literal, err := strconv.ParseBool(string(rule)); err == nil {
		return literal
	}
	if r.Evaluator == nil {
		return fallback
	}
	ok, err := r.Evaluator.Eval(name, string(rule), Context{Values: values.Map(), Extras: r.Extras})
	if err != nil {
		if r.OnError != nil {
			r.OnError(name, rule, err)
		}
		return fallback
	}
	return ok
}

// Dependencies lists the value keys the field's predicates and validator
// read. all is true when they cannot be determined statically, which is the
// case for programmatic predicates, custom validators and evaluators without
// dependency analysis.
func (r Rules) Dependencies(field schema.Field) (deps []string, all bool) {
	if field.ShowIfFunc != nil || field.DisabledFunc != nil || field.Validate != nil {
		return nil, true
	}

	seen := make(map[string]struct{})
	for _, rule := range []schema.Predicate{field.ShowIf, field.Disabled} {
		if rule.Empty() {
			continue
		}
		if _, err := strconv.ParseBool(string(rule)); err == nil {
			continue
		}
		analyzer, ok := r.Evaluator.(DependencyAnalyzer)
		if !ok {
			return nil, true
		}
		idents, err := analyzer.Dependencies(string(rule))
		if err != nil {
			return nil, true
		}
		for _, ident := range idents {
			root, _, _ := strings.Cut(ident, ".")
			seen[root] = struct{}{}
		}
	}
	for _, dep := range field.DependsOn {
		if dep = strings.TrimSpace(dep); dep != "" {
			seen[dep] = struct{}{}
		}
	}

	for dep := range seen {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps, false
}
