package form

import (
	"sort"

	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/visibility"
)

// depGraph maps each data field to the fields whose predicates read it.
// Fields whose inputs cannot be determined statically depend on every field.
type depGraph struct {
	dependents map[string][]string
	global     []string
}

func buildGraph(form schema.Form, rules visibility.Rules) depGraph {
	g := depGraph{dependents: make(map[string][]string)}
	for _, field := range form.DataFields() {
		deps, all := rules.Dependencies(field)
		if all {
			g.global = append(g.global, field.Name)
			continue
		}
		for _, dep := range deps {
			if dep == field.Name {
				continue
			}
			g.dependents[dep] = append(g.dependents[dep], field.Name)
		}
	}
	return g
}

// dependentsOf returns the fields directly reading name, in sorted order.
func (g depGraph) dependentsOf(name string) []string {
	seen := make(map[string]struct{})
	for _, dep := range g.dependents[name] {
		seen[dep] = struct{}{}
	}
	for _, dep := range g.global {
		if dep != name {
			seen[dep] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// affected returns the changed fields plus every field reading one of them.
func (g depGraph) affected(changed ...string) []string {
	seen := make(map[string]struct{})
	for _, name := range changed {
		seen[name] = struct{}{}
		for _, dep := range g.dependentsOf(name) {
			seen[dep] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
