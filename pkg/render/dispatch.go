package render

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// KindTable maps every field kind to a handler of type T. Construction fails
// unless the table covers the closed kind set exactly, so adding a kind to
// the schema forces every renderer to handle it.
type KindTable[T any] struct {
	entries map[schema.Kind]T
}

// NewKindTable validates entries against schema.Kinds.
func NewKindTable[T any](entries map[schema.Kind]T) (*KindTable[T], error) {
	var missing []string
	for _, kind := range schema.Kinds() {
		if _, ok := entries[kind]; !ok {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("render: kind table missing %s", strings.Join(missing, ", "))
	}
	for kind := range entries {
		if !kind.Valid() {
			return nil, fmt.Errorf("render: kind table has unknown kind %q", kind)
		}
	}

	copied := make(map[schema.Kind]T, len(entries))
	for kind, entry := range entries {
		copied[kind] = entry
	}
	return &KindTable[T]{entries: copied}, nil
}

// MustKindTable panics when entries do not cover the kind set.
func MustKindTable[T any](entries map[schema.Kind]T) *KindTable[T] {
	table, err := NewKindTable(entries)
	if err != nil {
		panic(err)
	}
	return table
}

// Lookup returns the handler for kind.
func (t *KindTable[T]) Lookup(kind schema.Kind) (T, error) {
	entry, ok := t.entries[kind]
	if !ok {
		var zero T
		return zero, fmt.Errorf("render: no handler for kind %q", kind)
	}
	return entry, nil
}
