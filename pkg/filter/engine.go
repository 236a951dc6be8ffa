package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

// ErrUnknownField is returned when a key is not part of the grid's catalogue.
var ErrUnknownField = errors.New("filter: unknown field")

// Scratch is the transient editor state a rule is committed from.
type Scratch struct {
	Operator string           `json:"operator"`
	Value    string           `json:"value"`
	Checked  []string         `json:"checked"`
	Range    schema.DateRange `json:"range"`
}

// Outcome describes the effect of a commit for status messages.
type Outcome struct {
	Key     string `json:"key"`
	Applied bool   `json:"applied"`
	Removed bool   `json:"removed"`
	Message string `json:"message"`
}

// Engine edits the active filter set of one grid. It owns the editor scratch
// state; committed rules live in the Store.
type Engine struct {
	store  *Store
	gridID string

	mu      sync.Mutex
	active  string
	scratch Scratch
}

// NewEngine binds an engine to gridID in store.
func NewEngine(store *Store, gridID string) (*Engine, error) {
	if store == nil {
		return nil, widgeterr.Configuration("filter", "store is required")
	}
	if strings.TrimSpace(gridID) == "" {
		return nil, widgeterr.Configuration("filter", "grid id is required")
	}
	return &Engine{store: store, gridID: gridID, scratch: emptyScratch()}, nil
}

func emptyScratch() Scratch {
	return Scratch{Operator: OpContains, Checked: []string{}}
}

// GridID returns the grid the engine edits.
func (e *Engine) GridID() string { return e.gridID }

// Filter returns the active filter set.
func (e *Engine) Filter() Set { return e.store.Filter(e.gridID) }

// Catalogue returns the known filterable fields.
func (e *Engine) Catalogue() schema.Catalogue { return e.store.Catalogue(e.gridID) }

// Begin activates the editor for key and restores its scratch state from the
// committed rule, if any.
func (e *Engine) Begin(key string) (Scratch, error) {
	def, ok := e.store.Catalogue(e.gridID)[key]
	if !ok {
		return Scratch{}, fmt.Errorf("%w %q", ErrUnknownField, key)
	}
	existing, hasRule := e.store.Filter(e.gridID)[key]

	scratch := emptyScratch()
	switch {
	case def.FieldType.IsText():
		if hasRule {
			if ValidTextOperator(existing.Operator) {
				scratch.Operator = existing.Operator
			}
			scratch.Value = existing.Text()
		}
	case def.FieldType.IsGroup():
		if hasRule {
			scratch.Checked = existing.Values()
		}
	case def.FieldType.IsDateRange():
		if hasRule {
			scratch.Range = existing.Range()
		}
	}

	e.mu.Lock()
	e.active = key
	e.scratch = scratch
	e.mu.Unlock()
	return cloneScratch(scratch), nil
}

// Active returns the key being edited, or "".
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Scratch returns a copy of the editor state.
func (e *Engine) Scratch() Scratch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneScratch(e.scratch)
}

// SetOperator sets the text operator.
func (e *Engine) SetOperator(op string) {
	e.mu.Lock()
	e.scratch.Operator = op
	e.mu.Unlock()
}

// SetValue sets the text value.
func (e *Engine) SetValue(value string) {
	e.mu.Lock()
	e.scratch.Value = value
	e.mu.Unlock()
}

// SetRange sets the date bounds.
func (e *Engine) SetRange(from, to string) {
	e.mu.Lock()
	e.scratch.Range = schema.DateRange{From: from, To: to}
	e.mu.Unlock()
}

// Toggle flips membership of value in the checked set.
func (e *Engine) Toggle(value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for idx, checked := range e.scratch.Checked {
		if checked == value {
			e.scratch.Checked = append(e.scratch.Checked[:idx:idx], e.scratch.Checked[idx+1:]...)
			return
		}
	}
	e.scratch.Checked = append(e.scratch.Checked, value)
}

// SelectAll checks every choice of the active field.
func (e *Engine) SelectAll() {
	e.mu.Lock()
	key := e.active
	e.mu.Unlock()

	def := e.store.Catalogue(e.gridID)[key]
	choices := def.Choices()
	values := make([]string, 0, len(choices))
	for _, opt := range choices {
		values = append(values, opt.Value)
	}

	e.mu.Lock()
	e.scratch.Checked = values
	e.mu.Unlock()
}

// ClearCheckboxes unchecks everything.
func (e *Engine) ClearCheckboxes() {
	e.mu.Lock()
	e.scratch.Checked = []string{}
	e.mu.Unlock()
}

// Cancel closes the editor without committing.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.active = ""
	e.scratch = emptyScratch()
	e.mu.Unlock()
}

// Apply commits the scratch state of the active field and closes the editor.
func (e *Engine) Apply(ctx context.Context) (Outcome, error) {
	e.mu.Lock()
	key := e.active
	scratch := cloneScratch(e.scratch)
	e.mu.Unlock()
	if key == "" {
		return Outcome{}, errors.New("filter: no active field")
	}
	return e.ApplyRule(ctx, key, scratch)
}

// ApplyRule commits scratch as the rule for key, or removes the rule when the
// committed value would be empty.
func (e *Engine) ApplyRule(ctx context.Context, key string, scratch Scratch) (Outcome, error) {
	def, ok := e.store.Catalogue(e.gridID)[key]
	if !ok {
		return Outcome{}, fmt.Errorf("%w %q", ErrUnknownField, key)
	}

	rule, keep := Commit(def, scratch)
	title := def.Title
	if title == "" {
		title = key
	}

	e.store.Update(ctx, e.gridID, func(current Set) Set {
		if current == nil {
			current = Set{}
		}
		if keep {
			current[key] = rule
		} else {
			delete(current, key)
		}
		return current
	})
	e.Cancel()

	if keep {
		return Outcome{Key: key, Applied: true, Message: fmt.Sprintf("Applied filter for %s.", title)}, nil
	}
	return Outcome{Key: key, Removed: true, Message: fmt.Sprintf("Removed filter for %s.", title)}, nil
}

// RemoveRule deletes the rule for key.
func (e *Engine) RemoveRule(ctx context.Context, key string) Outcome {
	e.store.Update(ctx, e.gridID, func(current Set) Set {
		delete(current, key)
		return current
	})
	return Outcome{Key: key, Removed: true, Message: fmt.Sprintf("Removed filter for %s.", key)}
}

// ClearAll empties the active filter set in a single update.
func (e *Engine) ClearAll(ctx context.Context) Outcome {
	e.store.ClearFilter(ctx, e.gridID)
	e.Cancel()
	return Outcome{Removed: true, Message: "All filters cleared."}
}

// Commit applies the per-kind commit rules to scratch. The boolean is false
// when the rule should be removed instead of stored.
func Commit(def schema.FilterDefinition, scratch Scratch) (Rule, bool) {
	rule := Rule{
		FieldType: def.FieldType,
		Title:     def.Title,
		DBField:   def.DBField,
		Source:    def.Source,
	}

	switch {
	case def.FieldType.IsGroup():
		if len(scratch.Checked) == 0 {
			return Rule{}, false
		}
		rule.Operator = OpIn
		rule.Value = append([]string{}, scratch.Checked...)
	case def.FieldType.IsDateRange():
		from := strings.TrimSpace(scratch.Range.From)
		to := strings.TrimSpace(scratch.Range.To)
		if from == "" || to == "" {
			return Rule{}, false
		}
		if from > to {
			from, to = to, from
		}
		rule.Operator = OpBetween
		rule.Value = schema.DateRange{From: from, To: to}
	default:
		value := strings.TrimSpace(scratch.Value)
		if value == "" {
			return Rule{}, false
		}
		rule.Operator = scratch.Operator
		if !ValidTextOperator(rule.Operator) {
			rule.Operator = OpContains
		}
		rule.Value = value
	}
	return rule, true
}

func cloneScratch(s Scratch) Scratch {
	s.Checked = append([]string{}, s.Checked...)
	return s
}
