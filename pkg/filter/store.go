package filter

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Listener observes filter changes for one grid. It runs synchronously on the
// goroutine that changed the filter and receives a private copy of the set.
type Listener func(ctx context.Context, gridID string, set Set)

// Persister saves store state so it survives a restart. Implementations are
// keyed by grid id; an empty set or catalogue deletes the entry.
type Persister interface {
	LoadFilters(ctx context.Context) (map[string]Set, error)
	LoadCatalogues(ctx context.Context) (map[string]schema.Catalogue, error)
	SaveFilter(ctx context.Context, gridID string, set Set) error
	SaveCatalogue(ctx context.Context, gridID string, catalogue schema.Catalogue) error
}

// Store holds the active filter set and the learned field catalogue of every
// grid sharing it. Grids are keyed by their endpoint identifier. A Store is
// safe for concurrent use; writes are last-writer-wins.
type Store struct {
	mu         sync.RWMutex
	filters    map[string]Set
	catalogues map[string]schema.Catalogue
	listeners  map[string]map[uint64]Listener
	nextID     uint64

	persister Persister
	logger    logrus.FieldLogger
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithPersister saves every change through p.
func WithPersister(p Persister) StoreOption {
	return func(s *Store) {
		s.persister = p
	}
}

// WithStoreLogger sets the logger used for persistence failures.
func WithStoreLogger(logger logrus.FieldLogger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns an empty in-memory store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		filters:    make(map[string]Set),
		catalogues: make(map[string]schema.Catalogue),
		listeners:  make(map[string]map[uint64]Listener),
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// OpenStore returns a store primed with the state held by its persister.
// Unreadable state is logged and skipped rather than failing the open.
func OpenStore(ctx context.Context, opts ...StoreOption) (*Store, error) {
	s := NewStore(opts...)
	if s.persister == nil {
		return s, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filters, err := s.persister.LoadFilters(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("filter: stored filters unreadable, starting empty")
		filters = nil
	}
	catalogues, err := s.persister.LoadCatalogues(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("filter: stored catalogues unreadable, starting empty")
		catalogues = nil
	}
	for gridID, set := range filters {
		if len(set) > 0 {
			s.filters[gridID] = set.Clone()
		}
	}
	for gridID, catalogue := range catalogues {
		if len(catalogue) > 0 {
			s.catalogues[gridID] = catalogue.Clone()
		}
	}
	return s, nil
}

// Filter returns a copy of the active filter set for gridID.
func (s *Store) Filter(gridID string) Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters[gridID].Clone()
}

// Grids lists the grid ids holding a non-empty filter set.
func (s *Store) Grids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.filters))
	for id := range s.filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetFilter replaces the active filter set for gridID and notifies
// subscribers. Setting an identical set is a no-op.
func (s *Store) SetFilter(ctx context.Context, gridID string, set Set) {
	s.Update(ctx, gridID, func(Set) Set { return set })
}

// Update replaces the filter set of gridID with the result of fn, which
// receives a copy of the current set.
func (s *Store) Update(ctx context.Context, gridID string, fn func(current Set) Set) {
	s.mu.Lock()
	current := s.filters[gridID]
	next := fn(current.Clone()).Clone()
	if reflect.DeepEqual(normalizeEmpty(current), normalizeEmpty(next)) {
		s.mu.Unlock()
		return
	}
	if len(next) == 0 {
		delete(s.filters, gridID)
	} else {
		s.filters[gridID] = next
	}
	listeners := s.listenersFor(gridID)
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.SaveFilter(ctx, gridID, next); err != nil {
			s.logger.WithError(err).WithField("grid", gridID).Warn("filter: persist filter")
		}
	}
	for _, listener := range listeners {
		listener(ctx, gridID, next.Clone())
	}
}

// ClearFilter removes every rule of gridID.
func (s *Store) ClearFilter(ctx context.Context, gridID string) {
	s.SetFilter(ctx, gridID, nil)
}

// Catalogue returns a copy of the filterable-field catalogue learned for
// gridID.
func (s *Store) Catalogue(gridID string) schema.Catalogue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalogues[gridID].Clone()
}

// MergeCatalogue offers a catalogue advertised by a response. Empty
// catalogues are ignored and a catalogue smaller than the known one is
// rejected, so the retained catalogue never shrinks. It returns the retained
// catalogue and whether it changed.
func (s *Store) MergeCatalogue(ctx context.Context, gridID string, incoming schema.Catalogue) (schema.Catalogue, bool) {
	s.mu.Lock()
	current := s.catalogues[gridID]
	if len(incoming) == 0 || len(incoming) < len(current) || reflect.DeepEqual(current, incoming) {
		out := current.Clone()
		s.mu.Unlock()
		return out, false
	}
	s.catalogues[gridID] = incoming.Clone()
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.SaveCatalogue(ctx, gridID, incoming); err != nil {
			s.logger.WithError(err).WithField("grid", gridID).Warn("filter: persist catalogue")
		}
	}
	return incoming.Clone(), true
}

// Subscribe registers listener for changes to gridID's filter set. The
// returned function removes the subscription.
func (s *Store) Subscribe(gridID string, listener Listener) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	if s.listeners[gridID] == nil {
		s.listeners[gridID] = make(map[uint64]Listener)
	}
	s.listeners[gridID][id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners[gridID], id)
			if len(s.listeners[gridID]) == 0 {
				delete(s.listeners, gridID)
			}
			s.mu.Unlock()
		})
	}
}

func (s *Store) listenersFor(gridID string) []Listener {
	registered := s.listeners[gridID]
	if len(registered) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(registered))
	for id := range registered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, registered[id])
	}
	return out
}

func normalizeEmpty(set Set) Set {
	if len(set) == 0 {
		return Set{}
	}
	return set
}
