package store

import (
	"sort"
	"sync"

	"finitefield.org/hanko-storefront/internal/commerce"
)

// Listener observes state transitions. It receives copies and must not dispatch.
type Listener func(action Action, prev, next State)

// Store is an explicit state container. Dispatch is the only way to change a slice;
// actions are applied and announced to listeners strictly in arrival order.
type Store struct {
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// New creates a store seeded with the given state.
func New(initial State) *Store {
	return &Store{
		state:     initial.clone(),
		listeners: map[int]Listener{},
	}
}

// Dispatch applies the action to every slice reducer and notifies listeners.
func (s *Store) Dispatch(a Action) {
	if s == nil || a == nil {
		return
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	prev := s.state
	next := reduce(prev, a)
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, id := range s.sortedIDs() {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(a, prev.clone(), next.clone())
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) sortedIDs() []int {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SelectOrder returns the order to display with ItemsPrice derived from its lines. It
// returns nil while the slice is loading, has failed, or holds no order.
func SelectOrder(st State) *commerce.Order {
	d := st.OrderDetails
	if d.Loading || d.Error != "" || d.Order == nil {
		return nil
	}
	return commerce.WithItemsPrice(d.Order)
}
