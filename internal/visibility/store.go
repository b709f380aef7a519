package visibility

import (
	"sync"

	"github.com/smukkama/envdash-server/internal/store"
)

var ErrUnknownDataset = &VisibilityError{"unknown dataset"}

// VisibilityError represents visibility state errors
type VisibilityError struct {
	message string
}

func (e *VisibilityError) Error() string {
	return e.message
}

// Transition is one visibility change: a dataset moved between Hidden and
// Visible.
type Transition struct {
	Dataset store.Dataset
	Visible bool
}

// Subscriber receives visibility transitions.
type Subscriber func(Transition)

// StateStore owns the per-dataset visibility state. Every dataset starts
// Hidden; external toggles are the only transition trigger. All other
// components read state through this store and never mutate it directly.
type StateStore struct {
	mu          sync.RWMutex
	states      map[store.Dataset]bool
	subscribers []Subscriber

	// notifyMu serializes subscriber callbacks so one transition's fan-out
	// finishes before the next begins, even with concurrent togglers.
	notifyMu sync.Mutex
}

// NewStateStore creates a visibility store with every dataset Hidden
func NewStateStore() *StateStore {
	states := make(map[store.Dataset]bool, len(store.AllDatasets))
	for _, dataset := range store.AllDatasets {
		states[dataset] = false
	}
	return &StateStore{states: states}
}

// Subscribe registers a callback for visibility transitions.
func (s *StateStore) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Toggle moves a dataset to the requested visibility. Returns true when a
// transition happened; toggling to the current state is a no-op and notifies
// nobody.
func (s *StateStore) Toggle(dataset store.Dataset, visible bool) (bool, error) {
	if !dataset.Known() {
		return false, ErrUnknownDataset
	}

	s.mu.Lock()
	if s.states[dataset] == visible {
		s.mu.Unlock()
		return false, nil
	}
	s.states[dataset] = visible
	subscribers := make([]Subscriber, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for _, fn := range subscribers {
		fn(Transition{Dataset: dataset, Visible: visible})
	}
	return true, nil
}

// Visible reports whether a dataset is currently shown.
func (s *StateStore) Visible(dataset store.Dataset) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[dataset]
}

// States returns a copy of the full visibility mapping.
func (s *StateStore) States() map[store.Dataset]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[store.Dataset]bool, len(s.states))
	for dataset, visible := range s.states {
		states[dataset] = visible
	}
	return states
}
