package viewmodel

import "sync"

// State is an observable value. Subscribers get a channel that is closed on
// the next Set and subscribe again to keep watching.
type State[T any] struct {
	mu       sync.RWMutex
	value    T
	updateCh chan struct{}
}

// NewState creates a State holding initial.
func NewState[T any](initial T) *State[T] {
	return &State[T]{value: initial, updateCh: make(chan struct{})}
}

// Value returns the current value.
func (s *State[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores v and wakes every subscriber.
func (s *State[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	close(s.updateCh)
	s.updateCh = make(chan struct{})
}

// Subscribe returns a channel closed on the next Set.
func (s *State[T]) Subscribe() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updateCh
}
