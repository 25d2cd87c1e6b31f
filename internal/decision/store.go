package decision

import "sync"

// Store holds the current decision of one session. Every cycle calls Begin
// for a sequence number; Apply only accepts objects from the most recent
// cycle, so a slow arbitration of a superseded cycle is dropped.
type Store struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex
	seq       uint64
	current   *Object
	listeners map[int]func(Object)
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]func(Object))}
}

// Begin starts a new cycle and returns its sequence number.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Latest returns the sequence number of the most recent cycle.
func (s *Store) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Apply replaces the current object if seq is still the latest cycle and
// notifies subscribers. It reports whether the object was applied.
// Listeners must not call Apply.
func (s *Store) Apply(seq uint64, obj Object) bool {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return false
	}
	stored := obj.Clone()
	s.current = &stored
	fns := make([]func(Object), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	// hold notifyMu before releasing mu so notifications keep apply order
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range fns {
		fn(stored.Clone())
	}
	return true
}

// Current returns a copy of the current object, if any cycle has applied one.
func (s *Store) Current() (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Object{}, false
	}
	return s.current.Clone(), true
}

// Subscribe registers fn for every applied object and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Object)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
