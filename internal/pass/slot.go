package pass

import "sync"

// Slot holds one pass's current and previous result handles (spec §4.5
// "Slots"): current_P and previous_P, each an Option<Shared<R_P>>. Clone is
// explicit (CloneHandle) rather than implicit, matching the "clone
// duplicates only shared handles" rule of spec §4.6.
type Slot[T any] struct {
	mu sync.Mutex

	current  *Shared[T]
	previous *Shared[T]

	// clone deep-copies a T for the copy-on-write path; required because
	// Go generics cannot express "make a private copy of T" without it.
	clone func(T) T
}

// NewSlot returns an empty Slot. clone must return an independent, deeply
// mutable copy of its argument.
func NewSlot[T any](clone func(T) T) *Slot[T] {
	return &Slot[T]{clone: clone}
}

// Invalidate clears current_P, per spec §4.5 "on any change to the segment
// set, current_P := None for every P"; previous_P is left untouched so the
// next recompute can reuse it incrementally.
func (s *Slot[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Release()
		s.current = nil
	}
}

// Current returns the cached result if one is ready, without recomputing.
func (s *Slot[T]) Current() (*Shared[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, false
	}

	return s.current.Clone(), true
}

// Recompute runs the spec §4.5 lazy-recompute algorithm's steps 3-6: it
// ensures previous_P exists, acquires exclusive (copy-on-write) access to
// it, hands that exclusive pointer to update, and on success publishes the
// result as current_P. The caller is responsible for step 2 (ensuring
// predecessors are computed) before calling Recompute.
func (s *Slot[T]) Recompute(zero T, update func(prev *T) error) (*Shared[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return s.current.Clone(), nil
	}

	if s.previous == nil {
		s.previous = NewShared(zero)
	}

	prev := s.acquireForWriteLocked()

	if err := update(prev); err != nil {
		return nil, err
	}

	s.current = s.previous.Clone()

	return s.current.Clone(), nil
}

// acquireForWriteLocked returns a pointer to previous_P's value that is
// safe to mutate in place, materializing a private copy first if any other
// Slot (from a Database clone) still shares it. Caller holds s.mu.
func (s *Slot[T]) acquireForWriteLocked() *T {
	if s.previous.shared() {
		copied := s.clone(*s.previous.Get())
		s.previous.Release()
		s.previous = NewShared(copied)
	}

	return s.previous.Get()
}

// CloneHandle returns a new Slot sharing this one's current/previous
// values (bumping their refcounts), never copying the values themselves —
// the "clone duplicates only shared handles" contract of spec §4.6.
func (s *Slot[T]) CloneHandle() *Slot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := &Slot[T]{clone: s.clone}

	if s.current != nil {
		clone.current = s.current.Clone()
	}

	if s.previous != nil {
		clone.previous = s.previous.Clone()
	}

	return clone
}

// Release drops this Slot's handles on its current/previous values. Called
// during Database teardown, in the reverse-dependency order spec §4.6
// requires.
func (s *Slot[T]) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Release()
		s.current = nil
	}

	if s.previous != nil {
		s.previous.Release()
		s.previous = nil
	}
}
