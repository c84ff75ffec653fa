// Package pass implements the generic pass-result machinery of spec §4.5:
// copy-on-write result slots shared across Database clones, plus the
// Reader/Usage bookkeeping each pass's incremental update relies on. The
// design mirrors the teacher's generic, key-versioned pkg/cache.ByteCache,
// adapted from caching decoded blob bytes to caching a pass's typed result
// index.
package pass

import "sync/atomic"

// Shared is a reference-counted box around a value of type T, standing in
// for Rust's Arc<T> from original_source/src/database.rs: multiple Slot
// handles (one per Database clone) can point at the same Shared without
// copying, until one of them needs to mutate it.
type Shared[T any] struct {
	value *T
	refs  *atomic.Int32
}

// NewShared wraps v in a freshly refcounted Shared.
func NewShared[T any](v T) *Shared[T] {
	refs := &atomic.Int32{}
	refs.Store(1)

	return &Shared[T]{value: &v, refs: refs}
}

// Clone returns a handle sharing the same underlying value, bumping the
// refcount — the Go analogue of Arc::clone.
func (s *Shared[T]) Clone() *Shared[T] {
	s.refs.Add(1)

	return &Shared[T]{value: s.value, refs: s.refs}
}

// Release drops this handle's claim on the value. It does not free
// anything explicitly — Go's GC reclaims value once every handle is
// unreferenced — but it keeps refs accurate so Slot can tell whether a
// mutation would be visible to another clone.
func (s *Shared[T]) Release() {
	s.refs.Add(-1)
}

// Get returns the shared value. Callers must not mutate it in place unless
// they hold the only handle (see Slot.acquireForWriteLocked).
func (s *Shared[T]) Get() *T {
	return s.value
}

// shared reports whether any other handle besides s currently references
// the same value.
func (s *Shared[T]) shared() bool {
	return s.refs.Load() > 1
}
