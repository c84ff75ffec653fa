package pass

import "sync"

// Version is the per-entry version counter a pass result bumps only when a
// key's value actually changes, per spec §4.5's incremental update rule.
type Version uint64

// VersionedKey names the segment and version an entry was last written at,
// the unit spec's Usage[K] records per queried key.
type VersionedKey struct {
	Segment uint32
	Version Version
}

// Usage records, for one run of a pass, every key that run queried from its
// predecessor's Reader, and the (segment, version) pair it saw. A later
// incremental re-run consults StillValid to decide whether it can reuse a
// segment's prior output without recomputing it (spec §4.5 "Usage check").
type Usage[K comparable] struct {
	mu      sync.Mutex
	entries map[K]VersionedKey
}

// NewUsage returns an empty Usage.
func NewUsage[K comparable]() *Usage[K] {
	return &Usage[K]{entries: make(map[K]VersionedKey)}
}

// Record notes that key was read at (segment, version). Recording the same
// key twice with different values can happen validly within one run (a
// predecessor result changing mid-run is not possible since it is held
// immutable for the run's duration) so the last write wins.
func (u *Usage[K]) Record(key K, segment uint32, version Version) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.entries[key] = VersionedKey{Segment: segment, Version: version}
}

// StillValid implements spec §4.5's usage check: for every (key, seg, v)
// this Usage recorded, lookup must still report the same (seg, v) in the
// predecessor being checked against. A key present before but now missing
// (lookup's second return is false) invalidates the usage.
func (u *Usage[K]) StillValid(lookup func(key K) (VersionedKey, bool)) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	for key, want := range u.entries {
		got, ok := lookup(key)
		if !ok || got != want {
			return false
		}
	}

	return true
}

// Len returns the number of distinct keys recorded, used by diagnostics and
// tests to assert a pass actually touched the keys it claims to depend on.
func (u *Usage[K]) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return len(u.entries)
}
