package pass_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mm-tools/mmcore/internal/pass"
)

type stringIndex = pass.Index[string, int]

func cloneStringIndex(idx *stringIndex) *stringIndex {
	return idx.Clone()
}

func TestSlot_RecomputeUsesZeroOnFirstRun(t *testing.T) {
	t.Parallel()

	slot := pass.NewSlot(cloneStringIndex)

	shared, err := slot.Recompute(pass.NewIndex[string, int](), func(prev *stringIndex) error {
		prev.Set("a", 1, 0, 1)

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, shared.Get().Len())
}

func TestSlot_CurrentReturnsCachedResultWithoutRecompute(t *testing.T) {
	t.Parallel()

	slot := pass.NewSlot(cloneStringIndex)
	calls := 0

	_, err := slot.Recompute(pass.NewIndex[string, int](), func(prev *stringIndex) error {
		calls++
		prev.Set("a", 1, 0, 1)

		return nil
	})
	require.NoError(t, err)

	cached, ok := slot.Current()
	require.True(t, ok)
	assert.Equal(t, 1, cached.Get().Len())
	assert.Equal(t, 1, calls)
}

func TestSlot_InvalidateForcesRecompute(t *testing.T) {
	t.Parallel()

	slot := pass.NewSlot(cloneStringIndex)
	calls := 0

	run := func() {
		_, err := slot.Recompute(pass.NewIndex[string, int](), func(prev *stringIndex) error {
			calls++

			return nil
		})
		require.NoError(t, err)
	}

	run()
	slot.Invalidate()
	run()

	assert.Equal(t, 2, calls)
}

func TestSlot_CloneHandleSharesUntilWrite(t *testing.T) {
	t.Parallel()

	original := pass.NewSlot(cloneStringIndex)

	_, err := original.Recompute(pass.NewIndex[string, int](), func(prev *stringIndex) error {
		prev.Set("a", 1, 0, 1)

		return nil
	})
	require.NoError(t, err)

	clone := original.CloneHandle()
	clone.Invalidate()

	// Mutating the clone's previous must not affect the original's result.
	_, err = clone.Recompute(pass.NewIndex[string, int](), func(prev *stringIndex) error {
		prev.Set("b", 2, 0, 1)

		return nil
	})
	require.NoError(t, err)

	origCurrent, ok := original.Current()
	require.True(t, ok)
	assert.Equal(t, 1, origCurrent.Get().Len(), "original must be unaffected by clone's write")

	cloneCurrent, ok := clone.Current()
	require.True(t, ok)
	assert.Equal(t, 2, cloneCurrent.Get().Len())
}

func TestUsage_StillValidDetectsChange(t *testing.T) {
	t.Parallel()

	u := pass.NewUsage[string]()
	u.Record("a", 0, 1)

	assert.True(t, u.StillValid(func(key string) (pass.VersionedKey, bool) {
		return pass.VersionedKey{Segment: 0, Version: 1}, true
	}))

	assert.False(t, u.StillValid(func(key string) (pass.VersionedKey, bool) {
		return pass.VersionedKey{Segment: 0, Version: 2}, true
	}))

	assert.False(t, u.StillValid(func(key string) (pass.VersionedKey, bool) {
		return pass.VersionedKey{}, false
	}))
}

func TestReader_RecordsUsageOnHit(t *testing.T) {
	t.Parallel()

	idx := pass.NewIndex[string, int]()
	idx.Set("a", 42, 3, 7)

	r := pass.NewReader(idx)

	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, r.Usage().Len())

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Usage().Len())
}
