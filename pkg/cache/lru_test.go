package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mm-tools/mmcore/pkg/cache"
)

func TestByteCache_GetPutRoundTrip(t *testing.T) {
	t.Parallel()

	c := cache.NewByteCache(1024)

	_, ok := c.Get(1)
	require.False(t, ok)

	c.Put(1, []byte("hello"))

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestByteCache_PutClonesInput(t *testing.T) {
	t.Parallel()

	c := cache.NewByteCache(1024)

	buf := []byte("mutate-me")
	c.Put(1, buf)
	buf[0] = 'X'

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "mutate-me", string(got))
}

func TestByteCache_RejectsOversizedEntry(t *testing.T) {
	t.Parallel()

	c := cache.NewByteCache(4)
	c.Put(1, []byte("too big for four bytes"))

	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestByteCache_EvictsUnderPressure(t *testing.T) {
	t.Parallel()

	c := cache.NewByteCache(16)

	for i := uint64(0); i < 8; i++ {
		c.Put(i, []byte("12345678"))
	}

	stats := c.Stats()
	assert.LessOrEqual(t, stats.CurrentSize, int64(16))
	assert.Less(t, stats.Entries, 8)
}

func TestStats_HitRate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, cache.Stats{}.HitRate())
	assert.InDelta(t, 0.75, cache.Stats{Hits: 3, Misses: 1}.HitRate(), 0.0001)
}
