package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindIncludes(t *testing.T) {
	t.Parallel()

	data := []byte("stmt a\n$[ lib.mm $]\nstmt b\n")
	includes := findIncludes(data)
	require.Len(t, includes, 1)
	assert.Equal(t, "lib.mm", includes[0].name)
}

func TestFindIncludes_Multiple(t *testing.T) {
	t.Parallel()

	data := []byte("$[ a.mm $]mid$[ b.mm $]")
	includes := findIncludes(data)
	require.Len(t, includes, 2)
	assert.Equal(t, "a.mm", includes[0].name)
	assert.Equal(t, "b.mm", includes[1].name)
}

func TestSplitOnIncludes(t *testing.T) {
	t.Parallel()

	data := []byte("before\n$[ lib.mm $]\nafter\n")
	literals, includes := splitOnIncludes(data)

	require.Len(t, includes, 1)
	require.Len(t, literals, 2)
	assert.Equal(t, "before\n", string(literals[0].data))
	assert.Equal(t, "\nafter\n", string(literals[1].data))
}

func TestSplitOnIncludes_NoIncludes(t *testing.T) {
	t.Parallel()

	data := []byte("just content, no includes\n")
	literals, includes := splitOnIncludes(data)

	assert.Empty(t, includes)
	require.Len(t, literals, 1)
	assert.Equal(t, data, literals[0].data)
}
