package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mm-tools/mmcore/internal/exec"
	"github.com/mm-tools/mmcore/internal/segment"
	"github.com/mm-tools/mmcore/internal/source"
)

func newTestSet() *segment.Set {
	loader := source.NewLoader(false, nil)
	executor := exec.New(2, nil)

	return segment.NewSet(loader, executor)
}

func TestSet_Read_InitialLoadAssignsIDsInOrder(t *testing.T) {
	t.Parallel()

	s := newTestSet()

	overlay := map[string][]byte{
		"root.mm": []byte("before\n$[ lib.mm $]\nafter\n"),
		"lib.mm":  []byte("library\n"),
	}

	require.NoError(t, s.Read("root.mm", overlay))

	segs := s.Segments()
	require.Len(t, segs, 3)

	for i := 0; i < len(segs)-1; i++ {
		cmp, err := s.Order().Compare(segs[i].ID, segs[i+1].ID)
		require.NoError(t, err)
		assert.Equal(t, -1, cmp)
	}
}

func TestSet_Read_UnchangedPieceKeepsSameID(t *testing.T) {
	t.Parallel()

	s := newTestSet()

	overlay := map[string][]byte{
		"root.mm": []byte("c0 $c wff $.\n"),
	}

	require.NoError(t, s.Read("root.mm", overlay))
	firstID := s.Segments()[0].ID

	require.NoError(t, s.Read("root.mm", overlay))
	secondID := s.Segments()[0].ID

	assert.Equal(t, firstID, secondID)
}

func TestSet_Read_ChangedPieceReusesIDPositionally(t *testing.T) {
	t.Parallel()

	s := newTestSet()

	overlay := map[string][]byte{
		"root.mm": []byte("c0 $c wff $.\n"),
	}
	require.NoError(t, s.Read("root.mm", overlay))
	firstID := s.Segments()[0].ID

	overlay["root.mm"] = []byte("c0 $c wff class $.\n")
	require.NoError(t, s.Read("root.mm", overlay))

	segs := s.Segments()
	require.Len(t, segs, 1)
	assert.Equal(t, firstID, segs[0].ID)
	assert.Equal(t, []string{"wff", "class"}, segs[0].Statements[0].Tokens)
}

func TestSet_Read_NewPieceGetsFreshIDBetweenNeighbors(t *testing.T) {
	t.Parallel()

	s := newTestSet()

	overlay := map[string][]byte{
		"a.mm": []byte("a $c wffa $.\n"),
		"c.mm": []byte("c $c wffc $.\n"),
	}
	require.NoError(t, s.Read("a.mm", map[string][]byte{"a.mm": overlay["a.mm"]}))

	// Simulate a root that now includes both a and c, with a fresh "b"
	// piece inserted between them via an overlay include chain.
	overlay2 := map[string][]byte{
		"root.mm": []byte("$[ a.mm $]$[ b.mm $]$[ c.mm $]"),
		"a.mm":    overlay["a.mm"],
		"b.mm":    []byte("b $c wffb $.\n"),
		"c.mm":    overlay["c.mm"],
	}
	require.NoError(t, s.Read("root.mm", overlay2))

	segs := s.Segments()
	require.Len(t, segs, 3)

	for i := 0; i < len(segs)-1; i++ {
		cmp, err := s.Order().Compare(segs[i].ID, segs[i+1].ID)
		require.NoError(t, err)
		assert.Equal(t, -1, cmp)
	}
}

func TestSet_Read_RemovedPieceFreesID(t *testing.T) {
	t.Parallel()

	s := newTestSet()

	overlay := map[string][]byte{
		"root.mm": []byte("$[ a.mm $]$[ b.mm $]"),
		"a.mm":    []byte("a $c wffa $.\n"),
		"b.mm":    []byte("b $c wffb $.\n"),
	}
	require.NoError(t, s.Read("root.mm", overlay))
	require.Len(t, s.Segments(), 2)

	delete(overlay, "b.mm")
	overlay["root.mm"] = []byte("$[ a.mm $]")

	require.NoError(t, s.Read("root.mm", overlay))

	segs := s.Segments()
	require.Len(t, segs, 1)
	assert.Equal(t, "a.mm", segs[0].Piece.Origin)
}

func TestSet_ParseDiagnostics_SurfacesIOErrors(t *testing.T) {
	t.Parallel()

	s := newTestSet()

	require.NoError(t, s.Read("missing.mm", nil))

	diags := s.ParseDiagnostics()
	require.Len(t, diags, 1)
}
