package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mm-tools/mmcore/internal/diag"
	"github.com/mm-tools/mmcore/internal/source"
)

func TestLoad_OverlayResolvesBeforeFilesystem(t *testing.T) {
	t.Parallel()

	l := source.NewLoader(false, nil)

	overlay := map[string][]byte{
		"root.mm": []byte("stmt one\n"),
	}

	pieces, diags := l.Load("root.mm", overlay)
	require.Empty(t, diags)
	require.Len(t, pieces, 1)
	assert.Equal(t, "stmt one\n", string(pieces[0].Content))
	assert.NotZero(t, pieces[0].Digest)
}

func TestLoad_FollowsIncludesInOrder(t *testing.T) {
	t.Parallel()

	l := source.NewLoader(false, nil)

	overlay := map[string][]byte{
		"root.mm": []byte("before\n$[ lib.mm $]\nafter\n"),
		"lib.mm":  []byte("library content\n"),
	}

	pieces, diags := l.Load("root.mm", overlay)
	require.Empty(t, diags)
	require.Len(t, pieces, 3)
	assert.Equal(t, "before\n", string(pieces[0].Content))
	assert.Equal(t, "library content\n", string(pieces[1].Content))
	assert.Equal(t, "\nafter\n", string(pieces[2].Content))
}

func TestLoad_DetectsIncludeCycle(t *testing.T) {
	t.Parallel()

	l := source.NewLoader(false, nil)

	overlay := map[string][]byte{
		"a.mm": []byte("$[ b.mm $]\n"),
		"b.mm": []byte("$[ a.mm $]\n"),
	}

	_, diags := l.Load("a.mm", overlay)
	require.NotEmpty(t, diags)

	found := false

	for _, d := range diags {
		if d.Kind == diag.KindInclude {
			found = true
		}
	}

	assert.True(t, found, "expected a KindInclude cycle diagnostic, got %+v", diags)
}

func TestLoad_MissingFileReportsIODiagnostic(t *testing.T) {
	t.Parallel()

	l := source.NewLoader(false, nil)

	_, diags := l.Load("does-not-exist.mm", nil)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.KindIO, diags[0].Kind)
}

func TestLoad_ReadsFromFilesystemWithModTimeAndLength(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "root.mm")
	require.NoError(t, os.WriteFile(path, []byte("from disk\n"), 0o600))

	l := source.NewLoader(false, nil)

	pieces, diags := l.Load(path, nil)
	require.Empty(t, diags)
	require.Len(t, pieces, 1)
	assert.Equal(t, "from disk\n", string(pieces[0].Content))
	assert.EqualValues(t, len("from disk\n"), pieces[0].Length)
	assert.False(t, pieces[0].ModTime.IsZero())
}
