package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mm-tools/mmcore/internal/db"
	"github.com/mm-tools/mmcore/internal/diag"
	"github.com/mm-tools/mmcore/internal/outline"
	"github.com/mm-tools/mmcore/internal/source"
)

const idSource = `
$c wff |- $.
$v ph $.
wph $f wff ph $.
ax-ph $a |- ph $.
thm-ph $p |- ph $= wph ax-ph $.
`

func newDatabase(t *testing.T, opts db.Options) *db.Database {
	t.Helper()

	loader := source.NewLoader(opts.Autosplit, nil)

	return db.New(opts, loader, nil, nil)
}

func TestDatabase_EmptyDatabaseHasNoStatements(t *testing.T) {
	t.Parallel()

	d := newDatabase(t, db.DefaultOptions())
	defer d.Close()

	require.NoError(t, d.Parse("root.mm", map[string][]byte{"root.mm": []byte("")}))

	names, err := d.NameResult()
	require.NoError(t, err)

	_, ok := names.Get("ax-ph")
	assert.False(t, ok)
}

func TestDatabase_ParseThenQueryEveryPass(t *testing.T) {
	t.Parallel()

	d := newDatabase(t, db.Options{Autosplit: true, Outline: true, Incremental: true, Jobs: 1, ParseStatements: true})
	defer d.Close()

	overlay := map[string][]byte{"root.mm": []byte(idSource)}
	require.NoError(t, d.Parse("root.mm", overlay))

	names, err := d.NameResult()
	require.NoError(t, err)

	_, ok := names.Get("ax-ph")
	assert.True(t, ok)

	frames, err := d.ScopeResult()
	require.NoError(t, err)

	e, ok := frames.Get("thm-ph")
	require.True(t, ok)
	assert.Len(t, e.Value.Floating, 1)

	outcomes, err := d.VerifyResult()
	require.NoError(t, err)

	out, ok := outcomes.Get("thm-ph")
	require.True(t, ok)
	assert.True(t, out.Value.Verified)

	stmt, addr, ok, err := d.Statement("thm-ph")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "thm-ph", stmt.Label)
	assert.NotZero(t, addr.Segment)
}

func TestDatabase_OutlineDisabledReturnsNil(t *testing.T) {
	t.Parallel()

	d := newDatabase(t, db.Options{Autosplit: true, Outline: false, Incremental: true, Jobs: 1})
	defer d.Close()

	require.NoError(t, d.Parse("root.mm", map[string][]byte{"root.mm": []byte(idSource)}))

	result, err := d.OutlineResult()
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDatabase_OutlineEnabledBuildsTree(t *testing.T) {
	t.Parallel()

	src := "$( #### A Part $)\n" + idSource

	d := newDatabase(t, db.DefaultOptions())
	defer d.Close()

	require.NoError(t, d.Parse("root.mm", map[string][]byte{"root.mm": []byte(src)}))

	result, err := d.OutlineResult()
	require.NoError(t, err)
	require.NotNil(t, result)

	root, ok := outline.Root(result)
	require.True(t, ok)
	assert.NotEmpty(t, root.Children)
}

func TestDatabase_CloneSharesResultsUntilIndependentReparse(t *testing.T) {
	t.Parallel()

	d := newDatabase(t, db.DefaultOptions())
	defer d.Close()

	require.NoError(t, d.Parse("root.mm", map[string][]byte{"root.mm": []byte(idSource)}))

	clone := d.Clone()
	defer clone.Close()

	origNames, err := d.NameResult()
	require.NoError(t, err)

	cloneNames, err := clone.NameResult()
	require.NoError(t, err)

	_, ok := origNames.Get("ax-ph")
	require.True(t, ok)
	_, ok = cloneNames.Get("ax-ph")
	require.True(t, ok)

	require.NoError(t, clone.Parse("root.mm", map[string][]byte{"root.mm": []byte("")}))

	cloneNames2, err := clone.NameResult()
	require.NoError(t, err)
	_, ok = cloneNames2.Get("ax-ph")
	assert.False(t, ok, "clone's independent reparse must not affect the original")

	origNames2, err := d.NameResult()
	require.NoError(t, err)
	_, ok = origNames2.Get("ax-ph")
	assert.True(t, ok, "original must be unaffected by clone's reparse")
}

func TestDatabase_DiagNotationsResolvesSourceOrigin(t *testing.T) {
	t.Parallel()

	d := newDatabase(t, db.DefaultOptions())
	defer d.Close()

	require.NoError(t, d.Parse("root.mm", map[string][]byte{"root.mm": []byte("$} $.")}))

	notations, err := d.DiagNotations(diag.ClassParse, diag.ClassScope)
	require.NoError(t, err)

	for _, n := range notations {
		if n.Source != "" {
			assert.Equal(t, "root.mm", n.Source)
		}
	}
}

func TestDatabase_QueryBeforeParseFails(t *testing.T) {
	t.Parallel()

	d := newDatabase(t, db.DefaultOptions())
	defer d.Close()

	_, err := d.NameResult()
	assert.Error(t, err)
}
