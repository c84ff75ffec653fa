package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mm-tools/mmcore/internal/analysis/grammar"
	"github.com/mm-tools/mmcore/internal/analysis/nameck"
	"github.com/mm-tools/mmcore/internal/analysis/scopeck"
	"github.com/mm-tools/mmcore/internal/segment"
	"github.com/mm-tools/mmcore/internal/source"
)

func seg(id segment.ID, digest uint64, statements []segment.Statement) segment.Segment {
	return segment.Segment{
		ID:         id,
		Piece:      source.Piece{Digest: digest},
		Statements: statements,
	}
}

func compute(t *testing.T, segs []segment.Segment) (*nameck.Result, *scopeck.Result) {
	t.Helper()

	names, err := nameck.New(true).Compute(segs)
	require.NoError(t, err)

	frames, err := scopeck.New(true).Compute(segs, names)
	require.NoError(t, err)

	return names, frames
}

func TestGrammar_BuildsProductionFromSyntaxAxiom(t *testing.T) {
	t.Parallel()

	segs := []segment.Segment{
		seg(1, 1, []segment.Statement{
			{Kind: segment.KindConstant, Tokens: []string{"wff", "->", "|-"}},
			{Kind: segment.KindVariable, Tokens: []string{"ph", "ps"}},
			{Kind: segment.KindFloating, Label: "wph", Tokens: []string{"wff", "ph"}},
			{Kind: segment.KindFloating, Label: "wps", Tokens: []string{"wff", "ps"}},
			{Kind: segment.KindAxiom, Label: "wi", Tokens: []string{"wff", "ph", "->", "ps"}},
		}),
	}

	names, frames := compute(t, segs)

	result, err := grammar.New(true).Compute(segs, names, frames)
	require.NoError(t, err)

	e, ok := result.Get("wi")
	require.True(t, ok)
	assert.Equal(t, "wff", e.Value.Typecode)
	require.Len(t, e.Value.Slots, 3)
	assert.False(t, e.Value.Slots[0].Literal)
	assert.Equal(t, "wff", e.Value.Slots[0].Typecode)
	assert.True(t, e.Value.Slots[1].Literal)
	assert.Equal(t, "->", e.Value.Slots[1].Token)
}

func TestGrammar_ExcludesLogicalAxioms(t *testing.T) {
	t.Parallel()

	segs := []segment.Segment{
		seg(1, 1, []segment.Statement{
			{Kind: segment.KindConstant, Tokens: []string{"wff", "|-"}},
			{Kind: segment.KindVariable, Tokens: []string{"ph"}},
			{Kind: segment.KindFloating, Label: "wph", Tokens: []string{"wff", "ph"}},
			{Kind: segment.KindAxiom, Label: "ax-ph", Tokens: []string{"|-", "ph"}},
		}),
	}

	names, frames := compute(t, segs)

	result, err := grammar.New(true).Compute(segs, names, frames)
	require.NoError(t, err)

	_, ok := result.Get("ax-ph")
	assert.False(t, ok, "logical axioms are verify's concern, not grammar's")
}

func TestGrammar_FlagsAmbiguousShapeCollision(t *testing.T) {
	t.Parallel()

	segs := []segment.Segment{
		seg(1, 1, []segment.Statement{
			{Kind: segment.KindConstant, Tokens: []string{"wff", "->"}},
			{Kind: segment.KindVariable, Tokens: []string{"ph", "ps"}},
			{Kind: segment.KindFloating, Label: "wph", Tokens: []string{"wff", "ph"}},
			{Kind: segment.KindFloating, Label: "wps", Tokens: []string{"wff", "ps"}},
			{Kind: segment.KindAxiom, Label: "wi", Tokens: []string{"wff", "ph", "->", "ps"}},
			{Kind: segment.KindAxiom, Label: "wi2", Tokens: []string{"wff", "ph", "->", "ps"}},
		}),
	}

	names, frames := compute(t, segs)

	p := grammar.New(true)
	_, err := p.Compute(segs, names, frames)
	require.NoError(t, err)

	require.NotEmpty(t, p.Diagnostics())
}
