package outline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mm-tools/mmcore/internal/outline"
	"github.com/mm-tools/mmcore/internal/segment"
	"github.com/mm-tools/mmcore/internal/source"
)

func seg(id segment.ID, statements []segment.Statement) segment.Segment {
	return segment.Segment{ID: id, Piece: source.Piece{Digest: 1}, Statements: statements}
}

func heading(idx int, level segment.HeadingLevel, title string) segment.Statement {
	return segment.Statement{Kind: segment.KindHeading, Heading: &segment.Heading{Level: level, Title: title, Index: idx}}
}

func TestOutline_NestsDeeperHeadingsUnderShallowerSiblings(t *testing.T) {
	t.Parallel()

	segs := []segment.Segment{
		seg(1, []segment.Statement{
			heading(0, segment.LevelPart, "Part One"),
			heading(1, segment.LevelSection, "Section A"),
			heading(2, segment.LevelSubsection, "Sub A.1"),
			heading(3, segment.LevelSection, "Section B"),
		}),
	}

	result, err := outline.New().Compute(segs)
	require.NoError(t, err)

	root, ok := outline.Root(result)
	require.True(t, ok)

	require.Len(t, root.Children, 1)
	part := root.Children[0]
	assert.Equal(t, "Part One", part.Title)
	require.Len(t, part.Children, 2)
	assert.Equal(t, "Section A", part.Children[0].Title)
	assert.Equal(t, "Section B", part.Children[1].Title)
	require.Len(t, part.Children[0].Children, 1)
	assert.Equal(t, "Sub A.1", part.Children[0].Children[0].Title)
}

func TestOutline_SpansMultipleSegments(t *testing.T) {
	t.Parallel()

	segs := []segment.Segment{
		seg(1, []segment.Statement{heading(0, segment.LevelPart, "Part One")}),
		seg(2, []segment.Statement{heading(0, segment.LevelSection, "Section A")}),
	}

	result, err := outline.New().Compute(segs)
	require.NoError(t, err)

	root, ok := outline.Root(result)
	require.True(t, ok)

	require.Len(t, root.Children, 1)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, "Section A", root.Children[0].Children[0].Title)
}

func TestOutline_RebuildsOnInvalidate(t *testing.T) {
	t.Parallel()

	p := outline.New()

	segs := []segment.Segment{seg(1, []segment.Statement{heading(0, segment.LevelPart, "Part One")})}
	first, err := p.Compute(segs)
	require.NoError(t, err)

	root, ok := outline.Root(first)
	require.True(t, ok)
	require.Len(t, root.Children, 1)

	p.Invalidate()

	second, err := p.Compute(nil)
	require.NoError(t, err)

	root2, ok := outline.Root(second)
	require.True(t, ok)
	assert.Empty(t, root2.Children)
}
