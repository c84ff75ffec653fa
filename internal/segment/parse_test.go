package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatements_RecognizesKeywordStatements(t *testing.T) {
	t.Parallel()

	content := []byte(`
		c0 $c wff |- $.
		vx $v x y $.
		wph $f wff ph $.
	`)

	stmts, diags := parseStatements(content)
	require.Empty(t, diags)
	require.Len(t, stmts, 3)

	assert.Equal(t, KindConstant, stmts[0].Kind)
	assert.Equal(t, []string{"wff", "|-"}, stmts[0].Tokens)

	assert.Equal(t, KindVariable, stmts[1].Kind)
	assert.Equal(t, []string{"x", "y"}, stmts[1].Tokens)

	assert.Equal(t, KindFloating, stmts[2].Kind)
	assert.Equal(t, "wph", stmts[2].Label)
	assert.Equal(t, []string{"wff", "ph"}, stmts[2].Tokens)
}

func TestParseStatements_DetectsMissingTerminator(t *testing.T) {
	t.Parallel()

	content := []byte(`c0 $c wff |-`)

	_, diags := parseStatements(content)
	require.Len(t, diags, 1)
}

func TestParseStatements_BlockDelimitersHaveNoBody(t *testing.T) {
	t.Parallel()

	content := []byte(`${ wph $f wff ph $. $}`)

	stmts, diags := parseStatements(content)
	require.Empty(t, diags)
	require.Len(t, stmts, 3)
	assert.Equal(t, KindBlockOpen, stmts[0].Kind)
	assert.Equal(t, KindFloating, stmts[1].Kind)
	assert.Equal(t, KindBlockClose, stmts[2].Kind)
}

func TestParseStatements_RecognizesChapterHeading(t *testing.T) {
	t.Parallel()

	content := []byte("$(\n#### Part One ####\n$)\nc0 $c wff $.")

	stmts, diags := parseStatements(content)
	require.Empty(t, diags)
	require.Len(t, stmts, 2)
	require.Equal(t, KindHeading, stmts[0].Kind)
	require.NotNil(t, stmts[0].Heading)
	assert.Equal(t, LevelPart, stmts[0].Heading.Level)
	assert.Equal(t, "Part One", stmts[0].Heading.Title)
}

func TestParseStatements_PlainCommentIsNotAHeading(t *testing.T) {
	t.Parallel()

	content := []byte("$( just a remark $)\nc0 $c wff $.")

	stmts, _ := parseStatements(content)
	require.Len(t, stmts, 2)
	assert.Equal(t, KindComment, stmts[0].Kind)
}

func TestParseHeading_RecognizesAllLevels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		marker string
		level  HeadingLevel
	}{
		{"####", LevelPart},
		{"====", LevelSection},
		{"----", LevelSubsection},
		{"....", LevelSubsubsection},
	}

	for _, c := range cases {
		body := []byte(c.marker + " Title " + c.marker)

		h, ok := parseHeading(body)
		require.True(t, ok, c.marker)
		assert.Equal(t, c.level, h.Level)
		assert.Equal(t, "Title", h.Title)
	}
}
