package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mm-tools/mmcore/internal/diag"
)

func TestParseClasses_DefaultListCoversEveryClass(t *testing.T) {
	classes, err := parseClasses("parse,scope,verify,grammar,stmt_parse")
	require.NoError(t, err)
	assert.Equal(t, []diag.Class{
		diag.ClassParse, diag.ClassScope, diag.ClassVerify, diag.ClassGrammar, diag.ClassStmtParse,
	}, classes)
}

func TestParseClasses_TrimsWhitespaceAndSkipsEmptyTokens(t *testing.T) {
	classes, err := parseClasses(" parse , , verify ")
	require.NoError(t, err)
	assert.Equal(t, []diag.Class{diag.ClassParse, diag.ClassVerify}, classes)
}

func TestParseClasses_RejectsUnknownClass(t *testing.T) {
	_, err := parseClasses("parse,bogus")
	require.ErrorContains(t, err, `unknown diagnostic class "bogus"`)
}
