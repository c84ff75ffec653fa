package segment

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mm-tools/mmcore/internal/diag"
)

// keyword classifies a Metamath statement-introducing token.
var keyword = map[string]StatementKind{
	"$c": KindConstant,
	"$v": KindVariable,
	"$d": KindDisjoint,
	"$f": KindFloating,
	"$e": KindEssential,
	"$a": KindAxiom,
	"$p": KindProvable,
	"${": KindBlockOpen,
	"$}": KindBlockClose,
}

// labeled is the set of kinds that carry a label token immediately before
// their keyword.
var labeled = map[StatementKind]bool{
	KindFloating:  true,
	KindEssential: true,
	KindAxiom:     true,
	KindProvable:  true,
}

// terminator is the "$." token ending a c/v/d/f/e/a/p statement's body.
const terminator = "$."

type tokenKind int

const (
	tokWord tokenKind = iota
	tokComment
)

type token struct {
	kind tokenKind
	text string // word text, or comment body (without $( $) delimiters)
}

// tokenize splits content into whitespace-delimited words, treating each
// $( ... $) run as a single comment token rather than splitting its body.
func tokenize(content []byte) []token {
	var tokens []token

	i, n := 0, len(content)

	for i < n {
		for i < n && isMMSpace(content[i]) {
			i++
		}

		if i >= n {
			break
		}

		if content[i] == '$' && i+1 < n && content[i+1] == '(' {
			start := i + 2

			end := bytes.Index(content[start:], []byte("$)"))
			if end < 0 {
				tokens = append(tokens, token{kind: tokComment, text: string(content[start:])})

				return tokens
			}

			tokens = append(tokens, token{kind: tokComment, text: string(content[start : start+end])})
			i = start + end + 2

			continue
		}

		start := i
		for i < n && !isMMSpace(content[i]) {
			i++
		}

		tokens = append(tokens, token{kind: tokWord, text: string(content[start:i])})
	}

	return tokens
}

func isMMSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

// parseStatements turns content into a flat list of Statements, in file
// order, plus any parse diagnostics encountered. This is a deliberately
// light-weight scanner: it recognizes statement boundaries and chapter
// headings well enough to drive the passes and outline builder, without
// reproducing a full Metamath grammar/verifier.
func parseStatements(content []byte) ([]Statement, []diag.Diagnostic) {
	tokens := tokenize(content)

	var (
		statements []Statement
		diags      []diag.Diagnostic
		pendingLbl string
	)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if tok.kind == tokComment {
			if h, ok := parseHeading([]byte(tok.text)); ok {
				h.Index = len(statements)
				statements = append(statements, Statement{Kind: KindHeading, Heading: &h})
			} else {
				statements = append(statements, Statement{Kind: KindComment, Tokens: []string{tok.text}})
			}

			continue
		}

		kind, isKeyword := keyword[tok.text]
		if !isKeyword {
			pendingLbl = tok.text

			continue
		}

		label := ""
		if labeled[kind] {
			label = pendingLbl
		}

		pendingLbl = ""

		if kind == KindBlockOpen || kind == KindBlockClose {
			statements = append(statements, Statement{Kind: kind})

			continue
		}

		body, consumed, found := collectUntilTerminator(tokens[i+1:])
		i += consumed

		if !found {
			diags = append(diags, diag.Diagnostic{
				Kind:    diag.KindParse,
				Message: fmt.Sprintf("statement %q missing %q terminator", tok.text, terminator),
			})
		}

		statements = append(statements, Statement{Kind: kind, Label: label, Tokens: body})
	}

	return statements, diags
}

// collectUntilTerminator gathers word tokens (skipping embedded comments)
// up to and including the next "$." token, returning the body (without the
// terminator), how many tokens were consumed from rest, and whether a
// terminator was actually found.
func collectUntilTerminator(rest []token) (body []string, consumed int, found bool) {
	for i, tok := range rest {
		if tok.kind == tokComment {
			continue
		}

		if tok.text == terminator {
			return body, i + 1, true
		}

		body = append(body, tok.text)
	}

	return body, len(rest), false
}

// headingMarkers maps a chapter-header marker character to its depth.
var headingMarkers = map[byte]HeadingLevel{
	'#': LevelPart,
	'=': LevelSection,
	'-': LevelSubsection,
	'.': LevelSubsubsection,
}

// parseHeading recognizes spec §4.2's chapter-header pattern inside a
// comment body: a line whose first non-whitespace content is a run of at
// least four of the same marker character.
func parseHeading(body []byte) (Heading, bool) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return Heading{}, false
	}

	marker := trimmed[0]

	level, known := headingMarkers[marker]
	if !known {
		return Heading{}, false
	}

	run := 0
	for run < len(trimmed) && trimmed[run] == marker {
		run++
	}

	if run < 4 {
		return Heading{}, false
	}

	rest := trimmed[run:]
	if nl := bytes.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}

	title := strings.Trim(string(rest), string(marker)+" \t\r")

	return Heading{Level: level, Title: title}, true
}
