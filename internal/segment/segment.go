package segment

import (
	"github.com/mm-tools/mmcore/internal/diag"
	"github.com/mm-tools/mmcore/internal/source"
)

// Segment is one parsed, addressable unit of a database: spec's Segment,
// carrying the piece it was parsed from and its statements.
type Segment struct {
	ID          ID
	Piece       source.Piece
	Statements  []Statement
	Diagnostics []diag.Diagnostic
}

// Headings returns this segment's heading statements, in statement order,
// for the outline builder.
func (s Segment) Headings() []Heading {
	var out []Heading

	for _, stmt := range s.Statements {
		if stmt.Kind == KindHeading && stmt.Heading != nil {
			out = append(out, *stmt.Heading)
		}
	}

	return out
}

// parseSegments turns a loaded source.Piece into the one or more Segments
// it yields — exactly one, in the current scanner, but kept as a slice
// since a future producer (e.g. one that splits on $p boundaries for finer
// parallelism) can yield more than one per piece without changing callers.
func parseSegments(piece source.Piece) []rawSegment {
	statements, diags := parseStatements(piece.Content)

	return []rawSegment{{piece: piece, statements: statements, diagnostics: diags}}
}

// rawSegment is a freshly parsed segment with no ID assigned yet, matching
// spec §4.4 step 3: "Each job returns a list of fresh segments (no IDs
// yet)".
type rawSegment struct {
	piece       source.Piece
	statements  []Statement
	diagnostics []diag.Diagnostic
}
