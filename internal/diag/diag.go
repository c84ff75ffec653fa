// Package diag defines the diagnostic vocabulary shared by every analysis
// pass: error kinds, diagnostic classes, and the annotated notations
// returned to callers of Database.DiagNotations.
package diag

import "fmt"

// Kind identifies the category of failure a Diagnostic describes.
type Kind int

const (
	// KindIO covers missing or unreadable files.
	KindIO Kind = iota
	// KindParse covers Metamath source syntax errors.
	KindParse
	// KindInclude covers $[ file $] cycles or missing includes.
	KindInclude
	// KindScope covers undeclared symbols or malformed grouping.
	KindScope
	// KindVerify covers proof verification failures.
	KindVerify
	// KindGrammar covers ambiguous or malformed syntax rules.
	KindGrammar
	// KindInternal covers assertion failures inside a pass.
	KindInternal
)

// String renders the kind for logs and CLI output.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindInclude:
		return "include"
	case KindScope:
		return "scope"
	case KindVerify:
		return "verify"
	case KindGrammar:
		return "grammar"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Class identifies which pass's diagnostics are being requested from
// Database.DiagNotations.
type Class int

const (
	// ClassParse selects parse-time diagnostics from the segment set.
	ClassParse Class = iota
	// ClassScope selects scopeck diagnostics.
	ClassScope
	// ClassVerify selects verify diagnostics.
	ClassVerify
	// ClassGrammar selects grammar diagnostics.
	ClassGrammar
	// ClassStmtParse selects stmt_parse diagnostics.
	ClassStmtParse
)

// SegmentID is a distinct type kept local to diag so this package has no import
// dependency on internal/segment; both sides agree on the underlying
// uint32 representation.
type SegmentID uint32

// Diagnostic attaches a Kind to a specific statement within a segment, or to
// a synthetic segment for I/O/include failures that precede segmentation.
type Diagnostic struct {
	Kind      Kind
	Segment   SegmentID
	Statement int
	Message   string
}

// Error adapts a Diagnostic to the error interface so passes can return it
// directly, or wrap it with fmt.Errorf's %w.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: segment %d stmt %d: %s", d.Kind, d.Segment, d.Statement, d.Message)
}

// Notation is a Diagnostic annotated with the source location it was
// resolved against, in the order Database.DiagNotations promises: source
// order across the requested classes.
type Notation struct {
	Diagnostic
	Source string
	Line   int
	Col    int
}
