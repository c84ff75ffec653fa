// Package scopeck implements the scoping pass of spec §4.6's dependency
// graph (scopeck ← segment_set, nameck): for every axiom ($a) and provable
// ($p) statement it computes the Frame of mandatory hypotheses and disjoint
// variable pairs in effect at that statement, threading a scope stack
// across ${ $} blocks and across segment boundaries.
package scopeck

import (
	"fmt"

	"github.com/mm-tools/mmcore/internal/analysis/nameck"
	"github.com/mm-tools/mmcore/internal/diag"
	"github.com/mm-tools/mmcore/internal/pass"
	"github.com/mm-tools/mmcore/internal/segment"
)

// FloatRef names one mandatory floating hypothesis in a Frame: the label
// that introduced it and the variable it binds.
type FloatRef struct {
	Label    string
	Var      string
	Typecode string
}

// Frame is scopeck's per-label result: the ordered mandatory floating
// hypotheses, the essential hypotheses in scope, the disjoint variable
// pairs active at the point the label was declared, and Order — the
// mandatory floating and essential hypothesis labels interleaved in their
// original declaration order, which is the order verify must pop proof-stack
// arguments in (a $e hypothesis is not necessarily the last mandatory
// hypothesis, so Floating and Essential alone cannot reconstruct it).
type Frame struct {
	Floating  []FloatRef
	Essential []string
	Disjoint  [][2]string
	Order     []string
}

// Result is scopeck's pass result, keyed by axiom/theorem label.
type Result = pass.Index[string, Frame]

// scopeLevel is one nested ${ $} block's contribution to the active frame.
type scopeLevel struct {
	floats     []FloatRef
	essentials []string
	disjoint   [][2]string
	order      []string // floats/essentials labels interleaved, declaration order
}

// Pass computes and maintains the scopeck Result. Because scope state
// threads sequentially across segments (a ${ opened in one segment may
// close in a later one), this pass always performs a full walk of the
// current segment set when invalidated; per-label versions are still only
// bumped when a Frame's value actually changes, so downstream passes keyed
// by label (verify, grammar) get accurate incremental signals even though
// scopeck itself does not skip unchanged segments.
type Pass struct {
	slot        *pass.Slot[*Result]
	incremental bool
	diags       []diag.Diagnostic
}

// New returns a Pass. incremental mirrors options.incremental.
func New(incremental bool) *Pass {
	return &Pass{
		slot:        pass.NewSlot(func(r *Result) *Result { return r.Clone() }),
		incremental: incremental,
	}
}

// Invalidate clears the cached current result.
func (p *Pass) Invalidate() {
	p.slot.Invalidate()
}

// CloneHandle returns a Pass sharing this one's current/previous result
// handles (cheap, O(1)), the per-pass counterpart to Database.Clone's
// "clone duplicates only shared handles" contract.
func (p *Pass) CloneHandle() *Pass {
	return &Pass{slot: p.slot.CloneHandle(), incremental: p.incremental, diags: append([]diag.Diagnostic{}, p.diags...)}
}

// Release drops this Pass's handle on its cached result.
func (p *Pass) Release() {
	p.slot.Release()
}

// Diagnostics returns the scope diagnostics (undeclared symbols, unbalanced
// blocks) from the most recent Compute.
func (p *Pass) Diagnostics() []diag.Diagnostic {
	return p.diags
}

// Compute runs the lazy-recompute algorithm over segs, using names (nameck's
// Result) as its predecessor.
func (p *Pass) Compute(segs []segment.Segment, names *nameck.Result) (*Result, error) {
	if current, ok := p.slot.Current(); ok {
		return current.Get(), nil
	}

	reader := pass.NewReader(names)

	shared, err := p.slot.Recompute(pass.NewIndex[string, Frame](), func(idx *Result) error {
		p.diags = walk(idx, segs, reader)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return shared.Get(), nil
}

// walk threads a scope stack across every segment's statements in order,
// recording a Frame for each $a/$p label encountered.
func walk(idx *Result, segs []segment.Segment, names *pass.Reader[string, nameck.Symbol]) []diag.Diagnostic {
	var (
		diags []diag.Diagnostic
		stack = []scopeLevel{{}} // outermost (unbracketed) level
	)

	for _, seg := range segs {
		for i, stmt := range seg.Statements {
			top := len(stack) - 1

			switch stmt.Kind {
			case segment.KindBlockOpen:
				stack = append(stack, scopeLevel{})
			case segment.KindBlockClose:
				if len(stack) > 1 {
					stack = stack[:len(stack)-1]
				} else {
					diags = append(diags, diag.Diagnostic{
						Kind:      diag.KindScope,
						Segment:   diag.SegmentID(seg.ID),
						Statement: i,
						Message:   "$} without matching ${",
					})
				}
			case segment.KindFloating:
				if len(stmt.Tokens) >= 2 {
					checkDeclared(&diags, names, stmt.Tokens[0], seg.ID, i)
					stack[top].floats = append(stack[top].floats, FloatRef{Label: stmt.Label, Var: stmt.Tokens[1], Typecode: stmt.Tokens[0]})
					stack[top].order = append(stack[top].order, stmt.Label)
				}
			case segment.KindEssential:
				for _, tok := range stmt.Tokens {
					checkDeclared(&diags, names, tok, seg.ID, i)
				}

				stack[top].essentials = append(stack[top].essentials, stmt.Label)
				stack[top].order = append(stack[top].order, stmt.Label)
			case segment.KindDisjoint:
				for a := 0; a < len(stmt.Tokens); a++ {
					checkDeclared(&diags, names, stmt.Tokens[a], seg.ID, i)

					for b := a + 1; b < len(stmt.Tokens); b++ {
						stack[top].disjoint = append(stack[top].disjoint, [2]string{stmt.Tokens[a], stmt.Tokens[b]})
					}
				}
			case segment.KindAxiom, segment.KindProvable:
				for _, tok := range stmt.Tokens {
					checkDeclared(&diags, names, tok, seg.ID, i)
				}

				frame := collect(stack)
				setIfChanged(idx, stmt.Label, frame, seg.ID)
			}
		}
	}

	return diags
}

// collect flattens the active scope stack into a single Frame, outermost
// level first, matching the order hypotheses were declared in.
func collect(stack []scopeLevel) Frame {
	var frame Frame

	for _, level := range stack {
		frame.Floating = append(frame.Floating, level.floats...)
		frame.Essential = append(frame.Essential, level.essentials...)
		frame.Disjoint = append(frame.Disjoint, level.disjoint...)
		frame.Order = append(frame.Order, level.order...)
	}

	return frame
}

// checkDeclared records a scope diagnostic when tok is not a known constant
// or variable, per spec §7's scope error kind.
func checkDeclared(diags *[]diag.Diagnostic, names *pass.Reader[string, nameck.Symbol], tok string, segID segment.ID, stmtIdx int) {
	sym, ok := names.Get(tok)
	if !ok {
		*diags = append(*diags, diag.Diagnostic{
			Kind:      diag.KindScope,
			Segment:   diag.SegmentID(segID),
			Statement: stmtIdx,
			Message:   fmt.Sprintf("undeclared symbol %q", tok),
		})

		return
	}

	if sym.Kind != nameck.KindConstant && sym.Kind != nameck.KindVariable {
		// tok is a label (e.g. used where a constant/variable symbol was
		// expected); not a scope error in this simplified model.
		return
	}
}

// setIfChanged writes label's Frame only if it differs from what is
// already indexed, bumping the version (spec §4.5's "update entries and
// bump versions only when values actually change" rule).
func setIfChanged(idx *Result, label string, frame Frame, segID segment.ID) {
	existing, ok := idx.Get(label)
	if ok && frameEqual(existing.Value, frame) {
		return
	}

	version := pass.Version(1)
	if ok {
		version = existing.Version + 1
	}

	idx.Set(label, frame, uint32(segID), version)
}

func frameEqual(a, b Frame) bool {
	if len(a.Floating) != len(b.Floating) || len(a.Essential) != len(b.Essential) ||
		len(a.Disjoint) != len(b.Disjoint) || len(a.Order) != len(b.Order) {
		return false
	}

	for i := range a.Floating {
		if a.Floating[i] != b.Floating[i] {
			return false
		}
	}

	for i := range a.Essential {
		if a.Essential[i] != b.Essential[i] {
			return false
		}
	}

	for i := range a.Disjoint {
		if a.Disjoint[i] != b.Disjoint[i] {
			return false
		}
	}

	for i := range a.Order {
		if a.Order[i] != b.Order[i] {
			return false
		}
	}

	return true
}
