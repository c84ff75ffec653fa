// Package grammar implements the syntactic-grammar pass of spec §4.6
// (grammar ← segment_set, nameck, scopeck): it turns every non-logical
// ($a-declared, non-"|-") syntax axiom into a grammar Production and flags
// two productions that would parse the identical token shape as ambiguous.
package grammar

import (
	"fmt"
	"strings"

	"github.com/mm-tools/mmcore/internal/analysis/nameck"
	"github.com/mm-tools/mmcore/internal/analysis/scopeck"
	"github.com/mm-tools/mmcore/internal/diag"
	"github.com/mm-tools/mmcore/internal/pass"
	"github.com/mm-tools/mmcore/internal/segment"
)

// logicalTypecode is the typecode set.mm-style databases reserve for
// provable formulas; axioms typed with it are logical axioms, not syntax,
// and are excluded from the grammar (they are verify's concern instead).
const logicalTypecode = "|-"

// Slot is one position in a Production's pattern: either a literal
// constant token, or a variable position expecting a sub-formula of the
// given typecode.
type Slot struct {
	Literal  bool
	Token    string // populated when Literal
	Typecode string // populated when !Literal
}

// Production is one syntax axiom's grammar rule: Typecode ::= Slots.
type Production struct {
	Label    string
	Typecode string
	Slots    []Slot
}

// Result is grammar's pass result, keyed by the syntax axiom's label.
type Result = pass.Index[string, Production]

type cacheEntry struct {
	digest      uint64
	labels      []string
	namesUsage  *pass.Usage[string]
	framesUsage *pass.Usage[string]
	diags       []diag.Diagnostic
}

// Pass computes and incrementally maintains the grammar Result.
type Pass struct {
	slot        *pass.Slot[*Result]
	segCache    map[segment.ID]cacheEntry
	incremental bool

	// shapes maps a pattern signature (typecode + literal/variable shape)
	// to the first label that produced it, for ambiguity detection across
	// the whole database rather than per segment.
	shapes map[string]string
}

// New returns a Pass. incremental mirrors options.incremental.
func New(incremental bool) *Pass {
	return &Pass{
		slot:        pass.NewSlot(func(r *Result) *Result { return r.Clone() }),
		segCache:    make(map[segment.ID]cacheEntry),
		incremental: incremental,
		shapes:      make(map[string]string),
	}
}

// Invalidate clears the cached current result.
func (p *Pass) Invalidate() {
	p.slot.Invalidate()
}

// CloneHandle returns a Pass sharing this one's current/previous result
// handles (cheap, O(1)) but with an independent per-segment cache and
// ambiguity-shape table.
func (p *Pass) CloneHandle() *Pass {
	segCache := make(map[segment.ID]cacheEntry, len(p.segCache))
	for k, v := range p.segCache {
		segCache[k] = v
	}

	shapes := make(map[string]string, len(p.shapes))
	for k, v := range p.shapes {
		shapes[k] = v
	}

	return &Pass{slot: p.slot.CloneHandle(), segCache: segCache, incremental: p.incremental, shapes: shapes}
}

// Release drops this Pass's handle on its cached result.
func (p *Pass) Release() {
	p.slot.Release()
}

// Diagnostics returns the grammar-class diagnostics from the most recent
// Compute.
func (p *Pass) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic

	for _, entry := range p.segCache {
		out = append(out, entry.diags...)
	}

	return out
}

// Compute runs the lazy-recompute algorithm over segs, using names and
// frames (nameck's and scopeck's Results) as predecessors.
func (p *Pass) Compute(segs []segment.Segment, names *nameck.Result, frames *scopeck.Result) (*Result, error) {
	if current, ok := p.slot.Current(); ok {
		return current.Get(), nil
	}

	liveSegments := make(map[segment.ID]bool, len(segs))
	for _, seg := range segs {
		liveSegments[seg.ID] = true
	}

	shared, err := p.slot.Recompute(pass.NewIndex[string, Production](), func(idx *Result) error {
		for id, entry := range p.segCache {
			if !liveSegments[id] {
				dropSegment(idx, id, entry)
				delete(p.segCache, id)
			}
		}

		// Ambiguity tracking is global and order-dependent, so it is rebuilt
		// fresh on every full walk rather than incrementally maintained.
		p.shapes = make(map[string]string)

		for label, e := range idx.Entries() {
			p.shapes[shapeKey(e.Value)] = label
		}

		for _, seg := range segs {
			cached, known := p.segCache[seg.ID]

			if p.incremental && known && cached.digest == seg.Piece.Digest &&
				cached.namesUsage.StillValid(versionLookup(names)) &&
				cached.framesUsage.StillValid(versionLookup(frames)) {
				continue
			}

			if known {
				dropSegment(idx, seg.ID, cached)
			}

			p.segCache[seg.ID] = p.scanSegment(idx, seg, names, frames)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return shared.Get(), nil
}

func versionLookup[V any](idx *pass.Index[string, V]) func(string) (pass.VersionedKey, bool) {
	return func(key string) (pass.VersionedKey, bool) {
		e, ok := idx.Get(key)
		if !ok {
			return pass.VersionedKey{}, false
		}

		return pass.VersionedKey{Segment: e.Segment, Version: e.Version}, true
	}
}

func dropSegment(idx *Result, id segment.ID, entry cacheEntry) {
	for _, label := range entry.labels {
		if e, ok := idx.Get(label); ok && e.Segment == uint32(id) {
			idx.Delete(label)
		}
	}
}

// scanSegment builds a Production for every syntax axiom in seg.
func (p *Pass) scanSegment(idx *Result, seg segment.Segment, names *nameck.Result, frames *scopeck.Result) cacheEntry {
	namesReader := pass.NewReader(names)
	framesReader := pass.NewReader(frames)

	var (
		labels []string
		diags  []diag.Diagnostic
	)

	for i, stmt := range seg.Statements {
		if stmt.Kind != segment.KindAxiom {
			continue
		}

		if len(stmt.Tokens) == 0 || stmt.Tokens[0] == logicalTypecode {
			continue
		}

		frame, ok := framesReader.Get(stmt.Label)
		if !ok {
			diags = append(diags, diag.Diagnostic{
				Kind: diag.KindGrammar, Segment: diag.SegmentID(seg.ID), Statement: i,
				Message: fmt.Sprintf("%s: no scope frame available", stmt.Label),
			})

			continue
		}

		prod, err := buildProduction(stmt, frame, namesReader)
		if err != nil {
			diags = append(diags, diag.Diagnostic{
				Kind: diag.KindGrammar, Segment: diag.SegmentID(seg.ID), Statement: i,
				Message: fmt.Sprintf("%s: %v", stmt.Label, err),
			})

			continue
		}

		key := shapeKey(prod)
		if other, collide := p.shapes[key]; collide && other != stmt.Label {
			diags = append(diags, diag.Diagnostic{
				Kind: diag.KindGrammar, Segment: diag.SegmentID(seg.ID), Statement: i,
				Message: fmt.Sprintf("%s: ambiguous with %s (same syntax shape)", stmt.Label, other),
			})
		} else {
			p.shapes[key] = stmt.Label
		}

		setIfChanged(idx, stmt.Label, prod, seg.ID)
		labels = append(labels, stmt.Label)
	}

	return cacheEntry{
		digest:      seg.Piece.Digest,
		labels:      labels,
		namesUsage:  namesReader.Usage(),
		framesUsage: framesReader.Usage(),
		diags:       diags,
	}
}

// buildProduction turns an axiom's conclusion tokens into a Slot sequence:
// a floating-hypothesis variable in frame becomes a variable Slot typed by
// that hypothesis's declared typecode; every other token is literal.
func buildProduction(stmt segment.Statement, frame scopeck.Frame, names *pass.Reader[string, nameck.Symbol]) (Production, error) {
	varType := make(map[string]string, len(frame.Floating))
	for _, f := range frame.Floating {
		varType[f.Var] = f.Typecode
	}

	slots := make([]Slot, 0, len(stmt.Tokens)-1)

	for _, tok := range stmt.Tokens[1:] {
		if tc, isVar := varType[tok]; isVar {
			slots = append(slots, Slot{Typecode: tc})

			continue
		}

		sym, ok := names.Get(tok)
		if !ok || sym.Kind != nameck.KindConstant {
			return Production{}, fmt.Errorf("token %q is neither a mandatory variable nor a declared constant", tok)
		}

		slots = append(slots, Slot{Literal: true, Token: tok})
	}

	return Production{Label: stmt.Label, Typecode: stmt.Tokens[0], Slots: slots}, nil
}

// shapeKey is a Production's ambiguity signature: its typecode plus the
// sequence of literal tokens and variable-typecode placeholders, ignoring
// the specific variable names chosen.
func shapeKey(p Production) string {
	var b strings.Builder

	b.WriteString(p.Typecode)

	for _, s := range p.Slots {
		b.WriteByte('\x00')

		if s.Literal {
			b.WriteString(s.Token)
		} else {
			b.WriteString("#")
			b.WriteString(s.Typecode)
		}
	}

	return b.String()
}

func setIfChanged(idx *Result, label string, prod Production, segID segment.ID) {
	existing, ok := idx.Get(label)
	if ok && shapeKey(existing.Value) == shapeKey(prod) && existing.Value.Label == prod.Label {
		return
	}

	version := pass.Version(1)
	if ok {
		version = existing.Version + 1
	}

	idx.Set(label, prod, uint32(segID), version)
}
