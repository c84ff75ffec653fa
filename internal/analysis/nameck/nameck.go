// Package nameck implements the leaf pass of spec §4.6's dependency graph:
// it indexes every declared label (constant, variable, floating hypothesis,
// essential hypothesis, axiom, provable statement) across the segment set,
// with no pass predecessor of its own besides the segment set itself.
package nameck

import (
	"fmt"

	"github.com/mm-tools/mmcore/internal/pass"
	"github.com/mm-tools/mmcore/internal/segment"
)

// SymbolKind classifies a declared name.
type SymbolKind int

const (
	// KindConstant is a $c-declared constant symbol.
	KindConstant SymbolKind = iota
	// KindVariable is a $v-declared variable symbol.
	KindVariable
	// KindFloating is an $f-declared hypothesis label.
	KindFloating
	// KindEssential is an $e-declared hypothesis label.
	KindEssential
	// KindAxiom is a $a-declared assertion label.
	KindAxiom
	// KindProvable is a $p-declared assertion label.
	KindProvable
)

// Symbol is one declared name's nameck entry.
type Symbol struct {
	Kind  SymbolKind
	Stmt  segment.Address
	Typed []string // the declared type/body tokens, e.g. ["wff", "ph"] for a floating hypothesis
}

// Result is nameck's pass result: every declared label and constant/variable
// symbol, keyed by name.
type Result = pass.Index[string, Symbol]

// cacheEntry remembers what a segment contributed last time, so an
// unchanged segment's names need not be rescanned.
type cacheEntry struct {
	digest uint64
	names  []string
}

// Pass computes and incrementally maintains the nameck Result.
type Pass struct {
	slot        *pass.Slot[*Result]
	segCache    map[segment.ID]cacheEntry
	incremental bool
}

// New returns a Pass. incremental mirrors options.incremental (spec §4.5's
// incremental contract): when false every run treats all segments as
// changed.
func New(incremental bool) *Pass {
	return &Pass{
		slot:        pass.NewSlot(func(r *Result) *Result { return r.Clone() }),
		segCache:    make(map[segment.ID]cacheEntry),
		incremental: incremental,
	}
}

// Invalidate clears the cached current result, per spec §4.5 "on any change
// to the segment set, current_P := None for every P".
func (p *Pass) Invalidate() {
	p.slot.Invalidate()
}

// CloneHandle returns a Pass sharing this one's current/previous result
// handles (cheap, O(1)) but with an independent per-segment digest cache,
// the per-pass counterpart to Database.Clone's "clone duplicates only
// shared handles" contract.
func (p *Pass) CloneHandle() *Pass {
	segCache := make(map[segment.ID]cacheEntry, len(p.segCache))
	for k, v := range p.segCache {
		segCache[k] = v
	}

	return &Pass{slot: p.slot.CloneHandle(), segCache: segCache, incremental: p.incremental}
}

// Release drops this Pass's handle on its cached result, per spec §4.6's
// reverse-dependency-order teardown.
func (p *Pass) Release() {
	p.slot.Release()
}

// Compute runs the lazy-recompute algorithm (spec §4.5 steps 1, 3-6) over
// the given segment set. nameck has no pass predecessors, so step 2 is a
// no-op.
func (p *Pass) Compute(segs []segment.Segment) (*Result, error) {
	if current, ok := p.slot.Current(); ok {
		return current.Get(), nil
	}

	liveSegments := make(map[segment.ID]bool, len(segs))
	for _, seg := range segs {
		liveSegments[seg.ID] = true
	}

	shared, err := p.slot.Recompute(pass.NewIndex[string, Symbol](), func(idx *Result) error {
		for id, entry := range p.segCache {
			if !liveSegments[id] {
				p.dropSegment(idx, id, entry)
				delete(p.segCache, id)
			}
		}

		for _, seg := range segs {
			cached, known := p.segCache[seg.ID]
			if p.incremental && known && cached.digest == seg.Piece.Digest {
				continue
			}

			if known {
				p.dropSegment(idx, seg.ID, cached)
			}

			names := scanSegment(idx, seg)
			p.segCache[seg.ID] = cacheEntry{digest: seg.Piece.Digest, names: names}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return shared.Get(), nil
}

// dropSegment removes every entry a segment previously contributed.
func (p *Pass) dropSegment(idx *Result, id segment.ID, entry cacheEntry) {
	for _, name := range entry.names {
		if e, ok := idx.Get(name); ok && e.Segment == uint32(id) {
			idx.Delete(name)
		}
	}
}

// scanSegment indexes one segment's declared names, bumping each entry's
// version only when its value actually changed, and returns the list of
// names it contributed (for future cache invalidation).
func scanSegment(idx *Result, seg segment.Segment) []string {
	var names []string

	for i, stmt := range seg.Statements {
		switch stmt.Kind {
		case segment.KindConstant:
			for _, tok := range stmt.Tokens {
				setIfChanged(idx, tok, Symbol{Kind: KindConstant, Stmt: addr(seg, i)}, seg.ID)
				names = append(names, tok)
			}
		case segment.KindVariable:
			for _, tok := range stmt.Tokens {
				setIfChanged(idx, tok, Symbol{Kind: KindVariable, Stmt: addr(seg, i)}, seg.ID)
				names = append(names, tok)
			}
		case segment.KindFloating:
			setIfChanged(idx, stmt.Label, Symbol{Kind: KindFloating, Stmt: addr(seg, i), Typed: stmt.Tokens}, seg.ID)
			names = append(names, stmt.Label)
		case segment.KindEssential:
			setIfChanged(idx, stmt.Label, Symbol{Kind: KindEssential, Stmt: addr(seg, i), Typed: stmt.Tokens}, seg.ID)
			names = append(names, stmt.Label)
		case segment.KindAxiom:
			setIfChanged(idx, stmt.Label, Symbol{Kind: KindAxiom, Stmt: addr(seg, i), Typed: stmt.Tokens}, seg.ID)
			names = append(names, stmt.Label)
		case segment.KindProvable:
			setIfChanged(idx, stmt.Label, Symbol{Kind: KindProvable, Stmt: addr(seg, i), Typed: stmt.Tokens}, seg.ID)
			names = append(names, stmt.Label)
		}
	}

	return names
}

// addr builds the Address of seg's i'th statement, the statement a name was
// actually declared on (not the count of names emitted so far, which can
// diverge from it for any statement declaring more than one symbol, such as
// a multi-symbol $c/$v).
func addr(seg segment.Segment, i int) segment.Address {
	return segment.Address{Segment: seg.ID, Stmt: i}
}

// setIfChanged writes name's entry only if absent or different from what is
// already indexed, bumping the version — the "update entries and bump
// versions only when values actually change" rule of spec §4.5.
func setIfChanged(idx *Result, name string, sym Symbol, segID segment.ID) {
	existing, ok := idx.Get(name)
	if ok && existing.Value.Kind == sym.Kind && fmt.Sprint(existing.Value.Typed) == fmt.Sprint(sym.Typed) {
		return
	}

	version := pass.Version(1)
	if ok {
		version = existing.Version + 1
	}

	idx.Set(name, sym, uint32(segID), version)
}
