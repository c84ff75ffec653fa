// Package stmtparse implements the syntactic statement-parsing pass of
// spec §4.6 (stmt_parse ← segment_set, nameck, grammar): for every
// provable ($a/$p) assertion's formula it builds a syntax parse tree using
// grammar's Productions, the pass the engine only runs when
// options.parse_statements is set.
package stmtparse

import (
	"fmt"
	"sort"

	"github.com/mm-tools/mmcore/internal/analysis/grammar"
	"github.com/mm-tools/mmcore/internal/analysis/nameck"
	"github.com/mm-tools/mmcore/internal/analysis/scopeck"
	"github.com/mm-tools/mmcore/internal/diag"
	"github.com/mm-tools/mmcore/internal/pass"
	"github.com/mm-tools/mmcore/internal/segment"
)

// logicalTypecode names the assertion-truth typecode (matching
// grammar.logicalTypecode); only statements whose conclusion starts with it
// carry a formula worth syntax-parsing.
const logicalTypecode = "|-"

// wffTypecode is the conventional Metamath typecode for well-formed
// formulas, the root nonterminal a "|-"-prefixed conclusion's body is
// parsed against.
const wffTypecode = "wff"

// ParseTree is one node of a parsed formula: either a leaf (a bare
// variable, matched directly by its declared floating-hypothesis type) or
// an internal node produced by a grammar.Production.
type ParseTree struct {
	Leaf     bool
	Token    string // populated when Leaf
	Label    string // production label, populated when !Leaf
	Children []ParseTree
}

// Result is stmt_parse's pass result, keyed by assertion label.
type Result = pass.Index[string, ParseTree]

type cacheEntry struct {
	digest       uint64
	labels       []string
	namesUsage   *pass.Usage[string]
	grammarUsage *pass.Usage[string]
	diags        []diag.Diagnostic
}

// Pass computes and incrementally maintains the stmt_parse Result.
type Pass struct {
	slot        *pass.Slot[*Result]
	segCache    map[segment.ID]cacheEntry
	incremental bool
}

// New returns a Pass. incremental mirrors options.incremental.
func New(incremental bool) *Pass {
	return &Pass{
		slot:        pass.NewSlot(func(r *Result) *Result { return r.Clone() }),
		segCache:    make(map[segment.ID]cacheEntry),
		incremental: incremental,
	}
}

// Invalidate clears the cached current result.
func (p *Pass) Invalidate() {
	p.slot.Invalidate()
}

// CloneHandle returns a Pass sharing this one's current/previous result
// handles (cheap, O(1)) but with an independent per-segment cache.
func (p *Pass) CloneHandle() *Pass {
	segCache := make(map[segment.ID]cacheEntry, len(p.segCache))
	for k, v := range p.segCache {
		segCache[k] = v
	}

	return &Pass{slot: p.slot.CloneHandle(), segCache: segCache, incremental: p.incremental}
}

// Release drops this Pass's handle on its cached result.
func (p *Pass) Release() {
	p.slot.Release()
}

// Diagnostics returns the stmt-parse-class diagnostics from the most
// recent Compute.
func (p *Pass) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic

	for _, entry := range p.segCache {
		out = append(out, entry.diags...)
	}

	return out
}

// Compute runs the lazy-recompute algorithm over segs, using names,
// frames, and grammarIdx (nameck's, scopeck's, and grammar's Results) as
// predecessors. frames supplies the mandatory floating-variable types
// needed to resolve leaf matches; it is not itself a declared dependency
// edge in spec §4.6's graph, so the orchestrator must ensure scopeck has
// already run before calling Compute.
func (p *Pass) Compute(segs []segment.Segment, names *nameck.Result, frames *scopeck.Result, grammarIdx *grammar.Result) (*Result, error) {
	if current, ok := p.slot.Current(); ok {
		return current.Get(), nil
	}

	liveSegments := make(map[segment.ID]bool, len(segs))
	for _, seg := range segs {
		liveSegments[seg.ID] = true
	}

	byType := groupByType(grammarIdx)

	shared, err := p.slot.Recompute(pass.NewIndex[string, ParseTree](), func(idx *Result) error {
		for id, entry := range p.segCache {
			if !liveSegments[id] {
				dropSegment(idx, id, entry)
				delete(p.segCache, id)
			}
		}

		for _, seg := range segs {
			cached, known := p.segCache[seg.ID]

			if p.incremental && known && cached.digest == seg.Piece.Digest &&
				cached.namesUsage.StillValid(versionLookup(names)) &&
				cached.grammarUsage.StillValid(versionLookup(grammarIdx)) {
				continue
			}

			if known {
				dropSegment(idx, seg.ID, cached)
			}

			p.segCache[seg.ID] = scanSegment(idx, seg, names, frames, grammarIdx, byType)
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

// groupByType buckets grammar's productions by their Typecode, labels
// sorted for deterministic match-order (spec §8 "Determinism").
func groupByType(grammarIdx *grammar.Result) map[string][]string {
	entries := grammarIdx.Entries()
	byType := make(map[string][]string)

	for label, e := range entries {
		byType[e.Value.Typecode] = append(byType[e.Value.Typecode], label)
	}

	for tc := range byType {
		sort.Strings(byType[tc])
	}

	return byType
}

func scanSegment(idx *Result, seg segment.Segment, names *nameck.Result, frames *scopeck.Result, grammarIdx *grammar.Result, byType map[string][]string) cacheEntry {
	namesReader := pass.NewReader(names)
	grammarReader := pass.NewReader(grammarIdx)

	var (
		labels []string
		diags  []diag.Diagnostic
	)

	for i, stmt := range seg.Statements {
		if stmt.Kind != segment.KindAxiom && stmt.Kind != segment.KindProvable {
			continue
		}

		if len(stmt.Tokens) == 0 || stmt.Tokens[0] != logicalTypecode {
			continue
		}

		body := stmt.Tokens[1:]
		if stmt.Kind == segment.KindProvable {
			if concl, _, ok := splitProof(stmt.Tokens); ok {
				body = concl[1:]
			}
		}

		frame, ok := frames.Get(stmt.Label)
		if !ok {
			diags = append(diags, diag.Diagnostic{
				Kind: diag.KindGrammar, Segment: diag.SegmentID(seg.ID), Statement: i,
				Message: fmt.Sprintf("%s: no scope frame available for syntax parsing", stmt.Label),
			})

			continue
		}

		varType := make(map[string]string, len(frame.Floating))
		for _, f := range frame.Floating {
			varType[f.Var] = f.Typecode
		}

		m := &matcher{byType: byType, varType: varType, reader: grammarReader, names: namesReader}

		tree, ok := m.parseExact(body, wffTypecode)
		if !ok {
			diags = append(diags, diag.Diagnostic{
				Kind: diag.KindGrammar, Segment: diag.SegmentID(seg.ID), Statement: i,
				Message: fmt.Sprintf("%s: formula does not match the syntax grammar", stmt.Label),
			})

			continue
		}

		setIfChanged(idx, stmt.Label, tree, seg.ID)
		labels = append(labels, stmt.Label)
	}

	return cacheEntry{
		digest:       seg.Piece.Digest,
		labels:       labels,
		namesUsage:   namesReader.Usage(),
		grammarUsage: grammarReader.Usage(),
		diags:        diags,
	}
}

// splitProof separates a $p statement's token list at "$=" into its
// conclusion formula and its proof body.
func splitProof(tokens []string) (concl, proof []string, ok bool) {
	for i, tok := range tokens {
		if tok == "$=" {
			return tokens[:i], tokens[i+1:], true
		}
	}

	return nil, nil, false
}

// matcher holds the read-only state a single segment's formula-parsing
// needs: the grammar productions grouped by typecode, the mandatory
// variable types in scope, and the Reader that records which productions
// were actually consulted.
type matcher struct {
	byType  map[string][]string
	varType map[string]string
	reader  *pass.Reader[string, grammar.Production]
	names   *pass.Reader[string, nameck.Symbol]
}

// parseExact parses tokens against typecode, requiring every token to be
// consumed. It tries a direct variable-leaf match first, then every known
// production for typecode, backtracking across candidate split points for
// each production's variable slots — adequate for the small formulas this
// pass is exercised against; it is not a general CFG parser.
func (m *matcher) parseExact(tokens []string, typecode string) (ParseTree, bool) {
	if len(tokens) == 1 {
		if vt, ok := m.varType[tokens[0]]; ok && vt == typecode {
			if sym, ok := m.names.Get(tokens[0]); ok && sym.Kind == nameck.KindVariable {
				return ParseTree{Leaf: true, Token: tokens[0]}, true
			}
		}
	}

	for _, label := range m.byType[typecode] {
		prod, ok := m.reader.Get(label)
		if !ok || prod.Typecode != typecode {
			continue
		}

		if children, ok := m.matchSlots(prod.Slots, tokens); ok {
			return ParseTree{Label: label, Children: children}, true
		}
	}

	return ParseTree{}, false
}

// matchSlots matches slots against tokens, requiring exact, full
// consumption of tokens across the whole slot sequence.
func (m *matcher) matchSlots(slots []grammar.Slot, tokens []string) ([]ParseTree, bool) {
	if len(slots) == 0 {
		return nil, len(tokens) == 0
	}

	slot := slots[0]

	if slot.Literal {
		if len(tokens) == 0 || tokens[0] != slot.Token {
			return nil, false
		}

		return m.matchSlots(slots[1:], tokens[1:])
	}

	// Every remaining slot consumes at least one token, so this slot may take
	// at most len(tokens)-(len(slots)-1) of them.
	for n := 1; n <= len(tokens)-(len(slots)-1); n++ {
		child, ok := m.parseExact(tokens[:n], slot.Typecode)
		if !ok {
			continue
		}

		rest, ok := m.matchSlots(slots[1:], tokens[n:])
		if !ok {
			continue
		}

		return append([]ParseTree{child}, rest...), true
	}

	return nil, false
}

func setIfChanged(idx *Result, label string, tree ParseTree, segID segment.ID) {
	existing, ok := idx.Get(label)
	if ok && treeEqual(existing.Value, tree) {
		return
	}

	version := pass.Version(1)
	if ok {
		version = existing.Version + 1
	}

	idx.Set(label, tree, uint32(segID), version)
}

func treeEqual(a, b ParseTree) bool {
	if a.Leaf != b.Leaf || a.Token != b.Token || a.Label != b.Label || len(a.Children) != len(b.Children) {
		return false
	}

	for i := range a.Children {
		if !treeEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}

	return true
}
