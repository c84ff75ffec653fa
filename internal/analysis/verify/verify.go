// Package verify implements the proof-verification pass of spec §4.6
// (verify ← segment_set, nameck, scopeck): for every provable ($p)
// statement it replays the proof's RPN stack machine against the
// statement's mandatory hypotheses and reports whether the resulting
// formula matches the statement's own conclusion.
package verify

import (
	"fmt"

	"github.com/mm-tools/mmcore/internal/analysis/nameck"
	"github.com/mm-tools/mmcore/internal/analysis/scopeck"
	"github.com/mm-tools/mmcore/internal/diag"
	"github.com/mm-tools/mmcore/internal/pass"
	"github.com/mm-tools/mmcore/internal/segment"
)

// Outcome is verify's per-label result.
type Outcome struct {
	Verified bool
	// Skipped is set for compressed proofs, whose full decode is outside
	// this pass's scope (see proofKind).
	Skipped bool
}

// Result is verify's pass result, keyed by provable-statement label.
type Result = pass.Index[string, Outcome]

// proofTerminator separates a $p statement's conclusion from its proof.
const proofTerminator = "$="

// cacheEntry remembers what a segment contributed last time, plus the
// Usage its computation consulted from nameck and scopeck, so an unchanged
// segment whose dependencies are still valid can be skipped (spec §4.5
// "Usage check").
type cacheEntry struct {
	digest      uint64
	labels      []string
	namesUsage  *pass.Usage[string]
	framesUsage *pass.Usage[string]
	diags       []diag.Diagnostic
}

// Pass computes and incrementally maintains the verify Result.
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

// Diagnostics returns the verify-class diagnostics from the most recent
// Compute. They are gathered from a per-segment map, so their order is
// unspecified; Database.DiagNotations sorts them into source order.
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

	shared, err := p.slot.Recompute(pass.NewIndex[string, Outcome](), func(idx *Result) error {
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
				cached.framesUsage.StillValid(versionLookup(frames)) {
				continue
			}

			if known {
				dropSegment(idx, seg.ID, cached)
			}

			p.segCache[seg.ID] = scanSegment(idx, seg, names, frames)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return shared.Get(), nil
}

// versionLookup adapts an Index's Get into the (VersionedKey, bool)
// signature Usage.StillValid expects.
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

// scanSegment verifies every $p statement in seg, recording the Usage its
// lookups consulted from names and frames.
func scanSegment(idx *Result, seg segment.Segment, names *nameck.Result, frames *scopeck.Result) cacheEntry {
	namesReader := pass.NewReader(names)
	framesReader := pass.NewReader(frames)

	var (
		labels []string
		diags  []diag.Diagnostic
	)

	for i, stmt := range seg.Statements {
		if stmt.Kind != segment.KindProvable {
			continue
		}

		conclTokens, proofTokens, ok := splitProof(stmt.Tokens)
		if !ok {
			diags = append(diags, diag.Diagnostic{
				Kind: diag.KindVerify, Segment: diag.SegmentID(seg.ID), Statement: i,
				Message: fmt.Sprintf("%s: missing %q separator", stmt.Label, proofTerminator),
			})
			setIfChanged(idx, stmt.Label, Outcome{}, seg.ID)
			labels = append(labels, stmt.Label)

			continue
		}

		outcome, err := verifyOne(conclTokens, proofTokens, namesReader, framesReader)
		if err != nil {
			diags = append(diags, diag.Diagnostic{
				Kind: diag.KindVerify, Segment: diag.SegmentID(seg.ID), Statement: i,
				Message: fmt.Sprintf("%s: %v", stmt.Label, err),
			})
		}

		setIfChanged(idx, stmt.Label, outcome, seg.ID)
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

// splitProof separates a $p statement's token list at "$=" into its
// conclusion formula and its proof body.
func splitProof(tokens []string) (concl, proof []string, ok bool) {
	for i, tok := range tokens {
		if tok == proofTerminator {
			return tokens[:i], tokens[i+1:], true
		}
	}

	return nil, nil, false
}

// verifyOne replays proof's RPN stack machine starting from the empty
// stack, applying substitutions per scopeck.Frame, and checks the final
// stack entry equals concl.
func verifyOne(concl, proof []string, names *pass.Reader[string, nameck.Symbol], frames *pass.Reader[string, scopeck.Frame]) (Outcome, error) {
	if len(proof) == 0 {
		return Outcome{}, fmt.Errorf("empty proof")
	}

	if proof[0] == "(" {
		// Compressed proofs encode steps as a mixed base-20/26 digit string
		// over a fixed fixed-width alphabet; decoding them is a parser
		// concern (spec §1's "external collaborators" lexical/grammatical
		// parsers), so this pass verifies only uncompressed proofs and
		// reports compressed ones as skipped rather than failed.
		return Outcome{Skipped: true}, nil
	}

	for _, tok := range proof {
		if tok == "?" {
			return Outcome{}, fmt.Errorf("incomplete proof (contains \"?\")")
		}
	}

	stack := make([][]string, 0, len(proof))

	for _, label := range proof {
		sym, ok := names.Get(label)
		if !ok {
			return Outcome{}, fmt.Errorf("unknown proof step label %q", label)
		}

		switch sym.Kind {
		case nameck.KindFloating, nameck.KindEssential:
			stack = append(stack, append([]string{}, sym.Typed...))
		case nameck.KindAxiom, nameck.KindProvable:
			frame, ok := frames.Get(label)
			if !ok {
				return Outcome{}, fmt.Errorf("no scope frame for %q", label)
			}

			// Mandatory hypotheses are every active $f and $e in scope, not
			// just the floating ones: an assertion with an $e hypothesis
			// (e.g. ax-mp) must pop one stack entry per $e too, or the
			// remainder of the proof misaligns against the wrong stack
			// entries.
			mandatory := len(frame.Floating) + len(frame.Essential)
			if len(stack) < mandatory {
				return Outcome{}, fmt.Errorf("stack underflow applying %q", label)
			}

			args := stack[len(stack)-mandatory:]
			stack = stack[:len(stack)-mandatory]

			subst, err := bindHypotheses(names, frame, args)
			if err != nil {
				return Outcome{}, fmt.Errorf("applying %q: %w", label, err)
			}

			concl := sym.Typed
			if sym.Kind == nameck.KindProvable {
				if c, _, ok := splitProof(sym.Typed); ok {
					concl = c
				}
			}

			stack = append(stack, substitute(concl, subst))
		case nameck.KindConstant, nameck.KindVariable:
			return Outcome{}, fmt.Errorf("proof step %q names a symbol, not a hypothesis or assertion", label)
		}
	}

	if len(stack) != 1 {
		return Outcome{}, fmt.Errorf("proof stack has %d entries at end, want 1", len(stack))
	}

	if !tokensEqual(stack[0], concl) {
		return Outcome{}, fmt.Errorf("proved formula does not match conclusion")
	}

	return Outcome{Verified: true}, nil
}

// bindHypotheses walks frame.Order — the mandatory $f/$e hypotheses in
// their original declaration order, which is the order args was popped off
// the proof stack in — building the floating-variable substitution map and
// checking each essential hypothesis's (substituted) required formula
// against the stack entry the proof actually supplied for it.
func bindHypotheses(names *pass.Reader[string, nameck.Symbol], frame scopeck.Frame, args [][]string) (map[string][]string, error) {
	subst := make(map[string][]string, len(frame.Floating))

	for i, hypLabel := range frame.Order {
		sym, ok := names.Get(hypLabel)
		if !ok {
			return nil, fmt.Errorf("no nameck entry for mandatory hypothesis %q", hypLabel)
		}

		switch sym.Kind {
		case nameck.KindFloating:
			if len(sym.Typed) < 2 || len(args[i]) < 1 {
				return nil, fmt.Errorf("malformed hypothesis argument for %q", hypLabel)
			}

			subst[sym.Typed[1]] = args[i][1:]
		case nameck.KindEssential:
			want := substitute(sym.Typed, subst)
			if !tokensEqual(args[i], want) {
				return nil, fmt.Errorf("essential hypothesis %q not satisfied: got %v, want %v", hypLabel, args[i], want)
			}
		default:
			return nil, fmt.Errorf("mandatory hypothesis %q is neither floating nor essential", hypLabel)
		}
	}

	return subst, nil
}

// substitute replaces every occurrence of a subst key within tokens with
// its mapped token sequence.
func substitute(tokens []string, subst map[string][]string) []string {
	out := make([]string, 0, len(tokens))

	for _, t := range tokens {
		if rep, ok := subst[t]; ok {
			out = append(out, rep...)

			continue
		}

		out = append(out, t)
	}

	return out
}

func tokensEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func setIfChanged(idx *Result, label string, outcome Outcome, segID segment.ID) {
	existing, ok := idx.Get(label)
	if ok && existing.Value == outcome {
		return
	}

	version := pass.Version(1)
	if ok {
		version = existing.Version + 1
	}

	idx.Set(label, outcome, uint32(segID), version)
}
