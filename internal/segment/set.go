package segment

import (
	"fmt"
	"sync"

	"github.com/mm-tools/mmcore/internal/diag"
	internalexec "github.com/mm-tools/mmcore/internal/exec"
	"github.com/mm-tools/mmcore/internal/order"
	"github.com/mm-tools/mmcore/internal/source"
)

// changeKind classifies a piece against the previous reparse's table, per
// spec §4.4 step 2.
type changeKind int

const (
	changeNew changeKind = iota
	changeUnchanged
	changeChanged
)

// Set is spec's SegmentSet: the ordered collection of Segments produced by
// the most recent Read, reusing unchanged segment IDs across reparses.
type Set struct {
	mu sync.RWMutex

	loader   *source.Loader
	executor *internalexec.Executor
	order    *order.Order

	segments []Segment
	byID     map[ID]int

	prevPieces map[source.Key]source.Piece
	idByKey    map[source.Key]ID

	loadDiagnostics []diag.Diagnostic
}

// NewSet returns an empty Set backed by loader for source resolution and
// executor for parallel parse jobs.
func NewSet(loader *source.Loader, executor *internalexec.Executor) *Set {
	return &Set{
		loader:     loader,
		executor:   executor,
		order:      order.New(),
		byID:       make(map[ID]int),
		prevPieces: make(map[source.Key]source.Piece),
		idByKey:    make(map[source.Key]ID),
	}
}

type classifiedPiece struct {
	piece source.Piece
	kind  changeKind
	oldID ID
}

// Read implements spec §4.4's reparse algorithm: enumerate pieces, classify
// each against the previous table, parse the non-unchanged ones on the
// executor (largest first), then splice the results into the ordered
// segment list, reusing IDs for unchanged and positionally-matched changed
// pieces and allocating fresh IDs (via SegmentOrder) for new ones.
func (s *Set) Read(root string, overlay map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pieces, loadDiags := s.loader.Load(root, overlay)
	s.loadDiagnostics = loadDiags

	classified := s.classify(pieces)
	s.freeRemoved(classified)

	raws := s.parseChanged(classified)

	newSegments, newByID, newPrevPieces, newIDByKey, err := s.splice(classified, raws)
	if err != nil {
		return err
	}

	s.segments = newSegments
	s.byID = newByID
	s.prevPieces = newPrevPieces
	s.idByKey = newIDByKey

	return nil
}

// classify implements step 2: decide unchanged|changed|new for each piece
// against s.prevPieces.
func (s *Set) classify(pieces []source.Piece) []classifiedPiece {
	out := make([]classifiedPiece, len(pieces))

	for i, p := range pieces {
		key := p.Key()

		old, existed := s.prevPieces[key]
		if !existed {
			out[i] = classifiedPiece{piece: p, kind: changeNew}

			continue
		}

		oldID := s.idByKey[key]
		if old.Length == p.Length && old.ModTime.Equal(p.ModTime) && old.Digest == p.Digest {
			out[i] = classifiedPiece{piece: p, kind: changeUnchanged, oldID: oldID}
		} else {
			out[i] = classifiedPiece{piece: p, kind: changeChanged, oldID: oldID}
		}
	}

	return out
}

// freeRemoved frees the SegmentOrder ids of every previously-tracked piece
// absent from the new classification, before any new ids are allocated, so
// a removed id never blocks AllocateBetween for its former neighbors.
func (s *Set) freeRemoved(classified []classifiedPiece) {
	stillPresent := make(map[source.Key]bool, len(classified))
	for _, c := range classified {
		stillPresent[c.piece.Key()] = true
	}

	for key, id := range s.idByKey {
		if !stillPresent[key] {
			s.order.Free(id)
		}
	}
}

type parseJobResult struct {
	index int
	raw   []rawSegment
}

// parseChanged implements step 3: enqueue a parse job per non-unchanged
// piece with estimate = piece length, and waits for every job.
func (s *Set) parseChanged(classified []classifiedPiece) map[int][]rawSegment {
	var promises []internalexec.Promise[parseJobResult]

	for i, c := range classified {
		if c.kind == changeUnchanged {
			continue
		}

		index := i
		piece := c.piece

		promises = append(promises, internalexec.Exec(s.executor, int64(len(piece.Content)), func() (parseJobResult, error) {
			return parseJobResult{index: index, raw: parseSegments(piece)}, nil
		}))
	}

	results := make(map[int][]rawSegment, len(promises))

	for _, p := range promises {
		r, _ := p.Wait() // parseSegments never returns an error.
		results[r.index] = r.raw
	}

	return results
}

// splice implements steps 4-5: build the new ordered segment list,
// reusing or allocating ids as spec §4.4 directs.
func (s *Set) splice(classified []classifiedPiece, raws map[int][]rawSegment) ([]Segment, map[ID]int, map[source.Key]source.Piece, map[source.Key]ID, error) {
	finalIDs := make([]ID, len(classified))

	for i, c := range classified {
		if c.kind != changeNew {
			finalIDs[i] = c.oldID
		}
	}

	if err := s.allocateNewIDs(classified, finalIDs); err != nil {
		return nil, nil, nil, nil, err
	}

	segments := make([]Segment, len(classified))
	byID := make(map[ID]int, len(classified))
	prevPieces := make(map[source.Key]source.Piece, len(classified))
	idByKey := make(map[source.Key]ID, len(classified))

	for i, c := range classified {
		id := finalIDs[i]

		var seg Segment

		if c.kind == changeUnchanged {
			oldIdx, ok := s.byID[c.oldID]
			if !ok {
				return nil, nil, nil, nil, fmt.Errorf("segment: unchanged piece %v has no prior segment for id %d", c.piece.Key(), c.oldID)
			}

			seg = s.segments[oldIdx]
		} else {
			raw := raws[i][0]
			seg = Segment{ID: id, Piece: raw.piece, Statements: raw.statements, Diagnostics: raw.diagnostics}
		}

		segments[i] = seg
		byID[id] = i
		prevPieces[c.piece.Key()] = c.piece
		idByKey[c.piece.Key()] = id
	}

	return segments, byID, prevPieces, idByKey, nil
}

// allocateNewIDs fills in finalIDs for every changeNew position, chaining
// SegmentOrder allocations off of whichever neighbor (already-resolved
// predecessor, or the next position with a known id) is available.
func (s *Set) allocateNewIDs(classified []classifiedPiece, finalIDs []ID) error {
	if s.order.Len() == 0 {
		allNew := true

		for _, c := range classified {
			if c.kind != changeNew {
				allNew = false

				break
			}
		}

		if allNew && len(classified) > 0 {
			ids := s.order.AllocateInitial(len(classified))
			copy(finalIDs, ids)

			return nil
		}
	}

	var (
		lastID    ID
		lastKnown bool
	)

	for i, c := range classified {
		if c.kind != changeNew {
			lastID = finalIDs[i]
			lastKnown = true

			continue
		}

		nextID, nextKnown := nextKnownID(classified, finalIDs, i+1)

		id, err := s.allocateOne(lastID, lastKnown, nextID, nextKnown)
		if err != nil {
			return fmt.Errorf("segment: allocating id for new piece %v: %w", c.piece.Key(), err)
		}

		finalIDs[i] = id
		lastID = id
		lastKnown = true
	}

	return nil
}

func nextKnownID(classified []classifiedPiece, finalIDs []ID, from int) (ID, bool) {
	for j := from; j < len(classified); j++ {
		if classified[j].kind != changeNew {
			return finalIDs[j], true
		}
	}

	return 0, false
}

func (s *Set) allocateOne(lastID ID, lastKnown bool, nextID ID, nextKnown bool) (ID, error) {
	switch {
	case lastKnown && nextKnown:
		return s.order.AllocateBetween(lastID, nextID)
	case lastKnown:
		return s.order.AllocateAfter(lastID)
	case nextKnown:
		return s.order.AllocateBefore(nextID)
	default:
		ids := s.order.AllocateInitial(1)

		return ids[0], nil
	}
}

// Segments returns the current segments in logical order.
func (s *Set) Segments() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Segment, len(s.segments))
	copy(out, s.segments)

	return out
}

// SourceInfo returns the source piece id was parsed from.
func (s *Set) SourceInfo(id ID) (source.Piece, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return source.Piece{}, false
	}

	return s.segments[idx].Piece, true
}

// ParseDiagnostics returns every parse-time diagnostic across segments,
// plus any I/O/include diagnostics from the most recent Load.
func (s *Set) ParseDiagnostics() []diag.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]diag.Diagnostic, 0, len(s.loadDiagnostics))
	out = append(out, s.loadDiagnostics...)

	for _, seg := range s.segments {
		for _, d := range seg.Diagnostics {
			d.Segment = diag.SegmentID(seg.ID)
			out = append(out, d)
		}
	}

	return out
}

// Order exposes the underlying SegmentOrder so passes can compare segment
// ids without reaching into Set internals.
func (s *Set) Order() *order.Order {
	return s.order
}

// Clone returns an independent deep copy of s, the copy-on-write
// materialization step a Database clone's first Read needs (spec §4.6
// "clone duplicates only shared handles"): the new Set shares this one's
// loader and executor (stateless/reusable across clones) but owns its own
// segment order and segment tables, so a later Read on either clone cannot
// corrupt the other's view.
func (s *Set) Clone() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &Set{
		loader:          s.loader,
		executor:        s.executor,
		order:           s.order.Clone(),
		segments:        make([]Segment, len(s.segments)),
		byID:            make(map[ID]int, len(s.byID)),
		prevPieces:      make(map[source.Key]source.Piece, len(s.prevPieces)),
		idByKey:         make(map[source.Key]ID, len(s.idByKey)),
		loadDiagnostics: append([]diag.Diagnostic{}, s.loadDiagnostics...),
	}

	copy(out.segments, s.segments)

	for k, v := range s.byID {
		out.byID[k] = v
	}

	for k, v := range s.prevPieces {
		out.prevPieces[k] = v
	}

	for k, v := range s.idByKey {
		out.idByKey[k] = v
	}

	return out
}
