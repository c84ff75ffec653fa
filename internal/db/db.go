// Package db implements spec §4.6's Database: the orchestrator that owns
// the segment set and the six analysis passes, wires their dependency
// graph, and exposes the lazy, incrementally-cached query surface
// (NameResult, ScopeResult, VerifyResult, GrammarResult, StmtParseResult,
// OutlineResult) described there. It mirrors
// original_source/src/database.rs's Database: the same lazy
// "compute-predecessor-then-self" chain, the same options.timing-gated
// stopwatch around every pass, and the same reverse-dependency-order
// teardown.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mm-tools/mmcore/internal/analysis/grammar"
	"github.com/mm-tools/mmcore/internal/analysis/nameck"
	"github.com/mm-tools/mmcore/internal/analysis/scopeck"
	"github.com/mm-tools/mmcore/internal/analysis/stmtparse"
	"github.com/mm-tools/mmcore/internal/analysis/verify"
	"github.com/mm-tools/mmcore/internal/depgraph"
	"github.com/mm-tools/mmcore/internal/diag"
	internalexec "github.com/mm-tools/mmcore/internal/exec"
	"github.com/mm-tools/mmcore/internal/outline"
	"github.com/mm-tools/mmcore/internal/pass"
	"github.com/mm-tools/mmcore/internal/segment"
	"github.com/mm-tools/mmcore/internal/source"
)

// Options configures a Database, mirroring original_source/src/database.rs's
// DbOptions field-for-field.
type Options struct {
	// Autosplit enables 1 MiB chapter-header splitting in the Loader this
	// Database's Set reads through; it is consulted when the caller builds
	// that Loader, not by Database itself.
	Autosplit bool
	// Timing prints "<pass> <ms>ms" to stdout for every pass accessor call,
	// including calls answered from the cached result.
	Timing bool
	// TraceRecalc is carried through from configuration; no pass reads it,
	// so it produces no output.
	TraceRecalc bool
	// Outline controls whether OutlineResult computes anything at all.
	Outline bool
	// Incremental controls whether passes skip unchanged segments via
	// per-segment digest + Usage checks, or always rescan everything.
	Incremental bool
	// Jobs is the reparse executor's worker count.
	Jobs int
	// ParseStatements controls whether StmtParseResult computes anything at
	// all; parsing every formula's syntax tree is the most expensive pass,
	// so it is opt-in.
	ParseStatements bool
}

// DefaultOptions returns the engine's documented defaults: autosplit and
// incremental caching on, outline on, single-threaded reparse, statement
// parsing off.
func DefaultOptions() Options {
	return Options{Autosplit: true, Outline: true, Incremental: true, Jobs: 1}
}

// dependencyGraph names spec §4.6's fixed six-pass dependency graph, used
// only to derive the teardown order Database.Close needs.
func dependencyGraph() *depgraph.Graph {
	g := depgraph.New()
	g.AddEdge("nameck", "segments")
	g.AddEdge("scopeck", "nameck")
	g.AddEdge("verify", "scopeck")
	g.AddEdge("grammar", "scopeck")
	g.AddEdge("stmtparse", "grammar")
	g.AddEdge("outline", "segments")

	return g
}

// Database is spec §4.6's orchestrator. Cloning it (Clone) is O(1) in the
// number of passes: every pass handle and the segment set handle are
// reference-counted, materializing a private copy only when the clone (or
// its sibling) next mutates through Parse or a pass recompute.
type Database struct {
	options  Options
	loader   *source.Loader
	executor *internalexec.Executor
	logger   *slog.Logger

	segSlot *pass.Slot[*segment.Set]

	nameck    *nameck.Pass
	scopeck   *scopeck.Pass
	verify    *verify.Pass
	grammar   *grammar.Pass
	stmtparse *stmtparse.Pass
	outline   *outline.Pass

	// metrics, when set via SetMetrics, additionally records every pass's
	// wall time as an OTel histogram, alongside withTiming's stdout line.
	metrics passRecorder
}

// passRecorder is the subset of observability.PassMetrics withTiming needs;
// declared here rather than imported directly so this package does not
// depend on internal/observability.
type passRecorder interface {
	Record(ctx context.Context, pass string, d time.Duration)
}

// SetMetrics attaches m so every subsequent pass invocation also records a
// duration histogram sample, in addition to the Timing-gated stdout line.
func (db *Database) SetMetrics(m passRecorder) {
	db.metrics = m
}

// New returns a Database reading through loader and reparsing on an
// executor sized by options.Jobs. logger may be nil. execHooks, when
// non-nil, is wired straight into the reparse Executor so every reparse job
// it schedules is observed (e.g. via observability.ExecMetrics.Hooks()).
func New(options Options, loader *source.Loader, logger *slog.Logger, execHooks *internalexec.Hooks) *Database {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Database{
		options:  options,
		loader:   loader,
		executor: internalexec.New(options.Jobs, execHooks),
		logger:   logger,

		segSlot: pass.NewSlot(func(s *segment.Set) *segment.Set { return s.Clone() }),

		nameck:    nameck.New(options.Incremental),
		scopeck:   scopeck.New(options.Incremental),
		verify:    verify.New(options.Incremental),
		grammar:   grammar.New(options.Incremental),
		stmtparse: stmtparse.New(options.Incremental),
		outline:   outline.New(),
	}
}

// Clone returns a Database sharing this one's segment set and every pass
// result, without copying any of it — the cheap O(depth) snapshot spec §4.6
// requires. Both the original and the clone may call Parse independently;
// whichever does so first materializes its own private segment set (and,
// transitively, its own pass results) via copy-on-write.
func (db *Database) Clone() *Database {
	return &Database{
		options:  db.options,
		loader:   db.loader,
		executor: db.executor,
		logger:   db.logger,

		segSlot: db.segSlot.CloneHandle(),

		nameck:    db.nameck.CloneHandle(),
		scopeck:   db.scopeck.CloneHandle(),
		verify:    db.verify.CloneHandle(),
		grammar:   db.grammar.CloneHandle(),
		stmtparse: db.stmtparse.CloneHandle(),
		outline:   db.outline.CloneHandle(),
	}
}

// Parse (re)reads root (and its $[ includes $]) against overlay, replacing
// this Database's segment set and invalidating every pass result, matching
// original_source/src/database.rs's Database::parse.
func (db *Database) Parse(root string, overlay map[string][]byte) error {
	db.segSlot.Invalidate()

	_, err := withTiming(db, "parse", func() (struct{}, error) {
		_, rerr := db.segSlot.Recompute(segment.NewSet(db.loader, db.executor), func(prev **segment.Set) error {
			return (*prev).Read(root, overlay)
		})

		return struct{}{}, rerr
	})
	if err != nil {
		return err
	}

	db.nameck.Invalidate()
	db.scopeck.Invalidate()
	db.verify.Invalidate()
	db.grammar.Invalidate()
	db.stmtparse.Invalidate()
	db.outline.Invalidate()

	return nil
}

// Close releases every pass's result handles and the segment set's, in
// spec §4.6's reverse-dependency order (dependents before what they depend
// on), then stops the reparse executor. It is safe to call on a Database
// that was never Parsed.
func (db *Database) Close() {
	order, err := dependencyGraph().ReverseTopoOrder()
	if err != nil {
		// The fixed six-pass graph is acyclic by construction; a cycle here
		// would be a programming error, not a runtime condition to recover
		// from gracefully.
		panic(fmt.Sprintf("db: pass dependency graph has a cycle: %v", err))
	}

	for _, name := range order {
		switch name {
		case "nameck":
			db.nameck.Release()
		case "scopeck":
			db.scopeck.Release()
		case "verify":
			db.verify.Release()
		case "grammar":
			db.grammar.Release()
		case "stmtparse":
			db.stmtparse.Release()
		case "outline":
			db.outline.Release()
		case "segments":
			db.segSlot.Release()
		}
	}

	db.executor.Close()
}

// segments returns the current segment slice, failing if Parse has never
// succeeded.
func (db *Database) segments() ([]segment.Segment, error) {
	set, err := db.currentSet()
	if err != nil {
		return nil, err
	}

	return set.Segments(), nil
}

func (db *Database) currentSet() (*segment.Set, error) {
	shared, ok := db.segSlot.Current()
	if !ok {
		return nil, fmt.Errorf("db: Parse must succeed before querying results")
	}

	return *shared.Get(), nil
}

// NameResult returns nameck's Result, recomputing it if the segment set has
// changed since the last call.
func (db *Database) NameResult() (*nameck.Result, error) {
	segs, err := db.segments()
	if err != nil {
		return nil, err
	}

	return withTiming(db, "nameck", func() (*nameck.Result, error) {
		return db.nameck.Compute(segs)
	})
}

// ScopeResult returns scopeck's Result, ensuring NameResult (its
// predecessor) is current first.
func (db *Database) ScopeResult() (*scopeck.Result, error) {
	names, err := db.NameResult()
	if err != nil {
		return nil, err
	}

	segs, err := db.segments()
	if err != nil {
		return nil, err
	}

	return withTiming(db, "scopeck", func() (*scopeck.Result, error) {
		return db.scopeck.Compute(segs, names)
	})
}

// VerifyResult returns verify's Result, ensuring NameResult and ScopeResult
// are current first.
func (db *Database) VerifyResult() (*verify.Result, error) {
	names, err := db.NameResult()
	if err != nil {
		return nil, err
	}

	frames, err := db.ScopeResult()
	if err != nil {
		return nil, err
	}

	segs, err := db.segments()
	if err != nil {
		return nil, err
	}

	return withTiming(db, "verify", func() (*verify.Result, error) {
		return db.verify.Compute(segs, names, frames)
	})
}

// GrammarResult returns grammar's Result, ensuring NameResult and
// ScopeResult are current first.
func (db *Database) GrammarResult() (*grammar.Result, error) {
	names, err := db.NameResult()
	if err != nil {
		return nil, err
	}

	frames, err := db.ScopeResult()
	if err != nil {
		return nil, err
	}

	segs, err := db.segments()
	if err != nil {
		return nil, err
	}

	return withTiming(db, "grammar", func() (*grammar.Result, error) {
		return db.grammar.Compute(segs, names, frames)
	})
}

// StmtParseResult returns stmt_parse's Result, or (nil, nil) if
// options.ParseStatements is unset. It ensures grammar (and transitively
// nameck, scopeck) are current first.
func (db *Database) StmtParseResult() (*stmtparse.Result, error) {
	if !db.options.ParseStatements {
		return nil, nil //nolint:nilnil // disabled-pass sentinel, documented on the method.
	}

	names, err := db.NameResult()
	if err != nil {
		return nil, err
	}

	frames, err := db.ScopeResult()
	if err != nil {
		return nil, err
	}

	prods, err := db.GrammarResult()
	if err != nil {
		return nil, err
	}

	segs, err := db.segments()
	if err != nil {
		return nil, err
	}

	return withTiming(db, "stmt_parse", func() (*stmtparse.Result, error) {
		return db.stmtparse.Compute(segs, names, frames, prods)
	})
}

// OutlineResult returns outline's Result, or (nil, nil) if options.Outline
// is unset.
func (db *Database) OutlineResult() (*outline.Result, error) {
	if !db.options.Outline {
		return nil, nil //nolint:nilnil // disabled-pass sentinel, documented on the method.
	}

	segs, err := db.segments()
	if err != nil {
		return nil, err
	}

	return withTiming(db, "outline", func() (*outline.Result, error) {
		return db.outline.Compute(segs)
	})
}

// Statement resolves label to its parsed Statement and Address, computing
// NameResult if needed.
func (db *Database) Statement(label string) (segment.Statement, segment.Address, bool, error) {
	names, err := db.NameResult()
	if err != nil {
		return segment.Statement{}, segment.Address{}, false, err
	}

	e, ok := names.Get(label)
	if !ok {
		return segment.Statement{}, segment.Address{}, false, nil
	}

	segs, err := db.segments()
	if err != nil {
		return segment.Statement{}, segment.Address{}, false, err
	}

	for _, seg := range segs {
		if seg.ID != e.Stmt.Segment {
			continue
		}

		if e.Stmt.Stmt < 0 || e.Stmt.Stmt >= len(seg.Statements) {
			return segment.Statement{}, segment.Address{}, false, nil
		}

		return seg.Statements[e.Stmt.Stmt], e.Stmt, true, nil
	}

	return segment.Statement{}, segment.Address{}, false, nil
}

// DiagNotations collects every diagnostic from the requested classes,
// computing whichever passes they come from, and resolves each to its
// originating source name. The result is in source order: by segment order,
// then statement index, with diagnostics not tied to a current segment
// (I/O and include failures) first.
func (db *Database) DiagNotations(classes ...diag.Class) ([]diag.Notation, error) {
	want := make(map[diag.Class]bool, len(classes))
	for _, c := range classes {
		want[c] = true
	}

	var out []diag.Notation

	if want[diag.ClassParse] {
		set, err := db.currentSet()
		if err != nil {
			return nil, err
		}

		for _, d := range set.ParseDiagnostics() {
			out = append(out, db.notate(d))
		}
	}

	if want[diag.ClassScope] {
		if _, err := db.ScopeResult(); err != nil {
			return nil, err
		}

		for _, d := range db.scopeck.Diagnostics() {
			out = append(out, db.notate(d))
		}
	}

	if want[diag.ClassVerify] {
		if _, err := db.VerifyResult(); err != nil {
			return nil, err
		}

		for _, d := range db.verify.Diagnostics() {
			out = append(out, db.notate(d))
		}
	}

	if want[diag.ClassGrammar] {
		if _, err := db.GrammarResult(); err != nil {
			return nil, err
		}

		for _, d := range db.grammar.Diagnostics() {
			out = append(out, db.notate(d))
		}
	}

	if want[diag.ClassStmtParse] {
		if _, err := db.StmtParseResult(); err != nil {
			return nil, err
		}

		for _, d := range db.stmtparse.Diagnostics() {
			out = append(out, db.notate(d))
		}
	}

	if set, err := db.currentSet(); err == nil {
		pos := make(map[diag.SegmentID]int)
		for i, seg := range set.Segments() {
			pos[diag.SegmentID(seg.ID)] = i + 1
		}

		sort.SliceStable(out, func(i, j int) bool {
			pi, pj := pos[out[i].Segment], pos[out[j].Segment]
			if pi != pj {
				return pi < pj
			}

			return out[i].Statement < out[j].Statement
		})
	}

	return out, nil
}

// notate resolves d's originating source name. Exact line/column requires
// the parser to retain per-statement byte offsets, which it does not; only
// Source is populated, a documented simplification.
func (db *Database) notate(d diag.Diagnostic) diag.Notation {
	n := diag.Notation{Diagnostic: d}

	set, err := db.currentSet()
	if err != nil {
		return n
	}

	if piece, ok := set.SourceInfo(segment.ID(d.Segment)); ok {
		n.Source = piece.Origin
	}

	return n
}

// withTiming runs f, printing "<name> <ms>ms" to stdout when
// options.Timing is set, mirroring original_source/src/database.rs's
// time(opts, name, f) helper. It is a free function, not a method, because
// Go methods cannot carry their own type parameters.
func withTiming[T any](db *Database, name string, f func() (T, error)) (T, error) {
	start := time.Now()

	v, err := f()
	elapsed := time.Since(start)

	if db.options.Timing {
		fmt.Printf("%s %dms\n", name, elapsed.Milliseconds())
	}

	if db.metrics != nil {
		db.metrics.Record(context.Background(), name, elapsed)
	}

	return v, err
}
