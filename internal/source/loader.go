package source

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"

	"github.com/mm-tools/mmcore/internal/depgraph"
	"github.com/mm-tools/mmcore/internal/diag"
	"github.com/mm-tools/mmcore/pkg/cache"
)

// defaultByteCacheSize bounds the in-process file-content cache; it exists
// only to avoid re-reading unchanged files from disk within a process's
// lifetime, per spec §6 "Persisted state: None".
const defaultByteCacheSize = 64 << 20 // 64 MiB

// fsMeta is the last-observed (mtime, length) for a filesystem path,
// letting Loader skip a re-read when nothing has changed.
type fsMeta struct {
	modTime time.Time
	length  int64
}

// Loader resolves Metamath source names to content, overlay-first then
// filesystem, and assembles the ordered list of Pieces a fresh parse will
// run over (spec §4.2).
type Loader struct {
	autosplit bool
	logger    *slog.Logger

	bytes *cache.ByteCache

	mu   sync.Mutex
	meta map[string]fsMeta

	overlay map[string][]byte
}

// NewLoader returns a Loader. autosplit mirrors options.autosplit; logger
// may be nil, in which case a discard logger is used.
func NewLoader(autosplit bool, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Loader{
		autosplit: autosplit,
		logger:    logger,
		bytes:     cache.NewByteCache(defaultByteCacheSize),
		meta:      make(map[string]fsMeta),
	}
}

// Load resolves root (and everything it transitively $[ includes $]),
// returning the ordered Pieces ready for segmentation and any I/O/include
// diagnostics encountered. Pieces are returned in source order: root's
// content up to its first include, the included file's pieces, root's
// content to its next include, and so on, recursively.
func (l *Loader) Load(root string, overlay map[string][]byte) ([]Piece, []diag.Diagnostic) {
	l.overlay = overlay

	var (
		pieces []Piece
		diags  []diag.Diagnostic
	)

	includeGraph := depgraph.New()
	l.loadOrigin(root, includeGraph, nil, &pieces, &diags)

	return pieces, diags
}

func (l *Loader) loadOrigin(origin string, includeGraph *depgraph.Graph, stack []string, pieces *[]Piece, diags *[]diag.Diagnostic) {
	for _, s := range stack {
		if s == origin {
			*diags = append(*diags, diag.Diagnostic{
				Kind:    diag.KindInclude,
				Message: fmt.Sprintf("include cycle detected: %s already on the include stack", origin),
			})

			return
		}
	}

	data, modTime, length, err := l.resolve(origin)
	if err != nil {
		*diags = append(*diags, diag.Diagnostic{
			Kind:    diag.KindIO,
			Message: fmt.Sprintf("%s: %v", origin, err),
		})

		return
	}

	digest := xxhash.Sum64(data)

	l.logger.Debug("loaded source",
		"origin", origin,
		"size", humanize.Bytes(uint64(length)),
		"digest", digest,
	)

	literals, includes := splitOnIncludes(data)

	nextStack := append(append([]string{}, stack...), origin)

	originIndex := 0

	for i, lit := range literals {
		for _, sub := range autosplit(lit.data, l.autosplit) {
			if len(sub.data) == 0 {
				continue
			}

			*pieces = append(*pieces, Piece{
				Origin:  origin,
				Index:   originIndex,
				Start:   sub.start,
				End:     sub.end,
				ModTime: modTime,
				Length:  length,
				Digest:  digest,
				Content: sub.data,
			})
			originIndex++
		}

		if i < len(includes) {
			includeGraph.AddEdge(origin, includes[i].name)
			l.loadOrigin(includes[i].name, includeGraph, nextStack, pieces, diags)
		}
	}
}

// resolve returns origin's content, consulting the overlay before the
// filesystem, matching spec §4.2's "input" rule exactly.
func (l *Loader) resolve(origin string) ([]byte, time.Time, int64, error) {
	if buf, ok := l.overlay[origin]; ok {
		return buf, time.Time{}, int64(len(buf)), nil
	}

	info, err := os.Stat(origin)
	if err != nil {
		return nil, time.Time{}, 0, err
	}

	modTime := info.ModTime()
	length := info.Size()

	l.mu.Lock()
	prevMeta, known := l.meta[origin]
	l.mu.Unlock()

	key := xxhash.Sum64String(origin)

	if known && prevMeta.modTime.Equal(modTime) && prevMeta.length == length {
		if data, ok := l.bytes.Get(key); ok {
			return data, modTime, length, nil
		}
	}

	data, err := os.ReadFile(origin) //nolint:gosec // origin is a user-supplied Metamath source path, not attacker input.
	if err != nil {
		return nil, time.Time{}, 0, err
	}

	l.bytes.Put(key, data)

	l.mu.Lock()
	l.meta[origin] = fsMeta{modTime: modTime, length: length}
	l.mu.Unlock()

	return data, modTime, length, nil
}
