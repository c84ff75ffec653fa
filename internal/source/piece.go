// Package source implements the file loader and source-splitting machinery
// of spec §4.2: overlay-then-filesystem resolution, modification detection,
// 1 MiB chapter-header autosplit, and $[ file $] include resolution with
// cycle detection.
package source

import "time"

// Piece is the Go shape of spec's SourcePiece: a contiguous range of bytes
// that segmentation will be run over, plus the metadata the segment set
// needs to classify it as unchanged, changed, new, or removed on reparse.
type Piece struct {
	// Origin is the overlay key or filesystem path this piece was read from.
	Origin string
	// Index numbers the pieces read from Origin in order: the literal ranges
	// between its $[ includes $] and any autosplit sub-ranges; zero for an
	// origin that yields a single piece.
	Index int
	// Start and End are byte offsets into Origin's full content.
	Start, End int
	// ModTime is the filesystem modification time; zero for overlay pieces,
	// which are tracked by Digest instead (spec §4.2 modification detection).
	ModTime time.Time
	// Length is the byte length of Origin's full content (not just this
	// piece), matching the (path, mtime, length) triple spec compares.
	Length int64
	// Digest is an xxhash of this piece's content, used to detect changed
	// overlay buffers whose mtime/length are meaningless.
	Digest uint64
	// Content is this piece's raw bytes.
	Content []byte
}

// Key identifies a piece across reparses for the segment set's
// unchanged/changed/new/removed comparison (spec §4.4 step 2).
type Key struct {
	Origin string
	Index  int
}

// Key returns p's identity for reparse comparison.
func (p Piece) Key() Key {
	return Key{Origin: p.Origin, Index: p.Index}
}
