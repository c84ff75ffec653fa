package source

// autosplitThreshold is the 1 MiB size spec §4.2 names as the trigger for
// chapter-header splitting.
const autosplitThreshold = 1 << 20

// commentOpen and commentClose delimit a Metamath comment, inside which a
// chapter header is recognized.
var commentOpen = []byte("$(")

// minHeaderHashes is the "at least four consecutive # characters" rule.
const minHeaderHashes = 4

// findCommentOpens returns the byte offsets of every "$(" occurrence in
// data, found with a Boyer-Moore bad-character search rather than a full
// tokenizer, per spec §4.2's "word-at-a-time ... search over the raw
// buffer, not the full parser" requirement.
func findCommentOpens(data []byte) []int {
	var offsets []int

	skip := badCharTable(commentOpen)
	n, m := len(data), len(commentOpen)

	if m == 0 || n < m {
		return nil
	}

	i := 0
	for i <= n-m {
		j := m - 1
		for j >= 0 && data[i+j] == commentOpen[j] {
			j--
		}

		if j < 0 {
			offsets = append(offsets, i)
			i++

			continue
		}

		badCharSkip := skip[data[i+j]]
		shift := j - badCharSkip

		if shift < 1 {
			shift = 1
		}

		i += shift
	}

	return offsets
}

// badCharTable builds the classic Boyer-Moore bad-character skip table: for
// every byte value, the rightmost index it occurs at in pattern, or -1.
func badCharTable(pattern []byte) [256]int {
	var table [256]int
	for i := range table {
		table[i] = -1
	}

	for i, b := range pattern {
		table[b] = i
	}

	return table
}

// isChapterHeader reports whether the comment opened at openIdx (the index
// of "$(" in data) has, as its first non-whitespace body content, a run of
// at least minHeaderHashes '#' characters — spec §4.2's chapter-header
// pattern.
func isChapterHeader(data []byte, openIdx int) bool {
	i := openIdx + len(commentOpen)

	for i < len(data) && isSpace(data[i]) {
		i++
	}

	run := 0
	for i+run < len(data) && data[i+run] == '#' {
		run++
	}

	return run >= minHeaderHashes
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// lineStart returns the offset of the start of the line containing idx, so
// a split point falls cleanly before the comment rather than mid-line.
func lineStart(data []byte, idx int) int {
	for i := idx; i > 0; i-- {
		if data[i-1] == '\n' {
			return i
		}
	}

	return 0
}

// chapterHeaderSplits returns the sorted, deduplicated byte offsets at
// which data should be split: the start of each line opening a
// chapter-header comment, excluding offset 0 (splitting at the very start
// of the file produces no new piece).
func chapterHeaderSplits(data []byte) []int {
	var splits []int

	last := -1

	for _, openIdx := range findCommentOpens(data) {
		if !isChapterHeader(data, openIdx) {
			continue
		}

		start := lineStart(data, openIdx)
		if start == 0 || start == last {
			continue
		}

		splits = append(splits, start)
		last = start
	}

	return splits
}

// subPiece is a candidate split range prior to being wrapped into a Piece.
type subPiece struct {
	start, end int
	data       []byte
}

// autosplit divides data into chapter-header-delimited ranges when data
// exceeds the 1 MiB threshold and autosplit is enabled; otherwise it
// returns data as a single range.
func autosplit(data []byte, enabled bool) []subPiece {
	if !enabled || len(data) <= autosplitThreshold {
		return []subPiece{{start: 0, end: len(data), data: data}}
	}

	splits := chapterHeaderSplits(data)
	if len(splits) == 0 {
		return []subPiece{{start: 0, end: len(data), data: data}}
	}

	pieces := make([]subPiece, 0, len(splits)+1)
	prev := 0

	for _, s := range splits {
		pieces = append(pieces, subPiece{start: prev, end: s, data: data[prev:s]})
		prev = s
	}

	pieces = append(pieces, subPiece{start: prev, end: len(data), data: data[prev:]})

	return pieces
}
