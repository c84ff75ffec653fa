package source

import "bytes"

var (
	includeOpen  = []byte("$[")
	includeClose = []byte("$]")
)

// includeDirective is a located $[ file $] boundary.
type includeDirective struct {
	start, end int // byte range of the whole directive, including delimiters
	name       string
}

// findIncludes scans data for every $[ file $] directive, in order.
// Directives are not expected to nest, matching Metamath's flat include
// syntax; a stray unterminated "$[" is ignored rather than erroring here —
// it will surface as a parse diagnostic from the segment pass instead.
func findIncludes(data []byte) []includeDirective {
	var directives []includeDirective

	pos := 0
	for {
		rel := bytes.Index(data[pos:], includeOpen)
		if rel < 0 {
			break
		}

		start := pos + rel
		closeRel := bytes.Index(data[start:], includeClose)

		if closeRel < 0 {
			break
		}

		end := start + closeRel + len(includeClose)
		body := bytes.TrimSpace(data[start+len(includeOpen) : start+closeRel])

		directives = append(directives, includeDirective{
			start: start,
			end:   end,
			name:  string(body),
		})

		pos = end
	}

	return directives
}

// splitOnIncludes partitions data into alternating literal ranges and
// include directives, in file order: lit, [include, lit]*.
func splitOnIncludes(data []byte) (literals []subPiece, includes []includeDirective) {
	includes = findIncludes(data)

	prev := 0
	for _, inc := range includes {
		if inc.start > prev {
			literals = append(literals, subPiece{start: prev, end: inc.start, data: data[prev:inc.start]})
		} else {
			literals = append(literals, subPiece{start: prev, end: prev, data: nil})
		}

		prev = inc.end
	}

	if prev < len(data) {
		literals = append(literals, subPiece{start: prev, end: len(data), data: data[prev:]})
	} else {
		literals = append(literals, subPiece{start: prev, end: prev, data: nil})
	}

	return literals, includes
}
