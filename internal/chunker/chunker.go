// Package chunker splits document text into overlapping spans suitable
// for embedding. Spans are byte offsets into the original text; the
// chunker never copies text into its output.
package chunker

import (
	"strings"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

// Default chunking parameters.
const (
	// DefaultChunkSize is the default window width in bytes.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default overlap between consecutive
	// chunks.
	DefaultChunkOverlap = 200

	// boundaryWindow is how far back from a raw window end the chunker
	// looks for a natural boundary.
	boundaryWindow = 200
)

// boundaries, in preference order. The first one found in the tail of the
// window wins; the window is cut just after it.
var boundaries = []string{
	"\n\n", // paragraph break
	".\n",  // sentence followed by newline
	". ",   // sentence end
	"!",
	"?",
	"\n",
	" ",
}

// Spans computes the ordered chunk spans for fullText under params.
// It is pure and deterministic: identical inputs yield identical spans.
//
// The window slides by chunkSize-chunkOverlap. A window end that falls
// strictly inside the text is pulled back to the latest natural boundary
// within the last 200 bytes, searched in preference order. Spans whose
// text trims to empty are discarded without consuming a chunk number, so
// numbering over emitted spans stays dense. If the advanced start would
// not move past the previous start it is forced to the previous end,
// which guarantees progress on pathological inputs such as long
// all-whitespace runs.
func Spans(fullText string, params domain.ChunkParams) ([]domain.Span, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if fullText == "" {
		return nil, nil
	}

	size := params.ChunkSize
	step := size - params.ChunkOverlap
	textLen := len(fullText)

	spans := make([]domain.Span, 0, textLen/step+1)

	start := 0
	for start < textLen {
		end := start + size
		if end >= textLen {
			end = textLen
		} else {
			end = trimToBoundary(fullText, start, end)
		}

		if strings.TrimSpace(fullText[start:end]) != "" {
			spans = append(spans, domain.Span{Start: start, End: end})
		}

		if end == textLen {
			break
		}

		next := end - params.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}

	return spans, nil
}

// trimToBoundary pulls end back to just after the latest boundary within
// the final boundaryWindow bytes of [start, end). Boundary kinds are tried
// in preference order; if none occurs at or after start the raw end is
// kept.
func trimToBoundary(text string, start, end int) int {
	lo := end - boundaryWindow
	if lo < start {
		lo = start
	}
	window := text[lo:end]

	for _, b := range boundaries {
		if idx := strings.LastIndex(window, b); idx >= 0 {
			cut := lo + idx + len(b)
			if cut > start {
				return cut
			}
		}
	}
	return end
}
