// Package chunker splits long documents into ordered, bounded text windows
// for window-at-a-time knowledge extraction.
package chunker

import (
	"fmt"
	"strings"
)

// Default chunker geometry. 3500 chars is roughly 875 tokens, which leaves
// headroom for the context summary in the extraction prompt.
const (
	DefaultMaxWindowSize = 3500
	DefaultOverlapSize   = 400
)

// Window is a bounded segment of the source document. Offsets are character
// positions in the original document, so Text == document[StartOffset:EndOffset].
type Window struct {
	// ID is the 0-based ordinal of the window in document order.
	ID int

	// Text is the content of this window.
	Text string

	// StartOffset is where this window starts in the original document.
	StartOffset int

	// EndOffset is where this window ends in the original document.
	EndOffset int

	// MentionedEntities is populated during extraction.
	MentionedEntities []string
}

// Chunker produces windows with a fixed cursor advance of maxSize-overlap.
// Overlap is implemented as a reduced cursor advance: the trailing text of
// window N reappears at the start of window N+1, and no window ever contains
// text that is absent from the original document.
type Chunker struct {
	maxSize int
	overlap int
}

// New creates a Chunker. The overlap must be strictly smaller than the
// maximum window size.
func New(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("chunker: max window size must be positive, got %d", maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, %d)", overlap, maxSize)
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// NewDefault creates a Chunker with the default geometry.
func NewDefault() *Chunker {
	c, _ := New(DefaultMaxWindowSize, DefaultOverlapSize)
	return c
}

// MaxWindowSize returns the configured maximum window length.
func (c *Chunker) MaxWindowSize() int { return c.maxSize }

// NeedsChunking reports whether text exceeds a single window.
func (c *Chunker) NeedsChunking(text string) bool {
	return len(text) > c.maxSize
}

// EstimateChunkCount returns the number of windows Chunk will produce.
func (c *Chunker) EstimateChunkCount(text string) int {
	if !c.NeedsChunking(text) {
		return 1
	}
	stride := c.maxSize - c.overlap
	return (len(text) + stride - 1) / stride
}

// Chunk splits text into windows in document order. Window k starts at
// k*(maxSize-overlap); its end is the hard cut start+maxSize, pulled back to
// the nearest sentence boundary inside the overlap tail when one exists.
// Trimming is bounded by the next window's start so every character of the
// document appears in at least one window, and len(Chunk(text)) always equals
// EstimateChunkCount(text).
func (c *Chunker) Chunk(text string) []Window {
	if !c.NeedsChunking(text) {
		return []Window{{
			ID:          0,
			Text:        text,
			StartOffset: 0,
			EndOffset:   len(text),
		}}
	}

	stride := c.maxSize - c.overlap
	count := c.EstimateChunkCount(text)
	windows := make([]Window, 0, count)

	for k := 0; k < count; k++ {
		start := k * stride
		end := start + c.maxSize
		if end > len(text) {
			end = len(text)
		} else if k < count-1 {
			// Prefer a sentence boundary, but never trim past the start of
			// the next window.
			floor := start + stride
			if b := sentenceBoundary(text, floor, end); b > 0 {
				end = b
			}
		}

		windows = append(windows, Window{
			ID:          k,
			Text:        text[start:end],
			StartOffset: start,
			EndOffset:   end,
		})
	}

	return windows
}

// sentenceBoundary finds the rightmost sentence end in text[floor:end],
// returning the position just after it, or 0 when there is none. A plain
// space is accepted as a fallback so words are not cut in half.
func sentenceBoundary(text string, floor, end int) int {
	if floor >= end {
		return 0
	}
	region := text[floor:end]

	best := -1
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if i := strings.LastIndex(region, sep); i >= 0 {
			// Cut after the punctuation, before the following space.
			cut := i + len(sep)
			if sep != "\n" {
				cut = i + 1
			}
			if cut > best {
				best = cut
			}
		}
	}
	if best < 0 {
		if i := strings.LastIndex(region, " "); i > 0 {
			best = i
		}
	}
	if best <= 0 {
		return 0
	}
	return floor + best
}
