package indexer

import (
	"fmt"
	"strings"

	"github.com/darshan-sc/lab-assistant/internal/document"
	"github.com/darshan-sc/lab-assistant/internal/token"
)

// boundaryDelimiters are tried in order when snapping a chunk boundary back to
// the last sentence or paragraph break in the back half of the window.
var boundaryDelimiters = []string{". ", "? ", "! ", "\n\n", "\n"}

// TokenChunker splits section text into token-bounded, sentence-snapped
// chunks. It never calls a network service; the only failure mode is
// malformed caller input.
type TokenChunker struct {
	codec token.Codec
}

// NewTokenChunker creates a chunker over the given token codec.
func NewTokenChunker(codec token.Codec) *TokenChunker {
	return &TokenChunker{codec: codec}
}

// Chunk splits text into candidates of at most targetTokens tokens (plus small
// slack from boundary snapping), with successive windows overlapping by
// roughly overlapTokens. When sections is empty the whole text is treated as
// one untitled section. Empty or whitespace-only sections and chunks are
// dropped. Character offsets are byte offsets into text; because the codec's
// decode may normalize whitespace, offsets near window boundaries can drift by
// a few bytes and callers must not assume exact round-trips.
func (c *TokenChunker) Chunk(text string, sections []document.Section, targetTokens, overlapTokens int) ([]Candidate, error) {
	if targetTokens <= 0 {
		return nil, fmt.Errorf("target tokens must be positive, got %d", targetTokens)
	}
	if overlapTokens < 0 || overlapTokens >= targetTokens {
		return nil, fmt.Errorf("overlap tokens must be in [0, target), got %d", overlapTokens)
	}

	if len(sections) == 0 {
		sections = []document.Section{{Title: "", Start: 0, End: len(text)}}
	}

	var candidates []Candidate
	for _, section := range sections {
		start, end := section.Start, section.End
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		if start >= end {
			continue
		}

		segment := text[start:end]
		if strings.TrimSpace(segment) == "" {
			continue
		}

		candidates = append(candidates, c.chunkSection(segment, section.Title, start, targetTokens, overlapTokens)...)
	}

	return candidates, nil
}

// chunkSection slides a token window over one section's text.
func (c *TokenChunker) chunkSection(segment, title string, base, targetTokens, overlapTokens int) []Candidate {
	ids := c.codec.Encode(segment)

	if len(ids) <= targetTokens {
		return []Candidate{{
			Content:      strings.TrimSpace(segment),
			SectionTitle: title,
			CharStart:    base,
			CharEnd:      base + len(segment),
		}}
	}

	var candidates []Candidate
	windowStart := 0
	for windowStart < len(ids) {
		windowEnd := windowStart + targetTokens
		if windowEnd > len(ids) {
			windowEnd = len(ids)
		}

		piece := c.codec.Decode(ids[windowStart:windowEnd])
		if windowEnd < len(ids) {
			piece = snapToBoundary(piece)
		}

		if content := strings.TrimSpace(piece); content != "" {
			charStart := base + len(c.codec.Decode(ids[:windowStart]))
			candidates = append(candidates, Candidate{
				Content:      content,
				SectionTitle: title,
				CharStart:    charStart,
				CharEnd:      charStart + len(piece),
			})
		}

		// The window that reaches the end of the token stream is the last one;
		// sliding back by the overlap from here would only re-emit shrinking
		// tails of it.
		if windowEnd == len(ids) {
			break
		}

		// Advance by the tokens actually emitted minus the overlap, floored at
		// one token so a pathological decode mismatch cannot stall the loop.
		advance := c.codec.Count(piece) - overlapTokens
		if advance < 1 {
			advance = 1
		}
		windowStart += advance
	}

	return candidates
}

// snapToBoundary cuts piece back to the last sentence or paragraph delimiter
// found in its back half, so chunks do not end mid-sentence. Delimiters are
// tried in priority order; the piece is returned unchanged when none lands in
// the back half.
func snapToBoundary(piece string) string {
	for _, delim := range boundaryDelimiters {
		idx := strings.LastIndex(piece, delim)
		if idx < 0 {
			continue
		}
		cut := idx + len(delim)
		if cut > len(piece)/2 {
			return piece[:cut]
		}
	}
	return piece
}
