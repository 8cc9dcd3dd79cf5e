package indexer

import (
	"strings"
	"testing"

	"github.com/darshan-sc/lab-assistant/internal/document"
)

// byteCodec treats every byte as one token, giving exact round-trips so char
// offsets can be asserted precisely.
type byteCodec struct{}

func (byteCodec) Encode(text string) []int {
	ids := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = int(text[i])
	}
	return ids
}

func (byteCodec) Decode(ids []int) string {
	b := make([]byte, len(ids))
	for i, id := range ids {
		b[i] = byte(id)
	}
	return string(b)
}

func (byteCodec) Count(text string) int { return len(text) }

func TestTokenChunker_ShortTextSingleChunk(t *testing.T) {
	chunker := NewTokenChunker(byteCodec{})
	text := "  A short document that fits in one chunk.  "

	candidates, err := chunker.Chunk(text, nil, 100, 10)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Chunk() returned %d candidates, want 1", len(candidates))
	}
	if candidates[0].Content != strings.TrimSpace(text) {
		t.Errorf("Content = %q, want trimmed input", candidates[0].Content)
	}
	if candidates[0].CharStart != 0 || candidates[0].CharEnd != len(text) {
		t.Errorf("char range = [%d, %d), want [0, %d)", candidates[0].CharStart, candidates[0].CharEnd, len(text))
	}
}

func TestTokenChunker_LongTextWindows(t *testing.T) {
	chunker := NewTokenChunker(byteCodec{})

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is a sentence about the experiment. ")
	}
	text := sb.String()

	const target, overlap = 120, 20
	candidates, err := chunker.Chunk(text, nil, target, overlap)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	// With a byte-per-token codec every window snaps to a 41-byte sentence
	// boundary, so the count is fully determined: one 82-byte first window,
	// then 102-byte windows advancing 82 bytes until the last one reaches
	// byte 1640.
	if len(candidates) != 20 {
		t.Fatalf("Chunk() returned %d candidates, want 20", len(candidates))
	}
	if last := candidates[len(candidates)-1]; last.CharEnd != len(text) {
		t.Errorf("last candidate ends at %d, want %d", last.CharEnd, len(text))
	}

	for i, candidate := range candidates {
		if strings.TrimSpace(candidate.Content) == "" {
			t.Fatalf("candidate %d is whitespace-only", i)
		}
		if candidate.CharStart >= candidate.CharEnd {
			t.Errorf("candidate %d char range [%d, %d) is empty", i, candidate.CharStart, candidate.CharEnd)
		}
		// Byte codec round-trips exactly, so the range must reproduce the
		// content modulo trimming.
		if got := strings.TrimSpace(text[candidate.CharStart:candidate.CharEnd]); got != candidate.Content {
			t.Errorf("candidate %d content does not match its char range", i)
		}
		// Small slack over the target is allowed from boundary snapping.
		if n := len(candidate.Content); n > target+10 {
			t.Errorf("candidate %d has %d tokens, exceeds target %d", i, n, target)
		}
		// All but the last window should end on a sentence boundary.
		if i < len(candidates)-1 && !strings.HasSuffix(candidate.Content, ".") {
			t.Errorf("candidate %d does not end at a sentence boundary: %q", i, candidate.Content)
		}
	}

	// Consecutive windows overlap by a positive amount near the overlap size,
	// and each window extends past its predecessor: a window wholly contained
	// in the previous one means the loop slid backwards instead of forward.
	for i := 1; i < len(candidates); i++ {
		overlapBytes := candidates[i-1].CharEnd - candidates[i].CharStart
		if overlapBytes <= 0 {
			t.Errorf("candidates %d and %d do not overlap (gap %d)", i-1, i, -overlapBytes)
		}
		if candidates[i].CharStart >= candidates[i-1].CharStart && candidates[i].CharEnd <= candidates[i-1].CharEnd {
			t.Errorf("candidate %d [%d, %d) is contained in candidate %d [%d, %d)",
				i, candidates[i].CharStart, candidates[i].CharEnd,
				i-1, candidates[i-1].CharStart, candidates[i-1].CharEnd)
		}
	}
}

func TestTokenChunker_Sections(t *testing.T) {
	chunker := NewTokenChunker(byteCodec{})
	text := "Intro sentence one. Intro sentence two. Methods sentence one. Methods sentence two."
	sections := []document.Section{
		{Title: "Introduction", Start: 0, End: 40},
		{Title: "Methods", Start: 40, End: len(text)},
	}

	candidates, err := chunker.Chunk(text, sections, 200, 20)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Chunk() returned %d candidates, want 2", len(candidates))
	}
	if candidates[0].SectionTitle != "Introduction" {
		t.Errorf("candidate 0 section = %q, want Introduction", candidates[0].SectionTitle)
	}
	if candidates[1].SectionTitle != "Methods" {
		t.Errorf("candidate 1 section = %q, want Methods", candidates[1].SectionTitle)
	}
	if candidates[1].CharStart != 40 {
		t.Errorf("candidate 1 CharStart = %d, want 40", candidates[1].CharStart)
	}
}

func TestTokenChunker_SkipsEmptySections(t *testing.T) {
	chunker := NewTokenChunker(byteCodec{})
	text := "Real content here.    "
	sections := []document.Section{
		{Title: "Content", Start: 0, End: 18},
		{Title: "Blank", Start: 18, End: len(text)},
		{Title: "Inverted", Start: 30, End: 10},
	}

	candidates, err := chunker.Chunk(text, sections, 100, 0)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Chunk() returned %d candidates, want 1: %+v", len(candidates), candidates)
	}
	if candidates[0].SectionTitle != "Content" {
		t.Errorf("candidate section = %q, want Content", candidates[0].SectionTitle)
	}
}

func TestTokenChunker_InvalidParams(t *testing.T) {
	chunker := NewTokenChunker(byteCodec{})

	if _, err := chunker.Chunk("text", nil, 0, 0); err == nil {
		t.Error("Chunk() with zero target should error")
	}
	if _, err := chunker.Chunk("text", nil, 10, 10); err == nil {
		t.Error("Chunk() with overlap == target should error")
	}
	if _, err := chunker.Chunk("text", nil, 10, -1); err == nil {
		t.Error("Chunk() with negative overlap should error")
	}
}

func TestSnapToBoundary(t *testing.T) {
	tests := []struct {
		name  string
		piece string
		want  string
	}{
		{
			name:  "snaps to last sentence end in back half",
			piece: "First sentence. Second sentence. Trailing fragme",
			want:  "First sentence. Second sentence. ",
		},
		{
			name:  "prefers sentence end over newline",
			piece: "Alpha beta gamma delta. Then\nmore",
			want:  "Alpha beta gamma delta. ",
		},
		{
			name:  "boundary in front half is ignored",
			piece: "Short. A much longer trailing run without any break",
			want:  "Short. A much longer trailing run without any break",
		},
		{
			name:  "no delimiter at all",
			piece: "oneverylongunbrokenstringoftext",
			want:  "oneverylongunbrokenstringoftext",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snapToBoundary(tt.piece); got != tt.want {
				t.Errorf("snapToBoundary(%q) = %q, want %q", tt.piece, got, tt.want)
			}
		})
	}
}
