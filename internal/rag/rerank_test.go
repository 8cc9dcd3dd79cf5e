package rag

import (
	"context"
	"errors"
	"testing"

	llm_mocks "github.com/darshan-sc/lab-assistant/internal/llm/mocks"
	"github.com/darshan-sc/lab-assistant/internal/storage"

	"go.uber.org/mock/gomock"
)

func rerankCandidates(ids ...string) []ScoredChunk {
	scored := make([]ScoredChunk, len(ids))
	for i, id := range ids {
		scored[i] = ScoredChunk{
			Chunk: &storage.ChunkRecord{ID: id, Content: "passage " + id},
			Score: 1.0 - float64(i)*0.1,
		}
	}
	return scored
}

func TestReranker_ReordersByJudgedRelevance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := llm_mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(`[{"index": 0, "score": 2}, {"index": 1, "score": 9}, {"index": 2, "score": 5}]`, nil)

	reranked := NewReranker(generator).Rerank(context.Background(), "q", rerankCandidates("a", "b", "c"))

	wantOrder := []string{"b", "c", "a"}
	for i, want := range wantOrder {
		if reranked[i].Chunk.ID != want {
			t.Errorf("position %d = %s, want %s", i, reranked[i].Chunk.ID, want)
		}
	}
	if reranked[0].Score != 9 {
		t.Errorf("top score = %v, want judged 9", reranked[0].Score)
	}
}

func TestReranker_FallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		generateErr error
	}{
		{name: "generation error", generateErr: errors.New("timeout")},
		{name: "no JSON in response", response: "I cannot rank these."},
		{name: "index out of range", response: `[{"index": 7, "score": 9}]`},
		{name: "empty array", response: `[]`},
		{name: "not an array of objects", response: `["a", "b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			generator := llm_mocks.NewMockGenerator(ctrl)
			generator.EXPECT().
				Generate(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(tt.response, tt.generateErr)

			candidates := rerankCandidates("a", "b", "c")
			reranked := NewReranker(generator).Rerank(context.Background(), "q", candidates)

			for i := range candidates {
				if reranked[i].Chunk.ID != candidates[i].Chunk.ID {
					t.Fatalf("fallback changed order at %d: got %s, want %s", i, reranked[i].Chunk.ID, candidates[i].Chunk.ID)
				}
			}
		})
	}
}

func TestReranker_SingleCandidateSkipsGeneration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No Generate expectation: one candidate needs no judging.
	reranked := NewReranker(llm_mocks.NewMockGenerator(ctrl)).Rerank(context.Background(), "q", rerankCandidates("a"))
	if len(reranked) != 1 || reranked[0].Chunk.ID != "a" {
		t.Errorf("Rerank() = %+v, want the single candidate unchanged", reranked)
	}
}

func TestParseRerankScores(t *testing.T) {
	scores, ok := parseRerankScores("Sure:\n[{\"index\": 1, \"score\": 7}]", 3)
	if !ok {
		t.Fatal("parseRerankScores() ok = false")
	}
	want := []float64{0, 7, 0}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
}
