package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
	"github.com/darshan-sc/lab-assistant/internal/llm"
)

const rerankSystemPrompt = `You are a relevance judge. Given a question and a numbered list of text passages, score each passage by how useful it is for answering the question.

Respond with ONLY a JSON array, one object per passage, like:
[{"index": 0, "score": 9}, {"index": 1, "score": 2}]

"index" is the passage number as given. "score" is a relevance score from 1 (irrelevant) to 10 (directly answers the question). Score every passage. No commentary.`

// rerankPassageBytes bounds each passage sent to the relevance judge.
const rerankPassageBytes = 1500

// Reranker reorders vector-search candidates by asking the generation service
// to score relevance. Any failure falls back to the incoming order; retrieval
// never fails because reranking did.
type Reranker struct {
	generator llm.Generator
}

// NewReranker creates a reranker backed by the given generator.
func NewReranker(generator llm.Generator) *Reranker {
	return &Reranker{generator: generator}
}

// Rerank returns candidates reordered best-first by judged relevance. On any
// error or malformed response the input order is returned unchanged.
func (r *Reranker) Rerank(ctx context.Context, question string, candidates []ScoredChunk) []ScoredChunk {
	logger := contextutil.LoggerFromContext(ctx)

	if len(candidates) < 2 {
		return candidates
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nPassages:\n", question)
	for i, candidate := range candidates {
		content := candidate.Chunk.Content
		if len(content) > rerankPassageBytes {
			content = content[:rerankPassageBytes]
		}
		fmt.Fprintf(&sb, "[%d] %s\n\n", i, content)
	}

	response, err := r.generator.Generate(ctx, rerankSystemPrompt, sb.String())
	if err != nil {
		logger.WarnContext(ctx, "rerank call failed, keeping vector order", "error", err)
		return candidates
	}

	scores, ok := parseRerankScores(response, len(candidates))
	if !ok {
		logger.WarnContext(ctx, "unparseable rerank response, keeping vector order",
			"response_length", len(response))
		return candidates
	}

	reranked := make([]ScoredChunk, len(candidates))
	for i, candidate := range candidates {
		reranked[i] = ScoredChunk{Chunk: candidate.Chunk, Score: scores[i]}
	}
	// Ties keep the vector order, which the caller already made
	// deterministic.
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked
}

// parseRerankScores extracts a per-candidate score slice from a judge
// response. Indices out of [0, n) make the whole response invalid; unscored
// candidates default to zero.
func parseRerankScores(response string, n int) ([]float64, bool) {
	block, ok := llm.ExtractJSONBlock(response, '[', ']')
	if !ok {
		return nil, false
	}

	var entries []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(block), &entries); err != nil {
		return nil, false
	}
	if len(entries) == 0 {
		return nil, false
	}

	scores := make([]float64, n)
	for _, entry := range entries {
		if entry.Index < 0 || entry.Index >= n {
			return nil, false
		}
		scores[entry.Index] = entry.Score
	}
	return scores, true
}
