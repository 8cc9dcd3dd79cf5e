package rag

import (
	"context"
	"fmt"
	"sort"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
	"github.com/darshan-sc/lab-assistant/internal/llm"
	"github.com/darshan-sc/lab-assistant/internal/storage"
	"github.com/darshan-sc/lab-assistant/internal/vectorstore"
)

// ScoredChunk pairs a chunk row with its retrieval score. After reranking the
// score is the reranker's relevance; otherwise it is cosine similarity.
type ScoredChunk struct {
	Chunk *storage.ChunkRecord
	Score float64
}

// Retriever runs the two-stage retrieval: vector search over the scoped
// collection, then an optional relevance rerank by the generation service.
type Retriever struct {
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	chunkRepo   storage.ChunkStore
	reranker    *Reranker
	collection  string
	initialK    int
	finalK      int
}

// NewRetriever creates a retriever. Passing a nil reranker disables the
// second stage entirely.
func NewRetriever(
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	chunkRepo storage.ChunkStore,
	reranker *Reranker,
	collection string,
	initialK, finalK int,
) *Retriever {
	return &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		chunkRepo:   chunkRepo,
		reranker:    reranker,
		collection:  collection,
		initialK:    initialK,
		finalK:      finalK,
	}
}

// Retrieve returns the best chunks for the request, best-first, at most the
// final result count. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, req AskRequest) ([]ScoredChunk, error) {
	finalK := r.finalK
	if req.K > 0 {
		finalK = req.K
	}

	vectors, err := r.embedder.EmbedTexts(ctx, []string{req.Question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}

	searchK := finalK
	if r.reranker != nil && r.initialK > finalK {
		searchK = r.initialK
	}

	filters := map[string]any{"user_id": req.UserID}
	if req.ProjectID != 0 {
		filters["project_id"] = req.ProjectID
	}
	if req.SourceType != "" {
		filters["source_type"] = req.SourceType
	}
	if req.SourceID != 0 {
		filters["source_id"] = req.SourceID
	}

	results, err := r.vectorStore.Search(ctx, r.collection, vectors[0], searchK, filters)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, len(results))
	scoreByID := make(map[string]float64, len(results))
	for i, result := range results {
		ids[i] = result.PointID
		scoreByID[result.PointID] = float64(result.Score)
	}

	// Points whose chunk rows were replaced since upsert come back missing
	// here; they are simply dropped.
	chunks, err := r.chunkRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	if len(chunks) < len(ids) {
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "dropped stale vector points",
			"dropped", len(ids)-len(chunks))
	}

	scored := make([]ScoredChunk, len(chunks))
	for i, chunk := range chunks {
		scored[i] = ScoredChunk{Chunk: chunk, Score: scoreByID[chunk.ID]}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	if r.reranker != nil && len(scored) > finalK {
		scored = r.reranker.Rerank(ctx, req.Question, scored)
	}

	if len(scored) > finalK {
		scored = scored[:finalK]
	}
	return scored, nil
}
