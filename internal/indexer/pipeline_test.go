package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	llm_mocks "github.com/darshan-sc/lab-assistant/internal/llm/mocks"
	"github.com/darshan-sc/lab-assistant/internal/storage"
	storage_mocks "github.com/darshan-sc/lab-assistant/internal/storage/mocks"
	"github.com/darshan-sc/lab-assistant/internal/vectorstore"
	vectorstore_mocks "github.com/darshan-sc/lab-assistant/internal/vectorstore/mocks"

	"go.uber.org/mock/gomock"
)

func newTestPipeline(t *testing.T, ctrl *gomock.Controller) (*Pipeline, *storage_mocks.MockChunkStore, *storage_mocks.MockPaperStore, *llm_mocks.MockEmbedder, *vectorstore_mocks.MockVectorStore, *llm_mocks.MockGenerator) {
	t.Helper()

	chunkRepo := storage_mocks.NewMockChunkStore(ctrl)
	paperRepo := storage_mocks.NewMockPaperStore(ctrl)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vectorStore := vectorstore_mocks.NewMockVectorStore(ctrl)
	generator := llm_mocks.NewMockGenerator(ctrl)

	pipeline := NewPipeline(chunkRepo, paperRepo, embedder, vectorStore, "test-collection", byteCodec{}, generator, 200, 20)
	return pipeline, chunkRepo, paperRepo, embedder, vectorStore, generator
}

func TestPipeline_Index_MarkdownNote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pipeline, chunkRepo, _, embedder, vectorStore, _ := newTestPipeline(t, ctrl)

	// Markdown sources derive sections from headings; the generator mock has
	// no expectations, so any generation call fails the test.
	src := Source{
		Type:      storage.SourceNote,
		ID:        7,
		UserID:    1,
		ProjectID: 2,
		Title:     "Lab log",
		Text:      "# Observations\n\nThe sample turned blue after heating.\n",
		Markdown:  true,
	}

	chunkRepo.EXPECT().ListIDsBySource(gomock.Any(), storage.SourceNote, int64(7)).Return([]string{"stale-id"}, nil)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Len(1)).Return([][]float32{{0.1, 0.2}}, nil)

	var inserted []*storage.ChunkRecord
	chunkRepo.EXPECT().
		ReplaceForSource(gomock.Any(), storage.SourceNote, int64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ storage.SourceType, _ int64, chunks []*storage.ChunkRecord) error {
			inserted = chunks
			return nil
		})
	vectorStore.EXPECT().Delete(gomock.Any(), "test-collection", []string{"stale-id"}).Return(nil)
	vectorStore.EXPECT().
		Upsert(gomock.Any(), "test-collection", gomock.Len(1)).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
			if points[0].Meta["source_type"] != "note" {
				t.Errorf("point source_type = %v, want note", points[0].Meta["source_type"])
			}
			if points[0].ID == "" {
				t.Error("point ID is empty")
			}
			return nil
		})

	count, err := pipeline.Index(context.Background(), src)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Index() count = %d, want 1", count)
	}
	if len(inserted) != 1 {
		t.Fatalf("persisted %d chunks, want 1", len(inserted))
	}

	chunk := inserted[0]
	if chunk.SectionTitle != "Observations" {
		t.Errorf("SectionTitle = %q, want Observations", chunk.SectionTitle)
	}
	if chunk.ChunkIndex != 0 {
		t.Errorf("ChunkIndex = %d, want 0", chunk.ChunkIndex)
	}
	if chunk.DocTitle != "Lab log" || chunk.UserID != 1 || chunk.ProjectID != 2 {
		t.Errorf("provenance fields wrong: %+v", chunk)
	}
	if chunk.PageStart != 0 || chunk.PageEnd != 0 {
		t.Errorf("page range = [%d, %d], want unset for pageless source", chunk.PageStart, chunk.PageEnd)
	}
}

func TestPipeline_Index_NoContent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pipeline, _, _, _, _, _ := newTestPipeline(t, ctrl)

	_, err := pipeline.Index(context.Background(), Source{Type: storage.SourceNote, ID: 1, Text: "   \n"})
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("Index() error = %v, want ErrNoContent", err)
	}
}

func TestPipeline_Index_EmbedFailureLeavesStateUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pipeline, chunkRepo, _, embedder, _, _ := newTestPipeline(t, ctrl)

	src := Source{
		Type:     storage.SourceNote,
		ID:       3,
		UserID:   1,
		Text:     "# Notes\n\nSome content worth indexing.\n",
		Markdown: true,
	}

	chunkRepo.EXPECT().ListIDsBySource(gomock.Any(), storage.SourceNote, int64(3)).Return(nil, nil)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errors.New("embedding service down"))
	// No ReplaceForSource, Delete, or Upsert expectations: a failed embed must
	// not touch persisted state.

	if _, err := pipeline.Index(context.Background(), src); err == nil {
		t.Fatal("Index() should fail when embedding fails")
	}
}

func TestPipeline_IndexPaper_ExtractsMetadataConcurrently(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pipeline, chunkRepo, paperRepo, embedder, vectorStore, generator := newTestPipeline(t, ctrl)

	fullText := "Deep Retrieval Models\n\nAbstract text here. " + strings.Repeat("Body sentence. ", 10)
	paper := &storage.PaperRecord{
		ID:        11,
		UserID:    1,
		ProjectID: 4,
		FullText:  fullText,
	}

	// Section outline and metadata extraction both go to the generator;
	// dispatch on the user prompt since the calls race.
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, userPrompt string) (string, error) {
			if strings.HasPrefix(userPrompt, "Extract the metadata") {
				return `{"title": "Deep Retrieval Models", "abstract": "Abstract text here.", "authors": "A. Researcher", "year": 2023, "confidence": 0.9}`, nil
			}
			return `[{"title": "Introduction", "start": 0}]`, nil
		}).
		Times(2)

	paperRepo.EXPECT().
		UpdateMetadata(gomock.Any(), int64(11), "Deep Retrieval Models", "Abstract text here.", "A. Researcher", 2023).
		Return(nil)

	chunkRepo.EXPECT().ListIDsBySource(gomock.Any(), storage.SourcePaper, int64(11)).Return(nil, nil)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Len(1)).Return([][]float32{{0.5}}, nil)

	var inserted []*storage.ChunkRecord
	chunkRepo.EXPECT().
		ReplaceForSource(gomock.Any(), storage.SourcePaper, int64(11), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ storage.SourceType, _ int64, chunks []*storage.ChunkRecord) error {
			inserted = chunks
			return nil
		})
	vectorStore.EXPECT().Delete(gomock.Any(), "test-collection", gomock.Nil()).Return(nil)
	vectorStore.EXPECT().Upsert(gomock.Any(), "test-collection", gomock.Len(1)).Return(nil)

	count, err := pipeline.IndexPaper(context.Background(), paper)
	if err != nil {
		t.Fatalf("IndexPaper() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("IndexPaper() count = %d, want 1", count)
	}

	if paper.Title != "Deep Retrieval Models" || paper.Year != 2023 {
		t.Errorf("paper metadata not applied: title=%q year=%d", paper.Title, paper.Year)
	}
	if len(inserted) == 1 && inserted[0].DocTitle != "Deep Retrieval Models" {
		t.Errorf("chunk DocTitle = %q, want extracted title", inserted[0].DocTitle)
	}
}

func TestPipeline_IndexPaper_PageRanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pipeline, chunkRepo, _, embedder, vectorStore, generator := newTestPipeline(t, ctrl)

	paper := &storage.PaperRecord{
		ID:       5,
		UserID:   1,
		Title:    "Known Paper",
		Authors:  "Someone",
		Year:     2020,
		FullText: "First page text.\nSecond page text.",
		PagesJSON: `[{"page":1,"text":"First page text.","char_start":0},` +
			`{"page":2,"text":"Second page text.","char_start":17}]`,
	}

	// Metadata already present, so only the section outline is requested.
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(`[{"title": "Body", "start": 0}]`, nil)

	chunkRepo.EXPECT().ListIDsBySource(gomock.Any(), storage.SourcePaper, int64(5)).Return(nil, nil)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Len(1)).Return([][]float32{{0.5}}, nil)

	var inserted []*storage.ChunkRecord
	chunkRepo.EXPECT().
		ReplaceForSource(gomock.Any(), storage.SourcePaper, int64(5), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ storage.SourceType, _ int64, chunks []*storage.ChunkRecord) error {
			inserted = chunks
			return nil
		})
	vectorStore.EXPECT().Delete(gomock.Any(), "test-collection", gomock.Nil()).Return(nil)
	vectorStore.EXPECT().Upsert(gomock.Any(), "test-collection", gomock.Any()).Return(nil)

	if _, err := pipeline.IndexPaper(context.Background(), paper); err != nil {
		t.Fatalf("IndexPaper() error = %v", err)
	}
	if len(inserted) != 1 {
		t.Fatalf("persisted %d chunks, want 1", len(inserted))
	}
	if inserted[0].PageStart != 1 || inserted[0].PageEnd != 2 {
		t.Errorf("page range = [%d, %d], want [1, 2]", inserted[0].PageStart, inserted[0].PageEnd)
	}
}

func TestPipeline_Index_ReindexReplacesChunks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Real SQLite chunk repo so the generational swap is exercised end to
	// end; only the network edges are mocked.
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	chunkRepo := storage.NewChunkRepo(db)

	paperRepo := storage_mocks.NewMockPaperStore(ctrl)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vectorStore := vectorstore_mocks.NewMockVectorStore(ctrl)
	generator := llm_mocks.NewMockGenerator(ctrl)
	pipeline := NewPipeline(chunkRepo, paperRepo, embedder, vectorStore, "test-collection", byteCodec{}, generator, 200, 20)

	src := Source{
		Type:      storage.SourceNote,
		ID:        21,
		UserID:    1,
		ProjectID: 2,
		Title:     "Long note",
		Text:      "# Findings\n\n" + strings.Repeat("The assay produced a consistent signal. ", 30),
		Markdown:  true,
	}

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			vecs := make([][]float32, len(texts))
			for i := range vecs {
				vecs[i] = []float32{0.1}
			}
			return vecs, nil
		}).
		Times(2)

	var deleted [][]string
	vectorStore.EXPECT().
		Delete(gomock.Any(), "test-collection", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, ids []string) error {
			deleted = append(deleted, ids)
			return nil
		}).
		Times(2)
	vectorStore.EXPECT().Upsert(gomock.Any(), "test-collection", gomock.Any()).Return(nil).Times(2)

	ctx := context.Background()
	count1, err := pipeline.Index(ctx, src)
	if err != nil {
		t.Fatalf("first Index() error = %v", err)
	}
	if count1 < 2 {
		t.Fatalf("first Index() count = %d, want several chunks", count1)
	}
	firstIDs, err := chunkRepo.ListIDsBySource(ctx, storage.SourceNote, 21)
	if err != nil {
		t.Fatalf("ListIDsBySource() error = %v", err)
	}

	count2, err := pipeline.Index(ctx, src)
	if err != nil {
		t.Fatalf("second Index() error = %v", err)
	}
	if count2 != count1 {
		t.Errorf("second Index() count = %d, want %d as on the first pass", count2, count1)
	}

	secondIDs, err := chunkRepo.ListIDsBySource(ctx, storage.SourceNote, 21)
	if err != nil {
		t.Fatalf("ListIDsBySource() error = %v", err)
	}
	if len(secondIDs) != count2 {
		t.Errorf("repo holds %d chunks after reindex, want %d", len(secondIDs), count2)
	}
	first := make(map[string]bool, len(firstIDs))
	for _, id := range firstIDs {
		first[id] = true
	}
	for _, id := range secondIDs {
		if first[id] {
			t.Errorf("chunk %s from the first pass survived the reindex", id)
		}
	}

	// The second pass must ask the vector store to drop exactly the first
	// generation's points.
	if len(deleted) != 2 {
		t.Fatalf("vector Delete called %d times, want 2", len(deleted))
	}
	if !reflect.DeepEqual(deleted[1], firstIDs) {
		t.Errorf("second vector Delete got %v, want first-pass IDs %v", deleted[1], firstIDs)
	}
}

func TestPipeline_Remove(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pipeline, chunkRepo, _, _, vectorStore, _ := newTestPipeline(t, ctrl)

	chunkRepo.EXPECT().ListIDsBySource(gomock.Any(), storage.SourceExperiment, int64(9)).Return([]string{"a", "b"}, nil)
	chunkRepo.EXPECT().ReplaceForSource(gomock.Any(), storage.SourceExperiment, int64(9), nil).Return(nil)
	vectorStore.EXPECT().Delete(gomock.Any(), "test-collection", []string{"a", "b"}).Return(nil)

	if err := pipeline.Remove(context.Background(), storage.SourceExperiment, 9); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
}
