package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
	"github.com/darshan-sc/lab-assistant/internal/document"
	"github.com/darshan-sc/lab-assistant/internal/llm"
	"github.com/darshan-sc/lab-assistant/internal/storage"
	"github.com/darshan-sc/lab-assistant/internal/token"
	"github.com/darshan-sc/lab-assistant/internal/vectorstore"
)

// Pipeline orchestrates chunking, embedding, and persistence of source
// entities into SQLite chunk rows and vector points. Chunks for a source are
// wholly replaced on every index call.
type Pipeline struct {
	chunkRepo     storage.ChunkStore
	paperRepo     storage.PaperStore
	embedder      llm.Embedder
	vectorStore   vectorstore.VectorStore
	collection    string
	chunker       *TokenChunker
	sectionParser *document.SectionParser
	metadata      *llm.MetadataExtractor
	targetTokens  int
	overlapTokens int
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	chunkRepo storage.ChunkStore,
	paperRepo storage.PaperStore,
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	codec token.Codec,
	generator llm.Generator,
	targetTokens, overlapTokens int,
) *Pipeline {
	return &Pipeline{
		chunkRepo:     chunkRepo,
		paperRepo:     paperRepo,
		embedder:      embedder,
		vectorStore:   vectorStore,
		collection:    collection,
		chunker:       NewTokenChunker(codec),
		sectionParser: document.NewSectionParser(generator),
		metadata:      llm.NewMetadataExtractor(generator),
		targetTokens:  targetTokens,
		overlapTokens: overlapTokens,
	}
}

// Index chunks, embeds, and persists one source. Returns the number of chunks
// committed. All external calls (section parsing, embedding) complete before
// any persisted state changes, so a failed embed leaves the previous
// generation of chunks intact.
func (p *Pipeline) Index(ctx context.Context, src Source) (int, error) {
	if strings.TrimSpace(src.Text) == "" {
		return 0, ErrNoContent
	}

	var sections []document.Section
	if src.Markdown {
		sections = document.SectionsFromMarkdown(src.Text)
	} else {
		var fellBack bool
		sections, fellBack = p.sectionParser.ParseSections(ctx, src.Text)
		if fellBack {
			contextutil.LoggerFromContext(ctx).InfoContext(ctx, "section parse fell back to whole document",
				"source_type", src.Type, "source_id", src.ID)
		}
	}

	return p.index(ctx, src, sections)
}

// IndexPaper indexes a paper record, extracting document metadata first when
// the paper has none. Metadata extraction and section parsing have no data
// dependency, so they are issued concurrently and each awaited before use.
func (p *Pipeline) IndexPaper(ctx context.Context, paper *storage.PaperRecord) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(paper.FullText) == "" {
		return 0, ErrNoContent
	}

	var pages []document.Page
	if paper.PagesJSON != "" {
		if err := json.Unmarshal([]byte(paper.PagesJSON), &pages); err != nil {
			logger.WarnContext(ctx, "invalid page table on paper, indexing without page ranges",
				"paper_id", paper.ID, "error", err)
			pages = nil
		}
	}

	needMeta := paper.Authors == "" && paper.Year == 0

	var (
		wg       sync.WaitGroup
		sections []document.Section
		fellBack bool
		meta     llm.PaperMetadata
		metaErr  error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sections, fellBack = p.sectionParser.ParseSections(ctx, paper.FullText)
	}()

	if needMeta {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meta, metaErr = p.metadata.ExtractPaperMetadata(ctx, paper.FullText)
		}()
	}
	wg.Wait()

	if fellBack {
		logger.InfoContext(ctx, "section parse fell back to whole document", "paper_id", paper.ID)
	}

	if needMeta {
		if metaErr != nil {
			// Metadata is a nicety; indexing proceeds without it.
			logger.WarnContext(ctx, "metadata extraction failed", "paper_id", paper.ID, "error", metaErr)
		} else {
			if meta.Title != "" {
				paper.Title = meta.Title
			}
			paper.Abstract = meta.Abstract
			paper.Authors = meta.Authors
			paper.Year = meta.Year
			if err := p.paperRepo.UpdateMetadata(ctx, paper.ID, paper.Title, paper.Abstract, paper.Authors, paper.Year); err != nil {
				logger.WarnContext(ctx, "failed to persist paper metadata", "paper_id", paper.ID, "error", err)
			}
		}
	}

	src := Source{
		Type:      storage.SourcePaper,
		ID:        paper.ID,
		UserID:    paper.UserID,
		ProjectID: paper.ProjectID,
		Title:     paper.Title,
		Authors:   paper.Authors,
		Year:      paper.Year,
		Text:      paper.FullText,
		Pages:     pages,
	}
	return p.index(ctx, src, sections)
}

// IndexNote indexes a note record. Notes are markdown; sections come from
// headings rather than the generation service.
func (p *Pipeline) IndexNote(ctx context.Context, note *storage.NoteRecord) (int, error) {
	src := Source{
		Type:      storage.SourceNote,
		ID:        note.ID,
		UserID:    note.UserID,
		ProjectID: note.ProjectID,
		Title:     note.Title,
		Text:      note.Content,
		Markdown:  true,
	}
	return p.Index(ctx, src)
}

// IndexExperiment indexes an experiment record as a single document combining
// its protocol and results.
func (p *Pipeline) IndexExperiment(ctx context.Context, experiment *storage.ExperimentRecord) (int, error) {
	var parts []string
	if experiment.Protocol != "" {
		parts = append(parts, "Protocol:\n"+experiment.Protocol)
	}
	if experiment.Results != "" {
		parts = append(parts, "Results:\n"+experiment.Results)
	}

	src := Source{
		Type:      storage.SourceExperiment,
		ID:        experiment.ID,
		UserID:    experiment.UserID,
		ProjectID: experiment.ProjectID,
		Title:     experiment.Title,
		Text:      strings.Join(parts, "\n\n"),
		Markdown:  true,
	}
	return p.Index(ctx, src)
}

// Remove deletes all chunks and vector points for a source. Called when the
// source entity itself is deleted.
func (p *Pipeline) Remove(ctx context.Context, sourceType storage.SourceType, sourceID int64) error {
	ids, err := p.chunkRepo.ListIDsBySource(ctx, sourceType, sourceID)
	if err != nil {
		return fmt.Errorf("failed to list chunk IDs: %w", err)
	}
	if err := p.chunkRepo.ReplaceForSource(ctx, sourceType, sourceID, nil); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := p.vectorStore.Delete(ctx, p.collection, ids); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to delete vector points",
			"error", err, "count", len(ids))
	}
	return nil
}

// index runs the shared tail of every index operation: chunk, embed, replace.
func (p *Pipeline) index(ctx context.Context, src Source, sections []document.Section) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	candidates, err := p.chunker.Chunk(src.Text, sections, p.targetTokens, p.overlapTokens)
	if err != nil {
		return 0, fmt.Errorf("failed to chunk text: %w", err)
	}

	oldIDs, err := p.chunkRepo.ListIDsBySource(ctx, src.Type, src.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list old chunk IDs: %w", err)
	}

	if len(candidates) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "source_type", src.Type, "source_id", src.ID)
		if err := p.chunkRepo.ReplaceForSource(ctx, src.Type, src.ID, nil); err != nil {
			return 0, fmt.Errorf("failed to clear chunks: %w", err)
		}
		if err := p.vectorStore.Delete(ctx, p.collection, oldIDs); err != nil {
			logger.WarnContext(ctx, "failed to delete stale vector points", "error", err, "count", len(oldIDs))
		}
		return 0, nil
	}

	texts := make([]string, len(candidates))
	for i, candidate := range candidates {
		texts[i] = candidate.Content
	}

	// One batched call; if it fails nothing has been deleted or inserted.
	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(candidates) {
		return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(candidates), len(embeddings))
	}

	records := make([]*storage.ChunkRecord, len(candidates))
	points := make([]vectorstore.Point, len(candidates))
	for i, candidate := range candidates {
		chunkID := uuid.New().String()

		pageStart, pageEnd := 0, 0
		if len(src.Pages) > 0 {
			pageStart = document.PageForOffset(candidate.CharStart, src.Pages)
			// CharEnd is exclusive; the last byte of the chunk is at CharEnd-1.
			pageEnd = document.PageForOffset(candidate.CharEnd-1, src.Pages)
		}

		records[i] = &storage.ChunkRecord{
			ID:           chunkID,
			UserID:       src.UserID,
			ProjectID:    src.ProjectID,
			SourceType:   src.Type,
			SourceID:     src.ID,
			ChunkIndex:   i,
			SectionTitle: candidate.SectionTitle,
			CharStart:    candidate.CharStart,
			CharEnd:      candidate.CharEnd,
			PageStart:    pageStart,
			PageEnd:      pageEnd,
			DocTitle:     src.Title,
			DocAuthors:   src.Authors,
			DocYear:      src.Year,
			Content:      candidate.Content,
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: embeddings[i],
			Meta: map[string]any{
				"user_id":     src.UserID,
				"project_id":  src.ProjectID,
				"source_type": string(src.Type),
				"source_id":   src.ID,
				"chunk_index": i,
			},
		}
	}

	// Old and new rows swap inside one SQLite transaction; the relational
	// store is the source of truth for chunk visibility.
	if err := p.chunkRepo.ReplaceForSource(ctx, src.Type, src.ID, records); err != nil {
		return 0, fmt.Errorf("failed to replace chunks: %w", err)
	}

	if err := p.vectorStore.Delete(ctx, p.collection, oldIDs); err != nil {
		// Stale points reference deleted chunk rows and are filtered out at
		// read time, so this is not fatal.
		logger.WarnContext(ctx, "failed to delete stale vector points", "error", err, "count", len(oldIDs))
	}
	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		return 0, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	logger.InfoContext(ctx, "indexed source",
		"source_type", src.Type, "source_id", src.ID, "chunks", len(records))
	return len(records), nil
}
