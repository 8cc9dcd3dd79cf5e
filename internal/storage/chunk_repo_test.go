package storage

import (
	"context"
	"errors"
	"testing"
)

func setupTestDB(t *testing.T) *ChunkRepo {
	t.Helper()

	db, err := New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewChunkRepo(db)
}

func testChunk(id string, index int) *ChunkRecord {
	return &ChunkRecord{
		ID:           id,
		UserID:       1,
		ProjectID:    2,
		SourceType:   SourcePaper,
		SourceID:     10,
		ChunkIndex:   index,
		SectionTitle: "Methods",
		CharStart:    index * 100,
		CharEnd:      index*100 + 100,
		PageStart:    1,
		PageEnd:      2,
		DocTitle:     "Test Paper",
		DocAuthors:   "A. Researcher",
		DocYear:      2023,
		Content:      "chunk content",
	}
}

func TestChunkRepo_ReplaceForSource(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := []*ChunkRecord{testChunk("gen1-0", 0), testChunk("gen1-1", 1), testChunk("gen1-2", 2)}
	if err := repo.ReplaceForSource(ctx, SourcePaper, 10, first); err != nil {
		t.Fatalf("ReplaceForSource() error = %v", err)
	}

	ids, err := repo.ListIDsBySource(ctx, SourcePaper, 10)
	if err != nil {
		t.Fatalf("ListIDsBySource() error = %v", err)
	}
	if len(ids) != 3 || ids[0] != "gen1-0" || ids[2] != "gen1-2" {
		t.Errorf("ListIDsBySource() = %v, want gen1 IDs in chunk order", ids)
	}

	// Re-indexing replaces the whole generation, not just overlapping rows.
	second := []*ChunkRecord{testChunk("gen2-0", 0), testChunk("gen2-1", 1)}
	if err := repo.ReplaceForSource(ctx, SourcePaper, 10, second); err != nil {
		t.Fatalf("ReplaceForSource() second error = %v", err)
	}

	ids, err = repo.ListIDsBySource(ctx, SourcePaper, 10)
	if err != nil {
		t.Fatalf("ListIDsBySource() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "gen2-0" || ids[1] != "gen2-1" {
		t.Errorf("ListIDsBySource() after replace = %v, want only gen2 IDs", ids)
	}

	if _, err := repo.GetByID(ctx, "gen1-0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(gen1-0) error = %v, want ErrNotFound", err)
	}
}

func TestChunkRepo_ReplaceForSource_EmptyClears(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	if err := repo.ReplaceForSource(ctx, SourceNote, 5, []*ChunkRecord{
		{ID: "n-0", UserID: 1, SourceType: SourceNote, SourceID: 5, Content: "text"},
	}); err != nil {
		t.Fatalf("ReplaceForSource() error = %v", err)
	}

	if err := repo.ReplaceForSource(ctx, SourceNote, 5, nil); err != nil {
		t.Fatalf("ReplaceForSource(nil) error = %v", err)
	}

	count, err := repo.CountBySource(ctx, SourceNote, 5)
	if err != nil {
		t.Fatalf("CountBySource() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountBySource() = %d, want 0", count)
	}
}

func TestChunkRepo_ReplaceForSource_ScopedToSource(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	paperChunk := testChunk("p-0", 0)
	noteChunk := testChunk("n-0", 0)
	noteChunk.SourceType = SourceNote
	noteChunk.SourceID = 10 // same ID, different type

	if err := repo.ReplaceForSource(ctx, SourcePaper, 10, []*ChunkRecord{paperChunk}); err != nil {
		t.Fatalf("ReplaceForSource(paper) error = %v", err)
	}
	if err := repo.ReplaceForSource(ctx, SourceNote, 10, []*ChunkRecord{noteChunk}); err != nil {
		t.Fatalf("ReplaceForSource(note) error = %v", err)
	}

	// Replacing the note must not touch the paper's chunks.
	if err := repo.ReplaceForSource(ctx, SourceNote, 10, nil); err != nil {
		t.Fatalf("ReplaceForSource(note, nil) error = %v", err)
	}

	count, err := repo.CountBySource(ctx, SourcePaper, 10)
	if err != nil {
		t.Fatalf("CountBySource() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountBySource(paper) = %d, want 1", count)
	}
}

func TestChunkRepo_GetByID(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	want := testChunk("c-0", 0)
	if err := repo.ReplaceForSource(ctx, SourcePaper, 10, []*ChunkRecord{want}); err != nil {
		t.Fatalf("ReplaceForSource() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "c-0")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if *got != *want {
		t.Errorf("GetByID() = %+v, want %+v", got, want)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestChunkRepo_GetByIDs(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	chunks := []*ChunkRecord{testChunk("c-0", 0), testChunk("c-1", 1), testChunk("c-2", 2)}
	if err := repo.ReplaceForSource(ctx, SourcePaper, 10, chunks); err != nil {
		t.Fatalf("ReplaceForSource() error = %v", err)
	}

	// Order follows the input IDs, not storage order; missing IDs are skipped.
	got, err := repo.GetByIDs(ctx, []string{"c-2", "missing", "c-0"})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByIDs() returned %d chunks, want 2", len(got))
	}
	if got[0].ID != "c-2" || got[1].ID != "c-0" {
		t.Errorf("GetByIDs() order = [%s, %s], want [c-2, c-0]", got[0].ID, got[1].ID)
	}

	empty, err := repo.GetByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("GetByIDs(nil) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("GetByIDs(nil) = %v, want empty", empty)
	}
}

func TestChunkRepo_CountBySource(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	count, err := repo.CountBySource(ctx, SourcePaper, 99)
	if err != nil {
		t.Fatalf("CountBySource() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountBySource() on empty table = %d, want 0", count)
	}

	chunks := []*ChunkRecord{testChunk("c-0", 0), testChunk("c-1", 1)}
	if err := repo.ReplaceForSource(ctx, SourcePaper, 10, chunks); err != nil {
		t.Fatalf("ReplaceForSource() error = %v", err)
	}

	count, err = repo.CountBySource(ctx, SourcePaper, 10)
	if err != nil {
		t.Fatalf("CountBySource() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountBySource() = %d, want 2", count)
	}
}
