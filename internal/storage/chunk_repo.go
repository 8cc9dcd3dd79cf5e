package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks github.com/darshan-sc/lab-assistant/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// ReplaceForSource atomically replaces all chunks for a source+type pair
	// with the given records (delete then insert in one transaction). Passing
	// no records clears the source's chunks.
	ReplaceForSource(ctx context.Context, sourceType SourceType, sourceID int64, chunks []*ChunkRecord) error
	// ListIDsBySource returns all chunk IDs for a source, ordered by chunk_index.
	ListIDsBySource(ctx context.Context, sourceType SourceType, sourceID int64) ([]string, error)
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// GetByIDs gets chunks by ID, preserving input order. IDs with no matching
	// row are silently skipped.
	GetByIDs(ctx context.Context, ids []string) ([]*ChunkRecord, error)
	// CountBySource returns the number of chunks stored for a source.
	CountBySource(ctx context.Context, sourceType SourceType, sourceID int64) (int, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

const chunkColumns = "id, user_id, project_id, source_type, source_id, chunk_index, section_title, char_start, char_end, page_start, page_end, doc_title, doc_authors, doc_year, content"

// ReplaceForSource deletes all chunks for the source and inserts the
// replacements inside a single transaction, so readers never see a mix of old
// and new generations.
func (r *ChunkRepo) ReplaceForSource(ctx context.Context, sourceType SourceType, sourceID int64, chunks []*ChunkRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE source_type = ? AND source_id = ?",
		string(sourceType), sourceID,
	); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks ("+chunkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.UserID, chunk.ProjectID, string(chunk.SourceType), chunk.SourceID,
			chunk.ChunkIndex, chunk.SectionTitle, chunk.CharStart, chunk.CharEnd,
			chunk.PageStart, chunk.PageEnd, chunk.DocTitle, chunk.DocAuthors, chunk.DocYear,
			chunk.Content,
		); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunk replace: %w", err)
	}
	return nil
}

// ListIDsBySource returns all chunk IDs for a source, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
// Used to get vector point IDs for deletion before re-indexing.
func (r *ChunkRepo) ListIDsBySource(ctx context.Context, sourceType SourceType, sourceID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE source_type = ? AND source_id = ? ORDER BY chunk_index",
		string(sourceType), sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	var chunk ChunkRecord
	var sourceType string
	err := r.db.QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE id = ?",
		id,
	).Scan(
		&chunk.ID, &chunk.UserID, &chunk.ProjectID, &sourceType, &chunk.SourceID,
		&chunk.ChunkIndex, &chunk.SectionTitle, &chunk.CharStart, &chunk.CharEnd,
		&chunk.PageStart, &chunk.PageEnd, &chunk.DocTitle, &chunk.DocAuthors, &chunk.DocYear,
		&chunk.Content,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}

	chunk.SourceType = SourceType(sourceType)
	return &chunk, nil
}

// GetByIDs gets chunks by ID, preserving the input order. IDs with no matching
// row are skipped; dangling vector points are filtered out here rather than
// failing the whole retrieval.
func (r *ChunkRepo) GetByIDs(ctx context.Context, ids []string) ([]*ChunkRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	byID := make(map[string]*ChunkRecord, len(ids))
	for rows.Next() {
		var chunk ChunkRecord
		var sourceType string
		if err := rows.Scan(
			&chunk.ID, &chunk.UserID, &chunk.ProjectID, &sourceType, &chunk.SourceID,
			&chunk.ChunkIndex, &chunk.SectionTitle, &chunk.CharStart, &chunk.CharEnd,
			&chunk.PageStart, &chunk.PageEnd, &chunk.DocTitle, &chunk.DocAuthors, &chunk.DocYear,
			&chunk.Content,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.SourceType = SourceType(sourceType)
		byID[chunk.ID] = &chunk
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	result := make([]*ChunkRecord, 0, len(ids))
	for _, id := range ids {
		if chunk, ok := byID[id]; ok {
			result = append(result, chunk)
		}
	}
	return result, nil
}

// CountBySource returns the number of chunks stored for a source.
func (r *ChunkRepo) CountBySource(ctx context.Context, sourceType SourceType, sourceID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE source_type = ? AND source_id = ?",
		string(sourceType), sourceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
