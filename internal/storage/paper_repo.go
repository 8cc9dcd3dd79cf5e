package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_paper_store.go -package=mocks github.com/darshan-sc/lab-assistant/internal/storage PaperStore

import (
	"context"
	"database/sql"
	"fmt"
)

// PaperStore defines the interface for paper storage operations.
type PaperStore interface {
	// Create inserts a paper and returns it with its assigned ID.
	Create(ctx context.Context, paper *PaperRecord) error
	// GetByID gets a paper owned by userID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id, userID int64) (*PaperRecord, error)
	// List returns the user's papers, newest first.
	List(ctx context.Context, userID int64, limit, offset int) ([]*PaperRecord, error)
	// UpdateMetadata sets the extracted document metadata on a paper.
	UpdateMetadata(ctx context.Context, id int64, title, abstract, authors string, year int) error
	// Delete removes a paper owned by userID. Returns ErrNotFound if not found.
	Delete(ctx context.Context, id, userID int64) error
}

// PaperRepo provides methods for paper operations.
// It implements the PaperStore interface.
type PaperRepo struct {
	db *sql.DB
}

// NewPaperRepo creates a new PaperRepo.
func NewPaperRepo(db *sql.DB) *PaperRepo {
	return &PaperRepo{db: db}
}

const paperColumns = "id, user_id, project_id, title, abstract, authors, year, full_text, pages_json, created_at"

// Create inserts a paper and sets its assigned ID on the record.
func (r *PaperRepo) Create(ctx context.Context, paper *PaperRecord) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO papers (user_id, project_id, title, abstract, authors, year, full_text, pages_json) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		paper.UserID, paper.ProjectID, paper.Title, paper.Abstract, paper.Authors, paper.Year, paper.FullText, paper.PagesJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert paper: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get paper ID: %w", err)
	}
	paper.ID = id
	return nil
}

// GetByID gets a paper owned by userID. Returns ErrNotFound if not found.
func (r *PaperRepo) GetByID(ctx context.Context, id, userID int64) (*PaperRecord, error) {
	var paper PaperRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT "+paperColumns+" FROM papers WHERE id = ? AND user_id = ?",
		id, userID,
	).Scan(
		&paper.ID, &paper.UserID, &paper.ProjectID, &paper.Title, &paper.Abstract,
		&paper.Authors, &paper.Year, &paper.FullText, &paper.PagesJSON, &paper.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query paper: %w", err)
	}

	return &paper, nil
}

// List returns the user's papers, newest first.
func (r *PaperRepo) List(ctx context.Context, userID int64, limit, offset int) ([]*PaperRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+paperColumns+" FROM papers WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?",
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query papers: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var papers []*PaperRecord
	for rows.Next() {
		var paper PaperRecord
		if err := rows.Scan(
			&paper.ID, &paper.UserID, &paper.ProjectID, &paper.Title, &paper.Abstract,
			&paper.Authors, &paper.Year, &paper.FullText, &paper.PagesJSON, &paper.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, &paper)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return papers, nil
}

// UpdateMetadata sets the extracted document metadata on a paper.
func (r *PaperRepo) UpdateMetadata(ctx context.Context, id int64, title, abstract, authors string, year int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE papers SET title = ?, abstract = ?, authors = ?, year = ? WHERE id = ?",
		title, abstract, authors, year, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update paper metadata: %w", err)
	}
	return nil
}

// Delete removes a paper owned by userID. Returns ErrNotFound if not found.
func (r *PaperRepo) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM papers WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete paper: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
