package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_note_store.go -package=mocks github.com/darshan-sc/lab-assistant/internal/storage NoteStore

import (
	"context"
	"database/sql"
	"fmt"
)

// NoteStore defines the interface for note storage operations.
type NoteStore interface {
	Create(ctx context.Context, note *NoteRecord) error
	GetByID(ctx context.Context, id, userID int64) (*NoteRecord, error)
	List(ctx context.Context, userID int64, limit, offset int) ([]*NoteRecord, error)
	Delete(ctx context.Context, id, userID int64) error
}

// NoteRepo provides methods for note operations.
// It implements the NoteStore interface.
type NoteRepo struct {
	db *sql.DB
}

// NewNoteRepo creates a new NoteRepo.
func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

const noteColumns = "id, user_id, project_id, paper_id, title, content, created_at"

// Create inserts a note and sets its assigned ID on the record.
func (r *NoteRepo) Create(ctx context.Context, note *NoteRecord) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO notes (user_id, project_id, paper_id, title, content) VALUES (?, ?, ?, ?, ?)",
		note.UserID, note.ProjectID, note.PaperID, note.Title, note.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get note ID: %w", err)
	}
	note.ID = id
	return nil
}

// GetByID gets a note owned by userID. Returns ErrNotFound if not found.
func (r *NoteRepo) GetByID(ctx context.Context, id, userID int64) (*NoteRecord, error) {
	var note NoteRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id = ? AND user_id = ?",
		id, userID,
	).Scan(&note.ID, &note.UserID, &note.ProjectID, &note.PaperID, &note.Title, &note.Content, &note.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}

	return &note, nil
}

// List returns the user's notes, newest first.
func (r *NoteRepo) List(ctx context.Context, userID int64, limit, offset int) ([]*NoteRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?",
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var notes []*NoteRecord
	for rows.Next() {
		var note NoteRecord
		if err := rows.Scan(&note.ID, &note.UserID, &note.ProjectID, &note.PaperID, &note.Title, &note.Content, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, &note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return notes, nil
}

// Delete removes a note owned by userID. Returns ErrNotFound if not found.
func (r *NoteRepo) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM notes WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
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
