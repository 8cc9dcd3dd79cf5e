package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ExperimentStore defines the interface for experiment storage operations.
type ExperimentStore interface {
	Create(ctx context.Context, experiment *ExperimentRecord) error
	GetByID(ctx context.Context, id, userID int64) (*ExperimentRecord, error)
	Delete(ctx context.Context, id, userID int64) error
}

// ExperimentRepo provides methods for experiment operations.
// It implements the ExperimentStore interface.
type ExperimentRepo struct {
	db *sql.DB
}

// NewExperimentRepo creates a new ExperimentRepo.
func NewExperimentRepo(db *sql.DB) *ExperimentRepo {
	return &ExperimentRepo{db: db}
}

// Create inserts an experiment and sets its assigned ID on the record.
func (r *ExperimentRepo) Create(ctx context.Context, experiment *ExperimentRecord) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO experiments (user_id, project_id, title, protocol, results) VALUES (?, ?, ?, ?, ?)",
		experiment.UserID, experiment.ProjectID, experiment.Title, experiment.Protocol, experiment.Results,
	)
	if err != nil {
		return fmt.Errorf("failed to insert experiment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get experiment ID: %w", err)
	}
	experiment.ID = id
	return nil
}

// GetByID gets an experiment owned by userID. Returns ErrNotFound if not found.
func (r *ExperimentRepo) GetByID(ctx context.Context, id, userID int64) (*ExperimentRecord, error) {
	var experiment ExperimentRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, project_id, title, protocol, results, created_at FROM experiments WHERE id = ? AND user_id = ?",
		id, userID,
	).Scan(&experiment.ID, &experiment.UserID, &experiment.ProjectID, &experiment.Title, &experiment.Protocol, &experiment.Results, &experiment.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query experiment: %w", err)
	}

	return &experiment, nil
}

// Delete removes an experiment owned by userID. Returns ErrNotFound if not found.
func (r *ExperimentRepo) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM experiments WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
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
