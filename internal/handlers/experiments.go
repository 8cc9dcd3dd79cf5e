package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
	"github.com/darshan-sc/lab-assistant/internal/indexer"
	"github.com/darshan-sc/lab-assistant/internal/storage"
)

// ExperimentHandler handles HTTP requests for experiments.
type ExperimentHandler struct {
	experimentRepo storage.ExperimentStore
	pipeline       *indexer.Pipeline
}

// NewExperimentHandler creates a new ExperimentHandler.
func NewExperimentHandler(experimentRepo storage.ExperimentStore, pipeline *indexer.Pipeline) *ExperimentHandler {
	return &ExperimentHandler{experimentRepo: experimentRepo, pipeline: pipeline}
}

// CreateExperimentRequest represents the HTTP request payload for experiment
// creation.
type CreateExperimentRequest struct {
	UserID    int64  `json:"user_id"`
	ProjectID int64  `json:"project_id"`
	Title     string `json:"title"`
	Protocol  string `json:"protocol,omitempty"`
	Results   string `json:"results,omitempty"`
}

// ExperimentResponse represents an experiment in HTTP responses.
type ExperimentResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	ProjectID int64  `json:"project_id"`
	Title     string `json:"title"`
	Protocol  string `json:"protocol,omitempty"`
	Results   string `json:"results,omitempty"`
	Chunks    int    `json:"chunks"`
	CreatedAt string `json:"created_at"`
}

// Create persists and indexes an experiment.
func (h *ExperimentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateExperimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Protocol == "" && req.Results == "" {
		writeError(ctx, w, http.StatusBadRequest, "protocol or results is required")
		return
	}

	experiment := &storage.ExperimentRecord{
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Protocol:  req.Protocol,
		Results:   req.Results,
	}
	if err := h.experimentRepo.Create(ctx, experiment); err != nil {
		logger.ErrorContext(ctx, "failed to create experiment", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to create experiment")
		return
	}

	chunks, err := h.pipeline.IndexExperiment(ctx, experiment)
	if err != nil {
		writeOperationError(ctx, w, err, "Failed to index experiment")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, experimentToResponse(experiment, chunks))
}

// Get returns a single experiment.
func (h *ExperimentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := userIDFromQuery(ctx, w, r)
	if !ok {
		return
	}
	id, ok := idFromURL(ctx, w, r)
	if !ok {
		return
	}

	experiment, err := h.experimentRepo.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "Experiment not found")
			return
		}
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to get experiment", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to get experiment")
		return
	}
	writeJSON(ctx, w, http.StatusOK, experimentToResponse(experiment, 0))
}

// Delete removes an experiment along with its chunks and vector points.
func (h *ExperimentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := userIDFromQuery(ctx, w, r)
	if !ok {
		return
	}
	id, ok := idFromURL(ctx, w, r)
	if !ok {
		return
	}

	if err := h.experimentRepo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "Experiment not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete experiment", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to delete experiment")
		return
	}

	if err := h.pipeline.Remove(ctx, storage.SourceExperiment, id); err != nil {
		logger.ErrorContext(ctx, "failed to remove experiment chunks", "experiment_id", id, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func experimentToResponse(experiment *storage.ExperimentRecord, chunks int) ExperimentResponse {
	return ExperimentResponse{
		ID:        experiment.ID,
		UserID:    experiment.UserID,
		ProjectID: experiment.ProjectID,
		Title:     experiment.Title,
		Protocol:  experiment.Protocol,
		Results:   experiment.Results,
		Chunks:    chunks,
		CreatedAt: experiment.CreatedAt.UTC().Format(time.RFC3339),
	}
}
