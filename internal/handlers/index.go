package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
	"github.com/darshan-sc/lab-assistant/internal/indexer"
	"github.com/darshan-sc/lab-assistant/internal/storage"
)

// IndexHandler handles HTTP requests to reindex an existing source. Chunks
// for the source are replaced wholesale, so reindexing after a tuning change
// never leaves stale chunks behind.
type IndexHandler struct {
	paperRepo      storage.PaperStore
	noteRepo       storage.NoteStore
	experimentRepo storage.ExperimentStore
	pipeline       *indexer.Pipeline
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(paperRepo storage.PaperStore, noteRepo storage.NoteStore, experimentRepo storage.ExperimentStore, pipeline *indexer.Pipeline) *IndexHandler {
	return &IndexHandler{
		paperRepo:      paperRepo,
		noteRepo:       noteRepo,
		experimentRepo: experimentRepo,
		pipeline:       pipeline,
	}
}

// IndexRequest represents the HTTP request payload for reindexing.
type IndexRequest struct {
	UserID     int64  `json:"user_id"`
	SourceType string `json:"source_type"`
	SourceID   int64  `json:"source_id"`
}

// IndexResponse represents the HTTP response payload for reindexing.
type IndexResponse struct {
	SourceType string `json:"source_type"`
	SourceID   int64  `json:"source_id"`
	Chunks     int    `json:"chunks"`
}

// ServeHTTP reindexes one source.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.SourceID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "source_id is required")
		return
	}

	var (
		chunks int
		err    error
	)
	switch storage.SourceType(req.SourceType) {
	case storage.SourcePaper:
		var paper *storage.PaperRecord
		paper, err = h.paperRepo.GetByID(ctx, req.SourceID, req.UserID)
		if err == nil {
			chunks, err = h.pipeline.IndexPaper(ctx, paper)
		}
	case storage.SourceNote:
		var note *storage.NoteRecord
		note, err = h.noteRepo.GetByID(ctx, req.SourceID, req.UserID)
		if err == nil {
			chunks, err = h.pipeline.IndexNote(ctx, note)
		}
	case storage.SourceExperiment:
		var experiment *storage.ExperimentRecord
		experiment, err = h.experimentRepo.GetByID(ctx, req.SourceID, req.UserID)
		if err == nil {
			chunks, err = h.pipeline.IndexExperiment(ctx, experiment)
		}
	default:
		writeError(ctx, w, http.StatusBadRequest, "source_type must be paper, note, or experiment")
		return
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "Source not found")
			return
		}
		writeOperationError(ctx, w, err, "Failed to index source")
		return
	}

	writeJSON(ctx, w, http.StatusOK, IndexResponse{
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Chunks:     chunks,
	})
}
