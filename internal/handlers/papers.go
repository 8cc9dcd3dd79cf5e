package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
	"github.com/darshan-sc/lab-assistant/internal/document"
	"github.com/darshan-sc/lab-assistant/internal/indexer"
	"github.com/darshan-sc/lab-assistant/internal/storage"
)

// PaperHandler handles HTTP requests for paper ingestion and management.
type PaperHandler struct {
	paperRepo storage.PaperStore
	chunkRepo storage.ChunkStore
	pipeline  *indexer.Pipeline
}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler(paperRepo storage.PaperStore, chunkRepo storage.ChunkStore, pipeline *indexer.Pipeline) *PaperHandler {
	return &PaperHandler{paperRepo: paperRepo, chunkRepo: chunkRepo, pipeline: pipeline}
}

// CreatePaperRequest represents the HTTP request payload for paper ingestion.
// Callers with page-extracted text send Pages; plain-text callers send
// FullText. Title, authors, and year are extracted when omitted.
type CreatePaperRequest struct {
	UserID    int64    `json:"user_id"`
	ProjectID int64    `json:"project_id"`
	Title     string   `json:"title,omitempty"`
	Authors   string   `json:"authors,omitempty"`
	Year      int      `json:"year,omitempty"`
	Pages     []string `json:"pages,omitempty"`
	FullText  string   `json:"full_text,omitempty"`
}

// PaperResponse represents a paper in HTTP responses.
type PaperResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	ProjectID int64  `json:"project_id"`
	Title     string `json:"title"`
	Abstract  string `json:"abstract,omitempty"`
	Authors   string `json:"authors,omitempty"`
	Year      int    `json:"year,omitempty"`
	Chunks    int    `json:"chunks"`
	CreatedAt string `json:"created_at"`
}

// Create ingests a paper: persist the record, then chunk, embed, and index it.
func (h *PaperHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreatePaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}
	if len(req.Pages) == 0 && req.FullText == "" {
		writeError(ctx, w, http.StatusBadRequest, "pages or full_text is required")
		return
	}

	fullText := req.FullText
	pagesJSON := ""
	if len(req.Pages) > 0 {
		pages := document.BuildPageTable(req.Pages)
		fullText = document.JoinPages(pages)
		encoded, err := json.Marshal(pages)
		if err != nil {
			logger.ErrorContext(ctx, "failed to encode page table", "error", err)
			writeError(ctx, w, http.StatusInternalServerError, "Failed to ingest paper")
			return
		}
		pagesJSON = string(encoded)
	}

	paper := &storage.PaperRecord{
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Authors:   req.Authors,
		Year:      req.Year,
		FullText:  fullText,
		PagesJSON: pagesJSON,
	}
	if err := h.paperRepo.Create(ctx, paper); err != nil {
		logger.ErrorContext(ctx, "failed to create paper", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to create paper")
		return
	}

	chunks, err := h.pipeline.IndexPaper(ctx, paper)
	if err != nil {
		writeOperationError(ctx, w, err, "Failed to index paper")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, paperToResponse(paper, chunks))
}

// List returns the caller's papers.
func (h *PaperHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := userIDFromQuery(ctx, w, r)
	if !ok {
		return
	}
	limit, offset := paginationFromQuery(r)

	papers, err := h.paperRepo.List(ctx, userID, limit, offset)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to list papers", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to list papers")
		return
	}

	responses := make([]PaperResponse, len(papers))
	for i, paper := range papers {
		count, err := h.chunkRepo.CountBySource(ctx, storage.SourcePaper, paper.ID)
		if err != nil {
			count = 0
		}
		responses[i] = paperToResponse(paper, count)
	}
	writeJSON(ctx, w, http.StatusOK, responses)
}

// Get returns a single paper.
func (h *PaperHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := userIDFromQuery(ctx, w, r)
	if !ok {
		return
	}
	id, ok := idFromURL(ctx, w, r)
	if !ok {
		return
	}

	paper, err := h.paperRepo.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "Paper not found")
			return
		}
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to get paper", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to get paper")
		return
	}

	count, err := h.chunkRepo.CountBySource(ctx, storage.SourcePaper, paper.ID)
	if err != nil {
		count = 0
	}
	writeJSON(ctx, w, http.StatusOK, paperToResponse(paper, count))
}

// Delete removes a paper along with its chunks and vector points.
func (h *PaperHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.paperRepo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "Paper not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete paper", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to delete paper")
		return
	}

	if err := h.pipeline.Remove(ctx, storage.SourcePaper, id); err != nil {
		logger.ErrorContext(ctx, "failed to remove paper chunks", "paper_id", id, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func paperToResponse(paper *storage.PaperRecord, chunks int) PaperResponse {
	return PaperResponse{
		ID:        paper.ID,
		UserID:    paper.UserID,
		ProjectID: paper.ProjectID,
		Title:     paper.Title,
		Abstract:  paper.Abstract,
		Authors:   paper.Authors,
		Year:      paper.Year,
		Chunks:    chunks,
		CreatedAt: paper.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// userIDFromQuery parses the required user_id query parameter.
func userIDFromQuery(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id query parameter is required")
		return 0, false
	}
	return userID, true
}

// idFromURL parses the {id} URL parameter.
func idFromURL(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// paginationFromQuery parses limit/offset with sane bounds.
func paginationFromQuery(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
