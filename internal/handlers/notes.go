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

// NoteHandler handles HTTP requests for research notes.
type NoteHandler struct {
	noteRepo storage.NoteStore
	pipeline *indexer.Pipeline
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(noteRepo storage.NoteStore, pipeline *indexer.Pipeline) *NoteHandler {
	return &NoteHandler{noteRepo: noteRepo, pipeline: pipeline}
}

// CreateNoteRequest represents the HTTP request payload for note creation.
// Content is markdown; headings become section titles on the note's chunks.
type CreateNoteRequest struct {
	UserID    int64  `json:"user_id"`
	ProjectID int64  `json:"project_id"`
	PaperID   int64  `json:"paper_id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// NoteResponse represents a note in HTTP responses.
type NoteResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	ProjectID int64  `json:"project_id"`
	PaperID   int64  `json:"paper_id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Chunks    int    `json:"chunks"`
	CreatedAt string `json:"created_at"`
}

// Create persists and indexes a note.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Content == "" {
		writeError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	note := &storage.NoteRecord{
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
		PaperID:   req.PaperID,
		Title:     req.Title,
		Content:   req.Content,
	}
	if err := h.noteRepo.Create(ctx, note); err != nil {
		logger.ErrorContext(ctx, "failed to create note", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to create note")
		return
	}

	chunks, err := h.pipeline.IndexNote(ctx, note)
	if err != nil {
		writeOperationError(ctx, w, err, "Failed to index note")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, noteToResponse(note, chunks))
}

// List returns the caller's notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := userIDFromQuery(ctx, w, r)
	if !ok {
		return
	}
	limit, offset := paginationFromQuery(r)

	notes, err := h.noteRepo.List(ctx, userID, limit, offset)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to list notes", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to list notes")
		return
	}

	responses := make([]NoteResponse, len(notes))
	for i, note := range notes {
		responses[i] = noteToResponse(note, 0)
	}
	writeJSON(ctx, w, http.StatusOK, responses)
}

// Get returns a single note.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := userIDFromQuery(ctx, w, r)
	if !ok {
		return
	}
	id, ok := idFromURL(ctx, w, r)
	if !ok {
		return
	}

	note, err := h.noteRepo.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "Note not found")
			return
		}
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to get note", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to get note")
		return
	}
	writeJSON(ctx, w, http.StatusOK, noteToResponse(note, 0))
}

// Delete removes a note along with its chunks and vector points.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.noteRepo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "Note not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete note", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to delete note")
		return
	}

	if err := h.pipeline.Remove(ctx, storage.SourceNote, id); err != nil {
		logger.ErrorContext(ctx, "failed to remove note chunks", "note_id", id, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func noteToResponse(note *storage.NoteRecord, chunks int) NoteResponse {
	return NoteResponse{
		ID:        note.ID,
		UserID:    note.UserID,
		ProjectID: note.ProjectID,
		PaperID:   note.PaperID,
		Title:     note.Title,
		Content:   note.Content,
		Chunks:    chunks,
		CreatedAt: note.CreatedAt.UTC().Format(time.RFC3339),
	}
}
