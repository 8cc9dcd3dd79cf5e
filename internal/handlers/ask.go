package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
	"github.com/darshan-sc/lab-assistant/internal/rag"
)

// maxUserK bounds caller-supplied result counts.
const maxUserK = 20

// AskHandler handles HTTP requests for grounded question answering.
type AskHandler struct {
	ragEngine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(ragEngine rag.Engine) *AskHandler {
	return &AskHandler{ragEngine: ragEngine}
}

// AskRequest represents the HTTP request payload for questions.
// This mirrors rag.AskRequest but is defined here for HTTP layer separation.
type AskRequest struct {
	Question   string `json:"question"`
	UserID     int64  `json:"user_id"`
	ProjectID  int64  `json:"project_id,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	SourceID   int64  `json:"source_id,omitempty"`
	K          int    `json:"k,omitempty"`
}

// AskResponse represents the HTTP response payload for questions.
type AskResponse struct {
	Answer    string             `json:"answer"`
	Citations []CitationResponse `json:"citations"`
}

// CitationResponse represents one citation in the HTTP response.
type CitationResponse struct {
	ChunkID      string `json:"chunk_id"`
	SourceType   string `json:"source_type"`
	SourceID     int64  `json:"source_id"`
	DocTitle     string `json:"doc_title"`
	DocAuthors   string `json:"doc_authors,omitempty"`
	DocYear      int    `json:"doc_year,omitempty"`
	SectionTitle string `json:"section_title,omitempty"`
	Pages        string `json:"pages,omitempty"`
	Snippet      string `json:"snippet"`
}

// ServeHTTP answers a question against the caller's indexed sources.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Question == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(ctx, w, http.StatusBadRequest, "Question is required")
		return
	}
	if req.UserID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}

	// Zero means "use the configured default".
	if req.K < 0 {
		req.K = 0
	}
	if req.K > maxUserK {
		req.K = maxUserK
	}

	ragResp, err := h.ragEngine.Ask(ctx, rag.AskRequest{
		Question:   req.Question,
		UserID:     req.UserID,
		ProjectID:  req.ProjectID,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		K:          req.K,
	})
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuestion) {
			writeError(ctx, w, http.StatusBadRequest, "Question is required")
			return
		}
		writeOperationError(ctx, w, err, "Failed to answer question")
		return
	}

	citations := make([]CitationResponse, len(ragResp.Citations))
	for i, citation := range ragResp.Citations {
		citations[i] = CitationResponse{
			ChunkID:      citation.ChunkID,
			SourceType:   citation.SourceType,
			SourceID:     citation.SourceID,
			DocTitle:     citation.DocTitle,
			DocAuthors:   citation.DocAuthors,
			DocYear:      citation.DocYear,
			SectionTitle: citation.SectionTitle,
			Pages:        citation.Pages,
			Snippet:      citation.Snippet,
		}
	}

	writeJSON(ctx, w, http.StatusOK, AskResponse{Answer: ragResp.Answer, Citations: citations})
}
