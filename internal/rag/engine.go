package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks github.com/darshan-sc/lab-assistant/internal/rag Engine

// ErrEmptyQuestion is returned when a request carries no question text.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Engine answers scoped questions against indexed sources.
type Engine interface {
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// Service is the default Engine: retrieve then compose.
type Service struct {
	retriever *Retriever
	composer  *Composer
}

// NewService creates the answering service.
func NewService(retriever *Retriever, composer *Composer) *Service {
	return &Service{retriever: retriever, composer: composer}
}

// Ask retrieves chunks for the request and composes a grounded answer. A
// question with no matching chunks yields a normal not-found response.
func (s *Service) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	if req.Question == "" {
		return AskResponse{}, ErrEmptyQuestion
	}

	chunks, err := s.retriever.Retrieve(ctx, req)
	if err != nil {
		return AskResponse{}, fmt.Errorf("retrieval failed: %w", err)
	}

	resp, err := s.composer.Compose(ctx, req.Question, chunks)
	if err != nil {
		return AskResponse{}, err
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "answered question",
		"user_id", req.UserID, "chunks", len(chunks), "citations", len(resp.Citations))
	return resp, nil
}
