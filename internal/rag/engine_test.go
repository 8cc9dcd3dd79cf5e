package rag

import (
	"context"
	"errors"
	"testing"

	llm_mocks "github.com/darshan-sc/lab-assistant/internal/llm/mocks"
	"github.com/darshan-sc/lab-assistant/internal/storage"
	storage_mocks "github.com/darshan-sc/lab-assistant/internal/storage/mocks"
	"github.com/darshan-sc/lab-assistant/internal/vectorstore"
	vectorstore_mocks "github.com/darshan-sc/lab-assistant/internal/vectorstore/mocks"

	"go.uber.org/mock/gomock"
)

func TestService_Ask_EmptyQuestion(t *testing.T) {
	service := NewService(nil, nil)
	if _, err := service.Ask(context.Background(), AskRequest{UserID: 1}); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("Ask() error = %v, want ErrEmptyQuestion", err)
	}
}

func TestService_Ask_EndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vectorStore := vectorstore_mocks.NewMockVectorStore(ctrl)
	chunkRepo := storage_mocks.NewMockChunkStore(ctrl)
	generator := llm_mocks.NewMockGenerator(ctrl)

	embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"what improved?"}).Return([][]float32{{0.3}}, nil)
	vectorStore.EXPECT().
		Search(gomock.Any(), "c", gomock.Any(), 5, gomock.Any()).
		Return([]vectorstore.SearchResult{{PointID: "chunk-a", Score: 0.9}}, nil)
	chunkRepo.EXPECT().
		GetByIDs(gomock.Any(), []string{"chunk-a"}).
		Return([]*storage.ChunkRecord{{
			ID:         "chunk-a",
			SourceType: storage.SourcePaper,
			SourceID:   1,
			DocTitle:   "Deep Retrieval Models",
			Content:    "Recall improved by twelve percent.",
		}}, nil)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("ANSWER: Recall improved.\n\nQUOTES USED:\n[1]: \"Recall improved by twelve percent.\"", nil)

	retriever := NewRetriever(embedder, vectorStore, chunkRepo, nil, "c", 20, 5)
	service := NewService(retriever, NewComposer(generator))

	resp, err := service.Ask(context.Background(), AskRequest{Question: "what improved?", UserID: 1})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != "Recall improved." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].ChunkID != "chunk-a" {
		t.Errorf("Citations = %+v", resp.Citations)
	}
}

func TestService_Ask_NoResultsIsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vectorStore := vectorstore_mocks.NewMockVectorStore(ctrl)
	chunkRepo := storage_mocks.NewMockChunkStore(ctrl)
	generator := llm_mocks.NewMockGenerator(ctrl)

	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{0.3}}, nil)
	vectorStore.EXPECT().Search(gomock.Any(), "c", gomock.Any(), 5, gomock.Any()).Return(nil, nil)
	// Generator has no expectations: no chunks means no generation call.

	retriever := NewRetriever(embedder, vectorStore, chunkRepo, nil, "c", 20, 5)
	service := NewService(retriever, NewComposer(generator))

	resp, err := service.Ask(context.Background(), AskRequest{Question: "anything?", UserID: 1})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != notFoundAnswer {
		t.Errorf("Answer = %q, want not-found message", resp.Answer)
	}
	if len(resp.Citations) != 0 {
		t.Errorf("Citations = %+v, want none", resp.Citations)
	}
}
