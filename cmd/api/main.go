package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"github.com/darshan-sc/lab-assistant/internal/config"
	"github.com/darshan-sc/lab-assistant/internal/http"
	"github.com/darshan-sc/lab-assistant/internal/indexer"
	"github.com/darshan-sc/lab-assistant/internal/llm"
	"github.com/darshan-sc/lab-assistant/internal/rag"
	"github.com/darshan-sc/lab-assistant/internal/storage"
	"github.com/darshan-sc/lab-assistant/internal/token"
	"github.com/darshan-sc/lab-assistant/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	paperRepo := storage.NewPaperRepo(db)
	noteRepo := storage.NewNoteRepo(db)
	experimentRepo := storage.NewExperimentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Tokenizer for chunk sizing
	codec, err := token.NewTiktokenCodec(cfg.TokenizerEncoding)
	if err != nil {
		log.Fatalf("Failed to load tokenizer encoding %q: %v", cfg.TokenizerEncoding, err)
	}

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Create indexing pipeline
	pipeline := indexer.NewPipeline(
		chunkRepo,
		paperRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		codec,
		llmClient,
		cfg.ChunkTargetTokens,
		cfg.ChunkOverlapTokens,
	)

	// Create RAG answering service
	var reranker *rag.Reranker
	if cfg.RerankEnabled {
		reranker = rag.NewReranker(llmClient)
	}
	retriever := rag.NewRetriever(
		embedder,
		vectorStore,
		chunkRepo,
		reranker,
		cfg.QdrantCollection,
		cfg.RetrieveInitialK,
		cfg.RetrieveFinalK,
	)
	ragEngine := rag.NewService(retriever, rag.NewComposer(llmClient))
	slog.Info("RAG engine initialized", "rerank_enabled", cfg.RerankEnabled)

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		RAGEngine:      ragEngine,
		Pipeline:       pipeline,
		PaperRepo:      paperRepo,
		NoteRepo:       noteRepo,
		ExperimentRepo: experimentRepo,
		ChunkRepo:      chunkRepo,
		VectorChecker:  vectorStore,
		CollectionName: cfg.QdrantCollection,
	})

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
