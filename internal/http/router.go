package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/darshan-sc/lab-assistant/internal/handlers"
	"github.com/darshan-sc/lab-assistant/internal/indexer"
	"github.com/darshan-sc/lab-assistant/internal/rag"
	"github.com/darshan-sc/lab-assistant/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	RAGEngine      rag.Engine
	Pipeline       *indexer.Pipeline
	PaperRepo      storage.PaperStore
	NoteRepo       storage.NoteStore
	ExperimentRepo storage.ExperimentStore
	ChunkRepo      storage.ChunkStore
	VectorChecker  handlers.CollectionChecker
	CollectionName string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)

	askHandler := handlers.NewAskHandler(deps.RAGEngine)
	indexHandler := handlers.NewIndexHandler(deps.PaperRepo, deps.NoteRepo, deps.ExperimentRepo, deps.Pipeline)
	paperHandler := handlers.NewPaperHandler(deps.PaperRepo, deps.ChunkRepo, deps.Pipeline)
	noteHandler := handlers.NewNoteHandler(deps.NoteRepo, deps.Pipeline)
	experimentHandler := handlers.NewExperimentHandler(deps.ExperimentRepo, deps.Pipeline)
	healthHandler := handlers.NewHealthHandler(deps.VectorChecker, deps.CollectionName)

	r.Method(http.MethodGet, "/api/health", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodPost, "/index", indexHandler)

		r.Route("/papers", func(r chi.Router) {
			r.Post("/", paperHandler.Create)
			r.Get("/", paperHandler.List)
			r.Get("/{id}", paperHandler.Get)
			r.Delete("/{id}", paperHandler.Delete)
		})

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", noteHandler.Create)
			r.Get("/", noteHandler.List)
			r.Get("/{id}", noteHandler.Get)
			r.Delete("/{id}", noteHandler.Delete)
		})

		r.Route("/experiments", func(r chi.Router) {
			r.Post("/", experimentHandler.Create)
			r.Get("/{id}", experimentHandler.Get)
			r.Delete("/{id}", experimentHandler.Delete)
		})
	})

	return r
}
