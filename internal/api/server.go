package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docstruct/internal/config"
	"github.com/dgallion1/docstruct/internal/outline"
	"github.com/dgallion1/docstruct/internal/pipeline"
	"github.com/dgallion1/docstruct/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docstruct.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	stats        *outline.MethodStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil.
func NewServer(orch *pipeline.Orchestrator, st *store.Store, stats *outline.MethodStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		store:        st,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/documents", s.handleUpload)
		r.Get("/api/documents", s.handleListDocuments)
		r.Route("/api/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Post("/tree", s.handleGenerateTree)
			r.Get("/tree", s.handleGetTree)
			r.Post("/bind", s.handleBind)
			r.Post("/content", s.handleExtractContent)
			r.Get("/content/unassigned", s.handleUnassignedContent)
		})

		r.Get("/api/categories/{categoryID}", s.handleGetCategory)
		r.Get("/api/categories/{categoryID}/content", s.handleCategoryContent)

		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/events", s.handleJobEvents)
		r.Delete("/api/jobs/{jobID}", s.handleCancelJob)

		r.Get("/api/stats/extraction", s.handleExtractionStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		jsonError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func (s *Server) handleExtractionStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "extraction stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"methods": s.orchestrator.Methods(),
		"stats":   s.stats.Snapshot(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
