// Package api exposes the RAG pipeline over HTTP: ingestion, search,
// chat streaming, and document management, all scoped per tenant.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/services"
)

// Server is the HTTP API server.
type Server struct {
	router      chi.Router
	ingest      *services.IngestService
	vectorstore *services.VectorStoreService
	retriever   *services.RetrieverService
	chat        *services.ChatService
	log         *slog.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(
	ingest *services.IngestService,
	vectorstore *services.VectorStoreService,
	retriever *services.RetrieverService,
	chat *services.ChatService,
	log *slog.Logger,
) *Server {
	s := &Server{
		ingest:      ingest,
		vectorstore: vectorstore,
		retriever:   retriever,
		chat:        chat,
		log:         log,
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

	// Tenant-scoped endpoints.
	r.Route("/api/v1/rag", func(r chi.Router) {
		r.Use(TenantMiddleware)

		r.Post("/ingest/file", s.handleIngestFile)
		r.Post("/ingest/url", s.handleIngestURL)
		r.Post("/search", s.handleSearch)
		r.Post("/chat", s.handleChat)

		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{docID}", s.handleGetDocument)
		r.Delete("/documents/{docID}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.chat.Providers(),
	})
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // headers already sent
}

// jsonError writes a JSON error body.
func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// errStatus maps domain errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// serviceError writes err with its mapped status, hiding internal
// details for server-side failures.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", status)
		return
	}
	jsonError(w, err.Error(), status)
}
