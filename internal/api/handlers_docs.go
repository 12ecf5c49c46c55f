package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			jsonError(w, "page must be a positive integer", http.StatusBadRequest)
			return
		}
		page = parsed
	}

	pageSize := defaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxPageSize {
			jsonError(w, "page_size must be between 1 and 100", http.StatusBadRequest)
			return
		}
		pageSize = parsed
	}

	result, err := s.vectorstore.ListDocuments(r.Context(), TenantID(r), pageSize, (page-1)*pageSize)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": result.Documents,
		"total":     result.Total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.vectorstore.GetDocument(r.Context(), chi.URLParam(r, "docID"), TenantID(r))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.vectorstore.DeleteDocument(r.Context(), chi.URLParam(r, "docID"), TenantID(r))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if !deleted {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
