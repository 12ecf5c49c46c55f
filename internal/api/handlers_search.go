package api

import (
	"encoding/json"
	"net/http"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/services"
)

type searchRequest struct {
	Query          string   `json:"query"`
	TopK           int      `json:"top_k"`
	DocumentIDs    []string `json:"document_ids"`
	Hybrid         bool     `json:"hybrid"`
	SemanticWeight *float64 `json:"semantic_weight"`
}

type searchResult struct {
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Page       string  `json:"page"`
	Similarity float64 `json:"similarity"`
	DocumentID string  `json:"document_id"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
	Total   int            `json:"total"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tenantID := TenantID(r)

	var chunks []searchResult
	if req.Hybrid {
		weight := services.DefaultSemanticWeight
		if req.SemanticWeight != nil {
			weight = *req.SemanticWeight
		}
		fused, err := s.retriever.HybridSearch(r.Context(), tenantID, req.Query, req.TopK, weight)
		if err != nil {
			s.serviceError(w, r, err)
			return
		}
		chunks = toSearchResults(fused)
	} else {
		retrieved, err := s.retriever.Retrieve(r.Context(), tenantID, req.Query, services.RetrieveOptions{
			TopK:        req.TopK,
			DocumentIDs: req.DocumentIDs,
		})
		if err != nil {
			s.serviceError(w, r, err)
			return
		}
		chunks = toSearchResults(retrieved)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results: chunks,
		Total:   len(chunks),
	})
}

func toSearchResults(chunks []domain.RetrievedChunk) []searchResult {
	results := make([]searchResult, len(chunks))
	for i, chunk := range chunks {
		results[i] = searchResult{
			Content:    chunk.Content,
			Source:     chunk.Citation.Source,
			Page:       chunk.Citation.Page,
			Similarity: chunk.Similarity,
			DocumentID: chunk.Citation.DocumentID,
		}
	}
	return results
}
