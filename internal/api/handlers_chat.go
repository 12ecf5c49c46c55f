package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/services"
)

type chatRequest struct {
	Message            string           `json:"message"`
	History            []domain.Message `json:"history"`
	DocumentIDs        []string         `json:"document_ids"`
	Provider           string           `json:"provider"`
	Model              string           `json:"model"`
	Stream             *bool            `json:"stream"`
	PromptStyle        string           `json:"prompt_style"`
	CustomInstructions string           `json:"custom_instructions"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	provider := domain.Provider(req.Provider)
	if req.Provider == "" {
		provider = domain.ProviderOpenAI
	}

	serviceReq := services.ChatRequest{
		TenantID:           TenantID(r),
		Message:            req.Message,
		History:            req.History,
		DocumentIDs:        req.DocumentIDs,
		Provider:           provider,
		Model:              req.Model,
		PromptStyle:        req.PromptStyle,
		CustomInstructions: req.CustomInstructions,
	}

	if req.Stream != nil && !*req.Stream {
		answer, err := s.chat.Chat(r.Context(), serviceReq)
		if err != nil {
			s.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, answer)
		return
	}

	events, err := s.chat.Stream(r.Context(), serviceReq)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			s.log.Error("marshal chat event", "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}
