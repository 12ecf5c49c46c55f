package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
	"github.com/scribehq/scribe/internal/prompts"
)

// Generation defaults.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

// ChatRequest is one conversational turn against the knowledge base.
type ChatRequest struct {
	// TenantID scopes retrieval.
	TenantID string

	// Message is the user's current question.
	Message string

	// History holds prior turns, oldest first. Roles are "user" and
	// "assistant".
	History []domain.Message

	// DocumentIDs restricts retrieval to specific documents.
	DocumentIDs []string

	// Provider selects the LLM provider. Unknown providers fail before
	// any retrieval or network call.
	Provider domain.Provider

	// Model overrides the provider's default model.
	Model string

	// PromptStyle selects the system prompt; unknown styles fall back
	// to the default style.
	PromptStyle string

	// CustomInstructions are appended to the system prompt.
	CustomInstructions string
}

// ChatService orchestrates retrieval-augmented generation across the
// registered LLM providers.
type ChatService struct {
	retriever *RetrieverService
	providers map[domain.Provider]driven.ChatModel
	log       *slog.Logger
}

// NewChatService creates a chat service over the given providers.
func NewChatService(retriever *RetrieverService, models []driven.ChatModel, log *slog.Logger) *ChatService {
	providers := make(map[domain.Provider]driven.ChatModel, len(models))
	for _, model := range models {
		providers[model.Name()] = model
	}
	return &ChatService{
		retriever: retriever,
		providers: providers,
		log:       log,
	}
}

// Providers lists the registered provider names.
func (s *ChatService) Providers() []domain.Provider {
	names := make([]domain.Provider, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

func (s *ChatService) validate(req ChatRequest) (driven.ChatModel, error) {
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant id is required: %w", domain.ErrInvalidInput)
	}
	if req.Message == "" {
		return nil, fmt.Errorf("message is required: %w", domain.ErrInvalidInput)
	}
	model, ok := s.providers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q: %w", req.Provider, domain.ErrInvalidInput)
	}
	return model, nil
}

// prepare retrieves context and assembles the provider request.
func (s *ChatService) prepare(ctx context.Context, req ChatRequest) (driven.ChatProviderRequest, []domain.SourceRef, error) {
	chunks, err := s.retriever.Retrieve(ctx, req.TenantID, req.Message, RetrieveOptions{
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		return driven.ChatProviderRequest{}, nil, err
	}

	systemPrompt := prompts.ByStyle(req.PromptStyle)
	if req.CustomInstructions != "" {
		systemPrompt += "\n\nADDITIONAL INSTRUCTIONS:\n" + req.CustomInstructions
	}

	system := []string{systemPrompt}
	if segment := prompts.ContextSegment(chunks); segment != "" {
		system = append(system, segment)
	}

	messages := make([]domain.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, domain.Message{Role: "user", Content: req.Message})

	sources := make([]domain.SourceRef, len(chunks))
	for i, chunk := range chunks {
		sources[i] = domain.SourceRef{
			Source:     chunk.Citation.Source,
			Page:       chunk.Citation.Page,
			Similarity: chunk.Similarity,
		}
	}

	return driven.ChatProviderRequest{
		Model:       req.Model,
		System:      system,
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}, sources, nil
}

// Chat produces the complete answer in one call.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*domain.Answer, error) {
	model, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	providerReq, sources, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	content, err := model.CompleteChat(ctx, providerReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	modelName := req.Model
	s.log.Info("chat answered",
		"tenant_id", req.TenantID, "provider", req.Provider, "sources", len(sources))

	return &domain.Answer{
		Content:  content,
		Sources:  sources,
		Model:    modelName,
		Provider: req.Provider,
	}, nil
}

// Stream produces the ordered chat event stream: one sources event,
// zero or more content deltas, then done. A provider failure after the
// stream starts replaces done with a single error event. The channel
// is closed after the terminal event; cancelling ctx stops generation.
//
// Provider validation happens before retrieval, so an unknown provider
// fails here rather than producing an error event.
func (s *ChatService) Stream(ctx context.Context, req ChatRequest) (<-chan domain.ChatEvent, error) {
	model, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	providerReq, sources, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.ChatEvent)
	go func() {
		defer close(events)

		if !emit(ctx, events, domain.ChatEvent{Type: domain.EventSources, Sources: sources}) {
			return
		}

		deltas, err := model.StreamChat(ctx, providerReq)
		if err != nil {
			s.log.Error("chat stream failed to start",
				"tenant_id", req.TenantID, "provider", req.Provider, "error", err)
			emit(ctx, events, domain.ChatEvent{Type: domain.EventError, Error: err.Error()})
			return
		}

		for delta := range deltas {
			if delta.Err != nil {
				s.log.Error("chat stream aborted",
					"tenant_id", req.TenantID, "provider", req.Provider, "error", delta.Err)
				emit(ctx, events, domain.ChatEvent{Type: domain.EventError, Error: delta.Err.Error()})
				return
			}
			if !emit(ctx, events, domain.ChatEvent{Type: domain.EventContent, Content: delta.Content}) {
				return
			}
		}

		emit(ctx, events, domain.ChatEvent{Type: domain.EventDone})
	}()

	return events, nil
}

func emit(ctx context.Context, events chan<- domain.ChatEvent, event domain.ChatEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
