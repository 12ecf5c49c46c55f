// Package openai provides a chat model adapter using the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
)

// Ensure ChatModel implements the interface.
var _ driven.ChatModel = (*ChatModel)(nil)

// DefaultModel is the default chat model.
const DefaultModel = "gpt-4o-mini"

// Config holds configuration for the OpenAI chat model.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL, for Azure OpenAI or
	// compatible APIs.
	BaseURL string

	// Model is the default model (default: gpt-4o-mini).
	Model string
}

// ChatModel generates answers using the OpenAI chat completions API.
type ChatModel struct {
	client *openai.Client
	model  string
}

// NewChatModel creates a new OpenAI chat model.
func NewChatModel(cfg Config) (*ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &ChatModel{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Name returns the provider identifier.
func (m *ChatModel) Name() domain.Provider {
	return domain.ProviderOpenAI
}

// CompleteChat produces the full answer in one call.
func (m *ChatModel) CompleteChat(ctx context.Context, req driven.ChatProviderRequest) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, m.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("openai chat: %w: %w", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned: %w", domain.ErrGeneration)
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChat produces an ordered sequence of text deltas. The returned
// channel is closed when generation finishes or fails; cancelling ctx
// aborts the upstream stream.
func (m *ChatModel) StreamChat(ctx context.Context, req driven.ChatProviderRequest) (<-chan driven.StreamDelta, error) {
	chatReq := m.buildRequest(req)
	chatReq.Stream = true

	stream, err := m.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai chat stream: %w: %w", domain.ErrGeneration, err)
	}

	deltas := make(chan driven.StreamDelta)
	go func() {
		defer close(deltas)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case deltas <- driven.StreamDelta{Err: fmt.Errorf("openai stream: %w: %w", domain.ErrGeneration, err)}:
				case <-ctx.Done():
				}
				return
			}

			if len(resp.Choices) == 0 {
				continue
			}
			content := resp.Choices[0].Delta.Content
			if content == "" {
				continue
			}

			select {
			case deltas <- driven.StreamDelta{Content: content}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return deltas, nil
}

// buildRequest maps the provider request to the OpenAI format. System
// prompt segments are inlined as leading system messages since the
// chat completions API has no dedicated system field.
func (m *ChatModel) buildRequest(req driven.ChatProviderRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = m.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, system := range req.System {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}
	return chatReq
}
