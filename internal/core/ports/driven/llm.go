package driven

import (
	"context"

	"github.com/scribehq/scribe/internal/core/domain"
)

// ChatProviderRequest is one generation request to an LLM provider.
// System is carried separately from Messages; each adapter decides
// whether to inline it into the message list (OpenAI) or pass it as a
// dedicated field (Anthropic).
type ChatProviderRequest struct {
	// Model is the provider model name.
	Model string

	// System is the combined system prompt (instructions + context).
	System []string

	// Messages are the conversation turns, oldest first, current user
	// message last. Roles are "user" and "assistant" only.
	Messages []domain.Message

	// MaxTokens caps the generation length.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64
}

// StreamDelta is one element of a provider's text-delta stream.
// A delta with Err set terminates the stream; the channel is closed
// after the final delta.
type StreamDelta struct {
	// Content is the text fragment, in generation order.
	Content string

	// Err reports a mid-generation provider failure.
	Err error
}

// ChatModel is an LLM provider adapter.
type ChatModel interface {
	// CompleteChat produces the full answer in one call.
	CompleteChat(ctx context.Context, req ChatProviderRequest) (string, error)

	// StreamChat produces an ordered sequence of text deltas. The
	// returned channel is closed when generation finishes or fails;
	// cancelling ctx stops the upstream stream promptly.
	StreamChat(ctx context.Context, req ChatProviderRequest) (<-chan StreamDelta, error)

	// Name returns the provider identifier.
	Name() domain.Provider
}
