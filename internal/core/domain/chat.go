package domain

// Provider identifies an LLM provider.
type Provider string

const (
	// ProviderOpenAI routes chat to the OpenAI adapter.
	ProviderOpenAI Provider = "openai"
	// ProviderAnthropic routes chat to the Anthropic adapter.
	ProviderAnthropic Provider = "anthropic"
)

// Message is a single conversation turn.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// ChatEventType discriminates streamed chat events.
type ChatEventType string

const (
	// EventSources carries the citation list, emitted exactly once and first.
	EventSources ChatEventType = "sources"
	// EventContent carries one generation delta.
	EventContent ChatEventType = "content"
	// EventDone terminates a successful stream.
	EventDone ChatEventType = "done"
	// EventError terminates a failed stream in place of done.
	EventError ChatEventType = "error"
)

// SourceRef is the citation entry attached to an answer.
type SourceRef struct {
	Source     string  `json:"source"`
	Page       string  `json:"page"`
	Similarity float64 `json:"similarity"`
}

// ChatEvent is one element of the ordered chat stream.
// A successful stream is [sources, content*, done]; a stream that fails
// mid-generation is [sources, content*, error].
type ChatEvent struct {
	Type    ChatEventType `json:"type"`
	Sources []SourceRef   `json:"sources,omitempty"`
	Content string        `json:"content,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Answer is the single-shot (non-streaming) chat result.
type Answer struct {
	Content  string      `json:"content"`
	Sources  []SourceRef `json:"sources"`
	Model    string      `json:"model"`
	Provider Provider    `json:"provider"`
}
