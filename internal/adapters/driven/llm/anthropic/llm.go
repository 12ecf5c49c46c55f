// Package anthropic provides a chat model adapter using the Anthropic API.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
)

// Ensure ChatModel implements the interface.
var _ driven.ChatModel = (*ChatModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic chat model.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the default model (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s). Streaming requests
	// are bounded by the caller's context instead.
	Timeout time.Duration
}

// ChatModel generates answers using the Anthropic messages API.
type ChatModel struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
	model        string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	Stream      bool              `json:"stream,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// streamEvent is one SSE data payload from a streaming messages call.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewChatModel creates a new Anthropic chat model.
func NewChatModel(cfg Config) (*ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ChatModel{
		client:       &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
	}, nil
}

// Name returns the provider identifier.
func (m *ChatModel) Name() domain.Provider {
	return domain.ProviderAnthropic
}

// CompleteChat produces the full answer in one call. System prompt
// segments are joined and passed in the dedicated system field, never
// as message turns.
func (m *ChatModel) CompleteChat(ctx context.Context, req driven.ChatProviderRequest) (string, error) {
	resp, err := m.send(ctx, m.client, m.buildRequest(req, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if msgResp.Error != nil {
		return "", fmt.Errorf("anthropic error: %s: %w", msgResp.Error.Message, domain.ErrGeneration)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic error (status %d): %s: %w", resp.StatusCode, string(body), domain.ErrGeneration)
	}
	if len(msgResp.Content) == 0 {
		return "", fmt.Errorf("anthropic: no response content returned: %w", domain.ErrGeneration)
	}

	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return result.String(), nil
}

// StreamChat produces an ordered sequence of text deltas parsed from
// the API's SSE stream. The channel is closed when the stream ends;
// cancelling ctx aborts the HTTP request and closes the channel.
func (m *ChatModel) StreamChat(ctx context.Context, req driven.ChatProviderRequest) (<-chan driven.StreamDelta, error) {
	resp, err := m.send(ctx, m.streamClient, m.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic error (status %d): %s: %w", resp.StatusCode, string(body), domain.ErrGeneration)
	}

	deltas := make(chan driven.StreamDelta)
	go func() {
		defer close(deltas)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "" {
				continue
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue // Skip malformed keep-alive payloads
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta.Type != "text_delta" || event.Delta.Text == "" {
					continue
				}
				select {
				case deltas <- driven.StreamDelta{Content: event.Delta.Text}:
				case <-ctx.Done():
					return
				}
			case "error":
				msg := "stream aborted"
				if event.Error != nil {
					msg = event.Error.Message
				}
				sendErr(ctx, deltas, fmt.Errorf("anthropic stream: %s: %w", msg, domain.ErrGeneration))
				return
			case "message_stop":
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			sendErr(ctx, deltas, fmt.Errorf("anthropic stream: %w", err))
		}
	}()

	return deltas, nil
}

func sendErr(ctx context.Context, deltas chan<- driven.StreamDelta, err error) {
	select {
	case deltas <- driven.StreamDelta{Err: err}:
	case <-ctx.Done():
	}
}

func (m *ChatModel) buildRequest(req driven.ChatProviderRequest, stream bool) messagesRequest {
	apiMessages := make([]messagesMessage, len(req.Messages))
	for i, msg := range req.Messages {
		apiMessages[i] = messagesMessage{Role: msg.Role, Content: msg.Content}
	}

	// Anthropic requires max_tokens to be set.
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	model := req.Model
	if model == "" {
		model = m.model
	}

	body := messagesRequest{
		Model:     model,
		Messages:  apiMessages,
		MaxTokens: maxTokens,
		System:    strings.Join(req.System, "\n\n"),
		Stream:    stream,
	}
	if req.Temperature > 0 {
		body.Temperature = req.Temperature
	}
	return body
}

func (m *ChatModel) send(ctx context.Context, client *http.Client, body messagesRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", m.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}
