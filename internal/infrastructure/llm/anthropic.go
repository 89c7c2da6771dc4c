package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"AckeeVeille/internal/config"
	"AckeeVeille/internal/infrastructure/httpx"
	"AckeeVeille/internal/ports"
)

const (
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient implements ports.TextGenerator on the Anthropic Messages API.
// Every Generate call is a single attempt.
type AnthropicClient struct {
	endpoint string
	apiKey   string
	http     *httpx.Client
}

var _ ports.TextGenerator = (*AnthropicClient)(nil)

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient builds a client from configuration. The HTTP client may be nil.
func NewAnthropicClient(cfg config.LLMConfig, client *http.Client) *AnthropicClient {
	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = "https://api.anthropic.com"
	}
	callTimeout := cfg.Timeout
	if callTimeout <= 0 {
		callTimeout = 5 * time.Minute
	}
	return &AnthropicClient{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		http:     httpx.NewClient(client, callTimeout),
	}
}

// Generate sends the prompt as one user message and returns the concatenated text blocks.
func (c *AnthropicClient) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	if c == nil {
		return "", errors.New("anthropic client is nil")
	}
	if c.apiKey == "" || req.Model == "" {
		return "", errors.New("anthropic client misconfigured")
	}

	header := http.Header{}
	header.Set("x-api-key", c.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	body := messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	}

	var resp messagesResponse
	if err := c.http.PostJSON(ctx, c.endpoint+messagesPath, header, body, &resp); err != nil {
		return "", describe(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", fmt.Errorf("empty completion (stop_reason=%s)", resp.StopReason)
	}
	return out, nil
}

// describe surfaces the API's own error message when the response carries one.
func describe(err error) error {
	if httpx.IsTimeout(err) {
		return fmt.Errorf("anthropic call timed out: %w", err)
	}

	var statusErr *httpx.StatusError
	if !errors.As(err, &statusErr) {
		return fmt.Errorf("anthropic call: %w", err)
	}

	var payload apiError
	if jsonErr := json.Unmarshal([]byte(statusErr.Body), &payload); jsonErr == nil && payload.Error.Message != "" {
		return fmt.Errorf("anthropic %s (%s): %s: %w", statusErr.Status, payload.Error.Type, payload.Error.Message, err)
	}
	return fmt.Errorf("anthropic call: %w", err)
}
