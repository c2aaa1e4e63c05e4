package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

// Anthropic API configuration.
const (
	anthropicAPIURL       = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion   = "2023-06-01"
	anthropicDefaultModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 4096
	anthropicTimeout      = 60 * time.Second
)

// AnthropicProvider implements Provider for the Claude API.
type AnthropicProvider struct {
	apiKey   string
	model    string
	endpoint string
	logger   *slog.Logger
	client   *http.Client
}

var _ Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider creates a new Anthropic provider. An empty endpoint
// uses the public API URL; tests point it at a local server.
func NewAnthropicProvider(apiKey, model, endpoint string, logger *slog.Logger) *AnthropicProvider {
	if model == "" {
		model = anthropicDefaultModel
	}
	if endpoint == "" {
		endpoint = anthropicAPIURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnthropicProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		logger:   logger,
		client:   &http.Client{Timeout: anthropicTimeout},
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// IsAvailable checks if the provider is configured and ready.
func (p *AnthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// anthropicRequest represents an Anthropic API request.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
}

// anthropicMessage represents a message in the Anthropic format.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse represents an Anthropic API response.
type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

// anthropicContent represents content in an Anthropic response.
type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// anthropicUsage represents token usage in an Anthropic response.
type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// anthropicError represents an Anthropic API error response.
type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Chat performs a single-turn chat completion.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if !p.IsAvailable() {
		return nil, rferrors.NewAIError(ProviderAnthropic, "Chat", "provider not configured")
	}

	systemPrompt, apiMessages := p.convertMessages(messages)

	reqBody := anthropicRequest{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  apiMessages,
		System:    systemPrompt,
	}

	p.logger.Debug("sending chat request", "model", p.model, "message_count", len(apiMessages))

	respBody, err := p.doRequest(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, rferrors.NewAIErrorWithCause(ProviderAnthropic, "Chat",
			"failed to parse response", err)
	}

	var content strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			content.WriteString(c.Text)
		}
	}

	p.logger.Debug("received response",
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	return &Response{
		Content:      content.String(),
		StopReason:   resp.StopReason,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// convertMessages splits out the system prompt and converts to API format.
func (p *AnthropicProvider) convertMessages(messages []Message) (string, []anthropicMessage) {
	var systemPrompt string
	apiMessages := make([]anthropicMessage, 0, len(messages))

	for _, m := range messages {
		if m.Role == "system" {
			systemPrompt = m.Content
			continue
		}
		apiMessages = append(apiMessages, anthropicMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return systemPrompt, apiMessages
}

// doRequest executes the HTTP request and returns the raw response body.
func (p *AnthropicProvider) doRequest(ctx context.Context, reqBody anthropicRequest) ([]byte, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, rferrors.NewAIErrorWithCause(ProviderAnthropic, "Chat",
			"failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, rferrors.NewAIErrorWithCause(ProviderAnthropic, "Chat",
			"failed to create request", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, rferrors.NewAIErrorWithCause(ProviderAnthropic, "Chat",
			"request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rferrors.NewAIErrorWithCause(ProviderAnthropic, "Chat",
			"failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr anthropicError
		message := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return nil, rferrors.NewAIErrorWithStatus(ProviderAnthropic, "Chat", resp.StatusCode, message)
	}

	return respBody, nil
}

// setHeaders sets the required Anthropic API headers.
func (p *AnthropicProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}
