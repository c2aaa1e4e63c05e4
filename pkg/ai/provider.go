// Package ai provides AI provider integration for relayforge.
//
// This package implements a provider-agnostic interface for single-turn
// chat completions. The LLM acts as an external collaborator only: it
// receives conversation context and returns text; relayforge never
// interprets generated code or workflow content.
package ai

import (
	"context"
	"log/slog"

	"github.com/relayforge/relayforge/pkg/config"
	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

// Message represents a conversation message.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Response from the AI provider.
type Response struct {
	Content      string
	StopReason   string // "end_turn", "max_tokens", etc.
	InputTokens  int
	OutputTokens int
}

// Provider interface for AI operations.
type Provider interface {
	// IsAvailable checks if the provider is available and configured.
	IsAvailable() bool

	// Chat performs a single-turn chat completion.
	Chat(ctx context.Context, messages []Message) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// Provider name constants.
const (
	ProviderAnthropic = "anthropic"
)

// NewProvider creates the configured provider.
func NewProvider(cfg *config.AIConfig, logger *slog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, rferrors.NewAIError("", "NewProvider", "ai config is required")
	}

	switch cfg.Provider {
	case ProviderAnthropic, "":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.Endpoint, logger), nil
	default:
		return nil, rferrors.NewAIError(cfg.Provider, "NewProvider", "unknown provider")
	}
}
