package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAnthropicProvider("test-key", "test-model", srv.URL, nil)
}

func TestAnthropicProvider_Chat(t *testing.T) {
	var gotReq anthropicRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(anthropicResponse{
			Content:    []anthropicContent{{Type: "text", Text: "hello "}, {Type: "text", Text: "world"}},
			StopReason: "end_turn",
			Usage:      anthropicUsage{InputTokens: 10, OutputTokens: 5},
		})
	})

	resp, err := p.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello world", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 10, resp.InputTokens)

	// System messages move to the dedicated field.
	assert.Equal(t, "be brief", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestAnthropicProvider_ChatAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]string{"type": "rate_limit_error", "message": "slow down"},
		})
	})

	_, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
	assert.True(t, rferrors.IsRetryable(err), "429 should be retryable")
}

func TestAnthropicProvider_NotConfigured(t *testing.T) {
	p := NewAnthropicProvider("", "", "", nil)
	assert.False(t, p.IsAvailable())

	_, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.True(t, rferrors.IsAIError(err))
}
