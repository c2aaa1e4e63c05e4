package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/relayforge/relayforge/pkg/config"
	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

const clientTimeout = 30 * time.Second

// Client talks to the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	retry   rferrors.RetryConfig
}

// NewClient creates a Client from config.
func NewClient(cfg *config.TelegramConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		token:   cfg.BotToken,
		baseURL: baseURL,
		http:    &http.Client{Timeout: clientTimeout},
		logger:  logger,
		retry: rferrors.RetryConfig{
			Attempts:  3,
			BaseDelay: time.Second,
			MaxDelay:  10 * time.Second,
			Jitter:    rferrors.DefaultJitter,
			Label:     "telegram send",
		},
	}
}

// IsConfigured reports whether a bot token is present.
func (c *Client) IsConfigured() bool {
	return c.token != ""
}

// Update is an inbound Telegram update.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64  `json:"message_id"`
		Text      string `json:"text"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// SendMessage converts markdown to Telegram HTML, splits it to fit the
// platform limit, and sends each part sequentially with retries. A failed
// send is logged and returned but must never crash the caller's
// completion-handling path.
func (c *Client) SendMessage(ctx context.Context, chatID int64, markdown string) error {
	if !c.IsConfigured() {
		return rferrors.NewTelegramError("SendMessage", "bot token not configured")
	}

	parts := SplitMessage(FormatHTML(markdown), MaxMessageLength)
	for i, part := range parts {
		payload := map[string]any{
			"chat_id":                  chatID,
			"text":                     part,
			"parse_mode":               "HTML",
			"disable_web_page_preview": true,
		}
		err := rferrors.Retry(ctx, c.retry, func() error {
			return c.call(ctx, "sendMessage", payload, nil)
		})
		if err != nil {
			return rferrors.Wrapf(err, "part %d/%d", i+1, len(parts))
		}
	}
	return nil
}

// SetWebhook registers or rotates the webhook endpoint with Telegram.
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	if !c.IsConfigured() {
		return rferrors.NewTelegramError("SetWebhook", "bot token not configured")
	}
	payload := map[string]any{
		"url":             url,
		"secret_token":    secretToken,
		"allowed_updates": []string{"message"},
	}
	return c.call(ctx, "setWebhook", payload, nil)
}

// GetMe checks API reachability and token validity, used by the health
// endpoint.
func (c *Client) GetMe(ctx context.Context) error {
	if !c.IsConfigured() {
		return rferrors.NewTelegramError("GetMe", "bot token not configured")
	}
	return c.call(ctx, "getMe", map[string]any{}, nil)
}

// call performs one Bot API request. The bot token is part of the URL and
// must never appear in logs or error messages.
func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return rferrors.NewTelegramErrorWithCause(method, "failed to marshal payload", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return rferrors.NewTelegramErrorWithCause(method, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &rferrors.TelegramError{
			Operation: method,
			Message:   "request failed",
			Retryable: true,
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return rferrors.NewTelegramErrorWithCause(method, "failed to read response", err)
	}

	var api apiResponse
	if err := json.Unmarshal(respBody, &api); err != nil {
		return rferrors.NewTelegramErrorWithStatus(method, resp.StatusCode, "unparseable response")
	}
	if !api.OK {
		status := api.ErrorCode
		if status == 0 {
			status = resp.StatusCode
		}
		return rferrors.NewTelegramErrorWithStatus(method, status, api.Description)
	}

	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return rferrors.NewTelegramErrorWithCause(method, "failed to parse result", err)
		}
	}
	return nil
}
