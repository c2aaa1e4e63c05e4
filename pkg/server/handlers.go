package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
	"github.com/relayforge/relayforge/pkg/telegram"
	"github.com/relayforge/relayforge/pkg/webhook"
)

func (s *Server) handlePing(c echo.Context) error {
	return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealth reports upstream configuration and reachability. Probes are
// best-effort; the endpoint itself always answers 200 when the process is
// serving.
func (s *Server) handleHealth(c echo.Context) error {
	report := map[string]any{
		"status":              "ok",
		"github_configured":   s.cfg.GitHub.Token != "",
		"ai_configured":       s.cfg.AI.APIKey != "",
		"telegram_configured": s.notifier != nil && s.notifier.IsConfigured(),
	}

	if s.notifier != nil && s.notifier.IsConfigured() {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := s.notifier.GetMe(ctx); err != nil {
			s.logger.Warn("telegram probe failed", "error", err)
			report["telegram_reachable"] = false
		} else {
			report["telegram_reachable"] = true
		}
	}

	return JSON(c, http.StatusOK, report)
}

type createJobRequest struct {
	Description string `json:"description" validate:"required"`
}

func (s *Server) handleCreateJob(c echo.Context) error {
	var req createJobRequest
	if err := c.Bind(&req); err != nil {
		return rferrors.NewValidationError("body", "invalid JSON body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	handle, err := s.jobs.Create(c.Request().Context(), req.Description)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusCreated, map[string]string{
		"job_id": handle.ID,
		"branch": handle.Branch,
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	report, err := s.status.Status(c.Request().Context(), c.QueryParam("job_id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, report)
}

// handleTelegramWebhook acknowledges every delivery with 200 so Telegram
// never retries, then processes the update in the background. Rejections
// are logged, not surfaced.
func (s *Server) handleTelegramWebhook(c echo.Context) error {
	secret := c.Request().Header.Get(webhook.TelegramSecretHeader)
	if err := webhook.VerifyTelegram(s.cfg.Telegram.WebhookSecret, secret); err != nil {
		s.logger.Warn("telegram webhook rejected", "error", err)
		return c.NoContent(http.StatusOK)
	}

	var update telegram.Update
	if err := c.Bind(&update); err != nil {
		s.logger.Warn("telegram webhook unparseable", "error", err)
		return c.NoContent(http.StatusOK)
	}

	if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
		return c.NoContent(http.StatusOK)
	}

	chatID := update.Message.Chat.ID
	if s.cfg.Telegram.AllowedChatID != 0 && chatID != s.cfg.Telegram.AllowedChatID {
		s.logger.Warn("telegram message from disallowed chat", "chat_id", chatID)
		return c.NoContent(http.StatusOK)
	}

	text := update.Message.Text
	go s.processTelegramMessage(chatID, text)

	return c.NoContent(http.StatusOK)
}

// processTelegramMessage runs after the webhook was acknowledged, on a
// detached context so the HTTP request lifetime does not cancel it.
func (s *Server) processTelegramMessage(chatID int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	conversationID := fmt.Sprintf("telegram:%d", chatID)
	reply, err := s.assistant.HandleMessage(ctx, conversationID, text)
	if err != nil {
		s.logger.Error("telegram message handling failed", "chat_id", chatID, "error", err)
		reply = "Something went wrong handling that message. Check the server logs."
	}

	if err := s.notifier.SendMessage(ctx, chatID, reply); err != nil {
		s.logger.Error("telegram reply failed", "chat_id", chatID, "error", err)
	}
}

func (s *Server) handleTelegramRegister(c echo.Context) error {
	if s.cfg.Server.PublicURL == "" {
		return rferrors.NewValidationError("server.public_url", "public URL is not configured")
	}

	url := strings.TrimRight(s.cfg.Server.PublicURL, "/") + "/telegram/webhook"
	if err := s.notifier.SetWebhook(c.Request().Context(), url, s.cfg.Telegram.WebhookSecret); err != nil {
		return err
	}

	s.logger.Info("telegram webhook registered", "url", url)
	return JSON(c, http.StatusOK, map[string]string{"webhook_url": url})
}

// handleGitHubWebhook verifies the delivery, evaluates the completion
// event, and sends any notification before responding. GitHub tolerates
// slow webhook responses; doing the work inline keeps delivery retries
// meaningful.
func (s *Server) handleGitHubWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return rferrors.NewWebhookError("github", "unreadable body")
	}

	signature := c.Request().Header.Get(webhook.GitHubSignatureHeader)
	if signature == "" {
		signature = c.Request().Header.Get(webhook.GitHubLegacySignatureHeader)
	}
	if err := webhook.VerifyGitHub(s.cfg.GitHub.WebhookSecret, signature, body); err != nil {
		return err
	}

	eventType := c.Request().Header.Get("X-GitHub-Event")
	deliveryID := c.Request().Header.Get("X-GitHub-Delivery")

	decision, err := s.decider.Decide(c.Request().Context(), eventType, body, deliveryID)
	if err != nil {
		return err
	}

	if decision.Notify != "" && s.notifier != nil && s.notifier.IsConfigured() && s.cfg.Telegram.AllowedChatID != 0 {
		if err := s.notifier.SendMessage(c.Request().Context(), s.cfg.Telegram.AllowedChatID, decision.Notify); err != nil {
			s.logger.Error("completion notification failed", "error", err)
		}
	}

	resp := map[string]any{
		"skipped": decision.Skipped,
		"chained": decision.Chain != nil,
	}
	if decision.Chain != nil {
		resp["chain_job_id"] = decision.Chain.ID
	}
	return JSON(c, http.StatusOK, resp)
}

type chatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return rferrors.NewValidationError("body", "invalid JSON body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	reply, err := s.assistant.HandleMessage(c.Request().Context(), "web:"+req.SessionID, req.Message)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleChatHistory(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return rferrors.NewValidationError("session_id", "session_id is required")
	}

	entries := s.assistant.History("web:" + sessionID)
	history := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		history = append(history, map[string]any{
			"role":        e.Role,
			"content":     e.Content,
			"appended_at": e.AppendedAt,
		})
	}

	return JSON(c, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleChatClear(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return rferrors.NewValidationError("session_id", "session_id is required")
	}

	s.assistant.ClearHistory("web:" + sessionID)
	return c.NoContent(http.StatusNoContent)
}
