// Package server exposes the HTTP surface: operator endpoints guarded by a
// shared api key, and the two webhook receivers with their own signature
// schemes.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/relayforge/relayforge/pkg/assistant"
	"github.com/relayforge/relayforge/pkg/autochain"
	"github.com/relayforge/relayforge/pkg/config"
)

// processTimeout bounds background handling of an acknowledged Telegram
// update.
const processTimeout = 90 * time.Second

// Notifier is the outbound chat surface.
type Notifier interface {
	IsConfigured() bool
	SendMessage(ctx context.Context, chatID int64, markdown string) error
	SetWebhook(ctx context.Context, url, secretToken string) error
	GetMe(ctx context.Context) error
}

// Decider evaluates CI completion events.
type Decider interface {
	Decide(ctx context.Context, eventType string, body []byte, deliveryID string) (*autochain.Decision, error)
}

// Server wires the HTTP routes to the orchestration services.
type Server struct {
	cfg       *config.Config
	echo      *echo.Echo
	assistant *assistant.Service
	jobs      assistant.JobCreator
	status    assistant.StatusProvider
	decider   Decider
	notifier  Notifier
	logger    *slog.Logger
}

// New creates a Server with all routes registered.
func New(cfg *config.Config, svc *assistant.Service, jobs assistant.JobCreator, status assistant.StatusProvider, decider Decider, notifier Notifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewAppValidator()

	s := &Server{
		cfg:       cfg,
		echo:      e,
		assistant: svc,
		jobs:      jobs,
		status:    status,
		decider:   decider,
		notifier:  notifier,
		logger:    logger,
	}
	e.HTTPErrorHandler = s.HTTPErrorHandler

	e.Use(echomw.Recover())
	e.Use(RequestLogger(logger))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	auth := APIKeyAuth(s.cfg.Server.APIKey)

	e.GET("/ping", s.handlePing)
	e.GET("/health", s.handleHealth, auth)

	e.POST("/webhook", s.handleCreateJob, auth,
		RateLimit("job_create", s.cfg.RateLimit.JobCreatePerMinute))
	e.GET("/jobs/status", s.handleJobStatus, auth)

	e.POST("/telegram/webhook", s.handleTelegramWebhook)
	e.POST("/telegram/register", s.handleTelegramRegister, auth,
		RateLimit("register", s.cfg.RateLimit.RegisterPerMinute))

	e.POST("/github/webhook", s.handleGitHubWebhook)

	chatLimit := RateLimit("chat", s.cfg.RateLimit.ChatPerMinute)
	e.POST("/chat", s.handleChat, auth, chatLimit)
	e.GET("/chat/history", s.handleChatHistory, auth)
	e.DELETE("/chat/history", s.handleChatClear, auth)
}

// Handler exposes the routing tree, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving and blocks until the listener fails or closes.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.cfg.Server.Addr)
	err := s.echo.Start(s.cfg.Server.Addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
