package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relayforge/relayforge/pkg/ai"
	"github.com/relayforge/relayforge/pkg/assistant"
	"github.com/relayforge/relayforge/pkg/autochain"
	"github.com/relayforge/relayforge/pkg/config"
	"github.com/relayforge/relayforge/pkg/conversation"
	"github.com/relayforge/relayforge/pkg/github"
	"github.com/relayforge/relayforge/pkg/jobs"
	"github.com/relayforge/relayforge/pkg/schedule"
	"github.com/relayforge/relayforge/pkg/server"
	"github.com/relayforge/relayforge/pkg/telegram"
)

const shutdownTimeout = 15 * time.Second

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	})
}

func runServe(cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	for _, w := range config.CheckSecurityWarnings(cfg) {
		logger.Warn("security warning", "field", w.Field, "message", w.Message)
	}

	provider, err := ai.NewProvider(&cfg.AI, logger)
	if err != nil {
		return err
	}

	ci, err := github.NewAPIClient(&cfg.GitHub, logger)
	if err != nil {
		return err
	}

	dispatcher := jobs.NewDispatcher(ci, logger)
	status := jobs.NewStatusService(ci, logger)
	store := conversation.NewMemoryStore(0)
	notifier := telegram.NewClient(&cfg.Telegram, logger)
	engine := autochain.NewEngine(ci, dispatcher, logger)
	svc := assistant.NewService(provider, store, dispatcher, status, logger)

	srv := server.New(cfg, svc, dispatcher, status, engine, notifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := buildScheduler(cfg, status, engine, notifier, logger)
	if err != nil {
		return err
	}
	scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	scheduler.Wait()
	return nil
}

// buildScheduler registers the recurring maintenance tasks: expired-entry
// sweeps for the TTL caches, and the optional active-jobs digest.
func buildScheduler(cfg *config.Config, status *jobs.StatusService, engine *autochain.Engine, notifier *telegram.Client, logger *slog.Logger) (*schedule.Scheduler, error) {
	scheduler := schedule.NewScheduler(logger)

	err := scheduler.Add(schedule.Task{
		Name:    "cache_sweep",
		Spec:    cfg.Schedule.CacheSweepCron,
		Enabled: true,
		Run: func(ctx context.Context) {
			removed := status.Sweep() + engine.Sweep()
			if removed > 0 {
				logger.Debug("cache sweep", "removed", removed)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	err = scheduler.Add(schedule.Task{
		Name:    "digest",
		Spec:    cfg.Schedule.DigestCron,
		Enabled: cfg.Schedule.DigestEnabled && notifier.IsConfigured() && cfg.Telegram.AllowedChatID != 0,
		Run: func(ctx context.Context) {
			sendDigest(ctx, cfg, status, notifier, logger)
		},
	})
	if err != nil {
		return nil, err
	}

	return scheduler, nil
}

// sendDigest posts a summary of active jobs to the configured chat. Quiet
// when nothing is running.
func sendDigest(ctx context.Context, cfg *config.Config, status *jobs.StatusService, notifier *telegram.Client, logger *slog.Logger) {
	report, err := status.Status(ctx, "")
	if err != nil {
		logger.Warn("digest status query failed", "error", err)
		return
	}
	if len(report.Jobs) == 0 {
		return
	}

	msg := fmt.Sprintf("**Hourly digest**: %d running, %d queued", report.Running, report.Queued)
	for _, job := range report.Jobs {
		msg += fmt.Sprintf("\n**%s** — %s, %dm", job.ID, job.Status, job.DurationMinutes)
	}

	if err := notifier.SendMessage(ctx, cfg.Telegram.AllowedChatID, msg); err != nil {
		logger.Warn("digest notification failed", "error", err)
	}
}
