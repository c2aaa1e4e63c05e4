package errors

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// Retry configuration defaults.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 30 * time.Second
	DefaultJitter    = 0.4 // Produces a multiplier range of [0.8, 1.2]
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	Attempts  int           // Total number of attempts (not retries)
	BaseDelay time.Duration // Delay after the first failed attempt
	MaxDelay  time.Duration // Maximum delay between attempts
	Jitter    float64       // Jitter factor (0.0 to 1.0); 0 disables jitter
	Label     string        // Operation label used in logs
}

// DefaultRetryConfig returns a RetryConfig with sensible defaults.
func DefaultRetryConfig(label string) RetryConfig {
	return RetryConfig{
		Attempts:  DefaultAttempts,
		BaseDelay: DefaultBaseDelay,
		MaxDelay:  DefaultMaxDelay,
		Jitter:    DefaultJitter,
		Label:     label,
	}
}

// Retry executes fn up to cfg.Attempts times with exponential backoff.
// The delay before attempt n+1 is BaseDelay * 2^(n-1), capped at MaxDelay.
// It stops early if the error is marked permanent (a typed domain error with
// Retryable=false) or if ctx is cancelled. On final failure the full attempt
// history is logged and the last error is returned wrapped.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes fn and returns its result, retrying with
// exponential backoff like Retry.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = DefaultAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return result, Wrapf(lastErr, "%s: context cancelled after %d attempts", cfg.Label, attempt-1)
			}
			return result, Wrapf(err, "%s: context cancelled before attempt", cfg.Label)
		}

		var err error
		result, err = fn()
		if err == nil {
			if attempt > 1 {
				slog.Debug("retry succeeded", "label", cfg.Label, "attempt", attempt)
			}
			return result, nil
		}
		lastErr = err

		// A typed error explicitly marked non-retryable is permanent;
		// untyped errors are assumed transient.
		if isPermanent(err) {
			return result, err
		}

		if attempt == attempts {
			break
		}

		delay := CalculateBackoff(cfg.BaseDelay, cfg.MaxDelay, attempt-1, cfg.Jitter)
		slog.Warn("attempt failed, backing off",
			"label", cfg.Label,
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return result, Wrapf(lastErr, "%s: context cancelled during backoff (attempt %d/%d)", cfg.Label, attempt, attempts)
		case <-time.After(delay):
		}
	}

	slog.Error("all attempts failed",
		"label", cfg.Label,
		"attempts", attempts,
		"error", lastErr,
	)
	return result, Wrapf(lastErr, "%s: failed after %d attempts", cfg.Label, attempts)
}

// isPermanent reports whether err carries an explicit non-retryable marker.
// Errors with no typed classification are treated as transient.
func isPermanent(err error) bool {
	var ghErr *GitHubError
	if As(err, &ghErr) {
		return !ghErr.Retryable
	}
	var tgErr *TelegramError
	if As(err, &tgErr) {
		return !tgErr.Retryable
	}
	var aiErr *AIError
	if As(err, &aiErr) {
		return !aiErr.Retryable
	}
	return false
}

// CalculateBackoff computes the delay for a retry using exponential backoff
// with jitter. Formula: delay = min(base * 2^n, max) * (1 - jitter/2 + jitter*rand()).
func CalculateBackoff(base, max time.Duration, n int, jitter float64) time.Duration {
	expDelay := float64(base) * math.Pow(2, float64(n))
	if expDelay > float64(max) {
		expDelay = float64(max)
	}

	if jitter <= 0 {
		return time.Duration(expDelay)
	}

	jitterMultiplier := 1.0 - jitter/2 + jitter*rand.Float64()
	return time.Duration(expDelay * jitterMultiplier)
}
