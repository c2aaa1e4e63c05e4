package errors

import (
	"context"
	"testing"
	"time"
)

func testRetryConfig(attempts int, base time.Duration) RetryConfig {
	return RetryConfig{
		Attempts:  attempts,
		BaseDelay: base,
		MaxDelay:  time.Second,
		Jitter:    0,
		Label:     "test",
	}
}

func TestRetry_SucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), testRetryConfig(3, time.Millisecond), func() error {
		calls++
		if calls < 3 {
			return New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Retry(context.Background(), testRetryConfig(3, 10*time.Millisecond), func() error {
		calls++
		return New("always fails")
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Retry() should return the last error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly 3", calls)
	}
	// Backoff is base + 2*base = 30ms of cumulative sleep.
	if elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 30ms of backoff", elapsed)
	}
}

func TestRetry_PermanentErrorStopsEarly(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), testRetryConfig(3, time.Millisecond), func() error {
		calls++
		return NewGitHubErrorWithStatus("GetContents", 404, "not found")
	})
	if err == nil {
		t.Fatal("Retry() should return the permanent error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent error)", calls)
	}
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), testRetryConfig(3, time.Millisecond), func() (string, error) {
		calls++
		if calls < 2 {
			return "", New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("RetryWithResult() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("result = %q, want %q", got, "ok")
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, testRetryConfig(5, 500*time.Millisecond), func() error {
		calls++
		return New("transient")
	})
	if err == nil {
		t.Fatal("Retry() should fail when context is cancelled")
	}
	if calls >= 5 {
		t.Errorf("calls = %d, cancellation should stop attempts early", calls)
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		max     time.Duration
		n       int
		want    time.Duration
	}{
		{name: "first backoff", base: time.Second, max: 30 * time.Second, n: 0, want: time.Second},
		{name: "second backoff doubles", base: time.Second, max: 30 * time.Second, n: 1, want: 2 * time.Second},
		{name: "capped at max", base: time.Second, max: 4 * time.Second, n: 10, want: 4 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateBackoff(tt.base, tt.max, tt.n, 0)
			if got != tt.want {
				t.Errorf("CalculateBackoff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_JitterBounds(t *testing.T) {
	for range 50 {
		got := CalculateBackoff(time.Second, 30*time.Second, 0, DefaultJitter)
		lo := time.Duration(float64(time.Second) * (1 - DefaultJitter/2))
		hi := time.Duration(float64(time.Second) * (1 + DefaultJitter/2))
		if got < lo || got > hi {
			t.Fatalf("jittered backoff %v out of range [%v, %v]", got, lo, hi)
		}
	}
}
