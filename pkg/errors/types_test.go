package errors

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestGitHubError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *GitHubError
		expected string
	}{
		{
			name: "with status code",
			err: &GitHubError{
				Operation:  "RepositoryDispatch",
				StatusCode: 502,
				Message:    "bad gateway",
			},
			expected: "github RepositoryDispatch failed (HTTP 502): bad gateway",
		},
		{
			name: "without status code",
			err: &GitHubError{
				Operation: "ListWorkflowRuns",
				Message:   "connection refused",
			},
			expected: "github ListWorkflowRuns failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestWebhookError_Error(t *testing.T) {
	err := NewWebhookError("github", "signature mismatch")
	want := "webhook from github rejected: signature mismatch"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "retryable github status",
			err:  NewGitHubErrorWithStatus("ListWorkflowRuns", 503, "unavailable"),
			want: true,
		},
		{
			name: "non-retryable github status",
			err:  NewGitHubErrorWithStatus("RepositoryDispatch", 404, "not found"),
			want: false,
		},
		{
			name: "retryable telegram 429",
			err:  NewTelegramErrorWithStatus("SendMessage", 429, "too many requests"),
			want: true,
		},
		{
			name: "wrapped retryable error",
			err:  errors.Wrap(NewAIErrorWithStatus("anthropic", "Chat", 500, "overloaded"), "chat failed"),
			want: true,
		},
		{
			name: "plain error has no marker",
			err:  errors.New("boom"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	if isPermanent(errors.New("transient-by-default")) {
		t.Error("untyped error should not be permanent")
	}
	if !isPermanent(NewGitHubErrorWithStatus("GetContents", 404, "not found")) {
		t.Error("404 github error should be permanent")
	}
	if isPermanent(NewTelegramErrorWithStatus("SendMessage", 502, "bad gateway")) {
		t.Error("502 telegram error should be retryable")
	}
}

func TestErrorPredicates(t *testing.T) {
	wrapped := errors.Wrap(NewConfigError("telegram.bot_token", "required"), "startup")
	if !IsConfigError(wrapped) {
		t.Error("IsConfigError should see through wrapping")
	}
	if IsGitHubError(wrapped) {
		t.Error("IsGitHubError should not match a ConfigError")
	}
	if !IsRateLimitError(NewRateLimitError("/chat")) {
		t.Error("IsRateLimitError should match RateLimitError")
	}
	if !IsValidationError(NewValidationError("description", "required")) {
		t.Error("IsValidationError should match ValidationError")
	}
}
