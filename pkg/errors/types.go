// Package errors provides typed errors for relayforge.
//
// This package defines domain-specific error types that provide structured
// error information for different subsystems (config, GitHub, Telegram, AI,
// webhook handling). All error types implement the standard error interface
// and support errors.Is() and errors.As() from the standard library and
// cockroachdb/errors.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Field   string // Which config field has the issue
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	}
	return "config error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with an underlying cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// GitHubError represents GitHub API errors.
type GitHubError struct {
	Operation  string // e.g., "RepositoryDispatch", "ListWorkflowRuns"
	StatusCode int    // HTTP status code if applicable
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *GitHubError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("github %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *GitHubError) Unwrap() error {
	return e.Cause
}

// NewGitHubError creates a new GitHubError.
func NewGitHubError(operation, message string) *GitHubError {
	return &GitHubError{Operation: operation, Message: message}
}

// NewGitHubErrorWithStatus creates a new GitHubError with HTTP status code.
func NewGitHubErrorWithStatus(operation string, statusCode int, message string) *GitHubError {
	return &GitHubError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableHTTPStatus(statusCode),
	}
}

// NewGitHubErrorWithCause creates a new GitHubError with an underlying cause.
func NewGitHubErrorWithCause(operation, message string, cause error) *GitHubError {
	return &GitHubError{
		Operation: operation,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// TelegramError represents Telegram Bot API errors.
type TelegramError struct {
	Operation  string // e.g., "SendMessage", "SetWebhook"
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *TelegramError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("telegram %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("telegram %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *TelegramError) Unwrap() error {
	return e.Cause
}

// NewTelegramError creates a new TelegramError.
func NewTelegramError(operation, message string) *TelegramError {
	return &TelegramError{Operation: operation, Message: message}
}

// NewTelegramErrorWithStatus creates a new TelegramError with HTTP status code.
func NewTelegramErrorWithStatus(operation string, statusCode int, message string) *TelegramError {
	return &TelegramError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableHTTPStatus(statusCode),
	}
}

// NewTelegramErrorWithCause creates a new TelegramError with an underlying cause.
func NewTelegramErrorWithCause(operation, message string, cause error) *TelegramError {
	return &TelegramError{
		Operation: operation,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// AIError represents AI provider errors.
type AIError struct {
	Provider   string // e.g., "anthropic"
	Operation  string // e.g., "Chat"
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ai %s %s failed (HTTP %d): %s", e.Provider, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ai %s %s failed: %s", e.Provider, e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// NewAIError creates a new AIError.
func NewAIError(provider, operation, message string) *AIError {
	return &AIError{Provider: provider, Operation: operation, Message: message}
}

// NewAIErrorWithStatus creates a new AIError with HTTP status code.
func NewAIErrorWithStatus(provider, operation string, statusCode int, message string) *AIError {
	return &AIError{
		Provider:   provider,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableHTTPStatus(statusCode),
	}
}

// NewAIErrorWithCause creates a new AIError with an underlying cause.
func NewAIErrorWithCause(provider, operation, message string, cause error) *AIError {
	return &AIError{
		Provider:  provider,
		Operation: operation,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// WebhookError represents inbound webhook authentication or parsing failures.
type WebhookError struct {
	Source string // "telegram" or "github"
	Reason string // e.g., "missing signature", "signature mismatch"
	Cause  error
}

// Error implements the error interface.
func (e *WebhookError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("webhook from %s rejected: %s", e.Source, e.Reason)
	}
	return "webhook rejected: " + e.Reason
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *WebhookError) Unwrap() error {
	return e.Cause
}

// NewWebhookError creates a new WebhookError.
func NewWebhookError(source, reason string) *WebhookError {
	return &WebhookError{Source: source, Reason: reason}
}

// RateLimitError is returned when a per-route request cap is exceeded.
type RateLimitError struct {
	Route string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry later", e.Route)
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(route string) *RateLimitError {
	return &RateLimitError{Route: route}
}

// ValidationError represents a malformed request body.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsRetryable checks if an error or any error in its chain is retryable.
// It returns true if the error itself is retryable, or if any wrapped error
// is marked as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return ghErr.Retryable
	}

	var tgErr *TelegramError
	if errors.As(err, &tgErr) {
		return tgErr.Retryable
	}

	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.Retryable
	}

	return false
}

// IsConfigError checks if an error or any error in its chain is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGitHubError checks if an error or any error in its chain is a GitHubError.
func IsGitHubError(err error) bool {
	var ghErr *GitHubError
	return errors.As(err, &ghErr)
}

// IsTelegramError checks if an error or any error in its chain is a TelegramError.
func IsTelegramError(err error) bool {
	var tgErr *TelegramError
	return errors.As(err, &tgErr)
}

// IsAIError checks if an error or any error in its chain is an AIError.
func IsAIError(err error) bool {
	var aiErr *AIError
	return errors.As(err, &aiErr)
}

// IsWebhookError checks if an error or any error in its chain is a WebhookError.
func IsWebhookError(err error) bool {
	var whErr *WebhookError
	return errors.As(err, &whErr)
}

// IsRateLimitError checks if an error or any error in its chain is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// IsValidationError checks if an error or any error in its chain is a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// isRetryableHTTPStatus returns true for HTTP status codes that are typically retryable.
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// Re-export commonly used functions from cockroachdb/errors for convenience.
// This allows consumers to use rferrors.Wrap() instead of importing two packages.
var (
	// New creates a new error with the given message.
	New = errors.New

	// Newf creates a new error with formatted message.
	Newf = errors.Newf

	// Wrap wraps an error with additional context.
	Wrap = errors.Wrap

	// Wrapf wraps an error with formatted additional context.
	Wrapf = errors.Wrapf

	// Is reports whether any error in err's chain matches target.
	Is = errors.Is

	// As finds the first error in err's chain that matches target.
	As = errors.As

	// Cause returns the root cause of an error.
	Cause = errors.Cause
)
