package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError is the sanitized error body. Upstream detail stays in logs.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// JSON writes a JSON response with the standard envelope.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Data: data})
}

// HTTPErrorHandler is the global error handler for echo.
func (s *Server) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, apiErr := s.mapError(err, c)
	if jsonErr := c.JSON(status, Envelope{Error: &apiErr}); jsonErr != nil {
		s.logger.Error("failed to send error response", "error", jsonErr)
	}
}

func (s *Server) mapError(err error, c echo.Context) (int, APIError) {
	var echoErr *echo.HTTPError
	if rferrors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, APIError{Code: http.StatusText(echoErr.Code), Message: msg}
	}

	var validationErr *rferrors.ValidationError
	if rferrors.As(err, &validationErr) {
		return http.StatusBadRequest, APIError{
			Code:    "validation_error",
			Message: validationErr.Message,
			Field:   validationErr.Field,
		}
	}

	var webhookErr *rferrors.WebhookError
	if rferrors.As(err, &webhookErr) {
		s.logger.Warn("rejected request",
			"path", c.Request().URL.Path,
			"source", webhookErr.Source,
			"reason", webhookErr.Reason,
		)
		return http.StatusUnauthorized, APIError{
			Code:    "unauthorized",
			Message: "Authentication failed",
		}
	}

	var rateErr *rferrors.RateLimitError
	if rferrors.As(err, &rateErr) {
		c.Response().Header().Set("Retry-After", "60")
		return http.StatusTooManyRequests, APIError{
			Code:    "rate_limited",
			Message: "Too many requests",
		}
	}

	if rferrors.IsGitHubError(err) || rferrors.IsTelegramError(err) || rferrors.IsAIError(err) {
		s.logger.Error("upstream error", "path", c.Request().URL.Path, "error", err)
		return http.StatusInternalServerError, APIError{
			Code:    "upstream_error",
			Message: "An upstream service failed",
		}
	}

	s.logger.Error("unhandled error", "path", c.Request().URL.Path, "error", err)
	return http.StatusInternalServerError, APIError{
		Code:    "internal_error",
		Message: "An unexpected error occurred",
	}
}
