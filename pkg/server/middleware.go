package server

import (
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

// APIKeyHeader carries the shared key for the operator-facing endpoints.
const APIKeyHeader = "X-API-Key"

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			logger.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return err
		}
	}
}

// APIKeyAuth validates the shared api key header. An empty configured key
// disables the check; the security warning for that is logged at startup.
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}

			provided := c.Request().Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				return rferrors.NewWebhookError("api", "invalid api key")
			}
			return next(c)
		}
	}
}

const limiterTTL = 5 * time.Minute

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

// RateLimit enforces a per-client-IP request budget on one route group.
// perMinute <= 0 disables the limit.
func RateLimit(route string, perMinute int) echo.MiddlewareFunc {
	limiters := &sync.Map{} // client IP -> *cachedLimiter

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if perMinute <= 0 {
				return next(c)
			}

			limiter := getOrCreateLimiter(limiters, c.RealIP(), perMinute)
			if !limiter.Allow() {
				return rferrors.NewRateLimitError(route)
			}
			return next(c)
		}
	}
}

func getOrCreateLimiter(limiters *sync.Map, key string, perMinute int) *rate.Limiter {
	if cached, ok := limiters.Load(key); ok {
		entry := cached.(*cachedLimiter)
		if time.Now().Before(entry.expiresAt) {
			return entry.limiter
		}
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	limiters.Store(key, &cachedLimiter{
		limiter:   limiter,
		expiresAt: time.Now().Add(limiterTTL),
	})
	return limiter
}
