package handler

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/hypeshelf/internal/domain"
)

// TokenValidator verifies bearer access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (domain.Identity, error)
}

// HTTPRecorder records per-request metrics.
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			attrs := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if identity, ok := domain.IdentityFromContext(c.Request().Context()); ok {
				attrs = append(attrs, "subject", identity.Subject)
			}
			slog.Info("http request", attrs...)

			return nil
		}
	}
}

// Metrics records request counts and latency labelled by the route pattern.
func Metrics(rec HTTPRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			rec.RecordHTTPRequest(c.Request().Method, route, c.Response().Status, time.Since(start))
			return nil
		}
	}
}

// Identify verifies the optional Bearer token and stores the caller's identity
// in the request context. Requests without an Authorization header continue
// anonymously; a malformed or invalid token is rejected.
func Identify(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return domain.ErrUnauthenticated
			}

			identity, err := tokens.ValidateToken(token)
			if err != nil {
				return domain.ErrUnauthenticated
			}

			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithIdentity(req.Context(), identity)))
			return next(c)
		}
	}
}
