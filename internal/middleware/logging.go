// Package middleware provides Echo middleware for logging, security, metrics,
// readiness and the profile-status gate.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// Server errors log at error level; redirects include their Location.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			}
			if loc := res.Header().Get(echo.HeaderLocation); loc != "" {
				attrs = append(attrs, "location", loc)
			}

			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			}
			logger.Log(req.Context(), level, "request", attrs...)

			return err
		}
	}
}
