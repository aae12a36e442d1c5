package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"shallwe-gate/internal/metrics"
)

// MetricsMiddleware returns an Echo middleware that records Prometheus metrics for
// each inbound request. Requests for which skip returns true are not recorded; pass
// nil to record everything.
func MetricsMiddleware(m *metrics.Metrics, skip echomw.Skipper) echo.MiddlewareFunc {
	if skip == nil {
		skip = echomw.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip(c) {
				return next(c)
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()

			err := next(c)

			// A handler returning *echo.HTTPError has not written its status yet;
			// the central error handler does that after us.
			statusCode := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					statusCode = he.Code
				}
			}

			status := strconv.Itoa(statusCode)
			method := metrics.NormalizeMethod(c.Request().Method)
			path := metrics.NormalizePath(c.Request().URL.Path)

			m.RequestsTotal.WithLabelValues(method, status, path).Inc()
			m.RequestDuration.WithLabelValues(method, status, path).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// SkipPath returns a Skipper matching one exact request path, e.g. the metrics endpoint.
func SkipPath(path string) echomw.Skipper {
	return func(c echo.Context) bool {
		return c.Request().URL.Path == path
	}
}
