package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"shallwe-gate/internal/bootstrap"
	"shallwe-gate/internal/gate"
	"shallwe-gate/internal/model"
)

// ProfileGate returns an Echo middleware that runs every navigation through g.
// A failed status check lets the navigation through rather than locking users out.
func ProfileGate(g *gate.Gate, logger *slog.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "profile_gate")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			d, err := g.Evaluate(req.Context(), model.NavigationRequest{
				URL:    req.URL,
				Cookie: req.Header.Get("Cookie"),
			})
			if err != nil {
				logger.Warn("status check failed; allowing navigation",
					"err", err,
					"path", req.URL.Path,
				)
				return next(c)
			}

			if d.IsRedirect() {
				return c.Redirect(http.StatusTemporaryRedirect, d.Location)
			}
			return next(c)
		}
	}
}

// RequireReady returns an Echo middleware that answers 503 until sw is ready.
func RequireReady(sw *bootstrap.Switch) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !sw.Ready() {
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"error": "starting up",
				})
			}
			return next(c)
		}
	}
}
