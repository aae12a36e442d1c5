package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"shallwe-gate/internal/model"
	"shallwe-gate/internal/service"
)

const (
	csrfCookieName = "csrftoken"
	csrfHeaderName = "X-CSRFToken"
)

// ActionHandler relays the page buttons to the backend auth API.
type ActionHandler struct {
	backend *service.BackendService
	logger  *slog.Logger
}

// NewActionHandler creates an ActionHandler.
func NewActionHandler(backend *service.BackendService, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{
		backend: backend,
		logger:  logger.With("component", "action_handler"),
	}
}

// Logout ends the backend session.
func (h *ActionHandler) Logout(c echo.Context) error {
	req := c.Request()
	resp, err := h.backend.Logout(req.Context(), req.Header.Get("Cookie"), csrfToken(c))
	return h.relay(c, resp, err)
}

// DeleteAccount removes the signed-in user.
func (h *ActionHandler) DeleteAccount(c echo.Context) error {
	req := c.Request()
	resp, err := h.backend.DeleteAccount(req.Context(), req.Header.Get("Cookie"), csrfToken(c))
	return h.relay(c, resp, err)
}

// TestUnprotected calls the backend's anonymous test endpoint.
func (h *ActionHandler) TestUnprotected(c echo.Context) error {
	req := c.Request()
	resp, err := h.backend.TestUnprotected(req.Context(), req.Header.Get("Cookie"))
	return h.relay(c, resp, err)
}

// TestProtected calls the backend's session-only test endpoint.
func (h *ActionHandler) TestProtected(c echo.Context) error {
	req := c.Request()
	resp, err := h.backend.TestProtected(req.Context(), req.Header.Get("Cookie"))
	return h.relay(c, resp, err)
}

// relay streams the backend response back to the browser.
func (h *ActionHandler) relay(c echo.Context, resp *model.BackendResponse, err error) error {
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// The status is already sent, so a failed copy leaves a truncated body.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", c.Request().URL.Path,
		)
	}

	return nil
}

func (h *ActionHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("backend error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "backend request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "backend host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "backend connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "backend request failed",
	})
}

// csrfToken prefers the header the page script sets and falls back to the
// csrftoken cookie.
func csrfToken(c echo.Context) string {
	if v := c.Request().Header.Get(csrfHeaderName); v != "" {
		return v
	}
	if ck, err := c.Cookie(csrfCookieName); err == nil {
		return ck.Value
	}
	return ""
}
