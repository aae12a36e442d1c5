package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shallwe-gate/internal/bootstrap"
	"shallwe-gate/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	sw      *bootstrap.Switch
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version, sw *bootstrap.Switch) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, sw: sw}
}

// Healthz returns a simple OK response for liveness probes. It does not wait for
// the bootstrap switch.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// gateStatus is the /gate/status payload.
type gateStatus struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	ClientBaseURL string `json:"client_base_url"`
	ServerBaseURL string `json:"server_base_url"`
	MockAPI       bool   `json:"mock_api"`
	GateSkipped   bool   `json:"gate_skipped"`
	Ready         bool   `json:"ready"`
}

// Status reports configuration and readiness. It answers 503 until ready.
func (h *HealthHandler) Status(c echo.Context) error {
	s := gateStatus{
		Status:        "ok",
		Version:       string(h.version),
		ClientBaseURL: h.cfg.Backend.ClientBaseURL,
		ServerBaseURL: h.cfg.Backend.ServerBaseURL,
		MockAPI:       h.cfg.Mock.API.Bool(),
		GateSkipped:   h.cfg.Gate.SkipMiddleware.Bool(),
		Ready:         h.sw.Ready(),
	}
	code := http.StatusOK
	if !s.Ready {
		s.Status = "starting"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, s)
}
