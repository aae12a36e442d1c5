package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"shallwe-gate/internal/bootstrap"
	"shallwe-gate/internal/config"
	"shallwe-gate/internal/gate"
	"shallwe-gate/internal/metrics"
	"shallwe-gate/internal/middleware"
	"shallwe-gate/internal/mockapi"
)

// Routes collects everything RegisterRoutes needs.
type Routes struct {
	fx.In

	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Gate      *gate.Gate
	Switch    *bootstrap.Switch
	Responder *mockapi.Responder
	Pages     *PageHandler
	Actions   *ActionHandler
	Health    *HealthHandler
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, r Routes) {
	e.GET("/healthz", r.Health.Healthz)
	e.GET("/gate/status", r.Health.Status)

	if r.Config.Metrics.Enabled {
		e.GET(r.Config.Metrics.Path, echo.WrapHandler(
			promhttp.HandlerFor(r.Metrics.Registry, promhttp.HandlerOpts{}),
		))
	}

	ready := middleware.RequireReady(r.Switch)
	gated := middleware.ProfileGate(r.Gate, r.Logger)

	e.GET(gate.RootPath, r.Pages.Home, ready, gated)
	e.GET(gate.SetupPath, r.Pages.Setup, ready, gated)
	e.GET(gate.SearchPath, r.Pages.Search, ready, gated)
	e.GET(gate.ContactsPath, r.Pages.Contacts, ready, gated)
	e.GET(gate.SettingsPath, r.Pages.Settings, ready, gated)
	e.GET(gate.AdminPrefix, r.Pages.Admin, ready, gated)
	e.GET(gate.AdminPrefix+"/*", r.Pages.Admin, ready, gated)

	e.POST("/actions/logout", r.Actions.Logout, ready)
	e.POST("/actions/delete-account", r.Actions.DeleteAccount, ready)
	e.GET("/actions/test-unprotected", r.Actions.TestUnprotected, ready)
	e.GET("/actions/test-protected", r.Actions.TestProtected, ready)

	if r.Config.Mock.API.Bool() {
		e.Any("/api/rest/*", r.Responder.Handle, ready)
	}
}
