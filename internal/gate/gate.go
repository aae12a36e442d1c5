// Package gate decides where a page navigation lands based on the backend's
// profile status.
//
// The backend encodes session state as a bare status code on
// /api/rest/access/profile-status: 200 means signed in with a profile,
// 403 means anonymous, 404 means signed in but setup is unfinished. Decide maps
// that code plus the requested path to a Decision; Gate adds the outbound call,
// the /admin hand-off to the backend, and the global off switch.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"shallwe-gate/internal/config"
	"shallwe-gate/internal/metrics"
	"shallwe-gate/internal/model"
	"shallwe-gate/internal/service"
)

// Page paths the gate knows about.
const (
	RootPath     = "/"
	SetupPath    = "/setup"
	SearchPath   = "/search"
	SettingsPath = "/settings"
	ContactsPath = "/contacts"
	AdminPrefix  = "/admin"
)

// GatedPages lists the page routes that go through the gate, admin excluded.
var GatedPages = []string{RootPath, SetupPath, SettingsPath, ContactsPath, SearchPath}

// Decide maps (path, status) to a Decision. Rules are checked in order and the
// first match wins; unknown status codes always allow.
func Decide(path string, status int) model.Decision {
	switch {
	case status == http.StatusForbidden && path != RootPath:
		return model.RedirectTo(RootPath)
	case status == http.StatusNotFound && path != SetupPath:
		return model.RedirectTo(SetupPath)
	case status == http.StatusOK && path == RootPath:
		return model.RedirectTo(SearchPath)
	case status == http.StatusOK && path == SetupPath:
		return model.RedirectTo(SettingsPath)
	default:
		return model.Allow()
	}
}

// IsAdminPath reports whether path belongs to the backend admin site.
func IsAdminPath(path string) bool {
	return path == AdminPrefix || strings.HasPrefix(path, AdminPrefix+"/")
}

// Gate evaluates navigations against the profile-status endpoint.
type Gate struct {
	checker   service.StatusChecker
	adminBase *url.URL
	skip      bool
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates a Gate. Admin redirects target backend.client_base_url because the
// browser follows them. The metrics parameter is optional.
func New(cfg *config.Config, checker service.StatusChecker, logger *slog.Logger, m *metrics.Metrics) (*Gate, error) {
	u, err := url.Parse(cfg.Backend.ClientBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend client_base_url: %w", err)
	}

	g := &Gate{
		checker:   checker,
		adminBase: u,
		skip:      cfg.Gate.SkipMiddleware.Bool(),
		logger:    logger.With("component", "gate"),
		metrics:   m,
	}
	if g.skip {
		g.logger.Warn("profile gate disabled; every navigation passes through")
	}
	return g, nil
}

// Skipped reports whether the gate is disabled by configuration.
func (g *Gate) Skipped() bool {
	return g.skip
}

// AdminRedirect moves u onto the backend admin host, keeping path and query
// except for any "next" parameter.
func (g *Gate) AdminRedirect(u *url.URL) string {
	r := *u
	r.Scheme = g.adminBase.Scheme
	r.Host = g.adminBase.Host
	r.User = nil

	q := r.Query()
	q.Del("next")
	r.RawQuery = q.Encode()

	return r.String()
}

// Evaluate produces the Decision for one navigation. Admin paths and a disabled
// gate never contact the backend; everything else costs exactly one status call.
// Checker errors are returned as-is and never retried.
func (g *Gate) Evaluate(ctx context.Context, nav model.NavigationRequest) (model.Decision, error) {
	if g.skip {
		return g.record(model.Allow(), ""), nil
	}

	if IsAdminPath(nav.URL.Path) {
		return g.record(model.RedirectTo(g.AdminRedirect(nav.URL)), AdminPrefix), nil
	}

	status, err := g.checker.ProfileStatus(ctx, nav.Cookie)
	if err != nil {
		if g.metrics != nil {
			g.metrics.GateDecisions.WithLabelValues("error", "").Inc()
		}
		return model.Decision{}, fmt.Errorf("gate %s: %w", nav.URL.Path, err)
	}

	d := Decide(nav.URL.Path, status)
	if d.IsRedirect() {
		g.logger.Debug("redirecting navigation",
			"path", nav.URL.Path,
			"profile_status", status,
			"location", d.Location,
		)
	}
	return g.record(d, d.Location), nil
}

func (g *Gate) record(d model.Decision, target string) model.Decision {
	if g.metrics != nil {
		g.metrics.GateDecisions.WithLabelValues(string(d.Action), target).Inc()
	}
	return d
}
