package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"

	"shallwe-gate/internal/config"
	"shallwe-gate/internal/gate"
	"shallwe-gate/internal/service"
)

// googleAuthURL is Google's OAuth 2.0 consent endpoint.
const googleAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

// pageAction is a button on a rendered page that calls an /actions endpoint.
type pageAction struct {
	Label  string
	Method string
	Href   string
	Reload bool
}

// pageData is the template payload for every page.
type pageData struct {
	Title     string
	Color     string
	GoogleURL string
	Error     string
	Actions   []pageAction
}

var (
	logoutAction        = pageAction{Label: "Logout", Method: http.MethodPost, Href: "/actions/logout", Reload: true}
	deleteAction        = pageAction{Label: "Delete Account", Method: http.MethodPost, Href: "/actions/delete-account", Reload: true}
	testProtectedAction = pageAction{Label: "Test Protected API", Method: http.MethodGet, Href: "/actions/test-protected"}
	testUnprotected     = pageAction{Label: "Test Unprotected API", Method: http.MethodGet, Href: "/actions/test-unprotected"}
)

// NewOAuthConfig builds the Google OAuth client used for the consent link.
func NewOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    cfg.OAuth.ClientID,
		RedirectURL: cfg.OAuth.RedirectURI,
		Scopes:      []string{"openid"},
		Endpoint: oauth2.Endpoint{
			AuthURL: googleAuthURL,
		},
	}
}

// PageHandler renders the gated HTML pages.
type PageHandler struct {
	backend *service.BackendService
	oauth   *oauth2.Config
	logger  *slog.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(backend *service.BackendService, oauth *oauth2.Config, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		backend: backend,
		oauth:   oauth,
		logger:  logger.With("component", "page_handler"),
	}
}

// GoogleLoginURL is the consent URL that sends the user back to the home page with a code.
func (h *PageHandler) GoogleLoginURL() string {
	return h.oauth.AuthCodeURL("",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Home renders the landing page. A code query parameter is exchanged for a
// backend session first; on success the session cookies are passed on and the
// browser is sent back to a clean "/".
func (h *PageHandler) Home(c echo.Context) error {
	data := pageData{
		Title:     "Landing",
		Color:     "#FF6347",
		GoogleURL: h.GoogleLoginURL(),
		Actions:   []pageAction{testUnprotected},
	}

	code := c.QueryParam("code")
	if code == "" {
		return c.Render(http.StatusOK, "page", data)
	}

	resp, err := h.backend.LoginGoogle(c.Request().Context(), code)
	if err != nil {
		h.logger.Error("google login failed", "err", err)
		data.Error = "Google login failed."
		return c.Render(http.StatusBadGateway, "page", data)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.logger.Warn("google login rejected", "status", resp.StatusCode)
		data.Error = "Google login was rejected."
		return c.Render(http.StatusUnauthorized, "page", data)
	}

	for _, v := range resp.Header.Values("Set-Cookie") {
		c.Response().Header().Add("Set-Cookie", v)
	}
	h.logger.Info("google login succeeded")
	return c.Redirect(http.StatusSeeOther, gate.RootPath)
}

// Setup renders the profile setup page.
func (h *PageHandler) Setup(c echo.Context) error {
	return c.Render(http.StatusOK, "page", pageData{
		Title:   "Setup",
		Color:   "#7FFFD4",
		Actions: []pageAction{logoutAction},
	})
}

// Search renders the search page.
func (h *PageHandler) Search(c echo.Context) error {
	return c.Render(http.StatusOK, "page", pageData{
		Title:   "Search",
		Color:   "#F0E68C",
		Actions: []pageAction{logoutAction, testProtectedAction, deleteAction},
	})
}

// Contacts renders the contacts page.
func (h *PageHandler) Contacts(c echo.Context) error {
	return c.Render(http.StatusOK, "page", pageData{
		Title:   "Contacts",
		Color:   "#87CEEB",
		Actions: []pageAction{logoutAction},
	})
}

// Settings renders the settings page.
func (h *PageHandler) Settings(c echo.Context) error {
	return c.Render(http.StatusOK, "page", pageData{
		Title:   "Settings",
		Color:   "#FFA07A",
		Actions: []pageAction{logoutAction},
	})
}

// Admin is only reached when the gate is skipped; the admin site lives on the backend.
func (h *PageHandler) Admin(_ echo.Context) error {
	return echo.ErrNotFound
}
