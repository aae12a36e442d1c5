// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// googleClientIDSuffix is the suffix every Google OAuth web client ID carries.
const googleClientIDSuffix = ".apps.googleusercontent.com"

// minClientIDLength is the shortest client ID accepted.
const minClientIDLength = 28

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/shallwe-gate/config.toml",
	"configs/config.toml",
}

// reservedRoutes are paths owned by the gateway itself; metrics.path may not shadow them.
var reservedRoutes = []string{
	"/api/rest", "/actions", "/admin", "/healthz", "/gate/status",
	"/setup", "/search", "/contacts", "/settings",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config           string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host             string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port             int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	APIBaseURLClient string `kong:"name='api-base-url-client',help='Backend base URL as seen by browsers.',env='SHALLWE_API_BASE_URL_CLIENT'"`
	APIBaseURLServer string `kong:"name='api-base-url-server',help='Backend base URL as seen by this server.',env='SHALLWE_API_BASE_URL_SERVER'"`
	OAuthRedirectURI string `kong:"name='oauth-redirect-uri',help='Google OAuth redirect URI.',env='SHALLWE_OAUTH_REDIRECT_URI'"`
	OAuthClientID    string `kong:"name='oauth-client-id',help='Google OAuth client ID.',env='SHALLWE_OAUTH_CLIENT_ID'"`
	SkipMiddleware   string `kong:"help='Disable the profile-status gate: true|false.',env='SHALLWE_SKIP_MIDDLEWARE'"`
	MockAPI          string `kong:"name='mock-api',help='Serve backend calls from the in-process mock: true|false.',env='SHALLWE_MOCK_API'"`
	LogLevel         string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Flag is a boolean carried as the exact strings "true" or "false".
type Flag string

// Bool reports whether the flag is exactly "true".
func (f Flag) Bool() bool {
	return f == "true"
}

func (f Flag) valid() bool {
	return f == "true" || f == "false"
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	OAuth   OAuthConfig   `toml:"oauth"`
	Gate    GateConfig    `toml:"gate"`
	Mock    MockConfig    `toml:"mock"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (3000)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// BackendConfig describes the Shallwe backend API.
// ClientBaseURL is what browsers reach (admin redirects); ServerBaseURL is what this
// process calls (status checks, login exchange).
type BackendConfig struct {
	ClientBaseURL   string `toml:"client_base_url"`
	ServerBaseURL   string `toml:"server_base_url"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	IdleConnections int    `toml:"idle_connections"`
}

// OAuthConfig holds the Google OAuth client settings used to build the consent link.
type OAuthConfig struct {
	RedirectURI string `toml:"redirect_uri"`
	ClientID    string `toml:"client_id"`
}

// GateConfig controls the profile-status gate.
type GateConfig struct {
	SkipMiddleware Flag `toml:"skip_middleware"`
}

// MockConfig controls the in-process mock backend.
type MockConfig struct {
	API Flag `toml:"api"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file (if any) and applies CLI and environment overrides.
// An explicit path (--config or CONFIG_PATH) must exist. Otherwise
// /etc/shallwe-gate/config.toml then configs/config.toml are tried, and when neither
// exists the configuration comes from flags and environment alone.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.APIBaseURLClient != "" {
		c.Backend.ClientBaseURL = cli.APIBaseURLClient
	}
	if cli.APIBaseURLServer != "" {
		c.Backend.ServerBaseURL = cli.APIBaseURLServer
	}
	if cli.OAuthRedirectURI != "" {
		c.OAuth.RedirectURI = cli.OAuthRedirectURI
	}
	if cli.OAuthClientID != "" {
		c.OAuth.ClientID = cli.OAuthClientID
	}
	if cli.SkipMiddleware != "" {
		c.Gate.SkipMiddleware = Flag(cli.SkipMiddleware)
	}
	if cli.MockAPI != "" {
		c.Mock.API = Flag(cli.MockAPI)
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// URLs: required and absolute.
	if err := validateURL("backend.client_base_url", c.Backend.ClientBaseURL); err != nil {
		return err
	}
	if err := validateURL("backend.server_base_url", c.Backend.ServerBaseURL); err != nil {
		return err
	}
	if err := validateURL("oauth.redirect_uri", c.OAuth.RedirectURI); err != nil {
		return err
	}

	if len(c.OAuth.ClientID) < minClientIDLength {
		return fmt.Errorf("oauth.client_id must be at least %d characters; got %d", minClientIDLength, len(c.OAuth.ClientID))
	}
	if !strings.HasSuffix(c.OAuth.ClientID, googleClientIDSuffix) {
		return fmt.Errorf("oauth.client_id must be a Google OAuth client ID ending with %s", googleClientIDSuffix)
	}

	if !c.Gate.SkipMiddleware.valid() {
		return fmt.Errorf("gate.skip_middleware must be exactly 'true' or 'false'; got %q", c.Gate.SkipMiddleware)
	}
	if c.Mock.API != "" && !c.Mock.API.valid() {
		return fmt.Errorf("mock.api must be exactly 'true' or 'false'; got %q", c.Mock.API)
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Backend.TimeoutSeconds < 0 {
		return fmt.Errorf("backend.timeout_seconds must be non-negative; got %d", c.Backend.TimeoutSeconds)
	}
	if c.Backend.IdleConnections < 0 {
		return fmt.Errorf("backend.idle_connections must be non-negative; got %d", c.Backend.IdleConnections)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		if p == "/" {
			return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, "/")
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https; got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host; got %q", key, raw)
	}
	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 1024 * 1024 // 1 MB
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 10
	}
	if c.Backend.IdleConnections == 0 {
		c.Backend.IdleConnections = 100
	}
	if c.Mock.API == "" {
		c.Mock.API = "false"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
