package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const validClientID = "143026764447-q4v3tsd826qj26jlnrivofl24m1vhpjm.apps.googleusercontent.com"

// baseTOML is the minimal set of keys every valid config needs.
const baseTOML = `
[backend]
client_base_url = "http://127.0.0.1:8000"
server_base_url = "http://backend:8000"

[oauth]
redirect_uri = "http://localhost:3000"
client_id = "` + validClientID + `"

[gate]
skip_middleware = "false"
`

// cliWithPath returns a CLI struct pointing at the given config file.
func cliWithPath(path string) *CLI {
	return &CLI{Config: path}
}

// writeConfig writes data to a config.toml inside a fresh temp dir and returns its path.
func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// validCLI returns CLI values that satisfy validation without any config file.
func validCLI() *CLI {
	return &CLI{
		APIBaseURLClient: "http://127.0.0.1:8000",
		APIBaseURLServer: "http://backend:8000",
		OAuthRedirectURI: "http://localhost:3000",
		OAuthClientID:    validClientID,
		SkipMiddleware:   "false",
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, baseTOML+`
[server]
host = "127.0.0.1"
port = 9000
body_max_bytes = 5242880

[mock]
api = "true"

[log]
level = "debug"
format = "text"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Backend.ServerBaseURL != "http://backend:8000" {
		t.Errorf("Backend.ServerBaseURL = %q, want %q", cfg.Backend.ServerBaseURL, "http://backend:8000")
	}
	if !cfg.Mock.API.Bool() {
		t.Error("Mock.API.Bool() = false, want true")
	}
	if cfg.Gate.SkipMiddleware.Bool() {
		t.Error("Gate.SkipMiddleware.Bool() = true, want false")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(cliWithPath(writeConfig(t, baseTOML)))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("default Server.Port = %d, want %d", cfg.Server.Port, 3000)
	}
	if cfg.Server.BodyMaxBytes != 1024*1024 {
		t.Errorf("default Server.BodyMaxBytes = %d, want %d", cfg.Server.BodyMaxBytes, 1024*1024)
	}
	if cfg.Backend.TimeoutSeconds != 10 {
		t.Errorf("default Backend.TimeoutSeconds = %d, want %d", cfg.Backend.TimeoutSeconds, 10)
	}
	if cfg.Mock.API != "false" {
		t.Errorf("default Mock.API = %q, want %q", cfg.Mock.API, "false")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("default Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(cliWithPath("/nonexistent/config.toml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	cfg, err := Load(validCLI())
	if err != nil {
		t.Fatalf("Load() error = %v; flags alone should be enough", err)
	}
	if cfg.OAuth.ClientID != validClientID {
		t.Errorf("OAuth.ClientID = %q, want %q", cfg.OAuth.ClientID, validClientID)
	}
	if cfg.filePath != "" {
		t.Errorf("filePath = %q, want empty", cfg.filePath)
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	path := writeConfig(t, baseTOML+`
[server]
host = "0.0.0.0"
port = 3000

[log]
level = "info"
`)

	cli := &CLI{
		Config:           path,
		Host:             "127.0.0.1",
		Port:             4000,
		APIBaseURLServer: "https://api.shallwe.example",
		SkipMiddleware:   "true",
		MockAPI:          "true",
		LogLevel:         "debug",
	}

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q (CLI override)", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want %d (CLI override)", cfg.Server.Port, 4000)
	}
	if cfg.Backend.ServerBaseURL != "https://api.shallwe.example" {
		t.Errorf("Backend.ServerBaseURL = %q, want CLI override", cfg.Backend.ServerBaseURL)
	}
	if !cfg.Gate.SkipMiddleware.Bool() {
		t.Error("Gate.SkipMiddleware should be overridden to true")
	}
	if !cfg.Mock.API.Bool() {
		t.Error("Mock.API should be overridden to true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (CLI override)", cfg.Log.Level, "debug")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *CLI)
		wantSub string
	}{
		{"missing client base url", func(c *CLI) { c.APIBaseURLClient = "" }, "backend.client_base_url"},
		{"relative server base url", func(c *CLI) { c.APIBaseURLServer = "/api" }, "backend.server_base_url"},
		{"non-http redirect uri", func(c *CLI) { c.OAuthRedirectURI = "ftp://localhost" }, "oauth.redirect_uri"},
		{"short client id", func(c *CLI) { c.OAuthClientID = ".apps.googleusercontent.com" }, "at least 28"},
		{"wrong client id suffix", func(c *CLI) { c.OAuthClientID = "143026764447-q4v3tsd826qj26jlnrivofl24m1vhpjm.example.com" }, "oauth.client_id"},
		{"missing skip flag", func(c *CLI) { c.SkipMiddleware = "" }, "gate.skip_middleware"},
		{"loose skip flag", func(c *CLI) { c.SkipMiddleware = "TRUE" }, "gate.skip_middleware"},
		{"loose mock flag", func(c *CLI) { c.MockAPI = "1" }, "mock.api"},
		{"bad log level", func(c *CLI) { c.LogLevel = "verbose" }, "log.level"},
		{"negative port", func(c *CLI) { c.Port = -1 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := validCLI()
			tt.mutate(cli)

			_, err := Load(cli)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoad_NegativeBodyMaxBytes(t *testing.T) {
	path := writeConfig(t, baseTOML+`
[server]
body_max_bytes = -1
`)

	_, err := Load(cliWithPath(path))
	if err == nil {
		t.Fatal("Load() expected error for negative body_max_bytes, got nil")
	}
}

func TestLoad_NegativeTimeout(t *testing.T) {
	path := writeConfig(t, `
[backend]
client_base_url = "http://127.0.0.1:8000"
server_base_url = "http://backend:8000"
timeout_seconds = -5

[oauth]
redirect_uri = "http://localhost:3000"
client_id = "`+validClientID+`"

[gate]
skip_middleware = "false"
`)

	_, err := Load(cliWithPath(path))
	if err == nil {
		t.Fatal("Load() expected error for negative timeout, got nil")
	}
}

func TestLoad_RateLimitConfig_Enabled(t *testing.T) {
	path := writeConfig(t, baseTOML+`
[server.rate_limit]
enabled = true
requests_per_second = 50.0
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Server.RateLimit.Enabled {
		t.Error("expected RateLimit.Enabled = true")
	}
	if cfg.Server.RateLimit.RequestsPerSecond != 50.0 {
		t.Errorf("RateLimit.RequestsPerSecond = %v, want 50.0", cfg.Server.RateLimit.RequestsPerSecond)
	}
}

func TestLoad_RateLimitConfig_BadValue(t *testing.T) {
	path := writeConfig(t, baseTOML+`
[server.rate_limit]
enabled = true
requests_per_second = 0
`)

	_, err := Load(cliWithPath(path))
	if err == nil {
		t.Fatal("Load() expected error for rate limit enabled with requests_per_second=0, got nil")
	}
	if !strings.Contains(err.Error(), "requests_per_second") {
		t.Errorf("error = %q, want mention of requests_per_second", err)
	}
}

func TestLoad_MetricsPathConflictsWithRoute(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"root", "/"},
		{"api/rest", "/api/rest"},
		{"api/rest sub", "/api/rest/metrics"},
		{"admin sub", "/admin/metrics"},
		{"healthz", "/healthz"},
		{"gate/status", "/gate/status"},
		{"search", "/search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, baseTOML+`
[metrics]
enabled = true
path = "`+tt.path+`"
`)

			_, err := Load(cliWithPath(path))
			if err == nil {
				t.Fatalf("Load() expected error for metrics.path=%q conflicting with route, got nil", tt.path)
			}
			if !strings.Contains(err.Error(), "conflicts") {
				t.Errorf("error = %q, want mention of conflict", err)
			}
		})
	}
}

func TestLoad_MetricsPathNoLeadingSlash(t *testing.T) {
	path := writeConfig(t, baseTOML+`
[metrics]
enabled = true
path = "metrics"
`)

	_, err := Load(cliWithPath(path))
	if err == nil {
		t.Fatal("Load() expected error for metrics.path without leading slash, got nil")
	}
}

func TestLoad_MetricsDisabledSkipsPathValidation(t *testing.T) {
	path := writeConfig(t, baseTOML+`
[metrics]
enabled = false
path = "bad-no-slash"
`)

	if _, err := Load(cliWithPath(path)); err != nil {
		t.Fatalf("Load() error = %v; disabled metrics should skip path validation", err)
	}
}

func TestFlag_Bool(t *testing.T) {
	tests := []struct {
		flag Flag
		want bool
	}{
		{"true", true},
		{"false", false},
		{"", false},
		{"True", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.flag), func(t *testing.T) {
			if got := tt.flag.Bool(); got != tt.want {
				t.Errorf("Flag(%q).Bool() = %v, want %v", tt.flag, got, tt.want)
			}
		})
	}
}

func TestWarnPermissions_Loose(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not meaningful on Windows")
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("# test"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{filePath: path}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg.WarnPermissions(logger)

	if !strings.Contains(buf.String(), "readable by group/others") {
		t.Errorf("expected permission warning, got: %q", buf.String())
	}
}

func TestWarnPermissions_NoFile(t *testing.T) {
	cfg := &Config{}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg.WarnPermissions(logger)

	if buf.Len() != 0 {
		t.Errorf("expected no warning without a config file, got: %q", buf.String())
	}
}

func TestFindConfigInPaths_Priority(t *testing.T) {
	path1 := filepath.Join(t.TempDir(), "config.toml")
	path2 := filepath.Join(t.TempDir(), "config.toml")
	for _, p := range []string{path1, path2} {
		if err := os.WriteFile(p, []byte(baseTOML), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := findConfigInPaths([]string{"/nonexistent/a.toml", path1, path2}); got != path1 {
		t.Errorf("findConfigInPaths() = %q, want first match %q", got, path1)
	}
	if got := findConfigInPaths([]string{"/nonexistent/a.toml"}); got != "" {
		t.Errorf("findConfigInPaths() = %q, want empty", got)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	sc := &ServerConfig{Host: "127.0.0.1", Port: 3000}
	want := "127.0.0.1:3000"
	if got := sc.Addr(); got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}
