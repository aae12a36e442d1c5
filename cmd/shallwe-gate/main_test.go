package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"shallwe-gate/internal/config"
	"shallwe-gate/internal/metrics"
	"shallwe-gate/internal/mockapi"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{BodyMaxBytes: 1 << 20},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Mock:    config.MockConfig{API: "false"},
	}
}

func TestNewEcho_RequestID(t *testing.T) {
	e, err := newEcho(testConfig(), discardLogger(), metrics.New())
	if err != nil {
		t.Fatalf("newEcho: %v", err)
	}
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	id := rec.Header().Get(echo.HeaderXRequestID)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Request-Id = %q, want a UUID: %v", id, err)
	}
}

func TestNewEcho_RateLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1}

	e, err := newEcho(cfg, discardLogger(), metrics.New())
	if err != nil {
		t.Fatalf("newEcho: %v", err)
	}
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", rec.Code, http.StatusOK)
	}

	got429 := false
	for i := 0; i < 10; i++ {
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))
		if rec.Code == http.StatusTooManyRequests {
			got429 = true
			break
		}
	}
	if !got429 {
		t.Error("expected at least one 429 response after burst, got none")
	}
}

func TestNewTransportWrapper(t *testing.T) {
	responder := mockapi.New(discardLogger(), nil)

	cfg := testConfig()
	if w := newTransportWrapper(cfg, responder); w != nil {
		t.Error("mock.api=false should not wrap the transport")
	}

	cfg.Mock.API = "true"
	if w := newTransportWrapper(cfg, responder); w == nil {
		t.Error("mock.api=true should wrap the transport")
	}
}

func TestNewSwitch(t *testing.T) {
	responder := mockapi.New(discardLogger(), nil)

	cfg := testConfig()
	if sw := newSwitch(cfg, responder, discardLogger()); !sw.Ready() {
		t.Error("switch should be ready when mocking is off")
	}

	cfg.Mock.API = "true"
	sw := newSwitch(cfg, responder, discardLogger())
	if sw.Ready() {
		t.Fatal("switch should wait for activation when mocking is on")
	}
	sw.Start(context.Background())
	if err := sw.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !responder.Started() {
		t.Error("activation should start the responder")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(&config.Config{Log: config.LogConfig{Level: tt.level, Format: "text"}})
			if !logger.Enabled(context.Background(), tt.want) {
				t.Errorf("level %v should be enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-1) {
				t.Errorf("level below %v should be disabled", tt.want)
			}
		})
	}
}
