package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"golang.org/x/time/rate"

	"shallwe-gate/internal/bootstrap"
	"shallwe-gate/internal/client"
	"shallwe-gate/internal/config"
	"shallwe-gate/internal/gate"
	"shallwe-gate/internal/handler"
	"shallwe-gate/internal/metrics"
	"shallwe-gate/internal/middleware"
	"shallwe-gate/internal/mockapi"
	"shallwe-gate/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("shallwe-gate"),
		kong.Description("Profile-status gateway and mock front end for the Shallwe API."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
		}),
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			metrics.New,
			mockapi.New,
			newTransportWrapper,
			newSwitch,
			newEcho,
			client.NewBackendClient,
			service.NewBackendService,
			service.NewStatusChecker,
			gate.New,
			handler.NewOAuthConfig,
			handler.NewPageHandler,
			handler.NewActionHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, startSwitch, startServer),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

// newTransportWrapper routes backend calls through the mock responder when mock.api is on.
func newTransportWrapper(cfg *config.Config, responder *mockapi.Responder) client.Wrapper {
	if !cfg.Mock.API.Bool() {
		return nil
	}
	return responder.Transport
}

func newSwitch(cfg *config.Config, responder *mockapi.Responder, logger *slog.Logger) *bootstrap.Switch {
	return bootstrap.New(cfg.Mock.API.Bool(), responder.Start, logger)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	renderer, err := handler.NewRenderer()
	if err != nil {
		return nil, err
	}
	e.Renderer = renderer

	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(logger))
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m, middleware.SkipPath(cfg.Metrics.Path)))
	}
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())

	if cfg.Server.RateLimit.Enabled {
		store := echomw.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit.RequestsPerSecond))
		e.Use(echomw.RateLimiter(store))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e, nil
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

// startSwitch activates the mock backend in the background once the app starts.
// The start context is cancelled when OnStart returns, so activation gets a detached one.
func startSwitch(lc fx.Lifecycle, sw *bootstrap.Switch) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sw.Start(context.WithoutCancel(ctx))
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server",
				"addr", addr,
				"version", version,
				"mock_api", cfg.Mock.API.Bool(),
				"skip_middleware", cfg.Gate.SkipMiddleware.Bool(),
			)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
