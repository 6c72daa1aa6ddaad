package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vignesh6104/sims-console/config"
	httpx "github.com/Vignesh6104/sims-console/internal/http"
)

// BuildHTTPHandler assembles the console router from the service container.
func BuildHTTPHandler(cfg *config.AppConfig, svc *ServiceContainer, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	templates, err := httpx.TemplateFS(cfg.IsDev)
	if err != nil {
		return nil, fmt.Errorf("open templates: %w", err)
	}
	renderer, err := httpx.NewTemplateRenderer(httpx.TemplateRendererConfig{
		TemplateFS: templates,
		DevMode:    cfg.IsDev,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	var limiter *httpx.RateLimiter
	if cfg.Auth.LoginRateLimited() {
		limiter = httpx.NewRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst)
	}

	return httpx.NewRouter(httpx.RouterServices{
		Auth:      svc.Auth,
		Dashboard: svc.Dashboard,
		Client:    svc.Client,
		Renderer:  renderer,
		Cookies: httpx.CookieConfig{
			Name:   cfg.HTTP.CookieName,
			Domain: cfg.HTTP.CookieDomain,
			Secure: cfg.HTTP.CookieSecure,
		},
		RetryAfter:     cfg.HTTP.WaitRetryAfter,
		LoginLimiter:   limiter,
		Metrics:        svc.Observability.Metrics,
		MetricsHandler: svc.Observability.Handler,
		MetricsPath:    svc.Observability.Config.Path,
		IsDev:          cfg.IsDev,
		Logger:         logger,
	}), nil
}

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	HTTP    config.HTTPConfig
	Handler http.Handler
	Logger  *slog.Logger
}

// StartHTTPServer starts serving in the background. Listen failures are sent on the
// returned channel.
func StartHTTPServer(cfg HTTPServerConfig) (*http.Server, <-chan error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := cfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           cfg.Handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		// Backend calls may take up to API_TIMEOUT twice over (refresh + replay).
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	return server, errCh
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(ctx context.Context, cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}

// RunHTTPWithShutdown serves until SIGINT/SIGTERM, ctx cancellation, or a listen failure.
func RunHTTPWithShutdown(ctx context.Context, cfg HTTPServerConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, errCh := StartHTTPServer(cfg)
	shutdown := ShutdownConfig{Server: server, Timeout: cfg.HTTP.ShutdownTimeout, Logger: logger}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return ShutdownHTTPServer(ctx, shutdown)
	case err := <-errCh:
		logger.Error("service error", "error", err)
		if stopErr := ShutdownHTTPServer(ctx, shutdown); stopErr != nil {
			logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}
