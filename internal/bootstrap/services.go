package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/Vignesh6104/sims-console/config"
	"github.com/Vignesh6104/sims-console/internal/adapters/memstore"
	redisadapter "github.com/Vignesh6104/sims-console/internal/adapters/redis"
	"github.com/Vignesh6104/sims-console/internal/apiclient"
	"github.com/Vignesh6104/sims-console/internal/observability/prom"
	"github.com/Vignesh6104/sims-console/internal/observability/statsd"
	"github.com/Vignesh6104/sims-console/internal/ports"
	"github.com/Vignesh6104/sims-console/internal/service"
	"github.com/Vignesh6104/sims-console/internal/tokenclaims"
)

// ServiceContainer holds the console's long-lived dependencies.
type ServiceContainer struct {
	Client        *apiclient.Client
	Sessions      ports.SessionStore
	Auth          *service.AuthService
	Dashboard     *service.DashboardService
	Observability ObservabilityContainer

	closers []io.Closer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	Metrics statsd.Sink
	// Handler serves Prometheus metrics; nil unless that backend is active.
	Handler http.Handler
	Config  config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	// RedisClient backs the session store; required unless SESSION_STORE=memory.
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the backend client, session store, and services.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps missing AppConfig")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs, closer, err := buildObservability(logger, cfg.Observability.Metrics)
	if err != nil {
		return nil, err
	}
	c := &ServiceContainer{Observability: obs}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	c.Client, err = apiclient.New(apiclient.Options{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		RefreshPath:     cfg.API.RefreshPath,
		AccessTokenPath: cfg.API.AccessTokenPath,
		ShareRefresh:    cfg.API.ShareRefresh,
		Logger:          logger,
		Metrics:         obs.Metrics,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("build api client: %w", err), c.Close())
	}

	c.Sessions, err = newSessionStore(cfg, deps.RedisClient)
	if err != nil {
		return nil, errors.Join(err, c.Close())
	}

	c.Auth = service.NewAuthService(service.AuthServiceOptions{
		Backend:    c.Client,
		Sessions:   c.Sessions,
		Claims:     tokenclaims.NewReader(cfg.Auth.JWTSecret),
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     logger,
	})
	c.Dashboard = service.NewDashboardService(service.DashboardServiceOptions{
		Concurrency: cfg.API.DashboardConcurrency,
		Logger:      logger,
	})
	return c, nil
}

// Close releases metric connections.
func (c *ServiceContainer) Close() error {
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func newSessionStore(cfg *config.AppConfig, client redis.UniversalClient) (ports.SessionStore, error) {
	if cfg.Auth.Store == config.SessionStoreMemory {
		return memstore.NewSessionStore(), nil
	}
	if client == nil {
		return nil, errors.New("redis session store requires a redis client")
	}
	return redisadapter.NewSessionStoreWithPrefix(client, cfg.Redis.KeyPrefix), nil
}

func buildObservability(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) (ObservabilityContainer, io.Closer, error) {
	obs := ObservabilityContainer{Metrics: statsd.Discard, Config: cfg}

	switch cfg.Backend {
	case config.MetricsBackendStatsd:
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.StatsdAddress,
			Prefix:  cfg.Prefix,
			Logger:  logger,
		})
		if err != nil {
			return obs, nil, fmt.Errorf("init statsd: %w", err)
		}
		obs.Metrics = client
		logger.Info("metrics enabled", "backend", "statsd", "address", cfg.StatsdAddress)
		return obs, client, nil
	case config.MetricsBackendPrometheus:
		sink := prom.NewSink(cfg.Prefix)
		obs.Metrics = sink
		obs.Handler = sink.Handler()
		logger.Info("metrics enabled", "backend", "prometheus", "path", cfg.Path)
	}
	return obs, nil, nil
}
