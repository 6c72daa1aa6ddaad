package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/Vignesh6104/sims-console/config"
	"github.com/Vignesh6104/sims-console/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		slog.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context) (err error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger := bootstrap.InitLogger(cfg.Observability.Logging)
	bootstrap.LogConfigWarnings(ctx, logger, &cfg)
	logStartupInfo(ctx, logger, &cfg)

	redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close services: %w", cerr))
		}
	}()

	handler, err := bootstrap.BuildHTTPHandler(&cfg, services, logger)
	if err != nil {
		return err
	}

	return bootstrap.RunHTTPWithShutdown(ctx, bootstrap.HTTPServerConfig{
		HTTP:    cfg.HTTP,
		Handler: handler,
		Logger:  logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting sims console",
		"addr", cfg.HTTP.Addr,
		"api_base_url", cfg.API.BaseURL,
		"session_store", cfg.Auth.Store,
		"share_refresh", cfg.API.ShareRefresh,
		"metrics_backend", cfg.Observability.Metrics.Backend,
		"dev", cfg.IsDev)
}

// initInfrastructure connects the session store backend. The memory store needs none.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	if cfg.Auth.Store != config.SessionStoreRedis {
		return nil, nil
	}
	client, err := bootstrap.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
