// Command notifyd runs the notification job pipeline: the HTTP API and, when enabled,
// the redispatch sweeper. SERVICES selects which of them this process hosts.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/target/notifyd/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "notifyd exited", "error", err)
		os.Exit(1) //nolint:forbidigo // non-zero exit on fatal startup or runtime error
	}
}

func run(ctx context.Context) (err error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger := bootstrap.InitLogger(cfg.SlogLevel())
	logger.InfoContext(ctx, "starting notifyd",
		"services", bootstrap.GetEnabledServices(&cfg),
		"db", cfg.Postgres.Host+"/"+cfg.Postgres.Name,
		"cache_backend", cfg.Cache.Backend,
		"dispatch_backend", cfg.Dispatch.Backend,
	)

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	infra, err := bootstrap.OpenInfra(ctx, &cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close infrastructure", "error", cerr)
		}
	}()

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, infra.DB, logger); err != nil {
			return err
		}
	}

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          infra.DB,
		RedisClient: infra.Redis,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.RunServicesWithShutdown(ctx, &bootstrap.ServiceOrchestrationConfig{
		Config:      &cfg,
		Services:    &services,
		DB:          infra.DB,
		RedisClient: infra.Redis,
		Logger:      logger,
	})
}
