package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/adapters/redispatcher"
	"github.com/target/notifyd/internal/bootstrap"
	"github.com/target/notifyd/internal/migrate"
)

// infraLoader connects Postgres (and Redis when a backend needs it) on first use so
// that --help and argument errors never dial out.
func infraLoader(logger *slog.Logger, cfg *config.AppConfig) depsLoader {
	return func(ctx context.Context, withServices bool) (*adminDeps, error) {
		infra, err := bootstrap.OpenInfra(ctx, cfg, logger, withServices)
		if err != nil {
			return nil, err
		}

		deps := &adminDeps{
			Migrate: func(ctx context.Context) error { return bootstrap.RunMigrations(ctx, infra.DB, logger) },
			Pending: func(ctx context.Context) ([]string, error) { return migrate.Pending(ctx, infra.DB) },
			Close:   infra.Close,
		}
		if !withServices {
			return deps, nil
		}

		svcs, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
			Config:      cfg,
			DB:          infra.DB,
			RedisClient: infra.Redis,
			Logger:      logger,
		})
		if err != nil {
			return nil, errors.Join(err, infra.Close())
		}

		runner, err := redispatcher.NewRunner(redispatcher.RunnerOptions{
			DB:         infra.DB,
			Dispatcher: svcs.Dispatcher,
			Config:     cfg.Redispatch,
			Logger:     logger,
			Jobs:       svcs.Jobs,
			Metrics:    svcs.Observability.MetricsSink,
		})
		if err != nil {
			return nil, errors.Join(err, svcs.Close(ctx), infra.Close())
		}

		deps.Redispatcher = svcs.Dispatcher
		deps.Sweeper = runner
		deps.FeedCount = svcs.FeedCount
		deps.Details = svcs.Details
		if svcs.Invalidator != nil {
			deps.Invalidator = svcs.Invalidator
		}
		deps.Close = func() error {
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Audit.DrainTimeout)
			defer cancel()
			return errors.Join(svcs.Close(drainCtx), infra.Close())
		}
		return deps, nil
	}
}
