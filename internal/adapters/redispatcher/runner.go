// Package redispatcher runs the sweeper that re-enqueues jobs whose dispatch failed.
package redispatcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/data"
	"github.com/target/notifyd/internal/observability/statsd"
	"github.com/target/notifyd/internal/service"
)

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB         *sql.DB
	Dispatcher service.JobRedispatcher
	Config     config.RedispatchConfig
	Logger     *slog.Logger

	// Optional dependency injection for testing
	Jobs    core.JobRepository
	Metrics statsd.Sink
}

// Runner wraps the sweeper loop for the service runner.
type Runner struct {
	sweeper *service.RedispatchSweeper
	logger  *slog.Logger
}

// NewRunner creates a new redispatch runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	jobs := opts.Jobs
	if jobs == nil {
		if opts.DB == nil {
			return nil, errors.New("database connection is required")
		}
		jobs = data.NewJobRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
	}

	sweeper, err := service.NewRedispatchSweeper(service.RedispatchSweeperOptions{
		Jobs:       jobs,
		Dispatcher: opts.Dispatcher,
		Config:     opts.Config,
		Logger:     opts.Logger,
		Metrics:    opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire redispatch sweeper: %w", err)
	}
	return &Runner{sweeper: sweeper, logger: opts.Logger}, nil
}

// Run starts the sweeper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting redispatch runner")
	return r.sweeper.Run(ctx)
}

// SweepOnce runs a single sweep; used by the admin CLI.
func (r *Runner) SweepOnce(ctx context.Context) (service.SweepResult, error) {
	return r.sweeper.Sweep(ctx)
}
