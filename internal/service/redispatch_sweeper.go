package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/domain/model"
	"github.com/target/notifyd/internal/observability/metrics"
	"github.com/target/notifyd/internal/observability/statsd"
)

// JobRedispatcher re-enqueues one stored job.
type JobRedispatcher interface {
	Redispatch(ctx context.Context, jobID string) (*model.Job, error)
}

// RedispatchSweeperOptions groups dependencies for RedispatchSweeper.
type RedispatchSweeperOptions struct {
	Jobs       core.JobRepository      // Required
	Dispatcher JobRedispatcher         // Required
	Config     config.RedispatchConfig // Required
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// RedispatchSweeper periodically re-enqueues first-of-batch jobs still pending after the
// grace period. It is the recovery path for triggers whose dispatch failed.
type RedispatchSweeper struct {
	jobs       core.JobRepository
	dispatcher JobRedispatcher
	config     config.RedispatchConfig
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    statsd.Sink
}

// SweepResult reports what one sweep did.
type SweepResult struct {
	Found       int
	Redispatched int
	Failed      int
}

// NewRedispatchSweeper constructs a RedispatchSweeper.
func NewRedispatchSweeper(opts RedispatchSweeperOptions) (*RedispatchSweeper, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("JobRedispatcher is required")
	}
	cfg := opts.Config
	cfg.Sanitize()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	burst := max(int(cfg.RatePerSecond), 1)
	return &RedispatchSweeper{
		jobs:       opts.Jobs,
		dispatcher: opts.Dispatcher,
		config:     cfg,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		logger:     logger.With("component", "redispatch_sweeper"),
		metrics:    opts.Metrics,
	}, nil
}

// Run sweeps at the configured interval until ctx is cancelled.
// Returns nil on graceful shutdown.
func (s *RedispatchSweeper) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting redispatch sweeper",
		"interval", s.config.Interval,
		"grace", s.config.Grace,
		"batch_size", s.config.BatchSize)

	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "redispatch sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "redispatch sweeper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitWithJitter delays the first sweep by up to 10% of the interval.
func (s *RedispatchSweeper) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// Sweep re-enqueues one batch of orphaned jobs, paced by the rate limiter.
// Individual redispatch failures are counted, not returned.
func (s *RedispatchSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	var res SweepResult

	jobs, err := s.jobs.ListUndispatched(ctx, core.ListUndispatchedOptions{
		OlderThan: s.config.Grace,
		Limit:     s.config.BatchSize,
	})
	if err != nil {
		err = fmt.Errorf("list undispatched jobs: %w", err)
		metrics.EmitRedispatchSweep(s.metrics, metrics.SweepMetric{Duration: time.Since(start), Err: err})
		return res, err
	}
	res.Found = len(jobs)

	for _, job := range jobs {
		if err := s.limiter.Wait(ctx); err != nil {
			metrics.EmitRedispatchSweep(s.metrics, metrics.SweepMetric{
				Found: res.Redispatched + res.Failed, Failed: res.Failed, Duration: time.Since(start), Err: err,
			})
			return res, err
		}
		if _, err := s.dispatcher.Redispatch(ctx, job.ID); err != nil {
			res.Failed++
			s.logger.WarnContext(ctx, "redispatch failed", "job_id", job.ID, "error", err)
			continue
		}
		res.Redispatched++
	}

	if res.Found > 0 {
		s.logger.InfoContext(ctx, "redispatch sweep complete",
			"found", res.Found, "redispatched", res.Redispatched, "failed", res.Failed)
	}
	metrics.EmitRedispatchSweep(s.metrics, metrics.SweepMetric{
		Found: res.Found, Failed: res.Failed, Duration: time.Since(start),
	})
	return res, nil
}
