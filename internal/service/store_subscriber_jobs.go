package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/domain/model"
	"github.com/target/notifyd/internal/observability/metrics"
	"github.com/target/notifyd/internal/observability/statsd"
	"github.com/target/notifyd/internal/observability/tracing"
)

// FirstJobDispatcher enqueues the head of a stored batch.
type FirstJobDispatcher interface {
	EnqueueFirstJob(ctx context.Context, job *model.Job) error
}

// JobsStoredListener is told when a subscriber gains new jobs.
type JobsStoredListener interface {
	OnJobsStored(ctx context.Context, d cachekey.Dimensions) error
}

// StoreSubscriberJobsServiceOptions groups dependencies for StoreSubscriberJobsService.
type StoreSubscriberJobsServiceOptions struct {
	Jobs       core.JobRepository           // Required
	Recorder   core.ExecutionDetailRecorder // Required
	Dispatcher FirstJobDispatcher           // Required
	Cache      JobsStoredListener           // Optional
	Logger     *slog.Logger
	Metrics    statsd.Sink
	Tracer     trace.Tracer
}

// StoreSubscriberJobsService materializes the jobs of one workflow trigger.
//
// The batch is stored in one transaction, every job gets a created execution detail
// (asynchronously), the subscriber's cached counts are evicted and only the first job is
// dispatched. Later jobs are dispatched by the queue consumer as their predecessor completes.
type StoreSubscriberJobsService struct {
	jobs       core.JobRepository
	recorder   core.ExecutionDetailRecorder
	dispatcher FirstJobDispatcher
	cache      JobsStoredListener
	logger     *slog.Logger
	metrics    statsd.Sink
	tracer     trace.Tracer
}

// NewStoreSubscriberJobsService constructs a StoreSubscriberJobsService.
func NewStoreSubscriberJobsService(opts StoreSubscriberJobsServiceOptions) (*StoreSubscriberJobsService, error) {
	switch {
	case opts.Jobs == nil:
		return nil, errors.New("JobRepository is required")
	case opts.Recorder == nil:
		return nil, errors.New("ExecutionDetailRecorder is required")
	case opts.Dispatcher == nil:
		return nil, errors.New("FirstJobDispatcher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.Tracer(nil)
	}
	return &StoreSubscriberJobsService{
		jobs:       opts.Jobs,
		recorder:   opts.Recorder,
		dispatcher: opts.Dispatcher,
		cache:      opts.Cache,
		logger:     logger.With("component", "store_subscriber_jobs"),
		metrics:    opts.Metrics,
		tracer:     tracer,
	}, nil
}

// Execute stores and dispatches one batch. A store failure returns no jobs and nothing is
// audited or dispatched. A dispatch failure returns the stored jobs together with the
// dispatch error.
func (s *StoreSubscriberJobsService) Execute(ctx context.Context, specs []model.JobSpec) ([]*model.Job, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.store_subscriber_jobs",
		trace.WithAttributes(attribute.Int("jobs.count", len(specs))))
	defer span.End()

	tenant, err := model.ValidateBatch(specs)
	if err != nil {
		span.SetStatus(codes.Error, "invalid batch")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("environment.id", tenant.EnvironmentID),
		attribute.String("subscriber.id", tenant.SubscriberID),
	)

	jobs, err := s.jobs.StoreJobs(ctx, specs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			StepType: string(specs[0].Type), Transition: "store", Result: metrics.ResultError, Err: err,
		})
		return nil, fmt.Errorf("store subscriber jobs: %w", err)
	}
	for _, job := range jobs {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			StepType: string(job.Type), Transition: "store", Result: metrics.ResultSuccess,
		})
	}

	s.recorder.BulkCreate(ctx, createdDetails(jobs))
	s.invalidate(ctx, tenant)

	if err := s.dispatcher.EnqueueFirstJob(ctx, jobs[0]); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return jobs, err
	}

	s.logger.InfoContext(ctx, "subscriber jobs stored",
		"environment_id", tenant.EnvironmentID,
		"subscriber_id", tenant.SubscriberID,
		"transaction_id", jobs[0].TransactionID,
		"jobs", len(jobs),
		"dispatched_job_id", jobs[0].ID)
	return jobs, nil
}

func (s *StoreSubscriberJobsService) invalidate(ctx context.Context, tenant model.Tenant) {
	if s.cache == nil {
		return
	}
	err := s.cache.OnJobsStored(ctx, cachekey.Dimensions{
		EnvironmentID: tenant.EnvironmentID,
		SubscriberID:  tenant.SubscriberID,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "cache invalidation after store failed",
			"environment_id", tenant.EnvironmentID,
			"subscriber_id", tenant.SubscriberID,
			"error", err)
	}
}

func createdDetails(jobs []*model.Job) []model.ExecutionDetailSpec {
	details := make([]model.ExecutionDetailSpec, 0, len(jobs))
	for _, job := range jobs {
		details = append(details, model.DetailsFromJob(job, model.DetailParams{
			Detail: model.DetailStepCreated,
			Source: model.SourceInternal,
			Status: model.DetailStatusPending,
			IsTest: job.IsTest,
		}))
	}
	return details
}
