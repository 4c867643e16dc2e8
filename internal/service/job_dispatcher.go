package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/domain/model"
	apperrors "github.com/target/notifyd/internal/errors"
	"github.com/target/notifyd/internal/observability/metrics"
	"github.com/target/notifyd/internal/observability/statsd"
	"github.com/target/notifyd/internal/observability/tracing"
)

// JobDispatcherOptions groups dependencies for JobDispatcher.
type JobDispatcherOptions struct {
	Producer core.QueueProducer           // Required: processing queue
	Jobs     core.JobRepository           // Optional: marks dispatched jobs queued; required for Redispatch
	Recorder core.ExecutionDetailRecorder // Optional: audits dispatch failures and redispatches
	Backend  string                       // Optional: queue backend name for metrics
	Logger   *slog.Logger
	Metrics  statsd.Sink
	Tracer   trace.Tracer
}

// JobDispatcher hands stored jobs to the processing queue.
type JobDispatcher struct {
	producer core.QueueProducer
	jobs     core.JobRepository
	recorder core.ExecutionDetailRecorder
	backend  string
	logger   *slog.Logger
	metrics  statsd.Sink
	tracer   trace.Tracer
}

// NewJobDispatcher constructs a JobDispatcher.
func NewJobDispatcher(opts JobDispatcherOptions) (*JobDispatcher, error) {
	if opts.Producer == nil {
		return nil, errors.New("QueueProducer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backend := opts.Backend
	if backend == "" {
		backend = "unknown"
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.Tracer(nil)
	}
	return &JobDispatcher{
		producer: opts.Producer,
		jobs:     opts.Jobs,
		recorder: opts.Recorder,
		backend:  backend,
		logger:   logger.With("component", "job_dispatcher"),
		metrics:  opts.Metrics,
		tracer:   tracer,
	}, nil
}

// EnqueueFirstJob places the job on the processing queue. Enqueueing a job twice is a no-op
// at the producer. On failure a dispatch-failed execution detail is scheduled and a dispatch
// error is returned; the job stays pending so it can be redispatched.
func (d *JobDispatcher) EnqueueFirstJob(ctx context.Context, job *model.Job) error {
	return d.dispatch(ctx, job, false)
}

// Redispatch reloads a stored job and enqueues it again. Jobs that already left the pending
// state are returned unchanged without touching the queue.
func (d *JobDispatcher) Redispatch(ctx context.Context, jobID string) (*model.Job, error) {
	if d.jobs == nil {
		return nil, errors.New("redispatch: job repository not configured")
	}
	job, err := d.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("redispatch job %s: %w", jobID, err)
	}
	if job.Status != model.JobStatusPending {
		d.logger.InfoContext(ctx, "job already dispatched, skipping", "job_id", job.ID, "status", job.Status)
		return job, nil
	}
	if err := d.dispatch(ctx, job, true); err != nil {
		return nil, err
	}
	return job, nil
}

func (d *JobDispatcher) dispatch(ctx context.Context, job *model.Job, retry bool) error {
	if job == nil || job.ID == "" {
		return apperrors.Validation("dispatch requires a stored job")
	}

	ctx, span := d.tracer.Start(ctx, "job.dispatch", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.type", string(job.Type)),
		attribute.Bool("job.retry", retry),
	))
	defer span.End()

	start := time.Now()
	enqueued, err := d.producer.Enqueue(ctx, model.NewDispatchMessage(job))
	metrics.EmitDispatch(d.metrics, d.backend, enqueued, err)
	if err != nil {
		if !apperrors.IsDispatch(err) {
			err = apperrors.Dispatch(err, "enqueue job "+job.ID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		d.logger.ErrorContext(ctx, "job dispatch failed", "job_id", job.ID, "error", err)
		d.audit(ctx, job, auditEvent{detail: model.DetailStepDispatchFailed, status: model.DetailStatusFailed, retry: retry, err: err})
		metrics.EmitJobLifecycle(d.metrics, metrics.JobMetric{
			StepType: string(job.Type), Transition: "dispatch", Result: metrics.ResultError,
			Duration: time.Since(start), Err: err,
		})
		return err
	}

	result := metrics.ResultSuccess
	if !enqueued {
		result = metrics.ResultNoop
		d.logger.DebugContext(ctx, "job already on queue", "job_id", job.ID)
	}
	span.SetAttributes(attribute.Bool("job.enqueued", enqueued))
	d.markQueued(ctx, job)
	if retry && enqueued {
		d.audit(ctx, job, auditEvent{detail: model.DetailStepQueued, status: model.DetailStatusQueued, retry: true})
	}
	metrics.EmitJobLifecycle(d.metrics, metrics.JobMetric{
		StepType: string(job.Type), Transition: "dispatch", Result: result, Duration: time.Since(start),
	})
	return nil
}

// markQueued is best effort; the queue consumer tolerates a job still marked pending.
func (d *JobDispatcher) markQueued(ctx context.Context, job *model.Job) {
	if d.jobs == nil {
		return
	}
	moved, err := d.jobs.MarkQueued(ctx, job.ID)
	if err != nil {
		d.logger.WarnContext(ctx, "failed to mark job queued", "job_id", job.ID, "error", err)
		return
	}
	if moved {
		job.Status = model.JobStatusQueued
	}
}

type auditEvent struct {
	detail model.DetailEnum
	status model.ExecutionDetailStatus
	retry  bool
	err    error
}

func (d *JobDispatcher) audit(ctx context.Context, job *model.Job, ev auditEvent) {
	if d.recorder == nil {
		return
	}
	var raw json.RawMessage
	if ev.err != nil {
		raw, _ = json.Marshal(map[string]string{"error": ev.err.Error()})
	}
	d.recorder.BulkCreate(ctx, []model.ExecutionDetailSpec{model.DetailsFromJob(job, model.DetailParams{
		Detail:  ev.detail,
		Source:  model.SourceInternal,
		Status:  ev.status,
		IsTest:  job.IsTest,
		IsRetry: ev.retry,
		Raw:     raw,
	})})
}
