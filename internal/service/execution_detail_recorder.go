package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/domain/model"
	apperrors "github.com/target/notifyd/internal/errors"
	"github.com/target/notifyd/internal/observability/metrics"
	"github.com/target/notifyd/internal/observability/statsd"
)

const (
	defaultRecorderWorkers      = 2
	defaultRecorderQueueSize    = 256
	defaultRecorderWriteTimeout = 5 * time.Second
)

// ExecutionDetailRecorderOptions groups dependencies for ExecutionDetailRecorder.
type ExecutionDetailRecorderOptions struct {
	Repo         core.ExecutionDetailRepository // Required
	Workers      int                            // Optional: defaults to 2
	QueueSize    int                            // Optional: pending batches before new ones are dropped, defaults to 256
	WriteTimeout time.Duration                  // Optional: per-batch write deadline, defaults to 5s
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

type detailBatch struct {
	ctx     context.Context
	details []model.ExecutionDetailSpec
}

// ExecutionDetailRecorder appends execution details from background workers.
// BulkCreate never blocks on the write and never reports its outcome to the caller.
type ExecutionDetailRecorder struct {
	repo         core.ExecutionDetailRepository
	writeTimeout time.Duration
	logger       *slog.Logger
	metrics      statsd.Sink

	queue chan detailBatch
	group errgroup.Group

	mu     sync.RWMutex
	closed bool
}

var _ core.ExecutionDetailRecorder = (*ExecutionDetailRecorder)(nil)

// NewExecutionDetailRecorder starts the worker pool.
func NewExecutionDetailRecorder(opts ExecutionDetailRecorderOptions) (*ExecutionDetailRecorder, error) {
	if opts.Repo == nil {
		return nil, errors.New("ExecutionDetailRepository is required")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultRecorderWorkers
	}
	size := opts.QueueSize
	if size <= 0 {
		size = defaultRecorderQueueSize
	}
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = defaultRecorderWriteTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &ExecutionDetailRecorder{
		repo:         opts.Repo,
		writeTimeout: timeout,
		logger:       logger.With("component", "execution_detail_recorder"),
		metrics:      opts.Metrics,
		queue:        make(chan detailBatch, size),
	}
	for range workers {
		r.group.Go(r.work)
	}
	return r, nil
}

// BulkCreate schedules the details for writing. A full queue or a closed recorder drops the batch.
func (r *ExecutionDetailRecorder) BulkCreate(ctx context.Context, details []model.ExecutionDetailSpec) {
	if len(details) == 0 {
		return
	}
	batch := detailBatch{
		ctx:     context.WithoutCancel(ctx),
		details: slices.Clone(details),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(ctx, batch, "recorder closed")
		return
	}
	select {
	case r.queue <- batch:
	default:
		r.drop(ctx, batch, "queue full")
	}
}

func (r *ExecutionDetailRecorder) drop(ctx context.Context, b detailBatch, reason string) {
	r.logger.WarnContext(ctx, "dropping execution details",
		"reason", reason,
		"rows", len(b.details),
		"job_id", b.details[0].JobID)
	metrics.EmitAuditDropped(r.metrics, len(b.details))
}

func (r *ExecutionDetailRecorder) work() error {
	for b := range r.queue {
		r.write(b)
	}
	return nil
}

func (r *ExecutionDetailRecorder) write(b detailBatch) {
	ctx, cancel := context.WithTimeout(b.ctx, r.writeTimeout)
	defer cancel()

	n, err := r.repo.BulkInsert(ctx, b.details)
	if err != nil {
		if !apperrors.IsAuditWrite(err) {
			err = apperrors.AuditWrite(err, "write execution details")
		}
		r.logger.ErrorContext(ctx, "execution detail write failed",
			"rows", len(b.details),
			"job_id", b.details[0].JobID,
			"subscriber_id", b.details[0].SubscriberID,
			"error", err)
		metrics.EmitAuditWrite(r.metrics, len(b.details), err)
		return
	}
	r.logger.DebugContext(ctx, "execution details written", "rows", n)
	metrics.EmitAuditWrite(r.metrics, n, nil)
}

// Close stops accepting batches and waits for queued ones to be written or for ctx to end.
func (r *ExecutionDetailRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
