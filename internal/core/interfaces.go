package core

import (
	"context"
	"time"

	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	// StoreJobs persists a batch atomically and returns the jobs in input order.
	StoreJobs(ctx context.Context, specs []model.JobSpec) ([]*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// MarkQueued moves a pending job to queued. Returns false if the job already moved on.
	MarkQueued(ctx context.Context, id string) (bool, error)
	// ListUndispatched returns first-of-batch jobs still pending after the grace period.
	ListUndispatched(ctx context.Context, opts ListUndispatchedOptions) ([]*model.Job, error)
}

// ListUndispatchedOptions groups parameters for JobRepository.ListUndispatched.
type ListUndispatchedOptions struct {
	OlderThan time.Duration
	Limit     int
}

// ExecutionDetailRepository defines the interface for execution detail data operations.
type ExecutionDetailRepository interface {
	BulkInsert(ctx context.Context, specs []model.ExecutionDetailSpec) (int, error)
	ListByJob(ctx context.Context, jobID string) ([]*model.ExecutionDetail, error)
}

// MessageRepository defines the interface for message data operations.
type MessageRepository interface {
	Create(ctx context.Context, req *model.CreateMessageRequest) (*model.Message, error)
	// CountFeed counts matching messages, stopping at q.Limit.
	CountFeed(ctx context.Context, q model.FeedCountQuery) (int, error)
	// MarkSeen sets the seen flag. Returns false if the message was already seen.
	MarkSeen(ctx context.Context, ref model.MessageRef) (bool, error)
	// MarkRead sets the read flag. Returns false if the message was already read.
	MarkRead(ctx context.Context, ref model.MessageRef) (bool, error)
}

// QueueProducer hands dispatch messages to the processing queue.
// Implementations must be idempotent per job id.
type QueueProducer interface {
	// Enqueue returns false when the job was already enqueued earlier.
	Enqueue(ctx context.Context, msg model.DispatchMessage) (bool, error)
}

// ExecutionDetailRecorder accepts audit records for background persistence.
type ExecutionDetailRecorder interface {
	// BulkCreate schedules the details and returns without waiting for the write.
	BulkCreate(ctx context.Context, details []model.ExecutionDetailSpec)
}

// CacheInvalidator evicts cached values.
type CacheInvalidator interface {
	InvalidateQuery(ctx context.Context, target cachekey.Invalidatable) error
}
