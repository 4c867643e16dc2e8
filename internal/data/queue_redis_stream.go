package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/notifyd/internal/domain/model"
)

const (
	// DefaultJobStream is the Redis stream jobs are dispatched to.
	DefaultJobStream = "notifyd:jobs"
	// DefaultDedupeTTL is how long a dispatched job id is remembered.
	DefaultDedupeTTL = 24 * time.Hour
)

// RedisStreamQueueOptions configures a RedisStreamQueue.
type RedisStreamQueueOptions struct {
	Client    redis.UniversalClient
	Stream    string
	DedupeTTL time.Duration
	// MaxLen caps the stream length (approximate trimming). Zero disables trimming.
	MaxLen int64
	Logger *slog.Logger
}

// RedisStreamQueue dispatches jobs onto a Redis stream consumed by the workers.
type RedisStreamQueue struct {
	client    redis.UniversalClient
	stream    string
	dedupeTTL time.Duration
	maxLen    int64
	logger    *slog.Logger
}

// NewRedisStreamQueue creates a RedisStreamQueue.
func NewRedisStreamQueue(opts RedisStreamQueueOptions) (*RedisStreamQueue, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.Stream == "" {
		opts.Stream = DefaultJobStream
	}
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = DefaultDedupeTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStreamQueue{
		client:    opts.Client,
		stream:    opts.Stream,
		dedupeTTL: opts.DedupeTTL,
		maxLen:    opts.MaxLen,
		logger:    logger.With("component", "redis_stream_queue", "stream", opts.Stream),
	}, nil
}

func (q *RedisStreamQueue) dedupeKey(jobID string) string {
	return q.stream + ":dispatched:" + jobID
}

// Enqueue adds the message to the stream once per job id. A SET NX marker guards the XADD;
// if the XADD fails the marker is removed so a later retry can enqueue again.
func (q *RedisStreamQueue) Enqueue(ctx context.Context, msg model.DispatchMessage) (bool, error) {
	if msg.JobID == "" {
		return false, ErrJobIDRequired
	}
	if msg.Job == nil {
		return false, ErrNilDispatchJob
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("marshal dispatch message: %w", err)
	}

	marker := q.dedupeKey(msg.JobID)
	set, err := q.client.SetArgs(ctx, marker, "1", redis.SetArgs{Mode: "NX", TTL: q.dedupeTTL}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("redis dedupe marker: %w", err)
	}
	if set != "OK" {
		q.logger.DebugContext(ctx, "job already dispatched", "job_id", msg.JobID)
		return false, nil
	}

	args := &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{
			"job_id":          msg.JobID,
			"organization_id": msg.OrganizationID,
			"environment_id":  msg.EnvironmentID,
			"user_id":         msg.UserID,
			"subscriber_id":   msg.SubscriberID,
			"payload":         string(payload),
		},
	}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}

	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		// Use a fresh context so the marker is released even if ctx is done.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if delErr := q.client.Del(cleanupCtx, marker).Err(); delErr != nil {
			q.logger.WarnContext(ctx, "failed to release dispatch marker", "job_id", msg.JobID, "error", delErr)
		}
		return false, fmt.Errorf("redis xadd: %w", err)
	}
	return true, nil
}
