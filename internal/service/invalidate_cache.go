package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/observability/metrics"
	"github.com/target/notifyd/internal/observability/statsd"
)

// InvalidateCacheServiceOptions groups dependencies for InvalidateCacheService.
type InvalidateCacheServiceOptions struct {
	Cache   core.CacheRepository // Required
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// InvalidateCacheService evicts cached feed values. It only deletes; the next read recomputes.
type InvalidateCacheService struct {
	cache   core.CacheRepository
	logger  *slog.Logger
	metrics statsd.Sink
}

var _ core.CacheInvalidator = (*InvalidateCacheService)(nil)

// NewInvalidateCacheService constructs an InvalidateCacheService.
func NewInvalidateCacheService(opts InvalidateCacheServiceOptions) (*InvalidateCacheService, error) {
	if opts.Cache == nil {
		return nil, errors.New("CacheRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InvalidateCacheService{
		cache:   opts.Cache,
		logger:  logger.With("component", "cache_invalidation"),
		metrics: opts.Metrics,
	}, nil
}

// InvalidateQuery deletes the exact key, or every key under the prefix for a pattern.
// Deleting something that is not cached is not an error.
func (s *InvalidateCacheService) InvalidateQuery(ctx context.Context, target cachekey.Invalidatable) error {
	if target == nil {
		return errors.New("invalidate: nil target")
	}
	key, prefix := target.CacheTarget()
	if key == "" {
		return errors.New("invalidate: empty cache target")
	}

	var (
		removed int
		err     error
	)
	if prefix {
		removed, err = s.cache.DeletePrefix(ctx, key)
	} else {
		var ok bool
		ok, err = s.cache.Delete(ctx, key)
		if ok {
			removed = 1
		}
	}
	metrics.EmitInvalidate(s.metrics, prefix, err)
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "cache invalidated", "target", key, "prefix", prefix, "removed", removed)
	return nil
}

// InvalidateSubscriber evicts every namespace cached for the subscriber.
func (s *InvalidateCacheService) InvalidateSubscriber(ctx context.Context, d cachekey.Dimensions) error {
	var errs []error
	for _, ns := range cachekey.Namespaces() {
		if err := s.InvalidateQuery(ctx, ns.Pattern(d)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnMessageSeen handles a message's seen flag changing.
func (s *InvalidateCacheService) OnMessageSeen(ctx context.Context, d cachekey.Dimensions) error {
	return s.InvalidateSubscriber(ctx, d)
}

// OnMessageRead handles a message's read flag changing.
func (s *InvalidateCacheService) OnMessageRead(ctx context.Context, d cachekey.Dimensions) error {
	return s.InvalidateSubscriber(ctx, d)
}

// OnJobsStored handles a new job batch for the subscriber.
func (s *InvalidateCacheService) OnJobsStored(ctx context.Context, d cachekey.Dimensions) error {
	return s.InvalidateSubscriber(ctx, d)
}
