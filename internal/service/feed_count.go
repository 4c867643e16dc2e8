package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/domain/model"
	"github.com/target/notifyd/internal/observability/metrics"
	"github.com/target/notifyd/internal/observability/statsd"
	"github.com/target/notifyd/internal/observability/tracing"
)

// FeedCountServiceOptions groups dependencies for FeedCountService.
type FeedCountServiceOptions struct {
	Messages     core.MessageRepository // Required
	Cache        core.CacheRepository   // Optional: nil disables caching
	TTL          time.Duration          // Optional: 0 keeps entries until invalidated
	DefaultLimit int                    // Optional: defaults to 100
	// FailClosed makes cache backend errors fail the read instead of bypassing the cache.
	FailClosed bool
	Logger     *slog.Logger
	Metrics    statsd.Sink
	Tracer     trace.Tracer
}

// FeedCountService serves unseen/unread feed counts through a cache-aside read.
type FeedCountService struct {
	messages     core.MessageRepository
	cache        core.CacheRepository
	ttl          time.Duration
	defaultLimit int
	failClosed   bool
	logger       *slog.Logger
	metrics      statsd.Sink
	tracer       trace.Tracer

	inflight singleflight.Group
}

// NewFeedCountService constructs a FeedCountService.
func NewFeedCountService(opts FeedCountServiceOptions) (*FeedCountService, error) {
	if opts.Messages == nil {
		return nil, errors.New("MessageRepository is required")
	}
	limit := opts.DefaultLimit
	if limit < model.MinFeedCountLimit || limit > model.MaxFeedCountLimit {
		limit = model.DefaultFeedCountLimit
	}
	ttl := max(opts.TTL, 0)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.Tracer(nil)
	}
	return &FeedCountService{
		messages:     opts.Messages,
		cache:        opts.Cache,
		ttl:          ttl,
		defaultLimit: limit,
		failClosed:   opts.FailClosed,
		logger:       logger.With("component", "feed_count"),
		metrics:      opts.Metrics,
		tracer:       tracer,
	}, nil
}

// GetCount validates the request and returns the matching message count.
// Validation errors are returned verbatim. Concurrent misses for one key run a single count.
func (s *FeedCountService) GetCount(ctx context.Context, req model.FeedCountRequest) (model.FeedCountResult, error) {
	q, err := req.Normalize(s.defaultLimit)
	if err != nil {
		return model.FeedCountResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "feed_count.get", trace.WithAttributes(
		attribute.String("environment.id", q.EnvironmentID),
		attribute.String("subscriber.id", q.SubscriberID),
		attribute.Int("feed.limit", q.Limit),
	))
	defer span.End()

	start := time.Now()
	if s.cache == nil {
		res, err := s.compute(ctx, q)
		metrics.EmitCacheLookup(s.metrics, metrics.CacheBypass, time.Since(start))
		return res, err
	}

	key := cachekey.ForQuery(cachekey.NamespaceMessageCount, q)
	res, hit, err := s.lookup(ctx, key)
	if err != nil {
		if s.failClosed {
			return model.FeedCountResult{}, fmt.Errorf("feed count cache read: %w", err)
		}
		s.logger.WarnContext(ctx, "feed count cache unavailable, computing directly", "key", key.String(), "error", err)
		res, err = s.compute(ctx, q)
		metrics.EmitCacheLookup(s.metrics, metrics.CacheBypass, time.Since(start))
		span.SetAttributes(attribute.String("cache.result", metrics.CacheBypass))
		return res, err
	}
	if hit {
		metrics.EmitCacheLookup(s.metrics, metrics.CacheHit, time.Since(start))
		span.SetAttributes(attribute.String("cache.result", metrics.CacheHit))
		return res, nil
	}

	v, err, _ := s.inflight.Do(key.String(), func() (any, error) {
		fresh, err := s.compute(ctx, q)
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, fresh)
		return fresh, nil
	})
	metrics.EmitCacheLookup(s.metrics, metrics.CacheMiss, time.Since(start))
	span.SetAttributes(attribute.String("cache.result", metrics.CacheMiss))
	if err != nil {
		return model.FeedCountResult{}, err
	}
	return v.(model.FeedCountResult), nil
}

// lookup reads the cached value. An undecodable value counts as a miss.
func (s *FeedCountService) lookup(ctx context.Context, key cachekey.Key) (model.FeedCountResult, bool, error) {
	raw, err := s.cache.Get(ctx, key.String())
	if err != nil {
		return model.FeedCountResult{}, false, err
	}
	if raw == nil {
		return model.FeedCountResult{}, false, nil
	}
	var res model.FeedCountResult
	if err := json.Unmarshal(raw, &res); err != nil || res.Count < 0 {
		s.logger.WarnContext(ctx, "discarding corrupt feed count cache entry", "key", key.String())
		return model.FeedCountResult{}, false, nil
	}
	return res, true, nil
}

func (s *FeedCountService) compute(ctx context.Context, q model.FeedCountQuery) (model.FeedCountResult, error) {
	n, err := s.messages.CountFeed(ctx, q)
	if err != nil {
		return model.FeedCountResult{}, fmt.Errorf("count feed: %w", err)
	}
	return model.FeedCountResult{Count: max(n, 0)}, nil
}

func (s *FeedCountService) store(ctx context.Context, key cachekey.Key, res model.FeedCountResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key.String(), raw, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "failed to cache feed count", "key", key.String(), "error", err)
	}
}
