package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/data"
	"github.com/target/notifyd/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs     *data.JobRepo
	Messages *data.MessageRepo
	Details  *data.ExecutionDetailRepo
	// Cache is nil when the cache backend is "none".
	Cache core.CacheRepository

	Recorder    *service.ExecutionDetailRecorder
	Dispatcher  *service.JobDispatcher
	Invalidator *service.InvalidateCacheService // nil without a cache
	StoreJobs   *service.StoreSubscriberJobsService
	FeedCount   *service.FeedCountService
	MessageSvc  *service.MessageService

	Observability ObservabilityContainer
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional unless a Redis backend is configured
	Logger      *slog.Logger
}

// NewServices builds repositories, the cache backend, the queue producer and every use case.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(ctx, logger, cfg.Observability)
	repoCfg := data.RepoConfig{Logger: logger}
	c := ServiceContainer{
		Jobs:          data.NewJobRepo(deps.DB, repoCfg),
		Messages:      data.NewMessageRepo(deps.DB, repoCfg),
		Details:       data.NewExecutionDetailRepo(deps.DB, repoCfg),
		Observability: obs,
	}

	cache, err := buildCache(cfg.Cache, deps.RedisClient)
	if err != nil {
		return ServiceContainer{}, err
	}
	c.Cache = cache

	producer, err := buildProducer(cfg.Dispatch, deps)
	if err != nil {
		return ServiceContainer{}, err
	}

	if err := c.buildUseCases(cfg, producer, logger); err != nil {
		return ServiceContainer{}, err
	}
	return c, nil
}

func (c *ServiceContainer) buildUseCases(cfg *config.AppConfig, producer core.QueueProducer, logger *slog.Logger) error {
	obs := c.Observability
	var err error

	c.Recorder, err = service.NewExecutionDetailRecorder(service.ExecutionDetailRecorderOptions{
		Repo:         c.Details,
		Workers:      cfg.Audit.Workers,
		QueueSize:    cfg.Audit.QueueSize,
		WriteTimeout: cfg.Audit.WriteTimeout,
		Logger:       logger,
		Metrics:      obs.MetricsSink,
	})
	if err != nil {
		return fmt.Errorf("create execution detail recorder: %w", err)
	}

	c.Dispatcher, err = service.NewJobDispatcher(service.JobDispatcherOptions{
		Producer: producer,
		Jobs:     c.Jobs,
		Recorder: c.Recorder,
		Backend:  string(cfg.Dispatch.Backend),
		Logger:   logger,
		Metrics:  obs.MetricsSink,
		Tracer:   obs.Tracer,
	})
	if err != nil {
		return fmt.Errorf("create job dispatcher: %w", err)
	}

	var listener service.MessageEventListener = noCacheListener{}
	storeOpts := service.StoreSubscriberJobsServiceOptions{
		Jobs:       c.Jobs,
		Recorder:   c.Recorder,
		Dispatcher: c.Dispatcher,
		Logger:     logger,
		Metrics:    obs.MetricsSink,
		Tracer:     obs.Tracer,
	}
	if c.Cache != nil {
		c.Invalidator, err = service.NewInvalidateCacheService(service.InvalidateCacheServiceOptions{
			Cache:   c.Cache,
			Logger:  logger,
			Metrics: obs.MetricsSink,
		})
		if err != nil {
			return fmt.Errorf("create cache invalidator: %w", err)
		}
		listener = c.Invalidator
		storeOpts.Cache = c.Invalidator
	}

	c.StoreJobs, err = service.NewStoreSubscriberJobsService(storeOpts)
	if err != nil {
		return fmt.Errorf("create store subscriber jobs service: %w", err)
	}

	c.FeedCount, err = service.NewFeedCountService(service.FeedCountServiceOptions{
		Messages:     c.Messages,
		Cache:        c.Cache,
		TTL:          cfg.Cache.TTL,
		DefaultLimit: cfg.Cache.DefaultLimit,
		FailClosed:   !cfg.Cache.FailOpen,
		Logger:       logger,
		Metrics:      obs.MetricsSink,
		Tracer:       obs.Tracer,
	})
	if err != nil {
		return fmt.Errorf("create feed count service: %w", err)
	}

	c.MessageSvc, err = service.NewMessageService(service.MessageServiceOptions{
		Repo:   c.Messages,
		Cache:  listener,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create message service: %w", err)
	}
	return nil
}

// Close drains pending audit writes and flushes telemetry.
func (c *ServiceContainer) Close(ctx context.Context) error {
	var errs []error
	if c.Recorder != nil {
		if err := c.Recorder.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain execution detail recorder: %w", err))
		}
	}
	if err := c.Observability.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

//nolint:ireturn // the backend is chosen at runtime.
func buildCache(cfg config.CacheConfig, client redis.UniversalClient) (core.CacheRepository, error) {
	switch cfg.Backend {
	case config.CacheBackendNone:
		return nil, nil
	case config.CacheBackendMemory:
		return data.NewMemoryCacheRepo(nil), nil
	default:
		if client == nil {
			return nil, errors.New("redis cache backend requires a redis client")
		}
		return data.NewRedisCacheRepo(client), nil
	}
}

//nolint:ireturn // the backend is chosen at runtime.
func buildProducer(cfg config.DispatchConfig, deps *ServiceDeps) (core.QueueProducer, error) {
	if cfg.Backend == config.DispatchBackendPostgres {
		q, err := data.NewPgNotifyQueue(deps.DB, cfg.Channel, nil)
		if err != nil {
			return nil, fmt.Errorf("create pg notify queue: %w", err)
		}
		return q, nil
	}

	q, err := data.NewRedisStreamQueue(data.RedisStreamQueueOptions{
		Client:    deps.RedisClient,
		Stream:    cfg.Stream,
		DedupeTTL: cfg.DedupeTTL,
		MaxLen:    cfg.StreamMaxLen,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis stream queue: %w", err)
	}
	return q, nil
}

// noCacheListener stands in for the invalidator when caching is disabled.
type noCacheListener struct{}

func (noCacheListener) OnMessageSeen(context.Context, cachekey.Dimensions) error        { return nil }
func (noCacheListener) OnMessageRead(context.Context, cachekey.Dimensions) error        { return nil }
func (noCacheListener) InvalidateSubscriber(context.Context, cachekey.Dimensions) error { return nil }
