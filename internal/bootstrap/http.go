package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/core"
	httpx "github.com/target/notifyd/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	HTTP     config.HTTPConfig
	Services *ServiceContainer
	DB       *sql.DB
	Redis    redis.UniversalClient
	Logger   *slog.Logger
}

// NewHTTPServer builds the HTTP server with the router and middleware chain. It does not listen.
func NewHTTPServer(cfg HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	services := httpx.RouterServices{
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Logger:       logger,
	}
	var cache core.CacheRepository
	if svc := cfg.Services; svc != nil {
		cache = svc.Cache
		services.FeedCount = svc.FeedCount
		services.StoreJobs = svc.StoreJobs
		services.Redispatcher = svc.Dispatcher
		services.Messages = svc.MessageSvc
	}
	services.Readiness = readinessChecks(cfg.DB, cfg.Redis, cache)

	hcfg := httpHandlerConfig{Logger: logger, Services: services, HTTP: cfg.HTTP}
	if cfg.Services != nil {
		hcfg.Tracer = cfg.Services.Observability.Tracer
	}
	handler := buildHTTPHandler(hcfg)

	addr := cfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services httpx.RouterServices
	HTTP     config.HTTPConfig
	Tracer   trace.Tracer // nil uses the global provider
}

func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	router := httpx.NewRouter(cfg.Services)

	// Apply compression middleware first (innermost) so logging captures compressed sizes
	// Order: Recover -> RequestID -> Logging -> Tracing -> Compression -> Router
	h := router
	if cfg.HTTP.CompressionEnabled {
		cfg.Logger.Info("HTTP compression enabled", "level", cfg.HTTP.CompressionLevel)
		h = httpx.Compression(httpx.CompressionConfig{Level: cfg.HTTP.CompressionLevel, Logger: cfg.Logger})(h)
	}
	h = httpx.Tracing(cfg.Tracer)(h)

	h = httpx.Logging(cfg.Logger)(h)
	h = httpx.RequestID()(h)
	h = httpx.Recover(cfg.Logger)(h)

	return h
}

func readinessChecks(db *sql.DB, client redis.UniversalClient, cache core.CacheRepository) map[string]httpx.ReadinessCheck {
	checks := make(map[string]httpx.ReadinessCheck, 3)
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	if cache != nil {
		checks["cache"] = cache.Health
	}
	return checks
}

// ServeHTTP listens until ctx is cancelled, then shuts the server down within shutdownTimeout.
func ServeHTTP(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	if server == nil {
		return errors.New("http server is required")
	}
	ln, err := (&net.ListenConfig{}).Listen(context.WithoutCancel(ctx), "tcp", server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting HTTP server", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
