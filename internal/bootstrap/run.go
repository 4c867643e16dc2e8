package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/adapters/redispatcher"
)

// ServiceOrchestrationConfig groups what RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    *ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// backgroundService is one long-running component started by the orchestrator.
type backgroundService struct {
	name string
	run  func(ctx context.Context) error
}

// RunServicesWithShutdown runs every enabled service until SIGINT/SIGTERM or the first failure,
// then drains pending audit writes and flushes telemetry.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config with AppConfig and services is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	services, err := buildBackgroundServices(cfg, logger)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	for _, svc := range services {
		g.Go(func() error {
			if runErr := svc.run(gctx); runErr != nil {
				return fmt.Errorf("%s: %w", svc.name, runErr)
			}
			logger.InfoContext(gctx, "service stopped", "service", svc.name)
			return nil
		})
	}

	runErr := g.Wait()
	if runErr != nil {
		logger.ErrorContext(ctx, "service error", "error", runErr)
	} else {
		logger.InfoContext(ctx, "shutting down services...")
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Config.Audit.DrainTimeout)
	defer cancel()
	if closeErr := cfg.Services.Close(drainCtx); closeErr != nil {
		logger.ErrorContext(ctx, "graceful stop failed", "error", closeErr)
		runErr = errors.Join(runErr, closeErr)
	}
	return runErr
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) ([]backgroundService, error) {
	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return nil, fmt.Errorf("determine enabled services: %w", err)
	}

	var out []backgroundService
	if enabled[config.ServiceModeHTTP] {
		server := NewHTTPServer(HTTPServerConfig{
			HTTP:     cfg.Config.HTTP,
			Services: cfg.Services,
			DB:       cfg.DB,
			Redis:    cfg.RedisClient,
			Logger:   logger,
		})
		shutdownTimeout := cfg.Config.HTTP.ShutdownTimeout
		out = append(out, backgroundService{
			name: string(config.ServiceModeHTTP),
			run: func(ctx context.Context) error {
				return ServeHTTP(ctx, server, shutdownTimeout, logger)
			},
		})
	}

	if enabled[config.ServiceModeRedispatcher] {
		runner, runnerErr := redispatcher.NewRunner(redispatcher.RunnerOptions{
			DB:         cfg.DB,
			Dispatcher: cfg.Services.Dispatcher,
			Config:     cfg.Config.Redispatch,
			Logger:     logger,
			Jobs:       cfg.Services.Jobs,
			Metrics:    cfg.Services.Observability.MetricsSink,
		})
		if runnerErr != nil {
			return nil, fmt.Errorf("create redispatch runner: %w", runnerErr)
		}
		out = append(out, backgroundService{name: string(config.ServiceModeRedispatcher), run: runner.Run})
	}

	if len(out) == 0 {
		return nil, errors.New("no services enabled")
	}
	return out, nil
}
