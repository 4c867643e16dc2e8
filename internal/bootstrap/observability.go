package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/observability/statsd"
	"github.com/target/notifyd/internal/observability/tracing"
)

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// MetricsSink is nil when metrics are disabled.
	MetricsSink statsd.Sink
	Tracer      trace.Tracer

	statsdClient  *statsd.Client
	traceShutdown tracing.ShutdownFunc
}

// Close flushes spans and releases the metrics socket.
func (o ObservabilityContainer) Close(ctx context.Context) error {
	var errs []error
	if o.traceShutdown != nil {
		if err := o.traceShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if o.statsdClient != nil {
		if err := o.statsdClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close statsd: %w", err))
		}
	}
	return errors.Join(errs...)
}

// buildObservability configures metrics and tracing. Failures degrade to no-op telemetry.
func buildObservability(ctx context.Context, logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var out ObservabilityContainer
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.ErrorContext(ctx, "failed to initialise statsd client", "error", err)
		} else {
			out.statsdClient = client
			out.MetricsSink = client
		}
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(ctx, tracing.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			obsLogger.ErrorContext(ctx, "failed to initialise tracing", "error", err)
		} else {
			out.traceShutdown = shutdown
			obsLogger.InfoContext(ctx, "tracing enabled", "endpoint", cfg.Tracing.Endpoint)
		}
	}
	out.Tracer = tracing.Tracer(nil)

	return out
}
