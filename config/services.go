package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents a service that can be enabled.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeRedispatcher runs the sweeper that re-enqueues undispatched jobs.
	ServiceModeRedispatcher ServiceMode = "redispatcher"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeRedispatcher}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	if strings.TrimSpace(servicesStr) == "" {
		return map[ServiceMode]bool{}, errors.New("at least one service must be specified")
	}

	services := make(map[ServiceMode]bool)
	for name := range strings.SplitSeq(servicesStr, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		switch mode := ServiceMode(name); mode {
		case ServiceModeHTTP, ServiceModeRedispatcher:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, redispatcher)", name)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// DispatchBackend selects the processing queue implementation.
type DispatchBackend string

const (
	DispatchBackendRedis    DispatchBackend = "redis"
	DispatchBackendPostgres DispatchBackend = "postgres"
)

// DispatchConfig configures the job dispatcher's queue producer.
type DispatchConfig struct {
	Backend DispatchBackend `env:"DISPATCH_BACKEND" envDefault:"redis"`

	// Stream is the Redis stream receiving dispatch messages.
	Stream string `env:"DISPATCH_STREAM" envDefault:"notifyd:jobs"`

	// StreamMaxLen approximately caps the stream length; 0 leaves it unbounded.
	StreamMaxLen int64 `env:"DISPATCH_STREAM_MAXLEN" envDefault:"0"`

	// DedupeTTL is how long a dispatched job id is remembered by the Redis producer.
	DedupeTTL time.Duration `env:"DISPATCH_DEDUPE_TTL" envDefault:"24h"`

	// Channel is the Postgres NOTIFY channel used by the postgres backend.
	Channel string `env:"DISPATCH_CHANNEL" envDefault:"job_dispatched"`
}

// Sanitize applies guardrails to dispatch configuration values.
func (d *DispatchConfig) Sanitize() {
	d.Backend = DispatchBackend(strings.ToLower(strings.TrimSpace(string(d.Backend))))
	if d.Backend != DispatchBackendPostgres {
		d.Backend = DispatchBackendRedis
	}
	if d.Stream = strings.TrimSpace(d.Stream); d.Stream == "" {
		d.Stream = "notifyd:jobs"
	}
	if d.Channel = strings.TrimSpace(d.Channel); d.Channel == "" {
		d.Channel = "job_dispatched"
	}
	if d.StreamMaxLen < 0 {
		d.StreamMaxLen = 0
	}
	if d.DedupeTTL < time.Minute {
		d.DedupeTTL = time.Minute
	}
}

// AuditConfig configures the execution detail recorder.
type AuditConfig struct {
	Workers      int           `env:"AUDIT_WORKERS"       envDefault:"2"`
	QueueSize    int           `env:"AUDIT_QUEUE_SIZE"    envDefault:"256"`
	WriteTimeout time.Duration `env:"AUDIT_WRITE_TIMEOUT" envDefault:"5s"`
	// DrainTimeout bounds how long shutdown waits for queued audit batches.
	DrainTimeout time.Duration `env:"AUDIT_DRAIN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to audit configuration values.
func (a *AuditConfig) Sanitize() {
	a.Workers = min(max(a.Workers, 1), 64)
	if a.QueueSize < 1 {
		a.QueueSize = 1
	}
	if a.WriteTimeout < 100*time.Millisecond {
		a.WriteTimeout = 100 * time.Millisecond
	}
	if a.DrainTimeout < time.Second {
		a.DrainTimeout = time.Second
	}
}

// RedispatchConfig configures the sweeper that recovers jobs whose dispatch failed.
type RedispatchConfig struct {
	// Interval is the sweep tick interval.
	Interval time.Duration `env:"REDISPATCH_INTERVAL" envDefault:"1m"`

	// Grace is how old a pending first job must be before it is considered orphaned.
	Grace time.Duration `env:"REDISPATCH_GRACE" envDefault:"2m"`

	// BatchSize is the maximum number of jobs re-enqueued per sweep.
	BatchSize int `env:"REDISPATCH_BATCH_SIZE" envDefault:"100"`

	// RatePerSecond paces re-enqueues so a backlog does not flood the queue.
	RatePerSecond float64 `env:"REDISPATCH_RATE" envDefault:"50"`
}

// Sanitize applies guardrails to redispatch configuration values.
func (r *RedispatchConfig) Sanitize() {
	if r.Interval < 5*time.Second {
		r.Interval = 5 * time.Second
	}
	if r.Grace < 10*time.Second {
		r.Grace = 10 * time.Second
	}
	r.BatchSize = min(max(r.BatchSize, 1), 1000)
	if r.RatePerSecond <= 0 {
		r.RatePerSecond = 50
	}
}
