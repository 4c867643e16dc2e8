package config

import (
	"strings"
	"time"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"notifyd"`
	Password string `env:"PASSWORD"                envDefault:"notifyd"`
	Name     string `env:"NAME"                    envDefault:"notifyd"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
	MaxOpenConns         int  `env:"MAX_OPEN_CONNS"          envDefault:"20"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// CacheBackend selects where feed counts are cached.
type CacheBackend string

const (
	CacheBackendRedis  CacheBackend = "redis"
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendNone   CacheBackend = "none"
)

// CacheConfig configures the feed count cache.
type CacheConfig struct {
	Backend CacheBackend `env:"CACHE_BACKEND" envDefault:"redis"`

	// TTL bounds how long a count may be served; 0 keeps it until invalidated.
	TTL time.Duration `env:"CACHE_TTL" envDefault:"0s"`

	// FailOpen computes counts directly when the cache backend errors.
	FailOpen bool `env:"CACHE_FAIL_OPEN" envDefault:"true"`

	// DefaultLimit is used when a request carries no usable limit.
	DefaultLimit int `env:"CACHE_DEFAULT_LIMIT" envDefault:"100"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	c.Backend = CacheBackend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	switch c.Backend {
	case CacheBackendRedis, CacheBackendMemory, CacheBackendNone:
	default:
		c.Backend = CacheBackendRedis
	}
	if c.TTL < 0 {
		c.TTL = 0
	}
	if c.DefaultLimit < 1 || c.DefaultLimit > 1000 {
		c.DefaultLimit = 100
	}
}
