// Package config holds notifyd's environment-driven configuration.
package config

import (
	"log/slog"
	"strings"
)

// AppConfig is everything notifyd reads from the environment. Each section lives in its own
// file and is parsed by caarlos0/env:
//   - database.go: Postgres, Redis and feed count cache
//   - http.go: HTTP server
//   - services.go: service modes, dispatch, audit and redispatch workers
//   - observability.go: metrics and tracing
type AppConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig

	HTTP HTTPConfig

	// Services is a comma-delimited list of enabled services.
	Services string `env:"SERVICES" envDefault:"http"`

	Dispatch   DispatchConfig
	Audit      AuditConfig
	Redispatch RedispatchConfig

	Observability ObservabilityConfig
}

// Sanitize clamps every section to usable values.
func (c *AppConfig) Sanitize() {
	for _, s := range []interface{ Sanitize() }{&c.Cache, &c.HTTP, &c.Dispatch, &c.Audit, &c.Redispatch, &c.Observability} {
		s.Sanitize()
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// SlogLevel parses LogLevel. "warning" is accepted; anything unknown is info.
func (c *AppConfig) SlogLevel() slog.Level {
	name := c.LogLevel
	if name == "warning" {
		name = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// GetEnabledServices parses Services.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// Enabled reports whether mode is listed in Services. An invalid list enables nothing.
func (c *AppConfig) Enabled(mode ServiceMode) bool {
	enabled, err := c.GetEnabledServices()
	return err == nil && enabled[mode]
}
