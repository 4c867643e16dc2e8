// Package bootstrap wires configuration, infrastructure and services into a running process.
package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/notifyd/config"
)

// InitLogger installs a JSON slog logger on stdout as the process default.
func InitLogger(level slog.Leveler) *slog.Logger {
	return newJSONLogger(os.Stdout, level)
}

func newJSONLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	if level == nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig reads dotenv files (default .env; missing files are fine) and then parses the
// process environment into AppConfig. Real environment variables win over dotenv values.
func LoadConfig(dotenvFiles ...string) (config.AppConfig, error) {
	var cfg config.AppConfig
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load dotenv: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig rejects an unparseable or empty SERVICES list.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	enabled, err := cfg.GetEnabledServices()
	switch {
	case err != nil:
		return fmt.Errorf("invalid service configuration: %w", err)
	case len(enabled) == 0:
		return errors.New("no services enabled")
	}
	return nil
}

// GetEnabledServices lists enabled service names in sorted order, or nothing when the list is invalid.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return nil
	}
	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(enabled))
	for mode := range maps.Keys(enabled) {
		names = append(names, string(mode))
	}
	slices.Sort(names)
	return names
}

// NeedsRedis reports whether the configured cache or dispatch backend talks to Redis.
func NeedsRedis(cfg *config.AppConfig) bool {
	if cfg == nil {
		return false
	}
	return cfg.Cache.Backend == config.CacheBackendRedis || cfg.Dispatch.Backend == config.DispatchBackendRedis
}
