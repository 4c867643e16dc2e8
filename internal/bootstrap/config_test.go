package bootstrap

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/notifyd/config"
)

func TestGetEnabledServices(t *testing.T) {
	assert.Empty(t, GetEnabledServices(nil))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Equal(t, []string{"http", "redispatcher"},
		GetEnabledServices(&config.AppConfig{Services: "redispatcher, http"}))
}

func TestValidateServiceConfig(t *testing.T) {
	assert.Error(t, ValidateServiceConfig(nil))
	assert.Error(t, ValidateServiceConfig(&config.AppConfig{Services: ""}))
	assert.Error(t, ValidateServiceConfig(&config.AppConfig{Services: "scheduler"}))
	assert.NoError(t, ValidateServiceConfig(&config.AppConfig{Services: "http"}))
}

func TestNeedsRedis(t *testing.T) {
	tests := []struct {
		name     string
		cache    config.CacheBackend
		dispatch config.DispatchBackend
		want     bool
	}{
		{name: "redis cache", cache: config.CacheBackendRedis, dispatch: config.DispatchBackendPostgres, want: true},
		{name: "redis stream", cache: config.CacheBackendMemory, dispatch: config.DispatchBackendRedis, want: true},
		{name: "postgres only", cache: config.CacheBackendNone, dispatch: config.DispatchBackendPostgres, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.AppConfig{
				Cache:    config.CacheConfig{Backend: tt.cache},
				Dispatch: config.DispatchConfig{Backend: tt.dispatch},
			}
			assert.Equal(t, tt.want, NeedsRedis(cfg))
		})
	}
	assert.False(t, NeedsRedis(nil))
}

func TestNewJSONLogger_RespectsLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelWarn)
	logger.Info("dropped")
	logger.Warn("kept", "job_id", "j-1")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"job_id":"j-1"`)
	assert.Same(t, logger, slog.Default())
}

func TestLoadConfig_DotenvAndOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SERVICES=http\n"), 0o600))
	t.Setenv("SERVICES", "redispatcher")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "redispatcher", cfg.Services, "process env wins over dotenv")
}

func TestLoadConfig_MissingDotenvIsFine(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
