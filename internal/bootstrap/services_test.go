package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/data"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAppConfig(cache config.CacheBackend) *config.AppConfig {
	cfg := &config.AppConfig{
		Services: "http,redispatcher",
		Cache:    config.CacheConfig{Backend: cache, FailOpen: true},
		Dispatch: config.DispatchConfig{Backend: config.DispatchBackendPostgres},
	}
	cfg.Sanitize()
	return cfg
}

func TestBuildCache(t *testing.T) {
	cache, err := buildCache(config.CacheConfig{Backend: config.CacheBackendNone}, nil)
	require.NoError(t, err)
	assert.Nil(t, cache)

	cache, err = buildCache(config.CacheConfig{Backend: config.CacheBackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &data.MemoryCacheRepo{}, cache)

	_, err = buildCache(config.CacheConfig{Backend: config.CacheBackendRedis}, nil)
	assert.Error(t, err)
}

func TestBuildProducer(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	q, err := buildProducer(config.DispatchConfig{Backend: config.DispatchBackendPostgres}, &ServiceDeps{DB: db})
	require.NoError(t, err)
	assert.IsType(t, &data.PgNotifyQueue{}, q)

	_, err = buildProducer(config.DispatchConfig{Backend: config.DispatchBackendRedis}, &ServiceDeps{DB: db})
	assert.Error(t, err, "redis stream needs a client")
}

func TestNewServices(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, backend := range []config.CacheBackend{config.CacheBackendMemory, config.CacheBackendNone} {
		t.Run(string(backend), func(t *testing.T) {
			svcs, err := NewServices(context.Background(), &ServiceDeps{
				Config: testAppConfig(backend),
				DB:     db,
				Logger: testLogger(),
			})
			require.NoError(t, err)

			assert.NotNil(t, svcs.Recorder)
			assert.NotNil(t, svcs.Dispatcher)
			assert.NotNil(t, svcs.StoreJobs)
			assert.NotNil(t, svcs.FeedCount)
			assert.NotNil(t, svcs.MessageSvc)
			if backend == config.CacheBackendNone {
				assert.Nil(t, svcs.Invalidator)
			} else {
				assert.NotNil(t, svcs.Invalidator)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			assert.NoError(t, svcs.Close(ctx))
		})
	}
}

func TestNewServicesRequiresDeps(t *testing.T) {
	_, err := NewServices(context.Background(), nil)
	require.Error(t, err)

	_, err = NewServices(context.Background(), &ServiceDeps{Config: testAppConfig(config.CacheBackendMemory)})
	require.Error(t, err)
}

func TestNewHTTPServerServesProbes(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectPing()

	cfg := testAppConfig(config.CacheBackendMemory)
	svcs, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, DB: db, Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svcs.Close(context.Background()) })

	server := NewHTTPServer(HTTPServerConfig{HTTP: cfg.HTTP, Services: &svcs, DB: db, Logger: testLogger()})

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildBackgroundServices(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testAppConfig(config.CacheBackendMemory)
	svcs, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, DB: db, Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svcs.Close(context.Background()) })

	got, err := buildBackgroundServices(&ServiceOrchestrationConfig{Config: cfg, Services: &svcs, DB: db}, testLogger())
	require.NoError(t, err)
	names := make([]string, 0, len(got))
	for _, svc := range got {
		names = append(names, svc.name)
	}
	assert.Equal(t, []string{"http", "redispatcher"}, names)
}

func TestRunServicesWithShutdownStopsOnCancel(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testAppConfig(config.CacheBackendMemory)
	cfg.Services = "http"
	cfg.HTTP.Addr = "127.0.0.1:0"
	svcs, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, DB: db, Logger: testLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunServicesWithShutdown(ctx, &ServiceOrchestrationConfig{Config: cfg, Services: &svcs, DB: db, Logger: testLogger()})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("services did not stop after cancel")
	}
}

func TestReadinessChecks_IncludesCacheWhenConfigured(t *testing.T) {
	assert.Empty(t, readinessChecks(nil, nil, nil))

	cache := data.NewMemoryCacheRepo(nil)
	checks := readinessChecks(nil, nil, cache)
	require.Contains(t, checks, "cache")
	assert.NoError(t, checks["cache"](context.Background()))
	assert.NotContains(t, checks, "postgres")
}
