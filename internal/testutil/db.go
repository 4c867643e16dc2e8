package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	// pgx registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/target/notifyd/internal/migrate"
)

// DBConfig locates the Postgres instance integration tests run against.
// The default port matches the docker-compose test profile; CI sets TEST_DB_PORT=5432.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DBConfigFromEnv reads TEST_DB_* variables, falling back to the local test profile.
func DBConfigFromEnv() DBConfig {
	return DBConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "55432"),
		User:     envOr("TEST_DB_USER", "notifyd"),
		Password: envOr("TEST_DB_PASSWORD", "notifyd"),
		Name:     envOr("TEST_DB_NAME", "notifyd"),
		SSLMode:  envOr("DB_SSL_MODE", "disable"),
	}
}

// DSN renders a postgres URL. A non-empty schema is put first on the search_path.
func (c DBConfig) DSN(schema string) string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if schema != "" {
		q.Set("search_path", schema+",public")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// jobTables are truncated between shared-database tests, children first.
var jobTables = []string{"messages", "execution_details", "jobs"} //nolint:gochecknoglobals // fixed table list

// WithAutoDB hands fn a migrated database. With TEST_DB_EPHEMERAL set each test gets its own
// schema, dropped afterwards; otherwise the shared database is wiped before and after fn.
// The test is skipped when Postgres is unreachable unless TEST_REQUIRE_DB or TEST_REQUIRE_INFRA is set.
func WithAutoDB(t testing.TB, fn func(*sql.DB)) {
	t.Helper()
	cfg := DBConfigFromEnv()

	if envBool("TEST_DB_EPHEMERAL") {
		fn(openEphemeral(t, cfg))
		return
	}

	db := openMigrated(t, cfg.DSN(""))
	truncateJobTables(t, db)
	t.Cleanup(func() {
		truncateJobTables(t, db)
		_ = db.Close()
	})
	fn(db)
}

func openMigrated(t testing.TB, dsn string) *sql.DB {
	t.Helper()
	db := openReachable(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := migrate.Run(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func openReachable(t testing.TB, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		unavailable(t, requireDB(), "open test database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		unavailable(t, requireDB(), "test database not reachable (docker compose --profile test up -d): %v", err)
	}
	return db
}

func openEphemeral(t testing.TB, cfg DBConfig) *sql.DB {
	t.Helper()
	admin := openReachable(t, cfg.DSN(""))
	schema := schemaName()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}

	var db *sql.DB
	t.Cleanup(func() {
		if db != nil {
			_ = db.Close()
		}
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		if _, err := admin.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		_ = admin.Close()
	})

	db = openMigrated(t, cfg.DSN(schema))
	db.SetMaxOpenConns(10)
	t.Logf("ephemeral schema %s", schema)
	return db
}

func truncateJobTables(t testing.TB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, table := range jobTables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clear %s: %v", table, err)
		}
	}
}

func schemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "t_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return "t_" + hex.EncodeToString(b)
}

func unavailable(t testing.TB, required bool, format string, args ...any) {
	t.Helper()
	if required {
		t.Fatalf(format, args...)
	}
	t.Skipf(format, args...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
