package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/migrate"
)

const connectTimeout = 5 * time.Second

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// buildDSN renders a postgres URL; url.URL escapes special characters in credentials.
func buildDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	q.Set("application_name", "notifyd")
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectDB establishes a connection to the PostgreSQL database.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", buildDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	maxOpen := cfg.DBConfig.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(max(maxOpen/4, 2))
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}

	return db, nil
}

// ConnectRedis resolves the configured topology, dials it and pings once.
//
//nolint:ireturn // single, sentinel and cluster clients share redis.UniversalClient.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	target, err := resolveRedisTarget(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := target.client()

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", target, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "redis connected", "target", target.String())
	}
	return client, nil
}

type redisMode int

const (
	redisDirect redisMode = iota
	redisSentinel
	redisCluster
)

// redisTarget is the resolved connection plan. String never includes credentials.
type redisTarget struct {
	mode             redisMode
	addrs            []string
	username         string
	password         string
	db               int
	tls              *tls.Config
	masterName       string
	sentinelPassword string
}

func (t redisTarget) String() string {
	switch t.mode {
	case redisCluster:
		return "cluster:" + strings.Join(t.addrs, ",")
	case redisSentinel:
		return "sentinel:" + t.masterName
	default:
		return strings.Join(t.addrs, ",")
	}
}

//nolint:ireturn // see ConnectRedis.
func (t redisTarget) client() redis.UniversalClient {
	switch t.mode {
	case redisCluster:
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:     t.addrs,
			Username:  t.username,
			Password:  t.password,
			TLSConfig: t.tls,
		})
	case redisSentinel:
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       t.masterName,
			SentinelAddrs:    t.addrs,
			Password:         t.password,
			SentinelPassword: t.sentinelPassword,
			DB:               t.db,
		})
	default:
		return redis.NewClient(&redis.Options{
			Addr:      t.addrs[0],
			Username:  t.username,
			Password:  t.password,
			DB:        t.db,
			TLSConfig: t.tls,
		})
	}
}

// resolveRedisTarget turns RedisConfig into a redisTarget. A redis:// or rediss:// URI supplies
// address, credentials, DB and TLS; a bare host:port uses the separate password and DB fields.
// In cluster mode with no explicit nodes the URI host seeds discovery.
func resolveRedisTarget(cfg config.RedisConfig) (redisTarget, error) {
	t := redisTarget{password: cfg.Password, db: cfg.DB}

	switch {
	case cfg.UseCluster:
		t.mode = redisCluster
		t.addrs = trimAddrs(cfg.ClusterNodes)
		if len(t.addrs) == 0 {
			if err := t.applyURI(cfg.URI); err != nil {
				return redisTarget{}, fmt.Errorf("redis cluster seed: %w", err)
			}
		}
		if len(t.addrs) == 0 {
			return redisTarget{}, errors.New("redis cluster needs REDIS_CLUSTER_NODES or REDIS_URI")
		}
	case cfg.UseSentinel:
		t.mode = redisSentinel
		t.addrs = trimAddrs(cfg.SentinelNodes)
		t.masterName = cfg.SentinelMasterName
		t.sentinelPassword = cfg.SentinelPassword
		if len(t.addrs) == 0 {
			return redisTarget{}, errors.New("redis sentinel needs at least one REDIS_SENTINEL_NODES entry")
		}
	default:
		if err := t.applyURI(cfg.URI); err != nil {
			return redisTarget{}, err
		}
		if len(t.addrs) == 0 {
			return redisTarget{}, errors.New("redis needs REDIS_URI")
		}
	}
	return t, nil
}

func (t *redisTarget) applyURI(raw string) error {
	uri := strings.TrimSpace(raw)
	if uri == "" {
		return nil
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		t.addrs = []string{uri}
		return nil
	}
	opt, err := redis.ParseURL(uri)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	t.addrs = []string{opt.Addr}
	t.username = opt.Username
	if opt.Password != "" {
		t.password = opt.Password
	}
	if opt.DB != 0 {
		t.db = opt.DB
	}
	t.tls = opt.TLSConfig
	return nil
}

func trimAddrs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Infra is the pair of store connections a process shares. Redis is nil when no backend needs it.
type Infra struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

// OpenInfra connects Postgres and, when withRedis is set and a configured backend uses it, Redis.
// On failure everything already opened is closed again.
func OpenInfra(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, withRedis bool) (*Infra, error) {
	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}
	db, err := ConnectDB(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	infra := &Infra{DB: db}
	if !withRedis || !NeedsRedis(cfg) {
		return infra, nil
	}
	if infra.Redis, err = ConnectRedis(ctx, dbCfg); err != nil {
		return nil, errors.Join(fmt.Errorf("connect redis: %w", err), infra.Close())
	}
	return infra, nil
}

// Close closes Redis before Postgres and joins both errors.
func (i *Infra) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RunMigrations runs database migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}

	return nil
}
