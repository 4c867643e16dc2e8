package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCandidates are probed in order when REDIS_ADDR is unset: the CI service name,
// a plain local install, then the docker-compose test profile.
var redisCandidates = []string{"redis:6379", "localhost:6379", "localhost:56379"} //nolint:gochecknoglobals // probe order

// SetupTestRedis returns a client on a flushed logical DB reserved for this test.
// Reservations live in DB 0 so flushing the test DB never drops them.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	addr, ok := reachableRedis(t)
	if !ok {
		unavailable(t, requireRedis(), "redis not available for testing")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, addr)})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		unavailable(t, requireRedis(), "flush test redis at %s: %v", addr, err)
	}
	return client
}

func reachableRedis(t testing.TB) (string, bool) {
	t.Helper()
	candidates := redisCandidates
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		candidates = []string{addr}
	}
	for _, addr := range candidates {
		if pingRedis(addr) == nil {
			return addr, true
		}
	}
	t.Logf("redis not reachable at %v", candidates)
	return "", false
}

func pingRedis(addr string) error {
	c := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = c.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}

// reserveRedisDB honours TEST_REDIS_DB, else claims the first free DB in 1..15 with SET NX.
// Falls back to DB 1 when every slot is taken.
func reserveRedisDB(t testing.TB, addr string) int {
	t.Helper()
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = meta.Close() }()

	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for n := 1; n <= 15; n++ {
		key := fmt.Sprintf("notifyd:testutil:db_lock:%d", n)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		claimed, err := meta.SetNX(ctx, key, owner, 30*time.Minute).Result()
		cancel()
		if err != nil || !claimed {
			continue
		}
		t.Cleanup(func() { releaseRedisDB(t, addr, key) })
		return n
	}
	t.Logf("all redis test DBs reserved, sharing DB 1")
	return 1
}

func releaseRedisDB(t testing.TB, addr, key string) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = c.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Del(ctx, key).Err(); err != nil {
		t.Logf("release %s: %v", key, err)
	}
}
