package bootstrap

import (
	"errors"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/notifyd/config"
)

func TestBuildDSNEscapesCredentials(t *testing.T) {
	dsn := buildDSN(config.DBConfig{
		Host:     "db.internal",
		Port:     6543,
		User:     "notifyd",
		Password: "p@ss:w/rd",
		Name:     "notifyd",
		SSLMode:  "require",
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:6543", u.Host)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss:w/rd", pw)
	assert.Equal(t, "/notifyd", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestResolveRedisTarget_Direct(t *testing.T) {
	_, err := resolveRedisTarget(config.RedisConfig{URI: "  "})
	require.Error(t, err)

	target, err := resolveRedisTarget(config.RedisConfig{URI: "redis://:secret@cache:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cache:6380"}, target.addrs)
	assert.Equal(t, "secret", target.password)
	assert.Equal(t, 2, target.db)
	assert.Equal(t, "cache:6380", target.String())

	target, err = resolveRedisTarget(config.RedisConfig{URI: "localhost:6379", Password: "pw", DB: 3})
	require.NoError(t, err)
	assert.Equal(t, redisDirect, target.mode)
	assert.Equal(t, "pw", target.password)
	assert.Equal(t, 3, target.db)

	_, err = resolveRedisTarget(config.RedisConfig{URI: "redis://%zz"})
	assert.Error(t, err)
}

func TestResolveRedisTarget_Sentinel(t *testing.T) {
	_, err := resolveRedisTarget(config.RedisConfig{UseSentinel: true, SentinelNodes: []string{" "}})
	require.Error(t, err)

	target, err := resolveRedisTarget(config.RedisConfig{
		UseSentinel:        true,
		SentinelNodes:      []string{"s1:26379", "s2:26379"},
		SentinelMasterName: "primary",
		SentinelPassword:   "sp",
	})
	require.NoError(t, err)
	assert.Equal(t, "sentinel:primary", target.String())
	assert.Equal(t, "sp", target.sentinelPassword)
}

func TestResolveRedisTarget_Cluster(t *testing.T) {
	_, err := resolveRedisTarget(config.RedisConfig{UseCluster: true})
	require.Error(t, err, "no nodes and no URI")

	target, err := resolveRedisTarget(config.RedisConfig{UseCluster: true, ClusterNodes: []string{" a:1 ", "", "b:2"}})
	require.NoError(t, err)
	assert.Equal(t, "cluster:a:1,b:2", target.String())

	target, err = resolveRedisTarget(config.RedisConfig{UseCluster: true, URI: "rediss://user:pw@seed:7000"})
	require.NoError(t, err)
	assert.Equal(t, "cluster:seed:7000", target.String())
	assert.Equal(t, "user", target.username)
	assert.NotNil(t, target.tls)
}

func TestRedisTargetClient_Kinds(t *testing.T) {
	cases := map[string]redisTarget{
		"direct":   {mode: redisDirect, addrs: []string{"localhost:1"}},
		"sentinel": {mode: redisSentinel, addrs: []string{"localhost:2"}, masterName: "m"},
		"cluster":  {mode: redisCluster, addrs: []string{"localhost:3"}},
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			c := target.client()
			require.NotNil(t, c)
			assert.NoError(t, c.Close())
		})
	}
}

func TestInfraClose(t *testing.T) {
	var nilInfra *Infra
	require.NoError(t, nilInfra.Close())

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose().WillReturnError(errors.New("busy"))

	client := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	err = (&Infra{DB: db, Redis: client}).Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close db: busy")
	assert.NoError(t, mock.ExpectationsWereMet())
}
