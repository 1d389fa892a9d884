// Package factory builds a state.Store from environment configuration.
package factory

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhesrivas/industriage/internal/config"
	"github.com/abhesrivas/industriage/state"
	"github.com/abhesrivas/industriage/state/hybrid"
	redisstore "github.com/abhesrivas/industriage/state/redis"
	sqlitestore "github.com/abhesrivas/industriage/state/sqlite"
)

// FromEnv selects a store backend from INDUSTRIAGE_STATE_BACKEND: sqlite
// (default), redis, or hybrid (sqlite durable + redis cache).
func FromEnv() (state.Store, error) {
	backend := strings.ToLower(config.Getenv("INDUSTRIAGE_STATE_BACKEND", "sqlite"))
	switch backend {
	case "sqlite":
		return sqlitestore.New(sqlitePath())

	case "redis":
		return newRedisStoreFromEnv()

	case "hybrid":
		durable, err := sqlitestore.New(sqlitePath())
		if err != nil {
			return nil, err
		}
		cache, err := newRedisStoreFromEnv()
		if err != nil {
			return hybrid.New(durable, nil)
		}
		return hybrid.New(durable, cache)

	default:
		return nil, fmt.Errorf("unsupported INDUSTRIAGE_STATE_BACKEND %q (use sqlite, redis, or hybrid)", backend)
	}
}

func sqlitePath() string {
	return config.Getenv("INDUSTRIAGE_SQLITE_PATH", "./.industriage/state.db")
}

func newRedisStoreFromEnv() (state.Store, error) {
	addr := config.Getenv("INDUSTRIAGE_REDIS_ADDR", "127.0.0.1:6379")
	opts := []redisstore.Option{
		redisstore.WithPassword(config.Getenv("INDUSTRIAGE_REDIS_PASSWORD", "")),
		redisstore.WithDB(config.GetenvInt("INDUSTRIAGE_REDIS_DB", 0)),
		redisstore.WithTTL(config.GetenvDuration("INDUSTRIAGE_REDIS_TTL", 72*time.Hour)),
	}
	return redisstore.New(addr, opts...)
}
