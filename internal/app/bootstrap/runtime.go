package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/stazy/concierge/internal/config"
	"github.com/stazy/concierge/internal/memory"
	"github.com/stazy/concierge/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildMemoryStore prefers Redis and falls back to an in-process store.
func BuildMemoryStore(client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) memory.Store {
	if logger == nil {
		logger = logging.Default()
	}
	maxTurns, ttl := memory.DefaultMaxTurns, memory.DefaultTTL
	if cfg != nil {
		if cfg.MemoryMaxTurns > 0 {
			maxTurns = cfg.MemoryMaxTurns
		}
		if cfg.MemoryTTL > 0 {
			ttl = cfg.MemoryTTL
		}
	}
	if client == nil {
		logger.Warn("redis not configured; conversation memory is process-local")
		return memory.NewLocalStore(maxTurns, ttl)
	}
	return memory.NewRedisStore(client, maxTurns, ttl, logger)
}

// BuildPostgresPool connects to Postgres, returning nil when no URL is set or
// the database is unreachable.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}
