package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/telemed-portal/internal/config"
	"github.com/wolfman30/telemed-portal/pkg/logging"
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
		logger.Warn("redis not available, falling back to in-memory session state", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens the preference database or returns nil when
// DATABASE_URL is unset or unreachable.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *pgxpool.Pool {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("postgres config invalid, preferences stay in memory", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres not available, preferences stay in memory", "error", err)
		pool.Close()
		return nil
	}
	return pool
}
