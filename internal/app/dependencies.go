package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/db"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/obs"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/ratelimit"
)

// OpenPostgres connects a traced pgx pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, databaseURL, applicationName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenRedis connects an instrumented Redis client. Instrumentation failures are
// logged and do not prevent startup.
func OpenRedis(ctx context.Context, redisURL string, withMetrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisConnOpt converts the Redis URL into asynq connection options.
func RedisConnOpt(redisURL string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri for tasks: %w", err)
	}
	return opt, nil
}

// NewTaskClient returns the asynq client used to enqueue background cart clears.
func NewTaskClient(redisURL string) (*asynq.Client, error) {
	opt, err := RedisConnOpt(redisURL)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}

// NewLimiter shares rate limit counters through Redis.
func NewLimiter(rdb *redis.Client) (ratelimit.Limiter, error) {
	l, err := ratelimit.NewRedisLimiter(rdb, "ratelimit")
	if err != nil {
		return nil, fmt.Errorf("rate limiter store: %w", err)
	}
	return l, nil
}

// RunMigrations applies embedded schema migrations.
func RunMigrations(databaseURL string) error {
	return db.Up(databaseURL)
}
