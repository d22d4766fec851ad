package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-printshop/internal/config"
	dbgen "github.com/noah-isme/backend-printshop/internal/db/gen"
	"github.com/noah-isme/backend-printshop/internal/obs"
)

// Dependencies are the connections shared by the API and the worker.
type Dependencies struct {
	DB      *pgxpool.Pool
	Queries *dbgen.Queries
	Redis   *redis.Client
	Logger  zerolog.Logger
}

// Connect opens and pings Postgres and Redis. applicationName is reported to
// Postgres so sessions can be told apart in pg_stat_activity.
func Connect(ctx context.Context, cfg *config.Config, applicationName string, logger zerolog.Logger) (*Dependencies, error) {
	pool, err := openPool(ctx, cfg.DatabaseURL, applicationName)
	if err != nil {
		return nil, err
	}
	rdb, err := openRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Dependencies{DB: pool, Queries: dbgen.New(pool), Redis: rdb, Logger: logger}, nil
}

// Close releases both connections.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// PingDB backs the database readiness probe.
func (d *Dependencies) PingDB(ctx context.Context) error {
	return d.DB.Ping(ctx)
}

// PingRedis backs the redis readiness probe.
func (d *Dependencies) PingRedis(ctx context.Context) error {
	return d.Redis.Ping(ctx).Err()
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func (d *Dependencies) NewLimiterStore() (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(d.Redis, limiter.StoreOptions{Prefix: "ratelimit:global"})
}

func openPool(ctx context.Context, databaseURL, applicationName string) (*pgxpool.Pool, error) {
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

func openRedis(ctx context.Context, redisURL string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
