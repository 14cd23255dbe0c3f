package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartstore/internal/config"
	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/redis/go-redis/v9"
)

// Open builds the storage selected by cfg.Backend. Remote backends are wrapped
// with a circuit breaker. The returned func releases backend connections.
func Open(ctx context.Context, cfg config.Storage) (port.Storage, func(), error) {
	noop := func() {}

	breaker := BreakerSettings{
		Name:                "storage-" + cfg.Backend,
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Breaker.OpenTimeout,
	}

	switch cfg.Backend {
	case "memory":
		return NewMemory(), noop, nil

	case "file":
		storage, err := NewFile(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("NewFile: %w", err)
		}
		return storage, noop, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pool.Ping: %w", err)
		}
		return WithBreaker(NewPostgres(pool), breaker), pool.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, errors.Join(fmt.Errorf("client.Ping: %w", err), client.Close())
		}
		return WithBreaker(NewRedis(client), breaker), func() { _ = client.Close() }, nil

	case "mongo":
		database, err := ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("ConnectMongo: %w", err)
		}
		closeFn := func() {
			_ = database.Client().Disconnect(context.Background())
		}
		return WithBreaker(NewMongo(database), breaker), closeFn, nil
	}

	return nil, nil, fmt.Errorf("storage backend[%s] is not supported", cfg.Backend)
}
