package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/redis/go-redis/v9"
)

type redisStorage struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) port.Storage {
	return &redisStorage{client: client}
}

func (r *redisStorage) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}

	value, err := r.client.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", port.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("client.Get: %w", err)
	}

	return value, nil
}

// Set stores without expiry, the cart is long-lived client state.
func (r *redisStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errEmptyKey
	}

	if err := r.client.Set(ctx, redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}

	return nil
}

func redisKey(key string) string {
	return fmt.Sprintf("cart:%s", key)
}
