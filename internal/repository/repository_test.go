package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			"../migrations/01_cart_state.up.sql"),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}

	return postgresContainer, connStr, nil
}

func startMongo(ctx context.Context) (*mongodb.MongoDBContainer, string, error) {
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		return nil, "", fmt.Errorf("mongodb.Run: %w", err)
	}

	uri, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("mc.ConnectionString: %w", err)
	}

	return mongoContainer, uri, nil
}

// storageContract runs the behaviour every port.Storage must share.
func storageContract(t *testing.T, storage port.Storage, key string) {
	t.Helper()
	ctx := t.Context()

	t.Run("get missing key: not found", func(t *testing.T) {
		_, err := storage.Get(ctx, key)
		require.ErrorIs(t, err, port.ErrNotFound)
	})

	t.Run("set then get: ok", func(t *testing.T) {
		require.NoError(t, storage.Set(ctx, key, `[{"product_id":"P1"}]`))

		value, err := storage.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[{"product_id":"P1"}]`, value)
	})

	t.Run("set overwrites: ok", func(t *testing.T) {
		require.NoError(t, storage.Set(ctx, key, `[]`))

		value, err := storage.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[]`, value)
	})

	t.Run("empty key: error", func(t *testing.T) {
		_, err := storage.Get(ctx, "")
		require.EqualError(t, err, "key is empty")

		err = storage.Set(ctx, "", "x")
		require.EqualError(t, err, "key is empty")
	})
}
