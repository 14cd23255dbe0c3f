package repository_test

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/nikolayk812/cartstore/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestMongoStorage(t *testing.T) {
	ctx := t.Context()

	container, uri, err := startMongo(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	database, err := repository.ConnectMongo(ctx, uri, "cartdb_test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Client().Disconnect(context.Background())
	})

	storageContract(t, repository.NewMongo(database), gofakeit.UUID())
}
