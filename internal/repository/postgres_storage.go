package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartstore/internal/db"
	"github.com/nikolayk812/cartstore/internal/port"
)

type postgresStorage struct {
	q *db.Queries
}

func NewPostgres(pool *pgxpool.Pool) port.Storage {
	return &postgresStorage{
		q: db.New(pool),
	}
}

func NewPostgresWithTx(tx pgx.Tx) port.Storage {
	return &postgresStorage{
		q: db.New(tx),
	}
}

func (r *postgresStorage) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}

	state, err := r.q.GetState(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", port.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("q.GetState: %w", err)
	}

	return state.Value, nil
}

func (r *postgresStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errEmptyKey
	}

	err := r.q.UpsertState(ctx, db.UpsertStateParams{
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("q.UpsertState: %w", err)
	}

	return nil
}
