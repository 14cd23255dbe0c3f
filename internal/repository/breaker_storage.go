package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/sony/gobreaker/v2"
)

// breakerStorage trips after consecutive backend failures so a dead remote
// store fails fast instead of stalling every cart mutation.
type breakerStorage struct {
	next port.Storage
	cb   *gobreaker.CircuitBreaker[string]
}

type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func WithBreaker(next port.Storage, settings BreakerSettings) port.Storage {
	failures := settings.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    settings.Name,
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, port.ErrNotFound) || errors.Is(err, errEmptyKey)
		},
	})

	return &breakerStorage{next: next, cb: cb}
}

func (b *breakerStorage) Get(ctx context.Context, key string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Get(ctx, key)
	})
}

func (b *breakerStorage) Set(ctx context.Context, key, value string) error {
	_, err := b.cb.Execute(func() (string, error) {
		return "", b.next.Set(ctx, key, value)
	})
	return err
}
