package port

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// Storage is a durable key-value store holding serialized cart snapshots.
type Storage interface {
	// Get returns ErrNotFound when nothing is stored under key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
