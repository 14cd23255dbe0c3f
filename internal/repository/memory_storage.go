package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/nikolayk812/cartstore/internal/port"
)

var errEmptyKey = errors.New("key is empty")

type memoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() port.Storage {
	return &memoryStorage{
		values: make(map[string]string),
	}
}

func (m *memoryStorage) Get(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", port.ErrNotFound
	}
	return value, nil
}

func (m *memoryStorage) Set(_ context.Context, key, value string) error {
	if key == "" {
		return errEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}
