package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikolayk812/cartstore/internal/port"
)

const fileSuffix = ".json"

// fileStorage keeps one file per key, the local counterpart of browser storage.
type fileStorage struct {
	dir string
}

func NewFile(dir string) (port.Storage, error) {
	if dir == "" {
		return nil, errors.New("dir is empty")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}

	return &fileStorage{dir: dir}, nil
}

func (f *fileStorage) Get(_ context.Context, key string) (string, error) {
	path, err := f.path(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", port.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("os.ReadFile: %w", err)
	}

	return string(data), nil
}

// Set writes to a temp file and renames it so readers never see a partial value.
func (f *fileStorage) Set(_ context.Context, key, value string) (err error) {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("os.CreateTemp: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tmp.WriteString: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("os.Rename: %w", err)
	}

	return nil
}

func (f *fileStorage) path(key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("key[%s] is not a valid file name", key)
	}

	return filepath.Join(f.dir, key+fileSuffix), nil
}
