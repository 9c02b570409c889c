// Package store persists small named records such as the high-score
// ledger. Records are opaque bytes keyed by name.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/lox/memorymatch/internal/config"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("store: record not found")

// Store is a key/value record store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open creates the backend described by cfg.
func Open(cfg config.StorageConfig, logger *log.Logger) (Store, error) {
	logger = logger.WithPrefix("store")

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Debug("Using in-memory store")
		return NewMemory(), nil

	case config.BackendFile, "":
		logger.Debug("Using file store", "dir", cfg.Path)
		return NewFile(cfg.Path), nil

	case config.BackendSQLite:
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "memorymatch.db")
		}
		logger.Debug("Using sqlite store", "path", path)
		return OpenSQLite(path, logger)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
