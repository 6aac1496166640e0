// Package storage provides the durable key/value port the session record is
// written to. Backends: a JSON file, the OS keyring, a SQLite database,
// Redis and process memory.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartsim-dev/smartsim/internal/config"
)

// ErrNotFound is returned by Get when the key holds no value
var ErrNotFound = errors.New("key not found")

// KV is a string key/value store.
// Delete ignores keys that are already absent.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Open returns the backend selected by cfg.Driver
func Open(cfg config.StorageConfig) (KV, error) {
	switch cfg.Driver {
	case config.StorageFile:
		return NewFile(cfg.Path), nil
	case config.StorageKeyring:
		return NewKeyring(KeyringService), nil
	case config.StorageSQLite:
		return OpenSQLite(cfg.Path)
	case config.StorageRedis:
		return OpenRedis(cfg.Redis)
	case config.StorageMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
