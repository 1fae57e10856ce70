package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/goliatone/go-saved/core"
	"github.com/goliatone/go-saved/security"
	sqlstore "github.com/goliatone/go-saved/store/sql"
)

var errLocked = errors.New("another saved process is using this data directory")

// acquireLock takes the single-instance lock in dataDir.
func acquireLock(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	lock := flock.New(filepath.Join(dataDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", errLocked, dataDir)
	}
	return lock, nil
}

// openStore builds the key-value store for cfg.Storage. The returned close
// func is never nil.
func openStore(ctx context.Context, cfg core.Config) (core.KVStore, func() error, error) {
	noop := func() error { return nil }

	var (
		store   core.KVStore
		closeFn = noop
	)
	switch driver, _ := core.NormalizeStorageDriver(cfg.Storage.Driver); driver {
	case core.StorageDriverMemory:
		store = core.NewMemoryStore()
	default:
		opened, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver:   driver,
			DSN:      cfg.Storage.DSN,
			CacheTTL: time.Duration(cfg.Storage.CacheTTLSeconds) * time.Second,
		})
		if err != nil {
			return nil, noop, err
		}
		store = opened
		closeFn = opened.Close
	}

	if key := strings.TrimSpace(cfg.Storage.EncryptionKey); key != "" {
		secrets, err := security.NewAppKeySecretProviderFromString(key)
		if err != nil {
			_ = closeFn()
			return nil, noop, fmt.Errorf("storage encryption key: %w", err)
		}
		sealed, err := security.NewSealedStore(store, secrets)
		if err != nil {
			_ = closeFn()
			return nil, noop, err
		}
		store = sealed
	}
	return store, closeFn, nil
}
