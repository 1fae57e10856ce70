package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-saved/core"
	"github.com/goliatone/go-saved/migrations"
)

const defaultPingTimeout = 5 * time.Second

// Config selects the database backing the key-value store.
type Config struct {
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
	// CacheTTL enables the read-through cache when positive.
	CacheTTL time.Duration
	// MigrationsFS replaces the embedded schema, laid out like
	// data/sql/migrations with a sqlite/ subdirectory.
	MigrationsFS fs.FS
}

type persistenceConfig struct {
	cfg Config
}

func (c persistenceConfig) GetDebug() bool {
	return c.cfg.Debug
}

func (c persistenceConfig) GetDriver() string {
	return c.cfg.Driver
}

func (c persistenceConfig) GetServer() string {
	return c.cfg.DSN
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	if c.cfg.PingTimeout <= 0 {
		return defaultPingTimeout
	}
	return c.cfg.PingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-saved"
}

// Store is an opened, migrated key-value store and the client that owns
// its connection.
type Store struct {
	kv     core.KVStore
	client *persistence.Client
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.kv.Get(ctx, key)
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.kv.Set(ctx, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}

func (s *Store) DB() *bun.DB {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.DB()
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Open connects to the configured database, applies the embedded
// migrations for its dialect and returns the store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	driver, dialect, err := resolveDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	cfg.Driver = driver
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required for driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == core.StorageDriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{cfg: cfg}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	_, err = migrations.Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.ForDriver(driver), migrations.FromFS(cfg.MigrationsFS))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}

	base, err := NewKVStore(client.DB())
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	store := &Store{kv: base, client: client}
	if cfg.CacheTTL > 0 {
		cacheConfig := repositorycache.DefaultConfig()
		cacheConfig.TTL = cfg.CacheTTL
		cacheService, err := repositorycache.NewCacheService(cacheConfig)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("sqlstore: new cache service: %w", err)
		}
		cached, err := NewCachedKVStore(base, cacheService)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		store.kv = cached
	}
	return store, nil
}

func resolveDriver(driver string) (string, schema.Dialect, error) {
	normalized, _ := core.NormalizeStorageDriver(driver)
	switch normalized {
	case core.StorageDriverSQLite:
		return normalized, sqlitedialect.New(), nil
	case core.StorageDriverPostgres:
		return normalized, pgdialect.New(), nil
	default:
		return "", nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

var _ core.KVStore = (*Store)(nil)
