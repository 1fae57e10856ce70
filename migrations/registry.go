// Package migrations locates the embedded SQL schema per dialect and feeds
// it to a migration runner.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	saved "github.com/goliatone/go-saved"
	"github.com/goliatone/go-saved/core"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// SourceLabel tags every registration made from this package.
	SourceLabel = "go-saved"

	migrationsDir = "data/sql/migrations"
)

// DialectForDriver maps a database/sql driver name onto the migration
// dialect directory it reads.
func DialectForDriver(driver string) (string, error) {
	normalized, _ := core.NormalizeStorageDriver(driver)
	switch normalized {
	case core.StorageDriverSQLite:
		return DialectSQLite, nil
	case core.StorageDriverPostgres:
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}

// Source is the migration directory of one dialect.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Registration records what Register handed to the runner.
type Registration struct {
	Dialects []string
	Sources  []Source
	err      error
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// ForDriver limits registration to the dialect used by driver.
func ForDriver(driver string) Option {
	return func(r *Registration) {
		dialect, err := DialectForDriver(driver)
		if err != nil {
			r.err = err
			return
		}
		r.Dialects = []string{dialect}
	}
}

// FromFS reads the dialect directories from root instead of the embedded
// schema. root uses the same layout: postgres files at the top (or under
// data/sql/migrations), sqlite files in a sqlite/ subdirectory.
func FromFS(root fs.FS) Option {
	return func(r *Registration) {
		if root == nil {
			return
		}
		sources, err := Sources(root)
		if err != nil {
			r.err = err
			return
		}
		r.Sources = sources
	}
}

// Sources resolves the postgres and sqlite directories under root, or
// under the embedded schema when root is nil. Each must hold at least one
// *.up.sql file.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = saved.GetMigrationsFS()
	}
	base, basePath, err := locateRoot(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite directory: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Path: basePath, FS: base},
		{Dialect: DialectSQLite, Path: joinPath(basePath, "sqlite"), FS: sqliteFS},
	}
	for _, source := range sources {
		matches, err := fs.Glob(source.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", source.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s directory %q has no *.up.sql files", source.Dialect, source.Path)
		}
	}
	return sources, nil
}

// Register passes the source of every selected dialect to registerFn.
// Without ForDriver both dialects are registered.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{Dialects: []string{DialectPostgres, DialectSQLite}}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if reg.err != nil {
		return reg, reg.err
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	if reg.Sources == nil {
		sources, err := Sources(nil)
		if err != nil {
			return reg, err
		}
		reg.Sources = sources
	}

	for _, dialect := range reg.Dialects {
		source, ok := sourceFor(reg.Sources, dialect)
		if !ok {
			return reg, fmt.Errorf("migrations: no source for dialect %s", dialect)
		}
		if err := registerFn(ctx, dialect, SourceLabel, source.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", dialect, source.Path, err)
		}
	}
	return reg, nil
}

func sourceFor(sources []Source, dialect string) (Source, bool) {
	for _, source := range sources {
		if source.Dialect == dialect && source.FS != nil {
			return source, true
		}
	}
	return Source{}, false
}

func locateRoot(root fs.FS) (fs.FS, string, error) {
	if info, err := fs.Stat(root, migrationsDir); err == nil && info.IsDir() {
		sub, err := fs.Sub(root, migrationsDir)
		if err != nil {
			return nil, "", fmt.Errorf("migrations: open %s: %w", migrationsDir, err)
		}
		return sub, migrationsDir, nil
	}
	if matches, err := fs.Glob(root, "*.sql"); err == nil && len(matches) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", migrationsDir)
}

func joinPath(base, suffix string) string {
	if base == "." {
		return suffix
	}
	return strings.TrimSuffix(base, "/") + "/" + suffix
}
