package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-saved/core"
)

// KVStore persists string-keyed values in saved_kv_entries. Each key holds
// one row; Set overwrites it.
type KVStore struct {
	db   *bun.DB
	repo repository.Repository[*kvEntryRecord]
	now  func() time.Time
}

func NewKVStore(db *bun.DB) (*KVStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*kvEntryRecord](db, kvEntryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid kv repository wiring: %w", err)
		}
	}
	return &KVStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.repo == nil {
		return nil, false, fmt.Errorf("sqlstore: kv store is not configured")
	}
	key, err := normalizeKey(key)
	if err != nil {
		return nil, false, err
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("store_key", "=", key),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 || records[0] == nil {
		return nil, false, nil
	}
	return []byte(records[0].Value), true, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: kv store is not configured")
	}
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	now := s.now()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findKVEntryTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			record = &kvEntryRecord{
				ID:        uuid.NewString(),
				StoreKey:  key,
				Value:     string(value),
				CreatedAt: now,
				UpdatedAt: now,
			}
			_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
			return insertErr
		}
		record.Value = string(value)
		record.UpdatedAt = now
		_, updateErr := tx.NewUpdate().
			Model(record).
			Column("value", "updated_at").
			Where("id = ?", record.ID).
			Exec(ctx)
		return updateErr
	})
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: kv store is not configured")
	}
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	_, err = s.db.NewDelete().
		Model((*kvEntryRecord)(nil)).
		Where("store_key = ?", key).
		Exec(ctx)
	return err
}

func findKVEntryTx(ctx context.Context, tx bun.Tx, key string) (*kvEntryRecord, error) {
	record := &kvEntryRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.store_key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("sqlstore: key is required")
	}
	return key, nil
}

var _ core.KVStore = (*KVStore)(nil)
