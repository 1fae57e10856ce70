package sqlstore

import (
	"context"
	"fmt"
	"net/url"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-saved/core"
)

const kvCacheKeyPrefix = "go-saved::kv::v1"

// CachedKVStore reads through a cache and drops the cached entry on every
// write. Misses are cached too.
type CachedKVStore struct {
	base  core.KVStore
	cache repositorycache.CacheService
}

type cachedKVEntry struct {
	Value []byte
	Found bool
}

func NewCachedKVStore(base core.KVStore, cacheService repositorycache.CacheService) (*CachedKVStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base kv store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: kv cache service is required")
	}
	return &CachedKVStore{base: base, cache: cacheService}, nil
}

// KVCacheKey returns go-saved::kv::v1::<key> with the key URL-path escaped.
func KVCacheKey(key string) (string, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return "", err
	}
	return kvCacheKeyPrefix + "::" + url.PathEscape(key), nil
}

func (s *CachedKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, false, fmt.Errorf("sqlstore: cached kv store is not configured")
	}
	cacheKey, err := KVCacheKey(key)
	if err != nil {
		return nil, false, err
	}
	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedKVEntry, error) {
		value, found, fetchErr := s.base.Get(ctx, key)
		if fetchErr != nil {
			return cachedKVEntry{}, fetchErr
		}
		return cachedKVEntry{Value: append([]byte(nil), value...), Found: found}, nil
	})
	if err != nil {
		return nil, false, err
	}
	if !entry.Found {
		return nil, false, nil
	}
	return append([]byte(nil), entry.Value...), true, nil
}

func (s *CachedKVStore) Set(ctx context.Context, key string, value []byte) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached kv store is not configured")
	}
	if err := s.base.Set(ctx, key, value); err != nil {
		return err
	}
	return s.invalidate(ctx, key)
}

func (s *CachedKVStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached kv store is not configured")
	}
	if err := s.base.Delete(ctx, key); err != nil {
		return err
	}
	return s.invalidate(ctx, key)
}

func (s *CachedKVStore) invalidate(ctx context.Context, key string) error {
	cacheKey, err := KVCacheKey(key)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.KVStore = (*CachedKVStore)(nil)
