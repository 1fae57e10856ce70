package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// LoadJSON reads key and decodes it into T. Missing keys and content that
// does not decode both report found == false.
func LoadJSON[T any](ctx context.Context, store KVStore, key string) (T, bool, error) {
	var zero T
	if store == nil {
		return zero, false, &StorageError{Op: "get", Key: key, Cause: fmt.Errorf("core: store is not configured")}
	}
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return zero, false, asStorageError("get", key, err)
	}
	if !found || len(bytes.TrimSpace(raw)) == 0 {
		return zero, false, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, false, nil
	}
	return value, true, nil
}

// SaveJSON writes value under key in canonical form: compact with object
// keys sorted.
func SaveJSON(ctx context.Context, store KVStore, key string, value any) error {
	if store == nil {
		return &StorageError{Op: "set", Key: key, Cause: fmt.Errorf("core: store is not configured")}
	}
	payload, err := CanonicalJSON(value)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Cause: err}
	}
	if err := store.Set(ctx, key, payload); err != nil {
		return asStorageError("set", key, err)
	}
	return nil
}

func DeleteKey(ctx context.Context, store KVStore, key string) error {
	if store == nil {
		return &StorageError{Op: "delete", Key: key, Cause: fmt.Errorf("core: store is not configured")}
	}
	if err := store.Delete(ctx, key); err != nil {
		return asStorageError("delete", key, err)
	}
	return nil
}

func CanonicalJSON(value any) ([]byte, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var generic any
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

func asStorageError(op, key string, err error) error {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &StorageError{Op: op, Key: key, Cause: err}
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]byte{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("core: memory store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, fmt.Errorf("core: store key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if s == nil {
		return fmt.Errorf("core: memory store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("core: store key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = map[string][]byte{}
	}
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("core: memory store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("core: store key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
