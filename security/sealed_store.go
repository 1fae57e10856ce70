package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-saved/core"
)

// SealedStore encrypts values on Set and decrypts them on Get. Values
// written before sealing was enabled are read back unchanged and sealed on
// their next write.
type SealedStore struct {
	base    core.KVStore
	secrets core.SecretProvider
}

func NewSealedStore(base core.KVStore, secrets core.SecretProvider) (*SealedStore, error) {
	if base == nil {
		return nil, fmt.Errorf("security: base store is required")
	}
	if secrets == nil {
		return nil, fmt.Errorf("security: secret provider is required")
	}
	return &SealedStore{base: base, secrets: secrets}, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.base == nil {
		return nil, false, fmt.Errorf("security: sealed store is not configured")
	}
	value, found, err := s.base.Get(ctx, key)
	if err != nil || !found {
		return value, found, err
	}
	plaintext, err := s.secrets.Decrypt(ctx, value)
	if errors.Is(err, ErrNotSealed) {
		return value, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("security: open %q: %w", key, err)
	}
	return plaintext, true, nil
}

func (s *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	if s == nil || s.base == nil {
		return fmt.Errorf("security: sealed store is not configured")
	}
	sealed, err := s.secrets.Encrypt(ctx, value)
	if err != nil {
		return fmt.Errorf("security: seal %q: %w", key, err)
	}
	return s.base.Set(ctx, key, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.base == nil {
		return fmt.Errorf("security: sealed store is not configured")
	}
	return s.base.Delete(ctx, key)
}

var _ core.KVStore = (*SealedStore)(nil)
