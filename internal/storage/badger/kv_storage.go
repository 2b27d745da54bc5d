package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/reelscan/reelscan/internal/interfaces"
)

// KeyValuePair is a stored configuration document.
type KeyValuePair struct {
	Key       string `badgerhold:"key"`
	Value     string
	UpdatedAt time.Time
}

// KVStorage implements the KeyValueStorage interface for Badger
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var pair KeyValuePair
	if err := s.db.Store().Get(key, &pair); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", fmt.Errorf("%w: %s", interfaces.ErrKeyNotFound, key)
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return pair.Value, nil
}

func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	pair := KeyValuePair{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.db.Store().Upsert(key, pair); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *KVStorage) Delete(ctx context.Context, key string) error {
	if err := s.db.Store().Delete(key, &KeyValuePair{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}
