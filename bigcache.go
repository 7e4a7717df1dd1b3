package forecastcache

import (
	"context"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/pkg/errors"
)

// BigCacheStore is a Store implementation using BigCache.
// Entries are stored JSON-encoded since BigCache only holds raw bytes.
type BigCacheStore struct {
	cache *bigcache.BigCache
}

var _ Store = &BigCacheStore{}

// BigCacheStoreConfig holds configuration for BigCacheStore
type BigCacheStoreConfig struct {
	bigcache.Config
}

// Entries must outlive any session; the store has no per-key eviction.
const bigCacheLifeWindow = 10 * 365 * 24 * time.Hour

// DefaultBigCacheStoreConfig returns a configuration that never expires entries
func DefaultBigCacheStoreConfig() BigCacheStoreConfig {
	return BigCacheStoreConfig{
		Config: bigcache.Config{
			Shards:             16,
			LifeWindow:         bigCacheLifeWindow,
			CleanWindow:        0,
			MaxEntriesInWindow: 1024,
			MaxEntrySize:       256,
			HardMaxCacheSize:   0,
		},
	}
}

// NewBigCacheStore creates a new BigCache-based store
func NewBigCacheStore(ctx context.Context, config BigCacheStoreConfig) (*BigCacheStore, error) {
	cache, err := bigcache.New(ctx, config.Config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create bigcache")
	}

	return &BigCacheStore{
		cache: cache,
	}, nil
}

// Lookup retrieves the entry for key
func (b *BigCacheStore) Lookup(_ context.Context, key string) (*Entry, error) {
	data, err := b.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, errors.Wrapf(&ErrKeyNotFound{Key: key}, "key not found in bigcache for key: %s", key)
		}
		return nil, errors.Wrapf(err, "failed to get value from bigcache for key: %s", key)
	}

	var e Entry
	if err := e.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrapf(err, "failed to decode bigcache entry for key: %s", key)
	}
	return &e, nil
}

// Upsert stores the entry for key
func (b *BigCacheStore) Upsert(_ context.Context, key string, record Record, now time.Time) error {
	data, err := newEntry(key, record, now).MarshalBinary()
	if err != nil {
		return err
	}
	if err := b.cache.Set(key, data); err != nil {
		return errors.Wrapf(err, "failed to set value in bigcache for key: %s", key)
	}
	return nil
}

// Clear removes all entries
func (b *BigCacheStore) Clear(_ context.Context) error {
	if err := b.cache.Reset(); err != nil {
		return errors.Wrap(err, "failed to reset bigcache")
	}
	return nil
}

// Size returns the number of entries
func (b *BigCacheStore) Size(_ context.Context) (int, error) {
	return b.cache.Len(), nil
}

// Close closes the cache and releases resources
func (b *BigCacheStore) Close() error {
	err := b.cache.Close()
	if err != nil {
		return errors.Wrap(err, "failed to close bigcache")
	}
	return nil
}
