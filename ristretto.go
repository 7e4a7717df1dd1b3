package forecastcache

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
)

// RistrettoStore is a Store implementation using ristretto
type RistrettoStore struct {
	cache *ristretto.Cache[string, *Entry]

	// ristretto cannot enumerate or count its keys exactly
	mu   sync.Mutex
	keys map[string]struct{}
}

var _ Store = &RistrettoStore{}

// RistrettoStoreConfig holds configuration for RistrettoStore
type RistrettoStoreConfig struct {
	// Config is the ristretto configuration
	*ristretto.Config[string, *Entry]
}

// DefaultRistrettoStoreConfig returns a default configuration
func DefaultRistrettoStoreConfig() *RistrettoStoreConfig {
	return &RistrettoStoreConfig{
		Config: &ristretto.Config[string, *Entry]{
			NumCounters:        1e5,
			MaxCost:            1 << 20, // entries cost 1 each
			BufferItems:        64,
			IgnoreInternalCost: true,
		},
	}
}

// NewRistrettoStore creates a new ristretto-based store
func NewRistrettoStore(config *RistrettoStoreConfig) (*RistrettoStore, error) {
	cache, err := ristretto.NewCache(config.Config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ristretto cache")
	}

	return &RistrettoStore{
		cache: cache,
		keys:  make(map[string]struct{}),
	}, nil
}

// Lookup retrieves the entry for key
func (r *RistrettoStore) Lookup(_ context.Context, key string) (*Entry, error) {
	e, found := r.cache.Get(key)
	if !found {
		return nil, errors.Wrapf(&ErrKeyNotFound{Key: key}, "key not found in ristretto store for key: %s", key)
	}
	cp := *e
	return &cp, nil
}

// Upsert stores the entry for key with cost of 1 and no TTL.
// A write dropped by ristretto (admission policy or a full set buffer) is an
// error because the store must never lose an ingested record silently.
func (r *RistrettoStore) Upsert(_ context.Context, key string, record Record, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cache.SetWithTTL(key, newEntry(key, record, now), 1, 0) {
		return errors.Errorf("ristretto rejected entry for key: %s", key)
	}
	// Wait ensures the buffered write is applied before returning
	r.cache.Wait()

	if _, found := r.cache.Get(key); !found {
		return errors.Errorf("ristretto dropped entry for key: %s", key)
	}
	r.keys[key] = struct{}{}
	return nil
}

// Clear removes all entries
func (r *RistrettoStore) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Clear()
	r.keys = make(map[string]struct{})
	return nil
}

// Size returns the number of upserted keys still held by the cache
func (r *RistrettoStore) Size(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key := range r.keys {
		if _, found := r.cache.Get(key); found {
			n++
		}
	}
	return n, nil
}

// Close closes the cache and stops all background goroutines
func (r *RistrettoStore) Close() error {
	r.cache.Close()
	return nil
}
