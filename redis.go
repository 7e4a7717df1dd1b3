package forecastcache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store implementation using Redis
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	scanCount int64
}

var _ Store = &RedisStore{}

// RedisStoreConfig holds configuration for RedisStore
type RedisStoreConfig struct {
	// Client is the Redis client (supports both single and cluster)
	Client redis.UniversalClient

	// KeyPrefix is the prefix for all keys (optional).
	// Clear and Size operate on every key matching the prefix, so an empty
	// prefix means the whole database.
	KeyPrefix string

	// ScanCount is the COUNT hint used when iterating keys (optional)
	ScanCount int64
}

// NewRedisStore creates a new Redis-based store with configuration
func NewRedisStore(config *RedisStoreConfig) *RedisStore {
	if config.Client == nil {
		panic("Client is required")
	}

	scanCount := config.ScanCount
	if scanCount <= 0 {
		scanCount = 100
	}

	return &RedisStore{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
		scanCount: scanCount,
	}
}

func (r *RedisStore) prefixedKey(key string) string {
	return r.keyPrefix + key
}

// Lookup retrieves the entry for key
func (r *RedisStore) Lookup(ctx context.Context, key string) (*Entry, error) {
	data, err := r.client.Get(ctx, r.prefixedKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(&ErrKeyNotFound{Key: key}, "key not found in redis store for key: %s", key)
		}
		return nil, errors.Wrapf(err, "failed to get store entry for key: %s", key)
	}

	var e Entry
	if err := e.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrapf(err, "failed to decode redis entry for key: %s", key)
	}
	return &e, nil
}

// Upsert stores the entry for key without expiration
func (r *RedisStore) Upsert(ctx context.Context, key string, record Record, now time.Time) error {
	if err := r.client.Set(ctx, r.prefixedKey(key), newEntry(key, record, now), 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to set store entry for key: %s", key)
	}
	return nil
}

func (r *RedisStore) scanKeys(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.keyPrefix+"*", r.scanCount).Result()
		if err != nil {
			return errors.Wrap(err, "failed to scan store keys")
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Clear removes every key with the configured prefix.
// Keys are collected over a full scan before any is deleted, since deleting
// mid-scan may move keys behind the cursor.
func (r *RedisStore) Clear(ctx context.Context) error {
	keys, err := r.collectKeys(ctx)
	if err != nil {
		return err
	}

	batch := int(r.scanCount)
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		if err := r.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return errors.Wrap(err, "failed to delete store keys")
		}
	}
	return nil
}

func (r *RedisStore) collectKeys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	err := r.scanKeys(ctx, func(page []string) error {
		for _, k := range page {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Size counts the keys with the configured prefix
func (r *RedisStore) Size(ctx context.Context) (int, error) {
	keys, err := r.collectKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
