package forecastcache

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisClient(tb testing.TB, mr *miniredis.Miniredis) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: "disabled",
		},
	})
	tb.Cleanup(func() {
		client.Close()
	})
	return client
}

func newRedisStore(tb testing.TB, prefix string) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(tb)
	store := NewRedisStore(&RedisStoreConfig{
		Client:    newRedisClient(tb, mr),
		KeyPrefix: prefix,
	})
	return store, mr
}

func TestRedisStoreEncoding(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, "forecast:")

	record := Record{Timestamp: mustDate(t, "2024-01-08"), High: 11, Low: 6, Rating: 4}
	require.NoError(t, store.Upsert(ctx, "1_week", record, mustTime(t, "2024-01-08 10:15:00")))

	raw, err := mr.Get("forecast:1_week")
	require.NoError(t, err)
	assert.Contains(t, raw, `"key":"1_week"`, "entry should be stored as JSON")
	assert.Contains(t, raw, `"rating":4`)
	assert.Contains(t, raw, `"valid":true`)

	// No expiration: entries live until Clear
	assert.Zero(t, mr.TTL("forecast:1_week"))
}

func TestRedisStorePrefixIsolation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := newRedisClient(t, mr)
	now := mustTime(t, "2024-01-08 10:15:00")

	eurusd := NewRedisStore(&RedisStoreConfig{Client: client, KeyPrefix: "EURUSD:", ScanCount: 1})
	xauusd := NewRedisStore(&RedisStoreConfig{Client: client, KeyPrefix: "XAUUSD:"})

	for _, key := range []string{"3_months", "1_week", "1_month"} {
		require.NoError(t, eurusd.Upsert(ctx, key, Record{Rating: 1}, now))
	}
	require.NoError(t, xauusd.Upsert(ctx, "1_week", Record{Rating: 5}, now))
	require.NoError(t, mr.Set("unrelated", "keep me"))

	n, err := eurusd.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, eurusd.Clear(ctx))

	n, err = eurusd.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	entry, err := xauusd.Lookup(ctx, "1_week")
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Record.Rating)
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisStoreClearManyKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, "EURUSD:")
	now := mustTime(t, "2024-01-08 10:15:00")

	const total = 500
	for i := 0; i < total; i++ {
		require.NoError(t, store.Upsert(ctx, fmt.Sprintf("key_%d", i), Record{Rating: i}, now))
	}

	n, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, n)

	require.NoError(t, store.Clear(ctx))

	n, err = store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	for i := 0; i < total; i++ {
		_, err := store.Lookup(ctx, fmt.Sprintf("key_%d", i))
		require.True(t, IsErrKeyNotFound(err), "key_%d survived Clear", i)
	}
}

func TestRedisStoreClearSmallScanCount(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := NewRedisStore(&RedisStoreConfig{Client: newRedisClient(t, mr), KeyPrefix: "EURUSD:", ScanCount: 1})
	now := mustTime(t, "2024-01-08 10:15:00")

	keys := []string{"3_months", "1_week", "1_month"}
	for _, key := range keys {
		require.NoError(t, store.Upsert(ctx, key, Record{Rating: 1}, now))
	}

	require.NoError(t, store.Clear(ctx))

	for _, key := range keys {
		_, err := store.Lookup(ctx, key)
		assert.True(t, IsErrKeyNotFound(err), key)
	}
}

func TestRedisStoreLookupError(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, "")
	require.NoError(t, mr.Set("1_week", "{broken"))

	_, err := store.Lookup(ctx, "1_week")
	require.Error(t, err)
	assert.False(t, IsErrKeyNotFound(err))

	mr.Close()
	_, err = store.Lookup(ctx, "1_week")
	require.Error(t, err)
	assert.False(t, IsErrKeyNotFound(err))
}

func TestRedisStoreValidation(t *testing.T) {
	assert.PanicsWithValue(t, "Client is required", func() {
		NewRedisStore(&RedisStoreConfig{})
	})
}
