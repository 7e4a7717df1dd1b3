package forecastcache

import (
	"context"
	stderrors "errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

var (
	// NowFunc is the wall clock used by clients without WithNowFunc
	NowFunc = time.Now
)

// Client serves the latest record per key, refreshing it from the source
// when the gate allows
type Client struct {
	store  Store
	source Source
	gate   Gate
	now    func() time.Time
	logger *slog.Logger

	sfg singleflight.Group

	// Test hooks for simulating concurrent refreshes
	testHooks *testHooks
}

type testHooks struct {
	beforeRefreshFlight func(ctx context.Context, key string)
}

// NewClient creates a new client that owns the store and refreshes it from source.
func NewClient(store Store, source Source, opts ...ClientOption) *Client {
	if store == nil {
		panic("store is required")
	}
	if source == nil {
		panic("source is required")
	}

	c := &Client{
		store:  store,
		source: source,
		gate:   DefaultGate,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.gate == nil {
		panic("gate must not be nil")
	}

	return c
}

func (c *Client) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return NowFunc()
}

// Get returns the latest record for key.
//
// When the gate says the entry is due, the source is ingested first; an
// ingestion failure is logged and the previous entry (if any) is served.
// When the key has never been ingested, Get returns the zero Record and an
// error matching ErrNoData and, if a refresh was attempted, its cause.
// The returned Record is always usable.
func (c *Client) Get(ctx context.Context, key string) (Record, error) {
	now := c.clock()

	refreshErr := c.refreshIfDue(ctx, key, now)
	if refreshErr != nil {
		c.logger.WarnContext(ctx, "refresh failed",
			"key", key,
			"error", refreshErr)
	}

	entry, err := c.store.Lookup(ctx, key)
	if err != nil && !IsErrKeyNotFound(err) {
		return Record{}, errors.Wrapf(err, "lookup failed for key: %s", key)
	}
	if err != nil || !entry.Valid {
		c.logger.WarnContext(ctx, "no data for key", "key", key)
		return Record{}, errors.Wrapf(stderrors.Join(ErrNoData, refreshErr), "key: %s", key)
	}

	return entry.Record, nil
}

// ShouldRefresh reports whether the entry for key must be refreshed at the current time
func (c *Client) ShouldRefresh(ctx context.Context, key string) (bool, error) {
	return c.shouldRefresh(ctx, key, c.clock())
}

func (c *Client) shouldRefresh(ctx context.Context, key string, now time.Time) (bool, error) {
	entry, err := c.store.Lookup(ctx, key)
	if err != nil {
		if !IsErrKeyNotFound(err) {
			return false, errors.Wrapf(err, "lookup failed for key: %s", key)
		}
		entry = nil
	}
	return c.gate.ShouldRefresh(entry, now), nil
}

func (c *Client) refreshIfDue(ctx context.Context, key string, now time.Time) error {
	due, err := c.shouldRefresh(ctx, key, now)
	if err != nil || !due {
		return err
	}

	if c.testHooks != nil && c.testHooks.beforeRefreshFlight != nil {
		c.testHooks.beforeRefreshFlight(ctx, key)
	}

	_, err, _ = c.sfg.Do(key, func() (result any, resultErr error) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.ErrorContext(ctx, "panic during ingestion",
					"key", key,
					"panic", r,
					"stack", string(debug.Stack()))
				resultErr = errors.Errorf("panic during ingestion: %v", r)
			}
		}()

		// A caller that passed the gate just before another flight finished
		// must not ingest a second time in the same cycle.
		due, err := c.shouldRefresh(ctx, key, now)
		if err != nil || !due {
			return nil, err
		}

		return nil, c.ingest(ctx, key, now)
	})
	return err
}

func (c *Client) ingest(ctx context.Context, key string, now time.Time) error {
	record, err := c.source.Ingest(ctx, key, now)
	if err != nil {
		return errors.Wrapf(err, "ingest failed for key: %s", key)
	}

	if err := c.store.Upsert(ctx, key, record, now); err != nil {
		return errors.Wrapf(err, "upsert failed for key: %s", key)
	}

	c.logger.DebugContext(ctx, "refreshed entry",
		"key", key,
		"date", record.Timestamp.Format(time.DateOnly))
	return nil
}

// Clear removes every entry; the next Get of any key behaves as a cold start
func (c *Client) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "clear store failed")
	}
	return nil
}

// Size returns the number of cached entries
func (c *Client) Size(ctx context.Context) (int, error) {
	n, err := c.store.Size(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "size of store failed")
	}
	return n, nil
}

// ClientOption is a functional option for configuring a Client
type ClientOption func(*Client)

// WithGate replaces the default Monday 10:00 weekly gate
func WithGate(gate Gate) ClientOption {
	return func(c *Client) {
		c.gate = gate
	}
}

// WithNowFunc sets the wall clock used by the client.
// If not set, NowFunc is used.
func WithNowFunc(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets the logger for the client.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}
