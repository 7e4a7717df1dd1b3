package forecastcache

import (
	"context"
	"time"
)

// Record is one forecast observation for a given day
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Rating    int       `json:"rating"`
}

// IsZero reports whether r is the sentinel record returned when no data exists
func (r Record) IsZero() bool {
	return r.Timestamp.IsZero() && r.High == 0 && r.Low == 0 && r.Rating == 0
}

// Store defines the interface for the per-key record index
type Store interface {
	// Lookup returns *ErrKeyNotFound (possibly wrapped) when the key was never ingested
	Lookup(ctx context.Context, key string) (*Entry, error)
	// Upsert replaces or creates the entry for key, marking it refreshed at now
	Upsert(ctx context.Context, key string, record Record, now time.Time) error
	// Clear removes all entries
	Clear(ctx context.Context) error
	// Size returns the number of entries
	Size(ctx context.Context) (int, error)
}

// Source defines the interface for the backing data a key is ingested from
type Source interface {
	Ingest(ctx context.Context, key string, now time.Time) (Record, error)
}

// SourceFunc is a function adapter that implements Source interface
type SourceFunc func(ctx context.Context, key string, now time.Time) (Record, error)

func (f SourceFunc) Ingest(ctx context.Context, key string, now time.Time) (Record, error) {
	return f(ctx, key, now)
}

// Gate decides whether an entry must be refreshed before it is served.
// entry is nil when the key has no entry.
type Gate interface {
	ShouldRefresh(entry *Entry, now time.Time) bool
}

// GateFunc is a function adapter that implements Gate interface
type GateFunc func(entry *Entry, now time.Time) bool

func (f GateFunc) ShouldRefresh(entry *Entry, now time.Time) bool {
	return f(entry, now)
}
