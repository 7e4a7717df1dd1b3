package forecastcache

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-08 and 2024-01-15 are Mondays.
func mustTime(tb testing.TB, s string) time.Time {
	tb.Helper()
	ts, err := time.Parse(time.DateTime, s)
	require.NoError(tb, err)
	return ts
}

func mustDate(tb testing.TB, s string) time.Time {
	tb.Helper()
	ts, err := time.Parse(time.DateOnly, s)
	require.NoError(tb, err)
	return ts
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func assertRecord(tb testing.TB, want, got Record) {
	tb.Helper()
	assert.True(tb, want.Timestamp.Equal(got.Timestamp), "timestamp: want %s, got %s", want.Timestamp, got.Timestamp)
	assert.Equal(tb, want.High, got.High)
	assert.Equal(tb, want.Low, got.Low)
	assert.Equal(tb, want.Rating, got.Rating)
}
