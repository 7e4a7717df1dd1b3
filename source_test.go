package forecastcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(tb testing.TB, dir, symbol, key, content string) string {
	tb.Helper()
	path := SourcePath(dir, symbol, key)
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSourcePath(t *testing.T) {
	assert.Equal(t, "Parsed-EURUSD-1_week.csv", SourcePath("", "EURUSD", "1_week"))
	assert.Equal(t, filepath.Join("data", "Parsed-XAUUSD-3_months.csv"), SourcePath("data", "XAUUSD", "3_months"))
}

func TestTimeKey(t *testing.T) {
	assert.Equal(t, "3_months", TimeKey("3 months"))
	assert.Equal(t, "1_week", TimeKey("1 week"))
	assert.Equal(t, "1_month", TimeKey("1 month"))
	assert.Equal(t, "6_months", TimeKey(" 6  months "))
	assert.Equal(t, "1_week", TimeKey("1_week"))
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	now := mustTime(t, "2024-01-08 10:30:00")

	source := NewFileSource(&FileSourceConfig{
		Dir:    dir,
		Symbol: "EURUSD",
	})

	t.Run("ingest newest applicable row", func(t *testing.T) {
		path := writeSource(t, dir, "EURUSD", "1_week", "2024-01-01 09:00,1.09,1.07,3\n2024-01-08 09:00,1.11,1.08,4\n2024-01-15 09:00,1.2,1.1,5\n")
		assert.Equal(t, path, source.Path("1_week"))

		record, err := source.Ingest(ctx, "1_week", now)
		require.NoError(t, err)
		assertRecord(t, Record{Timestamp: mustDate(t, "2024-01-08"), High: 1.11, Low: 1.08, Rating: 4}, record)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := source.Ingest(ctx, "3_months", now)
		assert.ErrorIs(t, err, ErrSourceUnavailable)
		assert.Contains(t, err.Error(), "Parsed-EURUSD-3_months.csv")
	})

	t.Run("empty file", func(t *testing.T) {
		writeSource(t, dir, "EURUSD", "1_month", "")
		_, err := source.Ingest(ctx, "1_month", now)
		assert.ErrorIs(t, err, ErrEmptySource)
	})

	t.Run("symbol selects the file", func(t *testing.T) {
		writeSource(t, dir, "XAUUSD", "1_week", "2024-01-05,2100,2000,2\n")
		gold := NewFileSource(&FileSourceConfig{Dir: dir, Symbol: "XAUUSD"})

		record, err := gold.Ingest(ctx, "1_week", now)
		require.NoError(t, err)
		assertRecord(t, Record{Timestamp: mustDate(t, "2024-01-05"), High: 2100, Low: 2000, Rating: 2}, record)
	})

	t.Run("strict source", func(t *testing.T) {
		writeSource(t, dir, "GBPUSD", "1_week", "2024-01-02,1.27,1.25,3\n2024-01-05,n/a,1.26,3\n")

		lenient := NewFileSource(&FileSourceConfig{Dir: dir, Symbol: "GBPUSD"})
		record, err := lenient.Ingest(ctx, "1_week", now)
		require.NoError(t, err)
		assertRecord(t, Record{Timestamp: mustDate(t, "2024-01-05"), High: 0, Low: 1.26, Rating: 3}, record)

		strict := NewFileSource(&FileSourceConfig{Dir: dir, Symbol: "GBPUSD", Strict: true})
		record, err = strict.Ingest(ctx, "1_week", now)
		require.NoError(t, err)
		assertRecord(t, Record{Timestamp: mustDate(t, "2024-01-02"), High: 1.27, Low: 1.25, Rating: 3}, record)
	})
}

func TestFileSourceValidation(t *testing.T) {
	assert.PanicsWithValue(t, "Symbol is required", func() {
		NewFileSource(&FileSourceConfig{Dir: t.TempDir()})
	})
}
