package forecastcache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultSymbols are the instruments the forecast producer publishes files for
var DefaultSymbols = []string{"EURUSD", "XAUUSD", "GBPUSD"}

// DefaultPeriods are the producer's forecast horizons, in publication order
var DefaultPeriods = []string{"3 months", "1 week", "1 month"}

// TimeKey maps a producer period label such as "3 months" to the key used in
// file names ("3_months").
func TimeKey(period string) string {
	return strings.Join(strings.Fields(period), "_")
}

// SourcePath returns the backing file for symbol and key inside dir
func SourcePath(dir, symbol, key string) string {
	return filepath.Join(dir, "Parsed-"+symbol+"-"+key+".csv")
}

// FileSource ingests records from the producer's Parsed-<symbol>-<key>.csv files
type FileSource struct {
	dir    string
	symbol string
	opts   ParseOptions
}

var _ Source = &FileSource{}

// FileSourceConfig holds configuration for FileSource
type FileSourceConfig struct {
	// Dir is the directory the producer writes into. Empty means the working directory.
	Dir string

	// Symbol is the instrument the files belong to
	Symbol string

	// Strict rejects rows with non-numeric high, low or rating fields
	Strict bool
}

// NewFileSource creates a new file-backed source
func NewFileSource(config *FileSourceConfig) *FileSource {
	if config.Symbol == "" {
		panic("Symbol is required")
	}

	return &FileSource{
		dir:    config.Dir,
		symbol: config.Symbol,
		opts:   ParseOptions{Strict: config.Strict},
	}
}

// Path returns the backing file for key
func (s *FileSource) Path(key string) string {
	return SourcePath(s.dir, s.symbol, key)
}

// Ingest opens the backing file for key and parses its newest applicable row
func (s *FileSource) Ingest(_ context.Context, key string, now time.Time) (Record, error) {
	path := s.Path(key)

	f, err := os.Open(path)
	if err != nil {
		return Record{}, errors.Wrapf(ErrSourceUnavailable, "failed to open %s: %v", path, err)
	}
	defer f.Close()

	record, err := ParseSource(f, now, s.opts)
	if err != nil {
		return Record{}, errors.Wrapf(err, "failed to ingest %s", path)
	}
	return record, nil
}
