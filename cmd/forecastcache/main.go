// Command forecastcache prints the latest forecast record for each time key
// of a symbol, answering from a cache refreshed once per publication cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/theplant/forecastcache"
)

type options struct {
	dir     string
	symbol  string
	backend string
	redis   string
	sqlite  string
	strict  bool
	seed    bool
	verbose bool
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseFlags(args []string) (*options, []string, error) {
	o := &options{}
	fs := flag.NewFlagSet("forecastcache", flag.ContinueOnError)
	fs.StringVar(&o.dir, "dir", getenvDefault("FORECASTCACHE_DIR", "."), "directory holding Parsed-<symbol>-<key>.csv files")
	fs.StringVar(&o.symbol, "symbol", getenvDefault("FORECASTCACHE_SYMBOL", forecastcache.DefaultSymbols[0]), "instrument symbol")
	fs.StringVar(&o.backend, "backend", getenvDefault("FORECASTCACHE_BACKEND", "memory"), "store backend: memory, ristretto, bigcache, redis or sqlite")
	fs.StringVar(&o.redis, "redis", getenvDefault("FORECASTCACHE_REDIS", "localhost:6379"), "redis address for -backend=redis")
	fs.StringVar(&o.sqlite, "sqlite", getenvDefault("FORECASTCACHE_SQLITE", "forecastcache.db"), "database file for -backend=sqlite")
	fs.BoolVar(&o.strict, "strict", false, "reject rows with non-numeric fields instead of reading them as 0")
	fs.BoolVar(&o.seed, "seed", false, "ingest keys without an entry even outside the refresh window")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	keys := fs.Args()
	if len(keys) == 0 {
		for _, p := range forecastcache.DefaultPeriods {
			keys = append(keys, forecastcache.TimeKey(p))
		}
	}
	return o, keys, nil
}

func openStore(ctx context.Context, o *options) (forecastcache.Store, func(), error) {
	noop := func() {}

	switch o.backend {
	case "memory":
		return forecastcache.NewMemoryStore(), noop, nil

	case "ristretto":
		s, err := forecastcache.NewRistrettoStore(forecastcache.DefaultRistrettoStoreConfig())
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case "bigcache":
		s, err := forecastcache.NewBigCacheStore(ctx, forecastcache.DefaultBigCacheStoreConfig())
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: o.redis})
		s := forecastcache.NewRedisStore(&forecastcache.RedisStoreConfig{
			Client:    client,
			KeyPrefix: "forecastcache:" + o.symbol + ":",
		})
		return s, func() { client.Close() }, nil

	case "sqlite":
		db, err := gorm.Open(sqlite.Open(o.sqlite), &gorm.Config{})
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to open %s", o.sqlite)
		}
		s := forecastcache.NewGORMStore(&forecastcache.GORMStoreConfig{
			DB:        db,
			TableName: "forecast_entries",
			KeyPrefix: o.symbol + ":",
		})
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to get sql.DB")
		}
		if err := s.Migrate(ctx); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return s, func() { sqlDB.Close() }, nil

	default:
		return nil, nil, errors.Errorf("unknown backend %q", o.backend)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, keys, err := parseFlags(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, closeStore, err := openStore(ctx, o)
	if err != nil {
		return err
	}
	defer closeStore()

	source := forecastcache.NewFileSource(&forecastcache.FileSourceConfig{
		Dir:    o.dir,
		Symbol: o.symbol,
		Strict: o.strict,
	})

	clientOpts := []forecastcache.ClientOption{forecastcache.WithLogger(logger)}
	if o.seed {
		clientOpts = append(clientOpts, forecastcache.WithGate(seedGate{}))
	}
	client := forecastcache.NewClient(store, source, clientOpts...)

	for _, key := range keys {
		record, err := client.Get(ctx, key)
		if err != nil {
			if errors.Is(err, forecastcache.ErrNoData) {
				fmt.Fprintf(stdout, "%s\tno data\n", key)
				continue
			}
			return err
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\t%d\n",
			key,
			record.Timestamp.Format(time.DateOnly),
			formatDecimal(record.High),
			formatDecimal(record.Low),
			record.Rating)
	}
	return nil
}

// seedGate refreshes on the weekly schedule and also fills keys that have no entry yet
type seedGate struct{}

func (seedGate) ShouldRefresh(entry *forecastcache.Entry, now time.Time) bool {
	if entry == nil || !entry.Valid {
		return true
	}
	return forecastcache.DefaultGate.ShouldRefresh(entry, now)
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "forecastcache:", err)
		os.Exit(1)
	}
}
