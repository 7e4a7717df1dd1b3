package forecastcache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMStore is a Store implementation using GORM
type GORMStore struct {
	db        *gorm.DB
	tableName string
	keyPrefix string
}

var _ Store = &GORMStore{}

type storeRow struct {
	Key           string         `gorm:"not null;primaryKey;size:255"`
	Record        datatypes.JSON `gorm:"not null;type:json"`
	LastRefreshed time.Time      `gorm:"not null;index"`
	Valid         bool           `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

// GORMStoreConfig holds configuration for GORMStore
type GORMStoreConfig struct {
	// DB is the GORM database connection
	DB *gorm.DB

	// TableName is the name of the store table
	TableName string

	// KeyPrefix is the prefix for all keys (optional).
	// Clear and Size only touch rows carrying the prefix.
	KeyPrefix string
}

// NewGORMStore creates a new GORM-based store with configuration
func NewGORMStore(config *GORMStoreConfig) *GORMStore {
	if config.DB == nil {
		panic("DB is required")
	}
	if config.TableName == "" {
		panic("TableName is required")
	}

	return &GORMStore{
		db:        config.DB,
		tableName: config.TableName,
		keyPrefix: config.KeyPrefix,
	}
}

func (g *GORMStore) prefixedKey(key string) string {
	return g.keyPrefix + key
}

func (g *GORMStore) prefixPattern() string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return r.Replace(g.keyPrefix) + "%"
}

// Migrate creates or updates the store table schema
func (g *GORMStore) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).Table(g.tableName).AutoMigrate(&storeRow{}); err != nil {
		return errors.Wrap(err, "failed to migrate store table")
	}
	return nil
}

// Lookup retrieves the entry for key
func (g *GORMStore) Lookup(ctx context.Context, key string) (*Entry, error) {
	var row storeRow

	if err := g.db.WithContext(ctx).
		Table(g.tableName).
		Where("key = ?", g.prefixedKey(key)).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ErrKeyNotFound{Key: key}
		}
		return nil, errors.Wrap(err, "failed to get store entry")
	}

	var record Record
	if err := json.Unmarshal(row.Record, &record); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal record")
	}

	return &Entry{
		Key:           key,
		Record:        record,
		LastRefreshed: row.LastRefreshed,
		Valid:         row.Valid,
	}, nil
}

// Upsert stores the entry for key
func (g *GORMStore) Upsert(ctx context.Context, key string, record Record, now time.Time) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal record")
	}

	e := newEntry(key, record, now)
	row := storeRow{
		Key:           g.prefixedKey(key),
		Record:        data,
		LastRefreshed: e.LastRefreshed,
		Valid:         e.Valid,
	}

	if err := g.db.WithContext(ctx).
		Table(g.tableName).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&row).Error; err != nil {
		return errors.Wrap(err, "failed to upsert store entry")
	}

	return nil
}

// Clear removes all rows carrying the key prefix
func (g *GORMStore) Clear(ctx context.Context) error {
	if err := g.db.WithContext(ctx).
		Table(g.tableName).
		Where("key LIKE ? ESCAPE '!'", g.prefixPattern()).
		Delete(&storeRow{}).Error; err != nil {
		return errors.Wrap(err, "failed to clear store table")
	}
	return nil
}

// Size counts the rows carrying the key prefix
func (g *GORMStore) Size(ctx context.Context) (int, error) {
	var n int64
	if err := g.db.WithContext(ctx).
		Table(g.tableName).
		Where("key LIKE ? ESCAPE '!'", g.prefixPattern()).
		Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count store entries")
	}
	return int(n), nil
}
