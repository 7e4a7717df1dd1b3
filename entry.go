package forecastcache

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Entry is one cache slot: the latest ingested record for a key and when it was refreshed
type Entry struct {
	Key           string    `json:"key"`
	Record        Record    `json:"record"`
	LastRefreshed time.Time `json:"lastRefreshed"`
	Valid         bool      `json:"valid"`
}

func newEntry(key string, record Record, now time.Time) *Entry {
	return &Entry{
		Key:           key,
		Record:        record,
		LastRefreshed: now,
		Valid:         true,
	}
}

// MarshalBinary encodes the entry as JSON, shared by the byte-oriented stores
func (e Entry) MarshalBinary() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal entry for key: %s", e.Key)
	}
	return data, nil
}

// UnmarshalBinary decodes an entry produced by MarshalBinary
func (e *Entry) UnmarshalBinary(data []byte) error {
	if err := json.Unmarshal(data, e); err != nil {
		return errors.Wrap(err, "failed to unmarshal entry")
	}
	return nil
}
