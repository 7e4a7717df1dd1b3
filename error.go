package forecastcache

import (
	"errors"
)

var (
	// ErrSourceUnavailable indicates the backing file is missing or unreadable
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrEmptySource indicates the backing file has no usable row
	ErrEmptySource = errors.New("source has no usable rows")

	// ErrMalformedRow indicates a structurally invalid row: wrong field count or unparseable date
	ErrMalformedRow = errors.New("malformed row")

	// ErrNoData indicates nothing has ever been ingested for the requested key
	ErrNoData = errors.New("no data")
)

// ErrKeyNotFound indicates that the requested key has no entry in the store
type ErrKeyNotFound struct {
	Key string
}

// Error returns a string representation of the error
func (e *ErrKeyNotFound) Error() string {
	if e.Key == "" {
		return "key not found"
	}
	return "key not found: " + e.Key
}

// IsErrKeyNotFound checks if the error is an ErrKeyNotFound
func IsErrKeyNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *ErrKeyNotFound
	return errors.As(err, &e)
}
