// Package cache provides the time-boxed response cache used by every screen:
// a Store over a pluggable key/value Backend, and a Loader that decides
// between serving a cached payload and fetching a fresh one.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// SchemaVersion is written into every entry. Entries carrying any other
// version (including none) are treated as absent.
const SchemaVersion = 1

// ErrUnavailable is returned by backends that could not be reached.
var ErrUnavailable = errors.New("cache backend unavailable")

// Entry is the persisted representation of a cached payload.
type Entry struct {
	Version   int             `json:"v"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // epoch ms
}

// StoredAt returns the entry write time.
func (e *Entry) StoredAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Age returns how old the entry is relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt())
}

// Fresh reports whether the entry is still valid for the given ttl.
// An entry is valid iff now - storedAt < ttl.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-e.Timestamp < ttl.Milliseconds()
}

// Backend is the raw key/value capability the Store persists into.
// Set must replace the whole value for a key atomically.
type Backend interface {
	// Get returns the stored bytes and true, or false if the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, overwriting any prior value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)
}

// Closer is implemented by backends holding connections or file handles.
type Closer interface {
	Close() error
}
