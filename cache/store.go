package cache

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Store persists timestamped payloads in a Backend. Every operation fails
// soft: a broken backend turns reads into misses and writes into no-ops.
type Store struct {
	backend    Backend
	now        func() time.Time
	log        zerolog.Logger
	maxEntries int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for storage failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l.With().Str("component", "cache").Logger() }
}

// WithMaxEntries bounds the number of entries kept by Sweep. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(s *Store) { s.maxEntries = n }
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Read returns the entry stored under key. It reports false when the key is
// absent, unreadable, undecodable or written by another schema version.
func (s *Store) Read(ctx context.Context, key string) (*Entry, bool) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("cache entry undecodable")
		return nil, false
	}
	if entry.Version != SchemaVersion || len(entry.Data) == 0 {
		s.log.Debug().Str("key", key).Int("version", entry.Version).Msg("cache entry schema mismatch")
		return nil, false
	}
	return &entry, true
}

// Write stores data under key stamped with the current time, replacing any
// prior entry.
func (s *Store) Write(ctx context.Context, key string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache payload not encodable")
		return
	}

	entry := Entry{
		Version:   SchemaVersion,
		Data:      payload,
		Timestamp: s.now().UnixMilli(),
	}
	raw, err := json.Marshal(&entry)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache entry not encodable")
		return
	}

	if err := s.backend.Set(ctx, key, raw); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Invalidate removes key unconditionally.
func (s *Store) Invalidate(ctx context.Context, key string) {
	if err := s.backend.Remove(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache invalidate failed")
	}
}

// SweepResult summarises a Sweep run.
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Expired  int `json:"expired"`
	Invalid  int `json:"invalid"`
	Evicted  int `json:"evicted"`
	Retained int `json:"retained"`
}

// TTLFunc resolves the ttl that applies to a key. ok is false for keys that
// do not belong to any known data kind.
type TTLFunc func(key string) (ttl time.Duration, ok bool)

// Sweep removes expired entries, entries that cannot be decoded, and, when a
// maximum entry count is configured, the oldest entries above it. Keys
// unknown to ttlFor are only subject to the size bound.
func (s *Store) Sweep(ctx context.Context, ttlFor TTLFunc) (SweepResult, error) {
	var res SweepResult

	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return res, err
	}

	type kept struct {
		key string
		ts  int64
	}
	now := s.now()
	survivors := make([]kept, 0, len(keys))

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++

		entry, ok := s.Read(ctx, key)
		if !ok {
			s.Invalidate(ctx, key)
			res.Invalid++
			continue
		}
		if ttl, known := ttlFor(key); known && !entry.Fresh(now, ttl) {
			s.Invalidate(ctx, key)
			res.Expired++
			continue
		}
		survivors = append(survivors, kept{key: key, ts: entry.Timestamp})
	}

	if s.maxEntries > 0 && len(survivors) > s.maxEntries {
		sort.Slice(survivors, func(i, j int) bool { return survivors[i].ts < survivors[j].ts })
		excess := len(survivors) - s.maxEntries
		for _, k := range survivors[:excess] {
			s.Invalidate(ctx, k.key)
		}
		res.Evicted = excess
		survivors = survivors[excess:]
	}

	res.Retained = len(survivors)
	s.log.Info().
		Int("scanned", res.Scanned).
		Int("expired", res.Expired).
		Int("invalid", res.Invalid).
		Int("evicted", res.Evicted).
		Msg("cache sweep finished")
	return res, nil
}
