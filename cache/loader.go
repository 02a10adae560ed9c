package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Loader serves payloads from a Store while they are fresh and fetches them
// otherwise. Concurrent cold requests for one key share a single fetch.
type Loader struct {
	store *Store
	group singleflight.Group
	log   zerolog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	fetches   atomic.Int64
	failures  atomic.Int64
	coalesced atomic.Int64
}

// Stats is a point-in-time copy of the loader counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Fetches   int64 `json:"fetches"`
	Failures  int64 `json:"failures"`
	Coalesced int64 `json:"coalesced"`
}

// NewLoader creates a Loader backed by store.
func NewLoader(store *Store, log zerolog.Logger) *Loader {
	return &Loader{
		store: store,
		log:   log.With().Str("component", "loader").Logger(),
	}
}

// Store returns the loader's store.
func (l *Loader) Store() *Store {
	return l.store
}

// Stats returns the current counters.
func (l *Loader) Stats() Stats {
	return Stats{
		Hits:      l.hits.Load(),
		Misses:    l.misses.Load(),
		Fetches:   l.fetches.Load(),
		Failures:  l.failures.Load(),
		Coalesced: l.coalesced.Load(),
	}
}

// GetOrFetch returns the payload cached under key if it was written less than
// ttl ago. Otherwise it removes any expired entry, calls fetch, stores a
// successful result and returns it. A failed fetch is returned as-is and
// leaves nothing behind in the cache.
//
// Every caller using the same key must use the same T.
func GetOrFetch[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	if entry, ok := l.store.Read(ctx, key); ok {
		if entry.Fresh(l.store.Now(), ttl) {
			var out T
			if err := json.Unmarshal(entry.Data, &out); err == nil {
				l.hits.Add(1)
				return out, nil
			}
			l.log.Debug().Str("key", key).Msg("cached payload does not match type, refetching")
		}
		l.store.Invalidate(ctx, key)
	}
	l.misses.Add(1)

	// The shared fetch must outlive any single waiter's cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		l.fetches.Add(1)
		v, err := fetch(fetchCtx)
		if err != nil {
			l.failures.Add(1)
			l.log.Error().Err(err).Str("key", key).Msg("fetch failed")
			return nil, err
		}
		l.store.Write(fetchCtx, key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			l.coalesced.Add(1)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("cache: key %q shared by incompatible types %T and %T", key, res.Val, zero)
		}
		return v, nil
	}
}
