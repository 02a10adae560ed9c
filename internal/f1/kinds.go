// Package f1 turns upstream Formula 1 data into the records each dashboard
// screen shows, serving every read through the time-boxed cache.
package f1

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/briangreenhill/pitwall/cache"
)

// Kind names.
const (
	KindRaces                = "races"
	KindRaceResults          = "race-results"
	KindDriverStandings      = "driver-standings"
	KindConstructorStandings = "constructor-standings"
	KindDriversPage          = "drivers-page"
	KindRoundStandings       = "round-standings"
	KindPitStops             = "pitstops"
	KindDriverProfile        = "driver-profile"
	KindDriverSeasons        = "driver-seasons"
)

// Default lifetimes.
const (
	StandingsTTL = 6 * time.Hour
	ProfileTTL   = 24 * time.Hour
)

// Kind is a category of cached upstream data. Its key prefix and ttl are
// fixed for the life of the process.
type Kind struct {
	Name   string
	Prefix string
	TTL    time.Duration
}

// Key returns the cache key for the given parameters.
func (k Kind) Key(params ...string) string {
	return cache.KeyFor(k.Prefix, params...)
}

// Registry holds the known data kinds.
type Registry struct {
	kinds map[string]Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// DefaultRegistry registers every dashboard kind. standingsTTL applies to
// season data, profileTTL to per-driver data.
func DefaultRegistry(standingsTTL, profileTTL time.Duration) *Registry {
	r := NewRegistry()
	for _, k := range []Kind{
		{Name: KindRaces, Prefix: "races-list-", TTL: standingsTTL},
		{Name: KindRaceResults, Prefix: "race-results-", TTL: standingsTTL},
		{Name: KindDriverStandings, Prefix: "driver-standings-", TTL: standingsTTL},
		{Name: KindConstructorStandings, Prefix: "constructor-standings-", TTL: standingsTTL},
		{Name: KindDriversPage, Prefix: "drivers-page-", TTL: standingsTTL},
		{Name: KindRoundStandings, Prefix: "round-standings-", TTL: standingsTTL},
		{Name: KindPitStops, Prefix: "pitstops-", TTL: standingsTTL},
		{Name: KindDriverProfile, Prefix: "driverStandings_", TTL: profileTTL},
		{Name: KindDriverSeasons, Prefix: "driverSeasons_", TTL: profileTTL},
	} {
		if err := r.Register(k); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a kind. Names must be unique and no prefix may be a prefix of
// another, so every key maps back to exactly one kind.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" || k.Prefix == "" {
		return fmt.Errorf("kind needs a name and a prefix")
	}
	if k.TTL <= 0 {
		return fmt.Errorf("kind %q: ttl must be positive", k.Name)
	}
	if _, exists := r.kinds[k.Name]; exists {
		return fmt.Errorf("kind %q already registered", k.Name)
	}
	for _, other := range r.kinds {
		if strings.HasPrefix(k.Prefix, other.Prefix) || strings.HasPrefix(other.Prefix, k.Prefix) {
			return fmt.Errorf("kind %q: prefix %q collides with kind %q", k.Name, k.Prefix, other.Name)
		}
	}
	r.kinds[k.Name] = k
	return nil
}

// Get returns a kind by name.
func (r *Registry) Get(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// MustGet is Get for kinds registered at startup.
func (r *Registry) MustGet(name string) Kind {
	k, ok := r.kinds[name]
	if !ok {
		panic("f1: unknown kind " + name)
	}
	return k
}

// List returns the registered kind names in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KindOf returns the kind a cache key belongs to.
func (r *Registry) KindOf(key string) (Kind, bool) {
	for _, k := range r.kinds {
		if strings.HasPrefix(key, k.Prefix) {
			return k, true
		}
	}
	return Kind{}, false
}

// TTLFor resolves the ttl of a cache key. It satisfies cache.TTLFunc.
func (r *Registry) TTLFor(key string) (time.Duration, bool) {
	k, ok := r.KindOf(key)
	return k.TTL, ok
}
