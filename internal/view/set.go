package view

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type binding interface {
	LastUsed() time.Time
	Close()
}

// Set holds the bindings of many viewers, one per (viewer, screen) pair, and
// closes bindings that have not been used for longer than the idle limit.
type Set struct {
	mu       sync.Mutex
	bindings map[string]binding
	idle     time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewSet returns an empty set that prunes bindings idle for longer than idle.
func NewSet(idle time.Duration, log zerolog.Logger) *Set {
	return &Set{
		bindings: make(map[string]binding),
		idle:     idle,
		now:      time.Now,
		log:      log.With().Str("component", "view").Logger(),
	}
}

// Bind returns the viewer's binding for screen, creating it with load on
// first use. Each screen name must always be used with the same P and T.
func Bind[P comparable, T any](s *Set, viewer, screen string, load LoadFunc[P, T]) *Binding[P, T] {
	key := viewer + "/" + screen

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.bindings[key]; ok {
		b, ok := existing.(*Binding[P, T])
		if !ok {
			panic(fmt.Sprintf("view: screen %q bound with two different types", screen))
		}
		return b
	}

	b := NewBinding(load, s.log.With().Str("viewer", viewer).Str("screen", screen).Logger())
	b.now = s.now
	b.lastUsed = s.now()
	s.bindings[key] = b
	return b
}

// Prune closes and forgets bindings idle for longer than the limit and
// returns how many were removed.
func (s *Set) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idle)
	n := 0
	for key, b := range s.bindings {
		if b.LastUsed().Before(cutoff) {
			b.Close()
			delete(s.bindings, key)
			n++
		}
	}
	if n > 0 {
		s.log.Debug().Int("pruned", n).Int("remaining", len(s.bindings)).Msg("pruned idle bindings")
	}
	return n
}

// Len returns the number of live bindings.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings)
}

// Close closes every binding.
func (s *Set) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.bindings {
		b.Close()
		delete(s.bindings, key)
	}
}
