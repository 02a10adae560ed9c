// Package view binds a screen's reactive parameter (season, circuit, driver)
// to the load that produces its data, so the screen only ever shows data
// belonging to the parameter it currently has.
package view

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status is the load state of a binding.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	default:
		return "idle"
	}
}

// Snapshot is the state of a binding at one point in time. Data and Err
// always belong to Param.
type Snapshot[P comparable, T any] struct {
	Param      P
	Status     Status
	Data       T
	Err        error
	TaskID     string
	Generation uint64
}

// LoadFunc produces the data for a parameter. It must honour ctx.
type LoadFunc[P comparable, T any] func(ctx context.Context, p P) (T, error)

// Binding runs at most one live load per parameter value. Changing the
// parameter cancels the running load and any result it still delivers is
// discarded.
type Binding[P comparable, T any] struct {
	load LoadFunc[P, T]
	log  zerolog.Logger
	now  func() time.Time

	mu       sync.Mutex
	snap     Snapshot[P, T]
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	lastUsed time.Time
}

// NewBinding returns an idle binding that loads data with load.
func NewBinding[P comparable, T any](load LoadFunc[P, T], log zerolog.Logger) *Binding[P, T] {
	return &Binding[P, T]{
		load:     load,
		log:      log,
		now:      time.Now,
		lastUsed: time.Now(),
	}
}

// Set makes p the current parameter. If p is already current the existing
// load or result is kept; otherwise the binding moves to Loading for p
// immediately and a new load starts. The load is detached from ctx's
// cancellation and ends when the parameter changes or the binding closes.
func (b *Binding[P, T]) Set(ctx context.Context, p P) Snapshot[P, T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUsed = b.now()

	if b.gen > 0 && b.snap.Generation == b.gen && b.snap.Param == p {
		return b.snap
	}
	b.startLocked(ctx, p)
	return b.snap
}

// Retry restarts the load for the current parameter after an error. In any
// other state it returns the current snapshot unchanged.
func (b *Binding[P, T]) Retry(ctx context.Context) Snapshot[P, T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUsed = b.now()

	if b.snap.Status == StatusError {
		b.startLocked(ctx, b.snap.Param)
	}
	return b.snap
}

func (b *Binding[P, T]) startLocked(ctx context.Context, p P) {
	b.supersedeLocked()
	b.gen++
	gen := b.gen
	taskID := uuid.NewString()

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	b.cancel = cancel
	b.done = done

	var zero T
	b.snap = Snapshot[P, T]{
		Param:      p,
		Status:     StatusLoading,
		Data:       zero,
		TaskID:     taskID,
		Generation: gen,
	}

	go b.run(taskCtx, cancel, gen, taskID, p, done)
}

func (b *Binding[P, T]) run(ctx context.Context, cancel context.CancelFunc, gen uint64, taskID string, p P, done chan struct{}) {
	defer cancel()
	data, err := b.load(ctx, p)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		b.log.Debug().Str("task", taskID).Uint64("generation", gen).Msg("discarding stale result")
		return
	}

	b.snap.Data = data
	b.snap.Err = err
	b.snap.Status = StatusReady
	if err != nil {
		var zero T
		b.snap.Data = zero
		b.snap.Status = StatusError
	}
	close(done)
}

// supersedeLocked cancels the current load and wakes its waiters so they can
// move on to the next one.
func (b *Binding[P, T]) supersedeLocked() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.done != nil && b.snap.Status == StatusLoading {
		close(b.done)
	}
	b.done = nil
}

// Snapshot returns the current state.
func (b *Binding[P, T]) Snapshot() Snapshot[P, T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Await blocks until the current load resolves, the parameter changes to one
// whose load resolves, or ctx ends, and returns the latest snapshot.
func (b *Binding[P, T]) Await(ctx context.Context) (Snapshot[P, T], error) {
	for {
		b.mu.Lock()
		snap, done := b.snap, b.done
		b.mu.Unlock()

		if snap.Status != StatusLoading || done == nil {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return b.Snapshot(), ctx.Err()
		case <-done:
		}
	}
}

// LastUsed reports when Set or Retry was last called.
func (b *Binding[P, T]) LastUsed() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}

// Close cancels any running load. Later results are discarded.
func (b *Binding[P, T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supersedeLocked()
	b.gen++
}
