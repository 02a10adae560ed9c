package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedLoader blocks each load until released for that parameter.
type gatedLoader struct {
	mu     sync.Mutex
	gates  map[int]chan struct{}
	calls  map[int]int
	errs   map[int]error
	ctxErr map[int]error
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{
		gates:  map[int]chan struct{}{},
		calls:  map[int]int{},
		errs:   map[int]error{},
		ctxErr: map[int]error{},
	}
}

func (g *gatedLoader) gate(p int) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[p]
	if !ok {
		ch = make(chan struct{})
		g.gates[p] = ch
	}
	return ch
}

func (g *gatedLoader) release(p int) { close(g.gate(p)) }

func (g *gatedLoader) Calls(p int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[p]
}

func (g *gatedLoader) load(ctx context.Context, season int) (string, error) {
	g.mu.Lock()
	g.calls[season]++
	err := g.errs[season]
	g.mu.Unlock()

	<-g.gate(season)

	g.mu.Lock()
	g.ctxErr[season] = ctx.Err()
	g.mu.Unlock()
	if err != nil {
		return "", err
	}
	return "standings " + time.Date(season, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006"), nil
}

func awaitReady(t *testing.T, b *Binding[int, string]) Snapshot[int, string] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := b.Await(ctx)
	require.NoError(t, err)
	return snap
}

func TestBindingLoadsOnFirstSet(t *testing.T) {
	g := newGatedLoader()
	b := NewBinding(g.load, zerolog.Nop())

	assert.Equal(t, StatusIdle, b.Snapshot().Status)

	snap := b.Set(context.Background(), 2024)
	assert.Equal(t, StatusLoading, snap.Status)
	assert.Equal(t, 2024, snap.Param)
	assert.NotEmpty(t, snap.TaskID)

	g.release(2024)
	snap = awaitReady(t, b)
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, "standings 2024", snap.Data)
	assert.Equal(t, 2024, snap.Param)
}

func TestBindingSameParamDoesNotReload(t *testing.T) {
	g := newGatedLoader()
	b := NewBinding(g.load, zerolog.Nop())

	first := b.Set(context.Background(), 2024)
	second := b.Set(context.Background(), 2024)
	assert.Equal(t, first.TaskID, second.TaskID)

	g.release(2024)
	awaitReady(t, b)
	b.Set(context.Background(), 2024)
	assert.Equal(t, 1, g.Calls(2024))
}

func TestBindingParameterSwitchDiscardsStaleResult(t *testing.T) {
	g := newGatedLoader()
	b := NewBinding(g.load, zerolog.Nop())
	ctx := context.Background()

	b.Set(ctx, 2024)
	snap := b.Set(ctx, 2023)
	assert.Equal(t, StatusLoading, snap.Status)
	assert.Equal(t, 2023, snap.Param)

	// the 2023 load finishes first
	g.release(2023)
	snap = awaitReady(t, b)
	assert.Equal(t, "standings 2023", snap.Data)

	// the late 2024 result must not replace it
	g.release(2024)
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		_, done := g.ctxErr[2024]
		return done
	}, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	snap = b.Snapshot()
	assert.Equal(t, 2023, snap.Param)
	assert.Equal(t, "standings 2023", snap.Data)

	g.mu.Lock()
	assert.ErrorIs(t, g.ctxErr[2024], context.Canceled, "superseded load is cancelled")
	g.mu.Unlock()
}

func TestBindingSwitchFromReadyNeverShowsOldData(t *testing.T) {
	g := newGatedLoader()
	b := NewBinding(g.load, zerolog.Nop())
	ctx := context.Background()

	b.Set(ctx, 2024)
	g.release(2024)
	require.Equal(t, "standings 2024", awaitReady(t, b).Data)

	snap := b.Set(ctx, 2023)
	assert.Equal(t, StatusLoading, snap.Status)
	assert.Equal(t, 2023, snap.Param)
	assert.Empty(t, snap.Data)
}

func TestBindingErrorAndRetry(t *testing.T) {
	g := newGatedLoader()
	boom := errors.New("upstream down")
	g.errs[2024] = boom
	b := NewBinding(g.load, zerolog.Nop())
	ctx := context.Background()

	b.Set(ctx, 2024)
	g.release(2024)
	snap := awaitReady(t, b)
	assert.Equal(t, StatusError, snap.Status)
	assert.ErrorIs(t, snap.Err, boom)
	assert.Empty(t, snap.Data)

	// setting the same season again keeps the error; Retry reloads
	assert.Equal(t, StatusError, b.Set(ctx, 2024).Status)

	g.mu.Lock()
	delete(g.errs, 2024)
	g.mu.Unlock()
	snap = b.Retry(ctx)
	assert.Equal(t, StatusLoading, snap.Status)
	snap = awaitReady(t, b)
	assert.Equal(t, StatusReady, snap.Status)
	assert.NoError(t, snap.Err)
	assert.Equal(t, 2, g.Calls(2024))

	// retry on a ready binding is a no-op
	assert.Equal(t, snap.TaskID, b.Retry(ctx).TaskID)
}

func TestBindingAwaitFollowsParameterChange(t *testing.T) {
	g := newGatedLoader()
	b := NewBinding(g.load, zerolog.Nop())
	ctx := context.Background()

	b.Set(ctx, 2024)
	result := make(chan Snapshot[int, string], 1)
	go func() {
		snap, _ := b.Await(ctx)
		result <- snap
	}()

	b.Set(ctx, 2022)
	g.release(2022)

	select {
	case snap := <-result:
		assert.Equal(t, 2022, snap.Param)
		assert.Equal(t, "standings 2022", snap.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not return")
	}
	g.release(2024)
}

func TestBindingAwaitHonoursContext(t *testing.T) {
	g := newGatedLoader()
	b := NewBinding(g.load, zerolog.Nop())
	b.Set(context.Background(), 2024)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap, err := b.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusLoading, snap.Status)
	g.release(2024)
}

func TestBindingLoadOutlivesCallerContext(t *testing.T) {
	g := newGatedLoader()
	b := NewBinding(g.load, zerolog.Nop())

	reqCtx, cancel := context.WithCancel(context.Background())
	b.Set(reqCtx, 2024)
	cancel()

	g.release(2024)
	snap := awaitReady(t, b)
	assert.Equal(t, StatusReady, snap.Status)
}

func TestBindingClose(t *testing.T) {
	g := newGatedLoader()
	b := NewBinding(g.load, zerolog.Nop())
	ctx := context.Background()

	b.Set(ctx, 2024)
	b.Close()
	g.release(2024)

	// a closed binding restarts cleanly on the next Set
	snap := b.Set(ctx, 2024)
	assert.Equal(t, StatusLoading, snap.Status)
	awaitReady(t, b)
	assert.Eventually(t, func() bool { return g.Calls(2024) == 2 }, time.Second, time.Millisecond)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "ready", StatusReady.String())
}
