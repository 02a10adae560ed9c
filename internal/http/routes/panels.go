package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/briangreenhill/pitwall/internal/f1"
	"github.com/briangreenhill/pitwall/internal/view"
)

// panel is one independently loaded part of a screen.
type panel struct {
	Loading bool
	Failed  bool
	Empty   string
	Retry   string
	Data    any
}

func panelOf[P comparable, T any](r *http.Request, snap view.Snapshot[P, T]) panel {
	switch snap.Status {
	case view.StatusReady:
		return panel{Data: snap.Data}
	case view.StatusError:
		if msg, ok := emptyMessage(snap.Err); ok {
			return panel{Empty: msg}
		}
		return panel{Failed: true, Retry: retryURL(r)}
	default:
		return panel{Loading: true}
	}
}

// emptyMessage maps the errors that mean "nothing to show yet" to the text
// shown in their place.
func emptyMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, f1.ErrNoRaces):
		return "No races scheduled for this season.", true
	case errors.Is(err, f1.ErrNoResults):
		return "No results for this race yet.", true
	case errors.Is(err, f1.ErrNoStandings):
		return "No standings for this season yet.", true
	case errors.Is(err, f1.ErrDriverNotFound):
		return "No data found for this driver.", true
	}
	return "", false
}

// retryURL is the current page with retry=1 added to its query.
func retryURL(r *http.Request) string {
	q := r.URL.Query()
	q.Set("retry", "1")
	return r.URL.Path + "?" + q.Encode()
}

// start points b at p. A request carrying ?retry restarts a failed load.
func start[P comparable, T any](r *http.Request, b *view.Binding[P, T], p P) {
	b.Set(r.Context(), p)
	if r.URL.Query().Has("retry") {
		b.Retry(r.Context())
	}
}

// await waits for b to resolve. A snapshot for a parameter other than p, which
// happens when the same viewer switched parameters from another tab, is
// reported as still loading.
func await[P comparable, T any](r *http.Request, b *view.Binding[P, T], p P, limit time.Duration) view.Snapshot[P, T] {
	ctx, cancel := context.WithTimeout(r.Context(), limit)
	defer cancel()

	snap, _ := b.Await(ctx)
	if snap.Param != p {
		return view.Snapshot[P, T]{Param: p, Status: view.StatusLoading}
	}
	return snap
}
