package middleware

import (
	"context"
	"net/http"

	scs "github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

type contextKey string

const (
	SeasonKey contextKey = "season"
	ViewerKey contextKey = "viewer_id"
)

// Session keys.
const (
	SessionSeason = "season"
	SessionViewer = "viewer_id"
)

// Season returns the season selected for this request, or 0 when the
// request did not pass through LoadViewer.
func Season(ctx context.Context) int {
	v, _ := ctx.Value(SeasonKey).(int)
	return v
}

// ViewerID returns the viewer id attached to the request.
func ViewerID(ctx context.Context) string {
	v, _ := ctx.Value(ViewerKey).(string)
	return v
}

// LoadViewer makes sure the session carries a viewer id and copies it and
// the selected season into the request context. A session without a season
// gets the one returned by defaultSeason.
func LoadViewer(sess *scs.SessionManager, defaultSeason func() int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			viewer := sess.GetString(ctx, SessionViewer)
			if viewer == "" {
				viewer = uuid.NewString()
				sess.Put(ctx, SessionViewer, viewer)
			}
			season := sess.GetInt(ctx, SessionSeason)
			if season == 0 {
				season = defaultSeason()
			}

			ctx = context.WithValue(ctx, ViewerKey, viewer)
			ctx = context.WithValue(ctx, SeasonKey, season)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
