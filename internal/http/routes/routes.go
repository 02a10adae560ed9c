package routes

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/pitwall/ergast"
	"github.com/briangreenhill/pitwall/internal/f1"
	appmw "github.com/briangreenhill/pitwall/internal/http/middleware"
	"github.com/briangreenhill/pitwall/internal/jobs"
	"github.com/briangreenhill/pitwall/internal/view"
	"github.com/briangreenhill/pitwall/web"
)

// Screens a viewer can have bindings for.
const (
	screenRaces         = "races"
	screenResults       = "results"
	screenPitStops      = "pitstops"
	screenDriverTable   = "driver-standings"
	screenTeamTable     = "constructor-standings"
	screenDrivers       = "drivers"
	screenDriverProfile = "driver"
)

const seasonChoices = 10

type Server struct {
	Router *chi.Mux
	Sess   *scs.SessionManager
	Tmpl   *template.Template
	F1     *f1.Service
	Views  *view.Set
	Queue  jobs.Enqueuer // nil when no redis is configured
	Log    zerolog.Logger

	// AwaitLimit bounds how long a screen waits for its data before
	// rendering it as still loading.
	AwaitLimit time.Duration
}

type ServerOptions struct {
	Sess       *scs.SessionManager
	Tmpl       *template.Template
	F1         *f1.Service
	Views      *view.Set
	Queue      jobs.Enqueuer
	Log        zerolog.Logger
	AwaitLimit time.Duration
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:     r,
		Sess:       opts.Sess,
		Tmpl:       opts.Tmpl,
		F1:         opts.F1,
		Views:      opts.Views,
		Queue:      opts.Queue,
		Log:        opts.Log.With().Str("component", "http").Logger(),
		AwaitLimit: opts.AwaitLimit,
	}
	if s.AwaitLimit <= 0 {
		s.AwaitLimit = 10 * time.Second
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			s.Log.Error().Err(err).Msg("write health check response")
		}
	})
	r.Get("/debug/cache", s.handleDebugCache)

	r.Group(func(vr chi.Router) {
		vr.Use(appmw.LoadViewer(s.Sess, s.F1.CurrentSeason))
		vr.Get("/", s.handleDashboard)
		vr.Get("/standings", s.handleStandings)
		vr.Get("/drivers", s.handleDrivers)
		vr.Get("/drivers/{driverID}", s.handleDriver)
		vr.Post("/season", s.handleSeason)
		vr.Post("/admin/warm", s.handleWarm)
	})

	r.Route("/api", func(ar chi.Router) {
		ar.Get("/races", s.apiRaces)
		ar.Get("/results", s.apiResults)
		ar.Get("/driver-standings", s.apiDriverStandings)
		ar.Get("/constructor-standings", s.apiConstructorStandings)
		ar.Get("/pitstops", s.apiPitStops)
		ar.Get("/drivers/{driverID}", s.apiDriver)
	})

	return s
}

// Templates parses the embedded templates with the helpers they use.
func Templates() (*template.Template, error) {
	return web.Parse(template.FuncMap{
		"teamColor":     f1.TeamColor,
		"teamTextColor": f1.TeamTextColor,
		"flag":          f1.NationalityFlag,
		"countryFlag":   f1.CountryFlag,
		"orNA":          f1.OrValue,
		"gap":           f1.GapToLeader,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.Tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.Log.Error().Err(err).Str("template", name).Msg("render template failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

type page struct {
	Title   string
	Path    string
	Season  int
	Seasons []int
}

func (s *Server) page(r *http.Request, title string) page {
	season := appmw.Season(r.Context())
	choices := f1.SeasonChoices(s.F1.CurrentSeason(), seasonChoices)
	if !slices.Contains(choices, season) {
		choices = append(choices, season)
		slices.Sort(choices)
		slices.Reverse(choices)
	}
	return page{Title: title, Path: r.URL.Path, Season: season, Seasons: choices}
}

type raceKey struct {
	Season  int
	Circuit string
}

type roundKey struct {
	Season int
	Round  int
}

type driverKey struct {
	ID     string
	Season int
}

type dashboardPage struct {
	page
	Races           panel
	Race            *ergast.Race
	SelectedCircuit string
	Results         panel
	PitStops        panel
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	season := appmw.Season(ctx)
	viewer := appmw.ViewerID(ctx)
	data := dashboardPage{page: s.page(r, "Dashboard")}

	races := view.Bind[int, []ergast.Race](s.Views, viewer, screenRaces, s.F1.Races)
	start(r, races, season)
	snap := await(r, races, season, s.AwaitLimit)
	data.Races = panelOf(r, snap)
	if snap.Status != view.StatusReady {
		s.render(w, "dashboard", data)
		return
	}

	now := s.F1.Now()
	options := f1.RaceOptions(snap.Data, now)
	data.Races.Data = options
	race, ok := selectRace(snap.Data, options, r.URL.Query().Get("circuit"), now)
	if !ok {
		data.Results = panel{Empty: "No race has been run yet this season."}
		s.render(w, "dashboard", data)
		return
	}
	data.Race = &race
	data.SelectedCircuit = race.Circuit.CircuitID

	rk := raceKey{Season: season, Circuit: race.Circuit.CircuitID}
	results := view.Bind[raceKey, f1.RaceResults](s.Views, viewer, screenResults, s.loadResults)
	start(r, results, rk)

	round, err := strconv.Atoi(race.Round)
	if err != nil {
		s.Log.Warn().Str("round", race.Round).Msg("race has no numeric round")
		data.Results = panelOf(r, await(r, results, rk, s.AwaitLimit))
		data.PitStops = panel{Empty: "No pit stop data for this race."}
		s.render(w, "dashboard", data)
		return
	}
	pk := roundKey{Season: season, Round: round}
	stops := view.Bind[roundKey, []f1.PitStopRow](s.Views, viewer, screenPitStops, s.loadPitStops)
	start(r, stops, pk)

	data.Results = panelOf(r, await(r, results, rk, s.AwaitLimit))
	data.PitStops = panelOf(r, await(r, stops, pk, s.AwaitLimit))
	if rows, ok := data.PitStops.Data.([]f1.PitStopRow); ok && len(rows) == 0 {
		data.PitStops = panel{Empty: "No pit stop data for this race."}
	}
	s.render(w, "dashboard", data)
}

// selectRace picks the race the viewer asked for when it has already started,
// otherwise the latest race that has.
func selectRace(races []ergast.Race, options []f1.RaceOption, circuit string, now time.Time) (ergast.Race, bool) {
	if circuit != "" {
		for _, o := range options {
			if o.Circuit.CircuitID == circuit && o.Selectable {
				return o.Race, true
			}
		}
	}
	return f1.LatestRace(races, now)
}

func (s *Server) loadResults(ctx context.Context, k raceKey) (f1.RaceResults, error) {
	return s.F1.RaceResults(ctx, k.Season, k.Circuit)
}

func (s *Server) loadPitStops(ctx context.Context, k roundKey) ([]f1.PitStopRow, error) {
	return s.F1.PitStopsWithTeams(ctx, k.Season, k.Round)
}

func (s *Server) loadDriver(ctx context.Context, k driverKey) (f1.DriverDetail, error) {
	return s.F1.DriverDetail(ctx, k.ID, k.Season)
}

type standingsPage struct {
	page
	Drivers      panel
	Constructors panel
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	season := appmw.Season(ctx)
	viewer := appmw.ViewerID(ctx)

	drivers := view.Bind[int, []ergast.DriverStanding](s.Views, viewer, screenDriverTable, s.F1.DriverStandings)
	teams := view.Bind[int, []ergast.ConstructorStanding](s.Views, viewer, screenTeamTable, s.F1.ConstructorStandings)
	start(r, drivers, season)
	start(r, teams, season)

	data := standingsPage{
		page:         s.page(r, "Standings"),
		Drivers:      panelOf(r, await(r, drivers, season, s.AwaitLimit)),
		Constructors: panelOf(r, await(r, teams, season, s.AwaitLimit)),
	}
	if rows, ok := data.Drivers.Data.([]ergast.DriverStanding); ok {
		data.Drivers = classified(rows)
	}
	s.render(w, "standings", data)
}

type driversPage struct {
	page
	Drivers panel
}

func (s *Server) handleDrivers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	season := appmw.Season(ctx)

	drivers := view.Bind[int, []ergast.DriverStanding](s.Views, appmw.ViewerID(ctx), screenDrivers, s.F1.DriversPage)
	start(r, drivers, season)

	data := driversPage{page: s.page(r, "Drivers"), Drivers: panelOf(r, await(r, drivers, season, s.AwaitLimit))}
	if rows, ok := data.Drivers.Data.([]ergast.DriverStanding); ok {
		data.Drivers = classified(rows)
	}
	s.render(w, "drivers", data)
}

func classified(rows []ergast.DriverStanding) panel {
	rows = f1.ClassifiedDrivers(rows)
	if len(rows) == 0 {
		return panel{Empty: "No standings for this season yet."}
	}
	return panel{Data: rows}
}

type driverPage struct {
	page
	Detail panel
}

func (s *Server) handleDriver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := driverKey{ID: chi.URLParam(r, "driverID"), Season: appmw.Season(ctx)}

	detail := view.Bind[driverKey, f1.DriverDetail](s.Views, appmw.ViewerID(ctx), screenDriverProfile, s.loadDriver)
	start(r, detail, key)

	data := driverPage{page: s.page(r, "Driver"), Detail: panelOf(r, await(r, detail, key, s.AwaitLimit))}
	if d, ok := data.Detail.Data.(f1.DriverDetail); ok {
		data.Title = d.Standing.Driver.GivenName + " " + d.Standing.Driver.FamilyName
	}
	s.render(w, "driver", data)
}

func (s *Server) handleSeason(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	season, err := strconv.Atoi(r.Form.Get("season"))
	if err != nil || !s.F1.ValidSeason(season) {
		http.Error(w, "invalid season", http.StatusBadRequest)
		return
	}
	s.Sess.Put(r.Context(), appmw.SessionSeason, season)
	http.Redirect(w, r, localPath(r.Form.Get("next")), http.StatusSeeOther)
}

// localPath returns next when it is a path on this site, "/" otherwise.
func localPath(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (s *Server) handleWarm(w http.ResponseWriter, r *http.Request) {
	if s.Queue == nil {
		http.Error(w, "no job queue configured", http.StatusServiceUnavailable)
		return
	}
	_ = r.ParseForm()
	season := appmw.Season(r.Context())
	if raw := r.Form.Get("season"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || !s.F1.ValidSeason(v) {
			http.Error(w, "invalid season", http.StatusBadRequest)
			return
		}
		season = v
	}

	info, err := jobs.EnqueueWarmSeason(r.Context(), s.Queue, season)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte("warm-up already queued"))
			return
		}
		s.Log.Error().Err(err).Int("season", season).Msg("failed to enqueue warm-up")
		http.Error(w, "failed to queue warm-up", http.StatusInternalServerError)
		return
	}

	s.Log.Info().Int("season", season).Str("task", info.ID).Msg("warm-up queued")
	w.WriteHeader(http.StatusAccepted)
	if _, err := w.Write([]byte("warm-up queued")); err != nil {
		s.Log.Error().Err(err).Msg("write warm-up response")
	}
}
