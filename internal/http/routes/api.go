package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/briangreenhill/pitwall/cache"
	"github.com/briangreenhill/pitwall/ergast"
	"github.com/briangreenhill/pitwall/internal/f1"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiStatus maps a service error to the status returned by the JSON API.
// Anything that is not the caller's fault or a known absence is an upstream
// failure.
func apiStatus(err error) int {
	switch {
	case errors.Is(err, f1.ErrInvalidSeason), errors.Is(err, f1.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, f1.ErrDriverNotFound),
		errors.Is(err, f1.ErrNoRaces),
		errors.Is(err, f1.ErrNoResults),
		errors.Is(err, f1.ErrNoStandings),
		ergast.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		status := apiStatus(err)
		if status >= http.StatusInternalServerError {
			s.Log.Error().Err(err).Str("path", r.URL.Path).Msg("api request failed")
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// seasonParam reads ?season, defaulting to the current season.
func (s *Server) seasonParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("season")
	if raw == "" {
		return s.F1.CurrentSeason(), true
	}
	season, err := strconv.Atoi(raw)
	if err != nil || !s.F1.ValidSeason(season) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid season"})
		return 0, false
	}
	return season, true
}

func (s *Server) apiRaces(w http.ResponseWriter, r *http.Request) {
	season, ok := s.seasonParam(w, r)
	if !ok {
		return
	}
	races, err := s.F1.Races(r.Context(), season)
	if err != nil {
		s.writeResult(w, r, nil, err)
		return
	}
	s.writeResult(w, r, f1.RaceOptions(races, s.F1.Now()), nil)
}

// apiResults serves ?circuit, or the latest race of the season when no
// circuit is given.
func (s *Server) apiResults(w http.ResponseWriter, r *http.Request) {
	season, ok := s.seasonParam(w, r)
	if !ok {
		return
	}
	circuit := r.URL.Query().Get("circuit")
	if circuit == "" {
		race, err := s.F1.LatestRace(r.Context(), season)
		if err != nil {
			s.writeResult(w, r, nil, err)
			return
		}
		circuit = race.Circuit.CircuitID
	}
	results, err := s.F1.RaceResults(r.Context(), season, circuit)
	s.writeResult(w, r, results, err)
}

func (s *Server) apiDriverStandings(w http.ResponseWriter, r *http.Request) {
	season, ok := s.seasonParam(w, r)
	if !ok {
		return
	}
	rows, err := s.F1.DriverStandings(r.Context(), season)
	s.writeResult(w, r, f1.ClassifiedDrivers(rows), err)
}

func (s *Server) apiConstructorStandings(w http.ResponseWriter, r *http.Request) {
	season, ok := s.seasonParam(w, r)
	if !ok {
		return
	}
	rows, err := s.F1.ConstructorStandings(r.Context(), season)
	s.writeResult(w, r, rows, err)
}

func (s *Server) apiPitStops(w http.ResponseWriter, r *http.Request) {
	season, ok := s.seasonParam(w, r)
	if !ok {
		return
	}
	round, err := strconv.Atoi(r.URL.Query().Get("round"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "round is required"})
		return
	}
	rows, err := s.F1.PitStopsWithTeams(r.Context(), season, round)
	s.writeResult(w, r, rows, err)
}

func (s *Server) apiDriver(w http.ResponseWriter, r *http.Request) {
	season, ok := s.seasonParam(w, r)
	if !ok {
		return
	}
	detail, err := s.F1.DriverDetail(r.Context(), chi.URLParam(r, "driverID"), season)
	s.writeResult(w, r, detail, err)
}

type cacheReport struct {
	Stats    cache.Stats    `json:"stats"`
	Keys     int            `json:"keys"`
	Kinds    map[string]int `json:"kinds"`
	Bindings int            `json:"bindings"`
	Error    string         `json:"error,omitempty"`
}

func (s *Server) handleDebugCache(w http.ResponseWriter, r *http.Request) {
	report := cacheReport{
		Stats:    s.F1.Loader().Stats(),
		Kinds:    map[string]int{},
		Bindings: s.Views.Len(),
	}
	keys, err := s.F1.Loader().Store().Backend().Keys(r.Context())
	if err != nil {
		report.Error = err.Error()
	}
	report.Keys = len(keys)
	for _, key := range keys {
		name := "other"
		if k, ok := s.F1.Kinds().KindOf(key); ok {
			name = k.Name
		}
		report.Kinds[name]++
	}
	writeJSON(w, http.StatusOK, report)
}
