package f1

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/pitwall/cache"
	"github.com/briangreenhill/pitwall/ergast"
)

var (
	ErrNoRaces         = errors.New("no races scheduled for this season")
	ErrNoResults       = errors.New("no results for this race yet")
	ErrNoStandings     = errors.New("no standings for this season yet")
	ErrDriverNotFound  = errors.New("no data found for this driver")
	ErrInvalidSeason   = errors.New("invalid season")
	ErrInvalidArgument = errors.New("invalid argument")
)

// FirstSeason is the first championship season the API covers.
const FirstSeason = 1950

// DriversPageSize caps the drivers page.
const DriversPageSize = 20

// Upstream is the subset of the API client the service needs.
type Upstream interface {
	Races(ctx context.Context, season int) ([]ergast.Race, error)
	CircuitResults(ctx context.Context, season int, circuitID string) ([]ergast.Result, error)
	DriverStandings(ctx context.Context, season int) ([]ergast.DriverStanding, error)
	DriverStandingsAfterRound(ctx context.Context, season, round int) ([]ergast.DriverStanding, error)
	ConstructorStandings(ctx context.Context, season int) ([]ergast.ConstructorStanding, error)
	PitStops(ctx context.Context, season, round int) ([]ergast.PitStop, error)
	DriverSeasons(ctx context.Context, driverID string) ([]ergast.Season, error)
}

// Service answers every dashboard query from the cache, fetching from the
// API on a miss.
type Service struct {
	api    Upstream
	loader *cache.Loader
	kinds  *Registry
	now    func() time.Time
	log    zerolog.Logger
}

type ServiceOption func(*Service)

// WithNow overrides the clock used for "today" decisions.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func WithServiceLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.log = l.With().Str("component", "f1").Logger() }
}

func NewService(api Upstream, loader *cache.Loader, kinds *Registry, opts ...ServiceOption) *Service {
	s := &Service{
		api:    api,
		loader: loader,
		kinds:  kinds,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now returns the service clock.
func (s *Service) Now() time.Time { return s.now() }

// CurrentSeason is the calendar year of the service clock.
func (s *Service) CurrentSeason() int { return s.now().Year() }

// Kinds returns the data-kind registry.
func (s *Service) Kinds() *Registry { return s.kinds }

// Loader returns the cache loader.
func (s *Service) Loader() *cache.Loader { return s.loader }

// ValidSeason reports whether season is between the first championship and
// next year.
func (s *Service) ValidSeason(season int) bool {
	return season >= FirstSeason && season <= s.CurrentSeason()+1
}

func (s *Service) checkSeason(season int) error {
	if !s.ValidSeason(season) {
		return ErrInvalidSeason
	}
	return nil
}

// checkID rejects circuit and driver ids that are empty or contain
// whitespace. The API never issues such ids.
func checkID(id string) error {
	if id == "" || strings.ContainsFunc(id, unicode.IsSpace) {
		return ErrInvalidArgument
	}
	return nil
}

func yearParam(season int) string { return strconv.Itoa(season) }

// Races returns the season calendar, newest race first. An empty calendar is
// never cached.
func (s *Service) Races(ctx context.Context, season int) ([]ergast.Race, error) {
	if err := s.checkSeason(season); err != nil {
		return nil, err
	}
	k := s.kinds.MustGet(KindRaces)
	return cache.GetOrFetch(ctx, s.loader, k.Key(yearParam(season)), k.TTL, func(ctx context.Context) ([]ergast.Race, error) {
		races, err := s.api.Races(ctx, season)
		if err != nil {
			return nil, err
		}
		if len(races) == 0 {
			return nil, ErrNoRaces
		}
		SortNewestFirst(races)
		return races, nil
	})
}

// LatestRace returns the most recent race of the season that has started.
func (s *Service) LatestRace(ctx context.Context, season int) (ergast.Race, error) {
	races, err := s.Races(ctx, season)
	if err != nil {
		return ergast.Race{}, err
	}
	r, ok := LatestRace(races, s.now())
	if !ok {
		return ergast.Race{}, ErrNoResults
	}
	return r, nil
}

// RaceResults returns the classification and fastest lap of the season's race
// at circuitID. A race without results is never cached.
func (s *Service) RaceResults(ctx context.Context, season int, circuitID string) (RaceResults, error) {
	if err := s.checkSeason(season); err != nil {
		return RaceResults{}, err
	}
	if err := checkID(circuitID); err != nil {
		return RaceResults{}, err
	}
	k := s.kinds.MustGet(KindRaceResults)
	return cache.GetOrFetch(ctx, s.loader, k.Key(yearParam(season), circuitID), k.TTL, func(ctx context.Context) (RaceResults, error) {
		results, err := s.api.CircuitResults(ctx, season, circuitID)
		if err != nil {
			return RaceResults{}, err
		}
		if len(results) == 0 {
			return RaceResults{}, ErrNoResults
		}
		return RaceResults{Results: results, FastestLap: ExtractFastestLap(results)}, nil
	})
}

// DriverStandings returns the season's driver standings.
func (s *Service) DriverStandings(ctx context.Context, season int) ([]ergast.DriverStanding, error) {
	if err := s.checkSeason(season); err != nil {
		return nil, err
	}
	k := s.kinds.MustGet(KindDriverStandings)
	return cache.GetOrFetch(ctx, s.loader, k.Key(yearParam(season)), k.TTL, func(ctx context.Context) ([]ergast.DriverStanding, error) {
		rows, err := s.api.DriverStandings(ctx, season)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrNoStandings
		}
		return rows, nil
	})
}

// ConstructorStandings returns the season's constructor standings.
func (s *Service) ConstructorStandings(ctx context.Context, season int) ([]ergast.ConstructorStanding, error) {
	if err := s.checkSeason(season); err != nil {
		return nil, err
	}
	k := s.kinds.MustGet(KindConstructorStandings)
	return cache.GetOrFetch(ctx, s.loader, k.Key(yearParam(season)), k.TTL, func(ctx context.Context) ([]ergast.ConstructorStanding, error) {
		rows, err := s.api.ConstructorStandings(ctx, season)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrNoStandings
		}
		return rows, nil
	})
}

// DriversPage returns the first DriversPageSize drivers of the season in
// championship order.
func (s *Service) DriversPage(ctx context.Context, season int) ([]ergast.DriverStanding, error) {
	if err := s.checkSeason(season); err != nil {
		return nil, err
	}
	k := s.kinds.MustGet(KindDriversPage)
	return cache.GetOrFetch(ctx, s.loader, k.Key(yearParam(season)), k.TTL, func(ctx context.Context) ([]ergast.DriverStanding, error) {
		rows, err := s.api.DriverStandings(ctx, season)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrNoStandings
		}
		if len(rows) > DriversPageSize {
			rows = rows[:DriversPageSize]
		}
		return rows, nil
	})
}

// RoundStandings returns the driver standings after the given round.
func (s *Service) RoundStandings(ctx context.Context, season, round int) ([]ergast.DriverStanding, error) {
	if err := s.checkSeason(season); err != nil {
		return nil, err
	}
	if round < 1 {
		return nil, ErrInvalidArgument
	}
	k := s.kinds.MustGet(KindRoundStandings)
	return cache.GetOrFetch(ctx, s.loader, k.Key(yearParam(season), strconv.Itoa(round)), k.TTL, func(ctx context.Context) ([]ergast.DriverStanding, error) {
		return s.api.DriverStandingsAfterRound(ctx, season, round)
	})
}

// PitStops returns the round's pit stops in the order they happened.
func (s *Service) PitStops(ctx context.Context, season, round int) ([]ergast.PitStop, error) {
	if err := s.checkSeason(season); err != nil {
		return nil, err
	}
	if round < 1 {
		return nil, ErrInvalidArgument
	}
	k := s.kinds.MustGet(KindPitStops)
	return cache.GetOrFetch(ctx, s.loader, k.Key(yearParam(season), strconv.Itoa(round)), k.TTL, func(ctx context.Context) ([]ergast.PitStop, error) {
		return s.api.PitStops(ctx, season, round)
	})
}

// PitStopsWithTeams joins the round's pit stops with each driver's team. If
// the standings cannot be loaded the stops are still returned, with every
// team unknown.
func (s *Service) PitStopsWithTeams(ctx context.Context, season, round int) ([]PitStopRow, error) {
	stops, err := s.PitStops(ctx, season, round)
	if err != nil {
		return nil, err
	}
	teams := map[string]string{}
	standings, err := s.RoundStandings(ctx, season, round)
	if err != nil {
		s.log.Warn().Err(err).Int("season", season).Int("round", round).Msg("round standings unavailable")
	} else {
		teams = TeamsByDriver(standings)
	}
	return JoinPitStops(stops, teams), nil
}

// DriverProfile returns the driver's standings row for the season. Only a
// found driver is cached.
func (s *Service) DriverProfile(ctx context.Context, driverID string, season int) (ergast.DriverStanding, error) {
	if err := s.checkSeason(season); err != nil {
		return ergast.DriverStanding{}, err
	}
	if err := checkID(driverID); err != nil {
		return ergast.DriverStanding{}, err
	}
	k := s.kinds.MustGet(KindDriverProfile)
	return cache.GetOrFetch(ctx, s.loader, k.Key(driverID, yearParam(season)), k.TTL, func(ctx context.Context) (ergast.DriverStanding, error) {
		rows, err := s.DriverStandings(ctx, season)
		if err != nil {
			if errors.Is(err, ErrNoStandings) {
				return ergast.DriverStanding{}, ErrDriverNotFound
			}
			return ergast.DriverStanding{}, err
		}
		for _, r := range rows {
			if r.Driver.DriverID == driverID {
				return r, nil
			}
		}
		return ergast.DriverStanding{}, ErrDriverNotFound
	})
}

// DriverSeasons lists every season the driver raced in.
func (s *Service) DriverSeasons(ctx context.Context, driverID string) ([]ergast.Season, error) {
	if err := checkID(driverID); err != nil {
		return nil, err
	}
	k := s.kinds.MustGet(KindDriverSeasons)
	return cache.GetOrFetch(ctx, s.loader, k.Key(driverID), k.TTL, func(ctx context.Context) ([]ergast.Season, error) {
		return s.api.DriverSeasons(ctx, driverID)
	})
}

// Warm loads the season's race list and both standings tables into the
// cache and reports the first error.
func (s *Service) Warm(ctx context.Context, season int) error {
	if _, err := s.Races(ctx, season); err != nil && !errors.Is(err, ErrNoRaces) {
		return err
	}
	if _, err := s.DriverStandings(ctx, season); err != nil && !errors.Is(err, ErrNoStandings) {
		return err
	}
	if _, err := s.ConstructorStandings(ctx, season); err != nil && !errors.Is(err, ErrNoStandings) {
		return err
	}
	return nil
}

// Sweep drops expired and unreadable cache entries.
func (s *Service) Sweep(ctx context.Context) (cache.SweepResult, error) {
	return s.loader.Store().Sweep(ctx, s.kinds.TTLFor)
}
