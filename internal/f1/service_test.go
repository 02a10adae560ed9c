package f1

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/pitwall/cache"
	"github.com/briangreenhill/pitwall/ergast"
)

// fakeUpstream serves canned data and counts calls per method.
type fakeUpstream struct {
	mu    sync.Mutex
	calls map[string]int

	races         []ergast.Race
	results       map[string][]ergast.Result
	standings     []ergast.DriverStanding
	roundStanding []ergast.DriverStanding
	constructors  []ergast.ConstructorStanding
	pitStops      []ergast.PitStop
	seasons       map[string][]ergast.Season
	err           map[string]error
}

func (f *fakeUpstream) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[method]++
	return f.err[method]
}

func (f *fakeUpstream) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeUpstream) Races(_ context.Context, _ int) ([]ergast.Race, error) {
	if err := f.record("Races"); err != nil {
		return nil, err
	}
	return append([]ergast.Race(nil), f.races...), nil
}

func (f *fakeUpstream) CircuitResults(_ context.Context, _ int, circuitID string) ([]ergast.Result, error) {
	if err := f.record("CircuitResults"); err != nil {
		return nil, err
	}
	return f.results[circuitID], nil
}

func (f *fakeUpstream) DriverStandings(context.Context, int) ([]ergast.DriverStanding, error) {
	if err := f.record("DriverStandings"); err != nil {
		return nil, err
	}
	return f.standings, nil
}

func (f *fakeUpstream) DriverStandingsAfterRound(context.Context, int, int) ([]ergast.DriverStanding, error) {
	if err := f.record("DriverStandingsAfterRound"); err != nil {
		return nil, err
	}
	return f.roundStanding, nil
}

func (f *fakeUpstream) ConstructorStandings(context.Context, int) ([]ergast.ConstructorStanding, error) {
	if err := f.record("ConstructorStandings"); err != nil {
		return nil, err
	}
	return f.constructors, nil
}

func (f *fakeUpstream) PitStops(context.Context, int, int) ([]ergast.PitStop, error) {
	if err := f.record("PitStops"); err != nil {
		return nil, err
	}
	return f.pitStops, nil
}

func (f *fakeUpstream) DriverSeasons(_ context.Context, driverID string) ([]ergast.Season, error) {
	if err := f.record("DriverSeasons"); err != nil {
		return nil, err
	}
	return f.seasons[driverID], nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func race(round, date, circuit, name string) ergast.Race {
	return ergast.Race{
		Season: "2024", Round: round, Date: date, RaceName: name,
		Circuit: ergast.Circuit{CircuitID: circuit, CircuitName: name + " Circuit"},
	}
}

func driverRow(pos, id, team, points string) ergast.DriverStanding {
	return ergast.DriverStanding{
		Position: pos, Points: points, Wins: "0",
		Driver:       ergast.Driver{DriverID: id, GivenName: id, FamilyName: id, Nationality: "British", DateOfBirth: "1985-01-07"},
		Constructors: []ergast.Constructor{{Name: team}},
	}
}

func newFixture() *fakeUpstream {
	return &fakeUpstream{
		races: []ergast.Race{
			race("1", "2024-03-02", "bahrain", "Bahrain Grand Prix"),
			race("3", "2024-03-24", "albert_park", "Australian Grand Prix"),
			race("2", "2024-03-09", "jeddah", "Saudi Arabian Grand Prix"),
		},
		results: map[string][]ergast.Result{
			"jeddah": {
				{Position: "1", Driver: ergast.Driver{Code: "VER"}, FastestLap: &ergast.FastestLap{Rank: "2", Lap: "40", Time: &ergast.RaceTime{Time: "1:31.9"}}},
				{Position: "3", Driver: ergast.Driver{Code: "LEC"}, FastestLap: &ergast.FastestLap{Rank: "1", Lap: "50", Time: &ergast.RaceTime{Time: "1:31.6"}, AverageSpeed: &ergast.AverageSpeed{Speed: "242.2"}}},
			},
		},
		standings: []ergast.DriverStanding{
			driverRow("1", "max_verstappen", "Red Bull", "51"),
			driverRow("2", "perez", "Red Bull", "36"),
			driverRow("-", "bearman", "Ferrari", "6"),
		},
		roundStanding: []ergast.DriverStanding{driverRow("1", "max_verstappen", "Red Bull", "26")},
		constructors: []ergast.ConstructorStanding{
			{Position: "1", Points: "87", Constructor: ergast.Constructor{Name: "Red Bull"}},
		},
		pitStops: []ergast.PitStop{
			{DriverID: "max_verstappen", Lap: "17", Stop: "1", Duration: "22.3"},
			{DriverID: "zhou", Lap: "1", Stop: "1", Duration: "24.8"},
		},
		seasons: map[string][]ergast.Season{
			"max_verstappen": {{Season: "2016"}, {Season: "2015"}, {Season: "2024"}},
		},
	}
}

func newTestService(api Upstream, clock *testClock) (*Service, *cache.MemoryBackend) {
	backend := cache.NewMemoryBackend()
	store := cache.NewStore(backend, cache.WithClock(clock.Now))
	loader := cache.NewLoader(store, zerolog.Nop())
	svc := NewService(api, loader, DefaultRegistry(StandingsTTL, ProfileTTL), WithNow(clock.Now))
	return svc, backend
}

func newClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)}
}

func TestRacesSortedAndCached(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	svc, backend := newTestService(api, newClock())

	races, err := svc.Races(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, races, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{races[0].Round, races[1].Round, races[2].Round})

	_, err = svc.Races(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, api.Calls("Races"))

	_, ok, _ := backend.Get(ctx, "races-list-2024")
	assert.True(t, ok)
}

func TestRacesEmptyIsNotCached(t *testing.T) {
	ctx := context.Background()
	api := &fakeUpstream{}
	svc, backend := newTestService(api, newClock())

	_, err := svc.Races(ctx, 2024)
	assert.ErrorIs(t, err, ErrNoRaces)
	assert.Equal(t, 0, backend.Len())
}

func TestInvalidSeason(t *testing.T) {
	svc, _ := newTestService(newFixture(), newClock())
	_, err := svc.Races(context.Background(), 1949)
	assert.ErrorIs(t, err, ErrInvalidSeason)
	_, err = svc.DriverStandings(context.Background(), 2026)
	assert.ErrorIs(t, err, ErrInvalidSeason)
	assert.True(t, svc.ValidSeason(2025))
}

func TestLatestRaceSkipsFutureRaces(t *testing.T) {
	svc, _ := newTestService(newFixture(), newClock())

	latest, err := svc.LatestRace(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, "jeddah", latest.Circuit.CircuitID)
}

func TestRaceResultsWithFastestLap(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	svc, backend := newTestService(api, newClock())

	rr, err := svc.RaceResults(ctx, 2024, "jeddah")
	require.NoError(t, err)
	require.Len(t, rr.Results, 2)
	require.NotNil(t, rr.FastestLap)
	assert.Equal(t, FastestLap{Lap: "50", Time: "1:31.6", DriverCode: "LEC", Position: "3", Speed: "242.2"}, *rr.FastestLap)

	// both parts come back from one cached entry
	again, err := svc.RaceResults(ctx, 2024, "jeddah")
	require.NoError(t, err)
	assert.Equal(t, rr, again)
	assert.Equal(t, 1, api.Calls("CircuitResults"))
	_, ok, _ := backend.Get(ctx, "race-results-2024-jeddah")
	assert.True(t, ok)
}

func TestRaceResultsNotRunIsNotCached(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	svc, backend := newTestService(api, newClock())

	_, err := svc.RaceResults(ctx, 2024, "albert_park")
	assert.ErrorIs(t, err, ErrNoResults)
	_, ok, _ := backend.Get(ctx, "race-results-2024-albert_park")
	assert.False(t, ok)
}

func TestRaceResultsKeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	api.results["monza"] = []ergast.Result{{Position: "1", Driver: ergast.Driver{Code: "LEC"}}}
	svc, backend := newTestService(api, newClock())

	rr, err := svc.RaceResults(ctx, 2024, "monza")
	require.NoError(t, err)
	assert.Equal(t, "LEC", rr.Results[0].Driver.Code)

	rr, err = svc.RaceResults(ctx, 2024, "jeddah")
	require.NoError(t, err)
	assert.Equal(t, "VER", rr.Results[0].Driver.Code)
	assert.Equal(t, 2, api.Calls("CircuitResults"))
	assert.Equal(t, 2, backend.Len())
}

func TestMalformedIDsAreRejected(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	api.results["monza"] = []ergast.Result{{Position: "1", Driver: ergast.Driver{Code: "LEC"}}}
	svc, backend := newTestService(api, newClock())

	_, err := svc.RaceResults(ctx, 2024, "monza")
	require.NoError(t, err)

	for _, id := range []string{"", "mon za", " monza", "monza\t"} {
		_, err := svc.RaceResults(ctx, 2024, id)
		assert.ErrorIs(t, err, ErrInvalidArgument, "circuit %q", id)
	}
	for _, id := range []string{"", "max verstappen", "max_verstappen\n"} {
		_, err := svc.DriverProfile(ctx, id, 2024)
		assert.ErrorIs(t, err, ErrInvalidArgument, "driver %q", id)
		_, err = svc.DriverSeasons(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidArgument, "driver %q", id)
	}
	assert.Equal(t, 1, api.Calls("CircuitResults"))
	assert.Equal(t, 0, api.Calls("DriverStandings"))
	assert.Equal(t, 0, api.Calls("DriverSeasons"))
	assert.Equal(t, 1, backend.Len())
}

func TestDriverStandingsSixHourWindow(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	clock := newClock()
	svc, _ := newTestService(api, clock)

	_, err := svc.DriverStandings(ctx, 2024)
	require.NoError(t, err)

	clock.Advance(6*time.Hour - time.Minute)
	_, err = svc.DriverStandings(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, api.Calls("DriverStandings"))

	clock.Advance(2 * time.Minute)
	_, err = svc.DriverStandings(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, api.Calls("DriverStandings"))
}

func TestUpstreamFailureSurfacesAndIsNotCached(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	boom := &ergast.StatusError{Code: 503, Path: "/2024/constructorstandings.json"}
	api.err = map[string]error{"ConstructorStandings": boom}
	svc, backend := newTestService(api, newClock())

	_, err := svc.ConstructorStandings(ctx, 2024)
	var se *ergast.StatusError
	require.True(t, errors.As(err, &se))
	_, ok, _ := backend.Get(ctx, "constructor-standings-2024")
	assert.False(t, ok)

	// other screens are unaffected
	_, err = svc.DriverStandings(ctx, 2024)
	assert.NoError(t, err)
}

func TestDriversPageCapsRows(t *testing.T) {
	api := newFixture()
	api.standings = nil
	for i := 0; i < 24; i++ {
		api.standings = append(api.standings, driverRow("1", "d", "T", "0"))
	}
	svc, _ := newTestService(api, newClock())

	rows, err := svc.DriversPage(context.Background(), 2024)
	require.NoError(t, err)
	assert.Len(t, rows, DriversPageSize)
}

func TestPitStopsWithTeams(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	svc, backend := newTestService(api, newClock())

	rows, err := svc.PitStopsWithTeams(ctx, 2024, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Red Bull", rows[0].Team)
	assert.Equal(t, TeamColor("Red Bull"), rows[0].Color)
	assert.Equal(t, "Unknown", rows[1].Team)
	assert.Equal(t, DefaultTeamColor, rows[1].Color)

	for _, key := range []string{"pitstops-2024-2", "round-standings-2024-2"} {
		_, ok, _ := backend.Get(ctx, key)
		assert.True(t, ok, key)
	}
}

func TestPitStopsWithTeamsToleratesMissingStandings(t *testing.T) {
	api := newFixture()
	api.err = map[string]error{"DriverStandingsAfterRound": errors.New("timeout")}
	svc, _ := newTestService(api, newClock())

	rows, err := svc.PitStopsWithTeams(context.Background(), 2024, 2)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, "Unknown", r.Team)
	}
}

func TestDriverProfile(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	clock := newClock()
	svc, backend := newTestService(api, clock)

	p, err := svc.DriverProfile(ctx, "perez", 2024)
	require.NoError(t, err)
	assert.Equal(t, "2", p.Position)
	_, ok, _ := backend.Get(ctx, "driverStandings_perez_2024")
	assert.True(t, ok)

	_, err = svc.DriverProfile(ctx, "nobody", 2024)
	assert.ErrorIs(t, err, ErrDriverNotFound)
	_, ok, _ = backend.Get(ctx, "driverStandings_nobody_2024")
	assert.False(t, ok)

	// the profile outlives the 6h standings entry
	clock.Advance(12 * time.Hour)
	_, err = svc.DriverProfile(ctx, "perez", 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, api.Calls("DriverStandings"), "standings fetched once, profile served from cache")
}

func TestDriverDetail(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	svc, backend := newTestService(api, newClock())

	d, err := svc.DriverDetail(ctx, "max_verstappen", 2024)
	require.NoError(t, err)
	assert.Equal(t, "2015-2024", d.Seasons)
	assert.Equal(t, "39", d.Age)
	assert.Equal(t, "Red Bull", d.Team)
	assert.Equal(t, NationalityFlag("British"), d.Flag)

	_, ok, _ := backend.Get(ctx, "driverSeasons_max_verstappen")
	assert.True(t, ok)
}

func TestDriverDetailWithoutSeasons(t *testing.T) {
	svc, _ := newTestService(newFixture(), newClock())

	d, err := svc.DriverDetail(context.Background(), "perez", 2024)
	require.NoError(t, err)
	assert.Equal(t, "No active seasons available.", d.Seasons)
}

func TestWarmAndSweep(t *testing.T) {
	ctx := context.Background()
	api := newFixture()
	clock := newClock()
	svc, backend := newTestService(api, clock)

	require.NoError(t, svc.Warm(ctx, 2024))
	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"constructor-standings-2024", "driver-standings-2024", "races-list-2024"}, keys)

	_, err = svc.DriverSeasons(ctx, "max_verstappen")
	require.NoError(t, err)

	clock.Advance(7 * time.Hour)
	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Expired)
	assert.Equal(t, 1, res.Retained)
}
