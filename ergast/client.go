// Package ergast is a small client for the Ergast-compatible Formula 1 API
// served by jolpica.
package ergast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

const (
	DefaultBaseURL = "https://api.jolpi.ca/ergast/f1"
	DefaultTimeout = 15 * time.Second

	// the public API allows 4 requests per second in bursts
	DefaultRateLimit = 4

	pageLimit = "100"
)

type Client struct {
	rc      *resty.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

type settings struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	rateLimit float64
	log       zerolog.Logger
}

type Option func(*settings)

func WithBaseURL(raw string) Option {
	return func(s *settings) {
		if raw != "" {
			s.baseURL = raw
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(s *settings) { s.http = h }
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the
// limiter.
func WithRateLimit(perSecond float64) Option {
	return func(s *settings) { s.rateLimit = perSecond }
}

func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.log = l }
}

func New(opts ...Option) *Client {
	s := settings{
		baseURL:   DefaultBaseURL,
		timeout:   DefaultTimeout,
		rateLimit: DefaultRateLimit,
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(&s)
	}

	var rc *resty.Client
	if s.http != nil {
		rc = resty.NewWithClient(s.http)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(s.baseURL).
		SetTimeout(s.timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "pitwall")

	c := &Client{
		rc:  rc,
		log: s.log.With().Str("component", "ergast").Logger(),
	}
	if s.rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(s.rateLimit), int(max(1, s.rateLimit)))
	}
	return c
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	return c.rc.Close()
}

// get fetches path (which may contain {placeholders}) and decodes the MRData
// envelope.
func (c *Client) get(ctx context.Context, path string, params map[string]string) (*mrData, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParams(params).
		SetQueryParam("limit", pageLimit).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}

	c.log.Debug().
		Str("path", resp.Request.URL).
		Int("status", resp.StatusCode()).
		Dur("took", time.Since(start)).
		Msg("upstream request")

	body := resp.Bytes()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &StatusError{Code: resp.StatusCode(), Path: resp.Request.URL, Body: truncate(string(body), 512)}
	}
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &DecodeError{Path: resp.Request.URL, Err: err}
	}
	if env.MRData == nil {
		return nil, ErrEmptyResponse
	}
	return env.MRData, nil
}

func (c *Client) races(ctx context.Context, path string, params map[string]string) ([]Race, error) {
	data, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if data.RaceTable == nil {
		return []Race{}, nil
	}
	return nonNil(data.RaceTable.Races), nil
}

func (c *Client) standings(ctx context.Context, path string, params map[string]string) ([]StandingsList, error) {
	data, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if data.StandingsTable == nil {
		return nil, nil
	}
	return data.StandingsTable.StandingsLists, nil
}

// Races returns the season's calendar in the order the API lists it.
func (c *Client) Races(ctx context.Context, season int) ([]Race, error) {
	return c.races(ctx, "/{season}/races.json", seasonParams(season))
}

// CircuitResults returns the classification of the season's race at
// circuitID, or an empty slice if it has not been run.
func (c *Client) CircuitResults(ctx context.Context, season int, circuitID string) ([]Result, error) {
	p := seasonParams(season)
	p["circuit"] = circuitID
	races, err := c.races(ctx, "/{season}/circuits/{circuit}/results.json", p)
	if err != nil {
		return nil, err
	}
	if len(races) == 0 {
		return []Result{}, nil
	}
	return nonNil(races[0].Results), nil
}

// DriverStandings returns the latest driver standings of the season.
func (c *Client) DriverStandings(ctx context.Context, season int) ([]DriverStanding, error) {
	lists, err := c.standings(ctx, "/{season}/driverstandings.json", seasonParams(season))
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return []DriverStanding{}, nil
	}
	return nonNil(lists[0].DriverStandings), nil
}

// DriverStandingsAfterRound returns the driver standings as they stood after
// the given round.
func (c *Client) DriverStandingsAfterRound(ctx context.Context, season, round int) ([]DriverStanding, error) {
	p := seasonParams(season)
	p["round"] = strconv.Itoa(round)
	lists, err := c.standings(ctx, "/{season}/{round}/driverstandings.json", p)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return []DriverStanding{}, nil
	}
	return nonNil(lists[0].DriverStandings), nil
}

// ConstructorStandings returns the latest constructor standings of the season.
func (c *Client) ConstructorStandings(ctx context.Context, season int) ([]ConstructorStanding, error) {
	lists, err := c.standings(ctx, "/{season}/constructorstandings.json", seasonParams(season))
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return []ConstructorStanding{}, nil
	}
	return nonNil(lists[0].ConstructorStandings), nil
}

// PitStops returns every pit stop made in the given round.
func (c *Client) PitStops(ctx context.Context, season, round int) ([]PitStop, error) {
	p := seasonParams(season)
	p["round"] = strconv.Itoa(round)
	races, err := c.races(ctx, "/{season}/{round}/pitstops.json", p)
	if err != nil {
		return nil, err
	}
	if len(races) == 0 {
		return []PitStop{}, nil
	}
	return nonNil(races[0].PitStops), nil
}

// DriverSeasons lists every season the driver took part in.
func (c *Client) DriverSeasons(ctx context.Context, driverID string) ([]Season, error) {
	if driverID == "" {
		return nil, errors.New("driverID required")
	}
	data, err := c.get(ctx, "/drivers/{driver}/seasons.json", map[string]string{"driver": driverID})
	if err != nil {
		return nil, err
	}
	if data.SeasonTable == nil {
		return []Season{}, nil
	}
	return nonNil(data.SeasonTable.Seasons), nil
}

func seasonParams(season int) map[string]string {
	return map[string]string{"season": strconv.Itoa(season)}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
