// Package app builds the cache, upstream client and service every binary
// shares.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/pitwall/cache"
	"github.com/briangreenhill/pitwall/ergast"
	"github.com/briangreenhill/pitwall/internal/config"
	"github.com/briangreenhill/pitwall/internal/f1"
)

type App struct {
	Config  *config.Config
	Backend cache.Backend
	Loader  *cache.Loader
	API     *ergast.Client
	F1      *f1.Service
}

type setupOptions struct {
	ergast  []ergast.Option
	service []f1.ServiceOption
}

type Option func(*setupOptions)

// WithErgastOptions appends options to the ones derived from config.
func WithErgastOptions(opts ...ergast.Option) Option {
	return func(o *setupOptions) { o.ergast = append(o.ergast, opts...) }
}

// WithServiceOptions appends options for the f1 service.
func WithServiceOptions(opts ...f1.ServiceOption) Option {
	return func(o *setupOptions) { o.service = append(o.service, opts...) }
}

// Setup validates cfg, opens the configured cache backend and builds the
// service on top of it. The caller must Close the result.
func Setup(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	backend, err := cache.OpenBackend(ctx, cfg.BackendConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
	}
	log.Info().Str("backend", cfg.Cache.Backend).Msg("cache opened")

	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}

	store := cache.NewStore(backend,
		cache.WithLogger(log),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
	)
	loader := cache.NewLoader(store, log)

	api := ergast.New(append([]ergast.Option{
		ergast.WithBaseURL(cfg.Ergast.BaseURL),
		ergast.WithRateLimit(cfg.Ergast.RateLimit),
		ergast.WithTimeout(cfg.Ergast.Timeout),
		ergast.WithLogger(log),
	}, o.ergast...)...)

	kinds := f1.DefaultRegistry(cfg.Cache.StandingsTTL, cfg.Cache.ProfileTTL)
	svc := f1.NewService(api, loader, kinds, append([]f1.ServiceOption{f1.WithServiceLogger(log)}, o.service...)...)

	return &App{
		Config:  cfg,
		Backend: backend,
		Loader:  loader,
		API:     api,
		F1:      svc,
	}, nil
}

// Close releases the upstream client and the cache backend.
func (a *App) Close() error {
	return errors.Join(a.API.Close(), cache.CloseBackend(a.Backend))
}
