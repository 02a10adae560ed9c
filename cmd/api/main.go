// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/pitwall/internal/app"
	"github.com/briangreenhill/pitwall/internal/config"
	"github.com/briangreenhill/pitwall/internal/http/routes"
	"github.com/briangreenhill/pitwall/internal/jobs"
	"github.com/briangreenhill/pitwall/internal/logging"
	"github.com/briangreenhill/pitwall/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config error")
	}

	// Logger
	logger := logging.New(os.Stdout, cfg.LogLevel)
	logger.Info().Str("port", cfg.Port).Msg("starting app")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup failed")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("close failed")
		}
	}()

	// Sessions
	sess := scs.New()
	sess.Lifetime = cfg.SessionLifetime
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = false

	tmpl, err := routes.Templates()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse templates")
	}

	// Job queue, only when redis is configured
	var queue jobs.Enqueuer
	if cfg.HasQueue() {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close asynq client")
			}
		}()
		queue = client
	}

	views := view.NewSet(cfg.ViewIdle, logger)
	defer views.Close()
	go pruneViews(ctx, views, cfg.ViewIdle)

	// Router / server
	s := routes.New(routes.ServerOptions{
		Sess:  sess,
		Tmpl:  tmpl,
		F1:    a.F1,
		Views: views,
		Queue: queue,
		Log:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           sess.LoadAndSave(s.Router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}

// pruneViews closes bindings of viewers that went away.
func pruneViews(ctx context.Context, views *view.Set, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			views.Prune()
		}
	}
}
