package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/pitwall/internal/app"
	"github.com/briangreenhill/pitwall/internal/config"
	"github.com/briangreenhill/pitwall/internal/jobs"
	"github.com/briangreenhill/pitwall/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config error")
	}
	logger := logging.New(os.Stdout, cfg.LogLevel).With().Str("service", "worker").Logger()

	if !cfg.HasQueue() {
		logger.Fatal().Msg("REDIS_ADDR is required for the worker")
	}

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

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    4,
		StrictPriority: false,
		Queues: map[string]int{
			jobs.QueueCache: 10,
			"default":       5,
		},
	})
	mux := asynq.NewServeMux()
	jobs.NewHandlers(a.F1, logger).Register(mux)

	var scheduler *asynq.Scheduler
	if cfg.Cache.SweepInterval > 0 {
		scheduler = asynq.NewScheduler(redisOpt, nil)
		task, err := jobs.NewSweepTask("scheduled")
		if err != nil {
			logger.Fatal().Err(err).Msg("build sweep task")
		}
		id, err := scheduler.Register(sweepSchedule(cfg.Cache.SweepInterval), task)
		if err != nil {
			logger.Fatal().Err(err).Msg("schedule sweep")
		}
		logger.Info().Str("entry", id).Dur("interval", cfg.Cache.SweepInterval).Msg("cache sweep scheduled")
		if err := scheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("start scheduler")
		}
	}

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Msg("worker running")

	<-ctx.Done()
	logger.Info().Msg("worker stopping")
	if scheduler != nil {
		scheduler.Shutdown()
	}
	srv.Shutdown()
}

// sweepSchedule is the scheduler spec running the sweep every interval.
func sweepSchedule(interval time.Duration) string {
	return "@every " + interval.String()
}
