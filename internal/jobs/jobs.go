// Package jobs defines the background cache maintenance tasks and their
// handlers.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/pitwall/ergast"
	"github.com/briangreenhill/pitwall/internal/f1"
)

// NewWarmSeasonTask builds a task that prefetches a season.
func NewWarmSeasonTask(season int) (*asynq.Task, error) {
	b, err := json.Marshal(WarmSeasonPayload{Season: season})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWarmSeason, b, asynq.Queue(QueueCache), asynq.MaxRetry(5), asynq.Timeout(2*time.Minute)), nil
}

// NewSweepTask builds a task that sweeps the cache.
func NewSweepTask(reason string) (*asynq.Task, error) {
	b, err := json.Marshal(SweepPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSweep, b, asynq.Queue(QueueCache), asynq.MaxRetry(1)), nil
}

// Enqueuer submits tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueWarmSeason submits a warm-up for season. Duplicate requests within
// ten minutes are dropped.
func EnqueueWarmSeason(ctx context.Context, q Enqueuer, season int) (*asynq.TaskInfo, error) {
	task, err := NewWarmSeasonTask(season)
	if err != nil {
		return nil, err
	}
	info, err := q.EnqueueContext(ctx, task, asynq.Unique(10*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("enqueue warm season %d: %w", season, err)
	}
	return info, nil
}

// Handlers runs tasks against the service.
type Handlers struct {
	svc *f1.Service
	log zerolog.Logger
}

func NewHandlers(svc *f1.Service, log zerolog.Logger) *Handlers {
	return &Handlers{svc: svc, log: log.With().Str("component", "jobs").Logger()}
}

// Register adds every handler to mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskWarmSeason, h.HandleWarmSeason)
	mux.HandleFunc(TaskSweep, h.HandleSweep)
}

func (h *Handlers) HandleWarmSeason(ctx context.Context, t *asynq.Task) error {
	var p WarmSeasonPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.log.Error().Err(err).Msg("bad payload")
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if !h.svc.ValidSeason(p.Season) {
		return fmt.Errorf("%w: season %d out of range", asynq.SkipRetry, p.Season)
	}

	start := time.Now()
	err := h.svc.Warm(ctx, p.Season)
	log := h.log.With().Int("season", p.Season).Dur("took", time.Since(start)).Logger()
	if err != nil {
		if isRetryableError(err) {
			log.Warn().Err(err).Msg("warm failed, will retry")
			return err
		}
		log.Error().Err(err).Msg("warm failed permanently")
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	log.Info().Msg("season warmed")
	return nil
}

func (h *Handlers) HandleSweep(ctx context.Context, t *asynq.Task) error {
	var p SweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
	}
	res, err := h.svc.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep cache: %w", err)
	}
	h.log.Info().
		Str("reason", p.Reason).
		Int("expired", res.Expired).
		Int("invalid", res.Invalid).
		Int("evicted", res.Evicted).
		Int("retained", res.Retained).
		Msg("cache swept")
	return nil
}

// isRetryableError determines if an error should trigger a job retry
func isRetryableError(err error) bool {
	var se *ergast.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var de *ergast.DecodeError
	if errors.As(err, &de) {
		return false
	}
	if errors.Is(err, f1.ErrInvalidSeason) {
		return false
	}
	// network, timeout and storage failures
	return true
}
