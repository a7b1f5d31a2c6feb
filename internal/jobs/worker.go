package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/phrazzld/briefly-api/internal/config"
	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/metrics"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/store"
)

// Worker drives the pipeline: on every tick it claims a batch of eligible
// jobs per stage, in priority order, and executes them through the Runner.
// Ticks are single-flight: if a tick is still busy when the next fires, the
// new tick is dropped rather than stacked.
type Worker struct {
	jobs      store.JobStore
	runner    *Runner
	interval  time.Duration
	batchSize int
	metrics   metrics.Sink
	busy      atomic.Bool
}

// NewWorker creates a Worker from the loop configuration.
func NewWorker(jobs store.JobStore, runner *Runner, cfg config.WorkerConfig, sink metrics.Sink) (*Worker, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job store cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if cfg.IntervalSeconds <= 0 || cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("worker interval and batch size must be positive")
	}
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Worker{
		jobs:      jobs,
		runner:    runner,
		interval:  time.Duration(cfg.IntervalSeconds) * time.Second,
		batchSize: cfg.BatchSize,
		metrics:   sink,
	}, nil
}

// Start runs the worker loop until ctx is canceled. The first tick fires
// immediately so a restart drains the backlog without waiting an interval.
func (w *Worker) Start(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("worker started",
		slog.Duration("interval", w.interval),
		slog.Int("batch_size", w.batchSize))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick claims and executes one batch per job type. Overlapping ticks are
// skipped; claim failures for one type never block the other types.
func (w *Worker) tick(ctx context.Context) {
	if !w.busy.CompareAndSwap(false, true) {
		w.metrics.Inc("worker_tick_skipped")
		return
	}
	defer w.busy.Store(false)

	log := logger.FromContext(ctx)
	start := time.Now()
	executed := 0

	for _, jobType := range domain.JobTypePriority {
		if ctx.Err() != nil {
			break
		}

		claimed, err := w.jobs.Claim(ctx, jobType, w.batchSize)
		if err != nil {
			log.Error("failed to claim jobs",
				slog.String("job_type", string(jobType)),
				slog.String("error", err.Error()))
			continue
		}
		if len(claimed) == 0 {
			w.metrics.Inc("worker_claim_empty", string(jobType))
			continue
		}

		w.metrics.Add("jobs_claimed", int64(len(claimed)), string(jobType))
		for _, job := range claimed {
			w.runner.Run(ctx, job)
			executed++
		}
	}

	w.metrics.Observe("worker_tick_duration", time.Since(start))
	if executed > 0 {
		log.Info("worker tick finished",
			slog.Int("jobs_executed", executed),
			slog.Duration("elapsed", time.Since(start)))
	}
}
