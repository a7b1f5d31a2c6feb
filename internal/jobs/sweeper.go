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
	"github.com/phrazzld/briefly-api/internal/platform/redislock"
	"github.com/phrazzld/briefly-api/internal/store"
)

// sweeperLockName is the distributed lock guarding the sweep across
// replicas.
const sweeperLockName = "sweeper"

// sweepBatch bounds how many stuck jobs one sweep reclaims.
const sweepBatch = 100

// Sweeper is the safety net for work abandoned mid-flight. On every tick it
// reclaims RUNNING jobs whose owner has been silent past the stuck
// threshold, scheduling a retry or failing them when the budget is spent,
// and promotes RETRY_WAIT jobs whose backoff has elapsed.
//
// Every store update is a guarded transition, so a second sweeper racing on
// the same rows loses cleanly. The distributed lock only avoids the wasted
// work; it is optional and its absence never blocks the sweep.
type Sweeper struct {
	jobs       store.JobStore
	locker     *redislock.Locker
	interval   time.Duration
	stuckAfter time.Duration
	metrics    metrics.Sink
	busy       atomic.Bool

	now func() time.Time
}

// NewSweeper creates a Sweeper. locker may be nil when redis is not
// configured; the sweep then runs unsynchronized.
func NewSweeper(jobs store.JobStore, locker *redislock.Locker, cfg config.SweeperConfig, sink metrics.Sink) (*Sweeper, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job store cannot be nil")
	}
	if cfg.IntervalSeconds <= 0 || cfg.StuckAfterMinutes <= 0 {
		return nil, fmt.Errorf("sweeper interval and stuck threshold must be positive")
	}
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Sweeper{
		jobs:       jobs,
		locker:     locker,
		interval:   time.Duration(cfg.IntervalSeconds) * time.Second,
		stuckAfter: time.Duration(cfg.StuckAfterMinutes) * time.Minute,
		metrics:    sink,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start runs the sweeper loop until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("stuck_after", s.stuckAfter))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep performs one pass. It never returns an error: a failed pass is
// logged and retried by the next tick.
func (s *Sweeper) sweep(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		return
	}
	defer s.busy.Store(false)

	log := logger.FromContext(ctx)

	if s.locker != nil {
		token, acquired, err := s.locker.TryLock(ctx, sweeperLockName, s.interval)
		if err != nil {
			// Redis trouble must not stop the safety net; the guarded
			// updates keep a concurrent sweep harmless.
			log.Warn("sweeper lock unavailable, sweeping anyway",
				slog.String("error", err.Error()))
		} else if !acquired {
			s.metrics.Inc("sweeper_lock_contended")
			return
		} else {
			defer func() {
				if err := s.locker.Unlock(ctx, sweeperLockName, token); err != nil {
					log.Warn("failed to release sweeper lock",
						slog.String("error", err.Error()))
				}
			}()
		}
	}

	s.reclaimStuck(ctx)
	s.promoteWaiting(ctx)
}

// reclaimStuck moves jobs abandoned past the stuck threshold to RETRY_WAIT,
// or to FAILED once the retry budget is exhausted.
func (s *Sweeper) reclaimStuck(ctx context.Context) {
	log := logger.FromContext(ctx)

	stuck, err := s.jobs.ListStuck(ctx, s.stuckAfter, sweepBatch)
	if err != nil {
		log.Error("failed to list stuck jobs", slog.String("error", err.Error()))
		return
	}

	for _, job := range stuck {
		jobLog := log.With(
			slog.Int64("job_id", job.ID),
			slog.Int("retry_count", job.RetryCount))
		message := fmt.Sprintf("job stuck in RUNNING for over %s", s.stuckAfter)

		if job.RetryCount >= job.MaxRetries {
			if err := s.jobs.MarkStuckFailed(ctx, job.ID, domain.ErrCodeStuckTimeout, message); err != nil {
				jobLog.Warn("could not fail stuck job", slog.String("error", err.Error()))
				continue
			}
			s.metrics.Inc("sweeper_jobs_failed")
			jobLog.Warn("stuck job failed, retry budget exhausted")
			continue
		}

		nextRunAt := s.now().Add(Delay(job.RetryCount))
		if err := s.jobs.MarkRetryWait(ctx, job.ID, nextRunAt, domain.ErrCodeStuckTimeout, message); err != nil {
			jobLog.Warn("could not reschedule stuck job", slog.String("error", err.Error()))
			continue
		}
		s.metrics.Inc("sweeper_jobs_rescheduled")
		jobLog.Info("stuck job rescheduled",
			slog.Time("next_run_at", nextRunAt))
	}
}

// promoteWaiting returns due RETRY_WAIT jobs to the PENDING pool.
func (s *Sweeper) promoteWaiting(ctx context.Context) {
	log := logger.FromContext(ctx)

	promoted, err := s.jobs.PromoteRetryWait(ctx, s.now())
	if err != nil {
		log.Error("failed to promote waiting jobs", slog.String("error", err.Error()))
		return
	}
	if promoted > 0 {
		s.metrics.Inc("sweeper_jobs_promoted")
		log.Info("waiting jobs promoted", slog.Int64("count", promoted))
	}
}
