package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/metrics"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/store"
)

// Processor executes one enrichment stage for a job that is already RUNNING.
// It must load its own preconditions, call the provider, and persist its
// result idempotently. It does not transition the job; the Runner does.
type Processor interface {
	// Type returns the stage this processor handles.
	Type() domain.JobType

	// Process executes the stage. A nil return means the result artifact is
	// persisted; a non-nil return is routed by its extracted failure code.
	Process(ctx context.Context, job *domain.Job) error
}

// Runner executes claimed jobs through their processors and applies the
// resulting state-machine transitions: success, terminal failure, or
// suspension. It also performs success fan-out to downstream stages.
type Runner struct {
	jobs       store.JobStore
	enqueuer   *Enqueuer
	processors map[domain.JobType]Processor
	metrics    metrics.Sink
}

// NewRunner creates a Runner over the given processors.
func NewRunner(jobs store.JobStore, enqueuer *Enqueuer, sink metrics.Sink, processors ...Processor) (*Runner, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job store cannot be nil")
	}
	if enqueuer == nil {
		return nil, fmt.Errorf("enqueuer cannot be nil")
	}
	if sink == nil {
		sink = metrics.Nop{}
	}

	byType := make(map[domain.JobType]Processor, len(processors))
	for _, p := range processors {
		if _, dup := byType[p.Type()]; dup {
			return nil, fmt.Errorf("duplicate processor for job type %s", p.Type())
		}
		byType[p.Type()] = p
	}

	return &Runner{
		jobs:       jobs,
		enqueuer:   enqueuer,
		processors: byType,
		metrics:    sink,
	}, nil
}

// Run executes one claimed job end to end. Failures are absorbed into job
// state transitions and logs; a broken job never takes down the batch.
func (r *Runner) Run(ctx context.Context, job *domain.Job) {
	log := logger.FromContext(ctx).With(
		slog.Int64("job_id", job.ID),
		slog.Int64("article_id", job.ArticleID),
		slog.String("job_type", string(job.Type)))
	ctx = logger.WithContext(ctx, log)

	proc, ok := r.processors[job.Type]
	if !ok {
		log.Error("no processor registered for job type")
		r.fail(ctx, job, domain.ErrCodeBadRequest,
			fmt.Sprintf("no processor for job type %s", job.Type))
		return
	}

	start := time.Now()
	err := r.process(ctx, proc, job)
	r.metrics.Observe("jobs_process_duration", time.Since(start), string(job.Type))

	if err != nil {
		r.routeFailure(ctx, job, err)
		return
	}

	if err := r.jobs.MarkSuccess(ctx, job.ID); err != nil {
		// Another actor moved the job, usually the sweeper reclaiming it
		// after a long stall. The artifact write is idempotent, so the
		// retry will converge; skip fan-out for this attempt.
		log.Warn("could not mark job succeeded", slog.String("error", err.Error()))
		return
	}

	r.metrics.Inc("jobs_succeeded", string(job.Type))
	log.Info("job succeeded")
	r.fanOut(ctx, job)
}

// process isolates a single processor call so a panic is converted to a
// recorded failure instead of killing the worker tick.
func (r *Runner) process(ctx context.Context, proc Processor, job *domain.Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = failStage(domain.ErrCodeAPIFailure, fmt.Errorf("processor panic: %v", p))
		}
	}()
	return proc.Process(ctx, job)
}

func (r *Runner) routeFailure(ctx context.Context, job *domain.Job, procErr error) {
	log := logger.FromContext(ctx)
	code := errorCodeOf(procErr)

	switch OutcomeForCode(code) {
	case OutcomeSuspend:
		if err := r.jobs.MarkSuspended(ctx, job.ID, code, procErr.Error()); err != nil {
			log.Error("could not mark job suspended",
				slog.String("code", string(code)),
				slog.String("error", err.Error()))
			return
		}
		r.metrics.Inc("jobs_suspended", string(job.Type), string(code))
		log.Warn("job suspended",
			slog.String("code", string(code)),
			slog.String("error", procErr.Error()))
	default:
		if err := r.jobs.MarkFailed(ctx, job.ID, code, procErr.Error()); err != nil {
			log.Error("could not mark job failed",
				slog.String("code", string(code)),
				slog.String("error", err.Error()))
			return
		}
		r.metrics.Inc("jobs_failed", string(job.Type), string(code))
		log.Warn("job failed",
			slog.String("code", string(code)),
			slog.String("error", procErr.Error()))
	}
}

func (r *Runner) fail(ctx context.Context, job *domain.Job, code domain.ErrorCode, message string) {
	r.routeFailure(ctx, job, failStage(code, errors.New(message)))
}

// fanOut enqueues the stages unlocked by this success. Enqueue failures are
// logged but never fail the completed job; the enqueuer's duplicate handling
// makes a later replay safe.
func (r *Runner) fanOut(ctx context.Context, job *domain.Job) {
	log := logger.FromContext(ctx)

	switch job.Type {
	case domain.JobTypeSummary:
		if err := r.enqueuer.FanOutAfterSummary(ctx, job.ArticleID); err != nil {
			log.Error("summary fan-out incomplete", slog.String("error", err.Error()))
		}
	case domain.JobTypeTermCards:
		if err := r.enqueuer.EnqueueQuizTermAfterTermCards(ctx, job.ArticleID); err != nil {
			log.Error("quiz term fan-out failed", slog.String("error", err.Error()))
		}
	}
}
