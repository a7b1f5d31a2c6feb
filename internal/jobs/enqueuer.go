package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/metrics"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/store"
)

// summaryFanOut is the set of stages unlocked by a successful SUMMARY job.
var summaryFanOut = []domain.JobType{
	domain.JobTypeTermCards,
	domain.JobTypeInsight,
	domain.JobTypeQuizContent,
}

// Enqueuer creates enrichment jobs. It is the single place that knows which
// downstream stages each success unlocks, and it treats duplicate enqueues
// as normal outcomes so fan-out can be replayed safely after a crash.
type Enqueuer struct {
	jobs          store.JobStore
	promptVersion string
	model         string
	metrics       metrics.Sink
}

// NewEnqueuer creates an Enqueuer stamping new jobs with the given prompt
// version and model.
func NewEnqueuer(jobs store.JobStore, promptVersion, model string, sink metrics.Sink) (*Enqueuer, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job store cannot be nil")
	}
	if promptVersion == "" || model == "" {
		return nil, fmt.Errorf("prompt version and model cannot be empty")
	}
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Enqueuer{
		jobs:          jobs,
		promptVersion: promptVersion,
		model:         model,
		metrics:       sink,
	}, nil
}

// EnqueueSummary creates the root SUMMARY job for an article. This is the
// pipeline entry point; every other stage is created by fan-out.
func (e *Enqueuer) EnqueueSummary(ctx context.Context, articleID int64) (store.EnqueueOutcome, error) {
	return e.enqueue(ctx, articleID, domain.JobTypeSummary)
}

// FanOutAfterSummary enqueues the three stages that consume the article
// summary. Each stage is attempted independently so one enqueue failure
// does not block the others; the first error is returned after all three.
func (e *Enqueuer) FanOutAfterSummary(ctx context.Context, articleID int64) error {
	var firstErr error
	for _, jobType := range summaryFanOut {
		if _, err := e.enqueue(ctx, articleID, jobType); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// EnqueueQuizTermAfterTermCards enqueues the QUIZ_TERM stage once term
// cards exist for the article.
func (e *Enqueuer) EnqueueQuizTermAfterTermCards(ctx context.Context, articleID int64) error {
	_, err := e.enqueue(ctx, articleID, domain.JobTypeQuizTerm)
	return err
}

func (e *Enqueuer) enqueue(ctx context.Context, articleID int64, jobType domain.JobType) (store.EnqueueOutcome, error) {
	log := logger.FromContext(ctx)

	job, err := domain.NewJob(articleID, jobType, e.promptVersion, e.model)
	if err != nil {
		return store.EnqueueOutcome{}, fmt.Errorf("failed to build job: %w", err)
	}

	outcome, err := e.jobs.Enqueue(ctx, job)
	if err != nil {
		return store.EnqueueOutcome{}, fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}

	if outcome.Duplicate {
		e.metrics.Inc("jobs_enqueue_duplicate", string(jobType))
		log.Debug("job already enqueued",
			slog.Int64("article_id", articleID),
			slog.String("job_type", string(jobType)),
			slog.String("prompt_version", e.promptVersion))
		return outcome, nil
	}

	e.metrics.Inc("jobs_enqueued", string(jobType))
	log.Info("job enqueued",
		slog.Int64("job_id", outcome.Job.ID),
		slog.Int64("article_id", articleID),
		slog.String("job_type", string(jobType)))
	return outcome, nil
}
