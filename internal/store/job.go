package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/briefly-api/internal/domain"
)

// EnqueueOutcome reports what an Enqueue call did. Duplicate inserts are an
// expected outcome under concurrent or repeated calls, never an error.
type EnqueueOutcome struct {
	Job       *domain.Job
	Duplicate bool
}

// StuckJob is a RUNNING job whose owner is presumed dead, as selected by the
// sweeper's stuck-threshold query.
type StuckJob struct {
	ID         int64
	RetryCount int
	MaxRetries int
}

// JobStore defines the interface for job persistence and the state-machine
// transitions the pipeline performs on job rows. All status-changing methods
// are guarded: they only apply when the row is in the expected source status
// and return domain.ErrInvalidTransition otherwise.
// Version: 1.0
type JobStore interface {
	// Enqueue inserts a PENDING job. A duplicate (article, type, prompt
	// version) insert is swallowed and reported via the outcome.
	Enqueue(ctx context.Context, job *domain.Job) (EnqueueOutcome, error)

	// GetByID retrieves a job by its ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Job, error)

	// Claim atomically reserves up to limit eligible PENDING jobs of the
	// given type, oldest first, flipping them to RUNNING and stamping
	// running_started_at. Concurrent claimers receive disjoint sets; rows
	// locked by another claimer are skipped, not awaited.
	Claim(ctx context.Context, jobType domain.JobType, limit int) ([]*domain.Job, error)

	// MarkSuccess transitions RUNNING -> SUCCESS and stamps finished_at.
	MarkSuccess(ctx context.Context, id int64) error

	// MarkFailed transitions RUNNING -> FAILED recording the failure.
	MarkFailed(ctx context.Context, id int64, code domain.ErrorCode, message string) error

	// MarkSuspended transitions RUNNING -> SUSPENDED recording the failure
	// for later operator intervention.
	MarkSuspended(ctx context.Context, id int64, code domain.ErrorCode, message string) error

	// ListStuck returns RUNNING jobs whose running_started_at is older than
	// the threshold, up to limit rows.
	ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]StuckJob, error)

	// MarkRetryWait transitions RUNNING -> RETRY_WAIT, incrementing
	// retry_count and scheduling the next attempt.
	MarkRetryWait(ctx context.Context, id int64, nextRunAt time.Time, code domain.ErrorCode, message string) error

	// MarkStuckFailed transitions RUNNING -> FAILED for a job whose retry
	// budget is exhausted.
	MarkStuckFailed(ctx context.Context, id int64, code domain.ErrorCode, message string) error

	// PromoteRetryWait promotes all RETRY_WAIT jobs whose next_run_at has
	// elapsed back to PENDING, clearing next_run_at and running_started_at.
	// Returns the number of promoted jobs.
	PromoteRetryWait(ctx context.Context, now time.Time) (int64, error)

	// Resume transitions SUSPENDED -> PENDING, resetting retry_count and
	// clearing finished_at/next_run_at/running_started_at while keeping
	// last_error_code and last_error_message for audit.
	// Returns ErrJobNotFound if the job does not exist and
	// domain.ErrInvalidTransition if it is not SUSPENDED.
	Resume(ctx context.Context, id int64) error

	// ResumeByErrorCodes resumes every SUSPENDED job whose last_error_code
	// is in codes. Returns the number of resumed jobs.
	ResumeByErrorCodes(ctx context.Context, codes []domain.ErrorCode) (int64, error)

	// WithTx returns a new JobStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) JobStore
}
