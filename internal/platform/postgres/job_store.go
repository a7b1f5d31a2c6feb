// Package postgres implements the store interfaces using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/store"
)

const jobColumns = `id, article_id, job_type, status, prompt_version, model,
	retry_count, max_retries, next_run_at, running_started_at,
	last_error_code, last_error_message, requested_at, started_at, finished_at`

// JobStore implements the store.JobStore interface using PostgreSQL.
type JobStore struct {
	db store.DBTX
}

// NewJobStore creates a new JobStore.
func NewJobStore(db store.DBTX) *JobStore {
	return &JobStore{db: db}
}

// WithTx returns a new JobStore instance that uses the provided transaction.
func (s *JobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &JobStore{db: tx}
}

// Enqueue inserts a PENDING job. A duplicate insert on the
// (article, type, prompt version) uniqueness key is swallowed and the
// existing row is returned with Duplicate set, so enqueue stays idempotent
// under races and callers always see the job that actually holds the key.
func (s *JobStore) Enqueue(ctx context.Context, job *domain.Job) (store.EnqueueOutcome, error) {
	log := logger.FromContext(ctx)

	if err := job.Validate(); err != nil {
		return store.EnqueueOutcome{}, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO enrichment_jobs
			(article_id, job_type, status, prompt_version, model, max_retries, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (article_id, job_type, prompt_version) DO NOTHING
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		job.ArticleID,
		job.Type,
		domain.JobStatusPending,
		job.PromptVersion,
		job.Model,
		job.MaxRetries,
		job.RequestedAt,
	).Scan(&job.ID)

	if errors.Is(err, sql.ErrNoRows) {
		// Another enqueue won the race or the job already existed.
		log.Debug("duplicate job enqueue swallowed",
			"article_id", job.ArticleID,
			"job_type", job.Type,
			"prompt_version", job.PromptVersion)
		existing, gerr := s.getByDedupKey(ctx, job.ArticleID, job.Type, job.PromptVersion)
		if gerr != nil {
			return store.EnqueueOutcome{}, fmt.Errorf("failed to load existing job: %w", gerr)
		}
		return store.EnqueueOutcome{Job: existing, Duplicate: true}, nil
	}
	if err != nil {
		log.Error("failed to enqueue job",
			"article_id", job.ArticleID,
			"job_type", job.Type,
			"error", err)
		return store.EnqueueOutcome{}, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return store.EnqueueOutcome{Job: job}, nil
}

// getByDedupKey loads the job holding the uniqueness key.
func (s *JobStore) getByDedupKey(ctx context.Context, articleID int64, jobType domain.JobType, promptVersion string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM enrichment_jobs
		WHERE article_id = $1 AND job_type = $2 AND prompt_version = $3`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, articleID, jobType, promptVersion))
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetByID retrieves a job by its ID.
func (s *JobStore) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM enrichment_jobs WHERE id = $1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Claim atomically reserves up to limit eligible PENDING jobs of one type.
// The inner select locks the candidate rows and skips rows already locked by
// a concurrent claimer, so contending claimers retrieve disjoint subsets
// without blocking each other. The update flips the claimed rows to RUNNING
// in the same statement and returns only the rows actually transitioned.
func (s *JobStore) Claim(ctx context.Context, jobType domain.JobType, limit int) ([]*domain.Job, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE enrichment_jobs
		SET status = $1,
			running_started_at = now(),
			started_at = COALESCE(started_at, now())
		WHERE id IN (
			SELECT id FROM enrichment_jobs
			WHERE status = $2
			  AND job_type = $3
			  AND (next_run_at IS NULL OR next_run_at <= now())
			ORDER BY requested_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	rows, err := s.db.QueryContext(ctx, query,
		domain.JobStatusRunning, domain.JobStatusPending, jobType, limit)
	if err != nil {
		log.Error("failed to claim jobs", "job_type", jobType, "error", err)
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close claim rows", "error", cerr)
		}
	}()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed jobs: %w", err)
	}

	return jobs, nil
}

// MarkSuccess transitions RUNNING -> SUCCESS.
func (s *JobStore) MarkSuccess(ctx context.Context, id int64) error {
	query := `
		UPDATE enrichment_jobs
		SET status = $1, running_started_at = NULL, finished_at = now()
		WHERE id = $2 AND status = $3
	`
	return s.guardedUpdate(ctx, "mark success", id, domain.JobStatusRunning, query,
		domain.JobStatusSuccess, id, domain.JobStatusRunning)
}

// MarkFailed transitions RUNNING -> FAILED recording the failure.
func (s *JobStore) MarkFailed(ctx context.Context, id int64, code domain.ErrorCode, message string) error {
	query := `
		UPDATE enrichment_jobs
		SET status = $1, running_started_at = NULL, finished_at = now(),
			last_error_code = $2, last_error_message = $3
		WHERE id = $4 AND status = $5
	`
	return s.guardedUpdate(ctx, "mark failed", id, domain.JobStatusRunning, query,
		domain.JobStatusFailed, code, message, id, domain.JobStatusRunning)
}

// MarkSuspended transitions RUNNING -> SUSPENDED recording the failure.
func (s *JobStore) MarkSuspended(ctx context.Context, id int64, code domain.ErrorCode, message string) error {
	query := `
		UPDATE enrichment_jobs
		SET status = $1, running_started_at = NULL, finished_at = now(),
			last_error_code = $2, last_error_message = $3
		WHERE id = $4 AND status = $5
	`
	return s.guardedUpdate(ctx, "mark suspended", id, domain.JobStatusRunning, query,
		domain.JobStatusSuspended, code, message, id, domain.JobStatusRunning)
}

// ListStuck returns RUNNING jobs whose running_started_at is older than the
// threshold.
func (s *JobStore) ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]store.StuckJob, error) {
	query := `
		SELECT id, retry_count, max_retries
		FROM enrichment_jobs
		WHERE status = $1 AND running_started_at < $2
		ORDER BY running_started_at ASC
		LIMIT $3
	`

	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := s.db.QueryContext(ctx, query, domain.JobStatusRunning, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck jobs: %w", err)
	}
	defer rows.Close()

	var stuck []store.StuckJob
	for rows.Next() {
		var job store.StuckJob
		if err := rows.Scan(&job.ID, &job.RetryCount, &job.MaxRetries); err != nil {
			return nil, fmt.Errorf("failed to scan stuck job: %w", err)
		}
		stuck = append(stuck, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stuck jobs: %w", err)
	}

	return stuck, nil
}

// MarkRetryWait transitions RUNNING -> RETRY_WAIT with an incremented retry
// count and the next eligible run time.
func (s *JobStore) MarkRetryWait(ctx context.Context, id int64, nextRunAt time.Time, code domain.ErrorCode, message string) error {
	query := `
		UPDATE enrichment_jobs
		SET status = $1, running_started_at = NULL,
			retry_count = retry_count + 1, next_run_at = $2,
			last_error_code = $3, last_error_message = $4
		WHERE id = $5 AND status = $6
	`
	return s.guardedUpdate(ctx, "mark retry wait", id, domain.JobStatusRunning, query,
		domain.JobStatusRetryWait, nextRunAt, code, message, id, domain.JobStatusRunning)
}

// MarkStuckFailed transitions RUNNING -> FAILED for a job with no retry
// budget left.
func (s *JobStore) MarkStuckFailed(ctx context.Context, id int64, code domain.ErrorCode, message string) error {
	query := `
		UPDATE enrichment_jobs
		SET status = $1, running_started_at = NULL, finished_at = now(),
			last_error_code = $2, last_error_message = $3
		WHERE id = $4 AND status = $5
	`
	return s.guardedUpdate(ctx, "mark stuck failed", id, domain.JobStatusRunning, query,
		domain.JobStatusFailed, code, message, id, domain.JobStatusRunning)
}

// PromoteRetryWait promotes all RETRY_WAIT jobs whose backoff has elapsed
// back to PENDING.
func (s *JobStore) PromoteRetryWait(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE enrichment_jobs
		SET status = $1, next_run_at = NULL, running_started_at = NULL
		WHERE status = $2 AND next_run_at <= $3
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusPending, domain.JobStatusRetryWait, now)
	if err != nil {
		return 0, fmt.Errorf("failed to promote retry-wait jobs: %w", err)
	}

	promoted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return promoted, nil
}

// Resume transitions SUSPENDED -> PENDING, resetting the retry budget while
// keeping the last error for audit.
func (s *JobStore) Resume(ctx context.Context, id int64) error {
	// Distinguish a missing job from a wrong-status job before the guarded
	// update so callers get a precise error.
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	query := `
		UPDATE enrichment_jobs
		SET status = $1, retry_count = 0,
			next_run_at = NULL, running_started_at = NULL, finished_at = NULL
		WHERE id = $2 AND status = $3
	`
	return s.guardedUpdate(ctx, "resume", id, domain.JobStatusSuspended, query,
		domain.JobStatusPending, id, domain.JobStatusSuspended)
}

// ResumeByErrorCodes resumes every SUSPENDED job whose last error code is in
// codes.
func (s *JobStore) ResumeByErrorCodes(ctx context.Context, codes []domain.ErrorCode) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}

	args := []any{domain.JobStatusPending, domain.JobStatusSuspended}
	placeholders := ""
	for i, code := range codes {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += fmt.Sprintf("$%d", len(args)+1)
		args = append(args, code)
	}

	query := `
		UPDATE enrichment_jobs
		SET status = $1, retry_count = 0,
			next_run_at = NULL, running_started_at = NULL, finished_at = NULL
		WHERE status = $2 AND last_error_code IN (` + placeholders + `)
	`

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to resume jobs by error code: %w", err)
	}

	resumed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return resumed, nil
}

// guardedUpdate runs a status-guarded update and maps zero affected rows to
// an invalid-transition error so illegal transitions fail loudly.
func (s *JobStore) guardedUpdate(ctx context.Context, op string, id int64, expected domain.JobStatus, query string, args ...any) error {
	log := logger.FromContext(ctx)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to "+op, "job_id", id, "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s requires status %s on job %d",
			domain.ErrInvalidTransition, op, expected, id)
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanJob.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var nextRunAt, runningStartedAt, startedAt, finishedAt sql.NullTime
	var lastErrorCode, lastErrorMessage sql.NullString

	err := row.Scan(
		&job.ID,
		&job.ArticleID,
		&job.Type,
		&job.Status,
		&job.PromptVersion,
		&job.Model,
		&job.RetryCount,
		&job.MaxRetries,
		&nextRunAt,
		&runningStartedAt,
		&lastErrorCode,
		&lastErrorMessage,
		&job.RequestedAt,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if nextRunAt.Valid {
		job.NextRunAt = &nextRunAt.Time
	}
	if runningStartedAt.Valid {
		job.RunningStartedAt = &runningStartedAt.Time
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	job.LastErrorCode = domain.ErrorCode(lastErrorCode.String)
	job.LastErrorMessage = lastErrorMessage.String

	return &job, nil
}
