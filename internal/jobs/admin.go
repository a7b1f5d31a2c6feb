package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/metrics"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/store"
)

// ErrUnknownResumeReason is returned for a batch resume with a reason the
// system does not recognize.
var ErrUnknownResumeReason = errors.New("unknown resume reason")

// Admin is the operator surface over suspended jobs. Resuming returns a job
// to PENDING with a fresh retry budget while keeping its last failure for
// audit.
type Admin struct {
	jobs    store.JobStore
	metrics metrics.Sink
}

// NewAdmin creates an Admin over the job store.
func NewAdmin(jobs store.JobStore, sink metrics.Sink) (*Admin, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job store cannot be nil")
	}
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Admin{jobs: jobs, metrics: sink}, nil
}

// ResumeJob resumes a single suspended job.
// Returns store.ErrJobNotFound if the job does not exist and
// domain.ErrInvalidTransition if it is not SUSPENDED.
func (a *Admin) ResumeJob(ctx context.Context, id int64) error {
	if err := a.jobs.Resume(ctx, id); err != nil {
		return err
	}
	a.metrics.Inc("jobs_resumed")
	logger.FromContext(ctx).Info("suspended job resumed", slog.Int64("job_id", id))
	return nil
}

// ResumeByReason resumes every suspended job whose last failure falls under
// the given reason category. Zero matches is a valid outcome.
func (a *Admin) ResumeByReason(ctx context.Context, reason domain.ResumeReason) (int64, error) {
	codes := domain.ErrorCodesForReason(reason)
	if codes == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownResumeReason, reason)
	}

	resumed, err := a.jobs.ResumeByErrorCodes(ctx, codes)
	if err != nil {
		return 0, err
	}

	if resumed > 0 {
		a.metrics.Inc("jobs_resumed_bulk", string(reason))
	}
	logger.FromContext(ctx).Info("suspended jobs resumed by reason",
		slog.String("reason", string(reason)),
		slog.Int64("count", resumed))
	return resumed, nil
}
