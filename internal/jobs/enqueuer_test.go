package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/metrics"
)

func newTestEnqueuer(t *testing.T, jobs *memJobStore) *Enqueuer {
	t.Helper()
	enq, err := NewEnqueuer(jobs, "v1", "gpt-4o-mini", metrics.Nop{})
	require.NoError(t, err)
	return enq
}

func TestNewEnqueuer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewEnqueuer(nil, "v1", "m", nil)
	assert.Error(t, err)

	_, err = NewEnqueuer(newMemJobStore(), "", "m", nil)
	assert.Error(t, err)

	_, err = NewEnqueuer(newMemJobStore(), "v1", "", nil)
	assert.Error(t, err)
}

func TestEnqueuer_EnqueueSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	jobs := newMemJobStore()
	enq := newTestEnqueuer(t, jobs)

	outcome, err := enq.EnqueueSummary(ctx, 42)
	require.NoError(t, err)
	assert.False(t, outcome.Duplicate)
	require.NotNil(t, outcome.Job)
	assert.Equal(t, domain.JobTypeSummary, outcome.Job.Type)
	assert.Equal(t, domain.JobStatusPending, outcome.Job.Status)
	assert.Equal(t, "v1", outcome.Job.PromptVersion)
	assert.Equal(t, domain.DefaultMaxRetries, outcome.Job.MaxRetries)
}

func TestEnqueuer_EnqueueSummary_Duplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	jobs := newMemJobStore()
	enq := newTestEnqueuer(t, jobs)

	first, err := enq.EnqueueSummary(ctx, 42)
	require.NoError(t, err)

	second, err := enq.EnqueueSummary(ctx, 42)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Job.ID, second.Job.ID)
	assert.Len(t, jobs.jobs, 1)
}

func TestEnqueuer_EnqueueSummary_InvalidArticle(t *testing.T) {
	t.Parallel()
	enq := newTestEnqueuer(t, newMemJobStore())

	_, err := enq.EnqueueSummary(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrEmptyArticleID)
}

func TestEnqueuer_FanOutAfterSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	jobs := newMemJobStore()
	enq := newTestEnqueuer(t, jobs)

	require.NoError(t, enq.FanOutAfterSummary(ctx, 7))

	types := make(map[domain.JobType]int)
	for _, job := range jobs.jobs {
		types[job.Type]++
		assert.Equal(t, int64(7), job.ArticleID)
	}
	assert.Equal(t, map[domain.JobType]int{
		domain.JobTypeTermCards:   1,
		domain.JobTypeInsight:     1,
		domain.JobTypeQuizContent: 1,
	}, types)
}

func TestEnqueuer_FanOutAfterSummary_Replay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	jobs := newMemJobStore()
	enq := newTestEnqueuer(t, jobs)

	require.NoError(t, enq.FanOutAfterSummary(ctx, 7))
	require.NoError(t, enq.FanOutAfterSummary(ctx, 7))

	assert.Len(t, jobs.jobs, 3)
}

func TestEnqueuer_EnqueueQuizTermAfterTermCards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	jobs := newMemJobStore()
	enq := newTestEnqueuer(t, jobs)

	require.NoError(t, enq.EnqueueQuizTermAfterTermCards(ctx, 7))
	require.NoError(t, enq.EnqueueQuizTermAfterTermCards(ctx, 7))

	assert.Len(t, jobs.jobs, 1)
	for _, job := range jobs.jobs {
		assert.Equal(t, domain.JobTypeQuizTerm, job.Type)
	}
}
