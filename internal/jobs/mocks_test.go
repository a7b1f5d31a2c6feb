package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/generation"
	"github.com/phrazzld/briefly-api/internal/store"
)

// memJobStore is an in-memory JobStore with the same guarded-transition
// semantics as the postgres implementation.
type memJobStore struct {
	mu   sync.Mutex
	seq  int64
	jobs map[int64]*domain.Job

	enqueueErr error
	claimErr   error
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[int64]*domain.Job)}
}

func (s *memJobStore) Enqueue(ctx context.Context, job *domain.Job) (store.EnqueueOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enqueueErr != nil {
		return store.EnqueueOutcome{}, s.enqueueErr
	}

	for _, existing := range s.jobs {
		if existing.ArticleID == job.ArticleID &&
			existing.Type == job.Type &&
			existing.PromptVersion == job.PromptVersion {
			return store.EnqueueOutcome{Job: existing, Duplicate: true}, nil
		}
	}

	s.seq++
	saved := *job
	saved.ID = s.seq
	s.jobs[saved.ID] = &saved
	return store.EnqueueOutcome{Job: &saved}, nil
}

func (s *memJobStore) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *memJobStore) Claim(ctx context.Context, jobType domain.JobType, limit int) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claimErr != nil {
		return nil, s.claimErr
	}

	var eligible []*domain.Job
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusPending && job.Type == jobType {
			eligible = append(eligible, job)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].RequestedAt.Equal(eligible[j].RequestedAt) {
			return eligible[i].ID < eligible[j].ID
		}
		return eligible[i].RequestedAt.Before(eligible[j].RequestedAt)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	now := time.Now().UTC()
	claimed := make([]*domain.Job, 0, len(eligible))
	for _, job := range eligible {
		job.Status = domain.JobStatusRunning
		started := now
		job.RunningStartedAt = &started
		if job.StartedAt == nil {
			job.StartedAt = &started
		}
		copied := *job
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (s *memJobStore) transition(id int64, from, to domain.JobStatus, mutate func(*domain.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != from {
		return domain.ErrInvalidTransition
	}
	job.Status = to
	if mutate != nil {
		mutate(job)
	}
	return nil
}

func (s *memJobStore) MarkSuccess(ctx context.Context, id int64) error {
	return s.transition(id, domain.JobStatusRunning, domain.JobStatusSuccess, func(j *domain.Job) {
		now := time.Now().UTC()
		j.FinishedAt = &now
	})
}

func (s *memJobStore) MarkFailed(ctx context.Context, id int64, code domain.ErrorCode, message string) error {
	return s.transition(id, domain.JobStatusRunning, domain.JobStatusFailed, func(j *domain.Job) {
		now := time.Now().UTC()
		j.FinishedAt = &now
		j.LastErrorCode = code
		j.LastErrorMessage = message
	})
}

func (s *memJobStore) MarkSuspended(ctx context.Context, id int64, code domain.ErrorCode, message string) error {
	return s.transition(id, domain.JobStatusRunning, domain.JobStatusSuspended, func(j *domain.Job) {
		j.LastErrorCode = code
		j.LastErrorMessage = message
	})
}

func (s *memJobStore) ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]store.StuckJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var stuck []store.StuckJob
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusRunning &&
			job.RunningStartedAt != nil &&
			job.RunningStartedAt.Before(cutoff) {
			stuck = append(stuck, store.StuckJob{
				ID:         job.ID,
				RetryCount: job.RetryCount,
				MaxRetries: job.MaxRetries,
			})
		}
		if len(stuck) == limit {
			break
		}
	}
	sort.Slice(stuck, func(i, j int) bool { return stuck[i].ID < stuck[j].ID })
	return stuck, nil
}

func (s *memJobStore) MarkRetryWait(ctx context.Context, id int64, nextRunAt time.Time, code domain.ErrorCode, message string) error {
	return s.transition(id, domain.JobStatusRunning, domain.JobStatusRetryWait, func(j *domain.Job) {
		j.RetryCount++
		j.NextRunAt = &nextRunAt
		j.LastErrorCode = code
		j.LastErrorMessage = message
	})
}

func (s *memJobStore) MarkStuckFailed(ctx context.Context, id int64, code domain.ErrorCode, message string) error {
	return s.MarkFailed(ctx, id, code, message)
}

func (s *memJobStore) PromoteRetryWait(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var promoted int64
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusRetryWait &&
			job.NextRunAt != nil &&
			!job.NextRunAt.After(now) {
			job.Status = domain.JobStatusPending
			job.NextRunAt = nil
			job.RunningStartedAt = nil
			promoted++
		}
	}
	return promoted, nil
}

func (s *memJobStore) Resume(ctx context.Context, id int64) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusSuspended {
		return domain.ErrInvalidTransition
	}
	return s.transition(id, domain.JobStatusSuspended, domain.JobStatusPending, func(j *domain.Job) {
		j.RetryCount = 0
		j.NextRunAt = nil
		j.RunningStartedAt = nil
		j.FinishedAt = nil
	})
}

func (s *memJobStore) ResumeByErrorCodes(ctx context.Context, codes []domain.ErrorCode) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[domain.ErrorCode]bool, len(codes))
	for _, code := range codes {
		wanted[code] = true
	}

	var resumed int64
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusSuspended && wanted[job.LastErrorCode] {
			job.Status = domain.JobStatusPending
			job.RetryCount = 0
			job.NextRunAt = nil
			job.RunningStartedAt = nil
			job.FinishedAt = nil
			resumed++
		}
	}
	return resumed, nil
}

func (s *memJobStore) WithTx(tx *sql.Tx) store.JobStore { return s }

// seed inserts a job directly in the given status.
func (s *memJobStore) seed(articleID int64, jobType domain.JobType, status domain.JobStatus) *domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	job := &domain.Job{
		ID:            s.seq,
		ArticleID:     articleID,
		Type:          jobType,
		Status:        status,
		PromptVersion: "v1",
		Model:         "gpt-4o-mini",
		MaxRetries:    domain.DefaultMaxRetries,
		RequestedAt:   time.Now().UTC(),
	}
	if status == domain.JobStatusRunning {
		now := time.Now().UTC()
		job.RunningStartedAt = &now
	}
	s.jobs[job.ID] = job
	return job
}

// memArtifactStore is an in-memory ArtifactStore, idempotent per job ID.
type memArtifactStore struct {
	mu        sync.Mutex
	seq       int64
	summaries []*domain.Summary
	cards     map[int64][]*domain.TermCard
	details   map[int64][]*domain.TermCardDetail
	insights  []*domain.Insight
	quizzes   []*domain.QuizSet

	summaryErr error
}

func newMemArtifactStore() *memArtifactStore {
	return &memArtifactStore{
		cards:   make(map[int64][]*domain.TermCard),
		details: make(map[int64][]*domain.TermCardDetail),
	}
}

func (s *memArtifactStore) SaveSummary(ctx context.Context, summary *domain.Summary) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.summaryErr != nil {
		return false, s.summaryErr
	}
	for _, existing := range s.summaries {
		if existing.JobID == summary.JobID {
			return false, nil
		}
	}
	s.seq++
	saved := *summary
	saved.ID = s.seq
	s.summaries = append(s.summaries, &saved)
	return true, nil
}

func (s *memArtifactStore) GetLatestSummaryByArticle(ctx context.Context, articleID int64) (*domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.summaries) - 1; i >= 0; i-- {
		if s.summaries[i].ArticleID == articleID {
			copied := *s.summaries[i]
			return &copied, nil
		}
	}
	return nil, store.ErrSummaryNotFound
}

func (s *memArtifactStore) SaveTermCards(ctx context.Context, cards []*domain.TermCard) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(cards) == 0 {
		return false, store.ErrInvalidEntity
	}
	jobID := cards[0].JobID
	if _, exists := s.cards[jobID]; exists {
		return false, nil
	}
	s.cards[jobID] = cards
	return true, nil
}

func (s *memArtifactStore) ListTermCardsByArticle(ctx context.Context, articleID int64) ([]*domain.TermCardDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details[articleID], nil
}

func (s *memArtifactStore) SaveInsight(ctx context.Context, insight *domain.Insight) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.insights {
		if existing.JobID == insight.JobID {
			return false, nil
		}
	}
	saved := *insight
	s.insights = append(s.insights, &saved)
	return true, nil
}

func (s *memArtifactStore) SaveQuizSet(ctx context.Context, quiz *domain.QuizSet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.quizzes {
		if existing.JobID == quiz.JobID {
			return false, nil
		}
	}
	saved := *quiz
	s.quizzes = append(s.quizzes, &saved)
	return true, nil
}

func (s *memArtifactStore) ArtifactStatus(ctx context.Context, articleID int64) (domain.ArtifactStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var status domain.ArtifactStatus
	for _, summary := range s.summaries {
		if summary.ArticleID == articleID {
			status.HasSummary = true
		}
	}
	status.TermCardCount = len(s.details[articleID])
	for _, insight := range s.insights {
		if insight.ArticleID == articleID {
			status.HasInsight = true
		}
	}
	for _, quiz := range s.quizzes {
		if quiz.ArticleID == articleID {
			switch quiz.Kind {
			case domain.QuizKindContent:
				status.HasQuizContent = true
			case domain.QuizKindTerm:
				status.HasQuizTerm = true
			}
		}
	}
	return status, nil
}

func (s *memArtifactStore) GetInsightByArticle(ctx context.Context, articleID int64) (*domain.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, insight := range s.insights {
		if insight.ArticleID == articleID {
			copied := *insight
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memArtifactStore) GetQuizSetByArticle(ctx context.Context, articleID int64, kind domain.QuizKind) (*domain.QuizSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, quiz := range s.quizzes {
		if quiz.ArticleID == articleID && quiz.Kind == kind {
			copied := *quiz
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memArtifactStore) WithTx(tx *sql.Tx) store.ArtifactStore { return s }

// memTermStore is an in-memory first-writer-wins term dictionary.
type memTermStore struct {
	mu    sync.Mutex
	seq   int64
	terms map[string]*domain.Term
}

func newMemTermStore() *memTermStore {
	return &memTermStore{terms: make(map[string]*domain.Term)}
}

func (s *memTermStore) Upsert(ctx context.Context, term *domain.Term) (*domain.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.terms[term.Normalized]; ok {
		if existing.Definition == "" {
			existing.Definition = term.Definition
		}
		copied := *existing
		return &copied, nil
	}

	s.seq++
	saved := *term
	saved.ID = s.seq
	s.terms[term.Normalized] = &saved
	copied := saved
	return &copied, nil
}

func (s *memTermStore) GetByNormalized(ctx context.Context, normalized string) (*domain.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	term, ok := s.terms[normalized]
	if !ok {
		return nil, store.ErrTermNotFound
	}
	copied := *term
	return &copied, nil
}

func (s *memTermStore) WithTx(tx *sql.Tx) store.TermStore { return s }

// memArticleStore is an in-memory ArticleStore.
type memArticleStore struct {
	articles map[int64]*domain.Article
}

func newMemArticleStore(articles ...*domain.Article) *memArticleStore {
	s := &memArticleStore{articles: make(map[int64]*domain.Article)}
	for _, a := range articles {
		s.articles[a.ID] = a
	}
	return s
}

func (s *memArticleStore) GetByID(ctx context.Context, id int64) (*domain.Article, error) {
	article, ok := s.articles[id]
	if !ok {
		return nil, store.ErrArticleNotFound
	}
	copied := *article
	return &copied, nil
}

// fakeGenerator returns a canned payload or error per call.
type fakeGenerator struct {
	mu       sync.Mutex
	response json.RawMessage
	err      error
	requests []generation.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, req generation.Request) (json.RawMessage, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.response, nil
}
