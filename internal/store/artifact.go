package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/briefly-api/internal/domain"
)

// ArtifactStore defines the interface for persisting and reading stage
// results. All Save methods are idempotent on the owning job ID: replaying a
// save after a crash or retry reports created=false instead of failing.
// Version: 1.0
type ArtifactStore interface {
	// SaveSummary persists a SUMMARY result. Returns false if a summary
	// already exists for the job.
	SaveSummary(ctx context.Context, summary *domain.Summary) (created bool, err error)

	// GetLatestSummaryByArticle returns the most recent summary for an
	// article. Returns ErrSummaryNotFound if none exists.
	GetLatestSummaryByArticle(ctx context.Context, articleID int64) (*domain.Summary, error)

	// SaveTermCards persists a TERM_CARDS result as one batch. Returns
	// false if cards already exist for the job.
	SaveTermCards(ctx context.Context, cards []*domain.TermCard) (created bool, err error)

	// ListTermCardsByArticle returns the article's term cards joined with
	// their dictionary entries, ordered by card order.
	ListTermCardsByArticle(ctx context.Context, articleID int64) ([]*domain.TermCardDetail, error)

	// SaveInsight persists an INSIGHT result. Returns false if an insight
	// already exists for the job.
	SaveInsight(ctx context.Context, insight *domain.Insight) (created bool, err error)

	// SaveQuizSet persists a quiz result. Returns false if a quiz set
	// already exists for the job.
	SaveQuizSet(ctx context.Context, quiz *domain.QuizSet) (created bool, err error)

	// ArtifactStatus reports which artifact families exist for an article.
	ArtifactStatus(ctx context.Context, articleID int64) (domain.ArtifactStatus, error)

	// GetSummaryByArticle, insight and quiz reads used by the readiness
	// surface to assemble the full bundle.
	GetInsightByArticle(ctx context.Context, articleID int64) (*domain.Insight, error)
	GetQuizSetByArticle(ctx context.Context, articleID int64, kind domain.QuizKind) (*domain.QuizSet, error)

	// WithTx returns a new ArtifactStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ArtifactStore
}
