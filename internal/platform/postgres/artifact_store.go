package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/store"
)

// ArtifactStore implements the store.ArtifactStore interface using PostgreSQL.
type ArtifactStore struct {
	db store.DBTX
}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore(db store.DBTX) *ArtifactStore {
	return &ArtifactStore{db: db}
}

// WithTx returns a new ArtifactStore instance that uses the provided transaction.
func (s *ArtifactStore) WithTx(tx *sql.Tx) store.ArtifactStore {
	return &ArtifactStore{db: tx}
}

// SaveSummary persists a SUMMARY result. The unique constraint on job_id is
// the idempotent-insert guard: a replay after a crash reports created=false.
func (s *ArtifactStore) SaveSummary(ctx context.Context, summary *domain.Summary) (bool, error) {
	if err := summary.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO summaries (job_id, article_id, line1, line2, line3, full_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO NOTHING
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		summary.JobID,
		summary.ArticleID,
		summary.Lines[0],
		summary.Lines[1],
		summary.Lines[2],
		summary.Full,
		summary.CreatedAt,
	).Scan(&summary.ID)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to save summary: %w", err)
	}
	return true, nil
}

// GetLatestSummaryByArticle returns the most recent summary for an article.
func (s *ArtifactStore) GetLatestSummaryByArticle(ctx context.Context, articleID int64) (*domain.Summary, error) {
	query := `
		SELECT id, job_id, article_id, line1, line2, line3, full_text, created_at
		FROM summaries
		WHERE article_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var summary domain.Summary
	var line1, line2, line3 string
	err := s.db.QueryRowContext(ctx, query, articleID).Scan(
		&summary.ID,
		&summary.JobID,
		&summary.ArticleID,
		&line1,
		&line2,
		&line3,
		&summary.Full,
		&summary.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSummaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	summary.Lines = []string{line1, line2, line3}
	return &summary, nil
}

// SaveTermCards persists a TERM_CARDS result as one batch. If any card for
// the job already exists the whole batch is treated as a replay.
func (s *ArtifactStore) SaveTermCards(ctx context.Context, cards []*domain.TermCard) (bool, error) {
	log := logger.FromContext(ctx)

	if len(cards) == 0 {
		return false, fmt.Errorf("%w: empty term card batch", store.ErrInvalidEntity)
	}
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return false, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM term_cards WHERE job_id = $1)`,
		cards[0].JobID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check term card existence: %w", err)
	}
	if exists {
		log.Debug("term cards already persisted, skipping", "job_id", cards[0].JobID)
		return false, nil
	}

	query := `
		INSERT INTO term_cards (job_id, article_id, card_order, term_id, highlight, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (job_id, card_order) DO NOTHING
	`
	for _, card := range cards {
		if _, err := s.db.ExecContext(ctx, query,
			card.JobID, card.ArticleID, card.Order, card.TermID, card.Highlight); err != nil {
			return false, fmt.Errorf("failed to save term card %d: %w", card.Order, err)
		}
	}

	return true, nil
}

// ListTermCardsByArticle returns the article's term cards joined with their
// dictionary entries.
func (s *ArtifactStore) ListTermCardsByArticle(ctx context.Context, articleID int64) ([]*domain.TermCardDetail, error) {
	query := `
		SELECT c.id, c.job_id, c.article_id, c.card_order, c.term_id, c.highlight, c.created_at,
			t.display, t.definition
		FROM term_cards c
		JOIN terms t ON t.id = c.term_id
		WHERE c.article_id = $1
		ORDER BY c.card_order ASC
	`

	rows, err := s.db.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list term cards: %w", err)
	}
	defer rows.Close()

	var details []*domain.TermCardDetail
	for rows.Next() {
		var d domain.TermCardDetail
		if err := rows.Scan(
			&d.ID, &d.JobID, &d.ArticleID, &d.Order, &d.TermID, &d.Highlight, &d.CreatedAt,
			&d.Term, &d.Definition,
		); err != nil {
			return nil, fmt.Errorf("failed to scan term card: %w", err)
		}
		details = append(details, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating term cards: %w", err)
	}

	return details, nil
}

// SaveInsight persists an INSIGHT result idempotently.
func (s *ArtifactStore) SaveInsight(ctx context.Context, insight *domain.Insight) (bool, error) {
	if err := insight.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO insights (job_id, article_id, payload, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (job_id) DO NOTHING
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		insight.JobID, insight.ArticleID, []byte(insight.Payload),
	).Scan(&insight.ID)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to save insight: %w", err)
	}
	return true, nil
}

// SaveQuizSet persists a quiz result idempotently.
func (s *ArtifactStore) SaveQuizSet(ctx context.Context, quiz *domain.QuizSet) (bool, error) {
	if err := quiz.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO quiz_sets (job_id, article_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (job_id) DO NOTHING
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		quiz.JobID, quiz.ArticleID, quiz.Kind, []byte(quiz.Payload),
	).Scan(&quiz.ID)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to save quiz set: %w", err)
	}
	return true, nil
}

// ArtifactStatus reports which artifact families exist for an article.
func (s *ArtifactStore) ArtifactStatus(ctx context.Context, articleID int64) (domain.ArtifactStatus, error) {
	query := `
		SELECT
			EXISTS (SELECT 1 FROM summaries WHERE article_id = $1),
			(SELECT count(*) FROM term_cards WHERE article_id = $1),
			EXISTS (SELECT 1 FROM insights WHERE article_id = $1),
			EXISTS (SELECT 1 FROM quiz_sets WHERE article_id = $1 AND kind = $2),
			EXISTS (SELECT 1 FROM quiz_sets WHERE article_id = $1 AND kind = $3)
	`

	var status domain.ArtifactStatus
	err := s.db.QueryRowContext(ctx, query,
		articleID, domain.QuizKindContent, domain.QuizKindTerm,
	).Scan(
		&status.HasSummary,
		&status.TermCardCount,
		&status.HasInsight,
		&status.HasQuizContent,
		&status.HasQuizTerm,
	)
	if err != nil {
		return domain.ArtifactStatus{}, fmt.Errorf("failed to get artifact status: %w", err)
	}

	return status, nil
}

// GetInsightByArticle returns the most recent insight for an article.
func (s *ArtifactStore) GetInsightByArticle(ctx context.Context, articleID int64) (*domain.Insight, error) {
	query := `
		SELECT id, job_id, article_id, payload, created_at
		FROM insights
		WHERE article_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var insight domain.Insight
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, articleID).Scan(
		&insight.ID, &insight.JobID, &insight.ArticleID, &payload, &insight.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: insight", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}

	insight.Payload = payload
	return &insight, nil
}

// GetQuizSetByArticle returns the most recent quiz set of one kind for an
// article.
func (s *ArtifactStore) GetQuizSetByArticle(ctx context.Context, articleID int64, kind domain.QuizKind) (*domain.QuizSet, error) {
	query := `
		SELECT id, job_id, article_id, kind, payload, created_at
		FROM quiz_sets
		WHERE article_id = $1 AND kind = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var quiz domain.QuizSet
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, articleID, kind).Scan(
		&quiz.ID, &quiz.JobID, &quiz.ArticleID, &quiz.Kind, &payload, &quiz.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: quiz set", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz set: %w", err)
	}

	quiz.Payload = payload
	return &quiz, nil
}
