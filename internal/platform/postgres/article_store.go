package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/store"
)

// ArticleStore provides read access to crawled articles.
type ArticleStore struct {
	db store.DBTX
}

// NewArticleStore creates a new ArticleStore.
func NewArticleStore(db store.DBTX) *ArticleStore {
	return &ArticleStore{db: db}
}

// GetByID retrieves an article by its ID.
func (s *ArticleStore) GetByID(ctx context.Context, id int64) (*domain.Article, error) {
	query := `
		SELECT id, title, url, body, created_at
		FROM articles
		WHERE id = $1
	`

	var article domain.Article
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&article.ID, &article.Title, &article.URL, &article.Body, &article.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return &article, nil
}
