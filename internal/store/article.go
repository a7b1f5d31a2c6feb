package store

import (
	"context"

	"github.com/phrazzld/briefly-api/internal/domain"
)

// ArticleStore provides read access to articles owned by the crawler domain.
// Version: 1.0
type ArticleStore interface {
	// GetByID retrieves an article by its ID.
	// Returns ErrArticleNotFound if the article does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Article, error)
}
