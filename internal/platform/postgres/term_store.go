package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/store"
)

// TermStore implements the store.TermStore interface using PostgreSQL.
type TermStore struct {
	db store.DBTX
}

// NewTermStore creates a new TermStore.
func NewTermStore(db store.DBTX) *TermStore {
	return &TermStore{db: db}
}

// WithTx returns a new TermStore instance that uses the provided transaction.
func (s *TermStore) WithTx(tx *sql.Tx) store.TermStore {
	return &TermStore{db: tx}
}

// Upsert inserts the term or returns the existing dictionary entry. The
// definition follows first-writer-wins: a conflict only fills it in when the
// stored definition is still empty, never overwriting a non-empty one.
func (s *TermStore) Upsert(ctx context.Context, term *domain.Term) (*domain.Term, error) {
	if term.Normalized == "" {
		return nil, fmt.Errorf("%w: term normalized form is empty", store.ErrInvalidEntity)
	}

	query := `
		INSERT INTO terms (normalized, display, definition, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (normalized) DO UPDATE
		SET definition = CASE
			WHEN terms.definition = '' THEN EXCLUDED.definition
			ELSE terms.definition
		END
		RETURNING id, normalized, display, definition, created_at
	`

	var saved domain.Term
	err := s.db.QueryRowContext(ctx, query,
		term.Normalized, term.Display, term.Definition, term.CreatedAt,
	).Scan(&saved.ID, &saved.Normalized, &saved.Display, &saved.Definition, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert term: %w", err)
	}

	return &saved, nil
}

// GetByNormalized retrieves a term by its normalized form.
func (s *TermStore) GetByNormalized(ctx context.Context, normalized string) (*domain.Term, error) {
	query := `
		SELECT id, normalized, display, definition, created_at
		FROM terms
		WHERE normalized = $1
	`

	var term domain.Term
	err := s.db.QueryRowContext(ctx, query, normalized).Scan(
		&term.ID, &term.Normalized, &term.Display, &term.Definition, &term.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTermNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term: %w", err)
	}

	return &term, nil
}
