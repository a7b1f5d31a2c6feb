package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/briefly-api/internal/domain"
)

// TermStore defines the interface for the globally deduplicated term
// dictionary. Definitions follow first-writer-wins semantics: once a term
// carries a non-empty definition it is never overwritten.
// Version: 1.0
type TermStore interface {
	// Upsert inserts the term or returns the existing entry for its
	// normalized form. The returned term always carries the dictionary ID.
	Upsert(ctx context.Context, term *domain.Term) (*domain.Term, error)

	// GetByNormalized retrieves a term by its normalized form.
	// Returns ErrTermNotFound if the term does not exist.
	GetByNormalized(ctx context.Context, normalized string) (*domain.Term, error)

	// WithTx returns a new TermStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TermStore
}
