package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/generation"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/store"
)

// TermCardsProcessor executes TERM_CARDS jobs: it extracts three distinct
// terms from the article summary, resolves them against the shared term
// dictionary, and saves the cards as one atomic batch.
type TermCardsProcessor struct {
	db        *sql.DB
	artifacts store.ArtifactStore
	terms     store.TermStore
	generator generation.Generator

	runTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewTermCardsProcessor creates a TermCardsProcessor. The db handle is used
// to commit the dictionary upserts and the card batch in one transaction.
func NewTermCardsProcessor(db *sql.DB, artifacts store.ArtifactStore, terms store.TermStore, gen generation.Generator) *TermCardsProcessor {
	return &TermCardsProcessor{
		db:        db,
		artifacts: artifacts,
		terms:     terms,
		generator: gen,
		runTx:     store.RunInTransaction,
	}
}

// Type implements Processor.
func (p *TermCardsProcessor) Type() domain.JobType { return domain.JobTypeTermCards }

// Process implements Processor.
func (p *TermCardsProcessor) Process(ctx context.Context, job *domain.Job) error {
	summary, err := latestSummary(ctx, p.artifacts, job.ArticleID)
	if err != nil {
		return err
	}

	req, err := generation.BuildRequest(job.Type, job.Model, summary.Full)
	if err != nil {
		return failStage(domain.ErrCodeBadRequest, err)
	}

	raw, err := p.generator.Generate(ctx, req)
	if err != nil {
		return err
	}

	var payload generation.TermCardsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return failStage(domain.ErrCodeInvalidResponse,
			fmt.Errorf("failed to decode term cards payload: %w", err))
	}
	if err := payload.Validate(); err != nil {
		return failStage(domain.ErrCodeInvalidResponse, err)
	}

	return p.persist(ctx, job, payload)
}

// persist upserts the three dictionary terms and saves the card batch in a
// single transaction. Card identity is decided by the dictionary: if two
// provider terms collapse onto one entry, the whole batch rolls back and the
// job fails with a dedup conflict.
func (p *TermCardsProcessor) persist(ctx context.Context, job *domain.Job, payload generation.TermCardsPayload) error {
	err := p.runTx(ctx, p.db, func(ctx context.Context, tx *sql.Tx) error {
		terms := p.terms.WithTx(tx)
		artifacts := p.artifacts.WithTx(tx)

		seen := make(map[int64]bool, domain.TermCardCount)
		cards := make([]*domain.TermCard, 0, domain.TermCardCount)

		for i, card := range payload.Cards {
			term, err := domain.NewTerm(card.Term, card.Definition)
			if err != nil {
				return failStage(domain.ErrCodeInvalidResponse,
					fmt.Errorf("term card %d: %w", i+1, err))
			}

			saved, err := terms.Upsert(ctx, term)
			if err != nil {
				return fmt.Errorf("failed to upsert term %q: %w", term.Normalized, err)
			}

			if seen[saved.ID] {
				return failStage(domain.ErrCodeTermDedupConflict,
					fmt.Errorf("terms collapse to fewer than %d dictionary entries", domain.TermCardCount))
			}
			seen[saved.ID] = true

			tc := &domain.TermCard{
				JobID:     job.ID,
				ArticleID: job.ArticleID,
				Order:     i + 1,
				TermID:    saved.ID,
				Highlight: card.HighlightText,
			}
			if err := tc.Validate(); err != nil {
				return failStage(domain.ErrCodeInvalidResponse, err)
			}
			cards = append(cards, tc)
		}

		created, err := artifacts.SaveTermCards(ctx, cards)
		if err != nil {
			return fmt.Errorf("failed to save term cards: %w", err)
		}
		if !created {
			logger.FromContext(ctx).Debug("term cards already saved for job",
				slog.Int64("job_id", job.ID))
		}
		return nil
	})
	if err == nil {
		return nil
	}

	var se *stageError
	if errors.As(err, &se) {
		return err
	}
	return failStage(domain.ErrCodeAPIFailure, err)
}
