package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/generation"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/store"
)

// SummaryProcessor executes SUMMARY jobs: it summarizes the article body
// into three short lines plus a full paragraph.
type SummaryProcessor struct {
	articles  store.ArticleStore
	artifacts store.ArtifactStore
	generator generation.Generator
}

// NewSummaryProcessor creates a SummaryProcessor.
func NewSummaryProcessor(articles store.ArticleStore, artifacts store.ArtifactStore, gen generation.Generator) *SummaryProcessor {
	return &SummaryProcessor{articles: articles, artifacts: artifacts, generator: gen}
}

// Type implements Processor.
func (p *SummaryProcessor) Type() domain.JobType { return domain.JobTypeSummary }

// Process implements Processor.
func (p *SummaryProcessor) Process(ctx context.Context, job *domain.Job) error {
	article, err := p.articles.GetByID(ctx, job.ArticleID)
	if errors.Is(err, store.ErrArticleNotFound) {
		return failStage(domain.ErrCodeMissingPrecondition,
			fmt.Errorf("article %d does not exist", job.ArticleID))
	}
	if err != nil {
		return failStage(domain.ErrCodeAPIFailure, fmt.Errorf("failed to load article: %w", err))
	}

	req, err := generation.BuildRequest(job.Type, job.Model, article.Title+"\n\n"+article.Body)
	if err != nil {
		return failStage(domain.ErrCodeBadRequest, err)
	}

	raw, err := p.generator.Generate(ctx, req)
	if err != nil {
		return err
	}

	var payload generation.SummaryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return failStage(domain.ErrCodeInvalidResponse,
			fmt.Errorf("failed to decode summary payload: %w", err))
	}
	if err := payload.Validate(); err != nil {
		return failStage(domain.ErrCodeInvalidResponse, err)
	}

	summary, err := domain.NewSummary(job.ID, job.ArticleID, payload.Summary3, payload.SummaryFull)
	if err != nil {
		return failStage(domain.ErrCodeInvalidResponse, err)
	}

	created, err := p.artifacts.SaveSummary(ctx, summary)
	if err != nil {
		return failStage(domain.ErrCodeAPIFailure, fmt.Errorf("failed to save summary: %w", err))
	}
	if !created {
		logger.FromContext(ctx).Debug("summary already saved for job",
			slog.Int64("job_id", job.ID))
	}

	return nil
}
