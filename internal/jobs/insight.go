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

// latestSummary loads the article summary that the middle stages consume.
// A missing summary is a precondition failure, not a provider failure.
func latestSummary(ctx context.Context, artifacts store.ArtifactStore, articleID int64) (*domain.Summary, error) {
	summary, err := artifacts.GetLatestSummaryByArticle(ctx, articleID)
	if errors.Is(err, store.ErrSummaryNotFound) {
		return nil, failStage(domain.ErrCodeMissingPrecondition,
			fmt.Errorf("no summary exists for article %d", articleID))
	}
	if err != nil {
		return nil, failStage(domain.ErrCodeAPIFailure, fmt.Errorf("failed to load summary: %w", err))
	}
	return summary, nil
}

// InsightProcessor executes INSIGHT jobs: it turns the article summary into
// three analytical insights stored as one structured payload.
type InsightProcessor struct {
	artifacts store.ArtifactStore
	generator generation.Generator
}

// NewInsightProcessor creates an InsightProcessor.
func NewInsightProcessor(artifacts store.ArtifactStore, gen generation.Generator) *InsightProcessor {
	return &InsightProcessor{artifacts: artifacts, generator: gen}
}

// Type implements Processor.
func (p *InsightProcessor) Type() domain.JobType { return domain.JobTypeInsight }

// Process implements Processor.
func (p *InsightProcessor) Process(ctx context.Context, job *domain.Job) error {
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

	var payload generation.InsightPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return failStage(domain.ErrCodeInvalidResponse,
			fmt.Errorf("failed to decode insight payload: %w", err))
	}
	if err := payload.Validate(); err != nil {
		return failStage(domain.ErrCodeInvalidResponse, err)
	}

	insight := &domain.Insight{
		JobID:     job.ID,
		ArticleID: job.ArticleID,
		Payload:   raw,
	}
	if err := insight.Validate(); err != nil {
		return failStage(domain.ErrCodeInvalidResponse, err)
	}

	created, err := p.artifacts.SaveInsight(ctx, insight)
	if err != nil {
		return failStage(domain.ErrCodeAPIFailure, fmt.Errorf("failed to save insight: %w", err))
	}
	if !created {
		logger.FromContext(ctx).Debug("insight already saved for job",
			slog.Int64("job_id", job.ID))
	}

	return nil
}
