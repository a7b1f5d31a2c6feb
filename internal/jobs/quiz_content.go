package jobs

import (
	"context"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/generation"
	"github.com/phrazzld/briefly-api/internal/store"
)

// QuizContentProcessor executes QUIZ_CONTENT jobs: a comprehension quiz
// generated from the article summary.
type QuizContentProcessor struct {
	artifacts store.ArtifactStore
	generator generation.Generator
}

// NewQuizContentProcessor creates a QuizContentProcessor.
func NewQuizContentProcessor(artifacts store.ArtifactStore, gen generation.Generator) *QuizContentProcessor {
	return &QuizContentProcessor{artifacts: artifacts, generator: gen}
}

// Type implements Processor.
func (p *QuizContentProcessor) Type() domain.JobType { return domain.JobTypeQuizContent }

// Process implements Processor.
func (p *QuizContentProcessor) Process(ctx context.Context, job *domain.Job) error {
	summary, err := latestSummary(ctx, p.artifacts, job.ArticleID)
	if err != nil {
		return err
	}
	return generateQuiz(ctx, p.artifacts, p.generator, job, summary.Full)
}
