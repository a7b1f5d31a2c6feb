package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/generation"
	"github.com/phrazzld/briefly-api/internal/platform/logger"
	"github.com/phrazzld/briefly-api/internal/store"
)

// generateQuiz runs the shared tail of both quiz stages: call the provider,
// validate the quiz shape, and save the quiz set under the job's quiz kind.
func generateQuiz(ctx context.Context, artifacts store.ArtifactStore, gen generation.Generator, job *domain.Job, contextText string) error {
	kind, ok := domain.QuizKindForJobType(job.Type)
	if !ok {
		return failStage(domain.ErrCodeBadRequest,
			fmt.Errorf("job type %s does not produce a quiz", job.Type))
	}

	req, err := generation.BuildRequest(job.Type, job.Model, contextText)
	if err != nil {
		return failStage(domain.ErrCodeBadRequest, err)
	}

	raw, err := gen.Generate(ctx, req)
	if err != nil {
		return err
	}

	var payload generation.QuizPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return failStage(domain.ErrCodeInvalidResponse,
			fmt.Errorf("failed to decode quiz payload: %w", err))
	}
	if err := payload.Validate(); err != nil {
		return failStage(domain.ErrCodeInvalidResponse, err)
	}

	quiz := &domain.QuizSet{
		JobID:     job.ID,
		ArticleID: job.ArticleID,
		Kind:      kind,
		Payload:   raw,
	}
	if err := quiz.Validate(); err != nil {
		return failStage(domain.ErrCodeInvalidResponse, err)
	}

	created, err := artifacts.SaveQuizSet(ctx, quiz)
	if err != nil {
		return failStage(domain.ErrCodeAPIFailure, fmt.Errorf("failed to save quiz set: %w", err))
	}
	if !created {
		logger.FromContext(ctx).Debug("quiz set already saved for job",
			slog.Int64("job_id", job.ID),
			slog.String("kind", string(kind)))
	}

	return nil
}

// QuizTermProcessor executes QUIZ_TERM jobs: a quiz over the article's term
// card definitions. It only runs once TERM_CARDS has succeeded, so missing
// cards mean the fan-out contract was broken upstream.
type QuizTermProcessor struct {
	artifacts store.ArtifactStore
	generator generation.Generator
}

// NewQuizTermProcessor creates a QuizTermProcessor.
func NewQuizTermProcessor(artifacts store.ArtifactStore, gen generation.Generator) *QuizTermProcessor {
	return &QuizTermProcessor{artifacts: artifacts, generator: gen}
}

// Type implements Processor.
func (p *QuizTermProcessor) Type() domain.JobType { return domain.JobTypeQuizTerm }

// Process implements Processor.
func (p *QuizTermProcessor) Process(ctx context.Context, job *domain.Job) error {
	cards, err := p.artifacts.ListTermCardsByArticle(ctx, job.ArticleID)
	if err != nil {
		return failStage(domain.ErrCodeAPIFailure, fmt.Errorf("failed to load term cards: %w", err))
	}
	if len(cards) < domain.TermCardCount {
		return failStage(domain.ErrCodeMissingPrecondition,
			fmt.Errorf("article %d has %d term cards, need %d",
				job.ArticleID, len(cards), domain.TermCardCount))
	}

	return generateQuiz(ctx, p.artifacts, p.generator, job, termDigest(cards))
}

// termDigest renders the term cards as the provider input for the term quiz.
func termDigest(cards []*domain.TermCardDetail) string {
	var b strings.Builder
	for i, card := range cards {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Term: %s\nDefinition: %s", card.Term, card.Definition)
	}
	return b.String()
}
