package generation

import (
	"fmt"

	"github.com/phrazzld/briefly-api/internal/domain"
)

// defaultMaxOutputTokens bounds the response size for every stage.
const defaultMaxOutputTokens = 2048

var stageInstructions = map[domain.JobType]string{
	domain.JobTypeSummary: "You summarize news articles for busy readers. " +
		"Produce exactly three short standalone summary lines and one full summary paragraph.",
	domain.JobTypeTermCards: "You extract the three most important domain terms from a news summary. " +
		"For each term provide the term itself, the sentence fragment from the summary that motivated it, " +
		"and a one-paragraph definition. The three terms must be distinct concepts.",
	domain.JobTypeInsight: "You write three analytical insights about a news summary. " +
		"Each insight has a title, a detail paragraph, and a note on why it matters.",
	domain.JobTypeQuizContent: "You write a three-question multiple-choice comprehension quiz about a news summary. " +
		"Each question has four options, one correct answer index, and an explanation per option.",
	domain.JobTypeQuizTerm: "You write a three-question multiple-choice quiz testing the given term definitions. " +
		"Each question has four options, one correct answer index, and an explanation per option.",
}

// BuildRequest assembles the provider request for one stage. contextText is
// whatever the stage feeds the model: the article body for SUMMARY, the
// latest summary for the middle stages, the term card digest for QUIZ_TERM.
func BuildRequest(jobType domain.JobType, model, contextText string) (Request, error) {
	instruction, ok := stageInstructions[jobType]
	if !ok {
		return Request{}, fmt.Errorf("%w: no instructions for job type %q", ErrInvalidConfig, jobType)
	}

	name, schema := SchemaForJobType(jobType)
	if schema == nil {
		return Request{}, fmt.Errorf("%w: no schema for job type %q", ErrInvalidConfig, jobType)
	}

	return Request{
		Model: model,
		Input: []Message{
			{Role: "system", Content: instruction},
			{Role: "user", Content: contextText},
		},
		MaxOutputTokens: defaultMaxOutputTokens,
		SchemaName:      name,
		Schema:          schema,
	}, nil
}
