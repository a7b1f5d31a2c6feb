package generation

import "github.com/phrazzld/briefly-api/internal/domain"

// Response schema names sent to the provider per stage.
const (
	SchemaNameSummary   = "article_summary"
	SchemaNameTermCards = "article_term_cards"
	SchemaNameInsight   = "article_insights"
	SchemaNameQuiz      = "article_quiz"
)

// SummarySchema returns the strict response schema for the SUMMARY stage.
func SummarySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary3": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string", "minLength": 1},
				"minItems": 3,
				"maxItems": 3,
			},
			"summaryFull": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []any{"summary3", "summaryFull"},
		"additionalProperties": false,
	}
}

// TermCardsSchema returns the strict response schema for the TERM_CARDS stage.
func TermCardsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cards": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"term":          map[string]any{"type": "string", "minLength": 1},
						"highlightText": map[string]any{"type": "string", "minLength": 1},
						"definition":    map[string]any{"type": "string", "minLength": 1},
					},
					"required":             []any{"term", "highlightText", "definition"},
					"additionalProperties": false,
				},
				"minItems": 3,
				"maxItems": 3,
			},
		},
		"required":             []any{"cards"},
		"additionalProperties": false,
	}
}

// InsightSchema returns the strict response schema for the INSIGHT stage.
func InsightSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"insights": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":        map[string]any{"type": "string", "minLength": 1},
						"detail":       map[string]any{"type": "string", "minLength": 1},
						"whyItMatters": map[string]any{"type": "string"},
					},
					"required":             []any{"title", "detail", "whyItMatters"},
					"additionalProperties": false,
				},
				"minItems": 3,
				"maxItems": 3,
			},
		},
		"required":             []any{"insights"},
		"additionalProperties": false,
	}
}

// QuizSchema returns the strict response schema shared by both quiz stages.
func QuizSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string", "minLength": 1},
						"options": map[string]any{
							"type":     "array",
							"items":    map[string]any{"type": "string", "minLength": 1},
							"minItems": 4,
							"maxItems": 4,
						},
						"answerIndex": map[string]any{
							"type":    "integer",
							"minimum": 0,
							"maximum": 3,
						},
						"explanations": map[string]any{
							"type":     "array",
							"items":    map[string]any{"type": "string"},
							"minItems": 4,
							"maxItems": 4,
						},
					},
					"required":             []any{"question", "options", "answerIndex", "explanations"},
					"additionalProperties": false,
				},
				"minItems": 3,
				"maxItems": 3,
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	}
}

// SchemaForJobType returns the schema name and schema for a stage.
func SchemaForJobType(t domain.JobType) (string, map[string]any) {
	switch t {
	case domain.JobTypeSummary:
		return SchemaNameSummary, SummarySchema()
	case domain.JobTypeTermCards:
		return SchemaNameTermCards, TermCardsSchema()
	case domain.JobTypeInsight:
		return SchemaNameInsight, InsightSchema()
	case domain.JobTypeQuizContent, domain.JobTypeQuizTerm:
		return SchemaNameQuiz, QuizSchema()
	}
	return "", nil
}
