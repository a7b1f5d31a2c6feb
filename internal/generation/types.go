package generation

import (
	"fmt"
	"strings"

	"github.com/phrazzld/briefly-api/internal/domain"
)

// SummaryPayload is the shaped SUMMARY response.
type SummaryPayload struct {
	Summary3    []string `json:"summary3"`
	SummaryFull string   `json:"summaryFull"`
}

// Validate enforces exactly three non-blank lines plus a non-blank full
// summary.
func (p *SummaryPayload) Validate() error {
	if len(p.Summary3) != domain.SummaryLineCount {
		return fmt.Errorf("%w: expected %d summary lines, got %d",
			ErrInvalidResponse, domain.SummaryLineCount, len(p.Summary3))
	}
	for i, line := range p.Summary3 {
		if strings.TrimSpace(line) == "" {
			return fmt.Errorf("%w: summary line %d is blank", ErrInvalidResponse, i+1)
		}
	}
	if strings.TrimSpace(p.SummaryFull) == "" {
		return fmt.Errorf("%w: full summary is blank", ErrInvalidResponse)
	}
	return nil
}

// TermCardPayload is one card in a TERM_CARDS response.
type TermCardPayload struct {
	Term          string `json:"term"`
	HighlightText string `json:"highlightText"`
	Definition    string `json:"definition"`
}

// TermCardsPayload is the shaped TERM_CARDS response.
type TermCardsPayload struct {
	Cards []TermCardPayload `json:"cards"`
}

// Validate enforces exactly three cards, each fully populated. Dedup by
// underlying term identity happens later, once dictionary IDs are known.
func (p *TermCardsPayload) Validate() error {
	if len(p.Cards) != domain.TermCardCount {
		return fmt.Errorf("%w: expected %d term cards, got %d",
			ErrInvalidResponse, domain.TermCardCount, len(p.Cards))
	}
	for i, card := range p.Cards {
		if strings.TrimSpace(card.Term) == "" ||
			strings.TrimSpace(card.HighlightText) == "" ||
			strings.TrimSpace(card.Definition) == "" {
			return fmt.Errorf("%w: term card %d has a blank field", ErrInvalidResponse, i+1)
		}
	}
	return nil
}

// InsightItem is one insight in an INSIGHT response.
type InsightItem struct {
	Title        string `json:"title"`
	Detail       string `json:"detail"`
	WhyItMatters string `json:"whyItMatters"`
}

// InsightPayload is the shaped INSIGHT response.
type InsightPayload struct {
	Insights []InsightItem `json:"insights"`
}

// Validate enforces the three-insight envelope.
func (p *InsightPayload) Validate() error {
	if len(p.Insights) != 3 {
		return fmt.Errorf("%w: expected 3 insights, got %d", ErrInvalidResponse, len(p.Insights))
	}
	for i, item := range p.Insights {
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.Detail) == "" {
			return fmt.Errorf("%w: insight %d has a blank field", ErrInvalidResponse, i+1)
		}
	}
	return nil
}

// QuizQuestion is one question in a quiz response.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	AnswerIndex  int      `json:"answerIndex"`
	Explanations []string `json:"explanations"`
}

// QuizPayload is the shaped response for both quiz stages.
type QuizPayload struct {
	Questions []QuizQuestion `json:"questions"`
}

// Validate enforces three questions with four options each and an answer
// index in [0,3].
func (p *QuizPayload) Validate() error {
	if len(p.Questions) != 3 {
		return fmt.Errorf("%w: expected 3 questions, got %d", ErrInvalidResponse, len(p.Questions))
	}
	for i, q := range p.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d is blank", ErrInvalidResponse, i+1)
		}
		if len(q.Options) != 4 {
			return fmt.Errorf("%w: question %d has %d options, expected 4",
				ErrInvalidResponse, i+1, len(q.Options))
		}
		if q.AnswerIndex < 0 || q.AnswerIndex > 3 {
			return fmt.Errorf("%w: question %d answer index %d out of range",
				ErrInvalidResponse, i+1, q.AnswerIndex)
		}
		if len(q.Explanations) != 4 {
			return fmt.Errorf("%w: question %d has %d explanations, expected 4",
				ErrInvalidResponse, i+1, len(q.Explanations))
		}
	}
	return nil
}
