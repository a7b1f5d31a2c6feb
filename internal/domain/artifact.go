package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SummaryLineCount is the exact number of short summary lines per article.
const SummaryLineCount = 3

// TermCardCount is the exact number of term cards per article.
const TermCardCount = 3

// Common artifact validation errors
var (
	ErrSummaryLineCount   = errors.New("summary must have exactly 3 non-blank lines")
	ErrEmptySummaryFull   = errors.New("full summary cannot be blank")
	ErrInvalidCardOrder   = errors.New("term card order must be between 1 and 3")
	ErrEmptyTermCardField = errors.New("term card fields cannot be blank")
	ErrEmptyPayload       = errors.New("artifact payload cannot be empty")
	ErrInvalidQuizKind    = errors.New("invalid quiz kind")
	ErrEmptyTermText      = errors.New("term text cannot be empty")
)

// Summary is the persisted SUMMARY stage result: three short lines plus the
// full summary text. Exactly one exists per successful SUMMARY job.
type Summary struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	ArticleID int64     `json:"article_id"`
	Lines     []string  `json:"lines"`
	Full      string    `json:"full"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSummary creates a validated Summary result.
func NewSummary(jobID, articleID int64, lines []string, full string) (*Summary, error) {
	s := &Summary{
		JobID:     jobID,
		ArticleID: articleID,
		Lines:     lines,
		Full:      full,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks the exact shape rules for a summary.
func (s *Summary) Validate() error {
	if len(s.Lines) != SummaryLineCount {
		return fmt.Errorf("%w: got %d", ErrSummaryLineCount, len(s.Lines))
	}
	for _, line := range s.Lines {
		if strings.TrimSpace(line) == "" {
			return ErrSummaryLineCount
		}
	}
	if strings.TrimSpace(s.Full) == "" {
		return ErrEmptySummaryFull
	}
	return nil
}

// Term is an entry in the globally deduplicated term dictionary. The
// dictionary is keyed by the normalized form; a definition is written once
// and never overwritten once non-empty (first writer wins).
type Term struct {
	ID         int64     `json:"id"`
	Normalized string    `json:"normalized"`
	Display    string    `json:"display"`
	Definition string    `json:"definition"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizeTerm produces the dictionary key for a raw term string.
func NormalizeTerm(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// NewTerm creates a dictionary entry from raw provider output.
func NewTerm(display, definition string) (*Term, error) {
	normalized := NormalizeTerm(display)
	if normalized == "" {
		return nil, ErrEmptyTermText
	}

	return &Term{
		Normalized: normalized,
		Display:    strings.TrimSpace(display),
		Definition: strings.TrimSpace(definition),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// TermCard links a job's result to a dictionary term with the article
// excerpt that motivated it. Order is 1..3 and unique per job.
type TermCard struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	ArticleID int64     `json:"article_id"`
	Order     int       `json:"card_order"`
	TermID    int64     `json:"term_id"`
	Highlight string    `json:"highlight"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the shape rules for a term card.
func (c *TermCard) Validate() error {
	if c.Order < 1 || c.Order > TermCardCount {
		return fmt.Errorf("%w: got %d", ErrInvalidCardOrder, c.Order)
	}
	if c.TermID <= 0 || strings.TrimSpace(c.Highlight) == "" {
		return ErrEmptyTermCardField
	}
	return nil
}

// TermCardDetail is a term card joined with its dictionary entry, as needed
// by the QUIZ_TERM stage and the artifact readiness surface.
type TermCardDetail struct {
	TermCard
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Insight is the persisted INSIGHT stage result. The payload is an opaque
// structured blob; its internal shape is enforced when it is produced.
type Insight struct {
	ID        int64           `json:"id"`
	JobID     int64           `json:"job_id"`
	ArticleID int64           `json:"article_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks that the insight carries a payload.
func (i *Insight) Validate() error {
	if len(i.Payload) == 0 {
		return ErrEmptyPayload
	}
	return nil
}

// QuizKind distinguishes the two quiz artifact families.
type QuizKind string

// Possible quiz kinds
const (
	QuizKindContent QuizKind = "CONTENT"
	QuizKindTerm    QuizKind = "TERM"
)

// QuizKindForJobType maps a quiz job type to the quiz kind it produces.
func QuizKindForJobType(t JobType) (QuizKind, bool) {
	switch t {
	case JobTypeQuizContent:
		return QuizKindContent, true
	case JobTypeQuizTerm:
		return QuizKindTerm, true
	}
	return "", false
}

// QuizSet is the persisted result of a quiz stage.
type QuizSet struct {
	ID        int64           `json:"id"`
	JobID     int64           `json:"job_id"`
	ArticleID int64           `json:"article_id"`
	Kind      QuizKind        `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks that the quiz set has a known kind and a payload.
func (q *QuizSet) Validate() error {
	if q.Kind != QuizKindContent && q.Kind != QuizKindTerm {
		return fmt.Errorf("%w: %q", ErrInvalidQuizKind, q.Kind)
	}
	if len(q.Payload) == 0 {
		return ErrEmptyPayload
	}
	return nil
}

// ArtifactStatus reports which artifact families exist for an article.
// The readiness surface exposes either the full bundle or a distinct
// "not ready" signal, never partial data.
type ArtifactStatus struct {
	HasSummary     bool `json:"has_summary"`
	TermCardCount  int  `json:"term_card_count"`
	HasInsight     bool `json:"has_insight"`
	HasQuizContent bool `json:"has_quiz_content"`
	HasQuizTerm    bool `json:"has_quiz_term"`
}

// Ready reports whether all four artifact families are present.
func (s ArtifactStatus) Ready() bool {
	return len(s.Missing()) == 0
}

// Missing lists the artifact families that are not yet present.
func (s ArtifactStatus) Missing() []string {
	var missing []string
	if !s.HasSummary {
		missing = append(missing, "summary")
	}
	if s.TermCardCount < TermCardCount {
		missing = append(missing, "term_cards")
	}
	if !s.HasInsight {
		missing = append(missing, "insight")
	}
	if !s.HasQuizContent {
		missing = append(missing, "quiz_content")
	}
	if !s.HasQuizTerm {
		missing = append(missing, "quiz_term")
	}
	return missing
}
