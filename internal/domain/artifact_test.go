package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSummary(t *testing.T) {
	s, err := NewSummary(1, 2, []string{"a", "b", "c"}, "full text")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.JobID)
	assert.Equal(t, int64(2), s.ArticleID)
}

func TestSummaryValidate(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		full    string
		wantErr error
	}{
		{"two lines", []string{"a", "b"}, "full", ErrSummaryLineCount},
		{"four lines", []string{"a", "b", "c", "d"}, "full", ErrSummaryLineCount},
		{"blank line", []string{"a", "  ", "c"}, "full", ErrSummaryLineCount},
		{"blank full", []string{"a", "b", "c"}, " ", ErrEmptySummaryFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSummary(1, 2, tt.lines, tt.full)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeTerm(t *testing.T) {
	assert.Equal(t, "quantitative easing", NormalizeTerm("  Quantitative   Easing "))
	assert.Equal(t, "gdp", NormalizeTerm("GDP"))
	assert.Equal(t, "", NormalizeTerm("   "))
}

func TestNewTermEmpty(t *testing.T) {
	_, err := NewTerm("  ", "definition")
	assert.ErrorIs(t, err, ErrEmptyTermText)
}

func TestTermCardValidate(t *testing.T) {
	card := TermCard{JobID: 1, ArticleID: 2, Order: 1, TermID: 3, Highlight: "excerpt"}
	require.NoError(t, card.Validate())

	card.Order = 4
	assert.ErrorIs(t, card.Validate(), ErrInvalidCardOrder)

	card.Order = 2
	card.Highlight = ""
	assert.ErrorIs(t, card.Validate(), ErrEmptyTermCardField)
}

func TestQuizSetValidate(t *testing.T) {
	q := QuizSet{JobID: 1, ArticleID: 2, Kind: QuizKindContent, Payload: json.RawMessage(`{}`)}
	require.NoError(t, q.Validate())

	q.Kind = "TRIVIA"
	assert.ErrorIs(t, q.Validate(), ErrInvalidQuizKind)

	q.Kind = QuizKindTerm
	q.Payload = nil
	assert.ErrorIs(t, q.Validate(), ErrEmptyPayload)
}

func TestQuizKindForJobType(t *testing.T) {
	kind, ok := QuizKindForJobType(JobTypeQuizContent)
	require.True(t, ok)
	assert.Equal(t, QuizKindContent, kind)

	kind, ok = QuizKindForJobType(JobTypeQuizTerm)
	require.True(t, ok)
	assert.Equal(t, QuizKindTerm, kind)

	_, ok = QuizKindForJobType(JobTypeSummary)
	assert.False(t, ok)
}

func TestArtifactStatusMissing(t *testing.T) {
	status := ArtifactStatus{}
	assert.False(t, status.Ready())
	assert.Equal(t,
		[]string{"summary", "term_cards", "insight", "quiz_content", "quiz_term"},
		status.Missing())

	status = ArtifactStatus{
		HasSummary:     true,
		TermCardCount:  3,
		HasInsight:     true,
		HasQuizContent: true,
		HasQuizTerm:    true,
	}
	assert.True(t, status.Ready())
	assert.Empty(t, status.Missing())

	status.TermCardCount = 2
	assert.False(t, status.Ready())
	assert.Equal(t, []string{"term_cards"}, status.Missing())
}
