// Package api implements the HTTP surface: the crawler entry point that
// starts an article's enrichment, the artifact readiness endpoint, and the
// admin resume operations.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/briefly-api/internal/api/shared"
	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/store"
)

// SummaryEnqueuer starts the enrichment pipeline for an article.
type SummaryEnqueuer interface {
	EnqueueSummary(ctx context.Context, articleID int64) (store.EnqueueOutcome, error)
}

// ArticleHandler serves the crawler entry point and the artifact readiness
// surface.
type ArticleHandler struct {
	enqueuer  SummaryEnqueuer
	articles  store.ArticleStore
	artifacts store.ArtifactStore
	logger    *slog.Logger
}

// NewArticleHandler creates a new ArticleHandler.
func NewArticleHandler(enqueuer SummaryEnqueuer, articles store.ArticleStore, artifacts store.ArtifactStore, logger *slog.Logger) *ArticleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArticleHandler{
		enqueuer:  enqueuer,
		articles:  articles,
		artifacts: artifacts,
		logger:    logger,
	}
}

// EnqueueSummaryResponse is the response for the summary-job endpoint.
type EnqueueSummaryResponse struct {
	JobID     int64  `json:"job_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ArtifactBundleResponse is the full enrichment bundle for a ready article.
type ArtifactBundleResponse struct {
	ArticleID   int64                    `json:"article_id"`
	Summary     *domain.Summary          `json:"summary"`
	TermCards   []*domain.TermCardDetail `json:"term_cards"`
	Insight     json.RawMessage          `json:"insight"`
	QuizContent json.RawMessage          `json:"quiz_content"`
	QuizTerm    json.RawMessage          `json:"quiz_term"`
}

// NotReadyResponse reports which artifact families are still missing.
type NotReadyResponse struct {
	Status  string   `json:"status"`
	Missing []string `json:"missing"`
}

// EnqueueSummaryJob handles POST /internal/articles/{articleID}/summary-job.
// It creates the root SUMMARY job for the article; a repeat call for the
// same article reports the existing job instead of failing.
func (h *ArticleHandler) EnqueueSummaryJob(w http.ResponseWriter, r *http.Request) {
	articleID, ok := articleIDParam(w, r)
	if !ok {
		return
	}

	if _, err := h.articles.GetByID(r.Context(), articleID); err != nil {
		if errors.Is(err, store.ErrArticleNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Article not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to look up article", err)
		return
	}

	outcome, err := h.enqueuer.EnqueueSummary(r.Context(), articleID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to enqueue summary job", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueueSummaryResponse{
		JobID:     outcome.Job.ID,
		Status:    string(outcome.Job.Status),
		Duplicate: outcome.Duplicate,
	})
}

// GetArtifacts handles GET /api/articles/{articleID}/artifacts. It returns
// the complete bundle once every family exists, and a 409 with the missing
// families until then. Partial bundles are never served.
func (h *ArticleHandler) GetArtifacts(w http.ResponseWriter, r *http.Request) {
	articleID, ok := articleIDParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	status, err := h.artifacts.ArtifactStatus(ctx, articleID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to check artifact status", err)
		return
	}
	if !status.Ready() {
		shared.RespondWithJSON(w, r, http.StatusConflict, NotReadyResponse{
			Status:  "not_ready",
			Missing: status.Missing(),
		})
		return
	}

	summary, err := h.artifacts.GetLatestSummaryByArticle(ctx, articleID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load summary", err)
		return
	}
	cards, err := h.artifacts.ListTermCardsByArticle(ctx, articleID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load term cards", err)
		return
	}
	insight, err := h.artifacts.GetInsightByArticle(ctx, articleID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load insight", err)
		return
	}
	quizContent, err := h.artifacts.GetQuizSetByArticle(ctx, articleID, domain.QuizKindContent)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load content quiz", err)
		return
	}
	quizTerm, err := h.artifacts.GetQuizSetByArticle(ctx, articleID, domain.QuizKindTerm)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load term quiz", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ArtifactBundleResponse{
		ArticleID:   articleID,
		Summary:     summary,
		TermCards:   cards,
		Insight:     insight.Payload,
		QuizContent: quizContent.Payload,
		QuizTerm:    quizTerm.Payload,
	})
}

// articleIDParam parses the articleID URL parameter, responding 400 itself
// when the value is not a positive integer.
func articleIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "articleID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid article ID")
		return 0, false
	}
	return id, true
}
