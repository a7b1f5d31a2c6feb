package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/briefly-api/internal/api"
	apimiddleware "github.com/phrazzld/briefly-api/internal/api/middleware"
	"github.com/phrazzld/briefly-api/internal/api/shared"
	"github.com/phrazzld/briefly-api/internal/config"
	"github.com/phrazzld/briefly-api/internal/jobs"
	"github.com/phrazzld/briefly-api/internal/store"
)

// setupRouter builds the HTTP routing table: the public artifact surface,
// the crawler entry point, and the token-guarded admin operations.
func setupRouter(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	enqueuer *jobs.Enqueuer,
	admin *jobs.Admin,
	articles store.ArticleStore,
	artifacts store.ArtifactStore,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	articleHandler := api.NewArticleHandler(enqueuer, articles, artifacts, logger)
	adminHandler := api.NewAdminHandler(admin, logger)

	r.Get("/api/articles/{articleID}/artifacts", articleHandler.GetArtifacts)

	// The crawler and the admin CLI share the internal token.
	r.Group(func(r chi.Router) {
		r.Use(apimiddleware.AdminAuth(cfg.Admin.Token))
		r.Post("/internal/articles/{articleID}/summary-job", articleHandler.EnqueueSummaryJob)
		r.Post("/admin/jobs/{jobID}/resume", adminHandler.ResumeJob)
		r.Post("/admin/jobs/resume", adminHandler.ResumeByReason)
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			shared.RespondWithErrorAndLog(w, req, http.StatusServiceUnavailable,
				"Database unavailable", err)
			return
		}
		shared.RespondWithJSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
