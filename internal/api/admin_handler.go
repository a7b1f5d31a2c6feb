package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/briefly-api/internal/api/shared"
	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/jobs"
	"github.com/phrazzld/briefly-api/internal/store"
)

// JobResumer is the admin operation set over suspended jobs.
type JobResumer interface {
	ResumeJob(ctx context.Context, id int64) error
	ResumeByReason(ctx context.Context, reason domain.ResumeReason) (int64, error)
}

// AdminHandler serves the operator surface for suspended jobs.
type AdminHandler struct {
	resumer JobResumer
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(resumer JobResumer, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{resumer: resumer, logger: logger}
}

// ResumeByReasonRequest is the body for the batch resume endpoint.
type ResumeByReasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ResumeResponse reports the outcome of a resume operation.
type ResumeResponse struct {
	Resumed int64 `json:"resumed"`
}

// ResumeJob handles POST /admin/jobs/{jobID}/resume.
func (h *AdminHandler) ResumeJob(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "jobID")
	jobID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || jobID <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	if err := h.resumer.ResumeJob(r.Context(), jobID); err != nil {
		switch {
		case errors.Is(err, store.ErrJobNotFound):
			shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			shared.RespondWithError(w, r, http.StatusConflict, "Job is not suspended")
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to resume job", err)
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ResumeResponse{Resumed: 1})
}

// ResumeByReason handles POST /admin/jobs/resume. Zero matching jobs is a
// valid outcome, not an error.
func (h *AdminHandler) ResumeByReason(w http.ResponseWriter, r *http.Request) {
	var req ResumeByReasonRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Reason is required")
		return
	}

	resumed, err := h.resumer.ResumeByReason(r.Context(), domain.ResumeReason(req.Reason))
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownResumeReason) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown resume reason")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to resume jobs", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ResumeResponse{Resumed: resumed})
}
