package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/jobs"
	"github.com/phrazzld/briefly-api/internal/store"
)

// fakeResumer records resume calls and returns canned results.
type fakeResumer struct {
	resumeErr    error
	resumedCount int64
	byReasonErr  error

	resumedIDs []int64
	reasons    []domain.ResumeReason
}

func (f *fakeResumer) ResumeJob(ctx context.Context, id int64) error {
	f.resumedIDs = append(f.resumedIDs, id)
	return f.resumeErr
}

func (f *fakeResumer) ResumeByReason(ctx context.Context, reason domain.ResumeReason) (int64, error) {
	f.reasons = append(f.reasons, reason)
	if f.byReasonErr != nil {
		return 0, f.byReasonErr
	}
	return f.resumedCount, nil
}

func newAdminRouter(h *AdminHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/admin/jobs/{jobID}/resume", h.ResumeJob)
	r.Post("/admin/jobs/resume", h.ResumeByReason)
	return r
}

func TestAdminHandler_ResumeJob(t *testing.T) {
	t.Parallel()

	resumer := &fakeResumer{}
	router := newAdminRouter(NewAdminHandler(resumer, nil))

	req := httptest.NewRequest(http.MethodPost, "/admin/jobs/42/resume", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{42}, resumer.resumedIDs)
}

func TestAdminHandler_ResumeJob_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		resumeErr  error
		wantStatus int
	}{
		{name: "not found", resumeErr: store.ErrJobNotFound, wantStatus: http.StatusNotFound},
		{name: "not suspended", resumeErr: domain.ErrInvalidTransition, wantStatus: http.StatusConflict},
		{name: "store failure", resumeErr: assert.AnError, wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router := newAdminRouter(NewAdminHandler(&fakeResumer{resumeErr: tc.resumeErr}, nil))

			req := httptest.NewRequest(http.MethodPost, "/admin/jobs/42/resume", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestAdminHandler_ResumeJob_BadID(t *testing.T) {
	t.Parallel()

	resumer := &fakeResumer{}
	router := newAdminRouter(NewAdminHandler(resumer, nil))

	req := httptest.NewRequest(http.MethodPost, "/admin/jobs/nope/resume", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, resumer.resumedIDs)
}

func TestAdminHandler_ResumeByReason(t *testing.T) {
	t.Parallel()

	resumer := &fakeResumer{resumedCount: 3}
	router := newAdminRouter(NewAdminHandler(resumer, nil))

	req := httptest.NewRequest(http.MethodPost, "/admin/jobs/resume",
		strings.NewReader(`{"reason":"QUOTA"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ResumeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Resumed)
	assert.Equal(t, []domain.ResumeReason{domain.ResumeReasonQuota}, resumer.reasons)
}

func TestAdminHandler_ResumeByReason_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		byReasonErr error
	}{
		{name: "malformed body", body: `{"reason":`},
		{name: "missing reason", body: `{}`},
		{name: "unknown reason", body: `{"reason":"EVERYTHING"}`, byReasonErr: jobs.ErrUnknownResumeReason},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router := newAdminRouter(NewAdminHandler(&fakeResumer{byReasonErr: tc.byReasonErr}, nil))

			req := httptest.NewRequest(http.MethodPost, "/admin/jobs/resume",
				strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
