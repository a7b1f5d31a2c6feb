package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	const token = "0123456789abcdef0123456789abcdef"
	var reached bool
	handler := AdminAuth(token)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing token is unauthorized", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodPost, "/admin/jobs/1/resume", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, reached)
	})

	t.Run("wrong token is forbidden", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodPost, "/admin/jobs/1/resume", nil)
		req.Header.Set(AdminTokenHeader, "wrong-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, reached)
	})

	t.Run("correct token passes through", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodPost, "/admin/jobs/1/resume", nil)
		req.Header.Set(AdminTokenHeader, token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, reached)
	})
}
