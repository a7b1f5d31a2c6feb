package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/phrazzld/briefly-api/internal/api/shared"
)

// AdminTokenHeader is the header carrying the shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

// AdminAuth guards the operator surface with a shared-secret header. The
// comparison is constant time so the token cannot be probed byte by byte.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(AdminTokenHeader)
			if presented == "" {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing admin token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				shared.RespondWithError(w, r, http.StatusForbidden, "Invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
