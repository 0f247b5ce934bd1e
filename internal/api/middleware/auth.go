package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
)

// BearerToken rejects requests that do not carry the token as a bearer
// credential. An empty token disables the check.
func BearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				response.Error(w, domain.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
