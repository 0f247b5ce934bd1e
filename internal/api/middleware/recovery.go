package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
)

// Recovery middleware catches panics and returns a 500 error.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered: %v request_id=%s\n%s", err, chimiddleware.GetReqID(r.Context()), debug.Stack())
				response.Error(w, domain.NewInternalError(nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
