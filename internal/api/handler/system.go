package handler

import (
	"net/http"

	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping() error
}

// SystemHandler handles system-level operations.
type SystemHandler struct {
	db Pinger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db Pinger) *SystemHandler {
	return &SystemHandler{db: db}
}

// Health handles GET /health/.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		response.Error(w, domain.NewInternalError(err))
		return
	}
	response.OK(w, map[string]string{"status": "ok"})
}

// Choices handles GET /projects/department-tasks/status_choices/ and
// department_choices/.
func Choices[T ~string](values []T, label func(T) string) http.HandlerFunc {
	type choice struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]choice, 0, len(values))
		for _, v := range values {
			out = append(out, choice{Value: string(v), Label: label(v)})
		}
		response.OK(w, out)
	}
}
