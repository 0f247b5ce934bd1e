package handler

import (
	"database/sql"
	"io"
	"net/http"

	"github.com/airyra/taskboard/internal/api/middleware"
	"github.com/airyra/taskboard/internal/api/request"
	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/service"
)

// TransitionHandler handles task status transitions.
type TransitionHandler struct {
	db *sql.DB
}

// NewTransitionHandler creates a new TransitionHandler.
func NewTransitionHandler(db *sql.DB) *TransitionHandler {
	return &TransitionHandler{db: db}
}

type transitionFunc func(svc *service.TransitionService, id int64, agentID string) (*domain.Task, error)

func (h *TransitionHandler) transition(message string, fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := taskIDParam(w, r)
		if !ok {
			return
		}

		task, err := fn(service.NewTransitionService(h.db), id, middleware.ActorFrom(r.Context()))
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Action(w, message, task)
	}
}

// StartTask handles POST /projects/department-tasks/{id}/start/.
func (h *TransitionHandler) StartTask(w http.ResponseWriter, r *http.Request) {
	h.transition("Task started", (*service.TransitionService).Start)(w, r)
}

// CompleteTask handles POST /projects/department-tasks/{id}/complete/.
func (h *TransitionHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.transition("Task completed", (*service.TransitionService).Complete)(w, r)
}

// UncompleteTask handles POST /projects/department-tasks/{id}/uncomplete/.
func (h *TransitionHandler) UncompleteTask(w http.ResponseWriter, r *http.Request) {
	h.transition("Task reopened", (*service.TransitionService).Uncomplete)(w, r)
}

// SkipTask handles POST /projects/department-tasks/{id}/skip/.
func (h *TransitionHandler) SkipTask(w http.ResponseWriter, r *http.Request) {
	h.transition("Task skipped", (*service.TransitionService).Skip)(w, r)
}

// UnskipTask handles POST /projects/department-tasks/{id}/unskip/.
func (h *TransitionHandler) UnskipTask(w http.ResponseWriter, r *http.Request) {
	h.transition("Task restored", (*service.TransitionService).Unskip)(w, r)
}

// UnblockTask handles POST /projects/department-tasks/{id}/unblock/.
func (h *TransitionHandler) UnblockTask(w http.ResponseWriter, r *http.Request) {
	h.transition("Task unblocked", (*service.TransitionService).Unblock)(w, r)
}

// BlockTask handles POST /projects/department-tasks/{id}/block/.
func (h *TransitionHandler) BlockTask(w http.ResponseWriter, r *http.Request) {
	var req request.ReasonRequest
	if err := request.DecodeJSON(r, &req); err != nil && err != io.EOF {
		response.Error(w, domain.NewValidationError([]string{"Invalid JSON body"}))
		return
	}

	h.transition("Task blocked", func(svc *service.TransitionService, id int64, agentID string) (*domain.Task, error) {
		return svc.Block(id, req.Reason, agentID)
	})(w, r)
}
