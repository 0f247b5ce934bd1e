package handler

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/airyra/taskboard/internal/api/middleware"
	"github.com/airyra/taskboard/internal/api/request"
	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/service"
)

// TaskHandler handles task CRUD operations.
type TaskHandler struct {
	db *sql.DB
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(db *sql.DB) *TaskHandler {
	return &TaskHandler{db: db}
}

// CreateTask handles POST /projects/department-tasks/.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTaskRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, domain.NewValidationError([]string{"Invalid JSON body"}))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		response.Error(w, domain.NewValidationError(errors))
		return
	}

	svc := service.NewTaskService(h.db)
	task, err := svc.Create(req.Input(), middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, task)
}

// BulkCreate handles POST /projects/department-tasks/bulk_create/.
func (h *TaskHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req request.BulkCreateRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, domain.NewValidationError([]string{"Invalid JSON body"}))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		response.Error(w, domain.NewValidationError(errors))
		return
	}

	parent, _ := req.Parent.Int64()
	svc := service.NewTaskService(h.db)
	tasks, err := svc.BulkCreate(parent, req.Nodes(), middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, response.BulkCreateResponse{
		Message: fmt.Sprintf("Created %d tasks", len(tasks)),
		Tasks:   tasks,
	})
}

// GetTask handles GET /projects/department-tasks/{id}/.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	task, err := service.NewTaskService(h.db).Get(id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, task)
}

// ListTasks handles GET /projects/department-tasks/.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, errors := request.ParseTaskFilter(r)
	if len(errors) > 0 {
		response.Error(w, domain.NewValidationError(errors))
		return
	}

	tasks, total, err := service.NewTaskService(h.db).List(filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Paginated(w, tasks, total)
}

// UpdateTask handles PATCH /projects/department-tasks/{id}/.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var body map[string]json.RawMessage
	if err := request.DecodeJSON(r, &body); err != nil {
		response.Error(w, domain.NewValidationError([]string{"Invalid JSON body"}))
		return
	}

	patch, errors := request.ParseTaskPatch(body)
	if len(errors) > 0 {
		response.Error(w, domain.NewValidationError(errors))
		return
	}

	task, err := service.NewTaskService(h.db).Patch(id, patch, middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, task)
}

// taskIDParam reads the {id} path parameter. Ids that cannot name a task
// answer 404.
func taskIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, ok := request.ParseID(raw)
	if !ok {
		response.Error(w, domain.NewTaskNotFoundError(domain.ParseTaskID(raw)))
		return 0, false
	}
	return id, true
}

// idParam reads a numeric path parameter of a non-task resource.
func idParam(w http.ResponseWriter, r *http.Request, name string, notFound func(int64) *domain.DomainError) (int64, bool) {
	id, ok := request.ParseID(chi.URLParam(r, name))
	if !ok {
		response.Error(w, notFound(0))
		return 0, false
	}
	return id, true
}
