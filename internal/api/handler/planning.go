package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/airyra/taskboard/internal/api/middleware"
	"github.com/airyra/taskboard/internal/api/request"
	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/service"
)

// PlanningHandler handles planning items and job orders.
type PlanningHandler struct {
	db *sql.DB
}

// NewPlanningHandler creates a new PlanningHandler.
func NewPlanningHandler(db *sql.DB) *PlanningHandler {
	return &PlanningHandler{db: db}
}

// CreateItem handles POST /planning/items/.
func (h *PlanningHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req request.PlanningItemRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, domain.NewValidationError([]string{"Invalid JSON body"}))
		return
	}

	code := strings.TrimSpace(req.ItemCode)
	if code == "" {
		response.Error(w, domain.NewValidationError([]string{"item_code: This field is required."}))
		return
	}

	item, err := service.NewPlanningService(h.db).CreateItem(code, strings.TrimSpace(req.ItemName))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, item)
}

// MarkDelivered handles POST /planning/items/{id}/mark_delivered/.
func (h *PlanningHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", domain.NewPlanningItemNotFoundError)
	if !ok {
		return
	}

	item, err := service.NewPlanningService(h.db).MarkDelivered(id, middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, item)
}

// GetJobOrder handles GET /projects/job-orders/{job_no}/.
func (h *PlanningHandler) GetJobOrder(w http.ResponseWriter, r *http.Request) {
	jo, err := service.NewPlanningService(h.db).JobOrder(chi.URLParam(r, "job_no"))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, jo)
}
