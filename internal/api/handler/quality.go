package handler

import (
	"database/sql"
	"net/http"

	"github.com/airyra/taskboard/internal/api/middleware"
	"github.com/airyra/taskboard/internal/api/request"
	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/service"
)

// QCHandler handles quality-control reviews.
type QCHandler struct {
	db *sql.DB
}

// NewQCHandler creates a new QCHandler.
func NewQCHandler(db *sql.DB) *QCHandler {
	return &QCHandler{db: db}
}

// ListReviews handles GET /quality-control/qc-reviews/?task=.
func (h *QCHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("task")
	taskID, ok := request.ParseID(raw)
	if !ok {
		response.Error(w, domain.NewValidationError([]string{"task: expected a task id"}))
		return
	}

	reviews, err := service.NewQCService(h.db).List(taskID)
	if err != nil {
		response.Error(w, err)
		return
	}

	if reviews == nil {
		reviews = []*domain.QCReview{}
	}

	response.Paginated(w, reviews, len(reviews))
}

// SubmitReview handles POST /quality-control/qc-reviews/submit/.
func (h *QCHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitQCRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, domain.NewValidationError([]string{"Invalid JSON body"}))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		response.Error(w, domain.NewValidationError(errors))
		return
	}

	taskID, _ := req.TaskID.Int64()
	review, err := service.NewQCService(h.db).Submit(taskID, req.PartData, middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, review)
}

// DecideReview handles POST /quality-control/qc-reviews/{id}/decide/.
func (h *QCHandler) DecideReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", domain.NewReviewNotFoundError)
	if !ok {
		return
	}

	var req request.DecideQCRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, domain.NewValidationError([]string{"Invalid JSON body"}))
		return
	}

	review, err := service.NewQCService(h.db).Decide(id, req.Approve, req.Comment, middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, review)
}
