package handler

import (
	"database/sql"
	"net/http"

	"github.com/airyra/taskboard/internal/api/request"
	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/service"
)

// AuditHandler handles audit log operations.
type AuditHandler struct {
	db *sql.DB
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(db *sql.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// GetTaskHistory handles GET /projects/department-tasks/{id}/history/.
func (h *AuditHandler) GetTaskHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	entries, err := service.NewAuditService(h.db).GetTaskHistory(id)
	if err != nil {
		response.Error(w, err)
		return
	}

	if entries == nil {
		entries = []domain.AuditEntry{}
	}

	response.OK(w, entries)
}

// QueryAuditLog handles GET /audit/.
func (h *AuditHandler) QueryAuditLog(w http.ResponseWriter, r *http.Request) {
	pagination := request.ParsePagination(r)
	queryParams := request.ParseAuditQuery(r)

	entries, total, err := service.NewAuditService(h.db).Query(service.QueryInput{
		Action:    queryParams.Action,
		AgentID:   queryParams.AgentID,
		StartTime: queryParams.StartTime,
		EndTime:   queryParams.EndTime,
		Page:      pagination.Page,
		PerPage:   pagination.PerPage,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	if entries == nil {
		entries = []domain.AuditEntry{}
	}

	response.Paginated(w, entries, total)
}
