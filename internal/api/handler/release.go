package handler

import (
	"database/sql"
	"io"
	"net/http"
	"strings"

	"github.com/airyra/taskboard/internal/api/middleware"
	"github.com/airyra/taskboard/internal/api/request"
	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/service"
)

// ReleaseHandler handles drawing releases and their revision workflow.
type ReleaseHandler struct {
	db *sql.DB
}

// NewReleaseHandler creates a new ReleaseHandler.
func NewReleaseHandler(db *sql.DB) *ReleaseHandler {
	return &ReleaseHandler{db: db}
}

// CreateRelease handles POST /projects/drawing-releases/.
func (h *ReleaseHandler) CreateRelease(w http.ResponseWriter, r *http.Request) {
	var req request.CreateReleaseRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, domain.NewValidationError([]string{"Invalid JSON body"}))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		response.Error(w, domain.NewValidationError(errors))
		return
	}

	taskID, _ := req.Task.Int64()
	rel, err := service.NewReleaseService(h.db).Create(service.CreateReleaseInput{
		Task:     taskID,
		JobOrder: strings.TrimSpace(req.JobOrder),
		Form:     req.ReleaseForm,
	}, middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, rel)
}

// CurrentRelease handles GET /projects/drawing-releases/current/?job_order=.
func (h *ReleaseHandler) CurrentRelease(w http.ResponseWriter, r *http.Request) {
	jobOrder := strings.TrimSpace(r.URL.Query().Get("job_order"))
	if jobOrder == "" {
		response.Error(w, domain.NewValidationError([]string{"job_order: This field is required."}))
		return
	}

	rel, err := service.NewReleaseService(h.db).Current(jobOrder)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, rel)
}

type revisionFunc func(svc *service.ReleaseService, id int64, r *http.Request, agentID string) (*service.RevisionOutcome, error)

func (h *ReleaseHandler) revision(fn revisionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", domain.NewReleaseNotFoundError)
		if !ok {
			return
		}

		out, err := fn(service.NewReleaseService(h.db), id, r, middleware.ActorFrom(r.Context()))
		if err != nil {
			response.Error(w, err)
			return
		}

		response.OK(w, response.RevisionResponse{
			Status:     "success",
			Message:    out.Message,
			Release:    out.Release,
			NewRelease: out.NewRelease,
		})
	}
}

// decodeOptional decodes an optional JSON body. An empty body leaves v
// untouched.
func decodeOptional(r *http.Request, v interface{}) error {
	if err := request.DecodeJSON(r, v); err != nil && err != io.EOF {
		return domain.NewValidationError([]string{"Invalid JSON body"})
	}
	return nil
}

func reason(r *http.Request) (string, error) {
	var req request.ReasonRequest
	if err := decodeOptional(r, &req); err != nil {
		return "", err
	}
	return req.Reason, nil
}

// RequestRevision handles POST .../{id}/request_revision/.
func (h *ReleaseHandler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	h.revision(func(svc *service.ReleaseService, id int64, r *http.Request, agentID string) (*service.RevisionOutcome, error) {
		text, err := reason(r)
		if err != nil {
			return nil, err
		}
		return svc.RequestRevision(id, text, agentID)
	})(w, r)
}

// ApproveRevision handles POST .../{id}/approve_revision/.
func (h *ReleaseHandler) ApproveRevision(w http.ResponseWriter, r *http.Request) {
	h.revision(func(svc *service.ReleaseService, id int64, r *http.Request, agentID string) (*service.RevisionOutcome, error) {
		var req request.ApproveRevisionRequest
		if err := decodeOptional(r, &req); err != nil {
			return nil, err
		}
		return svc.ApproveRevision(id, req.AssignedTo, agentID)
	})(w, r)
}

// RejectRevision handles POST .../{id}/reject_revision/.
func (h *ReleaseHandler) RejectRevision(w http.ResponseWriter, r *http.Request) {
	h.revision(func(svc *service.ReleaseService, id int64, r *http.Request, agentID string) (*service.RevisionOutcome, error) {
		text, err := reason(r)
		if err != nil {
			return nil, err
		}
		return svc.RejectRevision(id, text, agentID)
	})(w, r)
}

// SelfStartRevision handles POST .../{id}/self_revision/.
func (h *ReleaseHandler) SelfStartRevision(w http.ResponseWriter, r *http.Request) {
	h.revision(func(svc *service.ReleaseService, id int64, r *http.Request, agentID string) (*service.RevisionOutcome, error) {
		text, err := reason(r)
		if err != nil {
			return nil, err
		}
		return svc.SelfStartRevision(id, text, agentID)
	})(w, r)
}

// CompleteRevision handles POST .../{id}/complete_revision/.
func (h *ReleaseHandler) CompleteRevision(w http.ResponseWriter, r *http.Request) {
	h.revision(func(svc *service.ReleaseService, id int64, r *http.Request, agentID string) (*service.RevisionOutcome, error) {
		var form domain.ReleaseForm
		if err := request.DecodeJSON(r, &form); err != nil {
			return nil, domain.NewValidationError([]string{"Invalid JSON body"})
		}
		return svc.CompleteRevision(id, form, agentID)
	})(w, r)
}
