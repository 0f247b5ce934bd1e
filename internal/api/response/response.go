// Package response writes task service responses.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/airyra/taskboard/internal/domain"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains error details.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Page is a paginated list.
type Page struct {
	Count   int         `json:"count"`
	Results interface{} `json:"results"`
}

// ActionResponse is the body of a lifecycle action.
type ActionResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Task    *domain.Task `json:"task"`
}

// RevisionResponse is the body of a revision workflow step.
type RevisionResponse struct {
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Release    *domain.Release `json:"release,omitempty"`
	NewRelease *domain.Release `json:"new_release,omitempty"`
}

// BulkCreateResponse is the body of a bulk subtask creation.
type BulkCreateResponse struct {
	Message string         `json:"message"`
	Tasks   []*domain.Task `json:"tasks"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends an error response based on the domain error.
func Error(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		domainErr = domain.NewInternalError(err)
	}

	status := mapErrorCodeToStatus(domainErr.Code)
	JSON(w, status, ErrorResponse{
		Error: ErrorBody{
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Context: domainErr.Context,
		},
	})
}

// Paginated sends a paginated JSON response.
func Paginated(w http.ResponseWriter, results interface{}, count int) {
	JSON(w, http.StatusOK, Page{Count: count, Results: results})
}

// Action sends the result of a lifecycle action.
func Action(w http.ResponseWriter, message string, task *domain.Task) {
	JSON(w, http.StatusOK, ActionResponse{Status: "success", Message: message, Task: task})
}

// Created sends a 201 Created response with JSON body.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response with JSON body.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func mapErrorCodeToStatus(code domain.ErrorCode) int {
	switch code {
	case domain.ErrCodeTaskNotFound, domain.ErrCodeReleaseNotFound, domain.ErrCodeReviewNotFound,
		domain.ErrCodePlanningItemNotFound, domain.ErrCodeJobOrderNotFound:
		return http.StatusNotFound
	case domain.ErrCodeInvalidTransition, domain.ErrCodeValidationFailed, domain.ErrCodeCannotStart,
		domain.ErrCodeQCApprovalRequired, domain.ErrCodeActionNotAllowed:
		return http.StatusBadRequest
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
