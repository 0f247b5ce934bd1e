package domain

import (
	"errors"
	"fmt"
)

// ErrStaleResponse reports a response that arrived after the state it was
// requested for had been replaced. Callers drop it without surfacing it.
var ErrStaleResponse = errors.New("stale response discarded")

// ErrorCode represents a domain error code.
type ErrorCode string

const (
	ErrCodeTaskNotFound         ErrorCode = "TASK_NOT_FOUND"
	ErrCodeReleaseNotFound      ErrorCode = "RELEASE_NOT_FOUND"
	ErrCodeReviewNotFound       ErrorCode = "REVIEW_NOT_FOUND"
	ErrCodePlanningItemNotFound ErrorCode = "PLANNING_ITEM_NOT_FOUND"
	ErrCodeJobOrderNotFound     ErrorCode = "JOB_ORDER_NOT_FOUND"
	ErrCodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	ErrCodeCannotStart          ErrorCode = "CANNOT_START"
	ErrCodeQCApprovalRequired   ErrorCode = "QC_APPROVAL_REQUIRED"
	ErrCodeActionNotAllowed     ErrorCode = "ACTION_NOT_ALLOWED"
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeServerError          ErrorCode = "SERVER_ERROR"
	ErrCodeInternalError        ErrorCode = "INTERNAL_ERROR"
)

// DomainError represents an error in the domain layer with context.
type DomainError struct {
	Code    ErrorCode
	Message string
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	return e.Message
}

// Details returns the validation details carried by the error, if any.
func (e *DomainError) Details() []string {
	switch v := e.Context["details"].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, d := range v {
			out = append(out, fmt.Sprint(d))
		}
		return out
	}
	return nil
}

// IsCode reports whether err is a DomainError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

// NewTaskNotFoundError creates a task not found error.
func NewTaskNotFoundError(taskID TaskID) *DomainError {
	return &DomainError{
		Code:    ErrCodeTaskNotFound,
		Message: fmt.Sprintf("Task %s not found", taskID),
		Context: map[string]interface{}{"id": taskID.String()},
	}
}

// NewReleaseNotFoundError creates a release not found error.
func NewReleaseNotFoundError(releaseID int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeReleaseNotFound,
		Message: fmt.Sprintf("Release %d not found", releaseID),
		Context: map[string]interface{}{"id": releaseID},
	}
}

// NewReviewNotFoundError creates a QC review not found error.
func NewReviewNotFoundError(reviewID int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeReviewNotFound,
		Message: fmt.Sprintf("QC review %d not found", reviewID),
		Context: map[string]interface{}{"id": reviewID},
	}
}

// NewPlanningItemNotFoundError creates a planning request item not found
// error.
func NewPlanningItemNotFoundError(itemID int64) *DomainError {
	return &DomainError{
		Code:    ErrCodePlanningItemNotFound,
		Message: fmt.Sprintf("Planning request item %d not found", itemID),
		Context: map[string]interface{}{"id": itemID},
	}
}

// NewJobOrderNotFoundError creates a job order not found error.
func NewJobOrderNotFoundError(jobNo string) *DomainError {
	return &DomainError{
		Code:    ErrCodeJobOrderNotFound,
		Message: fmt.Sprintf("Job order %s not found", jobNo),
		Context: map[string]interface{}{"id": jobNo},
	}
}

// NewInvalidReleaseTransitionError is returned when a revision step is
// attempted from the wrong release status.
func NewInvalidReleaseTransitionError(from, to ReleaseStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("Cannot transition from %s to %s", from, to),
		Context: map[string]interface{}{
			"from": string(from),
			"to":   string(to),
		},
	}
}

// NewUnauthorizedError is returned when a request lacks valid credentials.
func NewUnauthorizedError() *DomainError {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: "Authentication credentials were not provided or are invalid",
		Context: map[string]interface{}{},
	}
}

// NewInvalidTransitionError creates an invalid status transition error.
func NewInvalidTransitionError(from, to TaskStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("Cannot transition from %s to %s", from, to),
		Context: map[string]interface{}{
			"from": string(from),
			"to":   string(to),
		},
	}
}

// NewCannotStartError is returned when a pending task is not yet eligible
// to start.
func NewCannotStartError(taskID TaskID) *DomainError {
	return &DomainError{
		Code:    ErrCodeCannotStart,
		Message: fmt.Sprintf("Task %s cannot be started yet", taskID),
		Context: map[string]interface{}{"id": taskID.String()},
	}
}

// NewQCApprovalRequiredError is returned when completing a task whose QC
// review has not been approved.
func NewQCApprovalRequiredError(taskID TaskID) *DomainError {
	return &DomainError{
		Code:    ErrCodeQCApprovalRequired,
		Message: fmt.Sprintf("Task %s requires an approved QC review before completion", taskID),
		Context: map[string]interface{}{"id": taskID.String()},
	}
}

// NewActionNotAllowedError is returned when an action is not offered for
// the task's current snapshot.
func NewActionNotAllowedError(taskID TaskID, action Action, status TaskStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeActionNotAllowed,
		Message: fmt.Sprintf("Action %s is not available for task %s (%s)", action, taskID, status),
		Context: map[string]interface{}{
			"id":     taskID.String(),
			"action": string(action),
			"status": string(status),
		},
	}
}

// NewValidationError creates a validation error.
func NewValidationError(details []string) *DomainError {
	msg := "Validation failed"
	if len(details) == 1 {
		msg = "Validation failed: " + details[0]
	}
	return &DomainError{
		Code:    ErrCodeValidationFailed,
		Message: msg,
		Context: map[string]interface{}{"details": details},
	}
}

// NewServerError wraps a failure message returned by the task service.
func NewServerError(status int, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeServerError,
		Message: message,
		Context: map[string]interface{}{"status": status},
	}
}

// NewInternalError creates an internal error.
func NewInternalError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeInternalError,
		Message: "An internal error occurred",
		Context: map[string]interface{}{},
	}
}
