package request

import (
	"encoding/json"
	"strconv"

	"github.com/airyra/taskboard/internal/domain"
)

// CreateReleaseRequest represents a request to publish a release.
type CreateReleaseRequest struct {
	Task     domain.TaskID `json:"task"`
	JobOrder string        `json:"job_order"`
	domain.ReleaseForm
}

// Validate validates the create release request.
func (r *CreateReleaseRequest) Validate() []string {
	var errors []string
	if n, ok := r.Task.Int64(); !ok || n <= 0 {
		errors = append(errors, "task: This field is required.")
	}
	return append(errors, r.ReleaseForm.Validate()...)
}

// ReasonRequest is the body of actions that carry a reason.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ApproveRevisionRequest is the body of a revision approval.
type ApproveRevisionRequest struct {
	AssignedTo *int64 `json:"assigned_to,omitempty"`
}

// SubmitQCRequest represents a request to submit a QC review.
type SubmitQCRequest struct {
	TaskID   domain.TaskID   `json:"task_id"`
	PartData json.RawMessage `json:"part_data,omitempty"`
}

// Validate validates the submit request.
func (r *SubmitQCRequest) Validate() []string {
	if n, ok := r.TaskID.Int64(); !ok || n <= 0 {
		return []string{"task_id: This field is required."}
	}
	return nil
}

// DecideQCRequest represents a decision on a QC review.
type DecideQCRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment,omitempty"`
}

// PlanningItemRequest represents a request to register a planning item.
type PlanningItemRequest struct {
	ItemCode string `json:"item_code"`
	ItemName string `json:"item_name"`
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
