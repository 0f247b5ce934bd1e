package client

import (
	"bytes"
	"encoding/json"

	"github.com/airyra/taskboard/internal/domain"
)

// ActionResult is the response of a lifecycle action.
type ActionResult struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Task    *domain.Task `json:"task"`
}

// CreateTaskInput is the request body for creating a task.
type CreateTaskInput struct {
	JobOrder             string            `json:"job_order"`
	Department           domain.Department `json:"department"`
	TaskType             domain.TaskType   `json:"task_type,omitempty"`
	Title                string            `json:"title"`
	Description          string            `json:"description,omitempty"`
	Parent               domain.TaskID     `json:"parent"`
	Sequence             int               `json:"sequence,omitempty"`
	AssignedTo           *int64            `json:"assigned_to,omitempty"`
	TargetCompletionDate *domain.Date      `json:"target_completion_date,omitempty"`
	Weight               *float64          `json:"weight,omitempty"`
	QCRequired           bool              `json:"qc_required,omitempty"`
	PlanningItemID       *int64            `json:"planning_request_item_id,omitempty"`
}

// TaskNode is one node of a subtask tree created in bulk.
type TaskNode struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	TaskType    domain.TaskType `json:"task_type,omitempty"`
	Weight      *float64        `json:"weight,omitempty"`
	AssignedTo  *int64          `json:"assigned_to,omitempty"`
	Children    []TaskNode      `json:"children,omitempty"`
}

// BulkCreateResult is the response of a bulk subtask creation.
type BulkCreateResult struct {
	Message string         `json:"message"`
	Tasks   []*domain.Task `json:"tasks"`
}

// ReleaseInput is the request body for publishing a release.
type ReleaseInput struct {
	Task     domain.TaskID `json:"task"`
	JobOrder string        `json:"job_order"`
	domain.ReleaseForm
}

// RevisionResult is the response of a revision workflow call.
type RevisionResult struct {
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Release    *domain.Release `json:"release,omitempty"`
	NewRelease *domain.Release `json:"new_release,omitempty"`
}

// PlanningItem is a planning request line a procurement task delivers.
type PlanningItem = domain.PlanningItem

// Assignment allocates welding or painting weight of a task to a
// subcontractor at a price tier.
type Assignment struct {
	ID                int64         `json:"id" yaml:"id"`
	DepartmentTask    domain.TaskID `json:"department_task" yaml:"department_task"`
	JobNo             string        `json:"job_no,omitempty" yaml:"job_no,omitempty"`
	Subcontractor     int64         `json:"subcontractor" yaml:"subcontractor"`
	SubcontractorName string        `json:"subcontractor_name,omitempty" yaml:"subcontractor_name,omitempty"`
	PriceTier         int64         `json:"price_tier" yaml:"price_tier"`
	PriceTierName     string        `json:"price_tier_name,omitempty" yaml:"price_tier_name,omitempty"`
	AllocatedWeightKg float64       `json:"allocated_weight_kg" yaml:"allocated_weight_kg"`
	CurrentProgress   float64       `json:"current_progress" yaml:"current_progress"`
}

// AssignmentFilter selects assignments. Zero fields are not sent.
type AssignmentFilter struct {
	JobNo         string
	Task          domain.TaskID
	Subcontractor int64
}

// AssignmentInput is the request body for creating an assignment.
type AssignmentInput struct {
	DepartmentTask    domain.TaskID `json:"department_task"`
	Subcontractor     int64         `json:"subcontractor"`
	PriceTier         int64         `json:"price_tier"`
	AllocatedWeightKg float64       `json:"allocated_weight_kg"`
}

// AssignmentUpdate carries the mutable fields of an assignment.
type AssignmentUpdate struct {
	AllocatedWeightKg *float64 `json:"allocated_weight_kg,omitempty"`
	CurrentProgress   *float64 `json:"current_progress,omitempty"`
}

// RemainingWeight describes the unallocated weight of a price tier.
type RemainingWeight struct {
	PriceTierID       int64   `json:"price_tier_id" yaml:"price_tier_id"`
	AllocatedWeightKg float64 `json:"allocated_weight_kg" yaml:"allocated_weight_kg"`
	UsedWeightKg      float64 `json:"used_weight_kg" yaml:"used_weight_kg"`
	RemainingWeightKg float64 `json:"remaining_weight_kg" yaml:"remaining_weight_kg"`
}

// listResponse decodes either a bare JSON array or a paginated
// {"count", "results"} object.
type listResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func (l *listResponse[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		l.Count = len(items)
		l.Results = items
		return nil
	}
	var p struct {
		Count   int `json:"count"`
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	l.Count = p.Count
	l.Results = p.Results
	return nil
}

func (l *listResponse[T]) items() []T {
	if l.Results == nil {
		return []T{}
	}
	return l.Results
}

// bulkCreateRequest is the JSON request body for bulk subtask creation.
type bulkCreateRequest struct {
	Parent domain.TaskID `json:"parent"`
	Tasks  []TaskNode    `json:"tasks"`
}

// reasonRequest is the JSON request body of actions that need a reason.
type reasonRequest struct {
	Reason string `json:"reason"`
}

// approveRevisionRequest is the JSON request body for approving a revision.
type approveRevisionRequest struct {
	AssignedTo *int64 `json:"assigned_to,omitempty"`
}

// submitQCRequest is the JSON request body for submitting a QC review.
type submitQCRequest struct {
	TaskID   domain.TaskID          `json:"task_id"`
	PartData map[string]interface{} `json:"part_data,omitempty"`
}

// decideQCRequest is the JSON request body for deciding a QC review.
type decideQCRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment,omitempty"`
}

// planningItemRequest is the JSON request body for creating a planning item.
type planningItemRequest struct {
	ItemCode string `json:"item_code"`
	ItemName string `json:"item_name,omitempty"`
}
