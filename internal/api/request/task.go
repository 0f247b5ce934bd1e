package request

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/service"
)

// CreateTaskRequest represents a request to create a task.
type CreateTaskRequest struct {
	JobOrder             string            `json:"job_order"`
	Department           domain.Department `json:"department"`
	TaskType             domain.TaskType   `json:"task_type,omitempty"`
	Title                string            `json:"title"`
	Description          string            `json:"description,omitempty"`
	Parent               domain.TaskID     `json:"parent"`
	Sequence             int               `json:"sequence,omitempty"`
	AssignedTo           *int64            `json:"assigned_to,omitempty"`
	TargetStartDate      *domain.Date      `json:"target_start_date,omitempty"`
	TargetCompletionDate *domain.Date      `json:"target_completion_date,omitempty"`
	Weight               *float64          `json:"weight,omitempty"`
	QCRequired           bool              `json:"qc_required,omitempty"`
	PlanningItemID       *int64            `json:"planning_request_item_id,omitempty"`
}

// Validate validates the create task request.
func (r *CreateTaskRequest) Validate() []string {
	var errors []string

	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, "title: This field is required.")
	}
	if r.Department != "" && !r.Department.IsValid() {
		errors = append(errors, "department: unknown department "+string(r.Department))
	}
	if !r.TaskType.IsValid() {
		errors = append(errors, "task_type: unknown task type "+string(r.TaskType))
	}
	if r.Parent.IsSynthetic() {
		errors = append(errors, "parent: expected a task id")
	}
	if r.Sequence < 0 {
		errors = append(errors, "sequence: must not be negative")
	}
	if r.Weight != nil && !validWeight(*r.Weight) {
		errors = append(errors, "weight: must be a non-negative number")
	}
	if r.AssignedTo != nil && *r.AssignedTo <= 0 {
		errors = append(errors, "assigned_to: expected a user id")
	}

	return errors
}

// Input converts the request to the service input.
func (r *CreateTaskRequest) Input() service.CreateTaskInput {
	in := service.CreateTaskInput{
		JobOrder:             strings.TrimSpace(r.JobOrder),
		Department:           r.Department,
		TaskType:             r.TaskType,
		Title:                strings.TrimSpace(r.Title),
		Description:          r.Description,
		Sequence:             r.Sequence,
		AssignedTo:           r.AssignedTo,
		TargetStartDate:      r.TargetStartDate,
		TargetCompletionDate: r.TargetCompletionDate,
		Weight:               r.Weight,
		QCRequired:           r.QCRequired,
		PlanningItemID:       r.PlanningItemID,
	}
	if n, ok := r.Parent.Int64(); ok && n != 0 {
		in.Parent = &n
	}
	return in
}

// TaskNode is one node of a bulk subtask tree.
type TaskNode struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	TaskType    domain.TaskType `json:"task_type,omitempty"`
	Weight      *float64        `json:"weight,omitempty"`
	AssignedTo  *int64          `json:"assigned_to,omitempty"`
	Children    []TaskNode      `json:"children,omitempty"`
}

// BulkCreateRequest represents a request to create a subtask tree.
type BulkCreateRequest struct {
	Parent domain.TaskID `json:"parent"`
	Tasks  []TaskNode    `json:"tasks"`
}

// Validate validates the bulk create request.
func (r *BulkCreateRequest) Validate() []string {
	var errors []string
	if n, ok := r.Parent.Int64(); !ok || n <= 0 {
		errors = append(errors, "parent: This field is required.")
	}
	if len(r.Tasks) == 0 {
		errors = append(errors, "tasks: At least one task is required.")
	}
	return append(errors, validateNodes(r.Tasks, "tasks")...)
}

// Nodes converts the tree to service nodes.
func (r *BulkCreateRequest) Nodes() []service.SubtaskNode {
	return convertNodes(r.Tasks)
}

func validateNodes(nodes []TaskNode, path string) []string {
	var errors []string
	for i, n := range nodes {
		p := path + "[" + itoa(i) + "]"
		if strings.TrimSpace(n.Title) == "" {
			errors = append(errors, p+".title: This field is required.")
		}
		if !n.TaskType.IsValid() {
			errors = append(errors, p+".task_type: unknown task type "+string(n.TaskType))
		}
		if n.Weight != nil && !validWeight(*n.Weight) {
			errors = append(errors, p+".weight: must be a non-negative number")
		}
		errors = append(errors, validateNodes(n.Children, p+".children")...)
	}
	return errors
}

func convertNodes(nodes []TaskNode) []service.SubtaskNode {
	out := make([]service.SubtaskNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, service.SubtaskNode{
			Title:       strings.TrimSpace(n.Title),
			Description: n.Description,
			TaskType:    n.TaskType,
			Weight:      n.Weight,
			AssignedTo:  n.AssignedTo,
			Children:    convertNodes(n.Children),
		})
	}
	return out
}

// ParseTaskPatch converts a PATCH body into a task patch. Unknown and
// read-only fields are rejected.
func ParseTaskPatch(body map[string]json.RawMessage) (service.TaskPatch, []string) {
	var patch service.TaskPatch
	var errors []string

	fields := make([]string, 0, len(body))
	for k := range body {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	for _, field := range fields {
		raw := body[field]
		switch field {
		case "title":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
				errors = append(errors, "title: This field may not be blank.")
				continue
			}
			s = strings.TrimSpace(s)
			patch.Title = &s
		case "description":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				errors = append(errors, "description: expected a string")
				continue
			}
			patch.Description = &s
		case "sequence":
			var n int
			if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
				errors = append(errors, "sequence: expected a non-negative integer")
				continue
			}
			patch.Sequence = &n
		case "completion_percentage":
			var n int
			if err := json.Unmarshal(raw, &n); err != nil || n < 0 || n > domain.MaxManualProgress {
				errors = append(errors, "completion_percentage: must be between 0 and 99")
				continue
			}
			patch.CompletionPercentage = &n
		case "weight":
			var w float64
			if err := json.Unmarshal(raw, &w); err != nil || !validWeight(w) {
				errors = append(errors, "weight: must be a non-negative number")
				continue
			}
			patch.Weight = &w
		case "assigned_to":
			patch.AssignedTo.Set = true
			if isNull(raw) {
				continue
			}
			var id int64
			if err := json.Unmarshal(raw, &id); err != nil || id <= 0 {
				errors = append(errors, "assigned_to: expected a user id or null")
				continue
			}
			patch.AssignedTo.Value = &id
		case "target_start_date", "target_completion_date":
			dst := &patch.TargetStartDate
			if field == "target_completion_date" {
				dst = &patch.TargetCompletionDate
			}
			dst.Set = true
			if isNull(raw) {
				continue
			}
			var d domain.Date
			if err := json.Unmarshal(raw, &d); err != nil {
				errors = append(errors, field+": expected YYYY-MM-DD or null")
				continue
			}
			dst.Value = &d
		default:
			errors = append(errors, field+": This field cannot be changed.")
		}
	}

	if len(fields) == 0 {
		errors = append(errors, "No fields to update.")
	}
	return patch, errors
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
