package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusCompleted  TaskStatus = "completed"
	StatusSkipped    TaskStatus = "skipped"
)

// ValidStatuses contains all valid task status values.
var ValidStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusBlocked, StatusCompleted, StatusSkipped}

// IsValid checks if the status is a valid task status.
func (s TaskStatus) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns the display label used by the task board.
func (s TaskStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusBlocked:
		return "Blocked"
	case StatusCompleted:
		return "Completed"
	case StatusSkipped:
		return "Skipped"
	}
	return string(s)
}

// IsFinished reports whether the status closes the task for completion
// rollups (completed or skipped).
func (s TaskStatus) IsFinished() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// Department owns a task.
type Department string

const (
	DepartmentDesign        Department = "design"
	DepartmentPlanning      Department = "planning"
	DepartmentProcurement   Department = "procurement"
	DepartmentManufacturing Department = "manufacturing"
	DepartmentPainting      Department = "painting"
	DepartmentLogistics     Department = "logistics"
)

// ValidDepartments contains all valid department values.
var ValidDepartments = []Department{
	DepartmentDesign,
	DepartmentPlanning,
	DepartmentProcurement,
	DepartmentManufacturing,
	DepartmentPainting,
	DepartmentLogistics,
}

// IsValid checks if the department is known.
func (d Department) IsValid() bool {
	for _, v := range ValidDepartments {
		if d == v {
			return true
		}
	}
	return false
}

// Label returns the display name of the department.
func (d Department) Label() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// TaskType classifies a task inside its department.
type TaskType string

const (
	TaskTypeGeneric         TaskType = "generic"
	TaskTypeWelding         TaskType = "welding"
	TaskTypePainting        TaskType = "painting"
	TaskTypeProcurementItem TaskType = "procurement_item"
	TaskTypeMachiningPart   TaskType = "machining_part"
	TaskTypeCNCPart         TaskType = "cnc_part"
)

// ValidTaskTypes contains all valid task type values.
var ValidTaskTypes = []TaskType{
	TaskTypeGeneric,
	TaskTypeWelding,
	TaskTypePainting,
	TaskTypeProcurementItem,
	TaskTypeMachiningPart,
	TaskTypeCNCPart,
}

// IsValid checks if the task type is known. The empty type is generic.
func (t TaskType) IsValid() bool {
	if t == "" {
		return true
	}
	for _, v := range ValidTaskTypes {
		if t == v {
			return true
		}
	}
	return false
}

// MaxManualProgress is the highest completion percentage that may be set by
// hand; 100 is reserved for the completed transition.
const MaxManualProgress = 99

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON writes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD" and full RFC 3339 timestamps.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the date as "YYYY-MM-DD".
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Task is a department task as served by the task service.
type Task struct {
	ID            TaskID     `json:"id" yaml:"id"`
	Parent        TaskID     `json:"parent" yaml:"parent,omitempty"`
	Sequence      int        `json:"sequence" yaml:"sequence"`
	SubtasksCount int        `json:"subtasks_count" yaml:"subtasks_count"`
	JobOrder      string     `json:"job_order" yaml:"job_order"`
	JobOrderTitle string     `json:"job_order_title,omitempty" yaml:"job_order_title,omitempty"`
	Department    Department `json:"department" yaml:"department"`
	TaskType      TaskType   `json:"task_type,omitempty" yaml:"task_type,omitempty"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`

	Status        TaskStatus `json:"status" yaml:"status"`
	CanStart      bool       `json:"can_start" yaml:"can_start"`
	BlockedReason string     `json:"blocked_reason,omitempty" yaml:"blocked_reason,omitempty"`

	IsUnderRevision           bool   `json:"is_under_revision" yaml:"is_under_revision"`
	CurrentReleaseID          *int64 `json:"current_release_id" yaml:"current_release_id,omitempty"`
	ActiveRevisionReleaseID   *int64 `json:"active_revision_release_id" yaml:"active_revision_release_id,omitempty"`
	HasPendingRevisionRequest bool   `json:"has_pending_revision_request" yaml:"has_pending_revision_request"`
	PendingRevisionReason     string `json:"pending_revision_reason,omitempty" yaml:"pending_revision_reason,omitempty"`

	QCRequired     bool   `json:"qc_required" yaml:"qc_required"`
	QCStatus       string `json:"qc_status,omitempty" yaml:"qc_status,omitempty"`
	HasQCApproval  bool   `json:"has_qc_approval" yaml:"has_qc_approval"`
	IsDelivered    bool   `json:"is_delivered" yaml:"is_delivered"`
	PlanningItemID *int64 `json:"planning_request_item_id" yaml:"planning_request_item_id,omitempty"`

	AssignedTo           *int64   `json:"assigned_to" yaml:"assigned_to,omitempty"`
	AssignedToName       string   `json:"assigned_to_name,omitempty" yaml:"assigned_to_name,omitempty"`
	TargetStartDate      *Date    `json:"target_start_date" yaml:"target_start_date,omitempty"`
	TargetCompletionDate *Date    `json:"target_completion_date" yaml:"target_completion_date,omitempty"`
	CompletionPercentage *int     `json:"completion_percentage" yaml:"completion_percentage,omitempty"`
	Weight               *float64 `json:"weight" yaml:"weight,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty" yaml:"completed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

// IsSubtask reports whether the task has a parent.
func (t *Task) IsSubtask() bool {
	return !t.Parent.IsZero()
}

// HasChildren reports whether the server knows of any subtasks.
func (t *Task) HasChildren() bool {
	return t.SubtasksCount > 0
}

// Clone returns a copy whose pointer fields do not alias the original.
func (t *Task) Clone() *Task {
	c := *t
	c.CurrentReleaseID = cloneInt64(t.CurrentReleaseID)
	c.ActiveRevisionReleaseID = cloneInt64(t.ActiveRevisionReleaseID)
	c.PlanningItemID = cloneInt64(t.PlanningItemID)
	c.AssignedTo = cloneInt64(t.AssignedTo)
	if t.TargetStartDate != nil {
		d := *t.TargetStartDate
		c.TargetStartDate = &d
	}
	if t.TargetCompletionDate != nil {
		d := *t.TargetCompletionDate
		c.TargetCompletionDate = &d
	}
	if t.CompletionPercentage != nil {
		p := *t.CompletionPercentage
		c.CompletionPercentage = &p
	}
	if t.Weight != nil {
		w := *t.Weight
		c.Weight = &w
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return &c
}

// Progress returns the percentage shown for the task: 100 once completed,
// the manual override otherwise.
func (t *Task) Progress() int {
	if t.Status == StatusCompleted {
		return 100
	}
	if t.CompletionPercentage != nil {
		return *t.CompletionPercentage
	}
	return 0
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
