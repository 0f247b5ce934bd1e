package domain

import "time"

// PlanningItem is a planning request line a procurement task delivers.
type PlanningItem struct {
	ID          int64      `json:"id" yaml:"id"`
	ItemCode    string     `json:"item_code,omitempty" yaml:"item_code,omitempty"`
	ItemName    string     `json:"item_name,omitempty" yaml:"item_name,omitempty"`
	IsDelivered bool       `json:"is_delivered" yaml:"is_delivered"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" yaml:"delivered_at,omitempty"`
}

// JobOrderStatus is the state of a job order.
type JobOrderStatus string

const (
	JobOrderActive    JobOrderStatus = "active"
	JobOrderCompleted JobOrderStatus = "completed"
)

// JobOrder groups the department tasks of one customer order. It
// completes on its own once every root task is finished.
type JobOrder struct {
	JobNo       string         `json:"job_no" yaml:"job_no"`
	Title       string         `json:"title,omitempty" yaml:"title,omitempty"`
	Status      JobOrderStatus `json:"status" yaml:"status"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at" yaml:"created_at"`
}
