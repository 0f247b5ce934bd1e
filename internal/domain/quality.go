package domain

import (
	"encoding/json"
	"time"
)

// QCReviewStatus is the decision state of a quality-control review.
type QCReviewStatus string

const (
	QCPending  QCReviewStatus = "pending"
	QCApproved QCReviewStatus = "approved"
	QCRejected QCReviewStatus = "rejected"
)

// QCReview is a quality-control inspection requested for a task.
type QCReview struct {
	ID        int64           `json:"id" yaml:"id"`
	Task      TaskID          `json:"task" yaml:"task"`
	Status    QCReviewStatus  `json:"status" yaml:"status"`
	PartData  json.RawMessage `json:"part_data,omitempty" yaml:"-"`
	Comment   string          `json:"comment,omitempty" yaml:"comment,omitempty"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty" yaml:"decided_at,omitempty"`
}

// NCR is a non-conformance report raised against a task.
type NCR struct {
	ID          int64     `json:"id" yaml:"id"`
	NCRNumber   string    `json:"ncr_number,omitempty" yaml:"ncr_number,omitempty"`
	Task        TaskID    `json:"department_task" yaml:"department_task"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string    `json:"status" yaml:"status"`
	Severity    string    `json:"severity,omitempty" yaml:"severity,omitempty"`
	DefectType  string    `json:"defect_type,omitempty" yaml:"defect_type,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}
