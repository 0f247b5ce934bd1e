package domain

import (
	"strings"
	"time"
)

// ReleaseStatus is the state of a drawing release in the revision cycle.
type ReleaseStatus string

const (
	ReleaseReleased          ReleaseStatus = "released"
	ReleaseRevisionRequested ReleaseStatus = "revision_requested"
	ReleaseInRevision        ReleaseStatus = "in_revision"
	ReleaseSuperseded        ReleaseStatus = "superseded"
)

// ValidReleaseStatuses contains all valid release status values.
var ValidReleaseStatuses = []ReleaseStatus{
	ReleaseReleased,
	ReleaseRevisionRequested,
	ReleaseInRevision,
	ReleaseSuperseded,
}

// IsValid checks if the release status is known.
func (s ReleaseStatus) IsValid() bool {
	for _, v := range ValidReleaseStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Release is a published set of design drawings for a job order.
type Release struct {
	ID             int64         `json:"id" yaml:"id"`
	JobOrder       string        `json:"job_order" yaml:"job_order"`
	Task           TaskID        `json:"task" yaml:"task,omitempty"`
	FolderPath     string        `json:"folder_path" yaml:"folder_path"`
	RevisionCode   string        `json:"revision_code" yaml:"revision_code"`
	Changelog      string        `json:"changelog" yaml:"changelog"`
	HardcopyCount  int           `json:"hardcopy_count" yaml:"hardcopy_count"`
	TopicContent   string        `json:"topic_content,omitempty" yaml:"topic_content,omitempty"`
	Status         ReleaseStatus `json:"status" yaml:"status"`
	RevisionReason string        `json:"revision_reason,omitempty" yaml:"revision_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at" yaml:"created_at"`
}

// ReleaseForm carries the fields entered when publishing drawings, either
// as a first release or as the outcome of a revision.
type ReleaseForm struct {
	FolderPath    string `json:"folder_path"`
	RevisionCode  string `json:"revision_code"`
	Changelog     string `json:"changelog"`
	HardcopyCount int    `json:"hardcopy_count,omitempty"`
	TopicContent  string `json:"topic_content,omitempty"`
}

// Validate checks the required release fields.
func (f ReleaseForm) Validate() []string {
	var errs []string
	if strings.TrimSpace(f.FolderPath) == "" {
		errs = append(errs, "folder_path is required")
	}
	if strings.TrimSpace(f.RevisionCode) == "" {
		errs = append(errs, "revision_code is required")
	}
	if strings.TrimSpace(f.Changelog) == "" {
		errs = append(errs, "changelog is required")
	}
	if f.HardcopyCount < 0 {
		errs = append(errs, "hardcopy_count must not be negative")
	}
	return errs
}
