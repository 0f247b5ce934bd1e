package domain

import "time"

// AuditAction represents the type of change recorded in a task's history.
type AuditAction string

const (
	AuditCreate     AuditAction = "create"
	AuditUpdate     AuditAction = "update"
	AuditTransition AuditAction = "transition"
	AuditRelease    AuditAction = "release"
	AuditQC         AuditAction = "qc"
)

// ValidAuditActions contains all valid audit action values.
var ValidAuditActions = []AuditAction{
	AuditCreate,
	AuditUpdate,
	AuditTransition,
	AuditRelease,
	AuditQC,
}

// IsValid checks if the action is a valid audit action.
func (a AuditAction) IsValid() bool {
	for _, v := range ValidAuditActions {
		if a == v {
			return true
		}
	}
	return false
}

// AuditEntry represents a single change in a task's history.
type AuditEntry struct {
	ID        int64       `json:"id" yaml:"id"`
	TaskID    TaskID      `json:"task_id" yaml:"task_id"`
	Action    AuditAction `json:"action" yaml:"action"`
	Field     *string     `json:"field,omitempty" yaml:"field,omitempty"`
	OldValue  *string     `json:"old_value,omitempty" yaml:"old_value,omitempty"`
	NewValue  *string     `json:"new_value,omitempty" yaml:"new_value,omitempty"`
	ChangedAt time.Time   `json:"changed_at" yaml:"changed_at"`
	ChangedBy string      `json:"changed_by" yaml:"changed_by"`
}

// NewAuditEntry creates a new audit entry with the given parameters.
func NewAuditEntry(taskID TaskID, action AuditAction, changedBy string) AuditEntry {
	return AuditEntry{
		TaskID:    taskID,
		Action:    action,
		ChangedAt: time.Now(),
		ChangedBy: changedBy,
	}
}

// WithField sets the field name for the audit entry.
func (e AuditEntry) WithField(field string) AuditEntry {
	e.Field = &field
	return e
}

// WithChange records the old and new values of the field.
func (e AuditEntry) WithChange(oldValue, newValue string) AuditEntry {
	e.OldValue = &oldValue
	e.NewValue = &newValue
	return e
}
