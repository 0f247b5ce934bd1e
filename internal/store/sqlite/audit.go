package sqlite

import (
	"database/sql"
	"time"

	"github.com/airyra/taskboard/internal/domain"
)

// AuditRepository handles audit log persistence operations.
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// Log creates an audit log entry.
func (r *AuditRepository) Log(entry domain.AuditEntry) error {
	taskID, _ := entry.TaskID.Int64()
	_, err := r.db.Exec(`
		INSERT INTO audit_log (task_id, action, field, old_value, new_value, changed_at, changed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		taskID,
		string(entry.Action),
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		formatTime(entry.ChangedAt),
		entry.ChangedBy,
	)
	return err
}

// ListByTaskID returns all audit entries for a task, oldest first.
func (r *AuditRepository) ListByTaskID(taskID int64) ([]domain.AuditEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, task_id, action, field, old_value, new_value, changed_at, changed_by
		FROM audit_log
		WHERE task_id = ?
		ORDER BY id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// AuditQueryParams contains parameters for querying the audit log.
type AuditQueryParams struct {
	Action    *domain.AuditAction
	AgentID   *string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PerPage   int
}

// Query queries the audit log with filters and pagination, newest first.
func (r *AuditRepository) Query(params AuditQueryParams) ([]domain.AuditEntry, int, error) {
	offset := (params.Page - 1) * params.PerPage

	baseQuery := "FROM audit_log WHERE 1=1"
	args := []interface{}{}

	if params.Action != nil {
		baseQuery += " AND action = ?"
		args = append(args, string(*params.Action))
	}
	if params.AgentID != nil {
		baseQuery += " AND changed_by = ?"
		args = append(args, *params.AgentID)
	}
	if params.StartTime != nil {
		baseQuery += " AND changed_at >= ?"
		args = append(args, formatTime(*params.StartTime))
	}
	if params.EndTime != nil {
		baseQuery += " AND changed_at <= ?"
		args = append(args, formatTime(*params.EndTime))
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	selectQuery := "SELECT id, task_id, action, field, old_value, new_value, changed_at, changed_by " + baseQuery
	selectQuery += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, params.PerPage, offset)

	rows, err := r.db.Query(selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func scanEntries(rows *sql.Rows) ([]domain.AuditEntry, error) {
	entries := []domain.AuditEntry{}
	for rows.Next() {
		var entry domain.AuditEntry
		var taskID int64
		var action, changedAt string
		var field, oldValue, newValue sql.NullString

		err := rows.Scan(
			&entry.ID,
			&taskID,
			&action,
			&field,
			&oldValue,
			&newValue,
			&changedAt,
			&entry.ChangedBy,
		)
		if err != nil {
			return nil, err
		}

		entry.TaskID = domain.NumericID(taskID)
		entry.Action = domain.AuditAction(action)
		if field.Valid {
			entry.Field = &field.String
		}
		if oldValue.Valid {
			entry.OldValue = &oldValue.String
		}
		if newValue.Valid {
			entry.NewValue = &newValue.String
		}
		entry.ChangedAt = parseTime(changedAt)

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
