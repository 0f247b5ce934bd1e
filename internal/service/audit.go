package service

import (
	"database/sql"
	"time"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/store/sqlite"
)

// AuditService handles audit log queries.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// GetTaskHistory returns the audit history for a task, oldest first.
func (s *AuditService) GetTaskHistory(taskID int64) ([]domain.AuditEntry, error) {
	repos := sqlite.NewRepos(s.db)
	entries, err := repos.Audit.ListByTaskID(taskID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	// Every task has at least its creation entry.
	if len(entries) == 0 {
		if _, err := getTask(repos, taskID); err != nil {
			return nil, asDomain(err)
		}
	}
	return entries, nil
}

// QueryInput contains the input for querying the audit log.
type QueryInput struct {
	Action    *domain.AuditAction
	AgentID   *string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PerPage   int
}

// Query queries the audit log with filters.
func (s *AuditService) Query(input QueryInput) ([]domain.AuditEntry, int, error) {
	entries, total, err := sqlite.NewAuditRepository(s.db).Query(sqlite.AuditQueryParams{
		Action:    input.Action,
		AgentID:   input.AgentID,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Page:      input.Page,
		PerPage:   input.PerPage,
	})
	if err != nil {
		return nil, 0, domain.NewInternalError(err)
	}
	return entries, total, nil
}
