// Package service implements the business rules of the reference task
// service on top of the SQLite repositories.
package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/store/sqlite"
)

// asDomain passes domain errors through and hides everything else behind
// an internal error.
func asDomain(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de
	}
	return domain.NewInternalError(err)
}

// lookup maps sql.ErrNoRows to the not-found error built by notFound.
func lookup(err error, notFound func() *domain.DomainError) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound()
	}
	return err
}

func taskNotFound(id int64) func() *domain.DomainError {
	return func() *domain.DomainError {
		return domain.NewTaskNotFoundError(domain.NumericID(id))
	}
}

func getTask(r *sqlite.Repos, id int64) (*domain.Task, error) {
	task, err := r.Tasks.GetByID(id)
	if err != nil {
		return nil, lookup(err, taskNotFound(id))
	}
	return task, nil
}

func taskKey(t *domain.Task) int64 {
	n, _ := t.ID.Int64()
	return n
}

func logChange(r *sqlite.Repos, id int64, action domain.AuditAction, field, oldValue, newValue, agent string, now time.Time) error {
	entry := domain.NewAuditEntry(domain.NumericID(id), action, agent).
		WithField(field).
		WithChange(oldValue, newValue)
	entry.ChangedAt = now
	if err := r.Audit.Log(entry); err != nil {
		return fmt.Errorf("log %s of task %d: %w", action, id, err)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
