// Package sqlite implements the task service repositories on SQLite.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every repository can
// run inside or outside a transaction.
type DBTX interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Repos bundles the repositories bound to one connection or transaction.
type Repos struct {
	Tasks     *TaskRepository
	Audit     *AuditRepository
	Releases  *ReleaseRepository
	Reviews   *ReviewRepository
	Planning  *PlanningRepository
	JobOrders *JobOrderRepository
}

// NewRepos binds every repository to q.
func NewRepos(q DBTX) *Repos {
	return &Repos{
		Tasks:     NewTaskRepository(q),
		Audit:     NewAuditRepository(q),
		Releases:  NewReleaseRepository(q),
		Reviews:   NewReviewRepository(q),
		Planning:  NewPlanningRepository(q),
		JobOrders: NewJobOrderRepository(q),
	}
}

// InTx runs fn inside a transaction and commits when fn returns nil.
func InTx(db *sql.DB, fn func(r *Repos) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(NewRepos(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
