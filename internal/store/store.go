// Package store owns the SQLite database of the reference task service.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// schema is applied on every open; every statement is idempotent.
const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS job_orders (
    job_no            TEXT PRIMARY KEY,
    title             TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'active'
                      CHECK (status IN ('active', 'completed')),
    completed_at      TEXT,
    auto_completed_by INTEGER,
    created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS planning_items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    item_code    TEXT NOT NULL DEFAULT '',
    item_name    TEXT NOT NULL DEFAULT '',
    is_delivered INTEGER NOT NULL DEFAULT 0,
    delivered_at TEXT,
    delivered_by TEXT
);

CREATE TABLE IF NOT EXISTS tasks (
    id                     INTEGER PRIMARY KEY AUTOINCREMENT,
    parent_id              INTEGER REFERENCES tasks(id) ON DELETE CASCADE,
    sequence               INTEGER NOT NULL DEFAULT 1,
    job_order              TEXT NOT NULL REFERENCES job_orders(job_no),
    department             TEXT NOT NULL,
    task_type              TEXT NOT NULL DEFAULT 'generic',
    title                  TEXT NOT NULL,
    description            TEXT NOT NULL DEFAULT '',
    status                 TEXT NOT NULL DEFAULT 'pending'
                           CHECK (status IN ('pending', 'in_progress', 'blocked', 'completed', 'skipped')),
    previous_status        TEXT,
    blocked_reason         TEXT NOT NULL DEFAULT '',
    qc_required            INTEGER NOT NULL DEFAULT 0,
    planning_item_id       INTEGER REFERENCES planning_items(id) ON DELETE SET NULL,
    assigned_to            INTEGER,
    target_start_date      TEXT,
    target_completion_date TEXT,
    completion_percentage  INTEGER CHECK (completion_percentage IS NULL OR completion_percentage BETWEEN 0 AND 100),
    weight                 REAL CHECK (weight IS NULL OR weight >= 0),
    completed_at           TEXT,
    completed_by           TEXT,
    auto_completed_by      INTEGER,
    created_at             TEXT NOT NULL,
    updated_at             TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_parent_id ON tasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_job_order ON tasks(job_order);
CREATE INDEX IF NOT EXISTS idx_tasks_department ON tasks(department);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_auto_completed_by ON tasks(auto_completed_by);
CREATE INDEX IF NOT EXISTS idx_tasks_planning_item_id ON tasks(planning_item_id);

CREATE TABLE IF NOT EXISTS releases (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    job_order       TEXT NOT NULL REFERENCES job_orders(job_no),
    task_id         INTEGER REFERENCES tasks(id) ON DELETE SET NULL,
    folder_path     TEXT NOT NULL,
    revision_code   TEXT NOT NULL,
    changelog       TEXT NOT NULL,
    hardcopy_count  INTEGER NOT NULL DEFAULT 0,
    topic_content   TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'released'
                    CHECK (status IN ('released', 'revision_requested', 'in_revision', 'superseded')),
    revision_reason TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_releases_task_id ON releases(task_id);
CREATE INDEX IF NOT EXISTS idx_releases_job_order ON releases(job_order);

CREATE TABLE IF NOT EXISTS qc_reviews (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    status     TEXT NOT NULL DEFAULT 'pending'
               CHECK (status IN ('pending', 'approved', 'rejected')),
    part_data  TEXT,
    comment    TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    decided_at TEXT,
    decided_by TEXT
);

CREATE INDEX IF NOT EXISTS idx_qc_reviews_task_id ON qc_reviews(task_id);

CREATE TABLE IF NOT EXISTS audit_log (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id    INTEGER NOT NULL,
    action     TEXT NOT NULL,
    field      TEXT,
    old_value  TEXT,
    new_value  TEXT,
    changed_at TEXT NOT NULL,
    changed_by TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_task_id ON audit_log(task_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_changed_by ON audit_log(changed_by);
`

// Store holds the database connection of the task service.
type Store struct {
	path string
	db   *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{path: path, db: db}, nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks that the database answers.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	return nil
}
