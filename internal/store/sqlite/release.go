package sqlite

import (
	"database/sql"
	"time"

	"github.com/airyra/taskboard/internal/domain"
)

const releaseSelect = `
SELECT id, job_order, task_id, folder_path, revision_code, changelog, hardcopy_count,
       topic_content, status, revision_reason, created_at
FROM releases
`

// ReleaseRepository handles drawing release persistence operations.
type ReleaseRepository struct {
	db DBTX
}

// NewReleaseRepository creates a new ReleaseRepository.
func NewReleaseRepository(db DBTX) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

// Create inserts a release in the released state and returns its id.
func (r *ReleaseRepository) Create(jobOrder string, taskID int64, form domain.ReleaseForm, now time.Time) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO releases (job_order, task_id, folder_path, revision_code, changelog,
		                      hardcopy_count, topic_content, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		jobOrder,
		taskID,
		form.FolderPath,
		form.RevisionCode,
		form.Changelog,
		form.HardcopyCount,
		form.TopicContent,
		string(domain.ReleaseReleased),
		formatTime(now),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetByID retrieves a release by its ID.
func (r *ReleaseRepository) GetByID(id int64) (*domain.Release, error) {
	return scanRelease(r.db.QueryRow(releaseSelect+" WHERE id = ?", id))
}

// CurrentForTask returns the latest release of a task that has not been
// superseded.
func (r *ReleaseRepository) CurrentForTask(taskID int64) (*domain.Release, error) {
	return scanRelease(r.db.QueryRow(releaseSelect+`
		WHERE task_id = ? AND status != 'superseded'
		ORDER BY id DESC LIMIT 1
	`, taskID))
}

// CurrentForJobOrder returns the latest release of a job order that has
// not been superseded.
func (r *ReleaseRepository) CurrentForJobOrder(jobOrder string) (*domain.Release, error) {
	return scanRelease(r.db.QueryRow(releaseSelect+`
		WHERE job_order = ? AND status != 'superseded'
		ORDER BY id DESC LIMIT 1
	`, jobOrder))
}

// SetStatus moves a release to status and records the revision reason.
func (r *ReleaseRepository) SetStatus(id int64, status domain.ReleaseStatus, reason string) error {
	result, err := r.db.Exec(
		"UPDATE releases SET status = ?, revision_reason = ? WHERE id = ?",
		string(status), reason, id,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SupersedeForTask marks every live release of a task as superseded.
func (r *ReleaseRepository) SupersedeForTask(taskID int64) error {
	_, err := r.db.Exec(
		"UPDATE releases SET status = 'superseded' WHERE task_id = ? AND status != 'superseded'",
		taskID,
	)
	return err
}

func scanRelease(row scanner) (*domain.Release, error) {
	var rel domain.Release
	var taskID sql.NullInt64
	var status, createdAt string

	err := row.Scan(
		&rel.ID,
		&rel.JobOrder,
		&taskID,
		&rel.FolderPath,
		&rel.RevisionCode,
		&rel.Changelog,
		&rel.HardcopyCount,
		&rel.TopicContent,
		&status,
		&rel.RevisionReason,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if taskID.Valid {
		rel.Task = domain.NumericID(taskID.Int64)
	}
	rel.Status = domain.ReleaseStatus(status)
	rel.CreatedAt = parseTime(createdAt)
	return &rel, nil
}
