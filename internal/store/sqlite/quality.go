package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/airyra/taskboard/internal/domain"
)

const reviewSelect = `
SELECT id, task_id, status, part_data, comment, created_at, decided_at
FROM qc_reviews
`

// ReviewRepository handles QC review persistence operations.
type ReviewRepository struct {
	db DBTX
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a pending review and returns its id.
func (r *ReviewRepository) Create(taskID int64, partData json.RawMessage, now time.Time) (int64, error) {
	var data *string
	if len(partData) > 0 {
		s := string(partData)
		data = &s
	}

	result, err := r.db.Exec(`
		INSERT INTO qc_reviews (task_id, status, part_data, created_at)
		VALUES (?, ?, ?, ?)
	`, taskID, string(domain.QCPending), data, formatTime(now))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(id int64) (*domain.QCReview, error) {
	return scanReview(r.db.QueryRow(reviewSelect+" WHERE id = ?", id))
}

// ListByTask returns the reviews of a task, oldest first.
func (r *ReviewRepository) ListByTask(taskID int64) ([]*domain.QCReview, error) {
	rows, err := r.db.Query(reviewSelect+" WHERE task_id = ? ORDER BY id ASC", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []*domain.QCReview{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// HasPending reports whether the task has an undecided review.
func (r *ReviewRepository) HasPending(taskID int64) (bool, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM qc_reviews WHERE task_id = ? AND status = 'pending'", taskID,
	).Scan(&n)
	return n > 0, err
}

// Decide records the decision on a review.
func (r *ReviewRepository) Decide(id int64, status domain.QCReviewStatus, comment, decidedBy string, now time.Time) error {
	result, err := r.db.Exec(`
		UPDATE qc_reviews SET status = ?, comment = ?, decided_at = ?, decided_by = ?
		WHERE id = ?
	`, string(status), comment, formatTime(now), decidedBy, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func scanReview(row scanner) (*domain.QCReview, error) {
	var review domain.QCReview
	var taskID int64
	var status, createdAt string
	var partData, decidedAt sql.NullString

	if err := row.Scan(&review.ID, &taskID, &status, &partData, &review.Comment, &createdAt, &decidedAt); err != nil {
		return nil, err
	}

	review.Task = domain.NumericID(taskID)
	review.Status = domain.QCReviewStatus(status)
	if partData.Valid {
		review.PartData = json.RawMessage(partData.String)
	}
	review.CreatedAt = parseTime(createdAt)
	review.DecidedAt = parseNullTime(decidedAt)
	return &review, nil
}
