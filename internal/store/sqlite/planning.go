package sqlite

import (
	"database/sql"
	"time"

	"github.com/airyra/taskboard/internal/domain"
)

// PlanningRepository handles planning request item persistence.
type PlanningRepository struct {
	db DBTX
}

// NewPlanningRepository creates a new PlanningRepository.
func NewPlanningRepository(db DBTX) *PlanningRepository {
	return &PlanningRepository{db: db}
}

// Create inserts an undelivered item and returns its id.
func (r *PlanningRepository) Create(itemCode, itemName string) (int64, error) {
	result, err := r.db.Exec(
		"INSERT INTO planning_items (item_code, item_name) VALUES (?, ?)",
		itemCode, itemName,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetByID retrieves an item by its ID.
func (r *PlanningRepository) GetByID(id int64) (*domain.PlanningItem, error) {
	var item domain.PlanningItem
	var delivered int
	var deliveredAt sql.NullString

	err := r.db.QueryRow(`
		SELECT id, item_code, item_name, is_delivered, delivered_at
		FROM planning_items WHERE id = ?
	`, id).Scan(&item.ID, &item.ItemCode, &item.ItemName, &delivered, &deliveredAt)
	if err != nil {
		return nil, err
	}

	item.IsDelivered = delivered != 0
	item.DeliveredAt = parseNullTime(deliveredAt)
	return &item, nil
}

// MarkDelivered flags the item as delivered.
func (r *PlanningRepository) MarkDelivered(id int64, by string, now time.Time) error {
	result, err := r.db.Exec(`
		UPDATE planning_items SET is_delivered = 1, delivered_at = ?, delivered_by = ?
		WHERE id = ?
	`, formatTime(now), by, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// JobOrderRepository handles job order persistence.
type JobOrderRepository struct {
	db DBTX
}

// NewJobOrderRepository creates a new JobOrderRepository.
func NewJobOrderRepository(db DBTX) *JobOrderRepository {
	return &JobOrderRepository{db: db}
}

// Ensure creates the job order if it does not exist yet.
func (r *JobOrderRepository) Ensure(jobNo string, now time.Time) error {
	_, err := r.db.Exec(
		"INSERT OR IGNORE INTO job_orders (job_no, created_at) VALUES (?, ?)",
		jobNo, formatTime(now),
	)
	return err
}

// GetByNo retrieves a job order.
func (r *JobOrderRepository) GetByNo(jobNo string) (*domain.JobOrder, error) {
	var jo domain.JobOrder
	var status, createdAt string
	var completedAt sql.NullString

	err := r.db.QueryRow(`
		SELECT job_no, title, status, completed_at, created_at
		FROM job_orders WHERE job_no = ?
	`, jobNo).Scan(&jo.JobNo, &jo.Title, &status, &completedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	jo.Status = domain.JobOrderStatus(status)
	jo.CompletedAt = parseNullTime(completedAt)
	jo.CreatedAt = parseTime(createdAt)
	return &jo, nil
}

// Complete closes an active job order on behalf of the task whose
// completion finished it.
func (r *JobOrderRepository) Complete(jobNo string, byTask int64, now time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE job_orders SET status = 'completed', completed_at = ?, auto_completed_by = ?
		WHERE job_no = ? AND status = 'active'
	`, formatTime(now), byTask, jobNo)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// ReopenCompletedBy reopens the job orders that task completed.
func (r *JobOrderRepository) ReopenCompletedBy(byTask int64) error {
	_, err := r.db.Exec(`
		UPDATE job_orders SET status = 'active', completed_at = NULL, auto_completed_by = NULL
		WHERE auto_completed_by = ?
	`, byTask)
	return err
}
