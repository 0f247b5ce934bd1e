package sqlite

import (
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/airyra/taskboard/internal/domain"
)

// taskSelect yields every served field of a task. can_start, the release
// flags, the QC flags and the delivery flag are derived from joined rows.
const taskSelect = `
SELECT t.id, t.parent_id, t.sequence, t.job_order, COALESCE(j.title, ''),
       t.department, t.task_type, t.title, t.description,
       t.status, t.blocked_reason, p.status,
       (SELECT COUNT(*) FROM tasks c WHERE c.parent_id = t.id),
       t.qc_required,
       (SELECT q.status FROM qc_reviews q WHERE q.task_id = t.id ORDER BY q.id DESC LIMIT 1),
       t.planning_item_id, COALESCE(pi.is_delivered, 0),
       cr.id, cr.status, cr.revision_reason,
       t.assigned_to, t.target_start_date, t.target_completion_date,
       t.completion_percentage, t.weight,
       t.completed_at, t.completed_by, t.created_at, t.updated_at
FROM tasks t
LEFT JOIN tasks p ON p.id = t.parent_id
LEFT JOIN job_orders j ON j.job_no = t.job_order
LEFT JOIN planning_items pi ON pi.id = t.planning_item_id
LEFT JOIN releases cr ON cr.id = (
    SELECT r.id FROM releases r
    WHERE r.task_id = t.id AND r.status != 'superseded'
    ORDER BY r.id DESC LIMIT 1
)
`

// orderColumns maps the accepted ordering parameters to columns.
var orderColumns = map[string]string{
	"id":                     "t.id",
	"sequence":               "t.sequence",
	"title":                  "t.title",
	"status":                 "t.status",
	"department":             "t.department",
	"job_order":              "t.job_order",
	"target_start_date":      "t.target_start_date",
	"target_completion_date": "t.target_completion_date",
	"completion_percentage":  "t.completion_percentage",
	"weight":                 "t.weight",
	"created_at":             "t.created_at",
	"updated_at":             "t.updated_at",
}

// IsOrderable reports whether tasks can be ordered by field. A leading
// "-" is accepted.
func IsOrderable(field string) bool {
	_, ok := orderColumns[strings.TrimPrefix(field, "-")]
	return ok
}

// editableColumns are the task columns UpdateFields may write.
var editableColumns = map[string]bool{
	"title":                  true,
	"description":            true,
	"sequence":               true,
	"assigned_to":            true,
	"target_start_date":      true,
	"target_completion_date": true,
	"completion_percentage":  true,
	"weight":                 true,
}

// TaskRepository handles task persistence operations.
type TaskRepository struct {
	db DBTX
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

// NewTask holds the columns of a task being inserted.
type NewTask struct {
	Parent               *int64
	Sequence             int
	JobOrder             string
	Department           domain.Department
	TaskType             domain.TaskType
	Title                string
	Description          string
	QCRequired           bool
	PlanningItemID       *int64
	AssignedTo           *int64
	TargetStartDate      *domain.Date
	TargetCompletionDate *domain.Date
	Weight               *float64
	CreatedAt            time.Time
}

// Create inserts a task and returns its id.
func (r *TaskRepository) Create(t *NewTask) (int64, error) {
	taskType := t.TaskType
	if taskType == "" {
		taskType = domain.TaskTypeGeneric
	}
	now := formatTime(t.CreatedAt)

	result, err := r.db.Exec(`
		INSERT INTO tasks (parent_id, sequence, job_order, department, task_type, title, description,
		                   qc_required, planning_item_id, assigned_to, target_start_date,
		                   target_completion_date, weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.Parent,
		t.Sequence,
		t.JobOrder,
		string(t.Department),
		string(taskType),
		t.Title,
		t.Description,
		boolToInt(t.QCRequired),
		t.PlanningItemID,
		t.AssignedTo,
		dateValue(t.TargetStartDate),
		dateValue(t.TargetCompletionDate),
		t.Weight,
		now,
		now,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(id int64) (*domain.Task, error) {
	row := r.db.QueryRow(taskSelect+" WHERE t.id = ?", id)
	return scanTask(row)
}

// List retrieves one page of tasks matching the filter and the total
// number of matches.
func (r *TaskRepository) List(f domain.TaskFilter) ([]*domain.Task, int, error) {
	where, args := filterClause(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tasks t"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, pageSize := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}

	query := taskSelect + where + orderClause(f.Ordering) + " LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}
	return tasks, total, rows.Err()
}

// NextSequence returns the sequence number after the last sibling. Root
// tasks are numbered per job order.
func (r *TaskRepository) NextSequence(parent *int64, jobOrder string) (int, error) {
	var last sql.NullInt64
	var err error
	if parent != nil {
		err = r.db.QueryRow("SELECT MAX(sequence) FROM tasks WHERE parent_id = ?", *parent).Scan(&last)
	} else {
		err = r.db.QueryRow("SELECT MAX(sequence) FROM tasks WHERE parent_id IS NULL AND job_order = ?", jobOrder).Scan(&last)
	}
	if err != nil {
		return 0, err
	}
	return int(last.Int64) + 1, nil
}

// UpdateFields writes the given columns. Keys must be editable columns.
func (r *TaskRepository) UpdateFields(id int64, cols map[string]interface{}, now time.Time) error {
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]interface{}, 0, len(cols)+2)
	for _, name := range slices.Sorted(maps.Keys(cols)) {
		if !editableColumns[name] {
			return fmt.Errorf("column %s is not editable", name)
		}
		sets = append(sets, name+" = ?")
		args = append(args, cols[name])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(now), id)

	result, err := r.db.Exec("UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// TaskState is the lifecycle bookkeeping of a task, including the columns
// that are never served.
type TaskState struct {
	Status          domain.TaskStatus
	PreviousStatus  domain.TaskStatus
	BlockedReason   string
	CompletedAt     *time.Time
	CompletedBy     string
	AutoCompletedBy int64
}

// State loads the lifecycle bookkeeping of a task.
func (r *TaskRepository) State(id int64) (*TaskState, error) {
	var s TaskState
	var status string
	var previous, completedAt, completedBy sql.NullString
	var autoBy sql.NullInt64

	err := r.db.QueryRow(`
		SELECT status, previous_status, blocked_reason, completed_at, completed_by, auto_completed_by
		FROM tasks WHERE id = ?
	`, id).Scan(&status, &previous, &s.BlockedReason, &completedAt, &completedBy, &autoBy)
	if err != nil {
		return nil, err
	}

	s.Status = domain.TaskStatus(status)
	s.PreviousStatus = domain.TaskStatus(previous.String)
	s.CompletedAt = parseNullTime(completedAt)
	s.CompletedBy = completedBy.String
	s.AutoCompletedBy = autoBy.Int64
	return &s, nil
}

// SaveState writes the lifecycle bookkeeping of a task.
func (r *TaskRepository) SaveState(id int64, s *TaskState, now time.Time) error {
	var previous, completedBy *string
	if s.PreviousStatus != "" {
		p := string(s.PreviousStatus)
		previous = &p
	}
	if s.CompletedBy != "" {
		completedBy = &s.CompletedBy
	}
	var autoBy *int64
	if s.AutoCompletedBy != 0 {
		autoBy = &s.AutoCompletedBy
	}

	result, err := r.db.Exec(`
		UPDATE tasks
		SET status = ?, previous_status = ?, blocked_reason = ?, completed_at = ?,
		    completed_by = ?, auto_completed_by = ?, updated_at = ?
		WHERE id = ?
	`,
		string(s.Status),
		previous,
		s.BlockedReason,
		formatTimePtr(s.CompletedAt),
		completedBy,
		autoBy,
		formatTime(now),
		id,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetAssignee changes the assignee of a task.
func (r *TaskRepository) SetAssignee(id int64, userID *int64, now time.Time) error {
	return r.UpdateFields(id, map[string]interface{}{"assigned_to": userID}, now)
}

// OpenSubtasks counts the subtasks of parent that are neither completed
// nor skipped.
func (r *TaskRepository) OpenSubtasks(parent int64) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM tasks
		WHERE parent_id = ? AND status NOT IN ('completed', 'skipped')
	`, parent).Scan(&n)
	return n, err
}

// OpenRoots counts the root tasks of a job order that are neither
// completed nor skipped.
func (r *TaskRepository) OpenRoots(jobOrder string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM tasks
		WHERE parent_id IS NULL AND job_order = ? AND status NOT IN ('completed', 'skipped')
	`, jobOrder).Scan(&n)
	return n, err
}

// AutoCompletedBy returns the tasks whose completion was triggered by id.
func (r *TaskRepository) AutoCompletedBy(id int64) ([]int64, error) {
	return r.ids("SELECT id FROM tasks WHERE auto_completed_by = ? ORDER BY id", id)
}

// ByPlanningItem returns the tasks delivering a planning request item.
func (r *TaskRepository) ByPlanningItem(itemID int64) ([]int64, error) {
	return r.ids("SELECT id FROM tasks WHERE planning_item_id = ? ORDER BY id", itemID)
}

func (r *TaskRepository) ids(query string, args ...interface{}) ([]int64, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func filterClause(f domain.TaskFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.JobOrder != "" {
		conds = append(conds, "t.job_order = ?")
		args = append(args, f.JobOrder)
	}
	if len(f.Departments) > 0 {
		conds = append(conds, "t.department IN ("+placeholders(len(f.Departments))+")")
		for _, d := range f.Departments {
			args = append(args, string(d))
		}
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, "t.status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}
	if f.Unassigned {
		conds = append(conds, "t.assigned_to IS NULL")
	} else if f.AssignedTo != nil {
		conds = append(conds, "t.assigned_to = ?")
		args = append(args, *f.AssignedTo)
	}
	if n, ok := f.Parent.Int64(); ok && n != 0 {
		conds = append(conds, "t.parent_id = ?")
		args = append(args, n)
	}
	if f.MainOnly {
		conds = append(conds, "t.parent_id IS NULL")
	}
	if f.Blocked != nil {
		if *f.Blocked {
			conds = append(conds, "t.status = 'blocked'")
		} else {
			conds = append(conds, "t.status != 'blocked'")
		}
	}
	if f.Search != "" {
		conds = append(conds, "(t.title LIKE ? OR t.description LIKE ? OR t.job_order LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like, like)
	}
	if f.TargetStart != nil {
		conds = append(conds, "t.target_start_date >= ?")
		args = append(args, f.TargetStart.String())
	}
	if f.TargetFinish != nil {
		conds = append(conds, "t.target_completion_date <= ?")
		args = append(args, f.TargetFinish.String())
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(ordering string) string {
	dir := "ASC"
	if strings.HasPrefix(ordering, "-") {
		dir = "DESC"
	}
	col, ok := orderColumns[strings.TrimPrefix(ordering, "-")]
	if !ok {
		col, dir = "t.sequence", "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, t.id ASC", col, dir)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (*domain.Task, error) {
	var task domain.Task
	var id int64
	var parentID, planningItemID, releaseID, assignedTo, progress sql.NullInt64
	var parentStatus, qcStatus, releaseStatus, revisionReason sql.NullString
	var startDate, finishDate, completedAt, completedBy sql.NullString
	var weight sql.NullFloat64
	var department, taskType, status string
	var qcRequired, delivered int
	var createdAt, updatedAt string

	err := row.Scan(
		&id,
		&parentID,
		&task.Sequence,
		&task.JobOrder,
		&task.JobOrderTitle,
		&department,
		&taskType,
		&task.Title,
		&task.Description,
		&status,
		&task.BlockedReason,
		&parentStatus,
		&task.SubtasksCount,
		&qcRequired,
		&qcStatus,
		&planningItemID,
		&delivered,
		&releaseID,
		&releaseStatus,
		&revisionReason,
		&assignedTo,
		&startDate,
		&finishDate,
		&progress,
		&weight,
		&completedAt,
		&completedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.ID = domain.NumericID(id)
	if parentID.Valid {
		task.Parent = domain.NumericID(parentID.Int64)
	}
	task.Department = domain.Department(department)
	task.TaskType = domain.TaskType(taskType)
	task.Status = domain.TaskStatus(status)
	task.CanStart = !parentID.Valid || domain.TaskStatus(parentStatus.String) == domain.StatusInProgress

	task.QCRequired = qcRequired != 0
	task.QCStatus = qcStatus.String
	task.HasQCApproval = domain.QCReviewStatus(qcStatus.String) == domain.QCApproved
	task.PlanningItemID = nullInt64(planningItemID)
	task.IsDelivered = delivered != 0

	if releaseID.Valid {
		task.CurrentReleaseID = nullInt64(releaseID)
		switch domain.ReleaseStatus(releaseStatus.String) {
		case domain.ReleaseInRevision:
			task.IsUnderRevision = true
			task.ActiveRevisionReleaseID = nullInt64(releaseID)
		case domain.ReleaseRevisionRequested:
			task.HasPendingRevisionRequest = true
			task.PendingRevisionReason = revisionReason.String
		}
	}

	task.AssignedTo = nullInt64(assignedTo)
	task.TargetStartDate = parseNullDate(startDate)
	task.TargetCompletionDate = parseNullDate(finishDate)
	if progress.Valid {
		p := int(progress.Int64)
		task.CompletionPercentage = &p
	}
	if weight.Valid {
		w := weight.Float64
		task.Weight = &w
	}

	task.CompletedAt = parseNullTime(completedAt)
	task.CompletedBy = completedBy.String
	task.CreatedAt = parseTime(createdAt)
	task.UpdatedAt = parseTime(updatedAt)

	return &task, nil
}

func dateValue(d *domain.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseNullDate(s sql.NullString) *domain.Date {
	if !s.Valid {
		return nil
	}
	d, err := domain.ParseDate(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
