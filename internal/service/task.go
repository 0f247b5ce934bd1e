package service

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/store/sqlite"
)

// TaskService handles task business logic.
type TaskService struct {
	db *sql.DB
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

// CreateTaskInput contains the input for creating a task.
type CreateTaskInput struct {
	JobOrder             string
	Department           domain.Department
	TaskType             domain.TaskType
	Title                string
	Description          string
	Parent               *int64
	Sequence             int
	AssignedTo           *int64
	TargetStartDate      *domain.Date
	TargetCompletionDate *domain.Date
	Weight               *float64
	QCRequired           bool
	PlanningItemID       *int64
}

// Create creates a new task. Subtasks inherit the job order and the
// department of their parent.
func (s *TaskService) Create(input CreateTaskInput, agentID string) (*domain.Task, error) {
	var task *domain.Task
	err := sqlite.InTx(s.db, func(r *sqlite.Repos) error {
		now := time.Now().UTC()

		if input.Parent != nil {
			parent, err := openParent(r, *input.Parent)
			if err != nil {
				return err
			}
			switch {
			case input.JobOrder == "":
				input.JobOrder = parent.JobOrder
			case input.JobOrder != parent.JobOrder:
				return domain.NewValidationError([]string{"job_order: must match the parent task."})
			}
			if input.Department == "" {
				input.Department = parent.Department
			}
		}

		var details []string
		if input.JobOrder == "" {
			details = append(details, "job_order: This field is required.")
		}
		if input.Department == "" {
			details = append(details, "department: This field is required.")
		}
		if len(details) > 0 {
			return domain.NewValidationError(details)
		}

		if input.PlanningItemID != nil {
			if _, err := r.Planning.GetByID(*input.PlanningItemID); err != nil {
				return lookup(err, func() *domain.DomainError {
					return domain.NewPlanningItemNotFoundError(*input.PlanningItemID)
				})
			}
		}

		if err := r.JobOrders.Ensure(input.JobOrder, now); err != nil {
			return err
		}

		if input.Sequence <= 0 {
			seq, err := r.Tasks.NextSequence(input.Parent, input.JobOrder)
			if err != nil {
				return err
			}
			input.Sequence = seq
		}

		id, err := r.Tasks.Create(&sqlite.NewTask{
			Parent:               input.Parent,
			Sequence:             input.Sequence,
			JobOrder:             input.JobOrder,
			Department:           input.Department,
			TaskType:             input.TaskType,
			Title:                input.Title,
			Description:          input.Description,
			QCRequired:           input.QCRequired,
			PlanningItemID:       input.PlanningItemID,
			AssignedTo:           input.AssignedTo,
			TargetStartDate:      input.TargetStartDate,
			TargetCompletionDate: input.TargetCompletionDate,
			Weight:               input.Weight,
			CreatedAt:            now,
		})
		if err != nil {
			return err
		}

		if err := logCreate(r, id, agentID, now); err != nil {
			return err
		}

		task, err = r.Tasks.GetByID(id)
		return err
	})
	if err != nil {
		return nil, asDomain(err)
	}
	return task, nil
}

// SubtaskNode is one node of a subtask tree created in bulk.
type SubtaskNode struct {
	Title       string
	Description string
	TaskType    domain.TaskType
	Weight      *float64
	AssignedTo  *int64
	Children    []SubtaskNode
}

// BulkCreate creates a tree of subtasks under parent in one transaction
// and returns the created tasks in tree order.
func (s *TaskService) BulkCreate(parentID int64, nodes []SubtaskNode, agentID string) ([]*domain.Task, error) {
	created := []*domain.Task{}
	err := sqlite.InTx(s.db, func(r *sqlite.Repos) error {
		parent, err := openParent(r, parentID)
		if err != nil {
			return err
		}
		if !domain.CanAddSubtask(parent) {
			return domain.NewValidationError([]string{"Subtasks cannot be added to this task."})
		}

		now := time.Now().UTC()
		var insert func(parent *domain.Task, nodes []SubtaskNode) error
		insert = func(parent *domain.Task, nodes []SubtaskNode) error {
			pid := taskKey(parent)
			for _, n := range nodes {
				seq, err := r.Tasks.NextSequence(&pid, parent.JobOrder)
				if err != nil {
					return err
				}
				id, err := r.Tasks.Create(&sqlite.NewTask{
					Parent:      &pid,
					Sequence:    seq,
					JobOrder:    parent.JobOrder,
					Department:  parent.Department,
					TaskType:    n.TaskType,
					Title:       n.Title,
					Description: n.Description,
					AssignedTo:  n.AssignedTo,
					Weight:      n.Weight,
					CreatedAt:   now,
				})
				if err != nil {
					return err
				}
				if err := logCreate(r, id, agentID, now); err != nil {
					return err
				}
				task, err := r.Tasks.GetByID(id)
				if err != nil {
					return err
				}
				created = append(created, task)
				if err := insert(task, n.Children); err != nil {
					return err
				}
			}
			return nil
		}
		return insert(parent, nodes)
	})
	if err != nil {
		return nil, asDomain(err)
	}
	return created, nil
}

// Get retrieves a task by ID.
func (s *TaskService) Get(id int64) (*domain.Task, error) {
	task, err := getTask(sqlite.NewRepos(s.db), id)
	if err != nil {
		return nil, asDomain(err)
	}
	return task, nil
}

// List retrieves one page of tasks and the total number of matches.
func (s *TaskService) List(filter domain.TaskFilter) ([]*domain.Task, int, error) {
	tasks, total, err := sqlite.NewTaskRepository(s.db).List(filter)
	if err != nil {
		return nil, 0, domain.NewInternalError(err)
	}
	return tasks, total, nil
}

// Nullable is a patch value that may be explicitly cleared: Set reports
// that the field was present, a nil Value clears it.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// TaskPatch holds the fields of a partial task update. Nil pointers are
// left untouched.
type TaskPatch struct {
	Title                *string
	Description          *string
	Sequence             *int
	CompletionPercentage *int
	Weight               *float64
	AssignedTo           Nullable[int64]
	TargetStartDate      Nullable[domain.Date]
	TargetCompletionDate Nullable[domain.Date]
}

// Patch applies a partial update and records every changed field.
func (s *TaskService) Patch(id int64, patch TaskPatch, agentID string) (*domain.Task, error) {
	var task *domain.Task
	err := sqlite.InTx(s.db, func(r *sqlite.Repos) error {
		current, err := getTask(r, id)
		if err != nil {
			return err
		}
		if patch.Title != nil && !domain.CanEditTitle(current) {
			return domain.NewValidationError([]string{"title: Only subtask titles can be edited."})
		}

		now := time.Now().UTC()
		cols := map[string]interface{}{}
		track := func(field string, oldValue, newValue string, value interface{}) error {
			cols[field] = value
			if oldValue == newValue {
				return nil
			}
			return logChange(r, id, domain.AuditUpdate, field, oldValue, newValue, agentID, now)
		}

		if patch.Title != nil {
			if err := track("title", current.Title, *patch.Title, *patch.Title); err != nil {
				return err
			}
		}
		if patch.Description != nil {
			if err := track("description", current.Description, *patch.Description, *patch.Description); err != nil {
				return err
			}
		}
		if patch.Sequence != nil {
			if err := track("sequence", strconv.Itoa(current.Sequence), strconv.Itoa(*patch.Sequence), *patch.Sequence); err != nil {
				return err
			}
		}
		if patch.CompletionPercentage != nil {
			if err := track("completion_percentage", formatPtr(current.CompletionPercentage), strconv.Itoa(*patch.CompletionPercentage), *patch.CompletionPercentage); err != nil {
				return err
			}
		}
		if patch.Weight != nil {
			if err := track("weight", formatPtr(current.Weight), formatFloat(*patch.Weight), *patch.Weight); err != nil {
				return err
			}
		}
		if patch.AssignedTo.Set {
			if err := track("assigned_to", formatPtr(current.AssignedTo), formatPtr(patch.AssignedTo.Value), patch.AssignedTo.Value); err != nil {
				return err
			}
		}
		if patch.TargetStartDate.Set {
			if err := track("target_start_date", formatPtr(current.TargetStartDate), formatPtr(patch.TargetStartDate.Value), dateColumn(patch.TargetStartDate.Value)); err != nil {
				return err
			}
		}
		if patch.TargetCompletionDate.Set {
			if err := track("target_completion_date", formatPtr(current.TargetCompletionDate), formatPtr(patch.TargetCompletionDate.Value), dateColumn(patch.TargetCompletionDate.Value)); err != nil {
				return err
			}
		}

		if err := r.Tasks.UpdateFields(id, cols, now); err != nil {
			return err
		}
		task, err = r.Tasks.GetByID(id)
		return err
	})
	if err != nil {
		return nil, asDomain(err)
	}
	return task, nil
}

// openParent loads a task that is about to receive subtasks.
func openParent(r *sqlite.Repos, id int64) (*domain.Task, error) {
	parent, err := getTask(r, id)
	if err != nil {
		return nil, err
	}
	if parent.Status.IsFinished() {
		return nil, domain.NewValidationError([]string{"Parent is closed."})
	}
	return parent, nil
}

func logCreate(r *sqlite.Repos, id int64, agentID string, now time.Time) error {
	entry := domain.NewAuditEntry(domain.NumericID(id), domain.AuditCreate, agentID)
	entry.ChangedAt = now
	return r.Audit.Log(entry)
}

func dateColumn(d *domain.Date) *string {
	if d == nil {
		return nil
	}
	return strPtr(d.String())
}

func formatPtr[T any](p *T) string {
	if p == nil {
		return ""
	}
	if f, ok := any(*p).(float64); ok {
		return formatFloat(f)
	}
	return fmt.Sprint(*p)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
