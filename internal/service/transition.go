package service

import (
	"database/sql"
	"strings"
	"time"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/store/sqlite"
)

// TransitionService handles task status transitions.
type TransitionService struct {
	db *sql.DB
}

// NewTransitionService creates a new TransitionService.
func NewTransitionService(db *sql.DB) *TransitionService {
	return &TransitionService{db: db}
}

// change carries one transition through its transaction.
type change struct {
	r     *sqlite.Repos
	task  *domain.Task
	state *sqlite.TaskState
	agent string
	now   time.Time
}

// run loads the task, applies fn and returns the task as stored afterwards.
func (s *TransitionService) run(id int64, agent string, fn func(c *change) error) (*domain.Task, error) {
	var out *domain.Task
	err := sqlite.InTx(s.db, func(r *sqlite.Repos) error {
		task, err := getTask(r, id)
		if err != nil {
			return err
		}
		st, err := r.Tasks.State(id)
		if err != nil {
			return err
		}

		c := &change{r: r, task: task, state: st, agent: agent, now: time.Now().UTC()}
		if err := fn(c); err != nil {
			return err
		}

		out, err = r.Tasks.GetByID(id)
		return err
	})
	if err != nil {
		return nil, asDomain(err)
	}
	return out, nil
}

// Start starts a pending task (pending -> in_progress). Subtasks start only
// once their parent is in progress.
func (s *TransitionService) Start(id int64, agent string) (*domain.Task, error) {
	return s.run(id, agent, func(c *change) error {
		if c.state.Status != domain.StatusPending {
			return domain.NewInvalidTransitionError(c.state.Status, domain.StatusInProgress)
		}
		if !c.task.CanStart {
			return domain.NewCannotStartError(c.task.ID)
		}
		return setStatus(c.r, taskKey(c.task), c.state, domain.StatusInProgress, c.agent, c.now)
	})
}

// Complete completes a task (in_progress -> completed). A task that
// requires QC needs an approved review first.
func (s *TransitionService) Complete(id int64, agent string) (*domain.Task, error) {
	return s.run(id, agent, func(c *change) error {
		if c.state.Status != domain.StatusInProgress {
			return domain.NewInvalidTransitionError(c.state.Status, domain.StatusCompleted)
		}
		if c.task.QCRequired && !c.task.HasQCApproval {
			return domain.NewQCApprovalRequiredError(c.task.ID)
		}
		return completeTask(c.r, c.task, c.state, c.agent, 0, c.now)
	})
}

// Uncomplete reopens a completed task (completed -> in_progress) and
// reverts the parent and job order completions it triggered.
func (s *TransitionService) Uncomplete(id int64, agent string) (*domain.Task, error) {
	return s.run(id, agent, func(c *change) error {
		if c.state.Status != domain.StatusCompleted {
			return domain.NewInvalidTransitionError(c.state.Status, domain.StatusInProgress)
		}
		return reopenTask(c.r, taskKey(c.task), c.state, c.agent, c.now)
	})
}

// Skip skips an open task and remembers the status it had.
func (s *TransitionService) Skip(id int64, agent string) (*domain.Task, error) {
	return s.run(id, agent, func(c *change) error {
		if c.state.Status.IsFinished() {
			return domain.NewInvalidTransitionError(c.state.Status, domain.StatusSkipped)
		}
		c.state.PreviousStatus = c.state.Status
		return setStatus(c.r, taskKey(c.task), c.state, domain.StatusSkipped, c.agent, c.now)
	})
}

// Unskip restores the status a skipped task had.
func (s *TransitionService) Unskip(id int64, agent string) (*domain.Task, error) {
	return s.run(id, agent, func(c *change) error {
		to := restoredStatus(c.state)
		if c.state.Status != domain.StatusSkipped {
			return domain.NewInvalidTransitionError(c.state.Status, to)
		}
		c.state.PreviousStatus = ""
		return setStatus(c.r, taskKey(c.task), c.state, to, c.agent, c.now)
	})
}

// Block blocks a pending or in-progress task. A reason is required.
func (s *TransitionService) Block(id int64, reason, agent string) (*domain.Task, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError([]string{"reason: This field is required."})
	}

	return s.run(id, agent, func(c *change) error {
		if c.state.Status != domain.StatusPending && c.state.Status != domain.StatusInProgress {
			return domain.NewInvalidTransitionError(c.state.Status, domain.StatusBlocked)
		}
		c.state.PreviousStatus = c.state.Status
		c.state.BlockedReason = reason
		if err := setStatus(c.r, taskKey(c.task), c.state, domain.StatusBlocked, c.agent, c.now); err != nil {
			return err
		}
		return logChange(c.r, taskKey(c.task), domain.AuditUpdate, "blocked_reason", "", reason, c.agent, c.now)
	})
}

// Unblock restores the status a blocked task had.
func (s *TransitionService) Unblock(id int64, agent string) (*domain.Task, error) {
	return s.run(id, agent, func(c *change) error {
		to := restoredStatus(c.state)
		if c.state.Status != domain.StatusBlocked {
			return domain.NewInvalidTransitionError(c.state.Status, to)
		}
		c.state.PreviousStatus = ""
		c.state.BlockedReason = ""
		return setStatus(c.r, taskKey(c.task), c.state, to, c.agent, c.now)
	})
}

func restoredStatus(st *sqlite.TaskState) domain.TaskStatus {
	if st.PreviousStatus != "" {
		return st.PreviousStatus
	}
	return domain.StatusPending
}

// setStatus stores the new status and records it in the audit log.
func setStatus(r *sqlite.Repos, id int64, st *sqlite.TaskState, to domain.TaskStatus, agent string, now time.Time) error {
	from := st.Status
	st.Status = to
	if err := r.Tasks.SaveState(id, st, now); err != nil {
		return err
	}
	return logChange(r, id, domain.AuditTransition, "status", string(from), string(to), agent, now)
}

// completeTask marks the task completed and rolls completion up: the
// parent completes with its last open subtask, the job order with its last
// open root task. A parent that requires QC without an approved review
// stays in progress. autoBy names the task whose completion triggered this
// one, zero for a direct completion.
func completeTask(r *sqlite.Repos, task *domain.Task, st *sqlite.TaskState, agent string, autoBy int64, now time.Time) error {
	id := taskKey(task)
	st.PreviousStatus = ""
	st.BlockedReason = ""
	st.CompletedAt = &now
	st.CompletedBy = agent
	st.AutoCompletedBy = autoBy
	if err := setStatus(r, id, st, domain.StatusCompleted, agent, now); err != nil {
		return err
	}

	if !task.IsSubtask() {
		open, err := r.Tasks.OpenRoots(task.JobOrder)
		if err != nil || open > 0 {
			return err
		}
		_, err = r.JobOrders.Complete(task.JobOrder, id, now)
		return err
	}

	parentID, _ := task.Parent.Int64()
	open, err := r.Tasks.OpenSubtasks(parentID)
	if err != nil || open > 0 {
		return err
	}
	parent, err := getTask(r, parentID)
	if err != nil {
		return err
	}
	if parent.Status != domain.StatusInProgress {
		return nil
	}
	if parent.QCRequired && !parent.HasQCApproval {
		return nil
	}
	pst, err := r.Tasks.State(parentID)
	if err != nil {
		return err
	}
	return completeTask(r, parent, pst, agent, id, now)
}

// reopenTask moves a completed task back to in progress and reverts every
// completion it triggered, transitively.
func reopenTask(r *sqlite.Repos, id int64, st *sqlite.TaskState, agent string, now time.Time) error {
	st.CompletedAt = nil
	st.CompletedBy = ""
	st.AutoCompletedBy = 0
	if err := setStatus(r, id, st, domain.StatusInProgress, agent, now); err != nil {
		return err
	}

	if err := r.JobOrders.ReopenCompletedBy(id); err != nil {
		return err
	}

	triggered, err := r.Tasks.AutoCompletedBy(id)
	if err != nil {
		return err
	}
	for _, tid := range triggered {
		tst, err := r.Tasks.State(tid)
		if err != nil {
			return err
		}
		if tst.Status != domain.StatusCompleted {
			continue
		}
		if err := reopenTask(r, tid, tst, agent, now); err != nil {
			return err
		}
	}
	return nil
}
