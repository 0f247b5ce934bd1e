package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/store/sqlite"
)

// ReleaseService handles drawing releases and their revision cycle.
type ReleaseService struct {
	db *sql.DB
}

// NewReleaseService creates a new ReleaseService.
func NewReleaseService(db *sql.DB) *ReleaseService {
	return &ReleaseService{db: db}
}

// CreateReleaseInput contains the input for publishing a release.
type CreateReleaseInput struct {
	Task     int64
	JobOrder string
	Form     domain.ReleaseForm
}

// RevisionOutcome is the result of a revision step.
type RevisionOutcome struct {
	Message    string
	Release    *domain.Release
	NewRelease *domain.Release
}

// Create publishes a release for a design task. The previous release of
// the task is superseded; a task with an open revision must complete it
// instead.
func (s *ReleaseService) Create(input CreateReleaseInput, agentID string) (*domain.Release, error) {
	if details := input.Form.Validate(); len(details) > 0 {
		return nil, domain.NewValidationError(details)
	}

	var rel *domain.Release
	err := sqlite.InTx(s.db, func(r *sqlite.Repos) error {
		task, err := getTask(r, input.Task)
		if err != nil {
			return err
		}
		if task.Department != domain.DepartmentDesign {
			return domain.NewValidationError([]string{"task: Releases can only be published for design tasks."})
		}
		switch {
		case input.JobOrder == "":
			input.JobOrder = task.JobOrder
		case input.JobOrder != task.JobOrder:
			return domain.NewValidationError([]string{"job_order: must match the task."})
		}

		if current, err := r.Releases.CurrentForTask(input.Task); err == nil {
			if current.Status != domain.ReleaseReleased {
				return domain.NewValidationError([]string{
					fmt.Sprintf("Release %d has an open revision.", current.ID),
				})
			}
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		rel, err = publish(r, input.JobOrder, input.Task, input.Form, agentID, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, asDomain(err)
	}
	return rel, nil
}

// Current returns the live release of a job order.
func (s *ReleaseService) Current(jobOrder string) (*domain.Release, error) {
	rel, err := sqlite.NewReleaseRepository(s.db).CurrentForJobOrder(jobOrder)
	if err != nil {
		return nil, asDomain(lookup(err, func() *domain.DomainError {
			return &domain.DomainError{
				Code:    domain.ErrCodeReleaseNotFound,
				Message: fmt.Sprintf("No release found for job order %s", jobOrder),
				Context: map[string]interface{}{"job_order": jobOrder},
			}
		}))
	}
	return rel, nil
}

// RequestRevision asks for a revision of a released drawing set.
func (s *ReleaseService) RequestRevision(id int64, reason, agentID string) (*RevisionOutcome, error) {
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	return s.step(id, agentID, domain.ReleaseReleased, domain.ReleaseRevisionRequested, func(r *sqlite.Repos, rel *domain.Release, now time.Time) (string, error) {
		return "Revision requested", r.Releases.SetStatus(rel.ID, domain.ReleaseRevisionRequested, reason)
	})
}

// ApproveRevision accepts a pending request, reopens the design task and
// optionally reassigns it.
func (s *ReleaseService) ApproveRevision(id int64, assignTo *int64, agentID string) (*RevisionOutcome, error) {
	return s.step(id, agentID, domain.ReleaseRevisionRequested, domain.ReleaseInRevision, func(r *sqlite.Repos, rel *domain.Release, now time.Time) (string, error) {
		if err := r.Releases.SetStatus(rel.ID, domain.ReleaseInRevision, rel.RevisionReason); err != nil {
			return "", err
		}
		if assignTo != nil && !rel.Task.IsZero() {
			taskID, _ := rel.Task.Int64()
			if err := r.Tasks.SetAssignee(taskID, assignTo, now); err != nil {
				return "", err
			}
		}
		return "Revision approved", reopenForRevision(r, rel, agentID, now)
	})
}

// RejectRevision declines a pending request; the release stays current.
func (s *ReleaseService) RejectRevision(id int64, reason, agentID string) (*RevisionOutcome, error) {
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	return s.step(id, agentID, domain.ReleaseRevisionRequested, domain.ReleaseReleased, func(r *sqlite.Repos, rel *domain.Release, now time.Time) (string, error) {
		return "Revision rejected: " + reason, r.Releases.SetStatus(rel.ID, domain.ReleaseReleased, "")
	})
}

// SelfStartRevision opens a revision without an external request.
func (s *ReleaseService) SelfStartRevision(id int64, reason, agentID string) (*RevisionOutcome, error) {
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	return s.step(id, agentID, domain.ReleaseReleased, domain.ReleaseInRevision, func(r *sqlite.Repos, rel *domain.Release, now time.Time) (string, error) {
		if err := r.Releases.SetStatus(rel.ID, domain.ReleaseInRevision, reason); err != nil {
			return "", err
		}
		return "Revision started", reopenForRevision(r, rel, agentID, now)
	})
}

// CompleteRevision supersedes a release under revision with a new one and
// completes the design task.
func (s *ReleaseService) CompleteRevision(id int64, form domain.ReleaseForm, agentID string) (*RevisionOutcome, error) {
	if details := form.Validate(); len(details) > 0 {
		return nil, domain.NewValidationError(details)
	}

	var created *domain.Release
	out, err := s.step(id, agentID, domain.ReleaseInRevision, domain.ReleaseSuperseded, func(r *sqlite.Repos, rel *domain.Release, now time.Time) (string, error) {
		if err := r.Releases.SetStatus(rel.ID, domain.ReleaseSuperseded, rel.RevisionReason); err != nil {
			return "", err
		}
		taskID, _ := rel.Task.Int64()
		nr, err := publish(r, rel.JobOrder, taskID, form, agentID, now)
		if err != nil {
			return "", err
		}
		created = nr

		if taskID == 0 {
			return "Revision completed", nil
		}
		task, err := getTask(r, taskID)
		if err != nil {
			return "", err
		}
		if task.Status != domain.StatusInProgress {
			return "Revision completed", nil
		}
		st, err := r.Tasks.State(taskID)
		if err != nil {
			return "", err
		}
		return "Revision completed", completeTask(r, task, st, agentID, 0, now)
	})
	if err != nil {
		return nil, err
	}
	out.NewRelease = created
	return out, nil
}

type stepFunc func(r *sqlite.Repos, rel *domain.Release, now time.Time) (string, error)

// step runs one revision transition from the given release status.
func (s *ReleaseService) step(id int64, agentID string, from, to domain.ReleaseStatus, fn stepFunc) (*RevisionOutcome, error) {
	out := &RevisionOutcome{}
	err := sqlite.InTx(s.db, func(r *sqlite.Repos) error {
		rel, err := r.Releases.GetByID(id)
		if err != nil {
			return lookup(err, func() *domain.DomainError { return domain.NewReleaseNotFoundError(id) })
		}
		if rel.Status != from {
			return domain.NewInvalidReleaseTransitionError(rel.Status, to)
		}

		now := time.Now().UTC()
		msg, err := fn(r, rel, now)
		if err != nil {
			return err
		}
		if taskID, ok := rel.Task.Int64(); ok && taskID != 0 {
			if err := logChange(r, taskID, domain.AuditRelease, "release_status", string(from), string(to), agentID, now); err != nil {
				return err
			}
		}

		out.Message = msg
		out.Release, err = r.Releases.GetByID(id)
		return err
	})
	if err != nil {
		return nil, asDomain(err)
	}
	return out, nil
}

// publish supersedes the live releases of the task and inserts a new one.
func publish(r *sqlite.Repos, jobOrder string, taskID int64, form domain.ReleaseForm, agentID string, now time.Time) (*domain.Release, error) {
	if err := r.JobOrders.Ensure(jobOrder, now); err != nil {
		return nil, err
	}
	if err := r.Releases.SupersedeForTask(taskID); err != nil {
		return nil, err
	}
	id, err := r.Releases.Create(jobOrder, taskID, form, now)
	if err != nil {
		return nil, err
	}
	if err := logChange(r, taskID, domain.AuditRelease, "revision_code", "", form.RevisionCode, agentID, now); err != nil {
		return nil, err
	}
	return r.Releases.GetByID(id)
}

// reopenForRevision moves a completed design task back to in progress so
// the revision can be completed.
func reopenForRevision(r *sqlite.Repos, rel *domain.Release, agentID string, now time.Time) error {
	taskID, ok := rel.Task.Int64()
	if !ok || taskID == 0 {
		return nil
	}
	st, err := r.Tasks.State(taskID)
	if err != nil {
		return lookup(err, taskNotFound(taskID))
	}
	if st.Status != domain.StatusCompleted {
		return nil
	}
	return reopenTask(r, taskID, st, agentID, now)
}

func requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", domain.NewValidationError([]string{"reason: This field is required."})
	}
	return reason, nil
}
