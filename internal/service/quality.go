package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/store/sqlite"
)

// QCService handles quality-control reviews.
type QCService struct {
	db *sql.DB
}

// NewQCService creates a new QCService.
func NewQCService(db *sql.DB) *QCService {
	return &QCService{db: db}
}

// List returns the reviews of a task, oldest first.
func (s *QCService) List(taskID int64) ([]*domain.QCReview, error) {
	reviews, err := sqlite.NewReviewRepository(s.db).ListByTask(taskID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return reviews, nil
}

// Submit requests an inspection of an open task that requires QC. Only
// one review may be pending at a time.
func (s *QCService) Submit(taskID int64, partData json.RawMessage, agentID string) (*domain.QCReview, error) {
	var review *domain.QCReview
	err := sqlite.InTx(s.db, func(r *sqlite.Repos) error {
		task, err := getTask(r, taskID)
		if err != nil {
			return err
		}
		if !task.QCRequired {
			return domain.NewValidationError([]string{"task_id: This task does not require QC."})
		}
		if task.Status.IsFinished() {
			return domain.NewValidationError([]string{"task_id: This task is closed."})
		}
		pending, err := r.Reviews.HasPending(taskID)
		if err != nil {
			return err
		}
		if pending {
			return domain.NewValidationError([]string{"A QC review is already pending for this task."})
		}

		now := time.Now().UTC()
		id, err := r.Reviews.Create(taskID, partData, now)
		if err != nil {
			return err
		}
		if err := logChange(r, taskID, domain.AuditQC, "qc_status", task.QCStatus, string(domain.QCPending), agentID, now); err != nil {
			return err
		}
		review, err = r.Reviews.GetByID(id)
		return err
	})
	if err != nil {
		return nil, asDomain(err)
	}
	return review, nil
}

// Decide approves or rejects a pending review.
func (s *QCService) Decide(reviewID int64, approve bool, comment, agentID string) (*domain.QCReview, error) {
	var review *domain.QCReview
	err := sqlite.InTx(s.db, func(r *sqlite.Repos) error {
		current, err := r.Reviews.GetByID(reviewID)
		if err != nil {
			return lookup(err, func() *domain.DomainError { return domain.NewReviewNotFoundError(reviewID) })
		}
		if current.Status != domain.QCPending {
			return domain.NewValidationError([]string{
				fmt.Sprintf("QC review %d has already been decided.", reviewID),
			})
		}

		decision := domain.QCRejected
		if approve {
			decision = domain.QCApproved
		}
		now := time.Now().UTC()
		if err := r.Reviews.Decide(reviewID, decision, comment, agentID, now); err != nil {
			return err
		}
		taskID, _ := current.Task.Int64()
		if err := logChange(r, taskID, domain.AuditQC, "qc_status", string(domain.QCPending), string(decision), agentID, now); err != nil {
			return err
		}
		review, err = r.Reviews.GetByID(reviewID)
		return err
	})
	if err != nil {
		return nil, asDomain(err)
	}
	return review, nil
}
