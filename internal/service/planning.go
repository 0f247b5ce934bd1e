package service

import (
	"database/sql"
	"time"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/store/sqlite"
)

// PlanningService handles planning request items and job orders.
type PlanningService struct {
	db *sql.DB
}

// NewPlanningService creates a new PlanningService.
func NewPlanningService(db *sql.DB) *PlanningService {
	return &PlanningService{db: db}
}

// CreateItem registers a planning request item.
func (s *PlanningService) CreateItem(itemCode, itemName string) (*domain.PlanningItem, error) {
	repo := sqlite.NewPlanningRepository(s.db)
	id, err := repo.Create(itemCode, itemName)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	item, err := repo.GetByID(id)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return item, nil
}

// MarkDelivered records the delivery of an item and completes every open
// procurement task linked to it. Delivering twice is a no-op.
func (s *PlanningService) MarkDelivered(itemID int64, agentID string) (*domain.PlanningItem, error) {
	var item *domain.PlanningItem
	err := sqlite.InTx(s.db, func(r *sqlite.Repos) error {
		current, err := r.Planning.GetByID(itemID)
		if err != nil {
			return lookup(err, func() *domain.DomainError { return domain.NewPlanningItemNotFoundError(itemID) })
		}
		if current.IsDelivered {
			item = current
			return nil
		}

		now := time.Now().UTC()
		if err := r.Planning.MarkDelivered(itemID, agentID, now); err != nil {
			return err
		}

		linked, err := r.Tasks.ByPlanningItem(itemID)
		if err != nil {
			return err
		}
		for _, id := range linked {
			task, err := getTask(r, id)
			if err != nil {
				return err
			}
			if task.Status.IsFinished() {
				continue
			}
			st, err := r.Tasks.State(id)
			if err != nil {
				return err
			}
			if err := completeTask(r, task, st, agentID, 0, now); err != nil {
				return err
			}
		}

		item, err = r.Planning.GetByID(itemID)
		return err
	})
	if err != nil {
		return nil, asDomain(err)
	}
	return item, nil
}

// JobOrder retrieves a job order.
func (s *PlanningService) JobOrder(jobNo string) (*domain.JobOrder, error) {
	jo, err := sqlite.NewJobOrderRepository(s.db).GetByNo(jobNo)
	if err != nil {
		return nil, asDomain(lookup(err, func() *domain.DomainError { return domain.NewJobOrderNotFoundError(jobNo) }))
	}
	return jo, nil
}
