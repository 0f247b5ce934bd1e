package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/logging"
	"github.com/airyra/taskboard/internal/metrics"
)

// maxChildPages bounds the page loop of Children against a server that
// keeps reporting a larger count than it returns.
const maxChildPages = 50

// Gateway is the only component that talks to the Repository. It turns
// board-level requests into list filters and counts what it fetches.
type Gateway struct {
	repo    Repository
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewGateway creates a gateway over repo. m and logger may be nil.
func NewGateway(repo Repository, m *metrics.Collector, logger *slog.Logger) *Gateway {
	return &Gateway{
		repo:    repo,
		metrics: m,
		logger:  logging.OrDiscard(logger),
	}
}

// Roots fetches one page of top-level tasks for q.
func (g *Gateway) Roots(ctx context.Context, q domain.Query) (*domain.TaskPage, error) {
	g.metrics.RecordRootFetch()

	page, err := g.repo.ListTasks(ctx, q.Filter())
	if err != nil {
		g.logger.Warn("root fetch failed", "department", q.Department(), "page", q.Page(), "error", err)
		return nil, err
	}
	g.logger.Debug("root page fetched", "department", q.Department(), "page", q.Page(), "count", page.Count, "rows", len(page.Results))
	return page, nil
}

// Children fetches every child of parent in sequence order, following
// pagination until the reported count is reached.
func (g *Gateway) Children(ctx context.Context, parent domain.TaskID, department domain.Department) ([]*domain.Task, error) {
	g.metrics.RecordSubtreeFetch()

	filter := domain.TaskFilter{
		Parent:   parent,
		Ordering: domain.DefaultSortField,
		PageSize: domain.MaxPageSize,
	}
	if department != "" {
		filter.Departments = []domain.Department{department}
	}

	var children []*domain.Task
	for page := 1; page <= maxChildPages; page++ {
		filter.Page = page
		res, err := g.repo.ListTasks(ctx, filter)
		if err != nil {
			g.logger.Warn("subtree fetch failed", "parent", parent, "page", page, "error", err)
			return nil, err
		}
		children = append(children, res.Results...)
		if len(res.Results) == 0 || len(children) >= res.Count {
			break
		}
	}

	g.logger.Debug("subtree fetched", "parent", parent, "children", len(children))
	if children == nil {
		children = []*domain.Task{}
	}
	return children, nil
}

// Task fetches a fresh snapshot of one task.
func (g *Gateway) Task(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	task, err := g.repo.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refetch task %s: %w", id, err)
	}
	return task, nil
}

// Patch sends a partial update of one task.
func (g *Gateway) Patch(ctx context.Context, id domain.TaskID, fields map[string]interface{}) (*domain.Task, error) {
	return g.repo.PatchTask(ctx, id, fields)
}

// Invoke triggers a lifecycle transition and returns the server snapshot.
func (g *Gateway) Invoke(ctx context.Context, id domain.TaskID, action domain.Action, payload interface{}) (*client.ActionResult, error) {
	return g.repo.InvokeAction(ctx, id, action, payload)
}

// Create creates one task.
func (g *Gateway) Create(ctx context.Context, input client.CreateTaskInput) (*domain.Task, error) {
	return g.repo.CreateTask(ctx, input)
}

// BulkCreate creates a tree of subtasks under parent.
func (g *Gateway) BulkCreate(ctx context.Context, parent domain.TaskID, tree []client.TaskNode) (*client.BulkCreateResult, error) {
	return g.repo.BulkCreateSubtasks(ctx, parent, tree)
}
