package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

// AddSubtasks creates a tree of subtasks under parent. The parent snapshot
// is refetched afterwards and, when the sink caches children, its cached
// children are refreshed.
func (e *Engine) AddSubtasks(ctx context.Context, parent *domain.Task, tree []client.TaskNode) (*client.BulkCreateResult, error) {
	if parent == nil || !domain.CanAddSubtask(parent) {
		id := domain.TaskID{}
		status := domain.TaskStatus("")
		if parent != nil {
			id, status = parent.ID, parent.Status
		}
		return nil, domain.NewActionNotAllowedError(id, "add_subtask", status)
	}
	if details := validateTree(tree, ""); len(details) > 0 {
		return nil, domain.NewValidationError(details)
	}

	res, err := e.gateway.BulkCreate(ctx, parent.ID, tree)
	if err != nil {
		return nil, err
	}
	e.logger.Info("subtasks created", "parent", parent.ID, "count", len(res.Tasks))

	e.refreshParent(ctx, parent.ID)
	if r, ok := e.sink.(ChildRefresher); ok {
		if err := r.RefreshChildren(ctx, parent.ID); err != nil {
			e.logger.Warn("child refresh failed", "parent", parent.ID, "error", err)
		}
	}
	return res, nil
}

func validateTree(tree []client.TaskNode, prefix string) []string {
	if len(tree) == 0 && prefix == "" {
		return []string{"at least one subtask is required"}
	}
	var details []string
	for i, n := range tree {
		path := fmt.Sprintf("%s%d", prefix, i+1)
		if strings.TrimSpace(n.Title) == "" {
			details = append(details, "subtask "+path+": title is required")
		}
		if n.Weight != nil && *n.Weight < 0 {
			details = append(details, "subtask "+path+": weight must be zero or greater")
		}
		details = append(details, validateTree(n.Children, path+".")...)
	}
	return details
}
