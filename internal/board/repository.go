// Package board keeps the client-side view of a department's task tree:
// the root page, lazily fetched subtrees, the expanded rows and the flat
// list of rows derived from them.
//
// A Board is owned by a single goroutine. Network calls may run elsewhere
// through the Begin/Complete pairs; responses that arrive after a newer
// request superseded them are discarded with domain.ErrStaleResponse.
package board

import (
	"context"

	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

// Repository is the task service as seen by the board and the lifecycle
// engine. *client.Client implements it.
type Repository interface {
	ListTasks(ctx context.Context, filter domain.TaskFilter) (*domain.TaskPage, error)
	GetTask(ctx context.Context, id domain.TaskID) (*domain.Task, error)
	CreateTask(ctx context.Context, input client.CreateTaskInput) (*domain.Task, error)
	BulkCreateSubtasks(ctx context.Context, parent domain.TaskID, tree []client.TaskNode) (*client.BulkCreateResult, error)
	PatchTask(ctx context.Context, id domain.TaskID, fields map[string]interface{}) (*domain.Task, error)
	InvokeAction(ctx context.Context, id domain.TaskID, action domain.Action, payload interface{}) (*client.ActionResult, error)
}

var _ Repository = (*client.Client)(nil)
