package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/airyra/taskboard/internal/domain"
)

const tasksPath = "/projects/department-tasks/"

// =============================================================================
// Task CRUD
// =============================================================================

// ListTasks lists one page of tasks matching the filter.
func (c *Client) ListTasks(ctx context.Context, filter domain.TaskFilter) (*domain.TaskPage, error) {
	path := tasksPath
	if params := EncodeFilter(filter); len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	var page domain.TaskPage
	if err := c.get(ctx, path, &page, "list tasks"); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []*domain.Task{}
	}
	return &page, nil
}

// GetTask retrieves a task by ID.
func (c *Client) GetTask(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	var task domain.Task
	if err := c.get(ctx, taskPath(id, ""), &task, "get task"); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a single task.
func (c *Client) CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	var task domain.Task
	if err := c.send(ctx, http.MethodPost, tasksPath, input, http.StatusCreated, &task, "create task"); err != nil {
		return nil, err
	}
	return &task, nil
}

// BulkCreateSubtasks creates a tree of subtasks under parent in one call.
func (c *Client) BulkCreateSubtasks(ctx context.Context, parent domain.TaskID, tree []TaskNode) (*BulkCreateResult, error) {
	body := bulkCreateRequest{Parent: parent, Tasks: tree}

	var result BulkCreateResult
	if err := c.send(ctx, http.MethodPost, tasksPath+"bulk_create/", body, http.StatusCreated, &result, "bulk create tasks"); err != nil {
		return nil, err
	}
	return &result, nil
}

// PatchTask sends a partial update. Keys are wire field names.
func (c *Client) PatchTask(ctx context.Context, id domain.TaskID, fields map[string]interface{}) (*domain.Task, error) {
	var task domain.Task
	if err := c.send(ctx, http.MethodPatch, taskPath(id, ""), fields, http.StatusOK, &task, "patch task"); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTaskHistory returns the audit log of a task, oldest first.
func (c *Client) GetTaskHistory(ctx context.Context, id domain.TaskID) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	if err := c.get(ctx, taskPath(id, "history"), &entries, "get task history"); err != nil {
		return nil, err
	}
	return entries, nil
}

// =============================================================================
// Status Transitions
// =============================================================================

// InvokeAction triggers a lifecycle action. payload may be nil.
func (c *Client) InvokeAction(ctx context.Context, id domain.TaskID, action domain.Action, payload interface{}) (*ActionResult, error) {
	if !action.IsTransition() {
		return nil, fmt.Errorf("%s is not a lifecycle action", action)
	}

	var result ActionResult
	if err := c.send(ctx, http.MethodPost, taskPath(id, string(action)), payload, http.StatusOK, &result, string(action)+" task"); err != nil {
		return nil, err
	}
	if result.Task == nil {
		return nil, fmt.Errorf("%s task: response carries no task", action)
	}
	return &result, nil
}

// =============================================================================
// Query encoding
// =============================================================================

// EncodeFilter converts a filter into the query parameters understood by the
// task service.
func EncodeFilter(f domain.TaskFilter) url.Values {
	params := url.Values{}
	if f.JobOrder != "" {
		params.Set("job_order", f.JobOrder)
	}
	switch len(f.Departments) {
	case 0:
	case 1:
		params.Set("department", string(f.Departments[0]))
	default:
		params.Set("department__in", joinStrings(f.Departments))
	}
	switch len(f.Statuses) {
	case 0:
	case 1:
		params.Set("status", string(f.Statuses[0]))
	default:
		params.Set("status__in", joinStrings(f.Statuses))
	}
	if f.Unassigned {
		params.Set("assigned_to__isnull", "true")
	} else if f.AssignedTo != nil {
		params.Set("assigned_to", strconv.FormatInt(*f.AssignedTo, 10))
	}
	if !f.Parent.IsZero() {
		params.Set("parent", f.Parent.String())
	}
	if f.MainOnly {
		params.Set("main_only", "true")
	}
	if f.Blocked != nil {
		params.Set("is_blocked", strconv.FormatBool(*f.Blocked))
	}
	if f.Search != "" {
		params.Set("search", f.Search)
	}
	if f.Ordering != "" {
		params.Set("ordering", f.Ordering)
	}
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.TargetStart != nil {
		params.Set("target_start_date", f.TargetStart.String())
	}
	if f.TargetFinish != nil {
		params.Set("target_completion_date", f.TargetFinish.String())
	}
	return params
}

// taskPath builds /projects/department-tasks/{id}/[suffix/].
func taskPath(id domain.TaskID, suffix string) string {
	p := tasksPath + url.PathEscape(id.String()) + "/"
	if suffix != "" {
		p += suffix + "/"
	}
	return p
}

func joinStrings[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}
