package board

import (
	"context"
	"fmt"
	"sort"

	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

// fakeRepo is an in-memory task service. Tasks without a parent are roots.
type fakeRepo struct {
	tasks   map[domain.TaskID]*domain.Task
	filters []domain.TaskFilter
	patches []map[string]interface{}

	listErr  error
	patchErr error
}

func newFakeRepo(tasks ...*domain.Task) *fakeRepo {
	r := &fakeRepo{tasks: make(map[domain.TaskID]*domain.Task)}
	for _, t := range tasks {
		r.tasks[t.ID] = t
	}
	return r
}

func (r *fakeRepo) ListTasks(_ context.Context, f domain.TaskFilter) (*domain.TaskPage, error) {
	r.filters = append(r.filters, f)
	if r.listErr != nil {
		return nil, r.listErr
	}

	var matched []*domain.Task
	for _, t := range r.tasks {
		if f.Parent.IsZero() {
			if f.MainOnly && t.IsSubtask() {
				continue
			}
		} else if t.Parent != f.Parent {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
			continue
		}
		matched = append(matched, t.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Sequence != matched[j].Sequence {
			return matched[i].Sequence < matched[j].Sequence
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	page := &domain.TaskPage{Count: len(matched), Results: []*domain.Task{}}
	size := f.PageSize
	if size <= 0 {
		size = domain.DefaultPageSize
	}
	start := (max(f.Page, 1) - 1) * size
	if start < len(matched) {
		end := min(start+size, len(matched))
		page.Results = matched[start:end]
	}
	return page, nil
}

func (r *fakeRepo) GetTask(_ context.Context, id domain.TaskID) (*domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.NewTaskNotFoundError(id)
	}
	return t.Clone(), nil
}

func (r *fakeRepo) CreateTask(_ context.Context, in client.CreateTaskInput) (*domain.Task, error) {
	t := &domain.Task{ID: domain.NumericID(int64(len(r.tasks) + 1000)), Parent: in.Parent, Title: in.Title, Status: domain.StatusPending}
	r.tasks[t.ID] = t
	return t.Clone(), nil
}

func (r *fakeRepo) BulkCreateSubtasks(_ context.Context, parent domain.TaskID, tree []client.TaskNode) (*client.BulkCreateResult, error) {
	res := &client.BulkCreateResult{}
	for i, n := range tree {
		t := &domain.Task{
			ID:       domain.NumericID(int64(len(r.tasks) + 1000)),
			Parent:   parent,
			Sequence: i + 1,
			Title:    n.Title,
			Status:   domain.StatusPending,
		}
		r.tasks[t.ID] = t
		res.Tasks = append(res.Tasks, t.Clone())
	}
	if p, ok := r.tasks[parent]; ok {
		p.SubtasksCount += len(tree)
	}
	res.Message = fmt.Sprintf("%d tasks created", len(res.Tasks))
	return res, nil
}

func (r *fakeRepo) PatchTask(_ context.Context, id domain.TaskID, fields map[string]interface{}) (*domain.Task, error) {
	r.patches = append(r.patches, fields)
	if r.patchErr != nil {
		return nil, r.patchErr
	}
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.NewTaskNotFoundError(id)
	}
	out := t.Clone()
	if v, ok := fields[FieldAssignee].(int64); ok {
		out.AssignedTo = &v
		out.AssignedToName = fmt.Sprintf("user-%d", v)
	}
	return out, nil
}

func (r *fakeRepo) InvokeAction(_ context.Context, id domain.TaskID, action domain.Action, _ interface{}) (*client.ActionResult, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.NewTaskNotFoundError(id)
	}
	return &client.ActionResult{Status: "success", Message: string(action), Task: t.Clone()}, nil
}

// listCalls counts ListTasks calls for children of parent.
func (r *fakeRepo) listCalls(parent domain.TaskID) int {
	n := 0
	for _, f := range r.filters {
		if f.Parent == parent {
			n++
		}
	}
	return n
}

func containsStatus(list []domain.TaskStatus, s domain.TaskStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func tid(n int64) domain.TaskID { return domain.NumericID(n) }

// task builds a pending task. parent 0 makes a root.
func task(n, parent int64, subtasks int) *domain.Task {
	return &domain.Task{
		ID:            tid(n),
		Parent:        tid(parent),
		Sequence:      int(n),
		SubtasksCount: subtasks,
		Department:    domain.DepartmentManufacturing,
		Title:         fmt.Sprintf("task %d", n),
		Status:        domain.StatusPending,
		CanStart:      true,
	}
}

func newTestBoard(repo *fakeRepo, opts ...Option) *Board {
	return New(NewGateway(repo, nil, nil), domain.NewQuery(domain.DepartmentManufacturing), opts...)
}
