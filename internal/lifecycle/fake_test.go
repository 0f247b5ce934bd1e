package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/airyra/taskboard/internal/board"
	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

// fakeService implements the task, release and planning services in
// memory and records every call as "method id".
type fakeService struct {
	tasks map[domain.TaskID]*domain.Task
	calls []string

	actionErr map[domain.Action]error
	getErr    error

	releases []client.ReleaseInput
	reasons  []string
	assignTo *int64
	nextRel  int64
}

func newFakeService(tasks ...*domain.Task) *fakeService {
	s := &fakeService{
		tasks:     make(map[domain.TaskID]*domain.Task),
		actionErr: make(map[domain.Action]error),
		nextRel:   100,
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *fakeService) record(format string, args ...interface{}) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *fakeService) ListTasks(context.Context, domain.TaskFilter) (*domain.TaskPage, error) {
	s.record("list")
	page := &domain.TaskPage{Results: []*domain.Task{}}
	for _, t := range s.tasks {
		if !t.IsSubtask() {
			page.Results = append(page.Results, t.Clone())
		}
	}
	page.Count = len(page.Results)
	return page, nil
}

func (s *fakeService) GetTask(_ context.Context, id domain.TaskID) (*domain.Task, error) {
	s.record("get %s", id)
	if s.getErr != nil {
		return nil, s.getErr
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.NewTaskNotFoundError(id)
	}
	return t.Clone(), nil
}

func (s *fakeService) CreateTask(context.Context, client.CreateTaskInput) (*domain.Task, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeService) BulkCreateSubtasks(_ context.Context, parent domain.TaskID, tree []client.TaskNode) (*client.BulkCreateResult, error) {
	s.record("bulk_create %s", parent)
	res := &client.BulkCreateResult{}
	for i, n := range tree {
		t := &domain.Task{ID: tid(int64(500 + i)), Parent: parent, Title: n.Title, Status: domain.StatusPending}
		s.tasks[t.ID] = t
		res.Tasks = append(res.Tasks, t.Clone())
	}
	s.tasks[parent].SubtasksCount += len(tree)
	return res, nil
}

func (s *fakeService) PatchTask(context.Context, domain.TaskID, map[string]interface{}) (*domain.Task, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeService) InvokeAction(_ context.Context, id domain.TaskID, action domain.Action, payload interface{}) (*client.ActionResult, error) {
	s.record("%s %s", action, id)
	if err := s.actionErr[action]; err != nil {
		return nil, err
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.NewTaskNotFoundError(id)
	}
	switch action {
	case domain.ActionStart:
		t.Status = domain.StatusInProgress
	case domain.ActionComplete:
		t.Status = domain.StatusCompleted
		if t.IsSubtask() {
			if p, ok := s.tasks[t.Parent]; ok {
				p.Status = domain.StatusCompleted
			}
		}
	case domain.ActionUncomplete:
		t.Status = domain.StatusInProgress
	case domain.ActionSkip:
		t.Status = domain.StatusSkipped
	case domain.ActionUnskip, domain.ActionUnblock:
		t.Status = domain.StatusPending
		t.BlockedReason = ""
	case domain.ActionBlock:
		t.Status = domain.StatusBlocked
		if p, ok := payload.(blockPayload); ok {
			t.BlockedReason = p.Reason
		}
	}
	return &client.ActionResult{Status: "success", Message: "ok", Task: t.Clone()}, nil
}

func (s *fakeService) CreateRelease(_ context.Context, in client.ReleaseInput) (*domain.Release, error) {
	s.record("create_release %s", in.Task)
	if err := s.actionErr[domain.ActionReleaseAndComplete]; err != nil {
		return nil, err
	}
	s.releases = append(s.releases, in)
	s.nextRel++
	if t, ok := s.tasks[in.Task]; ok {
		id := s.nextRel
		t.CurrentReleaseID = &id
	}
	return &domain.Release{ID: s.nextRel, Task: in.Task, RevisionCode: in.RevisionCode, Status: domain.ReleaseReleased}, nil
}

func (s *fakeService) RequestRevision(_ context.Context, releaseID int64, reason string) (*client.RevisionResult, error) {
	s.record("request_revision %d", releaseID)
	s.reasons = append(s.reasons, reason)
	return &client.RevisionResult{Status: "success", Release: &domain.Release{ID: releaseID, Status: domain.ReleaseRevisionRequested}}, nil
}

func (s *fakeService) ApproveRevision(_ context.Context, releaseID int64, assignTo *int64) (*client.RevisionResult, error) {
	s.record("approve_revision %d", releaseID)
	s.assignTo = assignTo
	return &client.RevisionResult{Status: "success", Release: &domain.Release{ID: releaseID, Status: domain.ReleaseInRevision}}, nil
}

func (s *fakeService) RejectRevision(_ context.Context, releaseID int64, reason string) (*client.RevisionResult, error) {
	s.record("reject_revision %d", releaseID)
	s.reasons = append(s.reasons, reason)
	return &client.RevisionResult{Status: "success", Release: &domain.Release{ID: releaseID, Status: domain.ReleaseReleased}}, nil
}

func (s *fakeService) SelfStartRevision(_ context.Context, releaseID int64, reason string) (*client.RevisionResult, error) {
	s.record("self_revision %d", releaseID)
	s.reasons = append(s.reasons, reason)
	return &client.RevisionResult{Status: "success", Release: &domain.Release{ID: releaseID, Status: domain.ReleaseInRevision}}, nil
}

func (s *fakeService) CompleteRevision(_ context.Context, releaseID int64, form domain.ReleaseForm) (*client.RevisionResult, error) {
	s.record("complete_revision %d", releaseID)
	for _, t := range s.tasks {
		if t.ActiveRevisionReleaseID != nil && *t.ActiveRevisionReleaseID == releaseID {
			t.IsUnderRevision = false
			t.ActiveRevisionReleaseID = nil
		}
	}
	return &client.RevisionResult{Status: "success", NewRelease: &domain.Release{ID: releaseID + 1, RevisionCode: form.RevisionCode}}, nil
}

func (s *fakeService) MarkDelivered(_ context.Context, itemID int64) (*client.PlanningItem, error) {
	s.record("mark_delivered %d", itemID)
	for _, t := range s.tasks {
		if t.PlanningItemID != nil && *t.PlanningItemID == itemID {
			t.IsDelivered = true
			t.Status = domain.StatusCompleted
		}
	}
	return &client.PlanningItem{ID: itemID, IsDelivered: true}, nil
}

// recordingSink remembers every applied snapshot.
type recordingSink struct {
	applied []*domain.Task
}

func (r *recordingSink) Apply(t *domain.Task) bool {
	r.applied = append(r.applied, t)
	return true
}

func (r *recordingSink) last(id domain.TaskID) *domain.Task {
	for i := len(r.applied) - 1; i >= 0; i-- {
		if r.applied[i].ID == id {
			return r.applied[i]
		}
	}
	return nil
}

func tid(n int64) domain.TaskID { return domain.NumericID(n) }

func ptr[T any](v T) *T { return &v }

func newTestEngine(svc *fakeService, sink Sink) *Engine {
	gw := board.NewGateway(svc, nil, nil)
	return NewEngine(gw, svc, svc, WithSink(sink))
}

func pending(n int64) *domain.Task {
	return &domain.Task{
		ID:         tid(n),
		Department: domain.DepartmentManufacturing,
		Title:      fmt.Sprintf("task %d", n),
		Status:     domain.StatusPending,
		CanStart:   true,
	}
}

func inProgress(n int64) *domain.Task {
	t := pending(n)
	t.Status = domain.StatusInProgress
	return t
}

func withStatus(t *domain.Task, s domain.TaskStatus) *domain.Task {
	t.Status = s
	return t
}

func validForm() *domain.ReleaseForm {
	return &domain.ReleaseForm{FolderPath: `\\nas\254-01\A0`, RevisionCode: "A0", Changelog: "First issue", HardcopyCount: 2}
}
