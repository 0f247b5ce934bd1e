package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/airyra/taskboard/internal/api"
	"github.com/airyra/taskboard/internal/api/middleware"
	"github.com/airyra/taskboard/internal/api/response"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/store"
)

const tasksPath = "/projects/department-tasks/"

// testSetup provides common test infrastructure
type testSetup struct {
	t      *testing.T
	store  *store.Store
	router *chi.Mux
}

func newTestSetup(t *testing.T) *testSetup {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "taskboard.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	router := api.NewRouter(st, api.Options{Logger: log.New(io.Discard, "", 0)})

	return &testSetup{t: t, store: st, router: router}
}

func (s *testSetup) doRequest(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody bytes.Buffer
	if body != nil {
		json.NewEncoder(&reqBody).Encode(body)
	}

	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testSetup) decode(rr *httptest.ResponseRecorder, v interface{}) {
	s.t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		s.t.Fatalf("failed to decode response: %v (body %q)", err, rr.Body.String())
	}
}

func (s *testSetup) expectStatus(rr *httptest.ResponseRecorder, want int) {
	s.t.Helper()
	if rr.Code != want {
		s.t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func (s *testSetup) expectError(rr *httptest.ResponseRecorder, status int, code domain.ErrorCode) response.ErrorResponse {
	s.t.Helper()
	s.expectStatus(rr, status)
	var resp response.ErrorResponse
	s.decode(rr, &resp)
	if resp.Error.Code != string(code) {
		s.t.Errorf("expected code %q, got %q", code, resp.Error.Code)
	}
	return resp
}

func (s *testSetup) createTask(body map[string]interface{}) *domain.Task {
	s.t.Helper()
	rr := s.doRequest("POST", tasksPath, body, nil)
	s.expectStatus(rr, http.StatusCreated)
	var task domain.Task
	s.decode(rr, &task)
	return &task
}

func (s *testSetup) rootTask(jobOrder string, dept domain.Department, extra map[string]interface{}) *domain.Task {
	s.t.Helper()
	body := map[string]interface{}{
		"job_order":  jobOrder,
		"department": dept,
		"title":      string(dept.Label()) + " work",
	}
	for k, v := range extra {
		body[k] = v
	}
	return s.createTask(body)
}

func (s *testSetup) subtask(parent *domain.Task, title string) *domain.Task {
	s.t.Helper()
	return s.createTask(map[string]interface{}{"parent": parent.ID, "title": title})
}

func taskPath(id domain.TaskID, suffix string) string {
	if suffix == "" {
		return tasksPath + id.String() + "/"
	}
	return tasksPath + id.String() + "/" + suffix + "/"
}

func (s *testSetup) act(id domain.TaskID, action string, body interface{}) *httptest.ResponseRecorder {
	return s.doRequest("POST", taskPath(id, action), body, nil)
}

func (s *testSetup) mustAct(id domain.TaskID, action string) response.ActionResponse {
	s.t.Helper()
	rr := s.act(id, action, nil)
	s.expectStatus(rr, http.StatusOK)
	var resp struct {
		Status  string      `json:"status"`
		Message string      `json:"message"`
		Task    domain.Task `json:"task"`
	}
	s.decode(rr, &resp)
	return response.ActionResponse{Status: resp.Status, Message: resp.Message, Task: &resp.Task}
}

func (s *testSetup) getTask(id domain.TaskID) *domain.Task {
	s.t.Helper()
	rr := s.doRequest("GET", taskPath(id, ""), nil, nil)
	s.expectStatus(rr, http.StatusOK)
	var task domain.Task
	s.decode(rr, &task)
	return &task
}

type taskPage struct {
	Count   int           `json:"count"`
	Results []domain.Task `json:"results"`
}

func (s *testSetup) listTasks(query string) taskPage {
	s.t.Helper()
	rr := s.doRequest("GET", tasksPath+"?"+query, nil, nil)
	s.expectStatus(rr, http.StatusOK)
	var page taskPage
	s.decode(rr, &page)
	return page
}

// ========================
// System Tests
// ========================

func TestHealth_ReturnsOK(t *testing.T) {
	setup := newTestSetup(t)

	rr := setup.doRequest("GET", "/health/", nil, nil)
	setup.expectStatus(rr, http.StatusOK)

	var resp map[string]string
	setup.decode(rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestChoices(t *testing.T) {
	setup := newTestSetup(t)

	tests := []struct {
		path      string
		wantCount int
		first     string
		label     string
	}{
		{tasksPath + "status_choices/", len(domain.ValidStatuses), "pending", domain.StatusPending.Label()},
		{tasksPath + "department_choices/", len(domain.ValidDepartments), "design", "Design"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := setup.doRequest("GET", tt.path, nil, nil)
			setup.expectStatus(rr, http.StatusOK)

			var choices []struct {
				Value string `json:"value"`
				Label string `json:"label"`
			}
			setup.decode(rr, &choices)
			if len(choices) != tt.wantCount {
				t.Fatalf("expected %d choices, got %d", tt.wantCount, len(choices))
			}
			if choices[0].Value != tt.first || choices[0].Label != tt.label {
				t.Errorf("unexpected first choice %+v", choices[0])
			}
		})
	}
}

// ========================
// Task CRUD Tests
// ========================

func TestCreateTask_Root(t *testing.T) {
	setup := newTestSetup(t)

	task := setup.rootTask("JO-1", domain.DepartmentDesign, map[string]interface{}{"weight": 12.5})

	if task.ID.IsZero() || task.ID.IsSynthetic() {
		t.Errorf("expected a numeric id, got %q", task.ID)
	}
	if task.Status != domain.StatusPending {
		t.Errorf("expected status pending, got %q", task.Status)
	}
	if task.Sequence != 1 {
		t.Errorf("expected sequence 1, got %d", task.Sequence)
	}
	if !task.CanStart {
		t.Error("expected a root task to be startable")
	}
	if task.Weight == nil || *task.Weight != 12.5 {
		t.Errorf("expected weight 12.5, got %v", task.Weight)
	}

	second := setup.rootTask("JO-1", domain.DepartmentPlanning, nil)
	if second.Sequence != 2 {
		t.Errorf("expected sequence 2, got %d", second.Sequence)
	}
}

func TestCreateTask_ValidationErrors(t *testing.T) {
	setup := newTestSetup(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{"job_order": "JO-1", "department": "design"}},
		{"unknown department", map[string]interface{}{"job_order": "JO-1", "department": "sales", "title": "x"}},
		{"missing job order", map[string]interface{}{"department": "design", "title": "x"}},
		{"negative weight", map[string]interface{}{"job_order": "JO-1", "department": "design", "title": "x", "weight": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := setup.doRequest("POST", tasksPath, tt.body, nil)
			setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)
		})
	}
}

func TestCreateTask_InvalidJSON(t *testing.T) {
	setup := newTestSetup(t)

	req := httptest.NewRequest("POST", tasksPath, bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)

	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)
}

func TestCreateTask_SubtaskInheritsParent(t *testing.T) {
	setup := newTestSetup(t)

	root := setup.rootTask("JO-7", domain.DepartmentManufacturing, nil)
	child := setup.subtask(root, "Cut plates")

	if child.Parent != root.ID {
		t.Errorf("expected parent %s, got %s", root.ID, child.Parent)
	}
	if child.JobOrder != "JO-7" || child.Department != domain.DepartmentManufacturing {
		t.Errorf("expected inherited job order and department, got %q/%q", child.JobOrder, child.Department)
	}
	if child.CanStart {
		t.Error("expected subtask of a pending parent not to be startable")
	}

	parent := setup.getTask(root.ID)
	if parent.SubtasksCount != 1 {
		t.Errorf("expected subtasks_count 1, got %d", parent.SubtasksCount)
	}
}

func TestCreateTask_ParentNotFound(t *testing.T) {
	setup := newTestSetup(t)

	rr := setup.doRequest("POST", tasksPath, map[string]interface{}{"parent": 999, "title": "orphan"}, nil)
	setup.expectError(rr, http.StatusNotFound, domain.ErrCodeTaskNotFound)
}

func TestCreateTask_PlanningItemNotFound(t *testing.T) {
	setup := newTestSetup(t)

	rr := setup.doRequest("POST", tasksPath, map[string]interface{}{
		"job_order":                "JO-1",
		"department":               "procurement",
		"title":                    "Buy bolts",
		"planning_request_item_id": 42,
	}, nil)
	setup.expectError(rr, http.StatusNotFound, domain.ErrCodePlanningItemNotFound)
}

func TestGetTask_NotFound(t *testing.T) {
	setup := newTestSetup(t)

	for _, id := range []string{"999", "abc", "0"} {
		rr := setup.doRequest("GET", tasksPath+id+"/", nil, nil)
		setup.expectError(rr, http.StatusNotFound, domain.ErrCodeTaskNotFound)
	}
}

func TestGetTask_WithoutTrailingSlash(t *testing.T) {
	setup := newTestSetup(t)
	task := setup.rootTask("JO-1", domain.DepartmentDesign, nil)

	rr := setup.doRequest("GET", tasksPath+task.ID.String(), nil, nil)
	setup.expectStatus(rr, http.StatusOK)
}

func TestListTasks_Filters(t *testing.T) {
	setup := newTestSetup(t)

	design := setup.rootTask("JO-1", domain.DepartmentDesign, nil)
	setup.rootTask("JO-1", domain.DepartmentPlanning, nil)
	setup.rootTask("JO-2", domain.DepartmentDesign, map[string]interface{}{"title": "Frame drawings"})
	setup.subtask(design, "Sketch")
	setup.mustAct(design.ID, "start")

	tests := []struct {
		query string
		want  int
	}{
		{"", 4},
		{"main_only=true", 3},
		{"job_order=JO-1", 3},
		{"department=design", 3},
		{"department__in=planning,design&main_only=true", 3},
		{"status=in_progress", 1},
		{"status__in=pending,in_progress", 4},
		{"parent=" + design.ID.String(), 1},
		{"search=frame", 1},
		{"assigned_to__isnull=true", 4},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page := setup.listTasks(tt.query)
			if page.Count != tt.want {
				t.Errorf("expected count %d, got %d", tt.want, page.Count)
			}
			if len(page.Results) != tt.want {
				t.Errorf("expected %d results, got %d", tt.want, len(page.Results))
			}
		})
	}
}

func TestListTasks_Pagination(t *testing.T) {
	setup := newTestSetup(t)
	for i := 0; i < 5; i++ {
		setup.rootTask("JO-1", domain.DepartmentDesign, map[string]interface{}{"title": fmt.Sprintf("Task %d", i)})
	}

	page := setup.listTasks("page=2&page_size=2&ordering=sequence")
	if page.Count != 5 {
		t.Errorf("expected count 5, got %d", page.Count)
	}
	if len(page.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(page.Results))
	}
	if page.Results[0].Sequence != 3 {
		t.Errorf("expected first result of page 2 to have sequence 3, got %d", page.Results[0].Sequence)
	}
}

func TestListTasks_BadParameters(t *testing.T) {
	setup := newTestSetup(t)

	for _, query := range []string{"status=done", "department=sales", "ordering=password", "target_start_date=yesterday"} {
		rr := setup.doRequest("GET", tasksPath+"?"+query, nil, nil)
		setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)
	}
}

func TestUpdateTask(t *testing.T) {
	setup := newTestSetup(t)
	root := setup.rootTask("JO-1", domain.DepartmentDesign, nil)

	rr := setup.doRequest("PATCH", taskPath(root.ID, ""), map[string]interface{}{
		"completion_percentage":  40,
		"assigned_to":            7,
		"target_completion_date": "2026-11-30",
	}, nil)
	setup.expectStatus(rr, http.StatusOK)

	var task domain.Task
	setup.decode(rr, &task)
	if task.CompletionPercentage == nil || *task.CompletionPercentage != 40 {
		t.Errorf("expected completion 40, got %v", task.CompletionPercentage)
	}
	if task.AssignedTo == nil || *task.AssignedTo != 7 {
		t.Errorf("expected assignee 7, got %v", task.AssignedTo)
	}
	if task.TargetCompletionDate == nil || task.TargetCompletionDate.String() != "2026-11-30" {
		t.Errorf("expected target date 2026-11-30, got %v", task.TargetCompletionDate)
	}

	rr = setup.doRequest("PATCH", taskPath(root.ID, ""), map[string]interface{}{"assigned_to": nil}, nil)
	setup.expectStatus(rr, http.StatusOK)
	setup.decode(rr, &task)
	if task.AssignedTo != nil {
		t.Errorf("expected assignee cleared, got %v", *task.AssignedTo)
	}
}

func TestUpdateTask_Rejections(t *testing.T) {
	setup := newTestSetup(t)
	root := setup.rootTask("JO-1", domain.DepartmentDesign, nil)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"progress 100", map[string]interface{}{"completion_percentage": 100}},
		{"progress 150", map[string]interface{}{"completion_percentage": 150}},
		{"read-only status", map[string]interface{}{"status": "completed"}},
		{"root title", map[string]interface{}{"title": "Renamed"}},
		{"empty body", map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := setup.doRequest("PATCH", taskPath(root.ID, ""), tt.body, nil)
			setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)
		})
	}

	task := setup.getTask(root.ID)
	if task.CompletionPercentage != nil && *task.CompletionPercentage != 0 {
		t.Errorf("expected progress untouched, got %d", *task.CompletionPercentage)
	}
}

func TestUpdateTask_SubtaskTitle(t *testing.T) {
	setup := newTestSetup(t)
	root := setup.rootTask("JO-1", domain.DepartmentDesign, nil)
	child := setup.subtask(root, "Draft")

	rr := setup.doRequest("PATCH", taskPath(child.ID, ""), map[string]interface{}{"title": "Final"}, nil)
	setup.expectStatus(rr, http.StatusOK)

	if got := setup.getTask(child.ID).Title; got != "Final" {
		t.Errorf("expected title 'Final', got %q", got)
	}
}

func TestBulkCreate(t *testing.T) {
	setup := newTestSetup(t)
	root := setup.rootTask("JO-1", domain.DepartmentManufacturing, nil)

	rr := setup.doRequest("POST", tasksPath+"bulk_create/", map[string]interface{}{
		"parent": root.ID,
		"tasks": []map[string]interface{}{
			{"title": "Frame", "children": []map[string]interface{}{
				{"title": "Weld"},
				{"title": "Grind"},
			}},
			{"title": "Cover"},
		},
	}, nil)
	setup.expectStatus(rr, http.StatusCreated)

	var resp struct {
		Message string        `json:"message"`
		Tasks   []domain.Task `json:"tasks"`
	}
	setup.decode(rr, &resp)

	if resp.Message != "Created 4 tasks" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	titles := make([]string, len(resp.Tasks))
	for i, task := range resp.Tasks {
		titles[i] = task.Title
	}
	want := []string{"Frame", "Weld", "Grind", "Cover"}
	if fmt.Sprint(titles) != fmt.Sprint(want) {
		t.Errorf("expected tree order %v, got %v", want, titles)
	}
	if resp.Tasks[1].Parent != resp.Tasks[0].ID {
		t.Errorf("expected Weld under Frame")
	}
	if resp.Tasks[3].Parent != root.ID {
		t.Errorf("expected Cover under the root")
	}
}

func TestBulkCreate_Validation(t *testing.T) {
	setup := newTestSetup(t)
	root := setup.rootTask("JO-1", domain.DepartmentManufacturing, nil)

	rr := setup.doRequest("POST", tasksPath+"bulk_create/", map[string]interface{}{"parent": root.ID}, nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)

	rr = setup.doRequest("POST", tasksPath+"bulk_create/", map[string]interface{}{
		"parent": root.ID,
		"tasks":  []map[string]interface{}{{"title": ""}},
	}, nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)
}

// ========================
// Transition Tests
// ========================

func TestTransition_StartCompleteUncomplete(t *testing.T) {
	setup := newTestSetup(t)
	task := setup.rootTask("JO-1", domain.DepartmentDesign, nil)

	started := setup.mustAct(task.ID, "start")
	if started.Status != "success" || started.Message != "Task started" {
		t.Errorf("unexpected action response %q/%q", started.Status, started.Message)
	}
	if started.Task.Status != domain.StatusInProgress {
		t.Errorf("expected in_progress, got %q", started.Task.Status)
	}

	completed := setup.mustAct(task.ID, "complete")
	if completed.Task.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %q", completed.Task.Status)
	}
	if completed.Task.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	reopened := setup.mustAct(task.ID, "uncomplete")
	if reopened.Task.Status != domain.StatusInProgress {
		t.Errorf("expected in_progress, got %q", reopened.Task.Status)
	}
	if reopened.Task.CompletedAt != nil {
		t.Error("expected completed_at to be cleared")
	}
}

func TestTransition_InvalidTransitions(t *testing.T) {
	setup := newTestSetup(t)
	task := setup.rootTask("JO-1", domain.DepartmentDesign, nil)

	for _, action := range []string{"complete", "uncomplete", "unskip", "unblock"} {
		t.Run(action, func(t *testing.T) {
			rr := setup.act(task.ID, action, nil)
			setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeInvalidTransition)
		})
	}
}

func TestTransition_SubtaskCannotStartBeforeParent(t *testing.T) {
	setup := newTestSetup(t)
	root := setup.rootTask("JO-1", domain.DepartmentDesign, nil)
	child := setup.subtask(root, "Detail")

	rr := setup.act(child.ID, "start", nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeCannotStart)

	setup.mustAct(root.ID, "start")
	if got := setup.getTask(child.ID); !got.CanStart {
		t.Error("expected subtask to be startable once the parent is in progress")
	}
	setup.mustAct(child.ID, "start")
}

func TestTransition_BlockAndUnblock(t *testing.T) {
	setup := newTestSetup(t)
	task := setup.rootTask("JO-1", domain.DepartmentDesign, nil)
	setup.mustAct(task.ID, "start")

	rr := setup.act(task.ID, "block", nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)

	rr = setup.act(task.ID, "block", map[string]string{"reason": "Waiting for steel"})
	setup.expectStatus(rr, http.StatusOK)

	blocked := setup.getTask(task.ID)
	if blocked.Status != domain.StatusBlocked || blocked.BlockedReason != "Waiting for steel" {
		t.Errorf("expected blocked with reason, got %q/%q", blocked.Status, blocked.BlockedReason)
	}

	unblocked := setup.mustAct(task.ID, "unblock")
	if unblocked.Task.Status != domain.StatusInProgress {
		t.Errorf("expected the previous status in_progress, got %q", unblocked.Task.Status)
	}
	if unblocked.Task.BlockedReason != "" {
		t.Errorf("expected reason cleared, got %q", unblocked.Task.BlockedReason)
	}
}

func TestTransition_SkipAndUnskip(t *testing.T) {
	setup := newTestSetup(t)
	task := setup.rootTask("JO-1", domain.DepartmentPainting, nil)

	skipped := setup.mustAct(task.ID, "skip")
	if skipped.Task.Status != domain.StatusSkipped {
		t.Errorf("expected skipped, got %q", skipped.Task.Status)
	}

	rr := setup.act(task.ID, "skip", nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeInvalidTransition)

	restored := setup.mustAct(task.ID, "unskip")
	if restored.Message != "Task restored" || restored.Task.Status != domain.StatusPending {
		t.Errorf("unexpected unskip result %q/%q", restored.Message, restored.Task.Status)
	}
}

func TestTransition_CompletionRollsUp(t *testing.T) {
	setup := newTestSetup(t)
	root := setup.rootTask("JO-9", domain.DepartmentManufacturing, nil)
	a := setup.subtask(root, "A")
	b := setup.subtask(root, "B")

	setup.mustAct(root.ID, "start")
	setup.mustAct(a.ID, "start")
	setup.mustAct(b.ID, "start")
	setup.mustAct(a.ID, "complete")

	if got := setup.getTask(root.ID).Status; got != domain.StatusInProgress {
		t.Fatalf("expected parent still in progress, got %q", got)
	}

	setup.mustAct(b.ID, "complete")
	if got := setup.getTask(root.ID).Status; got != domain.StatusCompleted {
		t.Fatalf("expected parent to complete with its last subtask, got %q", got)
	}

	rr := setup.doRequest("GET", "/projects/job-orders/JO-9/", nil, nil)
	setup.expectStatus(rr, http.StatusOK)
	var jo domain.JobOrder
	setup.decode(rr, &jo)
	if jo.Status != domain.JobOrderCompleted {
		t.Errorf("expected job order completed, got %q", jo.Status)
	}

	setup.mustAct(b.ID, "uncomplete")
	if got := setup.getTask(root.ID).Status; got != domain.StatusInProgress {
		t.Errorf("expected parent reopened, got %q", got)
	}

	rr = setup.doRequest("GET", "/projects/job-orders/JO-9/", nil, nil)
	setup.expectStatus(rr, http.StatusOK)
	setup.decode(rr, &jo)
	if jo.Status != domain.JobOrderActive {
		t.Errorf("expected job order reopened, got %q", jo.Status)
	}
}

func TestTransition_TaskNotFound(t *testing.T) {
	setup := newTestSetup(t)

	rr := setup.act(domain.NumericID(404), "start", nil)
	setup.expectError(rr, http.StatusNotFound, domain.ErrCodeTaskNotFound)
}

// ========================
// QC Tests
// ========================

func TestQC_GatesCompletion(t *testing.T) {
	setup := newTestSetup(t)
	task := setup.rootTask("JO-1", domain.DepartmentManufacturing, map[string]interface{}{"qc_required": true})
	setup.mustAct(task.ID, "start")

	rr := setup.act(task.ID, "complete", nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeQCApprovalRequired)

	rr = setup.doRequest("POST", "/quality-control/qc-reviews/submit/", map[string]interface{}{
		"task_id":   task.ID,
		"part_data": map[string]interface{}{"weld": "ok"},
	}, nil)
	setup.expectStatus(rr, http.StatusCreated)
	var review domain.QCReview
	setup.decode(rr, &review)
	if review.Status != domain.QCPending {
		t.Errorf("expected pending review, got %q", review.Status)
	}

	rr = setup.doRequest("POST", "/quality-control/qc-reviews/submit/", map[string]interface{}{"task_id": task.ID}, nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)

	rr = setup.doRequest("POST", fmt.Sprintf("/quality-control/qc-reviews/%d/decide/", review.ID),
		map[string]interface{}{"approve": true, "comment": "Looks good"}, nil)
	setup.expectStatus(rr, http.StatusOK)

	rr = setup.doRequest("POST", fmt.Sprintf("/quality-control/qc-reviews/%d/decide/", review.ID),
		map[string]interface{}{"approve": false}, nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)

	if got := setup.getTask(task.ID); !got.HasQCApproval {
		t.Error("expected has_qc_approval after approval")
	}
	setup.mustAct(task.ID, "complete")

	rr = setup.doRequest("GET", "/quality-control/qc-reviews/?task="+task.ID.String(), nil, nil)
	setup.expectStatus(rr, http.StatusOK)
	var page struct {
		Count   int               `json:"count"`
		Results []domain.QCReview `json:"results"`
	}
	setup.decode(rr, &page)
	if page.Count != 1 || page.Results[0].Status != domain.QCApproved {
		t.Errorf("expected one approved review, got %+v", page)
	}
}

func TestQC_SubmitRequiresQCTask(t *testing.T) {
	setup := newTestSetup(t)
	task := setup.rootTask("JO-1", domain.DepartmentManufacturing, nil)

	rr := setup.doRequest("POST", "/quality-control/qc-reviews/submit/", map[string]interface{}{"task_id": task.ID}, nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)

	rr = setup.doRequest("POST", "/quality-control/qc-reviews/77/decide/", map[string]interface{}{"approve": true}, nil)
	setup.expectError(rr, http.StatusNotFound, domain.ErrCodeReviewNotFound)
}

// ========================
// Release Tests
// ========================

func releaseForm(code string) map[string]interface{} {
	return map[string]interface{}{
		"folder_path":    "/drawings/" + code,
		"revision_code":  code,
		"changelog":      "Release " + code,
		"hardcopy_count": 2,
	}
}

func decodeRevision(t *testing.T, setup *testSetup, rr *httptest.ResponseRecorder) response.RevisionResponse {
	t.Helper()
	setup.expectStatus(rr, http.StatusOK)
	var resp response.RevisionResponse
	setup.decode(rr, &resp)
	return resp
}

func TestRelease_RevisionCycle(t *testing.T) {
	setup := newTestSetup(t)
	design := setup.rootTask("JO-5", domain.DepartmentDesign, nil)

	body := releaseForm("A")
	body["task"] = design.ID
	rr := setup.doRequest("POST", "/projects/drawing-releases/", body, nil)
	setup.expectStatus(rr, http.StatusCreated)
	var rel domain.Release
	setup.decode(rr, &rel)
	if rel.Status != domain.ReleaseReleased || rel.JobOrder != "JO-5" {
		t.Fatalf("unexpected release %+v", rel)
	}

	rr = setup.doRequest("GET", "/projects/drawing-releases/current/?job_order=JO-5", nil, nil)
	setup.expectStatus(rr, http.StatusOK)

	base := fmt.Sprintf("/projects/drawing-releases/%d/", rel.ID)

	rr = setup.doRequest("POST", base+"request_revision/", nil, nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)

	resp := decodeRevision(t, setup, setup.doRequest("POST", base+"request_revision/", map[string]string{"reason": "Wrong hole pattern"}, nil))
	if resp.Release.Status != domain.ReleaseRevisionRequested {
		t.Errorf("expected revision_requested, got %q", resp.Release.Status)
	}
	if got := setup.getTask(design.ID); !got.HasPendingRevisionRequest || got.PendingRevisionReason != "Wrong hole pattern" {
		t.Errorf("expected pending revision request on the task, got %v/%q", got.HasPendingRevisionRequest, got.PendingRevisionReason)
	}

	// A new release cannot bypass the open revision.
	again := releaseForm("B")
	again["task"] = design.ID
	rr = setup.doRequest("POST", "/projects/drawing-releases/", again, nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)

	resp = decodeRevision(t, setup, setup.doRequest("POST", base+"approve_revision/", map[string]interface{}{"assigned_to": 3}, nil))
	if resp.Release.Status != domain.ReleaseInRevision {
		t.Errorf("expected in_revision, got %q", resp.Release.Status)
	}
	underRevision := setup.getTask(design.ID)
	if !underRevision.IsUnderRevision {
		t.Error("expected the design task to be under revision")
	}
	if underRevision.AssignedTo == nil || *underRevision.AssignedTo != 3 {
		t.Errorf("expected reassignment to 3, got %v", underRevision.AssignedTo)
	}

	setup.mustAct(design.ID, "start")

	resp = decodeRevision(t, setup, setup.doRequest("POST", base+"complete_revision/", releaseForm("B"), nil))
	if resp.NewRelease == nil || resp.NewRelease.RevisionCode != "B" {
		t.Fatalf("expected new release B, got %+v", resp.NewRelease)
	}
	if resp.Release.Status != domain.ReleaseSuperseded {
		t.Errorf("expected old release superseded, got %q", resp.Release.Status)
	}
	if got := setup.getTask(design.ID).Status; got != domain.StatusCompleted {
		t.Errorf("expected design task completed by the revision, got %q", got)
	}

	rr = setup.doRequest("GET", "/projects/drawing-releases/current/?job_order=JO-5", nil, nil)
	setup.expectStatus(rr, http.StatusOK)
	var current domain.Release
	setup.decode(rr, &current)
	if current.ID != resp.NewRelease.ID {
		t.Errorf("expected current release %d, got %d", resp.NewRelease.ID, current.ID)
	}
}

func TestRelease_RejectAndWrongStates(t *testing.T) {
	setup := newTestSetup(t)
	design := setup.rootTask("JO-5", domain.DepartmentDesign, nil)

	body := releaseForm("A")
	body["task"] = design.ID
	rr := setup.doRequest("POST", "/projects/drawing-releases/", body, nil)
	setup.expectStatus(rr, http.StatusCreated)
	var rel domain.Release
	setup.decode(rr, &rel)
	base := fmt.Sprintf("/projects/drawing-releases/%d/", rel.ID)

	rr = setup.doRequest("POST", base+"approve_revision/", nil, nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeInvalidTransition)

	decodeRevision(t, setup, setup.doRequest("POST", base+"request_revision/", map[string]string{"reason": "Typo"}, nil))
	resp := decodeRevision(t, setup, setup.doRequest("POST", base+"reject_revision/", map[string]string{"reason": "Not needed"}, nil))
	if resp.Release.Status != domain.ReleaseReleased {
		t.Errorf("expected released after rejection, got %q", resp.Release.Status)
	}

	rr = setup.doRequest("POST", "/projects/drawing-releases/999/self_revision/", map[string]string{"reason": "x"}, nil)
	setup.expectError(rr, http.StatusNotFound, domain.ErrCodeReleaseNotFound)
}

func TestRelease_OnlyForDesignTasks(t *testing.T) {
	setup := newTestSetup(t)
	task := setup.rootTask("JO-5", domain.DepartmentPainting, nil)

	body := releaseForm("A")
	body["task"] = task.ID
	rr := setup.doRequest("POST", "/projects/drawing-releases/", body, nil)
	setup.expectError(rr, http.StatusBadRequest, domain.ErrCodeValidationFailed)

	rr = setup.doRequest("GET", "/projects/drawing-releases/current/?job_order=JO-5", nil, nil)
	setup.expectError(rr, http.StatusNotFound, domain.ErrCodeReleaseNotFound)
}

// ========================
// Planning Tests
// ========================

func TestPlanning_MarkDeliveredCompletesProcurement(t *testing.T) {
	setup := newTestSetup(t)

	rr := setup.doRequest("POST", "/planning/items/", map[string]string{"item_code": "BOLT-M12", "item_name": "M12 bolts"}, nil)
	setup.expectStatus(rr, http.StatusCreated)
	var item domain.PlanningItem
	setup.decode(rr, &item)

	root := setup.rootTask("JO-3", domain.DepartmentProcurement, nil)
	line := setup.createTask(map[string]interface{}{
		"parent":                   root.ID,
		"title":                    "Order bolts",
		"task_type":                "procurement_item",
		"planning_request_item_id": item.ID,
	})
	setup.mustAct(root.ID, "start")
	setup.mustAct(line.ID, "start")

	path := fmt.Sprintf("/planning/items/%d/mark_delivered/", item.ID)
	rr = setup.doRequest("POST", path, nil, nil)
	setup.expectStatus(rr, http.StatusOK)
	setup.decode(rr, &item)
	if !item.IsDelivered || item.DeliveredAt == nil {
		t.Errorf("expected delivered item, got %+v", item)
	}

	got := setup.getTask(line.ID)
	if got.Status != domain.StatusCompleted || !got.IsDelivered {
		t.Errorf("expected delivered procurement task completed, got %q delivered=%v", got.Status, got.IsDelivered)
	}
	if parent := setup.getTask(root.ID); parent.Status != domain.StatusCompleted {
		t.Errorf("expected procurement root to roll up, got %q", parent.Status)
	}

	// Delivering twice changes nothing.
	rr = setup.doRequest("POST", path, nil, nil)
	setup.expectStatus(rr, http.StatusOK)

	rr = setup.doRequest("POST", "/planning/items/999/mark_delivered/", nil, nil)
	setup.expectError(rr, http.StatusNotFound, domain.ErrCodePlanningItemNotFound)
}

func TestJobOrder_NotFound(t *testing.T) {
	setup := newTestSetup(t)

	rr := setup.doRequest("GET", "/projects/job-orders/NOPE/", nil, nil)
	setup.expectError(rr, http.StatusNotFound, domain.ErrCodeJobOrderNotFound)
}

// ========================
// Audit Tests
// ========================

func TestHistory_RecordsAgent(t *testing.T) {
	setup := newTestSetup(t)
	agent := map[string]string{middleware.ActorHeader: "alice"}

	rr := setup.doRequest("POST", tasksPath, map[string]interface{}{
		"job_order": "JO-1", "department": "design", "title": "Layout",
	}, agent)
	setup.expectStatus(rr, http.StatusCreated)
	var task domain.Task
	setup.decode(rr, &task)

	setup.doRequest("POST", taskPath(task.ID, "start"), nil, agent)

	rr = setup.doRequest("GET", taskPath(task.ID, "history"), nil, nil)
	setup.expectStatus(rr, http.StatusOK)
	var entries []domain.AuditEntry
	setup.decode(rr, &entries)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != domain.AuditCreate || entries[1].Action != domain.AuditTransition {
		t.Errorf("unexpected actions %q, %q", entries[0].Action, entries[1].Action)
	}
	for _, e := range entries {
		if e.ChangedBy != "alice" {
			t.Errorf("expected changed_by alice, got %q", e.ChangedBy)
		}
	}
	if entries[1].NewValue == nil || *entries[1].NewValue != "in_progress" {
		t.Errorf("expected transition to in_progress, got %v", entries[1].NewValue)
	}

	rr = setup.doRequest("GET", taskPath(domain.NumericID(999), "history"), nil, nil)
	setup.expectError(rr, http.StatusNotFound, domain.ErrCodeTaskNotFound)
}

func TestQueryAuditLog(t *testing.T) {
	setup := newTestSetup(t)
	task := setup.rootTask("JO-1", domain.DepartmentDesign, nil)
	setup.mustAct(task.ID, "start")
	setup.mustAct(task.ID, "complete")

	rr := setup.doRequest("GET", "/audit/?action=transition", nil, nil)
	setup.expectStatus(rr, http.StatusOK)

	var page struct {
		Count   int                 `json:"count"`
		Results []domain.AuditEntry `json:"results"`
	}
	setup.decode(rr, &page)
	if page.Count != 2 {
		t.Errorf("expected 2 transitions, got %d", page.Count)
	}
	if len(page.Results) == 2 && *page.Results[0].NewValue != "completed" {
		t.Errorf("expected newest entry first, got %v", *page.Results[0].NewValue)
	}
}
