package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/airyra/taskboard/internal/domain"
)

// =============================================================================
// Request Building Tests
// =============================================================================

func TestNewClient_TrimsBaseURL(t *testing.T) {
	c := NewClient("http://localhost:8080/api/", "agent")
	if c.BaseURL() != "http://localhost:8080/api" {
		t.Errorf("expected trimmed base URL, got %q", c.BaseURL())
	}
}

func TestNewClient_Options(t *testing.T) {
	hc := &http.Client{}
	c := NewClient("http://x", "agent", WithHTTPClient(hc), WithTimeout(5*time.Second), WithToken("secret"))
	if c.http != hc {
		t.Error("expected custom HTTP client")
	}
	if c.http.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", c.http.Timeout)
	}
	if c.token != "secret" {
		t.Errorf("expected token, got %q", c.token)
	}
}

func TestClient_Headers(t *testing.T) {
	var got http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "ayse@workshop", WithToken("tok"))
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Get(HeaderAgent) != "ayse@workshop" {
		t.Errorf("expected agent header, got %q", got.Get(HeaderAgent))
	}
	if _, err := uuid.Parse(got.Get(HeaderRequestID)); err != nil {
		t.Errorf("expected request id to be a UUID, got %q", got.Get(HeaderRequestID))
	}
	if got.Get("Authorization") != "Bearer tok" {
		t.Errorf("expected bearer token, got %q", got.Get("Authorization"))
	}
}

func TestHealth_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewClient(server.URL, "agent").Health(context.Background())
	if !errors.Is(err, ErrServerUnhealthy) {
		t.Errorf("expected ErrServerUnhealthy, got %v", err)
	}
}

func TestHealth_ConnectionRefused(t *testing.T) {
	c := NewClient("http://localhost:59999", "agent")

	err := c.Health(context.Background())
	if !errors.Is(err, ErrServerNotRunning) {
		t.Errorf("expected ErrServerNotRunning, got %v", err)
	}
}

// =============================================================================
// Task Tests
// =============================================================================

func TestListTasks_EncodesFilter(t *testing.T) {
	var query map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/department-tasks/" {
			t.Errorf("expected task list path, got %s", r.URL.Path)
		}
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count":   1,
			"results": []map[string]interface{}{{"id": 10, "title": "Frame", "status": "pending", "subtasks_count": 2}},
		})
	}))
	defer server.Close()

	q := domain.NewQuery(domain.DepartmentManufacturing).WithUnassigned().WithSearch("frame")
	page, err := NewClient(server.URL, "agent").ListTasks(context.Background(), q.Filter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"department":          "manufacturing",
		"status__in":          "pending,in_progress",
		"assigned_to__isnull": "true",
		"main_only":           "true",
		"search":              "frame",
		"ordering":            "sequence",
		"page":                "1",
		"page_size":           "20",
	}
	for k, v := range want {
		if query[k] != v {
			t.Errorf("expected %s=%q, got %q", k, v, query[k])
		}
	}
	if _, ok := query["assigned_to"]; ok {
		t.Error("expected assigned_to to be omitted when filtering unassigned")
	}

	if page.Count != 1 || len(page.Results) != 1 {
		t.Fatalf("expected one task, got %d/%d", page.Count, len(page.Results))
	}
	if page.Results[0].ID != domain.NumericID(10) {
		t.Errorf("expected id 10, got %v", page.Results[0].ID)
	}
}

func TestEncodeFilter_SingleStatusAndParent(t *testing.T) {
	params := EncodeFilter(domain.TaskFilter{
		Statuses: []domain.TaskStatus{domain.StatusBlocked},
		Parent:   domain.NumericID(7),
		Ordering: "sequence",
	})
	if params.Get("status") != "blocked" {
		t.Errorf("expected status=blocked, got %q", params.Get("status"))
	}
	if params.Get("status__in") != "" {
		t.Error("expected status__in to be omitted for one status")
	}
	if params.Get("parent") != "7" {
		t.Errorf("expected parent=7, got %q", params.Get("parent"))
	}
	if params.Get("main_only") != "" {
		t.Error("expected main_only to be omitted")
	}
}

func TestListTasks_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"count": 0})
	}))
	defer server.Close()

	page, err := NewClient(server.URL, "agent").ListTasks(context.Background(), domain.TaskFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Results == nil {
		t.Error("expected non-nil empty results")
	}
}

func TestGetTask_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/department-tasks/12/" {
			t.Errorf("expected /projects/department-tasks/12/, got %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "12", "parent": 10, "title": "Weld", "status": "in_progress"})
	}))
	defer server.Close()

	task, err := NewClient(server.URL, "agent").GetTask(context.Background(), domain.NumericID(12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != domain.NumericID(12) {
		t.Errorf("expected id 12, got %v", task.ID)
	}
	if task.Parent != domain.NumericID(10) {
		t.Errorf("expected parent 10, got %v", task.Parent)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "TASK_NOT_FOUND",
				"message": "Task 99 not found",
				"context": map[string]interface{}{"id": "99"},
			},
		})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "agent").GetTask(context.Background(), domain.NumericID(99))

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T", err)
	}
	if domainErr.Code != domain.ErrCodeTaskNotFound {
		t.Errorf("expected code TASK_NOT_FOUND, got %s", domainErr.Code)
	}
	if domainErr.Context["id"] != "99" {
		t.Errorf("expected id 99 in context, got %v", domainErr.Context["id"])
	}
}

func TestCreateTask_Success(t *testing.T) {
	var received map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&received)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 31, "parent": 10, "title": "Cut plates", "status": "pending"})
	}))
	defer server.Close()

	task, err := NewClient(server.URL, "agent").CreateTask(context.Background(), CreateTaskInput{
		JobOrder:   "254-01",
		Department: domain.DepartmentManufacturing,
		Title:      "Cut plates",
		Parent:     domain.NumericID(10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != domain.NumericID(31) {
		t.Errorf("expected id 31, got %v", task.ID)
	}
	if received["parent"] != float64(10) {
		t.Errorf("expected parent 10 in body, got %v", received["parent"])
	}
	if received["title"] != "Cut plates" {
		t.Errorf("expected title in body, got %v", received["title"])
	}
}

func TestBulkCreateSubtasks_Success(t *testing.T) {
	var received bulkCreateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/department-tasks/bulk_create/" {
			t.Errorf("expected bulk create path, got %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "3 tasks created",
			"tasks":   []map[string]interface{}{{"id": 40}, {"id": 41}, {"id": 42}},
		})
	}))
	defer server.Close()

	tree := []TaskNode{{Title: "Assembly", Children: []TaskNode{{Title: "Bolt"}, {Title: "Weld"}}}}
	result, err := NewClient(server.URL, "agent").BulkCreateSubtasks(context.Background(), domain.NumericID(10), tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.Parent != domain.NumericID(10) {
		t.Errorf("expected parent 10, got %v", received.Parent)
	}
	if len(received.Tasks) != 1 || len(received.Tasks[0].Children) != 2 {
		t.Errorf("expected nested tree to be sent, got %+v", received.Tasks)
	}
	if len(result.Tasks) != 3 || result.Message != "3 tasks created" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestPatchTask_SendsOnlyGivenFields(t *testing.T) {
	var received map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&received)
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 5, "completion_percentage": 60})
	}))
	defer server.Close()

	task, err := NewClient(server.URL, "agent").PatchTask(context.Background(), domain.NumericID(5), map[string]interface{}{"completion_percentage": 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(received) != 1 || received["completion_percentage"] != float64(60) {
		t.Errorf("expected only completion_percentage, got %v", received)
	}
	if task.Progress() != 60 {
		t.Errorf("expected progress 60, got %d", task.Progress())
	}
}

func TestGetTaskHistory_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/department-tasks/5/history/" {
			t.Errorf("expected history path, got %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"id": 1, "task_id": 5, "action": "transition", "field": "status", "old_value": "pending", "new_value": "in_progress", "changed_by": "ayse"},
		})
	}))
	defer server.Close()

	entries, err := NewClient(server.URL, "agent").GetTaskHistory(context.Background(), domain.NumericID(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != domain.AuditTransition {
		t.Errorf("unexpected entries %+v", entries)
	}
}

// =============================================================================
// Status Transition Tests
// =============================================================================

func TestInvokeAction_Success(t *testing.T) {
	var received map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/projects/department-tasks/5/block/" {
			t.Errorf("expected block path, got %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "success",
			"message": "Task blocked",
			"task":    map[string]interface{}{"id": 5, "status": "blocked", "blocked_reason": "no steel"},
		})
	}))
	defer server.Close()

	result, err := NewClient(server.URL, "agent").InvokeAction(context.Background(), domain.NumericID(5), domain.ActionBlock, map[string]string{"reason": "no steel"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received["reason"] != "no steel" {
		t.Errorf("expected reason in body, got %v", received)
	}
	if result.Task.Status != domain.StatusBlocked {
		t.Errorf("expected blocked, got %s", result.Task.Status)
	}
	if result.Message != "Task blocked" {
		t.Errorf("expected message, got %q", result.Message)
	}
}

func TestInvokeAction_RejectsNonTransition(t *testing.T) {
	c := NewClient("http://localhost:59999", "agent")
	if _, err := c.InvokeAction(context.Background(), domain.NumericID(1), domain.ActionEdit, nil); err == nil {
		t.Error("expected error for non-lifecycle action")
	}
}

func TestInvokeAction_MissingTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "agent").InvokeAction(context.Background(), domain.NumericID(1), domain.ActionStart, nil)
	if err == nil {
		t.Error("expected error when response has no task")
	}
}

func TestInvokeAction_InvalidTransition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "INVALID_TRANSITION",
				"message": "Cannot transition from completed to in_progress",
				"context": map[string]interface{}{"from": "completed", "to": "in_progress"},
			},
		})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "agent").InvokeAction(context.Background(), domain.NumericID(1), domain.ActionStart, nil)
	if !domain.IsCode(err, domain.ErrCodeInvalidTransition) {
		t.Errorf("expected INVALID_TRANSITION, got %v", err)
	}
}

// =============================================================================
// Release and Planning Tests
// =============================================================================

func TestCreateRelease_FlattensForm(t *testing.T) {
	var received map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/drawing-releases/" {
			t.Errorf("expected releases path, got %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 3, "revision_code": "A0", "status": "released"})
	}))
	defer server.Close()

	rel, err := NewClient(server.URL, "agent").CreateRelease(context.Background(), ReleaseInput{
		Task:     domain.NumericID(2),
		JobOrder: "254-01",
		ReleaseForm: domain.ReleaseForm{
			FolderPath:    `\\nas\254-01\A0`,
			RevisionCode:  "A0",
			Changelog:     "First issue",
			HardcopyCount: 2,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel.ID != 3 || rel.Status != domain.ReleaseReleased {
		t.Errorf("unexpected release %+v", rel)
	}
	for _, key := range []string{"task", "job_order", "folder_path", "revision_code", "changelog", "hardcopy_count"} {
		if _, ok := received[key]; !ok {
			t.Errorf("expected %s in body, got %v", key, received)
		}
	}
}

func TestRevisionCalls_Paths(t *testing.T) {
	var paths []string
	var bodies []map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "new_release": map[string]interface{}{"id": 9}})
	}))
	defer server.Close()

	c := NewClient(server.URL, "agent")
	ctx := context.Background()
	user := int64(4)

	if _, err := c.RequestRevision(ctx, 3, "wrong hole"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.ApproveRevision(ctx, 3, &user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.RejectRevision(ctx, 3, "not needed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.SelfStartRevision(ctx, 3, "typo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := c.CompleteRevision(ctx, 3, domain.ReleaseForm{FolderPath: "p", RevisionCode: "A1", Changelog: "fix"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"/projects/drawing-releases/3/request_revision/",
		"/projects/drawing-releases/3/approve_revision/",
		"/projects/drawing-releases/3/reject_revision/",
		"/projects/drawing-releases/3/self_revision/",
		"/projects/drawing-releases/3/complete_revision/",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(paths))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
	if bodies[0]["reason"] != "wrong hole" {
		t.Errorf("expected reason, got %v", bodies[0])
	}
	if bodies[1]["assigned_to"] != float64(4) {
		t.Errorf("expected assigned_to 4, got %v", bodies[1])
	}
	if bodies[4]["revision_code"] != "A1" {
		t.Errorf("expected revision code, got %v", bodies[4])
	}
	if result.NewRelease == nil || result.NewRelease.ID != 9 {
		t.Errorf("expected new release 9, got %+v", result.NewRelease)
	}
}

func TestCurrentRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/drawing-releases/current/" {
			t.Errorf("expected current path, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("job_order") != "254-01" {
			t.Errorf("expected job_order query, got %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 4, "job_order": "254-01"})
	}))
	defer server.Close()

	rel, err := NewClient(server.URL, "agent").CurrentRelease(context.Background(), "254-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel.ID != 4 {
		t.Errorf("expected release 4, got %d", rel.ID)
	}
}

func TestMarkDelivered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/planning/items/33/mark_delivered/" {
			t.Errorf("expected mark delivered path, got %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 33, "is_delivered": true})
	}))
	defer server.Close()

	item, err := NewClient(server.URL, "agent").MarkDelivered(context.Background(), 33)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !item.IsDelivered {
		t.Error("expected item to be delivered")
	}
}

func TestCreatePlanningItemAndJobOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/planning/items/":
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["item_code"] != "BOLT-M12" {
				t.Errorf("expected item_code BOLT-M12, got %q", body["item_code"])
			}
			writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 8, "item_code": "BOLT-M12", "is_delivered": false})
		case r.Method == http.MethodGet && r.URL.Path == "/projects/job-orders/JO-1/":
			writeJSON(w, http.StatusOK, map[string]interface{}{"job_no": "JO-1", "status": "completed"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "agent")
	item, err := c.CreatePlanningItem(context.Background(), "BOLT-M12", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID != 8 {
		t.Errorf("expected item 8, got %d", item.ID)
	}

	jo, err := c.GetJobOrder(context.Background(), "JO-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jo.Status != domain.JobOrderCompleted {
		t.Errorf("expected completed job order, got %s", jo.Status)
	}
}

// =============================================================================
// Quality and Subcontracting Tests
// =============================================================================

func TestListQCReviews_AcceptsArrayAndPage(t *testing.T) {
	bodies := []interface{}{
		[]map[string]interface{}{{"id": 1, "task": 5, "status": "approved"}},
		map[string]interface{}{"count": 1, "results": []map[string]interface{}{{"id": 1, "task": 5, "status": "approved"}}},
	}
	for i, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("task") != "5" {
				t.Errorf("expected task=5, got %s", r.URL.RawQuery)
			}
			writeJSON(w, http.StatusOK, body)
		}))

		reviews, err := NewClient(server.URL, "agent").ListQCReviews(context.Background(), domain.NumericID(5))
		server.Close()
		if err != nil {
			t.Fatalf("body %d: unexpected error: %v", i, err)
		}
		if len(reviews) != 1 || reviews[0].Status != domain.QCApproved {
			t.Errorf("body %d: unexpected reviews %+v", i, reviews)
		}
	}
}

func TestSubmitAndDecideQCReview(t *testing.T) {
	var submitted, decided map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quality-control/qc-reviews/submit/":
			json.NewDecoder(r.Body).Decode(&submitted)
			writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 7, "task": 5, "status": "pending"})
		case "/quality-control/qc-reviews/7/decide/":
			json.NewDecoder(r.Body).Decode(&decided)
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": 7, "task": 5, "status": "approved"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "agent")
	review, err := c.SubmitQCReview(context.Background(), domain.NumericID(5), map[string]interface{}{"drawing_no": "D-7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if review.Status != domain.QCPending {
		t.Errorf("expected pending review, got %s", review.Status)
	}
	if submitted["task_id"] != float64(5) {
		t.Errorf("expected task_id 5, got %v", submitted)
	}

	review, err = c.DecideQCReview(context.Background(), 7, true, "ok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if review.Status != domain.QCApproved {
		t.Errorf("expected approved review, got %s", review.Status)
	}
	if decided["approve"] != true || decided["comment"] != "ok" {
		t.Errorf("unexpected decide body %v", decided)
	}
}

func TestListNCRs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("department_task") != "5" {
			t.Errorf("expected department_task=5, got %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"count": 1, "results": []map[string]interface{}{{"id": 2, "department_task": 5, "title": "Porosity"}}})
	}))
	defer server.Close()

	ncrs, err := NewClient(server.URL, "agent").ListNCRs(context.Background(), domain.NumericID(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ncrs) != 1 || ncrs[0].Title != "Porosity" {
		t.Errorf("unexpected ncrs %+v", ncrs)
	}
}

func TestAssignments(t *testing.T) {
	var created map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subcontracting/assignments/":
			if r.URL.Query().Get("department_task") != "5" || r.URL.Query().Get("job_no") != "254-01" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"count": 1, "results": []map[string]interface{}{{"id": 1, "department_task": 5, "allocated_weight_kg": 120.5}}})
		case r.Method == http.MethodPost && r.URL.Path == "/subcontracting/assignments/":
			json.NewDecoder(r.Body).Decode(&created)
			writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 2, "department_task": 5, "allocated_weight_kg": 80})
		case r.Method == http.MethodPatch && r.URL.Path == "/subcontracting/assignments/2/":
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": 2, "current_progress": 50})
		case r.URL.Path == "/subcontracting/price-tiers/6/remaining-weight/":
			writeJSON(w, http.StatusOK, map[string]interface{}{"price_tier_id": 6, "allocated_weight_kg": 500, "used_weight_kg": 200, "remaining_weight_kg": 300})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "agent")
	ctx := context.Background()

	list, err := c.ListAssignments(ctx, AssignmentFilter{JobNo: "254-01", Task: domain.NumericID(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].AllocatedWeightKg != 120.5 {
		t.Errorf("unexpected assignments %+v", list)
	}

	a, err := c.CreateAssignment(ctx, AssignmentInput{DepartmentTask: domain.NumericID(5), Subcontractor: 3, PriceTier: 6, AllocatedWeightKg: 80})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != 2 || created["price_tier"] != float64(6) {
		t.Errorf("unexpected create %+v / %v", a, created)
	}

	progress := 50.0
	a, err = c.UpdateAssignment(ctx, 2, AssignmentUpdate{CurrentProgress: &progress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.CurrentProgress != 50 {
		t.Errorf("expected progress 50, got %v", a.CurrentProgress)
	}

	rw, err := c.RemainingWeight(ctx, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rw.RemainingWeightKg != 300 {
		t.Errorf("expected 300 kg remaining, got %v", rw.RemainingWeightKg)
	}
}

// =============================================================================
// Error Parsing Tests
// =============================================================================

func TestParseError_FallbackChain(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    domain.ErrorCode
		wantMessage string
		wantDetails []string
	}{
		{
			name:        "envelope",
			status:      http.StatusBadRequest,
			body:        `{"error":{"code":"QC_APPROVAL_REQUIRED","message":"QC approval required"}}`,
			wantCode:    domain.ErrCodeQCApprovalRequired,
			wantMessage: "QC approval required",
		},
		{
			name:        "field errors",
			status:      http.StatusBadRequest,
			body:        `{"title":["This field may not be blank."],"non_field_errors":["Parent is closed."],"detail":"ignored"}`,
			wantCode:    domain.ErrCodeValidationFailed,
			wantDetails: []string{"Parent is closed.", "title: This field may not be blank."},
		},
		{
			name:        "detail",
			status:      http.StatusForbidden,
			body:        `{"detail":"You do not have permission to perform this action."}`,
			wantCode:    domain.ErrCodeServerError,
			wantMessage: "You do not have permission to perform this action.",
		},
		{
			name:        "message",
			status:      http.StatusConflict,
			body:        `{"message":"Release already exists"}`,
			wantCode:    domain.ErrCodeServerError,
			wantMessage: "Release already exists",
		},
		{
			name:        "plain error string",
			status:      http.StatusBadRequest,
			body:        `{"error":"Reason is required"}`,
			wantCode:    domain.ErrCodeServerError,
			wantMessage: "Reason is required",
		},
		{
			name:        "html body",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantCode:    domain.ErrCodeServerError,
			wantMessage: "Bad Gateway",
		},
		{
			name:        "empty object",
			status:      http.StatusInternalServerError,
			body:        `{}`,
			wantCode:    domain.ErrCodeServerError,
			wantMessage: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "agent").GetTask(context.Background(), domain.NumericID(1))

			var domainErr *domain.DomainError
			if !errors.As(err, &domainErr) {
				t.Fatalf("expected DomainError, got %T (%v)", err, err)
			}
			if domainErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, domainErr.Code)
			}
			if tt.wantMessage != "" && domainErr.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, domainErr.Message)
			}
			if tt.wantDetails != nil {
				got := domainErr.Details()
				if len(got) != len(tt.wantDetails) {
					t.Fatalf("expected details %v, got %v", tt.wantDetails, got)
				}
				for i := range got {
					if got[i] != tt.wantDetails[i] {
						t.Errorf("detail %d: expected %q, got %q", i, tt.wantDetails[i], got[i])
					}
				}
			}
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
