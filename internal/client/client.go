package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/airyra/taskboard/internal/domain"
)

// Header names sent on every request.
const (
	HeaderAgent     = "X-Taskboard-Agent"
	HeaderRequestID = "X-Request-ID"
)

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the department task service.
type Client struct {
	baseURL string       // scheme://host:port[/prefix]
	agentID string       // X-Taskboard-Agent header value
	token   string       // bearer token, optional
	http    *http.Client // HTTP client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends the token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a new task service client.
func NewClient(baseURL, agentID string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		agentID: agentID,
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// Health
// =============================================================================

// Health checks if the server is healthy.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health/", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isConnectionRefused(err) {
			return ErrServerNotRunning
		}
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrServerUnhealthy
	}

	return nil
}

// =============================================================================
// Helper Methods
// =============================================================================

// do sends the request, checks the status code and decodes the body into
// out when out is non-nil. op names the call in wrapped errors.
func (c *Client) do(req *http.Request, wantStatus int, out interface{}, op string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if isConnectionRefused(err) {
			return ErrServerNotRunning
		}
		return fmt.Errorf("%s failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return parseErrorResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// get issues a GET and decodes a 200 response.
func (c *Client) get(ctx context.Context, path string, out interface{}, op string) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, out, op)
}

// send issues a request with a JSON body and decodes the response.
func (c *Client) send(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}, op string) error {
	req, err := c.newJSONRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.do(req, wantStatus, out, op)
}

// newRequest creates a new HTTP request with common headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	reqURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if c.agentID != "" {
		req.Header.Set(HeaderAgent, c.agentID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return req, nil
}

// newJSONRequest creates a new HTTP request with JSON body.
func (c *Client) newJSONRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var buf bytes.Buffer
	if body == nil {
		body = struct{}{}
	}
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// Ensure Client implements expected interface at compile time.
var _ interface {
	Health(ctx context.Context) error
	ListTasks(ctx context.Context, filter domain.TaskFilter) (*domain.TaskPage, error)
	GetTask(ctx context.Context, id domain.TaskID) (*domain.Task, error)
	CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error)
	BulkCreateSubtasks(ctx context.Context, parent domain.TaskID, tree []TaskNode) (*BulkCreateResult, error)
	PatchTask(ctx context.Context, id domain.TaskID, fields map[string]interface{}) (*domain.Task, error)
	InvokeAction(ctx context.Context, id domain.TaskID, action domain.Action, payload interface{}) (*ActionResult, error)
	GetTaskHistory(ctx context.Context, id domain.TaskID) ([]domain.AuditEntry, error)
	CreateRelease(ctx context.Context, input ReleaseInput) (*domain.Release, error)
	CurrentRelease(ctx context.Context, jobOrder string) (*domain.Release, error)
	RequestRevision(ctx context.Context, releaseID int64, reason string) (*RevisionResult, error)
	ApproveRevision(ctx context.Context, releaseID int64, assignTo *int64) (*RevisionResult, error)
	RejectRevision(ctx context.Context, releaseID int64, reason string) (*RevisionResult, error)
	SelfStartRevision(ctx context.Context, releaseID int64, reason string) (*RevisionResult, error)
	CompleteRevision(ctx context.Context, releaseID int64, form domain.ReleaseForm) (*RevisionResult, error)
	MarkDelivered(ctx context.Context, itemID int64) (*PlanningItem, error)
	ListQCReviews(ctx context.Context, task domain.TaskID) ([]*domain.QCReview, error)
	SubmitQCReview(ctx context.Context, task domain.TaskID, partData map[string]interface{}) (*domain.QCReview, error)
	DecideQCReview(ctx context.Context, reviewID int64, approve bool, comment string) (*domain.QCReview, error)
	ListNCRs(ctx context.Context, task domain.TaskID) ([]*domain.NCR, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*Assignment, error)
	CreateAssignment(ctx context.Context, input AssignmentInput) (*Assignment, error)
	UpdateAssignment(ctx context.Context, id int64, update AssignmentUpdate) (*Assignment, error)
	RemainingWeight(ctx context.Context, priceTierID int64) (*RemainingWeight, error)
} = (*Client)(nil)
