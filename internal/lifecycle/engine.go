// Package lifecycle drives department tasks through their status machine
// and the department-specific branches of it: drawing releases and
// revisions for design, delivery of procurement items and QC-gated
// completion.
//
// The task service is authoritative. The engine checks the request against
// the actions offered for the snapshot, triggers the calls and hands every
// fresh snapshot to a Sink, usually the board.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/airyra/taskboard/internal/board"
	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/logging"
	"github.com/airyra/taskboard/internal/metrics"
)

// Releases is the drawing release service.
type Releases interface {
	CreateRelease(ctx context.Context, input client.ReleaseInput) (*domain.Release, error)
	RequestRevision(ctx context.Context, releaseID int64, reason string) (*client.RevisionResult, error)
	ApproveRevision(ctx context.Context, releaseID int64, assignTo *int64) (*client.RevisionResult, error)
	RejectRevision(ctx context.Context, releaseID int64, reason string) (*client.RevisionResult, error)
	SelfStartRevision(ctx context.Context, releaseID int64, reason string) (*client.RevisionResult, error)
	CompleteRevision(ctx context.Context, releaseID int64, form domain.ReleaseForm) (*client.RevisionResult, error)
}

// Planning is the planning service that owns procurement deliveries.
type Planning interface {
	MarkDelivered(ctx context.Context, itemID int64) (*client.PlanningItem, error)
}

// Sink receives every snapshot the engine obtains from the server.
type Sink interface {
	Apply(task *domain.Task) bool
}

// ChildRefresher is implemented by sinks that cache children.
type ChildRefresher interface {
	RefreshChildren(ctx context.Context, parent domain.TaskID) error
}

var (
	_ Releases = (*client.Client)(nil)
	_ Planning = (*client.Client)(nil)
	_ Sink     = (*board.Board)(nil)
)

// Request describes one user action on a task snapshot.
type Request struct {
	Task   *domain.Task
	Action domain.Action

	// Reason is required by block, request_revision, self_start_revision
	// and reject_revision.
	Reason string

	// Release carries the drawing release form of release_and_complete,
	// complete_revision and the optional release of a design subtask.
	Release *domain.ReleaseForm

	// AutoComplete completes the task after release_and_complete publishes.
	AutoComplete bool

	// AssignTo reassigns the design task when approving a revision.
	AssignTo *int64
}

// Result is the outcome of a performed action.
type Result struct {
	Task    *domain.Task
	Parent  *domain.Task
	Release *domain.Release
	Message string
}

// Engine performs lifecycle actions.
type Engine struct {
	gateway  *board.Gateway
	releases Releases
	planning Planning
	sink     Sink
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the receiver of fresh snapshots.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.OrDiscard(l)
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an engine. releases and planning may be nil when the
// caller never performs design or procurement actions.
func NewEngine(gw *board.Gateway, releases Releases, planning Planning, opts ...Option) *Engine {
	e := &Engine{
		gateway:  gw,
		releases: releases,
		planning: planning,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Perform checks req against the actions offered for req.Task and carries
// it out. Validation errors are returned before any request is sent.
func (e *Engine) Perform(ctx context.Context, req Request) (*Result, error) {
	if req.Task == nil {
		return nil, domain.NewValidationError([]string{"task is required"})
	}
	if err := e.check(req); err != nil {
		e.metrics.RecordAction(string(req.Action), metrics.OutcomeInvalid)
		return nil, err
	}

	res, err := e.dispatch(ctx, req)

	var (
		partial     *PartialCompletionError
		unconfirmed *UnconfirmedReleaseError
	)
	switch {
	case errors.As(err, &partial):
		e.metrics.RecordAction(string(req.Action), metrics.OutcomePartial)
		e.logger.Warn("action partially applied", "task", req.Task.ID, "action", req.Action, "release", partial.Release.ID, "error", partial.Err)
		return nil, err
	case errors.As(err, &unconfirmed):
		e.metrics.RecordAction(string(req.Action), metrics.OutcomePartial)
		e.logger.Warn("release published without a fresh snapshot", "task", req.Task.ID, "release", unconfirmed.Release.ID, "error", unconfirmed.Err)
		return nil, err
	case err != nil:
		e.metrics.RecordAction(string(req.Action), metrics.OutcomeFailure)
		e.logger.Warn("action failed", "task", req.Task.ID, "action", req.Action, "error", err)
		return nil, err
	}

	if completesOrReopens(req.Action) && req.Task.IsSubtask() {
		res.Parent = e.refreshParent(ctx, req.Task.Parent)
	}

	e.metrics.RecordAction(string(req.Action), metrics.OutcomeSuccess)
	e.logger.Info("action performed", "task", req.Task.ID, "action", req.Action, "status", res.Task.Status)
	return res, nil
}

// check validates the request locally.
func (e *Engine) check(req Request) error {
	t := req.Task
	if !domain.AvailableActions(t).Has(req.Action) {
		return domain.NewActionNotAllowedError(t.ID, req.Action, t.Status)
	}

	var details []string
	switch req.Action {
	case domain.ActionBlock, domain.ActionRequestRevision, domain.ActionSelfStartRevision, domain.ActionRejectRevision:
		if strings.TrimSpace(req.Reason) == "" {
			details = append(details, "reason is required")
		}
	case domain.ActionReleaseAndComplete, domain.ActionCompleteRevision:
		if req.Release == nil {
			details = append(details, "release form is required")
		} else {
			details = append(details, req.Release.Validate()...)
		}
	case domain.ActionComplete:
		if req.Release != nil {
			if !isDesignSubtask(t) {
				details = append(details, "a release can only accompany a design subtask")
			} else {
				details = append(details, req.Release.Validate()...)
			}
		}
	case domain.ActionEdit, domain.ActionSubmitQC, domain.ActionAssignSubcontractor:
		return fmt.Errorf("%s is not a lifecycle action", req.Action)
	}
	if len(details) > 0 {
		return domain.NewValidationError(details)
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, req Request) (*Result, error) {
	t := req.Task
	switch req.Action {
	case domain.ActionStart, domain.ActionUncomplete, domain.ActionSkip, domain.ActionUnskip, domain.ActionUnblock:
		return e.invoke(ctx, t.ID, req.Action, nil)

	case domain.ActionBlock:
		return e.invoke(ctx, t.ID, req.Action, blockPayload{Reason: strings.TrimSpace(req.Reason)})

	case domain.ActionComplete:
		if req.Release != nil {
			return e.releaseThenComplete(ctx, t, *req.Release, true)
		}
		return e.invoke(ctx, t.ID, domain.ActionComplete, nil)

	case domain.ActionReleaseAndComplete:
		return e.releaseThenComplete(ctx, t, *req.Release, req.AutoComplete)

	case domain.ActionCompleteRevision:
		return e.completeRevision(ctx, t, *req.Release)

	case domain.ActionMarkDelivered:
		return e.markDelivered(ctx, t)

	case domain.ActionSelfStartRevision, domain.ActionRequestRevision, domain.ActionApproveRevision, domain.ActionRejectRevision:
		return e.revision(ctx, req)
	}
	return nil, fmt.Errorf("unsupported action %s", req.Action)
}

type blockPayload struct {
	Reason string `json:"reason"`
}

// invoke calls a lifecycle endpoint and applies the returned snapshot.
func (e *Engine) invoke(ctx context.Context, id domain.TaskID, action domain.Action, payload interface{}) (*Result, error) {
	res, err := e.gateway.Invoke(ctx, id, action, payload)
	if err != nil {
		return nil, err
	}
	e.apply(res.Task)
	return &Result{Task: res.Task, Message: res.Message}, nil
}

// refetch obtains a fresh snapshot after a call that does not return one.
func (e *Engine) refetch(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	t, err := e.gateway.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	e.apply(t)
	return t, nil
}

// refreshParent refetches the parent of a completed or reopened subtask,
// whose status the server may have changed. Failures are logged only.
func (e *Engine) refreshParent(ctx context.Context, parent domain.TaskID) *domain.Task {
	t, err := e.refetch(ctx, parent)
	if err != nil {
		e.logger.Warn("parent refresh failed", "task", parent, "error", err)
		return nil
	}
	return t
}

func (e *Engine) apply(t *domain.Task) {
	if e.sink != nil && t != nil {
		e.sink.Apply(t)
	}
}

func completesOrReopens(a domain.Action) bool {
	switch a {
	case domain.ActionComplete, domain.ActionUncomplete, domain.ActionReleaseAndComplete:
		return true
	}
	return false
}

func isDesignSubtask(t *domain.Task) bool {
	return t.Department == domain.DepartmentDesign && t.IsSubtask()
}
