package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

var (
	errNoReleaseService  = errors.New("release service is not configured")
	errNoPlanningService = errors.New("planning service is not configured")
)

// releaseThenComplete publishes a drawing release for t and, when complete
// is set, completes the task. The two calls are not atomic: when the
// completion fails after the release exists the release is kept and a
// *PartialCompletionError carries it with the refetched task. Without
// completion a failed refetch yields an *UnconfirmedReleaseError.
func (e *Engine) releaseThenComplete(ctx context.Context, t *domain.Task, form domain.ReleaseForm, complete bool) (*Result, error) {
	if e.releases == nil {
		return nil, errNoReleaseService
	}

	rel, err := e.releases.CreateRelease(ctx, client.ReleaseInput{
		Task:        t.ID,
		JobOrder:    t.JobOrder,
		ReleaseForm: form,
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("release published", "task", t.ID, "release", rel.ID, "revision", rel.RevisionCode)

	if !complete {
		fresh, err := e.refetch(ctx, t.ID)
		if err != nil {
			return nil, &UnconfirmedReleaseError{Release: rel, Err: err}
		}
		return &Result{Task: fresh, Release: rel}, nil
	}

	res, err := e.invoke(ctx, t.ID, domain.ActionComplete, nil)
	if err != nil {
		partial := &PartialCompletionError{Release: rel, Err: err}
		if fresh, ferr := e.refetch(ctx, t.ID); ferr == nil {
			partial.Task = fresh
		}
		return nil, partial
	}
	res.Release = rel
	return res, nil
}

// completeRevision closes the open revision of t with a new release.
func (e *Engine) completeRevision(ctx context.Context, t *domain.Task, form domain.ReleaseForm) (*Result, error) {
	if e.releases == nil {
		return nil, errNoReleaseService
	}

	rr, err := e.releases.CompleteRevision(ctx, *t.ActiveRevisionReleaseID, form)
	if err != nil {
		return nil, err
	}

	fresh, err := e.refetch(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Task: fresh, Release: rr.NewRelease, Message: rr.Message}, nil
}

// revision runs one step of the revision cycle on the current release.
func (e *Engine) revision(ctx context.Context, req Request) (*Result, error) {
	if e.releases == nil {
		return nil, errNoReleaseService
	}

	releaseID := *req.Task.CurrentReleaseID
	reason := strings.TrimSpace(req.Reason)

	var (
		rr  *client.RevisionResult
		err error
	)
	switch req.Action {
	case domain.ActionSelfStartRevision:
		rr, err = e.releases.SelfStartRevision(ctx, releaseID, reason)
	case domain.ActionRequestRevision:
		rr, err = e.releases.RequestRevision(ctx, releaseID, reason)
	case domain.ActionApproveRevision:
		rr, err = e.releases.ApproveRevision(ctx, releaseID, req.AssignTo)
	case domain.ActionRejectRevision:
		rr, err = e.releases.RejectRevision(ctx, releaseID, reason)
	}
	if err != nil {
		return nil, err
	}

	fresh, err := e.refetch(ctx, req.Task.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Task: fresh, Release: rr.Release, Message: rr.Message}, nil
}

// markDelivered records delivery of the planning item behind a procurement
// task. The task complete endpoint is not called; the server completes the
// task on its side.
func (e *Engine) markDelivered(ctx context.Context, t *domain.Task) (*Result, error) {
	if e.planning == nil {
		return nil, errNoPlanningService
	}

	if _, err := e.planning.MarkDelivered(ctx, *t.PlanningItemID); err != nil {
		return nil, err
	}

	fresh, err := e.refetch(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Task: fresh}, nil
}
