package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/airyra/taskboard/internal/domain"
)

const releasesPath = "/projects/drawing-releases/"

// =============================================================================
// Drawing releases
// =============================================================================

// CreateRelease publishes a drawing release for a design task.
func (c *Client) CreateRelease(ctx context.Context, input ReleaseInput) (*domain.Release, error) {
	var rel domain.Release
	if err := c.send(ctx, http.MethodPost, releasesPath, input, http.StatusCreated, &rel, "create release"); err != nil {
		return nil, err
	}
	return &rel, nil
}

// CurrentRelease returns the latest release of a job order.
func (c *Client) CurrentRelease(ctx context.Context, jobOrder string) (*domain.Release, error) {
	params := url.Values{}
	params.Set("job_order", jobOrder)

	var rel domain.Release
	if err := c.get(ctx, releasesPath+"current/?"+params.Encode(), &rel, "get current release"); err != nil {
		return nil, err
	}
	return &rel, nil
}

// =============================================================================
// Revisions
// =============================================================================

// RequestRevision asks the design department to revise a release.
func (c *Client) RequestRevision(ctx context.Context, releaseID int64, reason string) (*RevisionResult, error) {
	return c.revision(ctx, releaseID, "request_revision", reasonRequest{Reason: reason})
}

// ApproveRevision accepts a pending revision request, optionally
// reassigning the design task.
func (c *Client) ApproveRevision(ctx context.Context, releaseID int64, assignTo *int64) (*RevisionResult, error) {
	return c.revision(ctx, releaseID, "approve_revision", approveRevisionRequest{AssignedTo: assignTo})
}

// RejectRevision declines a pending revision request.
func (c *Client) RejectRevision(ctx context.Context, releaseID int64, reason string) (*RevisionResult, error) {
	return c.revision(ctx, releaseID, "reject_revision", reasonRequest{Reason: reason})
}

// SelfStartRevision opens a revision without an external request.
func (c *Client) SelfStartRevision(ctx context.Context, releaseID int64, reason string) (*RevisionResult, error) {
	return c.revision(ctx, releaseID, "self_revision", reasonRequest{Reason: reason})
}

// CompleteRevision closes a revision by publishing a new release.
func (c *Client) CompleteRevision(ctx context.Context, releaseID int64, form domain.ReleaseForm) (*RevisionResult, error) {
	return c.revision(ctx, releaseID, "complete_revision", form)
}

func (c *Client) revision(ctx context.Context, releaseID int64, action string, body interface{}) (*RevisionResult, error) {
	path := releasesPath + strconv.FormatInt(releaseID, 10) + "/" + action + "/"

	var result RevisionResult
	if err := c.send(ctx, http.MethodPost, path, body, http.StatusOK, &result, action); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// Planning
// =============================================================================

// MarkDelivered records delivery of a planning request item.
func (c *Client) MarkDelivered(ctx context.Context, itemID int64) (*PlanningItem, error) {
	path := "/planning/items/" + strconv.FormatInt(itemID, 10) + "/mark_delivered/"

	var item PlanningItem
	if err := c.send(ctx, http.MethodPost, path, nil, http.StatusOK, &item, "mark delivered"); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreatePlanningItem adds a planning request line a procurement task can
// later deliver.
func (c *Client) CreatePlanningItem(ctx context.Context, code, name string) (*PlanningItem, error) {
	body := planningItemRequest{ItemCode: code, ItemName: name}

	var item PlanningItem
	if err := c.send(ctx, http.MethodPost, "/planning/items/", body, http.StatusCreated, &item, "create planning item"); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetJobOrder returns a job order by its number.
func (c *Client) GetJobOrder(ctx context.Context, jobNo string) (*domain.JobOrder, error) {
	var jo domain.JobOrder
	if err := c.get(ctx, "/projects/job-orders/"+url.PathEscape(jobNo)+"/", &jo, "get job order"); err != nil {
		return nil, err
	}
	return &jo, nil
}
