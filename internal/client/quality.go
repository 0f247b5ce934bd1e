package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/airyra/taskboard/internal/domain"
)

const qcPath = "/quality-control/"

// =============================================================================
// Quality control
// =============================================================================

// ListQCReviews lists the QC reviews submitted for a task.
func (c *Client) ListQCReviews(ctx context.Context, task domain.TaskID) ([]*domain.QCReview, error) {
	params := url.Values{}
	params.Set("task", task.String())

	var page listResponse[*domain.QCReview]
	if err := c.get(ctx, qcPath+"qc-reviews/?"+params.Encode(), &page, "list qc reviews"); err != nil {
		return nil, err
	}
	return page.items(), nil
}

// SubmitQCReview requests an inspection of a task.
func (c *Client) SubmitQCReview(ctx context.Context, task domain.TaskID, partData map[string]interface{}) (*domain.QCReview, error) {
	body := submitQCRequest{TaskID: task, PartData: partData}

	var review domain.QCReview
	if err := c.send(ctx, http.MethodPost, qcPath+"qc-reviews/submit/", body, http.StatusCreated, &review, "submit qc review"); err != nil {
		return nil, err
	}
	return &review, nil
}

// DecideQCReview approves or rejects a pending review.
func (c *Client) DecideQCReview(ctx context.Context, reviewID int64, approve bool, comment string) (*domain.QCReview, error) {
	path := qcPath + "qc-reviews/" + strconv.FormatInt(reviewID, 10) + "/decide/"
	body := decideQCRequest{Approve: approve, Comment: comment}

	var review domain.QCReview
	if err := c.send(ctx, http.MethodPost, path, body, http.StatusOK, &review, "decide qc review"); err != nil {
		return nil, err
	}
	return &review, nil
}

// ListNCRs lists the non-conformance reports raised against a task.
func (c *Client) ListNCRs(ctx context.Context, task domain.TaskID) ([]*domain.NCR, error) {
	params := url.Values{}
	params.Set("department_task", task.String())

	var page listResponse[*domain.NCR]
	if err := c.get(ctx, qcPath+"ncrs/?"+params.Encode(), &page, "list ncrs"); err != nil {
		return nil, err
	}
	return page.items(), nil
}
