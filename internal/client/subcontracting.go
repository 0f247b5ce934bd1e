package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const subcontractingPath = "/subcontracting/"

// =============================================================================
// Subcontracting
// =============================================================================

// ListAssignments lists subcontractor assignments.
func (c *Client) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*Assignment, error) {
	params := url.Values{}
	if filter.JobNo != "" {
		params.Set("job_no", filter.JobNo)
	}
	if !filter.Task.IsZero() {
		params.Set("department_task", filter.Task.String())
	}
	if filter.Subcontractor > 0 {
		params.Set("subcontractor", strconv.FormatInt(filter.Subcontractor, 10))
	}

	path := subcontractingPath + "assignments/"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page listResponse[*Assignment]
	if err := c.get(ctx, path, &page, "list assignments"); err != nil {
		return nil, err
	}
	return page.items(), nil
}

// CreateAssignment allocates part of a task's weight to a subcontractor.
func (c *Client) CreateAssignment(ctx context.Context, input AssignmentInput) (*Assignment, error) {
	var a Assignment
	if err := c.send(ctx, http.MethodPost, subcontractingPath+"assignments/", input, http.StatusCreated, &a, "create assignment"); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAssignment changes an existing assignment.
func (c *Client) UpdateAssignment(ctx context.Context, id int64, update AssignmentUpdate) (*Assignment, error) {
	path := subcontractingPath + "assignments/" + strconv.FormatInt(id, 10) + "/"

	var a Assignment
	if err := c.send(ctx, http.MethodPatch, path, update, http.StatusOK, &a, "update assignment"); err != nil {
		return nil, err
	}
	return &a, nil
}

// RemainingWeight reports how much of a price tier is still unallocated.
func (c *Client) RemainingWeight(ctx context.Context, priceTierID int64) (*RemainingWeight, error) {
	path := subcontractingPath + "price-tiers/" + strconv.FormatInt(priceTierID, 10) + "/remaining-weight/"

	var rw RemainingWeight
	if err := c.get(ctx, path, &rw, "get remaining weight"); err != nil {
		return nil, err
	}
	return &rw, nil
}
