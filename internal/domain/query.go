package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Default view parameters of the task board.
const (
	DefaultPageSize  = 20
	MaxPageSize      = 100
	DefaultSortField = "sequence"
)

// UnassignedToken is the assignee filter value selecting tasks with no
// assignee.
const UnassignedToken = "__unassigned__"

// DefaultStatuses is the status filter applied when a view is opened.
var DefaultStatuses = []TaskStatus{StatusPending, StatusInProgress}

// TaskFilter holds the list parameters understood by the task service.
// Zero fields are not sent.
type TaskFilter struct {
	JobOrder     string
	Departments  []Department
	Statuses     []TaskStatus
	AssignedTo   *int64
	Unassigned   bool
	Parent       TaskID
	MainOnly     bool
	Blocked      *bool
	Search       string
	Ordering     string
	Page         int
	PageSize     int
	TargetStart  *Date
	TargetFinish *Date
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Count   int     `json:"count"`
	Results []*Task `json:"results"`
}

// Query describes the root-task view. It is a value: every With method
// returns a modified copy and leaves the receiver untouched. Every change
// other than WithPage resets the page to 1.
type Query struct {
	page         int
	pageSize     int
	sortField    string
	sortDesc     bool
	statuses     []TaskStatus
	search       string
	jobOrder     string
	department   Department
	assignedTo   *int64
	unassigned   bool
	targetStart  *Date
	targetFinish *Date
}

// NewQuery returns the default view of a department's board. An empty
// department lists every department.
func NewQuery(department Department) Query {
	return Query{
		page:       1,
		pageSize:   DefaultPageSize,
		sortField:  DefaultSortField,
		statuses:   append([]TaskStatus(nil), DefaultStatuses...),
		department: department,
	}
}

func (q Query) Page() int { return q.page }
func (q Query) PageSize() int { return q.pageSize }
func (q Query) SortField() string { return q.sortField }
func (q Query) SortDesc() bool { return q.sortDesc }
func (q Query) Search() string { return q.search }
func (q Query) JobOrder() string { return q.jobOrder }
func (q Query) Department() Department { return q.department }
func (q Query) Unassigned() bool { return q.unassigned }
func (q Query) Statuses() []TaskStatus { return append([]TaskStatus(nil), q.statuses...) }
func (q Query) AssignedTo() (int64, bool) { return derefInt64(q.assignedTo) }

// WithPage moves to the given page, keeping every filter.
func (q Query) WithPage(page int) Query {
	if page < 1 {
		page = 1
	}
	q.page = page
	return q
}

// WithPageSize changes the page size, clamped to MaxPageSize.
func (q Query) WithPageSize(size int) Query {
	switch {
	case size < 1:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	q.pageSize = size
	return q.reset()
}

// WithSort orders by the given field. A leading "-" sorts descending.
func (q Query) WithSort(field string) Query {
	field = strings.TrimSpace(field)
	q.sortDesc = strings.HasPrefix(field, "-")
	q.sortField = strings.TrimPrefix(field, "-")
	if q.sortField == "" {
		q.sortField = DefaultSortField
	}
	return q.reset()
}

// WithStatuses filters on the given statuses. None means every status.
func (q Query) WithStatuses(statuses ...TaskStatus) Query {
	q.statuses = append([]TaskStatus(nil), statuses...)
	return q.reset()
}

// WithSearch sets the free-text search term.
func (q Query) WithSearch(term string) Query {
	q.search = strings.TrimSpace(term)
	return q.reset()
}

// WithJobOrder restricts the view to one job order.
func (q Query) WithJobOrder(jobOrder string) Query {
	q.jobOrder = strings.TrimSpace(jobOrder)
	return q.reset()
}

// WithDepartment restricts the view to one department.
func (q Query) WithDepartment(d Department) Query {
	q.department = d
	return q.reset()
}

// WithAssignee filters on a user. Passing nil clears the filter.
func (q Query) WithAssignee(userID *int64) Query {
	if userID != nil {
		v := *userID
		userID = &v
	}
	q.assignedTo = userID
	q.unassigned = false
	return q.reset()
}

// WithUnassigned selects tasks without an assignee.
func (q Query) WithUnassigned() Query {
	q.assignedTo = nil
	q.unassigned = true
	return q.reset()
}

// WithAssigneeToken applies an assignee filter as entered in the board's
// filter bar: empty clears, UnassignedToken selects unassigned tasks and
// anything else must be a user id.
func (q Query) WithAssigneeToken(token string) (Query, error) {
	token = strings.TrimSpace(token)
	switch token {
	case "":
		return q.WithAssignee(nil), nil
	case UnassignedToken:
		return q.WithUnassigned(), nil
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return q, fmt.Errorf("invalid assignee %q: expected a user id or %s", token, UnassignedToken)
	}
	return q.WithAssignee(&id), nil
}

// WithTargetDates filters on target start and completion dates.
func (q Query) WithTargetDates(start, finish *Date) Query {
	q.targetStart = start
	q.targetFinish = finish
	return q.reset()
}

// Ordering returns the server ordering parameter.
func (q Query) Ordering() string {
	if q.sortDesc {
		return "-" + q.sortField
	}
	return q.sortField
}

// Filter converts the view into a root-task listing filter.
func (q Query) Filter() TaskFilter {
	f := TaskFilter{
		JobOrder:     q.jobOrder,
		Statuses:     q.Statuses(),
		Unassigned:   q.unassigned,
		MainOnly:     true,
		Search:       q.search,
		Ordering:     q.Ordering(),
		Page:         q.page,
		PageSize:     q.pageSize,
		TargetStart:  q.targetStart,
		TargetFinish: q.targetFinish,
	}
	if q.department != "" {
		f.Departments = []Department{q.department}
	}
	if q.assignedTo != nil {
		v := *q.assignedTo
		f.AssignedTo = &v
	}
	return f
}

// TotalPages returns the number of pages needed for count rows.
func (q Query) TotalPages(count int) int {
	if count <= 0 || q.pageSize <= 0 {
		return 0
	}
	return (count + q.pageSize - 1) / q.pageSize
}

func (q Query) reset() Query {
	q.page = 1
	return q
}

func derefInt64(p *int64) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
