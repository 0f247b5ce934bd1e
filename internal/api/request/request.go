// Package request decodes and validates task service requests.
package request

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/store/sqlite"
)

// DecodeJSON decodes JSON from request body into the given value.
func DecodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// ParseID parses a numeric path identifier. ok is false when raw is not
// a positive integer.
func ParseID(raw string) (id int64, ok bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Pagination contains pagination parameters.
type Pagination struct {
	Page    int
	PerPage int
}

// ParsePagination extracts page and page_size from query parameters.
// page_size is capped at domain.MaxPageSize.
func ParsePagination(r *http.Request) Pagination {
	page := 1
	perPage := domain.DefaultPageSize

	if p := r.URL.Query().Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if pp := r.URL.Query().Get("page_size"); pp != "" {
		if v, err := strconv.Atoi(pp); err == nil && v > 0 {
			perPage = v
		}
	}

	if perPage > domain.MaxPageSize {
		perPage = domain.MaxPageSize
	}

	return Pagination{Page: page, PerPage: perPage}
}

// ParseTaskFilter extracts the task listing filter from query parameters.
// It returns the problems found with the parameters, if any.
func ParseTaskFilter(r *http.Request) (domain.TaskFilter, []string) {
	q := r.URL.Query()
	pagination := ParsePagination(r)
	f := domain.TaskFilter{
		JobOrder: strings.TrimSpace(q.Get("job_order")),
		Search:   strings.TrimSpace(q.Get("search")),
		Ordering: strings.TrimSpace(q.Get("ordering")),
		Page:     pagination.Page,
		PageSize: pagination.PerPage,
	}
	var errs []string

	for _, raw := range listParam(q.Get("department"), q.Get("department__in")) {
		d := domain.Department(raw)
		if !d.IsValid() {
			errs = append(errs, "department: unknown department "+raw)
			continue
		}
		f.Departments = append(f.Departments, d)
	}

	for _, raw := range listParam(q.Get("status"), q.Get("status__in")) {
		s := domain.TaskStatus(raw)
		if !s.IsValid() {
			errs = append(errs, "status: unknown status "+raw)
			continue
		}
		f.Statuses = append(f.Statuses, s)
	}

	if isTrue(q.Get("assigned_to__isnull")) {
		f.Unassigned = true
	} else if raw := q.Get("assigned_to"); raw != "" {
		id, ok := ParseID(raw)
		if !ok {
			errs = append(errs, "assigned_to: expected a user id")
		} else {
			f.AssignedTo = &id
		}
	}

	if raw := q.Get("parent"); raw != "" {
		if _, ok := ParseID(raw); !ok {
			errs = append(errs, "parent: expected a task id")
		} else {
			f.Parent = domain.ParseTaskID(raw)
		}
	}
	f.MainOnly = isTrue(q.Get("main_only"))

	if raw := q.Get("is_blocked"); raw != "" {
		b := isTrue(raw)
		f.Blocked = &b
	}

	if f.Ordering != "" && !sqlite.IsOrderable(f.Ordering) {
		errs = append(errs, "ordering: cannot order by "+f.Ordering)
	}

	dates := []struct {
		name string
		dst  **domain.Date
	}{
		{"target_start_date", &f.TargetStart},
		{"target_completion_date", &f.TargetFinish},
	}
	for _, p := range dates {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			errs = append(errs, p.name+": "+err.Error())
			continue
		}
		*p.dst = &d
	}

	return f, errs
}

// listParam merges a single-value and a comma-separated parameter.
func listParam(single, many string) []string {
	var out []string
	if v := strings.TrimSpace(single); v != "" {
		out = append(out, v)
	}
	for _, v := range strings.Split(many, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
