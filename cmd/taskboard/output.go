package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/airyra/taskboard/internal/board"
	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/lifecycle"
)

const timeLayout = "2006-01-02 15:04:05"

// encode writes v in a machine format. It reports false for the table
// format, leaving the output to the caller.
func encode(w io.Writer, format string, v interface{}) bool {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(v)
		return true
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		enc.Encode(v)
		enc.Close()
		return true
	}
	return false
}

// printTask prints a single task to the writer
func printTask(w io.Writer, task *domain.Task, format string) {
	if encode(w, format, task) {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", task.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", task.Title)
	fmt.Fprintf(tw, "Job Order:\t%s\n", task.JobOrder)
	fmt.Fprintf(tw, "Department:\t%s\n", task.Department.Label())
	if task.TaskType != "" {
		fmt.Fprintf(tw, "Type:\t%s\n", task.TaskType)
	}
	fmt.Fprintf(tw, "Status:\t%s\n", task.Status.Label())
	if task.BlockedReason != "" {
		fmt.Fprintf(tw, "Blocked Reason:\t%s\n", task.BlockedReason)
	}
	if task.IsSubtask() {
		fmt.Fprintf(tw, "Parent:\t%s\n", task.Parent)
	}
	if task.SubtasksCount > 0 {
		fmt.Fprintf(tw, "Subtasks:\t%d\n", task.SubtasksCount)
	}
	fmt.Fprintf(tw, "Progress:\t%d%%\n", task.Progress())
	if task.Weight != nil {
		fmt.Fprintf(tw, "Weight:\t%s\n", strconv.FormatFloat(*task.Weight, 'f', -1, 64))
	}
	if task.AssignedTo != nil {
		fmt.Fprintf(tw, "Assigned To:\t%s\n", assignee(task))
	}
	if task.TargetStartDate != nil {
		fmt.Fprintf(tw, "Target Start:\t%s\n", task.TargetStartDate)
	}
	if task.TargetCompletionDate != nil {
		fmt.Fprintf(tw, "Target Completion:\t%s\n", task.TargetCompletionDate)
	}
	if task.QCRequired {
		qc := task.QCStatus
		if qc == "" {
			qc = "required"
		}
		fmt.Fprintf(tw, "QC:\t%s\n", qc)
	}
	if task.CurrentReleaseID != nil {
		fmt.Fprintf(tw, "Current Release:\t%d\n", *task.CurrentReleaseID)
	}
	if task.IsUnderRevision {
		fmt.Fprintf(tw, "Revision:\topen\n")
	} else if task.HasPendingRevisionRequest {
		fmt.Fprintf(tw, "Revision:\trequested (%s)\n", task.PendingRevisionReason)
	}
	if task.PlanningItemID != nil {
		fmt.Fprintf(tw, "Delivered:\t%t\n", task.IsDelivered)
	}
	if task.CompletedAt != nil {
		fmt.Fprintf(tw, "Completed:\t%s by %s\n", task.CompletedAt.Format(timeLayout), task.CompletedBy)
	}
	if task.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", task.Description)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", task.CreatedAt.Format(timeLayout))
	fmt.Fprintf(tw, "Updated:\t%s\n", task.UpdatedAt.Format(timeLayout))
	tw.Flush()
}

// pageView is the machine-readable form of a root page.
type pageView struct {
	Count      int        `json:"count" yaml:"count"`
	Page       int        `json:"page" yaml:"page"`
	TotalPages int        `json:"total_pages" yaml:"total_pages"`
	Results    []rowView  `json:"results" yaml:"results"`
	Query      *queryView `json:"query,omitempty" yaml:"query,omitempty"`
}

type rowView struct {
	Depth       int          `json:"depth" yaml:"depth"`
	Expanded    bool         `json:"expanded" yaml:"expanded"`
	HasChildren bool         `json:"has_children" yaml:"has_children"`
	Task        *domain.Task `json:"task" yaml:"task"`
}

type queryView struct {
	Department string   `json:"department,omitempty" yaml:"department,omitempty"`
	JobOrder   string   `json:"job_order,omitempty" yaml:"job_order,omitempty"`
	Statuses   []string `json:"statuses,omitempty" yaml:"statuses,omitempty"`
	Search     string   `json:"search,omitempty" yaml:"search,omitempty"`
}

// printRows prints the materialized rows of the board with pagination
// info. Subtasks are indented under their parent.
func printRows(w io.Writer, b *board.Board, format string) {
	q := b.Query()
	rows := b.Rows()

	if format != formatTable {
		view := pageView{
			Count:      b.Total(),
			Page:       q.Page(),
			TotalPages: b.TotalPages(),
			Results:    make([]rowView, 0, len(rows)),
			Query: &queryView{
				Department: string(q.Department()),
				JobOrder:   q.JobOrder(),
				Search:     q.Search(),
			},
		}
		for _, s := range q.Statuses() {
			view.Query.Statuses = append(view.Query.Statuses, string(s))
		}
		for _, r := range rows {
			view.Results = append(view.Results, rowView{Depth: r.Depth, Expanded: r.Expanded, HasChildren: r.HasChildren, Task: r.Task})
		}
		encode(w, format, view)
		return
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No tasks found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tTITLE\tDEPARTMENT\tSTATUS\tPROGRESS\tASSIGNED\tTARGET\n")
	fmt.Fprintf(tw, "--\t-----\t----------\t------\t--------\t--------\t------\n")
	for _, r := range rows {
		t := r.Task
		marker := "  "
		if r.HasChildren {
			marker = "+ "
			if r.Expanded {
				marker = "- "
			}
		}
		title := strings.Repeat("  ", r.Depth) + marker + truncate(t.Title, 40)
		target := ""
		if t.TargetCompletionDate != nil {
			target = t.TargetCompletionDate.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\t%s\t%s\n",
			t.ID, title, t.Department.Label(), t.Status.Label(), t.Progress(), assignee(t), target)
	}
	tw.Flush()

	if pages := b.TotalPages(); pages > 1 {
		fmt.Fprintf(w, "\nPage %d of %d (%d total tasks)\n", q.Page(), pages, b.Total())
	}
}

// printActions prints the actions offered for a task.
func printActions(w io.Writer, task *domain.Task, format string) {
	actions := domain.AvailableActions(task).Sorted()
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, string(a))
	}
	if encode(w, format, map[string]interface{}{"task": task.ID, "status": task.Status, "actions": names}) {
		return
	}

	if len(names) == 0 {
		fmt.Fprintf(w, "No actions available for task %s (%s)\n", task.ID, task.Status.Label())
		return
	}
	fmt.Fprintf(w, "Task %s (%s):\n", task.ID, task.Status.Label())
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

// resultView is the machine-readable form of a lifecycle result.
type resultView struct {
	Message string          `json:"message,omitempty" yaml:"message,omitempty"`
	Task    *domain.Task    `json:"task" yaml:"task"`
	Parent  *domain.Task    `json:"parent,omitempty" yaml:"parent,omitempty"`
	Release *domain.Release `json:"release,omitempty" yaml:"release,omitempty"`
}

// printResult prints the outcome of a lifecycle action.
func printResult(w io.Writer, action domain.Action, res *lifecycle.Result, format string) {
	if encode(w, format, resultView{Message: res.Message, Task: res.Task, Parent: res.Parent, Release: res.Release}) {
		return
	}

	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("%s: task %s is now %s", action, res.Task.ID, strings.ToLower(res.Task.Status.Label()))
	}
	fmt.Fprintln(w, msg)
	if res.Release != nil {
		fmt.Fprintf(w, "Release %d published (revision %s)\n", res.Release.ID, res.Release.RevisionCode)
	}
	if res.Parent != nil {
		fmt.Fprintf(w, "Parent %s is %s\n", res.Parent.ID, strings.ToLower(res.Parent.Status.Label()))
	}
}

// printHistory prints task history/audit entries
func printHistory(w io.Writer, entries []domain.AuditEntry, format string) {
	if encode(w, format, entries) {
		return
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No history found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TIME\tACTION\tFIELD\tOLD\tNEW\tBY\n")
	fmt.Fprintf(tw, "----\t------\t-----\t---\t---\t--\n")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.ChangedAt.Format(timeLayout),
			entry.Action,
			deref(entry.Field),
			truncate(deref(entry.OldValue), 20),
			truncate(deref(entry.NewValue), 20),
			truncate(entry.ChangedBy, 30))
	}
	tw.Flush()
}

// printRelease prints a drawing release.
func printRelease(w io.Writer, rel *domain.Release, format string) {
	if encode(w, format, rel) {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", rel.ID)
	fmt.Fprintf(tw, "Job Order:\t%s\n", rel.JobOrder)
	fmt.Fprintf(tw, "Revision:\t%s\n", rel.RevisionCode)
	fmt.Fprintf(tw, "Status:\t%s\n", rel.Status)
	fmt.Fprintf(tw, "Folder:\t%s\n", rel.FolderPath)
	fmt.Fprintf(tw, "Hardcopies:\t%d\n", rel.HardcopyCount)
	fmt.Fprintf(tw, "Changelog:\t%s\n", rel.Changelog)
	if rel.RevisionReason != "" {
		fmt.Fprintf(tw, "Revision Reason:\t%s\n", rel.RevisionReason)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", rel.CreatedAt.Format(timeLayout))
	tw.Flush()
}

// printReviews prints QC reviews
func printReviews(w io.Writer, reviews []*domain.QCReview, format string) {
	if encode(w, format, reviews) {
		return
	}

	if len(reviews) == 0 {
		fmt.Fprintln(w, "No QC reviews found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tTASK\tSTATUS\tCOMMENT\tCREATED\tDECIDED\n")
	fmt.Fprintf(tw, "--\t----\t------\t-------\t-------\t-------\n")
	for _, r := range reviews {
		decided := ""
		if r.DecidedAt != nil {
			decided = r.DecidedAt.Format(timeLayout)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Task, r.Status, truncate(r.Comment, 30), r.CreatedAt.Format(timeLayout), decided)
	}
	tw.Flush()
}

// printNCRs prints non-conformance reports
func printNCRs(w io.Writer, ncrs []*domain.NCR, format string) {
	if encode(w, format, ncrs) {
		return
	}

	if len(ncrs) == 0 {
		fmt.Fprintln(w, "No NCRs found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tNUMBER\tTITLE\tSTATUS\tSEVERITY\n")
	fmt.Fprintf(tw, "--\t------\t-----\t------\t--------\n")
	for _, n := range ncrs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", n.ID, n.NCRNumber, truncate(n.Title, 40), n.Status, n.Severity)
	}
	tw.Flush()
}

// printAssignments prints subcontractor assignments
func printAssignments(w io.Writer, assignments []*client.Assignment, format string) {
	if encode(w, format, assignments) {
		return
	}

	if len(assignments) == 0 {
		fmt.Fprintln(w, "No assignments found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tTASK\tSUBCONTRACTOR\tTIER\tWEIGHT (KG)\tPROGRESS\n")
	fmt.Fprintf(tw, "--\t----\t-------------\t----\t-----------\t--------\n")
	for _, a := range assignments {
		sub := a.SubcontractorName
		if sub == "" {
			sub = strconv.FormatInt(a.Subcontractor, 10)
		}
		tier := a.PriceTierName
		if tier == "" {
			tier = strconv.FormatInt(a.PriceTier, 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s%%\n",
			a.ID, a.DepartmentTask, sub, tier,
			strconv.FormatFloat(a.AllocatedWeightKg, 'f', -1, 64),
			strconv.FormatFloat(a.CurrentProgress, 'f', -1, 64))
	}
	tw.Flush()
}

// printRemaining prints the unallocated weight of a price tier.
func printRemaining(w io.Writer, rw *client.RemainingWeight, format string) {
	if encode(w, format, rw) {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Price Tier:\t%d\n", rw.PriceTierID)
	fmt.Fprintf(tw, "Allocated:\t%s kg\n", strconv.FormatFloat(rw.AllocatedWeightKg, 'f', -1, 64))
	fmt.Fprintf(tw, "Used:\t%s kg\n", strconv.FormatFloat(rw.UsedWeightKg, 'f', -1, 64))
	fmt.Fprintf(tw, "Remaining:\t%s kg\n", strconv.FormatFloat(rw.RemainingWeightKg, 'f', -1, 64))
	tw.Flush()
}

// printJobOrder prints a job order.
func printJobOrder(w io.Writer, jo *domain.JobOrder, format string) {
	if encode(w, format, jo) {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Job No:\t%s\n", jo.JobNo)
	if jo.Title != "" {
		fmt.Fprintf(tw, "Title:\t%s\n", jo.Title)
	}
	fmt.Fprintf(tw, "Status:\t%s\n", jo.Status)
	if jo.CompletedAt != nil {
		fmt.Fprintf(tw, "Completed:\t%s\n", jo.CompletedAt.Format(timeLayout))
	}
	tw.Flush()
}

// printPlanningItem prints a planning request item.
func printPlanningItem(w io.Writer, item *client.PlanningItem, format string) {
	if encode(w, format, item) {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", item.ID)
	fmt.Fprintf(tw, "Code:\t%s\n", item.ItemCode)
	if item.ItemName != "" {
		fmt.Fprintf(tw, "Name:\t%s\n", item.ItemName)
	}
	fmt.Fprintf(tw, "Delivered:\t%t\n", item.IsDelivered)
	tw.Flush()
}

// printError prints an error message. Validation details are listed one
// per line.
func printError(w io.Writer, err error, format string) {
	var details []string
	var de *domain.DomainError
	if errors.As(err, &de) {
		details = de.Details()
	}

	if format != formatTable {
		body := map[string]interface{}{"message": err.Error()}
		if de != nil {
			body["code"] = string(de.Code)
		}
		if len(details) > 0 {
			body["details"] = details
		}
		encode(w, format, map[string]interface{}{"error": body})
		return
	}

	fmt.Fprintf(w, "Error: %s\n", err.Error())
	for _, d := range details {
		fmt.Fprintf(w, "  - %s\n", d)
	}
}

// printSuccess prints a success message
func printSuccess(w io.Writer, message string, format string) {
	if encode(w, format, map[string]interface{}{"message": message}) {
		return
	}
	fmt.Fprintln(w, message)
}

func assignee(t *domain.Task) string {
	if t.AssignedToName != "" {
		return t.AssignedToName
	}
	if t.AssignedTo != nil {
		return strconv.FormatInt(*t.AssignedTo, 10)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
