package tui

import (
	"fmt"
	"strings"

	"github.com/airyra/taskboard/internal/board"
	"github.com/airyra/taskboard/internal/domain"
)

const (
	titleWidth    = 48
	headerLines   = 3
	footerLines   = 4
	minVisibleRow = 5
)

// View renders the board.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.heading()))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render(m.summary()))
	b.WriteString("\n")

	rows := m.board.Rows()
	switch {
	case m.loading && len(rows) == 0:
		b.WriteString(m.styles.Muted.Render("Loading..."))
		b.WriteString("\n")
	case len(rows) == 0:
		b.WriteString(m.styles.Muted.Render("No tasks match the current filters."))
		b.WriteString("\n")
	default:
		start, end := m.window(len(rows))
		for i := start; i < end; i++ {
			line := m.renderRow(rows[i])
			if i == m.cursor {
				line = m.styles.Selected.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if m.mode != ModeNormal {
		b.WriteString(m.styles.Prompt.Render(m.input.View()))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(m.styles.Notice.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render(m.help()))
	return b.String()
}

func (m *Model) heading() string {
	q := m.board.Query()
	scope := "All departments"
	if q.Department() != "" {
		scope = q.Department().Label()
	}
	if q.JobOrder() != "" {
		scope += " · " + q.JobOrder()
	}
	return "Taskboard · " + scope
}

func (m *Model) summary() string {
	q := m.board.Query()
	pages := max(m.board.TotalPages(), 1)
	s := fmt.Sprintf("page %d/%d · %d tasks", q.Page(), pages, m.board.Total())
	if q.Search() != "" {
		s += fmt.Sprintf(" · search %q", q.Search())
	}
	return s
}

// window returns the slice of rows that fits the terminal and keeps the
// cursor visible.
func (m *Model) window(n int) (int, int) {
	visible := n
	if m.height > 0 {
		visible = max(m.height-headerLines-footerLines, minVisibleRow)
	}
	if visible >= n {
		return 0, n
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	return start, min(start+visible, n)
}

func (m *Model) renderRow(r board.Row) string {
	t := r.Task

	marker := "  "
	switch {
	case m.board.IsLoading(t.ID):
		marker = "… "
	case r.Expanded:
		marker = "▾ "
	case r.HasChildren:
		marker = "▸ "
	}

	title := strings.Repeat("  ", r.Depth) + marker + t.Title
	if n := len([]rune(title)); n > titleWidth {
		title = string([]rune(title)[:titleWidth-1]) + "…"
	}

	status := m.styles.status(t.Status).Render(fmt.Sprintf("%-11s", t.Status.Label()))

	return fmt.Sprintf("%-7s %-*s %s %3d%%  %-10s %s",
		t.ID, titleWidth, title, status, t.Progress(), targetDate(t), assignee(t))
}

func targetDate(t *domain.Task) string {
	if t.TargetCompletionDate == nil {
		return "-"
	}
	return t.TargetCompletionDate.String()
}

func assignee(t *domain.Task) string {
	switch {
	case t.AssignedToName != "":
		return t.AssignedToName
	case t.AssignedTo != nil:
		return fmt.Sprintf("#%d", *t.AssignedTo)
	}
	return ""
}

func (m *Model) help() string {
	if m.mode != ModeNormal {
		return "enter confirm · esc cancel"
	}
	bindings := m.keys.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}
