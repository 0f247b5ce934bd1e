package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/airyra/taskboard/internal/domain"
)

// Colors used by the board.
var (
	ColorPending    = lipgloss.Color("#F59E0B") // Yellow
	ColorInProgress = lipgloss.Color("#3B82F6") // Blue
	ColorBlocked    = lipgloss.Color("#EF4444") // Red
	ColorCompleted  = lipgloss.Color("#10B981") // Green
	ColorSkipped    = lipgloss.Color("#6B7280") // Grey
	ColorPrimary    = lipgloss.Color("#7C3AED")
	ColorMuted      = lipgloss.Color("#9CA3AF")
)

// Styles holds the styles of the board.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Selected lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Help     lipgloss.Style
	Error    lipgloss.Style
	Notice   lipgloss.Style
	Prompt   lipgloss.Style
	Status   map[domain.TaskStatus]lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),
		Subtitle: lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginBottom(1),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Reverse(true),
		Normal: lipgloss.NewStyle(),
		Muted: lipgloss.NewStyle().
			Foreground(ColorMuted),
		Help: lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1),
		Error: lipgloss.NewStyle().
			Foreground(ColorBlocked).
			Bold(true),
		Notice: lipgloss.NewStyle().
			Foreground(ColorCompleted),
		Prompt: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1),
		Status: map[domain.TaskStatus]lipgloss.Style{
			domain.StatusPending:    lipgloss.NewStyle().Foreground(ColorPending),
			domain.StatusInProgress: lipgloss.NewStyle().Foreground(ColorInProgress),
			domain.StatusBlocked:    lipgloss.NewStyle().Foreground(ColorBlocked),
			domain.StatusCompleted:  lipgloss.NewStyle().Foreground(ColorCompleted),
			domain.StatusSkipped:    lipgloss.NewStyle().Foreground(ColorSkipped),
		},
	}
}

// StatusColor returns the color of a status. Unknown statuses are muted.
func StatusColor(s domain.TaskStatus) lipgloss.Color {
	switch s {
	case domain.StatusPending:
		return ColorPending
	case domain.StatusInProgress:
		return ColorInProgress
	case domain.StatusBlocked:
		return ColorBlocked
	case domain.StatusCompleted:
		return ColorCompleted
	case domain.StatusSkipped:
		return ColorSkipped
	}
	return ColorMuted
}

func (s Styles) status(st domain.TaskStatus) lipgloss.Style {
	if style, ok := s.Status[st]; ok {
		return style
	}
	return s.Muted
}
