// Package tui is the interactive terminal board. It renders the rows of a
// board.Board and drives fetches and lifecycle actions as bubbletea
// commands; the board itself is only touched from Update.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/airyra/taskboard/internal/board"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/lifecycle"
	"github.com/airyra/taskboard/internal/logging"
	"github.com/airyra/taskboard/internal/metrics"
)

// Mode represents the current input mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeReason
	ModeProgress
	ModeSearch
)

// prompt is the request being completed in an input mode.
type prompt struct {
	task   *domain.Task
	action domain.Action
}

// Model is the board TUI model.
type Model struct {
	// Dependencies
	board    *board.Board
	releases lifecycle.Releases
	planning lifecycle.Planning
	logger   *slog.Logger
	metrics  *metrics.Collector
	ctx      context.Context

	// Components
	keys   KeyMap
	styles Styles
	input  textinput.Model

	// State
	prompt *prompt
	err    error
	notice string

	cursor int
	width  int
	height int
	mode   Mode

	loading bool
	busy    bool
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger handed to the lifecycle engine.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logging.OrDiscard(l)
	}
}

// WithMetrics sets the metrics collector of performed actions.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Model) {
		m.metrics = c
	}
}

// WithContext sets the context of every request the model sends.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// New creates a board model. releases and planning may be nil; design and
// procurement actions then fail.
func New(b *board.Board, releases lifecycle.Releases, planning lifecycle.Planning, opts ...Option) *Model {
	in := textinput.New()
	in.CharLimit = 500

	m := &Model{
		board:    b,
		releases: releases,
		planning: planning,
		logger:   logging.Discard(),
		ctx:      context.Background(),
		keys:     DefaultKeyMap(),
		styles:   DefaultStyles(),
		input:    in,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the interactive board and blocks until the user quits.
func Run(m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Init fetches the first root page.
func (m *Model) Init() tea.Cmd {
	return m.reload()
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case MsgRootsLoaded:
		err := m.board.CompleteReload(msg.Ticket, msg.Page, msg.Err)
		if errors.Is(err, domain.ErrStaleResponse) {
			return m, nil
		}
		m.loading = false
		m.err = err
		m.clampCursor()
		return m, nil

	case MsgChildrenLoaded:
		err := m.board.CompleteToggle(msg.Ticket, msg.Children, msg.Err)
		if !errors.Is(err, domain.ErrStaleResponse) {
			m.err = err
		}
		return m, nil

	case MsgPatched:
		if _, err := m.board.CompletePatch(msg.Patch, msg.Task, msg.Err); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.notice = msg.Notice
		return m, nil

	case MsgActionDone:
		m.busy = false
		for _, t := range msg.Snapshots {
			m.board.Apply(t)
		}
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.notice = msg.Result.Message
		if m.notice == "" {
			m.notice = fmt.Sprintf("%s done", msg.Action)
		}
		return m, nil
	}

	return m, nil
}

// handleKey handles key events.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode != ModeNormal {
		return m.handleInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.board.Rows())-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		return m, m.toggle()

	case key.Matches(msg, m.keys.Reload):
		return m, m.reload()

	case key.Matches(msg, m.keys.NextPage):
		q := m.board.Query()
		if q.Page() < m.board.TotalPages() {
			m.board.SetQuery(q.WithPage(q.Page() + 1))
			m.cursor = 0
			return m, m.reload()
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		q := m.board.Query()
		if q.Page() > 1 {
			m.board.SetQuery(q.WithPage(q.Page() - 1))
			m.cursor = 0
			return m, m.reload()
		}
		return m, nil

	case key.Matches(msg, m.keys.Start):
		return m, m.act(domain.ActionStart)
	case key.Matches(msg, m.keys.Uncomplete):
		return m, m.act(domain.ActionUncomplete)
	case key.Matches(msg, m.keys.Skip):
		return m, m.act(domain.ActionSkip)
	case key.Matches(msg, m.keys.Unskip):
		return m, m.act(domain.ActionUnskip)
	case key.Matches(msg, m.keys.Unblock):
		return m, m.act(domain.ActionUnblock)

	case key.Matches(msg, m.keys.Complete):
		t := m.selected()
		if t == nil {
			return m, nil
		}
		action := domain.CompleteAction(t)
		if action == domain.ActionReleaseAndComplete || action == domain.ActionCompleteRevision {
			m.err = fmt.Errorf("%s needs a release form: use `taskboard release %s`", action, t.ID)
			return m, nil
		}
		return m, m.act(action)

	case key.Matches(msg, m.keys.Block):
		return m, m.openPrompt(ModeReason, domain.ActionBlock, "Reason for blocking")

	case key.Matches(msg, m.keys.Progress):
		return m, m.openPrompt(ModeProgress, domain.ActionEdit, fmt.Sprintf("Progress 0-%d", domain.MaxManualProgress))

	case key.Matches(msg, m.keys.Search):
		m.mode = ModeSearch
		m.prompt = nil
		m.input.Placeholder = "Search titles"
		m.input.SetValue(m.board.Query().Search())
		m.input.Focus()
		return m, textinput.Blink
	}

	return m, nil
}

// handleInput handles keys while a prompt is open.
func (m *Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt()
		return m, nil

	case msg.Type == tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode, p := m.mode, m.prompt
		m.closePrompt()
		return m, m.submit(mode, p, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) openPrompt(mode Mode, action domain.Action, placeholder string) tea.Cmd {
	t := m.selected()
	if t == nil {
		return nil
	}
	m.mode = mode
	m.prompt = &prompt{task: t, action: action}
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.Focus()
	return textinput.Blink
}

func (m *Model) closePrompt() {
	m.mode = ModeNormal
	m.prompt = nil
	m.input.Blur()
	m.input.Reset()
}

// submit finishes the request of a closed prompt.
func (m *Model) submit(mode Mode, p *prompt, value string) tea.Cmd {
	switch mode {
	case ModeSearch:
		m.board.SetQuery(m.board.Query().WithSearch(value))
		m.cursor = 0
		return m.reload()

	case ModeReason:
		return m.perform(lifecycle.Request{Task: p.task, Action: p.action, Reason: value})

	case ModeProgress:
		n, err := strconv.Atoi(value)
		if err != nil {
			m.err = domain.NewValidationError([]string{"progress must be a number"})
			return nil
		}
		return m.patch(p.task.ID, board.Progress(n), fmt.Sprintf("Progress of %s set to %d%%", p.task.ID, n))
	}
	return nil
}

// patch validates edit locally and sends it in a command. The board only
// changes when MsgPatched arrives.
func (m *Model) patch(id domain.TaskID, edit board.FieldEdit, notice string) tea.Cmd {
	pending, err := m.board.BeginPatch(id, edit)
	if err != nil {
		m.err = err
		return nil
	}
	gw := m.board.Gateway()
	ctx := m.ctx
	return func() tea.Msg {
		server, err := gw.Patch(ctx, pending.ID, pending.Fields)
		return MsgPatched{Patch: pending, Task: server, Err: err, Notice: notice}
	}
}

// reload starts a root fetch of the current query.
func (m *Model) reload() tea.Cmd {
	t := m.board.BeginReload()
	m.loading = true
	q := m.board.Query()
	gw := m.board.Gateway()
	ctx := m.ctx
	return func() tea.Msg {
		page, err := gw.Roots(ctx, q)
		return MsgRootsLoaded{Ticket: t, Page: page, Err: err}
	}
}

// toggle expands or collapses the selected row.
func (m *Model) toggle() tea.Cmd {
	rows := m.board.Rows()
	if m.cursor >= len(rows) {
		return nil
	}
	row := rows[m.cursor]
	if !row.HasChildren && !row.Expanded {
		return nil
	}

	t, fetch := m.board.BeginToggle(row.Task.ID)
	if !fetch {
		return nil
	}
	gw := m.board.Gateway()
	department := m.board.Query().Department()
	ctx := m.ctx
	return func() tea.Msg {
		children, err := gw.Children(ctx, t.ID, department)
		return MsgChildrenLoaded{Ticket: t, Children: children, Err: err}
	}
}

// act performs a reason-less action on the selected task.
func (m *Model) act(action domain.Action) tea.Cmd {
	t := m.selected()
	if t == nil {
		return nil
	}
	return m.perform(lifecycle.Request{Task: t, Action: action})
}

// perform runs req on a private engine whose snapshots are collected and
// applied to the board when the result arrives.
func (m *Model) perform(req lifecycle.Request) tea.Cmd {
	if m.busy {
		m.notice = "another action is still running"
		return nil
	}
	m.busy = true
	m.notice = ""
	req.Task = req.Task.Clone()

	gw := m.board.Gateway()
	releases, planning := m.releases, m.planning
	logger, collector, ctx := m.logger, m.metrics, m.ctx
	return func() tea.Msg {
		sink := &snapshotSink{}
		e := lifecycle.NewEngine(gw, releases, planning,
			lifecycle.WithSink(sink),
			lifecycle.WithLogger(logger),
			lifecycle.WithMetrics(collector),
		)
		res, err := e.Perform(ctx, req)
		return MsgActionDone{Action: req.Action, Result: res, Snapshots: sink.tasks, Err: err}
	}
}

func (m *Model) selected() *domain.Task {
	rows := m.board.Rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil
	}
	return rows[m.cursor].Task
}

func (m *Model) clampCursor() {
	n := len(m.board.Rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// snapshotSink collects the snapshots of one action.
type snapshotSink struct {
	tasks []*domain.Task
}

func (s *snapshotSink) Apply(t *domain.Task) bool {
	s.tasks = append(s.tasks, t)
	return true
}
