package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the board.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Toggle     key.Binding
	Start      key.Binding
	Complete   key.Binding
	Uncomplete key.Binding
	Skip       key.Binding
	Unskip     key.Binding
	Block      key.Binding
	Unblock    key.Binding
	Progress   key.Binding
	Search     key.Binding
	NextPage   key.Binding
	PrevPage   key.Binding
	Reload     key.Binding
	Cancel     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "expand"),
		),
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start"),
		),
		Complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "complete"),
		),
		Uncomplete: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "reopen"),
		),
		Skip: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "skip"),
		),
		Unskip: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "restore"),
		),
		Block: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "block"),
		),
		Unblock: key.NewBinding(
			key.WithKeys("B"),
			key.WithHelp("B", "unblock"),
		),
		Progress: key.NewBinding(
			key.WithKeys("%"),
			key.WithHelp("%", "progress"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]", "pgdown"),
			key.WithHelp("]", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("[", "pgup"),
			key.WithHelp("[", "prev page"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Start, k.Complete, k.Block, k.Skip, k.Progress, k.Search, k.Reload, k.Quit}
}
