package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the application-wide keybindings. Screen keys live in
// their components.
type KeyMap struct {
	// Navigation
	FocusNext     key.Binding
	FocusPrev     key.Binding
	GoDashboard   key.Binding
	GoTables      key.Binding
	GoSettings    key.Binding
	ToggleSidebar key.Binding

	// App
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the standard keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		FocusNext: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		FocusPrev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev pane"),
		),
		GoDashboard: key.NewBinding(
			key.WithKeys("alt+1", "f2"),
			key.WithHelp("alt+1", "dashboard"),
		),
		GoTables: key.NewBinding(
			key.WithKeys("alt+2", "f3"),
			key.WithHelp("alt+2", "tables"),
		),
		GoSettings: key.NewBinding(
			key.WithKeys("alt+3", "f4"),
			key.WithHelp("alt+3", "settings"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("ctrl+b", "toggle sidebar"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "f1"),
			key.WithHelp("?/f1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("ctrl+q", "quit"),
		),
	}
}

// ShortHelp returns a subset of keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.FocusNext, k.Refresh, k.Quit, k.Help}
}

// FullHelp returns all keybindings grouped for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.GoDashboard, k.GoTables, k.GoSettings},
		{k.FocusNext, k.FocusPrev, k.ToggleSidebar},
		{k.Refresh, k.Help, k.Quit},
	}
}
