package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Selection
	PrevCity       key.Binding
	NextCity       key.Binding
	TogglePrevious key.Binding
	ToggleTab      key.Binding

	// Application
	Refresh   key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		PrevCity: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous city"),
		),
		NextCity: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next city"),
		),
		TogglePrevious: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "show previous year"),
		),
		ToggleTab: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("Tab", "monthly/category"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r", "ctrl+r"),
			key.WithHelp("r", "reload data"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q/Esc", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevCity, k.NextCity, k.TogglePrevious, k.ToggleTab, k.Help, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevCity, k.NextCity},
		{k.TogglePrevious, k.ToggleTab},
		{k.Refresh, k.Help, k.Quit, k.ForceQuit},
	}
}
