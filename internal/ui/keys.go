package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds all key bindings for the application.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding

	Start  key.Binding
	Stop   key.Binding
	Clear  key.Binding
	Export key.Binding

	NextVolume key.Binding
	PrevVolume key.Binding
	Reload     key.Binding

	ViewTree   key.Binding
	ViewFlat   key.Binding
	ToggleView key.Binding
	CycleSort  key.Binding
	Reverse    key.Binding

	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter: key.NewBinding(key.WithKeys("enter", "right", "l"), key.WithHelp("l/enter", "open")),
		Back:  key.NewBinding(key.WithKeys("backspace", "left", "h"), key.WithHelp("h/backspace", "parent")),

		Start:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan")),
		Stop:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Export: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export")),

		NextVolume: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next volume")),
		PrevVolume: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous volume")),
		Reload:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload volumes")),

		ViewTree:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "tree view")),
		ViewFlat:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "flat view")),
		ToggleView: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		CycleSort:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort field")),
		Reverse:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reverse sort")),

		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "force quit")),
	}
}
