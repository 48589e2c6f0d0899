package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the picker's own key bindings. Navigation and filtering
// are handled by the list.
type KeyMap struct {
	Select key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "resume"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the list's help footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Quit}
}
