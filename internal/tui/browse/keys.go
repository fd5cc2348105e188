package browse

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	edit     key.Binding
	save     key.Binding
	newline  key.Binding
	cancel   key.Binding
	clear    key.Binding
	messaged key.Binding
	copy     key.Binding
	follow   key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "open note"),
		),
		save: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "save"),
		),
		newline: key.NewBinding(
			key.WithKeys("alt+enter"),
			key.WithHelp("alt+↵", "newline"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		clear: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "clear"),
		),
		messaged: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle messaged"),
		),
		copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy note"),
		),
		follow: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "follow link"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
