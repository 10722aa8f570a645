package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the course viewer.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	toggle  key.Binding
	open    key.Binding
	checkIn key.Binding
	dismiss key.Binding
	help    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open course")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "courses")),
		toggle:  key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space/x", "toggle complete")),
		open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
		checkIn: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "check in")),
		dismiss: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss")),
		help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.down, k.toggle, k.open, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.open, k.checkIn, k.dismiss},
		{k.back, k.help, k.quit},
	}
}

// dialogKeyMap defines the bindings of the check-in dialog.
type dialogKeyMap struct {
	left   key.Binding
	right  key.Binding
	focus  key.Binding
	submit key.Binding
	skip   key.Binding
}

func newDialogKeyMap() dialogKeyMap {
	return dialogKeyMap{
		left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "mood")),
		right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "mood")),
		focus:  key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "notes")),
		submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "check in")),
		skip:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "skip")),
	}
}

func (k dialogKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.left, k.right, k.focus, k.submit, k.skip}
}

func (k dialogKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
