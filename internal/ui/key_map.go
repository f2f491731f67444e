package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	pause   key.Binding
	skip    key.Binding
	stop    key.Binding
	enqueue key.Binding
	remove  key.Binding
	queue   key.Binding
	sync    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		pause:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
		skip:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		enqueue: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to queue")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove")),
		queue:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "queue")),
		sync:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.pause, k.skip, k.stop},
		{k.enqueue, k.remove, k.queue},
		{k.sync, k.back, k.quit},
	}
}
