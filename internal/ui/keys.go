package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/five82/wallboxctl/internal/wallbox"
)

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding

	// Charger actions
	Start   key.Binding
	Stop    key.Binding
	Pause   key.Binding
	Resume  key.Binding
	Enable  key.Binding
	Disable key.Binding

	// Log actions
	Download     key.Binding
	Copy         key.Binding
	Clear        key.Binding
	CycleLevel   key.Binding
	ToggleFollow key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),

		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Start charging"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Stop charging"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Pause charging"),
		),
		Resume: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Resume charging"),
		),
		Enable: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "Enable wallbox"),
		),
		Disable: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Disable wallbox"),
		),

		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Download logs"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Copy logs"),
		),
		Clear: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Clear logs"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Cycle log level"),
		),
		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Scroll down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Page down"),
		),
	}
}

// actionBinding maps a charger action to its key.
func (k keyMap) actionBinding(a wallbox.Action) key.Binding {
	switch a {
	case wallbox.ActionStart:
		return k.Start
	case wallbox.ActionStop:
		return k.Stop
	case wallbox.ActionPause:
		return k.Pause
	case wallbox.ActionResume:
		return k.Resume
	case wallbox.ActionEnable:
		return k.Enable
	case wallbox.ActionDisable:
		return k.Disable
	default:
		return key.Binding{}
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Pause, k.Resume, k.Enable, k.Disable},
		{k.Download, k.Copy, k.Clear, k.CycleLevel, k.ToggleFollow},
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
