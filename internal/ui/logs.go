package ui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/wallboxctl/internal/logstore"
)

func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(maxInt(1, m.width-2), maxInt(1, m.logBoxHeight()-2))
	m.logViewport.Style = lipgloss.NewStyle()
}

func (m *Model) resizeLogViewport() {
	m.logViewport.Width = maxInt(1, m.width-2)
	m.logViewport.Height = maxInt(1, m.logBoxHeight()-2)
}

// setEntries swaps in a fresh copy of the store and re-renders when it changed.
func (m *Model) setEntries(entries []logstore.Entry) {
	if sameEntries(m.entries, entries) {
		return
	}
	m.entries = entries
	m.updateLogViewport()
}

// sameEntries compares by length and newest entry. Entries are immutable and
// timestamps only move forward, so this catches appends, trims and clears.
func sameEntries(a, b []logstore.Entry) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	x, y := a[len(a)-1], b[len(b)-1]
	return x.Timestamp == y.Timestamp && x.Message == y.Message && a[0].Timestamp == b[0].Timestamp
}

func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	m.logViewport.SetContent(m.renderLogContent())
	if m.follow {
		m.logViewport.GotoBottom()
	}
}

// visibleEntries returns entries at or above the minimum level, oldest first.
func (m Model) visibleEntries() []logstore.Entry {
	out := make([]logstore.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.Level.AtLeast(m.minLevel) {
			out = append(out, e)
		}
	}
	return out
}

func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	entries := m.visibleEntries()
	if len(entries) == 0 {
		return styles.FaintText.Render(" No log entries")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, m.formatEntry(e, styles))
	}
	return strings.Join(lines, "\n")
}

// formatEntry renders "HH:MM:SS LEVEL message data" with the level colored.
func (m Model) formatEntry(e logstore.Entry, styles Styles) string {
	ts := e.Timestamp
	if t := e.Time(); !t.IsZero() {
		ts = t.Local().Format("15:04:05")
	}
	level := fmt.Sprintf("%-5s", e.Level)
	line := " " + styles.FaintText.Render(ts) + " " + m.getLevelStyle(e.Level, styles).Render(level) + " " + styles.Text.Render(e.Message)
	if e.HasData() {
		line += " " + styles.MutedText.Render(string(bytes.TrimSpace(e.Data)))
	}
	return line
}

func (m Model) getLevelStyle(level logstore.Level, styles Styles) lipgloss.Style {
	switch level {
	case logstore.LevelInfo:
		return styles.SuccessText
	case logstore.LevelWarn:
		return styles.WarningText
	case logstore.LevelError:
		return styles.DangerText
	case logstore.LevelDebug:
		return styles.InfoText
	default:
		return styles.MutedText
	}
}

func (m Model) renderLogs() string {
	title := fmt.Sprintf("Logs %d/%d  %s+", len(m.visibleEntries()), len(m.entries), m.minLevel)
	if !m.follow {
		title += "  paused"
	}
	return m.renderBox(title, m.logViewport.View(), m.width, m.logBoxHeight(), true)
}

// handleLogsKey scrolls the log pane.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.follow = !m.follow
		if m.follow {
			m.logViewport.GotoBottom()
		}
	case key.Matches(msg, m.keys.Up):
		m.follow = false
		m.logViewport.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.logViewport.LineDown(1)
	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.logViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.follow = true
		m.logViewport.GotoBottom()
	case key.Matches(msg, m.keys.PageUp):
		m.follow = false
		m.logViewport.HalfViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.HalfViewDown()
	}
	return m, nil
}

// nextLevel cycles DEBUG, INFO, WARN, ERROR and back.
func nextLevel(current logstore.Level) logstore.Level {
	levels := logstore.Levels()
	for i, l := range levels {
		if l == current {
			return levels[(i+1)%len(levels)]
		}
	}
	return levels[0]
}
