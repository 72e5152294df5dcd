package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the top bar: logo, connection state, API URL and the
// time of the last status.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render("wallboxctl", styles.Logo)}

	switch {
	case !m.snapshot.HasStatus && m.snapshot.LastError == nil:
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
	case m.snapshot.Connected:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	}

	if m.apiURL != "" && m.width >= LayoutCompactWidth {
		parts = append(parts,
			bg.Render("API", styles.FaintText)+bg.Space()+bg.Render(m.apiURL, styles.MutedText))
	}

	parts = append(parts,
		bg.Render("Updated", styles.FaintText)+bg.Space()+bg.Render(m.formatUpdated(), styles.MutedText))

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// renderBanner explains a lost connection. It stays blank while healthy so
// the layout does not jump.
func (m Model) renderBanner() string {
	styles := m.theme.Styles()
	if m.snapshot.Connected || m.snapshot.LastError == nil {
		return ""
	}
	text := "Cannot connect to wallbox controller"
	if m.apiURL != "" {
		text += " at " + m.apiURL
	}
	hint := "Retrying every " + m.pollTick.String()
	if m.snapshot.IsOffline() {
		hint += ", shown values may be stale"
	}
	line := styles.DangerText.Render(text) + styles.MutedText.Render(". "+hint+".")
	return lipgloss.NewStyle().MaxWidth(maxInt(1, m.width)).Render(line)
}

func (m Model) formatUpdated() string {
	t := m.snapshot.Status.UpdatedAt()
	if t.IsZero() {
		t = m.snapshot.LastUpdated
	}
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.TimeOnly)
}

// renderCommandBar renders the key hints along the bottom.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	commands := []cmd{
		{"L", string(m.minLevel) + "+"},
		{"d", "Download"},
		{"y", "Copy"},
		{"C", "Clear"},
		{"Space", ternary(m.follow, "Pause", "Follow")},
		{"?", "More"},
		{"q", "Quit"},
	}
	if m.width >= LayoutCompactWidth {
		actions := make([]cmd, 0, len(m.controls.Actions()))
		for _, a := range m.controls.Actions() {
			h := m.keys.actionBinding(a).Help()
			actions = append(actions, cmd{h.Key, strings.Fields(h.Desc)[0]})
		}
		commands = append(actions, commands...)
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Footer.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}
