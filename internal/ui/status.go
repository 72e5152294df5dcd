package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/wallboxctl/internal/wallbox"
)

const statusBoxHeight = 4

// renderStatusPanel shows the last known charger status. Values stay visible
// while offline so the operator can see what was last reported.
func (m Model) renderStatusPanel() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	var lines []string
	if !snap.HasStatus {
		lines = []string{styles.MutedText.Render("Waiting for first status...")}
	} else {
		st := snap.Status
		state := strings.ToUpper(strings.TrimSpace(st.State))
		if state == "" {
			state = "UNKNOWN"
		}
		field := func(label, value string, style lipgloss.Style) string {
			return styles.FaintText.Render(label+" ") + style.Render(value)
		}
		onOff := func(on bool, yes, no string) (string, lipgloss.Style) {
			if on {
				return yes, styles.SuccessText
			}
			return no, styles.MutedText
		}

		wb, wbStyle := onOff(st.WallboxEnabled, "Enabled", "Disabled")
		relay, relayStyle := onOff(st.RelayEnabled, "On", "Off")
		charging, chargingStyle := onOff(st.Charging, "Yes", "No")

		lines = append(lines, strings.Join([]string{
			styles.FaintText.Render("State ") + styles.StatusStyle(state).Render(state),
			field("Wallbox", wb, wbStyle),
			field("Relay", relay, relayStyle),
			field("Charging", charging, chargingStyle),
		}, "   "))

		second := field("Last update", m.formatUpdated(), styles.Text)
		if snap.LastError != nil {
			second += "   " + field("Last error", truncate(wallbox.ErrorMessage(snap.LastError), maxInt(10, m.width-40)), styles.DangerText)
		}
		lines = append(lines, second)
	}

	return m.renderBox("Status", " "+strings.Join(lines, "\n "), m.width, statusBoxHeight, false)
}

// renderControls lists the actions in the control set. Unusable actions are
// drawn faint.
func (m Model) renderControls() string {
	styles := m.theme.Styles()
	actions := m.controls.Actions()
	buttons := make([]string, 0, len(actions))
	for _, a := range actions {
		h := m.keys.actionBinding(a).Help()
		label := "[" + h.Key + "] " + h.Desc
		if m.pending != nil && *m.pending == a {
			buttons = append(buttons, styles.WarningText.Render(label+"..."))
			continue
		}
		if ok, _ := m.actionState(a); ok {
			buttons = append(buttons, styles.AccentText.Bold(true).Render(label))
		} else {
			buttons = append(buttons, styles.FaintText.Render(label))
		}
	}
	return " " + strings.Join(buttons, "  ")
}

// renderMessage shows the last action error, or else a transient notice.
func (m Model) renderMessage() string {
	styles := m.theme.Styles()
	switch {
	case m.actionErr != "":
		return " " + styles.DangerText.Render(truncate(m.actionErr, maxInt(10, m.width-2)))
	case m.notice != "":
		return " " + styles.InfoText.Render(truncate(m.notice, maxInt(10, m.width-2)))
	default:
		return ""
	}
}
