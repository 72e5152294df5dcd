package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutMinLogHeight is the smallest log box, borders included.
	LayoutMinLogHeight = 4
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// NoticeTTL is how long transient notices stay on screen.
	NoticeTTL = 5 * time.Second

	// ClearConfirmWindow is how long a pending clear waits for the second C.
	ClearConfirmWindow = 3 * time.Second
)

// Fixed rows around the log box: header, banner, status box (4), controls,
// message line, command bar.
const chromeRows = 9

// renderBox draws a rounded box with the title set into the top border.
// width and height include the border.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	if width < 4 || height < 2 {
		return ""
	}
	borderColor := m.theme.Border
	if focused {
		borderColor = m.theme.BorderFocus
	}
	border := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Text)).Bold(true)

	inner := width - 2
	title = truncate(title, inner-3)
	var top string
	if title != "" {
		rest := maxInt(0, inner-lipgloss.Width(title)-3)
		top = border.Render("╭─") + titleStyle.Render(" "+title+" ") + border.Render(strings.Repeat("─", rest)+"╮")
	} else {
		top = border.Render("╭" + strings.Repeat("─", inner) + "╮")
	}

	lines := strings.Split(content, "\n")
	body := make([]string, 0, height-2)
	side := border.Render("│")
	for i := 0; i < height-2; i++ {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		if w := lipgloss.Width(line); w > inner {
			line = truncate(stripANSI(line), inner)
		}
		pad := maxInt(0, inner-lipgloss.Width(line))
		body = append(body, side+line+strings.Repeat(" ", pad)+side)
	}
	bottom := border.Render("╰" + strings.Repeat("─", inner) + "╯")

	out := make([]string, 0, height)
	out = append(out, top)
	out = append(out, body...)
	out = append(out, bottom)
	return strings.Join(out, "\n")
}

// logBoxHeight is the height left for the log box after the fixed rows.
func (m Model) logBoxHeight() int {
	return maxInt(LayoutMinLogHeight, m.height-chromeRows)
}
