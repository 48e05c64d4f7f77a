package console

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	minBarWidth = 10
	maxBarWidth = 50
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("waypoint monitor"))
	b.WriteString("  ")
	b.WriteString(m.connLine())
	b.WriteString("\n\n")

	rows := []string{
		row("server", m.api.Base()),
		row("state", stateStyle(m.status.State).Render(orDash(m.status.State))),
		row("position", fmt.Sprintf("%.2f  %.2f  %.2f", m.status.Position[0], m.status.Position[1], m.status.Position[2])),
		row("heading", fmt.Sprintf("%.1f°", m.status.Heading*180/math.Pi)),
	}
	if m.haveStatus {
		rows = append(rows,
			row("policy", m.status.Policy),
			row("telemetry", telemetryAge(m.status.TelemetryAgeMs)),
		)
	}
	b.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	b.WriteString(panelStyle.Render(m.goalPanel()))
	b.WriteString("\n")

	if m.note != "" {
		b.WriteString(noteStyle.Render(m.note))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m Model) connLine() string {
	if m.connected {
		return valueStyle.Render("● live")
	}
	if m.connErr != nil {
		return lipgloss.NewStyle().Foreground(colorRed).Render("○ offline: " + m.connErr.Error())
	}
	return lipgloss.NewStyle().Foreground(colorGray).Render("○ connecting")
}

func (m Model) goalPanel() string {
	if m.goalID == "" {
		return row("goal", "none")
	}

	rows := []string{row("goal", shortID(m.goalID))}
	if m.running() {
		rows = append(rows, row("", m.spinner.View()+" executing"))
	}
	rows = append(rows,
		row("distance", fmt.Sprintf("%.2f m", m.distance)),
		row("speed", fmt.Sprintf("%.2f m/s", m.speed)),
		row("progress", renderBar(m.Progress(), m.barWidth())),
	)
	if m.last != nil {
		outcome := stateStyle(m.last.State).Render(m.last.State)
		if m.last.Error != "" {
			outcome += " " + m.last.Error
		}
		rows = append(rows, row("result", outcome))
	}
	return strings.Join(rows, "\n")
}

func (m Model) barWidth() int {
	w := m.width - 24
	if w < minBarWidth {
		w = minBarWidth
	}
	if w > maxBarWidth {
		w = maxBarWidth
	}
	return w
}

// renderBar draws a horizontal bar filled to frac.
func renderBar(frac float64, width int) string {
	filled := int(math.Round(frac * float64(width)))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", frac*100)
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func telemetryAge(ms int64) string {
	if ms < 0 {
		return "no samples"
	}
	return fmt.Sprintf("%d ms ago", ms)
}
