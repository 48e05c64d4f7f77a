package console

import "github.com/charmbracelet/lipgloss"

var (
	colorPurple = lipgloss.Color("#7D56F4")
	colorGreen  = lipgloss.Color("#25A065")
	colorRed    = lipgloss.Color("#E05252")
	colorYellow = lipgloss.Color("#E5C07B")
	colorGray   = lipgloss.Color("#626262")
	colorDim    = lipgloss.Color("#404040")
	colorCyan   = lipgloss.Color("#56B6C2")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPurple)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	barFillStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	noteStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// stateStyle colors a lifecycle state name.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "succeeded":
		return lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	case "cancelled":
		return lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	case "aborted":
		return lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	case "executing", "accepted":
		return lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	default:
		return lipgloss.NewStyle().Foreground(colorGray)
	}
}
