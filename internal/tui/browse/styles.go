package browse

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1877f2")).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3a3b3c")).
			Padding(0, 1)
	messagedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e14444")).
			Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#585b70"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#cba6f7"))
)
