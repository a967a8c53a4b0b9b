package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD700")).
			Background(lipgloss.Color("#1a1a2e")).
			Padding(0, 2)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(1, 2)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	selectedNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFD700")).
				Bold(true)

	planStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	resetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	hotkeysStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 2)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Padding(0, 2)

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	// Account health icons
	iconHealthy = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	iconLow     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	iconBlocked = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	iconUnknown = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))

	barHealthy = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	barLow     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	barBlocked = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
	barEmptyFg = lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))
)
