package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#73F59F")).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F25D94"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#73F59F"))

	focusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	registeredBarStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("117"))

	attendedBarStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("157"))
)
