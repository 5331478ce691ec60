package main

import "github.com/charmbracelet/lipgloss"

// Terminal styles for the interactive commands. Plain ANSI colors so the
// output degrades cleanly on basic terminals.
var (
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6"))

	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	refusalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("13"))

	optionCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	optionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("13"))

	sourceStyle = lipgloss.NewStyle().
			Faint(true)

	separatorStyle = lipgloss.NewStyle().
			Faint(true)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))
)
