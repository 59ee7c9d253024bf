package ui

import "github.com/charmbracelet/lipgloss"

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	faint     = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}

	statusBarBg = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	userStyle = lipgloss.NewStyle().Foreground(faint).Render

	replyStyle = lipgloss.NewStyle().Foreground(darkGreen).Bold(true).Render

	missStyle = lipgloss.NewStyle().Foreground(faint).Italic(true).Render

	errorStyle = lipgloss.NewStyle().Foreground(red).Render

	statusBarNoteStyle = lipgloss.NewStyle().Foreground(faint).Background(statusBarBg).Render

	statusBarMessageStyle = lipgloss.NewStyle().Foreground(mintGreen).Background(darkGreen).Render
)
