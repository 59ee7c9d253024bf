package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	keyword = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}).Render

	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render

	faint = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}).Render

	warning = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}).Render
)

// plainWhenPiped drops colors when stdout is not a terminal, so listings
// stay greppable.
func plainWhenPiped() {
	if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
