// Package tui drives extra-stage and level runs from a terminal with bubbletea.
package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds every lipgloss style the models render with.
type Styles struct {
	Header       lipgloss.Style
	Title        lipgloss.Style
	Prompt       lipgloss.Style
	Choice       lipgloss.Style
	Cursor       lipgloss.Style
	Selected     lipgloss.Style
	Timer        lipgloss.Style
	TimerWarning lipgloss.Style
	Success      lipgloss.Style
	Error        lipgloss.Style
	Muted        lipgloss.Style
	Footer       lipgloss.Style
}

func DefaultStyles() Styles {
	accent := lipgloss.Color("#d4a017")
	muted := lipgloss.Color("#7a7a7a")
	return Styles{
		Header: lipgloss.NewStyle().
			Background(lipgloss.Color("#1f2a44")).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),
		Title: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			MarginBottom(1),
		Prompt: lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1),
		Choice: lipgloss.NewStyle().PaddingLeft(2),
		Cursor: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#3fb950")),
		Timer:    lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff")),
		TimerWarning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f85149")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3fb950")).
			Bold(true),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("#f85149")),
		Muted: lipgloss.NewStyle().Foreground(muted),
		Footer: lipgloss.NewStyle().
			Foreground(muted).
			MarginTop(1),
	}
}
