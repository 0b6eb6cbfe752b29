package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for the approval view.
type Styles struct {
	Title    lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Rejected lipgloss.Style
	Muted    lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the default approval view styling.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Cursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Rejected: lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Strikethrough(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).MarginTop(1),
	}
}
