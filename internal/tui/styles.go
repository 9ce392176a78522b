package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by the viewer.
var (
	Accent = lipgloss.Color("#8BC34A")
	Muted  = lipgloss.Color("#6b7280")
	Danger = lipgloss.Color("#e53935")
)

// Styles groups the lipgloss styles the viewer renders with.
type Styles struct {
	Title       lipgloss.Style
	Spinner     lipgloss.Style
	Page        lipgloss.Style
	CurrentPage lipgloss.Style
	Help        lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
}

// DefaultStyles returns the viewer styles.
func DefaultStyles() Styles {
	return Styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(Accent).MarginBottom(1),
		Spinner:     lipgloss.NewStyle().Foreground(Accent),
		Page:        lipgloss.NewStyle().Padding(0, 1),
		CurrentPage: lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true),
		Help:        lipgloss.NewStyle().Foreground(Muted),
		Status:      lipgloss.NewStyle().Foreground(Accent),
		Error:       lipgloss.NewStyle().Foreground(Danger),
	}
}
