package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Header   lipgloss.Style
	Title    lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Panel    lipgloss.Style
	Tag      lipgloss.Style
	Active   lipgloss.Style

	User   lipgloss.Style
	Staff  lipgloss.Style
	System lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#5A56E0")).Padding(0, 1),
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5A56E0")),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#3C3A9E")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#777777")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
		Panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1),
		Tag:      lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")).Padding(0, 1),
		Active:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")).Underline(true).Padding(0, 1),

		User:   lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		Staff:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623")),
		System: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#777777")),
	}
}
