package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dekdek-app/dekdek/internal/children"
	"github.com/dekdek-app/dekdek/internal/models"
)

var (
	errorColor = lipgloss.Color("#E53935")
	mutedColor = lipgloss.Color("#9E9E9E")
)

// styles are derived from the child's theme
type styles struct {
	title lipgloss.Style
	frame lipgloss.Style
	label lipgloss.Style
	muted lipgloss.Style
	alert lipgloss.Style
	keys  lipgloss.Style
}

func newStyles(g models.Gender) styles {
	theme := children.ThemeFor(g)
	primary := lipgloss.Color(theme.Primary)

	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(theme.Background)).
			Background(primary).
			Padding(0, 1),
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2),
		label: lipgloss.NewStyle().Bold(true).Foreground(primary),
		muted: lipgloss.NewStyle().Foreground(mutedColor),
		alert: lipgloss.NewStyle().Bold(true).Foreground(errorColor),
		keys:  lipgloss.NewStyle().Foreground(mutedColor).Italic(true),
	}
}
