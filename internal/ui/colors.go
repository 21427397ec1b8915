package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spindle/internal/models"
)

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

type styleSet struct {
	title   lipgloss.Style
	err     lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	dim     lipgloss.Style
	statusQ lipgloss.Style
	statusP lipgloss.Style
	statusD lipgloss.Style
	statusE lipgloss.Style
}

var styles = styleSet{
	title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
	err:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	statusQ: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	statusP: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	statusD: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	statusE: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

// statusStyle returns the style used to render a task's current status
// in the list and detail views.
func statusStyle(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusComplete, models.StatusDone, models.StatusTrackComplete:
		return styles.statusD
	case models.StatusError, models.StatusCancelled, models.StatusInterrupted:
		return styles.statusE
	case models.StatusQueued:
		return styles.statusQ
	default:
		return styles.statusP
	}
}
