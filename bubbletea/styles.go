package bubbletea

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for TUI rendering.
type Styles struct {
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Error          lipgloss.Style
	Muted          lipgloss.Style
}

// DefaultStyles returns the default ANSI-16 palette, safe on light and
// dark terminals.
func DefaultStyles() Styles {
	return Styles{
		UserLabel:      lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		AssistantLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		Error:          lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Muted:          lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true),
	}
}
