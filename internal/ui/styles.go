package ui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles of the chat view.
type Styles struct {
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Meta      lipgloss.Style
	Panel     lipgloss.Style
	Prompt    lipgloss.Style
	Help      lipgloss.Style
	Error     lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("11")),
		Meta:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1),
		Prompt: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}
