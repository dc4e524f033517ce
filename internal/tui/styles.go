// Package tui provides terminal user interface components.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the TUI.
type Theme struct {
	Primary    lipgloss.AdaptiveColor
	Secondary  lipgloss.AdaptiveColor
	Success    lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
	Error      lipgloss.AdaptiveColor
	Muted      lipgloss.AdaptiveColor
	Background lipgloss.AdaptiveColor
	Foreground lipgloss.AdaptiveColor
	Border     lipgloss.AdaptiveColor
}

// DefaultTheme returns the default sitedata theme.
func DefaultTheme() Theme {
	return Theme{
		Primary:    lipgloss.AdaptiveColor{Light: "#0b5cad", Dark: "#7fb3ea"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#5f6368", Dark: "#9aa0a6"},
		Success:    lipgloss.AdaptiveColor{Light: "#1e8e3e", Dark: "#81c995"},
		Warning:    lipgloss.AdaptiveColor{Light: "#b06000", Dark: "#fdd663"},
		Error:      lipgloss.AdaptiveColor{Light: "#d93025", Dark: "#f28b82"},
		Muted:      lipgloss.AdaptiveColor{Light: "#80868b", Dark: "#6e7681"},
		Background: lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#1f1f1f"},
		Foreground: lipgloss.AdaptiveColor{Light: "#202124", Dark: "#e8eaed"},
		Border:     lipgloss.AdaptiveColor{Light: "#dadce0", Dark: "#3c4043"},
	}
}

// Styles holds the styled components for the TUI.
type Styles struct {
	theme Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Selected lipgloss.Style
	Badge    lipgloss.Style
}

// NewStyles creates a new Styles with the default theme.
func NewStyles() *Styles {
	return NewStylesWithTheme(DefaultTheme())
}

// NewStylesWithTheme creates a new Styles with a custom theme.
func NewStylesWithTheme(theme Theme) *Styles {
	s := &Styles{theme: theme}

	s.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Primary)

	s.Subtitle = lipgloss.NewStyle().
		Foreground(theme.Secondary)

	s.Body = lipgloss.NewStyle().
		Foreground(theme.Foreground)

	s.Muted = lipgloss.NewStyle().
		Foreground(theme.Muted)

	s.Warning = lipgloss.NewStyle().
		Foreground(theme.Warning)

	s.Error = lipgloss.NewStyle().
		Foreground(theme.Error).
		Bold(true)

	s.Selected = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	s.Badge = lipgloss.NewStyle().
		Foreground(theme.Background).
		Background(theme.Primary).
		Padding(0, 1)

	return s
}

// Theme returns the current theme.
func (s *Styles) Theme() Theme {
	return s.theme
}

// RenderKeyValue renders a key-value pair.
func (s *Styles) RenderKeyValue(key, value string) string {
	return s.Muted.Render(key+": ") + s.Body.Render(value)
}
