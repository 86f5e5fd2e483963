package ui

import "github.com/charmbracelet/lipgloss"

// Color palette. A single cyan accent keeps result lists readable
// instead of turning every field into a different color.
const (
	ColorCyan     = "45"  // Primary accent (#00d7ff)
	ColorCyanDim  = "31"  // Dimmed accent for tags and secondary marks
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Box borders, separators
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Warnings
)

// Styles holds all UI styles for terminal rendering.
type Styles struct {
	// Text styles
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Label    lipgloss.Style
	Score    lipgloss.Style
	Selected lipgloss.Style
	Tag      lipgloss.Style

	// Panel/layout styles
	Border lipgloss.Style
	Panel  lipgloss.Style
}

// DefaultStyles returns styled components for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorCyan)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCyan)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Score:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCyan)),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorCyan)),
		Tag:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCyanDim)),

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle(),
		Success:  lipgloss.NewStyle(),
		Warning:  lipgloss.NewStyle(),
		Error:    lipgloss.NewStyle(),
		Dim:      lipgloss.NewStyle(),
		Label:    lipgloss.NewStyle(),
		Score:    lipgloss.NewStyle(),
		Selected: lipgloss.NewStyle(),
		Tag:      lipgloss.NewStyle(),
		Border:   lipgloss.NewStyle(),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
