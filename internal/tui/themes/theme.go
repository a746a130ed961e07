// Package themes holds the color schemes of the review screen.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title     lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Selected  lipgloss.Style
	Normal    lipgloss.Style
	Debit     lipgloss.Style
	Credit    lipgloss.Style
	HighScore lipgloss.Style
	LowScore  lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Box       lipgloss.Style
	Muted     lipgloss.Color
	Primary   lipgloss.Color
}

func build(primary, muted, fg, border, green, red, yellow lipgloss.Color) Theme {
	return Theme{
		Primary: primary,
		Muted:   muted,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg).
			MarginBottom(1),
		Tab: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1),
		ActiveTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg).
			Background(primary).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		Normal: lipgloss.NewStyle().
			Foreground(fg),
		Debit: lipgloss.NewStyle().
			Foreground(red),
		Credit: lipgloss.NewStyle().
			Foreground(green),
		HighScore: lipgloss.NewStyle().
			Foreground(green).
			Bold(true),
		LowScore: lipgloss.NewStyle().
			Foreground(yellow),
		Status: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(red).
			Bold(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}

// Default is the default theme.
var Default = build(
	lipgloss.Color("#7c3aed"),
	lipgloss.Color("#737373"),
	lipgloss.Color("#fafafa"),
	lipgloss.Color("#404040"),
	lipgloss.Color("#10b981"),
	lipgloss.Color("#ef4444"),
	lipgloss.Color("#f59e0b"),
)

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(
	lipgloss.Color("#cba6f7"),
	lipgloss.Color("#6c7086"),
	lipgloss.Color("#cdd6f4"),
	lipgloss.Color("#45475a"),
	lipgloss.Color("#a6e3a1"),
	lipgloss.Color("#f38ba8"),
	lipgloss.Color("#f9e2af"),
)

// ByName returns the named theme, falling back to Default.
func ByName(name string) Theme {
	if name == "catppuccin" {
		return CatppuccinMocha
	}
	return Default
}
