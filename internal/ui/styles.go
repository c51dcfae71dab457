package ui

import "github.com/charmbracelet/lipgloss"

// Colors for the UI theme.
var (
	ColorPrimary = lipgloss.Color("#A78BFA") // Soft Purple
	ColorSuccess = lipgloss.Color("#059669") // Emerald
	ColorWarning = lipgloss.Color("#D97706") // Amber
	ColorError   = lipgloss.Color("#DC2626") // Red
	ColorMuted   = lipgloss.Color("#9CA3AF") // Neutral Gray
	ColorInfo    = lipgloss.Color("#2DD4BF") // Teal
)

// Styles holds the pre-built lipgloss styles.
type Styles struct {
	Banner     lipgloss.Style
	Prompt     lipgloss.Style
	ToolCall   lipgloss.Style
	ToolResult lipgloss.Style
	Error      lipgloss.Style
	Warning    lipgloss.Style
	Info       lipgloss.Style
	Muted      lipgloss.Style
	Confirm    lipgloss.Style
}

// NewStyles creates the default style set.
func NewStyles() *Styles {
	return &Styles{
		Banner:     lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
		Prompt:     lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
		ToolCall:   lipgloss.NewStyle().Foreground(ColorInfo),
		ToolResult: lipgloss.NewStyle().Foreground(ColorMuted),
		Error:      lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Warning:    lipgloss.NewStyle().Foreground(ColorWarning),
		Info:       lipgloss.NewStyle().Foreground(ColorInfo),
		Muted:      lipgloss.NewStyle().Foreground(ColorMuted),
		Confirm:    lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),
	}
}
