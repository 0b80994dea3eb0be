package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/blescan/internal/version"
)

// AppName is shown in the screen header
const AppName = "BLESCAN"

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	AccentColor    = lipgloss.Color("#FF8B94") // Pink
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red
	TextColor      = lipgloss.Color("#FFFFFF") // White
	SubtleColor    = lipgloss.Color("#626262") // Gray
)

// Common styles
var (
	// TitleStyle is for the screen header
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(1, 2, 0, 2)

	// SubtitleStyle is for the backend line under the title
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true).
			PaddingLeft(2)

	// StatusStyle is for in-progress status messages
	StatusStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			PaddingLeft(2)

	// StoppedStyle is for the idle and stopped status line
	StoppedStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			PaddingLeft(2)

	// ErrorStyle is for failure messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			PaddingLeft(2)

	// SpinnerStyle colors the activity spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// SelectedRecordStyle marks the cursor row
	SelectedRecordStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true)

	// HelpStyle is for the key help footer
	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(1, 2)
)
