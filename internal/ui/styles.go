// Package ui renders nudge's terminal output: the correction prompt, history
// tables and short styled messages. Everything here writes to stderr; stdout
// is reserved for the shell hook.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color definitions for consistent theming
var (
	ColorGreen  = lipgloss.Color("#10B981")
	ColorRed    = lipgloss.Color("#EF4444")
	ColorYellow = lipgloss.Color("#F59E0B")
	ColorCyan   = lipgloss.Color("#06B6D4")
	ColorGray   = lipgloss.Color("#6B7280")
	ColorPurple = lipgloss.Color("#7C3AED")
)

var (
	commandStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	typoStyle    = lipgloss.NewStyle().Foreground(ColorRed).Strikethrough(true)
	noteStyle    = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorPurple).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// Green returns a green-colored string
func Green(s string) string {
	return lipgloss.NewStyle().Foreground(ColorGreen).Render(s)
}

// Red returns a red-colored string
func Red(s string) string {
	return lipgloss.NewStyle().Foreground(ColorRed).Render(s)
}

// Yellow returns a yellow-colored string
func Yellow(s string) string {
	return lipgloss.NewStyle().Foreground(ColorYellow).Render(s)
}

// Cyan returns a cyan-colored string
func Cyan(s string) string {
	return lipgloss.NewStyle().Foreground(ColorCyan).Render(s)
}

// Muted returns a gray string for secondary text
func Muted(s string) string {
	return noteStyle.Render(s)
}

// Redf returns a formatted red-colored string
func Redf(format string, a ...any) string {
	return Red(fmt.Sprintf(format, a...))
}

// Yellowf returns a formatted yellow-colored string
func Yellowf(format string, a ...any) string {
	return Yellow(fmt.Sprintf(format, a...))
}

// Command renders a command line the way suggestions show it.
func Command(s string) string {
	return commandStyle.Render(s)
}

// Typo renders the text the user actually typed.
func Typo(s string) string {
	return typoStyle.Render(s)
}
