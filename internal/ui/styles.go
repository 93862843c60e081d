package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette
var (
	PrimaryColor = lipgloss.Color("#1428A0") // Samsung blue
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#FF5555")
	WarningColor = lipgloss.Color("#FFA500") // pending pairing, nothing found
	MutedColor   = lipgloss.Color("#626262")
	TextColor    = lipgloss.Color("#FFFFFF")
)

const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

var (
	plain  = lipgloss.NewStyle().Foreground(TextColor)
	muted  = lipgloss.NewStyle().Foreground(MutedColor)
	strong = plain.Bold(true)

	HeaderTitleStyle      = strong.PaddingLeft(2)
	HeaderCommandStyle    = muted.PaddingLeft(2)
	HeaderParamKeyStyle   = muted.PaddingLeft(2)
	HeaderParamValueStyle = plain

	SuccessTitleStyle = strong.Foreground(SuccessColor)
	WarningTitleStyle = strong.Foreground(WarningColor)
	ErrorTitleStyle   = strong.Foreground(ErrorColor)
	ErrorMessageStyle = plain.Foreground(ErrorColor)

	ResultKeyStyle   = muted.Width(18)
	ResultValueStyle = plain

	TroubleshootingTitleStyle = muted.Bold(true)
	TroubleshootingItemStyle  = muted

	TableHeaderStyle = strong.Foreground(PrimaryColor)
	// TableMarkStyle highlights the current row, e.g. the active source.
	TableMarkStyle = strong.Foreground(SuccessColor)
)

const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "!"
	CurrentMarker = "●"
)

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the stdout width clamped to
// [MinTerminalWidth, MaxContentWidth].
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth
	}
	return min(max(width, MinTerminalWidth), MaxContentWidth)
}

// RenderHorizontalDivider repeats char width times in the primary colour.
func RenderHorizontalDivider(width int, char string) string {
	return lipgloss.NewStyle().Foreground(PrimaryColor).Render(strings.Repeat(char, max(width, 1)))
}
