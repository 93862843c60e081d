package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result is the box printed when a command finishes.
type Result struct {
	Type            ResultType
	Title           string   // e.g. "Volume set"
	Details         []Field  // Key-value details, rendered in order
	Error           error    // Only rendered for failures
	Troubleshooting []string // Only rendered for failures
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Field) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details ...Field) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// SetWidth sets the width for rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a detail line
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Field{Key: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := max(r.Width, MinTerminalWidth)

	var (
		title  string
		border lipgloss.TerminalColor
	)
	switch r.Type {
	case ResultFailure:
		title = ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title))
		border = ErrorColor
	case ResultWarning:
		title = WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, r.Title))
		border = WarningColor
	default:
		title = SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title))
		border = SuccessColor
	}

	lines := []string{"", title, ""}
	for _, d := range r.Details {
		lines = append(lines, ResultKeyStyle.Render("   "+d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Type == ResultFailure {
		if r.Error != nil {
			lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
		}
		if len(r.Troubleshooting) > 0 {
			lines = append(lines, r.renderTroubleshootingBox(width), "")
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(max(width-12, 40)).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

func (r *Result) String() string {
	return r.Render()
}
