package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled value. Slices of fields keep their order, which maps
// would not.
type Field struct {
	Key   string
	Value string
}

// Header is the banner printed before a command talks to a TV.
type Header struct {
	Title   string  // e.g. "VOLUME"
	Command string  // e.g. "samsungctl volume 20"
	Params  []Field // e.g. {"TV", "192.168.1.20"}, {"Method", "websocket"}
	Width   int
}

// NewHeader creates a header sized to the terminal.
func NewHeader(title, command string, params ...Field) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the width for rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := max(h.Width, MinTerminalWidth)

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	)

	content := top
	if len(h.Params) > 0 {
		keyWidth := 0
		for _, p := range h.Params {
			keyWidth = max(keyWidth, lipgloss.Width(p.Key+":"))
		}
		// HeaderParamKeyStyle pads two cells on the left.
		keyStyle := HeaderParamKeyStyle.Width(keyWidth + 2)
		lines := make([]string, 0, len(h.Params))
		for _, p := range h.Params {
			lines = append(lines, keyStyle.Render(p.Key+":")+" "+HeaderParamValueStyle.Render(p.Value))
		}
		divider := RenderHorizontalDivider(width-6, "─")
		content = lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(lines, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}

func (h *Header) String() string {
	return h.Render()
}
