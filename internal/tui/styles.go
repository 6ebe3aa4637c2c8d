package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/webtranscriber/internal/session"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Subtle style for key hints
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	StyleTimestamp = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)
)

// stateBadge renders a session state as a colored label.
func stateBadge(s session.State) string {
	return lipgloss.NewStyle().
		Foreground(stateColor(s)).
		Bold(true).
		Render(strings.ToUpper(string(s)))
}

// renderLine styles one transcript line the way the stream carries it.
func renderLine(l transcript.Line) string {
	return StyleTimestamp.Render("["+l.Timestamp+"]") + "   " + l.Text
}

func renderHeader(title string, desc []string, errText string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(StyleHeader.Render(title))
		b.WriteString("\n")
	}
	for _, line := range desc {
		if line == "" {
			continue
		}
		b.WriteString(StyleMuted.Render(line))
		b.WriteString("\n")
	}
	if errText != "" {
		b.WriteString(StyleError.Render(errText))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
