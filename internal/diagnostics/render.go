package diagnostics

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/switchboard/internal/component"
)

var (
	labelStyleActivated = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleDisabled  = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	headerStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	detailTextStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// RenderOptions tunes human-readable output.
type RenderOptions struct {
	// Color enables lipgloss styling. Plain text is used otherwise.
	Color bool
	// Hints appends remediation hints beneath failures.
	Hints bool
}

// StatusLabel returns the styled label for status.
func StatusLabel(status component.Status, color bool) string {
	text := strings.ToUpper(string(status))
	if !color {
		return text
	}
	switch status {
	case component.StatusActivated:
		return labelStyleActivated.Render(text)
	case component.StatusFailed:
		return labelStyleFailed.Render(text)
	default:
		return labelStyleDisabled.Render(text)
	}
}

// Render formats summary for a terminal.
func Render(summary Summary, opts RenderOptions) string {
	style := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}
	if summary.Empty() {
		return style(detailTextStyle, "No activation has run yet.")
	}
	var b strings.Builder
	header := fmt.Sprintf("Activation run %d (%s): %d components, %d activated, %d failed, %d disabled",
		summary.Seq, summary.Phase, summary.Counts.Total,
		summary.Counts.Activated, summary.Counts.Failed, summary.Counts.Disabled)
	b.WriteString(style(headerStyle, header))
	b.WriteString("\n")
	for _, name := range summary.ActivatedNames {
		fmt.Fprintf(&b, "  %s %s\n", StatusLabel(component.StatusActivated, opts.Color), name)
	}
	for _, failure := range summary.Failures {
		fmt.Fprintf(&b, "  %s %s: %s\n", StatusLabel(component.StatusFailed, opts.Color), failure.Name, failure.Reason)
		if opts.Hints && failure.Hint != "" {
			b.WriteString("      ")
			b.WriteString(style(detailTextStyle, failure.Hint))
			b.WriteString("\n")
		}
	}
	for _, gated := range summary.Gated {
		fmt.Fprintf(&b, "  %s %s (off by %s)\n", StatusLabel(component.StatusDisabled, opts.Color), gated.Name, gated.Key)
	}
	return strings.TrimRight(b.String(), "\n")
}
