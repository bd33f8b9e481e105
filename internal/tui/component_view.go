package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/diagnostics"
)

var (
	labelStylePending = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	detailTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	detailTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// componentItem implements list.Item for one registered descriptor.
type componentItem struct {
	descriptor component.Descriptor
	outcome    component.Outcome
	attempted  bool
}

func (i componentItem) Title() string { return i.descriptor.Label() }

func (i componentItem) Description() string {
	if !i.attempted {
		return "pending · registered after the last run"
	}
	switch i.outcome.Status {
	case component.StatusFailed:
		return "failed · " + i.outcome.Reason
	case component.StatusDisabled:
		return "disabled · off by " + i.outcome.ByKey
	default:
		if len(i.descriptor.CommandTokens) > 0 {
			return "activated · " + strings.Join(i.descriptor.CommandTokens, ", ")
		}
		return "activated"
	}
}

func (i componentItem) FilterValue() string { return i.descriptor.ID }

func (b *Board) selected() (componentItem, bool) {
	item, ok := b.components.SelectedItem().(componentItem)
	return item, ok
}

func (b *Board) renderDetail() string {
	item, ok := b.selected()
	if !ok {
		return detailTextStyle.Render("No components registered.")
	}
	d := item.descriptor
	lines := []string{detailTitleStyle.Render(d.Label())}
	if item.attempted {
		lines = append(lines, diagnostics.StatusLabel(item.outcome.Status, true))
	} else {
		lines = append(lines, labelStylePending.Render("PENDING"))
	}
	add := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		lines = append(lines, detailTextStyle.Render(fmt.Sprintf("%s: %s", label, value)))
	}
	add("id", d.ID)
	add("version", d.Version)
	add("source", d.Source)
	if d.Target != "" && d.Target != d.ID {
		add("target", d.Target)
	}
	add("commands", strings.Join(d.CommandTokens, ", "))
	add("settings", strings.Join(d.SettingKeys, ", "))
	if item.attempted {
		add("reason", item.outcome.Reason)
		add("hint", diagnostics.Remediation(item.outcome))
	}
	return strings.Join(lines, "\n")
}

var _ list.Item = componentItem{}
