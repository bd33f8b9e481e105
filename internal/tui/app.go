// internal/tui/app.go
//
// The status board for switchboard. It uses bubbletea, which follows The
// Elm Architecture:
//
// 1. Model: the board state (latest summary, component list)
// 2. Update: a function that updates state based on messages
// 3. View: a function that renders state to a string
//
// The flow is: User Input / Bus Event -> Message -> Update -> View -> Screen

package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/switchboard/internal/activation"
	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/diagnostics"
	"github.com/kingrea/switchboard/internal/eventbus"
	"github.com/kingrea/switchboard/internal/logbook"
)

// Controller is the slice of the orchestrator the board drives.
type Controller interface {
	Status() diagnostics.Summary
	Components() []component.Descriptor
	Query(id string) (component.Outcome, error)
	Reactivate() (*activation.Report, error)
}

// BoardOption customizes Board construction.
type BoardOption func(*Board)

// WithEvents feeds lifecycle events into the board so it refreshes when
// a run completes elsewhere.
func WithEvents(events <-chan eventbus.Event) BoardOption {
	return func(b *Board) {
		b.events = events
	}
}

// WithLogbook shows the tail of the logbook under the board.
func WithLogbook(lb *logbook.Logbook) BoardOption {
	return func(b *Board) {
		b.logbook = lb
	}
}

type refreshMsg struct {
	summary diagnostics.Summary
	items   []list.Item
}

type reactivatedMsg struct {
	report *activation.Report
	err    error
}

type busEventMsg struct {
	event eventbus.Event
	ok    bool
}

// Board is the bubbletea model for the status board.
type Board struct {
	ctrl    Controller
	events  <-chan eventbus.Event
	logbook *logbook.Logbook

	components list.Model
	summary    diagnostics.Summary
	lastEvent  string
	statusMsg  string
	err        error

	width  int
	height int
}

// NewBoard creates a board over ctrl.
func NewBoard(ctrl Controller, opts ...BoardOption) *Board {
	components := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	components.Title = "Components"
	components.SetShowStatusBar(false)
	components.SetShowHelp(false)
	b := &Board{
		ctrl:       ctrl,
		components: components,
		statusMsg:  "r reactivate · / filter · q quit",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Init is called once when the program starts.
func (b *Board) Init() tea.Cmd {
	return tea.Batch(b.refresh(), waitForEvent(b.events))
}

// Update is called when a message is received.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.components.SetSize(max(20, msg.Width/2), max(5, msg.Height-12))
		return b, nil

	case refreshMsg:
		b.summary = msg.summary
		return b, b.components.SetItems(msg.items)

	case reactivatedMsg:
		if msg.err != nil {
			b.err = msg.err
			b.statusMsg = fmt.Sprintf("Reactivate failed: %v", msg.err)
			return b, nil
		}
		b.err = nil
		b.statusMsg = fmt.Sprintf("Reactivated · run %d · %d activated, %d failed, %d disabled",
			msg.report.Seq, len(msg.report.Activated), len(msg.report.Failed), len(msg.report.Disabled))
		return b, b.refresh()

	case busEventMsg:
		if !msg.ok {
			b.events = nil
			return b, nil
		}
		b.lastEvent = describeEvent(msg.event)
		if msg.event.Type == eventbus.TypeReport {
			return b, tea.Batch(b.refresh(), waitForEvent(b.events))
		}
		return b, waitForEvent(b.events)

	case tea.KeyMsg:
		if b.components.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return b, tea.Quit
		case "r":
			b.statusMsg = "Reactivating..."
			return b, b.reactivate()
		}
	}

	var cmd tea.Cmd
	b.components, cmd = b.components.Update(msg)
	return b, cmd
}

// View renders the board.
func (b *Board) View() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ SWITCHBOARD")
	listBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(b.components.View())
	detailBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(30, b.width/2-4)).
		Render(b.renderDetail())
	body := lipgloss.JoinHorizontal(lipgloss.Top, listBox, detailBox)
	sections := []string{header, b.renderCounts(), body}
	if logPanel := b.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(b.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (b *Board) refresh() tea.Cmd {
	ctrl := b.ctrl
	return func() tea.Msg {
		summary := ctrl.Status()
		descriptors := ctrl.Components()
		items := make([]list.Item, 0, len(descriptors))
		for _, d := range descriptors {
			item := componentItem{descriptor: d}
			if outcome, err := ctrl.Query(d.ID); err == nil {
				item.outcome = outcome
				item.attempted = true
			}
			items = append(items, item)
		}
		return refreshMsg{summary: summary, items: items}
	}
}

func (b *Board) reactivate() tea.Cmd {
	ctrl := b.ctrl
	return func() tea.Msg {
		report, err := ctrl.Reactivate()
		return reactivatedMsg{report: report, err: err}
	}
}

func waitForEvent(events <-chan eventbus.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		return busEventMsg{event: event, ok: ok}
	}
}

func describeEvent(event eventbus.Event) string {
	switch event.Type {
	case eventbus.TypeOutcome:
		return fmt.Sprintf("%s %s", event.ComponentID, event.Status)
	case eventbus.TypeReport:
		return fmt.Sprintf("run %s finished", shortID(event.ReportID))
	default:
		if event.Detail != "" {
			return fmt.Sprintf("%s: %s", event.Type, event.Detail)
		}
		return event.Type
	}
}

func (b *Board) renderCounts() string {
	if b.summary.Empty() {
		return detailTextStyle.Render("No activation has run yet.")
	}
	counts := b.summary.Counts
	line := fmt.Sprintf("Run %d · %s · %s %d  %s %d  %s %d",
		b.summary.Seq, b.summary.Phase,
		diagnostics.StatusLabel(component.StatusActivated, true), counts.Activated,
		diagnostics.StatusLabel(component.StatusFailed, true), counts.Failed,
		diagnostics.StatusLabel(component.StatusDisabled, true), counts.Disabled)
	if b.lastEvent != "" {
		line += detailTextStyle.Render("  · last event: " + b.lastEvent)
	}
	return line
}

func (b *Board) renderLogPanel() string {
	if b.logbook == nil {
		return ""
	}
	lines, _ := b.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(b.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
