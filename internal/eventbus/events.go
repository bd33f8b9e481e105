package eventbus

import (
	"strings"
	"time"

	"github.com/kingrea/switchboard/internal/component"
)

// Event kinds published by the orchestrator.
const (
	TypePhase    = "phase"
	TypeOutcome  = "outcome"
	TypeReport   = "report"
	TypeSettings = "settings_reloaded"
	TypeError    = "error"
)

// AllTopic receives every event regardless of component.
const AllTopic = "*"

// Event is a single lifecycle notification.
type Event struct {
	EventID     string           `json:"event_id"`
	Sequence    uint64           `json:"sequence"`
	Type        string           `json:"type"`
	Time        time.Time        `json:"time"`
	Phase       component.Phase  `json:"phase,omitempty"`
	ReportID    string           `json:"report_id,omitempty"`
	ComponentID string           `json:"component_id,omitempty"`
	Status      component.Status `json:"status,omitempty"`
	Detail      string           `json:"detail,omitempty"`
}

// Normalize trims identifiers before routing.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	e.EventID = strings.TrimSpace(e.EventID)
	e.Type = strings.TrimSpace(e.Type)
	e.ComponentID = strings.TrimSpace(e.ComponentID)
}

// OutcomeEvent describes one recorded outcome.
func OutcomeEvent(reportID string, phase component.Phase, outcome component.Outcome) Event {
	detail := outcome.Reason
	if outcome.Status == component.StatusDisabled {
		detail = outcome.ByKey
	}
	return Event{
		Type:        TypeOutcome,
		Phase:       phase,
		ReportID:    reportID,
		ComponentID: outcome.ID,
		Status:      outcome.Status,
		Detail:      detail,
	}
}
