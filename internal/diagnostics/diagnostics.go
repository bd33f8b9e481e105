// Package diagnostics projects activation reports into summaries for
// status output, separating components switched off by configuration from
// components that broke.
package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/switchboard/internal/activation"
	"github.com/kingrea/switchboard/internal/component"
)

// ErrNotFound is returned by Query when the id has no outcome.
var ErrNotFound = errors.New("diagnostics: component not found")

// Counts tallies outcomes per status.
type Counts struct {
	Total     int `json:"total"`
	Activated int `json:"activated"`
	Failed    int `json:"failed"`
	Disabled  int `json:"disabled"`
}

// Failure describes a broken component.
type Failure struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Hint   string `json:"hint,omitempty"`
}

// Gated describes a component switched off by a setting.
type Gated struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Summary is the aggregate view over the latest report.
type Summary struct {
	ReportID       string          `json:"report_id,omitempty"`
	Seq            uint64          `json:"seq"`
	Phase          component.Phase `json:"phase,omitempty"`
	FinishedAt     time.Time       `json:"finished_at,omitempty"`
	Counts         Counts          `json:"counts"`
	ActivatedNames []string        `json:"activated"`
	FailedNames    []string        `json:"failed"`
	DisabledNames  []string        `json:"disabled"`
	Failures       []Failure       `json:"failures,omitempty"`
	Gated          []Gated         `json:"gated,omitempty"`
}

// Empty reports whether the summary covers no run.
func (s Summary) Empty() bool {
	return s.ReportID == "" && s.Seq == 0
}

// Summarize projects report into a Summary. A nil report yields an empty
// summary with zero counts.
func Summarize(report *activation.Report) Summary {
	summary := Summary{
		ActivatedNames: []string{},
		FailedNames:    []string{},
		DisabledNames:  []string{},
	}
	if report == nil {
		return summary
	}
	summary.ReportID = report.ID
	summary.Seq = report.Seq
	summary.Phase = report.Phase
	summary.FinishedAt = report.FinishedAt
	summary.Counts = Counts{
		Total:     report.Len(),
		Activated: len(report.Activated),
		Failed:    len(report.Failed),
		Disabled:  len(report.Disabled),
	}
	for _, outcome := range report.Activated {
		summary.ActivatedNames = append(summary.ActivatedNames, outcome.Name)
	}
	for _, outcome := range report.Failed {
		summary.FailedNames = append(summary.FailedNames, outcome.Name)
		summary.Failures = append(summary.Failures, Failure{
			ID:     outcome.ID,
			Name:   outcome.Name,
			Reason: outcome.Reason,
			Hint:   Remediation(outcome),
		})
	}
	for _, outcome := range report.Disabled {
		summary.DisabledNames = append(summary.DisabledNames, outcome.Name)
		summary.Gated = append(summary.Gated, Gated{ID: outcome.ID, Name: outcome.Name, Key: outcome.ByKey})
	}
	return summary
}

// Query returns the outcome for id in report.
func Query(report *activation.Report, id string) (component.Outcome, error) {
	outcome, ok := report.Outcome(strings.TrimSpace(id))
	if !ok {
		return component.Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return outcome, nil
}

// Remediation suggests a next step for a failed or disabled outcome.
func Remediation(outcome component.Outcome) string {
	if outcome.Status == component.StatusDisabled {
		if outcome.ByKey == "" {
			return "the first setting key is blank; give the component a setting key"
		}
		return fmt.Sprintf("set %s: true to enable", outcome.ByKey)
	}
	if outcome.Status != component.StatusFailed {
		return ""
	}
	switch outcome.Reason {
	case component.ReasonNotFound:
		return "no implementation is provided under this id or target; check the plugin file or builtin list"
	case component.ReasonReturnedFalse:
		return "the component declined to activate; check its prerequisites in the log"
	default:
		return "see the logbook for the initialization error"
	}
}

// JSON renders summary as indented JSON.
func JSON(summary Summary) ([]byte, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("diagnostics: encode summary: %w", err)
	}
	return data, nil
}
