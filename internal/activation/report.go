package activation

import (
	"time"

	"github.com/kingrea/switchboard/internal/component"
)

// Report aggregates every outcome of one completed phase run. A report is
// immutable once RunPhase returns it.
type Report struct {
	ID         string
	Seq        uint64
	Phase      component.Phase
	StartedAt  time.Time
	FinishedAt time.Time

	// Outcomes holds one entry per descriptor in registration order.
	Outcomes  []component.Outcome
	Activated []component.Outcome
	Failed    []component.Outcome
	Disabled  []component.Outcome

	index map[string]int
}

func newReport(id string, seq uint64, phase component.Phase, started time.Time, size int) *Report {
	return &Report{
		ID:        id,
		Seq:       seq,
		Phase:     phase,
		StartedAt: started,
		Outcomes:  make([]component.Outcome, 0, size),
		index:     make(map[string]int, size),
	}
}

func (r *Report) record(outcome component.Outcome) {
	r.index[outcome.ID] = len(r.Outcomes)
	r.Outcomes = append(r.Outcomes, outcome)
	switch outcome.Status {
	case component.StatusActivated:
		r.Activated = append(r.Activated, outcome)
	case component.StatusDisabled:
		r.Disabled = append(r.Disabled, outcome)
	default:
		r.Failed = append(r.Failed, outcome)
	}
}

// Len returns the number of outcomes recorded.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Outcomes)
}

// Outcome returns the outcome recorded for id.
func (r *Report) Outcome(id string) (component.Outcome, bool) {
	if r == nil {
		return component.Outcome{}, false
	}
	idx, ok := r.index[id]
	if !ok {
		return component.Outcome{}, false
	}
	return r.Outcomes[idx], true
}

// IsActive reports whether id reached Activated in this run.
func (r *Report) IsActive(id string) bool {
	outcome, ok := r.Outcome(id)
	return ok && outcome.Status == component.StatusActivated
}

// IDs returns ids with the given status in registration order.
func (r *Report) IDs(status component.Status) []string {
	if r == nil {
		return nil
	}
	var bucket []component.Outcome
	switch status {
	case component.StatusActivated:
		bucket = r.Activated
	case component.StatusFailed:
		bucket = r.Failed
	case component.StatusDisabled:
		bucket = r.Disabled
	}
	ids := make([]string, 0, len(bucket))
	for _, outcome := range bucket {
		ids = append(ids, outcome.ID)
	}
	return ids
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	if r == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
