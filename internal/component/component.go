package component

import (
	"fmt"
	"strings"
)

// Phase names a point in host startup at which the orchestrator may act.
type Phase string

const (
	PhaseEarlyInit Phase = "early-init"
	PhaseSetup     Phase = "setup"
	PhaseReady     Phase = "ready"
)

// Phases lists the lifecycle phases in the order the host emits them.
var Phases = []Phase{PhaseEarlyInit, PhaseSetup, PhaseReady}

// Index returns the position of p in Phases, or -1 when p is unknown.
func (p Phase) Index() int {
	for idx, phase := range Phases {
		if phase == p {
			return idx
		}
	}
	return -1
}

// EntryPoint activates a component. True means the component is active.
type EntryPoint func() (bool, error)

// CommandHandler answers one dispatched command.
type CommandHandler func(args []string) (string, error)

// Hook runs when the owning component's phase listener fires.
type Hook func() error

// Failure reasons recorded by the activation engine.
const (
	ReasonNotFound      = "not-found"
	ReasonReturnedFalse = "returned false"
)

// Descriptor describes one pluggable feature component.
type Descriptor struct {
	ID            string
	DisplayName   string
	CommandTokens []string
	SettingKeys   []string
	EntryPoint    EntryPoint
	// Target is the implementation lookup key. Empty means ID.
	Target  string
	Version string
	Source  string
}

// LookupKey returns the key the adapter resolves the implementation under.
func (d Descriptor) LookupKey() string {
	if target := strings.TrimSpace(d.Target); target != "" {
		return target
	}
	return strings.TrimSpace(d.ID)
}

// Label returns the display name, falling back to the id.
func (d Descriptor) Label() string {
	if name := strings.TrimSpace(d.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(d.ID)
}

// Normalized returns a trimmed copy with de-duplicated tokens and keys.
func (d Descriptor) Normalized() Descriptor {
	return Descriptor{
		ID:            strings.TrimSpace(d.ID),
		DisplayName:   strings.TrimSpace(d.DisplayName),
		CommandTokens: orderedSet(d.CommandTokens, NormalizeToken),
		SettingKeys:   settingKeys(d.SettingKeys),
		EntryPoint:    d.EntryPoint,
		Target:        strings.TrimSpace(d.Target),
		Version:       strings.TrimSpace(d.Version),
		Source:        strings.TrimSpace(d.Source),
	}
}

// NormalizeToken lowercases a command token and strips a leading / or !.
func NormalizeToken(token string) string {
	token = strings.TrimSpace(token)
	token = strings.TrimLeft(token, "/!")
	return strings.ToLower(strings.TrimSpace(token))
}

// settingKeys de-duplicates keys but keeps a blank first key in place, so
// the gate still consults it and fails closed.
func settingKeys(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	rest := orderedSet(values[1:], strings.TrimSpace)
	first := strings.TrimSpace(values[0])
	if first == "" {
		return append([]string{""}, rest...)
	}
	return orderedSet(values, strings.TrimSpace)
}

func orderedSet(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, raw := range values {
		value := normalize(raw)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Status enumerates activation outcomes.
type Status string

const (
	StatusActivated Status = "activated"
	StatusFailed    Status = "failed"
	StatusDisabled  Status = "disabled"
)

// Outcome is the result of attempting one descriptor in one phase.
// Reason is set for failures, ByKey for disabled components.
type Outcome struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	ByKey  string `json:"by_key,omitempty"`
}

// Activated builds an activated outcome for d.
func Activated(d Descriptor) Outcome {
	return Outcome{ID: d.ID, Name: d.Label(), Status: StatusActivated}
}

// Failed builds a failed outcome for d.
func Failed(d Descriptor, reason string) Outcome {
	return Outcome{ID: d.ID, Name: d.Label(), Status: StatusFailed, Reason: reason}
}

// Disabled builds a disabled outcome for d.
func Disabled(d Descriptor, key string) Outcome {
	return Outcome{ID: d.ID, Name: d.Label(), Status: StatusDisabled, ByKey: key}
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusFailed:
		return fmt.Sprintf("%s: failed (%s)", o.ID, o.Reason)
	case StatusDisabled:
		return fmt.Sprintf("%s: disabled by %s", o.ID, o.ByKey)
	default:
		return fmt.Sprintf("%s: %s", o.ID, o.Status)
	}
}

// Host accepts descriptors and the implementations they resolve to.
type Host interface {
	RegisterComponent(Descriptor) error
	Provide(key string, impl any) error
}
