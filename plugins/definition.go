package plugins

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/kingrea/switchboard/internal/component"
)

// ComponentDefinition describes a plugin component loaded from a YAML file
// or a Go source file under the plugins directory.
type ComponentDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string            `json:"version,omitempty" yaml:"version,omitempty"`
	Requires    string            `json:"requires,omitempty" yaml:"requires,omitempty"`
	Target      string            `json:"target,omitempty" yaml:"target,omitempty"`
	Commands    []string          `json:"commands,omitempty" yaml:"commands,omitempty"`
	Settings    []string          `json:"settings,omitempty" yaml:"settings,omitempty"`
	Replies     map[string]string `json:"replies,omitempty" yaml:"replies,omitempty"`
}

// Normalized returns a trimmed copy with canonical command tokens.
func (def ComponentDefinition) Normalized() ComponentDefinition {
	clone := ComponentDefinition{
		ID:          strings.TrimSpace(def.ID),
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Version:     strings.TrimSpace(def.Version),
		Requires:    strings.TrimSpace(def.Requires),
		Target:      strings.TrimSpace(def.Target),
	}
	for _, token := range def.Commands {
		if token = component.NormalizeToken(token); token != "" {
			clone.Commands = append(clone.Commands, token)
		}
	}
	for _, key := range def.Settings {
		if key = strings.TrimSpace(key); key != "" {
			clone.Settings = append(clone.Settings, key)
		}
	}
	if len(def.Replies) > 0 {
		clone.Replies = make(map[string]string, len(def.Replies))
		for token, reply := range def.Replies {
			normalized := component.NormalizeToken(token)
			if normalized == "" {
				continue
			}
			clone.Replies[normalized] = reply
		}
	}
	return clone
}

// Validate checks the semantic rules the schema cannot express.
func (def ComponentDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("plugin: id is required")
	}
	if normalized.Version != "" {
		if _, err := semver.NewVersion(normalized.Version); err != nil {
			return fmt.Errorf("plugin %s: version %q: %w", normalized.ID, normalized.Version, err)
		}
	}
	if normalized.Requires != "" {
		if _, err := semver.NewConstraint(normalized.Requires); err != nil {
			return fmt.Errorf("plugin %s: requires %q: %w", normalized.ID, normalized.Requires, err)
		}
	}
	seen := make(map[string]struct{}, len(normalized.Commands))
	for idx, token := range normalized.Commands {
		if _, exists := seen[token]; exists {
			return fmt.Errorf("plugin %s: commands[%d]: duplicate token %s", normalized.ID, idx, token)
		}
		seen[token] = struct{}{}
	}
	for token := range normalized.Replies {
		if _, declared := seen[token]; !declared {
			return fmt.Errorf("plugin %s: reply for undeclared command %s", normalized.ID, token)
		}
	}
	return nil
}

// Compatible reports whether hostVersion satisfies the requires constraint.
// An empty constraint or host version is always compatible.
func (def ComponentDefinition) Compatible(hostVersion string) (bool, error) {
	requires := strings.TrimSpace(def.Requires)
	hostVersion = strings.TrimSpace(hostVersion)
	if requires == "" || hostVersion == "" {
		return true, nil
	}
	constraint, err := semver.NewConstraint(requires)
	if err != nil {
		return false, fmt.Errorf("plugin %s: requires %q: %w", def.ID, requires, err)
	}
	version, err := semver.NewVersion(hostVersion)
	if err != nil {
		return false, fmt.Errorf("plugin %s: host version %q: %w", def.ID, hostVersion, err)
	}
	return constraint.Check(version), nil
}

// Descriptor converts the definition into a registry descriptor.
func (def ComponentDefinition) Descriptor(source string) component.Descriptor {
	normalized := def.Normalized()
	return component.Descriptor{
		ID:            normalized.ID,
		DisplayName:   normalized.Name,
		CommandTokens: normalized.Commands,
		SettingKeys:   normalized.Settings,
		Target:        normalized.Target,
		Version:       normalized.Version,
		Source:        source,
	}
}

// LookupKey returns the catalog key the definition's implementation uses.
func (def ComponentDefinition) LookupKey() string {
	return def.Descriptor("").LookupKey()
}
