package plugins

import (
	"fmt"

	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/logbook"
)

// Loaded is one plugin ready for registration.
type Loaded struct {
	Definition ComponentDefinition
	Path       string
	Impl       any
}

// Options tune plugin registration.
type Options struct {
	// HostVersion is checked against each definition's requires constraint.
	HostVersion string
	Logbook     *logbook.Logbook
}

// Load reads YAML and Go component definitions from dir and rejects ids
// declared by more than one file.
func Load(dir string) ([]Loaded, error) {
	yamlDefs, err := LoadDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	goDefs, err := LoadGoDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Loaded, 0, len(yamlDefs)+len(goDefs))
	for _, file := range yamlDefs {
		var impl any
		if len(file.Definition.Replies) > 0 {
			replies, err := newReplyComponent(file.Definition)
			if err != nil {
				return nil, fmt.Errorf("plugin: %s: %w", file.Path, err)
			}
			impl = replies
		}
		out = append(out, Loaded{Definition: file.Definition, Path: file.Path, Impl: impl})
	}
	for _, file := range goDefs {
		out = append(out, Loaded{Definition: file.Definition, Path: file.Path, Impl: file.Impl})
	}
	seen := make(map[string]string, len(out))
	for _, item := range out {
		if existing, ok := seen[item.Definition.ID]; ok {
			return nil, fmt.Errorf("plugin: duplicate component id %s (%s and %s)", item.Definition.ID, existing, item.Path)
		}
		seen[item.Definition.ID] = item.Path
	}
	return out, nil
}

// RegisterPlugins loads dir and registers every compatible plugin on host.
// It returns the number of components registered. Incompatible plugins are
// skipped and logged.
func RegisterPlugins(host component.Host, dir string, opts Options) (int, error) {
	if host == nil {
		return 0, nil
	}
	loaded, err := Load(dir)
	if err != nil {
		return 0, err
	}
	registered := 0
	for _, item := range loaded {
		def := item.Definition
		ok, err := def.Compatible(opts.HostVersion)
		if err != nil {
			return registered, fmt.Errorf("plugin: %s: %w", item.Path, err)
		}
		if !ok {
			opts.Logbook.Warn("plugin: %s requires %s, host is %s; skipped", def.ID, def.Requires, opts.HostVersion)
			continue
		}
		if item.Impl != nil {
			if err := host.Provide(def.LookupKey(), item.Impl); err != nil {
				return registered, fmt.Errorf("plugin: provide %s from %s: %w", def.ID, item.Path, err)
			}
		}
		if err := host.RegisterComponent(def.Descriptor(item.Path)); err != nil {
			return registered, fmt.Errorf("plugin: register %s from %s: %w", def.ID, item.Path, err)
		}
		opts.Logbook.Info("plugin: registered %s from %s", def.ID, item.Path)
		registered++
	}
	return registered, nil
}
