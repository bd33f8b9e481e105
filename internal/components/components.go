// Package components installs the built-in feature components.
package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/components/echo"
	"github.com/kingrea/switchboard/internal/components/motd"
	"github.com/kingrea/switchboard/internal/components/roll"
	"github.com/kingrea/switchboard/internal/logbook"
)

type builtin struct {
	id       string
	register func(component.Host, *logbook.Logbook) error
}

var builtins = []builtin{
	{id: "echo", register: func(h component.Host, _ *logbook.Logbook) error { return echo.Register(h) }},
	{id: "roll", register: func(h component.Host, _ *logbook.Logbook) error { return roll.Register(h) }},
	{id: "motd", register: func(h component.Host, lb *logbook.Logbook) error {
		return motd.Register(h, motd.WithLogbook(lb))
	}},
}

// IDs lists the built-in component ids in registration order.
func IDs() []string {
	ids := make([]string, 0, len(builtins))
	for _, b := range builtins {
		ids = append(ids, b.id)
	}
	return ids
}

// RegisterBuiltins installs every built-in component except those listed in
// disabled. Unknown ids in disabled are reported as an error after the rest
// are registered.
func RegisterBuiltins(host component.Host, disabled []string, lb *logbook.Logbook) error {
	if host == nil {
		return nil
	}
	skip := map[string]bool{}
	for _, id := range disabled {
		if id = strings.TrimSpace(id); id != "" {
			skip[id] = true
		}
	}
	for _, b := range builtins {
		if skip[b.id] {
			delete(skip, b.id)
			lb.Debug("components: builtin %s skipped by config", b.id)
			continue
		}
		if err := b.register(host, lb); err != nil {
			return fmt.Errorf("components: register %s: %w", b.id, err)
		}
	}
	if len(skip) > 0 {
		unknown := make([]string, 0, len(skip))
		for id := range skip {
			unknown = append(unknown, id)
		}
		sort.Strings(unknown)
		return fmt.Errorf("components: unknown builtin ids in disabled list: %s", strings.Join(unknown, ", "))
	}
	return nil
}
