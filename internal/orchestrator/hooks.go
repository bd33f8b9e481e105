package orchestrator

import (
	"fmt"
	"sync"

	"github.com/kingrea/switchboard/internal/activation"
	"github.com/kingrea/switchboard/internal/component"
)

// hookTable stores phase hooks registered by activated components. Owners
// fire in the order they first registered a hook.
type hookTable struct {
	mu    sync.RWMutex
	order []string
	hooks map[string]map[component.Phase][]component.Hook
}

func newHookTable() *hookTable {
	return &hookTable{hooks: map[string]map[component.Phase][]component.Hook{}}
}

func (h *hookTable) AddHook(owner string, phase component.Phase, hook component.Hook) {
	if hook == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	byPhase, ok := h.hooks[owner]
	if !ok {
		byPhase = map[component.Phase][]component.Hook{}
		h.hooks[owner] = byPhase
		h.order = append(h.order, owner)
	}
	byPhase[phase] = append(byPhase[phase], hook)
}

func (h *hookTable) ClearHooks(owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.hooks[owner]; !ok {
		return
	}
	delete(h.hooks, owner)
	for idx, id := range h.order {
		if id == owner {
			h.order = append(h.order[:idx], h.order[idx+1:]...)
			break
		}
	}
}

// reset drops every owner's hooks.
func (h *hookTable) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.order = nil
	h.hooks = map[string]map[component.Phase][]component.Hook{}
}

type boundHook struct {
	owner string
	hook  component.Hook
}

// due returns the hooks for phase whose owner is active in report.
func (h *hookTable) due(phase component.Phase, report *activation.Report) []boundHook {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []boundHook
	for _, owner := range h.order {
		if !report.IsActive(owner) {
			continue
		}
		for _, hook := range h.hooks[owner][phase] {
			out = append(out, boundHook{owner: owner, hook: hook})
		}
	}
	return out
}

func (h *hookTable) count(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, hooks := range h.hooks[owner] {
		total += len(hooks)
	}
	return total
}

// runHook executes hook and converts a panic into an error.
func runHook(hook component.Hook) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return hook()
}
