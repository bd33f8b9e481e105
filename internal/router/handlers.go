package router

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kingrea/switchboard/internal/component"
)

type handlerEntry struct {
	owner   string
	handler component.CommandHandler
}

// Handlers is the command listener table populated during activation.
// Each token has at most one owner.
type Handlers struct {
	mu      sync.RWMutex
	entries map[string]handlerEntry
	version uint64
}

// NewHandlers returns an empty handler table.
func NewHandlers() *Handlers {
	return &Handlers{entries: map[string]handlerEntry{}}
}

// Bind records handler for token on behalf of owner. Rebinding a token the
// owner already holds replaces the handler.
func (h *Handlers) Bind(owner, token string, handler component.CommandHandler) error {
	token = component.NormalizeToken(token)
	if token == "" {
		return fmt.Errorf("router: command token is required")
	}
	if handler == nil {
		return fmt.Errorf("router: handler for %s is nil", token)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.entries[token]; ok && existing.owner != owner {
		return fmt.Errorf("router: token %s already bound to %s", token, existing.owner)
	}
	h.entries[token] = handlerEntry{owner: owner, handler: handler}
	h.version++
	return nil
}

// Clear drops every handler owned by owner.
func (h *Handlers) Clear(owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := false
	for token, entry := range h.entries {
		if entry.owner == owner {
			delete(h.entries, token)
			removed = true
		}
	}
	if removed {
		h.version++
	}
}

// Reset drops every handler in the table.
func (h *Handlers) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return
	}
	h.entries = map[string]handlerEntry{}
	h.version++
}

// Lookup returns the handler and owner bound to token.
func (h *Handlers) Lookup(token string) (component.CommandHandler, string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.entries[component.NormalizeToken(token)]
	if !ok {
		return nil, "", false
	}
	return entry.handler, entry.owner, true
}

// Owners returns a token to owner copy of the table.
func (h *Handlers) Owners() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]string, len(h.entries))
	for token, entry := range h.entries {
		out[token] = entry.owner
	}
	return out
}

// Tokens returns bound tokens in sorted order.
func (h *Handlers) Tokens() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	tokens := make([]string, 0, len(h.entries))
	for token := range h.entries {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Version increments whenever the table changes.
func (h *Handlers) Version() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}
