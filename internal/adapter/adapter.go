// Package adapter normalizes component implementations into the uniform
// entry point the activation engine invokes.
//
// An implementation is any value provided to the Catalog. Which
// capabilities it carries decides how it is activated:
//   - Activator: its Activate method is the entry point.
//   - CommandProvider / PhaseListener only: a shim registers the listeners
//     and reports success.
//   - absent: the entry point fails with ErrComponentNotFound.
package adapter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/logbook"
)

// ErrComponentNotFound is reported when no implementation is provided for a
// descriptor's lookup key.
var ErrComponentNotFound = errors.New(component.ReasonNotFound)

// Activator is implemented by components with their own initializer.
type Activator interface {
	Activate() (bool, error)
}

// CommandProvider is implemented by components that answer commands.
type CommandProvider interface {
	Commands() map[string]component.CommandHandler
}

// PhaseListener is implemented by components that react to lifecycle
// phases after they are activated.
type PhaseListener interface {
	PhaseHooks() map[component.Phase]component.Hook
}

// ListenerSink receives command listeners registered during activation.
type ListenerSink interface {
	Bind(owner, token string, handler component.CommandHandler) error
	Clear(owner string)
}

// HookSink receives phase hooks registered during activation.
type HookSink interface {
	AddHook(owner string, phase component.Phase, hook component.Hook)
	ClearHooks(owner string)
}

// Catalog maps lookup keys to component implementations.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: map[string]any{}}
}

// Provide installs impl under key, replacing any previous implementation.
func (c *Catalog) Provide(key string, impl any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("adapter: implementation key is required")
	}
	if impl == nil {
		return fmt.Errorf("adapter: implementation for %s is nil", key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = impl
	return nil
}

// Lookup returns the implementation registered under key.
func (c *Catalog) Lookup(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	impl, ok := c.items[strings.TrimSpace(key)]
	return impl, ok
}

// Adapter resolves descriptors into entry points.
type Adapter struct {
	catalog   *Catalog
	listeners ListenerSink
	hooks     HookSink
	logger    *logbook.Logbook
}

// Option customizes Adapter construction.
type Option func(*Adapter)

// WithListeners routes command listeners into sink.
func WithListeners(sink ListenerSink) Option {
	return func(a *Adapter) {
		a.listeners = sink
	}
}

// WithHooks routes phase hooks into sink.
func WithHooks(sink HookSink) Option {
	return func(a *Adapter) {
		a.hooks = sink
	}
}

// WithLogbook injects a logbook for shim diagnostics.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(a *Adapter) {
		a.logger = lb
	}
}

// New builds an adapter over catalog.
func New(catalog *Catalog, opts ...Option) *Adapter {
	a := &Adapter{catalog: catalog}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Normalize returns the entry point for d. It never returns nil.
func (a *Adapter) Normalize(d component.Descriptor) component.EntryPoint {
	impl, found := a.catalog.Lookup(d.LookupKey())
	if d.EntryPoint != nil {
		return a.native(d, d.EntryPoint, impl)
	}
	if !found {
		a.logger.Debug("adapter: no implementation provided for %s (key %s)", d.ID, d.LookupKey())
		return notFound
	}
	if activator, ok := impl.(Activator); ok {
		return a.native(d, activator.Activate, impl)
	}
	return a.shim(d, impl)
}

func notFound() (bool, error) {
	return false, ErrComponentNotFound
}

func (a *Adapter) native(d component.Descriptor, entry component.EntryPoint, impl any) component.EntryPoint {
	return func() (bool, error) {
		a.reset(d.ID)
		ok, err := entry()
		if err != nil || !ok {
			return ok, err
		}
		if err := a.attach(d, impl); err != nil {
			a.reset(d.ID)
			return false, err
		}
		return true, nil
	}
}

func (a *Adapter) shim(d component.Descriptor, impl any) component.EntryPoint {
	return func() (bool, error) {
		a.reset(d.ID)
		if err := a.attach(d, impl); err != nil {
			a.reset(d.ID)
			return false, err
		}
		a.logger.Debug("adapter: %s activated through shim", d.ID)
		return true, nil
	}
}

// attach registers the listeners impl exposes. Tokens bind in sorted order
// so conflicts are reported deterministically.
func (a *Adapter) attach(d component.Descriptor, impl any) error {
	if provider, ok := impl.(CommandProvider); ok && a.listeners != nil {
		commands := provider.Commands()
		tokens := make([]string, 0, len(commands))
		for token := range commands {
			tokens = append(tokens, token)
		}
		sort.Strings(tokens)
		for _, token := range tokens {
			handler := commands[token]
			if handler == nil {
				continue
			}
			if err := a.listeners.Bind(d.ID, token, handler); err != nil {
				return err
			}
		}
	}
	if listener, ok := impl.(PhaseListener); ok && a.hooks != nil {
		for phase, hook := range listener.PhaseHooks() {
			if hook == nil {
				continue
			}
			a.hooks.AddHook(d.ID, phase, hook)
		}
	}
	return nil
}

func (a *Adapter) reset(owner string) {
	if a.listeners != nil {
		a.listeners.Clear(owner)
	}
	if a.hooks != nil {
		a.hooks.ClearHooks(owner)
	}
}
