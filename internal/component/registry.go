package component

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
)

// ErrEmptyID is returned when a descriptor is registered without an id.
var ErrEmptyID = errors.New("component: id is required")

// Registry holds descriptors keyed by id in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	items   map[string]Descriptor
	version uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: map[string]Descriptor{}}
}

// Register inserts d or replaces the descriptor with the same id. A
// replaced descriptor keeps its original position.
func (r *Registry) Register(d Descriptor) error {
	normalized := d.Normalized()
	if normalized.ID == "" {
		return ErrEmptyID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[normalized.ID]; !exists {
		r.order = append(r.order, normalized.ID)
	}
	r.items[normalized.ID] = normalized
	r.version++
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(fmt.Errorf("component: register %q: %w", d.ID, err))
	}
}

// Get returns the descriptor registered under id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[strings.TrimSpace(id)]
	return d, ok
}

// All yields descriptors in registration order. Each iteration starts over
// and observes descriptors registered while it runs.
func (r *Registry) All() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		for idx := 0; ; idx++ {
			r.mu.RLock()
			if idx >= len(r.order) {
				r.mu.RUnlock()
				return
			}
			d := r.items[r.order[idx]]
			r.mu.RUnlock()
			if !yield(d) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the current descriptors in registration order.
func (r *Registry) Snapshot() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

// IDs returns registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len reports how many descriptors are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Version increments on every successful Register call.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}
