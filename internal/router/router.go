// Package router maps command tokens to the components that own them and
// dispatches only to components active in the latest activation report.
package router

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kingrea/switchboard/internal/activation"
	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/logbook"
)

// ErrCommandNotFound is returned when a token has no active owner.
var ErrCommandNotFound = errors.New("router: command not found")

// Binding maps normalized tokens to owning descriptor ids.
type Binding map[string]string

// ReportSource returns the latest completed activation report, or nil.
type ReportSource func() *activation.Report

type cacheKey struct {
	report   *activation.Report
	registry uint64
	handlers uint64
}

// Router resolves tokens against the registry, handler table and report.
type Router struct {
	registry *component.Registry
	handlers *Handlers
	report   ReportSource
	logger   *logbook.Logbook

	mu      sync.Mutex
	key     cacheKey
	binding Binding
	built   bool
}

// Option customizes Router construction.
type Option func(*Router)

// WithLogbook routes dispatch diagnostics to lb.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(r *Router) {
		r.logger = lb
	}
}

// New wires a router.
func New(registry *component.Registry, handlers *Handlers, report ReportSource, opts ...Option) (*Router, error) {
	if registry == nil {
		return nil, fmt.Errorf("router: registry is required")
	}
	if handlers == nil {
		return nil, fmt.Errorf("router: handler table is required")
	}
	if report == nil {
		report = func() *activation.Report { return nil }
	}
	r := &Router{registry: registry, handlers: handlers, report: report}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Binding returns a copy of the current token map.
func (r *Router) Binding() Binding {
	current := r.current()
	out := make(Binding, len(current))
	for token, owner := range current {
		out[token] = owner
	}
	return out
}

// current rebuilds the binding when the registry, the handler table or the
// report changed since the last call.
func (r *Router) current() Binding {
	key := cacheKey{report: r.report(), registry: r.registry.Version(), handlers: r.handlers.Version()}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built && r.key == key {
		return r.binding
	}
	r.binding = r.build()
	r.key = key
	r.built = true
	return r.binding
}

// build applies declared tokens first, first registrant winning, then fills
// gaps with tokens only present in the handler table.
func (r *Router) build() Binding {
	binding := Binding{}
	for d := range r.registry.All() {
		for _, token := range d.CommandTokens {
			if _, taken := binding[token]; !taken {
				binding[token] = d.ID
			}
		}
	}
	for token, owner := range r.handlers.Owners() {
		if _, taken := binding[token]; !taken {
			binding[token] = owner
		}
	}
	return binding
}

// Dispatch runs the handler bound to token. Unknown tokens, inactive owners
// and owners without a registered handler all yield ErrCommandNotFound.
func (r *Router) Dispatch(token string, args ...string) (string, error) {
	normalized := component.NormalizeToken(token)
	owner, ok := r.current()[normalized]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrCommandNotFound, token)
	}
	if !r.report().IsActive(owner) {
		r.logger.Debug("router: %s fenced, owner %s is not active", normalized, owner)
		return "", fmt.Errorf("%w: %s", ErrCommandNotFound, token)
	}
	handler, handlerOwner, ok := r.handlers.Lookup(normalized)
	if !ok || handlerOwner != owner {
		return "", fmt.Errorf("%w: %s", ErrCommandNotFound, token)
	}
	return handler(args)
}

// Tokens lists the tokens that would dispatch right now, sorted.
func (r *Router) Tokens() []string {
	report := r.report()
	var tokens []string
	for token, owner := range r.current() {
		if !report.IsActive(owner) {
			continue
		}
		if _, handlerOwner, ok := r.handlers.Lookup(token); ok && handlerOwner == owner {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)
	return tokens
}
