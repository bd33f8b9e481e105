// Package orchestrator is the public face of the component lifecycle. Hosts
// register descriptors and implementations, emit the lifecycle phases in
// order, and then query status or dispatch commands.
package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kingrea/switchboard/internal/activation"
	"github.com/kingrea/switchboard/internal/adapter"
	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/diagnostics"
	"github.com/kingrea/switchboard/internal/eventbus"
	"github.com/kingrea/switchboard/internal/logbook"
	"github.com/kingrea/switchboard/internal/router"
	"github.com/kingrea/switchboard/internal/settings"
)

var (
	// ErrPhaseOrder is returned when a phase is emitted out of order or twice.
	ErrPhaseOrder = errors.New("orchestrator: phase out of order")
	// ErrNotReady is returned by Reactivate before the ready phase ran.
	ErrNotReady = errors.New("orchestrator: ready phase has not run")
	// ErrRunInProgress is returned by Reactivate while another activation
	// run holds the run lock, including calls made from entry points.
	ErrRunInProgress = errors.New("orchestrator: activation run in progress")
)

// PhaseFunc runs when the host emits a phase. Early phases use it to
// populate the registry.
type PhaseFunc func(*Orchestrator) error

// Orchestrator wires the registry, settings gate, adapter, engine and
// router together. Activation runs are serialized by runMu; mu guards only
// phase and listener state, so entry points may call OnPhase or Phase.
// Queries are lock-free against the latest report.
type Orchestrator struct {
	runMu    sync.Mutex
	mu       sync.Mutex
	phase    int
	onPhase  map[component.Phase][]PhaseFunc
	registry *component.Registry
	catalog  *adapter.Catalog
	handlers *router.Handlers
	hooks    *hookTable
	adapter  *adapter.Adapter
	engine   *activation.Engine
	gate     activation.Gate
	router   *router.Router
	bus      *eventbus.Bus
	logger   *logbook.Logbook
	report   atomic.Pointer[activation.Report]

	store      settings.Store
	engineOpts []activation.Option
}

// Option customizes Orchestrator construction.
type Option func(*Orchestrator)

// WithStore sets the configuration store consulted by the settings gate.
func WithStore(store settings.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithGate replaces the settings gate entirely.
func WithGate(gate activation.Gate) Option {
	return func(o *Orchestrator) {
		o.gate = gate
	}
}

// WithLogbook routes orchestrator, engine and adapter logs to lb.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(o *Orchestrator) {
		o.logger = lb
	}
}

// WithBus publishes lifecycle events to bus.
func WithBus(bus *eventbus.Bus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

// WithEngineOptions forwards options to the activation engine.
func WithEngineOptions(opts ...activation.Option) Option {
	return func(o *Orchestrator) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// New builds an orchestrator with an empty registry.
func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		phase:    -1,
		onPhase:  map[component.Phase][]PhaseFunc{},
		registry: component.NewRegistry(),
		catalog:  adapter.NewCatalog(),
		handlers: router.NewHandlers(),
		hooks:    newHookTable(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.gate == nil {
		o.gate = settings.NewGate(o.store, settings.GateWithLogbook(o.logger.With("settings")))
	}
	o.adapter = adapter.New(o.catalog,
		adapter.WithListeners(o.handlers),
		adapter.WithHooks(o.hooks),
		adapter.WithLogbook(o.logger.With("adapter")),
	)
	engineOpts := append([]activation.Option{activation.WithLogbook(o.logger.With("activation"))}, o.engineOpts...)
	o.engine = activation.New(engineOpts...)
	r, err := router.New(o.registry, o.handlers, o.report.Load, router.WithLogbook(o.logger.With("router")))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	o.router = r
	return o, nil
}

// RegisterComponent inserts or replaces a descriptor. Entry points may call
// it during a run; the new descriptor joins the next run.
func (o *Orchestrator) RegisterComponent(d component.Descriptor) error {
	if err := o.registry.Register(d); err != nil {
		return fmt.Errorf("orchestrator: register %q: %w", d.ID, err)
	}
	o.logger.Debug("orchestrator: registered %s", d.ID)
	return nil
}

// Provide installs the implementation a descriptor's lookup key resolves to.
func (o *Orchestrator) Provide(key string, impl any) error {
	return o.catalog.Provide(key, impl)
}

// OnPhase adds fn to the listeners of phase. Listeners run in the order
// they were added.
func (o *Orchestrator) OnPhase(phase component.Phase, fn PhaseFunc) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onPhase[phase] = append(o.onPhase[phase], fn)
}

// OnEarlyInit emits the early-init phase.
func (o *Orchestrator) OnEarlyInit() error {
	return o.emit(component.PhaseEarlyInit)
}

// OnSetup emits the setup phase.
func (o *Orchestrator) OnSetup() error {
	return o.emit(component.PhaseSetup)
}

// OnReady emits the ready phase, running activation over the registry.
func (o *Orchestrator) OnReady() error {
	return o.emit(component.PhaseReady)
}

func (o *Orchestrator) emit(phase component.Phase) error {
	o.mu.Lock()
	if want := o.phase + 1; phase.Index() != want {
		last := o.phaseName()
		o.mu.Unlock()
		return fmt.Errorf("%w: %s after %s", ErrPhaseOrder, phase, last)
	}
	o.phase = phase.Index()
	listeners := append([]PhaseFunc(nil), o.onPhase[phase]...)
	o.mu.Unlock()

	o.logger.Info("orchestrator: phase %s", phase)
	o.bus.Publish(eventbus.Event{Type: eventbus.TypePhase, Phase: phase})

	var errs []error
	for _, fn := range listeners {
		if err := fn(o); err != nil {
			o.logger.Warn("orchestrator: %s listener failed: %v", phase, err)
			o.bus.Publish(eventbus.Event{Type: eventbus.TypeError, Phase: phase, Detail: err.Error()})
			errs = append(errs, err)
		}
	}
	if phase == component.PhaseReady {
		o.runMu.Lock()
		o.activate()
		o.runMu.Unlock()
	}
	if len(errs) > 0 {
		return fmt.Errorf("orchestrator: %s: %w", phase, errors.Join(errs...))
	}
	return nil
}

func (o *Orchestrator) phaseName() string {
	if o.phase < 0 {
		return "start"
	}
	return string(component.Phases[o.phase])
}

// Reactivate runs activation again over the current registry. It requires
// the ready phase and yields identical buckets when nothing changed. It does
// not wait for a run in progress: calls made while one runs, from entry
// points and ready hooks included, return ErrRunInProgress.
func (o *Orchestrator) Reactivate() (*activation.Report, error) {
	o.mu.Lock()
	ready := o.phase >= component.PhaseReady.Index()
	o.mu.Unlock()
	if !ready {
		return nil, ErrNotReady
	}
	if !o.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.runMu.Unlock()
	return o.activate(), nil
}

// activate clears the listeners and hooks left by the previous run, runs
// the engine, swaps in the report, then fires ready hooks of the components
// that activated. The caller holds runMu.
func (o *Orchestrator) activate() *activation.Report {
	o.handlers.Reset()
	o.hooks.reset()
	report := o.engine.RunPhase(component.PhaseReady, o.registry, o.gate, o.adapter)
	o.report.Store(report)

	for _, outcome := range report.Outcomes {
		o.bus.Publish(eventbus.OutcomeEvent(report.ID, report.Phase, outcome))
	}
	o.bus.Publish(eventbus.Event{
		Type:     eventbus.TypeReport,
		Phase:    report.Phase,
		ReportID: report.ID,
		Detail: fmt.Sprintf("%d activated, %d failed, %d disabled",
			len(report.Activated), len(report.Failed), len(report.Disabled)),
	})
	for _, bound := range o.hooks.due(component.PhaseReady, report) {
		if err := runHook(bound.hook); err != nil {
			o.logger.Warn("orchestrator: ready hook for %s failed: %v", bound.owner, err)
			o.bus.Publish(eventbus.Event{
				Type:        eventbus.TypeError,
				Phase:       component.PhaseReady,
				ComponentID: bound.owner,
				Detail:      err.Error(),
			})
		}
	}
	return report
}

// Phase returns the last phase emitted, or "" before early-init.
func (o *Orchestrator) Phase() component.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase < 0 {
		return ""
	}
	return component.Phases[o.phase]
}

// Report returns the latest completed report, or nil before activation.
func (o *Orchestrator) Report() *activation.Report {
	return o.report.Load()
}

// Status summarizes the latest report.
func (o *Orchestrator) Status() diagnostics.Summary {
	return diagnostics.Summarize(o.report.Load())
}

// IsActive reports whether id activated in the latest run.
func (o *Orchestrator) IsActive(id string) bool {
	return o.report.Load().IsActive(id)
}

// Query returns id's outcome in the latest run.
func (o *Orchestrator) Query(id string) (component.Outcome, error) {
	return diagnostics.Query(o.report.Load(), id)
}

// DispatchCommand routes token to its active owner.
func (o *Orchestrator) DispatchCommand(token string, args ...string) (string, error) {
	return o.router.Dispatch(token, args...)
}

// Tokens lists the commands that currently dispatch.
func (o *Orchestrator) Tokens() []string {
	return o.router.Tokens()
}

// Components returns the registered descriptors in registration order.
func (o *Orchestrator) Components() []component.Descriptor {
	return o.registry.Snapshot()
}

// Subscribe opens a lifecycle event subscription. It returns a closed
// subscription when no bus is configured.
func (o *Orchestrator) Subscribe(topic string) eventbus.Subscription {
	if o.bus == nil {
		ch := make(chan eventbus.Event)
		close(ch)
		return eventbus.Subscription{Events: ch}
	}
	return o.bus.Subscribe(topic)
}
