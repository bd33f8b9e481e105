// Package activation runs one lifecycle phase over the component registry,
// capturing each component's result without letting one failure stop the
// rest.
package activation

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/logbook"
)

// ErrReturnedFalse is recorded when an entry point reports false.
var ErrReturnedFalse = errors.New(component.ReasonReturnedFalse)

// Gate decides whether a descriptor may be attempted. The second result is
// the governing setting key when the descriptor is not permitted.
type Gate interface {
	Permitted(component.Descriptor) (bool, string)
}

// Normalizer resolves a descriptor into the entry point to invoke.
type Normalizer interface {
	Normalize(component.Descriptor) component.EntryPoint
}

// GateFunc adapts a function to Gate.
type GateFunc func(component.Descriptor) (bool, string)

// Permitted implements Gate.
func (f GateFunc) Permitted(d component.Descriptor) (bool, string) { return f(d) }

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(component.Descriptor) component.EntryPoint

// Normalize implements Normalizer.
func (f NormalizerFunc) Normalize(d component.Descriptor) component.EntryPoint { return f(d) }

// Engine executes phase runs. It keeps no per-run state besides the run
// counter, so one engine may serve every phase of a host.
type Engine struct {
	clock  func() time.Time
	newID  func() string
	logger *logbook.Logbook
	seq    atomic.Uint64
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithIDGenerator overrides how report ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithLogbook routes activation diagnostics to lb.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(e *Engine) {
		e.logger = lb
	}
}

// New builds an engine.
func New(opts ...Option) *Engine {
	engine := &Engine{
		clock: time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// RunPhase attempts every descriptor registered when the run starts, in
// registration order, and returns the completed report. Descriptors that
// entry points register during the run belong to the next run.
func (e *Engine) RunPhase(phase component.Phase, registry *component.Registry, gate Gate, norm Normalizer) *Report {
	var descriptors []component.Descriptor
	if registry != nil {
		descriptors = registry.Snapshot()
	}
	report := newReport(e.newID(), e.seq.Add(1), phase, e.clock(), len(descriptors))
	for _, d := range descriptors {
		report.record(e.attempt(d, gate, norm))
	}
	report.FinishedAt = e.clock()
	e.logger.Info("activation: %s run %d finished: %d activated, %d failed, %d disabled",
		phase, report.Seq, len(report.Activated), len(report.Failed), len(report.Disabled))
	return report
}

func (e *Engine) attempt(d component.Descriptor, gate Gate, norm Normalizer) component.Outcome {
	if gate != nil {
		ok, key, err := permitted(d, gate)
		if err != nil && key == "" {
			e.logger.Warn("activation: %s gate failed: %v", d.ID, err)
			return component.Failed(d, "gate: "+err.Error())
		}
		if err != nil {
			e.logger.Warn("activation: %s gate failed, treating as disabled by %s: %v", d.ID, key, err)
			return component.Disabled(d, key)
		}
		if !ok {
			e.logger.Debug("activation: %s disabled by %s", d.ID, key)
			return component.Disabled(d, key)
		}
	}
	ok, err := invoke(d, norm)
	if err == nil && !ok {
		err = ErrReturnedFalse
	}
	if err != nil {
		e.logger.Warn("activation: %s failed: %v", d.ID, err)
		return component.Failed(d, err.Error())
	}
	e.logger.Debug("activation: %s activated", d.ID)
	return component.Activated(d)
}

// permitted consults gate and converts a panic into an error, reporting the
// descriptor's first setting key as the one that failed closed.
func permitted(d component.Descriptor, gate Gate) (ok bool, key string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ok = false
			key = ""
			if len(d.SettingKeys) > 0 {
				key = d.SettingKeys[0]
			}
			err = panicError{value: recovered}
		}
	}()
	ok, key = gate.Permitted(d)
	return ok, key, nil
}

// invoke resolves and runs the entry point inside one recover boundary.
func invoke(d component.Descriptor, norm Normalizer) (ok bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ok = false
			err = panicError{value: recovered}
		}
	}()
	entry := d.EntryPoint
	if norm != nil {
		entry = norm.Normalize(d)
	}
	if entry == nil {
		return false, errors.New(component.ReasonNotFound)
	}
	return entry()
}

type panicError struct {
	value any
}

func (p panicError) Error() string {
	return fmt.Sprint(p.value)
}
