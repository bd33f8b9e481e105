package orchestrator

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/diagnostics"
	"github.com/kingrea/switchboard/internal/eventbus"
	"github.com/kingrea/switchboard/internal/router"
	"github.com/kingrea/switchboard/internal/settings"
)

type greeter struct {
	greeted int
}

func (g *greeter) Commands() map[string]component.CommandHandler {
	return map[string]component.CommandHandler{
		"greet": func(args []string) (string, error) {
			return "hello " + strings.Join(args, " "), nil
		},
	}
}

func (g *greeter) PhaseHooks() map[component.Phase]component.Hook {
	return map[component.Phase]component.Hook{
		component.PhaseReady: func() error {
			g.greeted++
			return nil
		},
	}
}

func newTestOrchestrator(t *testing.T, store settings.Store, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(append([]Option{WithStore(store)}, opts...)...)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

func runPhases(t *testing.T, o *Orchestrator) {
	t.Helper()
	for _, emit := range []func() error{o.OnEarlyInit, o.OnSetup, o.OnReady} {
		if err := emit(); err != nil {
			t.Fatalf("emit phase: %v", err)
		}
	}
}

func TestExampleScenario(t *testing.T) {
	o := newTestOrchestrator(t, settings.MapStore{"b.enabled": false})
	mustRegister(t, o, component.Descriptor{ID: "A", CommandTokens: []string{"a"}, EntryPoint: func() (bool, error) { return true, nil }})
	mustRegister(t, o, component.Descriptor{ID: "B", SettingKeys: []string{"b.enabled"}, EntryPoint: func() (bool, error) { return true, nil }})
	mustRegister(t, o, component.Descriptor{ID: "C", EntryPoint: func() (bool, error) { return false, errors.New("boom") }})
	runPhases(t, o)

	status := o.Status()
	if strings.Join(status.ActivatedNames, ",") != "A" || strings.Join(status.DisabledNames, ",") != "B" {
		t.Fatalf("unexpected buckets: %+v", status)
	}
	if len(status.Failures) != 1 || status.Failures[0].Reason != "boom" {
		t.Fatalf("expected C failure with boom, got %+v", status.Failures)
	}
	if !o.IsActive("A") || o.IsActive("B") || o.IsActive("C") {
		t.Fatalf("unexpected IsActive results")
	}
	if _, err := o.DispatchCommand("a"); !errors.Is(err, router.ErrCommandNotFound) {
		t.Fatalf("A declared a token without a handler, expected not found, got %v", err)
	}
}

func TestStatusBeforeReadyIsEmpty(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	mustRegister(t, o, component.Descriptor{ID: "A"})
	if !o.Status().Empty() || o.IsActive("A") || o.Report() != nil {
		t.Fatalf("expected no report before ready")
	}
	if _, err := o.Query("A"); !errors.Is(err, diagnostics.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before ready, got %v", err)
	}
}

func TestPhaseOrderEnforced(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	if err := o.OnReady(); !errors.Is(err, ErrPhaseOrder) {
		t.Fatalf("expected ErrPhaseOrder for ready first, got %v", err)
	}
	if err := o.OnEarlyInit(); err != nil {
		t.Fatalf("early init: %v", err)
	}
	if err := o.OnEarlyInit(); !errors.Is(err, ErrPhaseOrder) {
		t.Fatalf("expected ErrPhaseOrder for repeated early-init, got %v", err)
	}
	if o.Phase() != component.PhaseEarlyInit {
		t.Fatalf("expected early-init, got %q", o.Phase())
	}
	if _, err := o.Reactivate(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestPhaseListenersPopulateRegistry(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	var seen []component.Phase
	o.OnPhase(component.PhaseEarlyInit, func(o *Orchestrator) error {
		seen = append(seen, component.PhaseEarlyInit)
		return o.RegisterComponent(component.Descriptor{ID: "early", EntryPoint: func() (bool, error) { return true, nil }})
	})
	o.OnPhase(component.PhaseSetup, func(o *Orchestrator) error {
		seen = append(seen, component.PhaseSetup)
		return errors.New("plugin dir unreadable")
	})
	if err := o.OnEarlyInit(); err != nil {
		t.Fatalf("early init: %v", err)
	}
	if err := o.OnSetup(); err == nil || !strings.Contains(err.Error(), "plugin dir unreadable") {
		t.Fatalf("expected listener error surfaced, got %v", err)
	}
	if err := o.OnReady(); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if len(seen) != 2 || !o.IsActive("early") {
		t.Fatalf("expected listeners to run and early to activate, seen=%v", seen)
	}
}

func TestShimComponentDispatchesAndFiresReadyHook(t *testing.T) {
	o := newTestOrchestrator(t, settings.MapStore{"greeter.enabled": true})
	impl := &greeter{}
	if err := o.Provide("greeter", impl); err != nil {
		t.Fatalf("provide: %v", err)
	}
	mustRegister(t, o, component.Descriptor{ID: "greeter", CommandTokens: []string{"greet"}, SettingKeys: []string{"greeter.enabled"}})
	runPhases(t, o)

	out, err := o.DispatchCommand("/greet", "world")
	if err != nil || out != "hello world" {
		t.Fatalf("dispatch: %q %v", out, err)
	}
	if impl.greeted != 1 {
		t.Fatalf("expected ready hook to fire once, got %d", impl.greeted)
	}
	if tokens := o.Tokens(); len(tokens) != 1 || tokens[0] != "greet" {
		t.Fatalf("expected [greet], got %v", tokens)
	}
	if o.hooks.count("greeter") != 1 {
		t.Fatalf("expected one recorded hook")
	}
}

func TestReactivateIsIdempotent(t *testing.T) {
	o := newTestOrchestrator(t, settings.MapStore{"b.enabled": false})
	impl := &greeter{}
	_ = o.Provide("greeter", impl)
	mustRegister(t, o, component.Descriptor{ID: "greeter"})
	mustRegister(t, o, component.Descriptor{ID: "B", SettingKeys: []string{"b.enabled"}})
	mustRegister(t, o, component.Descriptor{ID: "ghost"})
	runPhases(t, o)
	first := o.Status()

	for i := 0; i < 3; i++ {
		report, err := o.Reactivate()
		if err != nil {
			t.Fatalf("reactivate: %v", err)
		}
		if report != o.Report() {
			t.Fatalf("expected reactivate result to be the current report")
		}
	}
	second := o.Status()
	if strings.Join(first.ActivatedNames, ",") != strings.Join(second.ActivatedNames, ",") ||
		strings.Join(first.FailedNames, ",") != strings.Join(second.FailedNames, ",") ||
		strings.Join(first.DisabledNames, ",") != strings.Join(second.DisabledNames, ",") {
		t.Fatalf("buckets changed across reactivation: %+v vs %+v", first, second)
	}
	if second.Seq != first.Seq+3 {
		t.Fatalf("expected seq to advance by 3, got %d -> %d", first.Seq, second.Seq)
	}
	if o.hooks.count("greeter") != 1 {
		t.Fatalf("expected hooks reset on each activation, got %d", o.hooks.count("greeter"))
	}
	if _, err := o.DispatchCommand("greet"); err != nil {
		t.Fatalf("dispatch after reactivation: %v", err)
	}
}

func TestReactivatePicksUpSettingsChange(t *testing.T) {
	store := settings.MapStore{"b.enabled": false}
	o := newTestOrchestrator(t, store)
	mustRegister(t, o, component.Descriptor{ID: "B", SettingKeys: []string{"b.enabled"}, EntryPoint: func() (bool, error) { return true, nil }})
	runPhases(t, o)
	if o.IsActive("B") {
		t.Fatalf("expected B disabled")
	}
	store["b.enabled"] = true
	if _, err := o.Reactivate(); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if !o.IsActive("B") {
		t.Fatalf("expected B active after settings change")
	}
}

func TestReactivateReleasesTokensOfDisabledOwner(t *testing.T) {
	store := settings.MapStore{"a.on": true, "b.on": false}
	o := newTestOrchestrator(t, store)
	first, second := &greeter{}, &greeter{}
	_ = o.Provide("a", first)
	_ = o.Provide("b", second)
	mustRegister(t, o, component.Descriptor{ID: "a", SettingKeys: []string{"a.on"}})
	mustRegister(t, o, component.Descriptor{ID: "b", SettingKeys: []string{"b.on"}})
	runPhases(t, o)
	if !o.IsActive("a") || o.IsActive("b") {
		t.Fatalf("unexpected first run: %+v", o.Report().Outcomes)
	}

	store["a.on"], store["b.on"] = false, true
	if _, err := o.Reactivate(); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if outcome, _ := o.Query("b"); outcome.Status != component.StatusActivated {
		t.Fatalf("expected b to claim greet after a was disabled, got %s", outcome)
	}
	if o.hooks.count("a") != 0 || o.hooks.count("b") != 1 {
		t.Fatalf("expected hooks of disabled a dropped, got a=%d b=%d", o.hooks.count("a"), o.hooks.count("b"))
	}
	if _, owner, ok := o.handlers.Lookup("greet"); !ok || owner != "b" {
		t.Fatalf("expected greet bound to b, got %q %v", owner, ok)
	}
	if out, err := o.DispatchCommand("greet", "there"); err != nil || out != "hello there" {
		t.Fatalf("dispatch: %q %v", out, err)
	}
}

func TestPanickingStoreDoesNotAbortActivation(t *testing.T) {
	store := settings.StoreFunc(func(string) (bool, bool) { panic("store exploded") })
	o := newTestOrchestrator(t, store)
	mustRegister(t, o, component.Descriptor{ID: "a", SettingKeys: []string{"a.on"}, EntryPoint: func() (bool, error) { return true, nil }})
	mustRegister(t, o, component.Descriptor{ID: "b", EntryPoint: func() (bool, error) { return true, nil }})
	runPhases(t, o)
	if outcome, _ := o.Query("a"); outcome.Status != component.StatusDisabled || outcome.ByKey != "a.on" {
		t.Fatalf("expected a disabled by a.on, got %s", outcome)
	}
	if !o.IsActive("b") {
		t.Fatalf("expected b activated despite the store panic")
	}
}

func TestEntryPointMayUseOrchestrator(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	var reentrant error
	mustRegister(t, o, component.Descriptor{ID: "a", EntryPoint: func() (bool, error) {
		o.OnPhase(component.PhaseReady, func(*Orchestrator) error { return nil })
		_ = o.Phase()
		_, reentrant = o.Reactivate()
		return true, nil
	}})
	for _, emit := range []func() error{o.OnEarlyInit, o.OnSetup} {
		if err := emit(); err != nil {
			t.Fatalf("emit phase: %v", err)
		}
	}
	done := make(chan error, 1)
	go func() { done <- o.OnReady() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ready: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ready phase blocked on an entry point using the orchestrator")
	}
	if !errors.Is(reentrant, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress from a nested reactivate, got %v", reentrant)
	}
	if !o.IsActive("a") {
		t.Fatalf("expected a activated")
	}
	if _, err := o.Reactivate(); err != nil {
		t.Fatalf("reactivate after ready: %v", err)
	}
}

func TestEmergentComponentJoinsNextRun(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	child := &greeter{}
	_ = o.Provide("child", child)
	mustRegister(t, o, component.Descriptor{ID: "parent", EntryPoint: func() (bool, error) {
		return true, o.RegisterComponent(component.Descriptor{ID: "child", CommandTokens: []string{"greet"}})
	}})
	runPhases(t, o)
	if _, err := o.Query("child"); !errors.Is(err, diagnostics.ErrNotFound) {
		t.Fatalf("expected child absent from first run, got %v", err)
	}
	if _, err := o.Reactivate(); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if outcome, err := o.Query("child"); err != nil || outcome.Status != component.StatusActivated {
		t.Fatalf("expected child activated, got %+v %v", outcome, err)
	}
	if _, err := o.DispatchCommand("greet", "again"); err != nil {
		t.Fatalf("expected emergent command dispatch, got %v", err)
	}
}

func TestFailingHookIsIsolated(t *testing.T) {
	o := newTestOrchestrator(t, nil, WithBus(eventbus.New()))
	sub := o.Subscribe(eventbus.AllTopic)
	defer sub.Close()
	_ = o.Provide("panicky", hookOnly(func() error { panic("hook exploded") }))
	_ = o.Provide("steady", &greeter{})
	mustRegister(t, o, component.Descriptor{ID: "panicky"})
	mustRegister(t, o, component.Descriptor{ID: "steady"})
	runPhases(t, o)
	if !o.IsActive("panicky") || !o.IsActive("steady") {
		t.Fatalf("hook failure must not change activation outcomes")
	}
	found := false
	for len(sub.Events) > 0 {
		event := <-sub.Events
		if event.Type == eventbus.TypeError && event.ComponentID == "panicky" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected error event for panicking hook")
	}
}

func TestRegisterEmptyIDFails(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	if err := o.RegisterComponent(component.Descriptor{ID: "  "}); !errors.Is(err, component.ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

type hookOnly func() error

func (h hookOnly) PhaseHooks() map[component.Phase]component.Hook {
	return map[component.Phase]component.Hook{component.PhaseReady: component.Hook(h)}
}

func mustRegister(t *testing.T, o *Orchestrator, d component.Descriptor) {
	t.Helper()
	if err := o.RegisterComponent(d); err != nil {
		t.Fatalf("register %s: %v", d.ID, err)
	}
}
