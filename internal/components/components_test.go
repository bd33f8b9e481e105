package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/orchestrator"
	"github.com/kingrea/switchboard/internal/router"
	"github.com/kingrea/switchboard/internal/settings"
)

func startHost(t *testing.T, store settings.Store, disabled []string) *orchestrator.Orchestrator {
	t.Helper()
	o, err := orchestrator.New(orchestrator.WithStore(store))
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	o.OnPhase(component.PhaseEarlyInit, func(o *orchestrator.Orchestrator) error {
		return RegisterBuiltins(o, disabled, nil)
	})
	for _, emit := range []func() error{o.OnEarlyInit, o.OnSetup, o.OnReady} {
		if err := emit(); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}
	return o
}

func TestBuiltinsRespectSettings(t *testing.T) {
	o := startHost(t, settings.MapStore{"roll.enabled": true}, nil)
	status := o.Status()
	if status.Counts.Total != 3 {
		t.Fatalf("expected three builtins, got %+v", status.Counts)
	}
	if !o.IsActive("echo") || !o.IsActive("roll") {
		t.Fatalf("expected echo and roll active: %+v", status)
	}
	outcome, err := o.Query("motd")
	if err != nil || outcome.Status != component.StatusDisabled || outcome.ByKey != "motd.enabled" {
		t.Fatalf("expected motd disabled by motd.enabled, got %+v %v", outcome, err)
	}
	if _, err := o.DispatchCommand("motd"); !errors.Is(err, router.ErrCommandNotFound) {
		t.Fatalf("expected motd fenced, got %v", err)
	}
	out, err := o.DispatchCommand("echo", "ping")
	if err != nil || out != "ping" {
		t.Fatalf("echo dispatch: %q %v", out, err)
	}
	out, err = o.DispatchCommand("!roll", "2d6")
	if err != nil || !strings.HasPrefix(out, "2d6: ") {
		t.Fatalf("roll dispatch: %q %v", out, err)
	}
}

func TestBuiltinsDisabledList(t *testing.T) {
	o := startHost(t, settings.MapStore{}, []string{"roll", "motd"})
	ids := []string{}
	for _, d := range o.Components() {
		ids = append(ids, d.ID)
	}
	if strings.Join(ids, ",") != "echo" {
		t.Fatalf("expected only echo registered, got %v", ids)
	}
}

func TestBuiltinsUnknownDisabledID(t *testing.T) {
	o, _ := orchestrator.New()
	err := RegisterBuiltins(o, []string{"nope", "echo"}, nil)
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected unknown id error, got %v", err)
	}
	if len(o.Components()) != 2 {
		t.Fatalf("known builtins should still register, got %d", len(o.Components()))
	}
}

func TestIDs(t *testing.T) {
	if got := strings.Join(IDs(), ","); got != "echo,roll,motd" {
		t.Fatalf("unexpected ids %s", got)
	}
}
