// Package host boots a switchboard project: it loads configuration, opens
// the logbook and settings, then drives the orchestrator through its phases
// with builtins registered at early-init and plugins at setup.
package host

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kingrea/switchboard/internal/activation"
	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/components"
	"github.com/kingrea/switchboard/internal/config"
	"github.com/kingrea/switchboard/internal/eventbus"
	"github.com/kingrea/switchboard/internal/logbook"
	"github.com/kingrea/switchboard/internal/orchestrator"
	"github.com/kingrea/switchboard/internal/settings"
	"github.com/kingrea/switchboard/plugins"
)

// Version is the host version checked against plugin requires constraints.
const Version = "0.4.0"

// Options configure Start.
type Options struct {
	ProjectDir string
	// Overrides win over the settings file ("--set key=value").
	Overrides map[string]string
	// LogWriter replaces the log file when set.
	LogWriter io.Writer
	// BeforeReady runs after setup and before the ready phase activates.
	BeforeReady func(*Host) error
}

// Host is a booted project.
type Host struct {
	Config       *config.Config
	Logbook      *logbook.Logbook
	Settings     *settings.FileStore
	Bus          *eventbus.Bus
	Orchestrator *orchestrator.Orchestrator
	Plugins      int
}

// Start loads the project and runs early-init, setup and ready. A host that
// booted but hit listener errors is returned alongside the joined error.
func Start(opts Options) (*Host, error) {
	projectDir := strings.TrimSpace(opts.ProjectDir)
	if projectDir == "" {
		projectDir = "."
	}
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, err
	}
	var lb *logbook.Logbook
	if opts.LogWriter != nil {
		lb = logbook.NewWriter(opts.LogWriter, cfg.LogLevel())
	} else {
		lb, err = logbook.New(cfg.LogPath(), cfg.LogLevel())
		if err != nil {
			return nil, fmt.Errorf("host: %w", err)
		}
	}
	store, err := settings.LoadFile(cfg.SettingsPath())
	if err != nil {
		lb.Close()
		return nil, fmt.Errorf("host: %w", err)
	}
	bus := eventbus.New(eventbus.WithLogger(lb.With("eventbus")))
	layered := settings.Layered{overrideStore(opts.Overrides), store}
	orch, err := orchestrator.New(
		orchestrator.WithStore(layered),
		orchestrator.WithLogbook(lb),
		orchestrator.WithBus(bus),
	)
	if err != nil {
		lb.Close()
		return nil, fmt.Errorf("host: %w", err)
	}
	h := &Host{
		Config:       cfg,
		Logbook:      lb,
		Settings:     store,
		Bus:          bus,
		Orchestrator: orch,
	}
	orch.OnPhase(component.PhaseEarlyInit, func(o *orchestrator.Orchestrator) error {
		return components.RegisterBuiltins(o, cfg.DisabledBuiltins(), lb.With("components"))
	})
	orch.OnPhase(component.PhaseSetup, func(o *orchestrator.Orchestrator) error {
		n, err := plugins.RegisterPlugins(o, cfg.PluginsDir(), plugins.Options{
			HostVersion: Version,
			Logbook:     lb.With("plugins"),
		})
		h.Plugins = n
		return err
	})
	lb.Info("host: starting project %s (settings %s, %d keys)", cfg.ProjectDir, store.Path(), store.Keys())
	var errs []error
	for _, step := range []func() error{orch.OnEarlyInit, orch.OnSetup} {
		if err := step(); err != nil {
			errs = append(errs, err)
		}
	}
	if opts.BeforeReady != nil {
		if err := opts.BeforeReady(h); err != nil {
			errs = append(errs, err)
		}
	}
	if err := orch.OnReady(); err != nil {
		errs = append(errs, err)
	}
	summary := orch.Status()
	lb.Info("host: ready with %d activated, %d failed, %d disabled",
		summary.Counts.Activated, summary.Counts.Failed, summary.Counts.Disabled)
	return h, errors.Join(errs...)
}

// Watch reactivates whenever the settings file changes. onReload receives
// each new report or the reload error.
func (h *Host) Watch(onReload func(*activation.Report, error)) (*settings.Watcher, error) {
	return settings.Watch(h.Settings, func(err error) {
		if err != nil {
			h.Logbook.Warn("host: settings reload failed: %v", err)
			h.Bus.Publish(eventbus.Event{Type: eventbus.TypeError, Detail: err.Error()})
			if onReload != nil {
				onReload(nil, err)
			}
			return
		}
		h.Bus.Publish(eventbus.Event{
			Type:   eventbus.TypeSettings,
			Detail: fmt.Sprintf("%s (%d keys)", h.Settings.Path(), h.Settings.Keys()),
		})
		report, err := h.Orchestrator.Reactivate()
		if err != nil {
			h.Logbook.Warn("host: reactivate after settings change: %v", err)
		}
		if onReload != nil {
			onReload(report, err)
		}
	})
}

// Close releases the logbook.
func (h *Host) Close() error {
	if h == nil {
		return nil
	}
	return h.Logbook.Close()
}

func overrideStore(overrides map[string]string) settings.MapStore {
	store := settings.MapStore{}
	for key, value := range overrides {
		if key = strings.TrimSpace(key); key != "" {
			store[key] = value
		}
	}
	return store
}

// ParseOverride splits a "key=value" pair.
func ParseOverride(raw string) (string, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("host: override %q must be key=value", raw)
	}
	return key, strings.TrimSpace(value), nil
}
