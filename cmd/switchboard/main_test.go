package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/eventbus"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := execute(t, "init", "--project", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "Initialized") {
		t.Fatalf("unexpected init output %q", out)
	}
	return dir
}

func TestStatusPlain(t *testing.T) {
	dir := initProject(t)
	out, err := execute(t, "status", "--project", dir)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"ACTIVATED Echo", "DISABLED", "motd.enabled", "Commands:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStatusJSONWithOverride(t *testing.T) {
	dir := initProject(t)
	out, err := execute(t, "status", "--project", dir, "--json", "--set", "motd.enabled=true")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var decoded struct {
		Counts struct {
			Disabled int `json:"disabled"`
		} `json:"counts"`
		Activated []string `json:"activated"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if decoded.Counts.Disabled != 0 || len(decoded.Activated) != 3 {
		t.Fatalf("expected all builtins active, got %+v", decoded)
	}
}

func TestDispatch(t *testing.T) {
	dir := initProject(t)
	out, err := execute(t, "dispatch", "--project", dir, "echo", "hello", "world")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.Contains(out, "hello world") {
		t.Fatalf("unexpected echo output %q", out)
	}
	if _, err := execute(t, "dispatch", "--project", dir, "motd"); err == nil {
		t.Fatalf("expected gated motd to be unroutable")
	}
}

func TestDispatchPluginReply(t *testing.T) {
	dir := initProject(t)
	plugin := "id: greeter\ncommands: [hi]\nreplies:\n  hi: \"{{upper .Text}}\"\n"
	if err := os.WriteFile(filepath.Join(dir, ".switchboard", "plugins", "greeter.yaml"), []byte(plugin), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "dispatch", "--project", dir, "/HI", "there")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if strings.TrimSpace(out) != "THERE" {
		t.Fatalf("unexpected reply %q", out)
	}
}

func TestKeyValueFlag(t *testing.T) {
	kv := keyValueFlag{}
	if err := kv.Set("b=2"); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set("a = 1"); err != nil {
		t.Fatal(err)
	}
	if kv.String() != "a=1, b=2" {
		t.Fatalf("unexpected string %q", kv.String())
	}
	if err := kv.Set("=x"); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	line := formatEvent(eventbus.Event{Type: eventbus.TypeOutcome, Time: at, ComponentID: "motd", Status: component.StatusDisabled, Detail: "motd.enabled"})
	if line != "03:04:05 outcome  motd disabled (motd.enabled)" {
		t.Fatalf("unexpected line %q", line)
	}
}
