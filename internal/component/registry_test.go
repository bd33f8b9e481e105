package component

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegisterRejectsEmptyID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Descriptor{ID: "   "}); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegisterGetAndMissing(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Descriptor{ID: " chat ", DisplayName: "Chat"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := r.Get("chat")
	if !ok || got.ID != "chat" || got.Label() != "Chat" {
		t.Fatalf("unexpected descriptor: ok=%v %+v", ok, got)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected missing descriptor")
	}
}

func TestReplaceKeepsPositionAndSupersedesEntryPoint(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Descriptor{ID: "a", EntryPoint: func() (bool, error) { return false, nil }})
	r.MustRegister(Descriptor{ID: "b"})
	r.MustRegister(Descriptor{ID: "c"})
	r.MustRegister(Descriptor{ID: "a", DisplayName: "Alpha", EntryPoint: func() (bool, error) { return true, nil }})

	var ids []string
	for d := range r.All() {
		ids = append(ids, d.ID)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("order changed: got %v want %v", ids, want)
	}
	got, _ := r.Get("a")
	if got.Label() != "Alpha" {
		t.Fatalf("expected replacement descriptor, got %+v", got)
	}
	ok, err := got.EntryPoint()
	if err != nil || !ok {
		t.Fatalf("expected replacement entry point, got ok=%v err=%v", ok, err)
	}
	if r.Version() != 4 {
		t.Fatalf("expected version 4, got %d", r.Version())
	}
}

func TestAllIsRestartableAndStopsEarly(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"x", "y", "z"} {
		r.MustRegister(Descriptor{ID: id})
	}
	count := 0
	for range r.All() {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("expected early stop at 2, got %d", count)
	}
	total := 0
	for range r.All() {
		total++
	}
	if total != 3 {
		t.Fatalf("expected restarted iteration to see 3, got %d", total)
	}
}

func TestNormalizedDedupesTokensAndKeys(t *testing.T) {
	d := Descriptor{
		ID:            "dice",
		CommandTokens: []string{"/Roll", "roll", " !r ", ""},
		SettingKeys:   []string{"dice.enabled", " dice.enabled ", "dice.fancy"},
	}.Normalized()
	if want := []string{"roll", "r"}; !reflect.DeepEqual(d.CommandTokens, want) {
		t.Fatalf("tokens: got %v want %v", d.CommandTokens, want)
	}
	if want := []string{"dice.enabled", "dice.fancy"}; !reflect.DeepEqual(d.SettingKeys, want) {
		t.Fatalf("keys: got %v want %v", d.SettingKeys, want)
	}
}

func TestNormalizedKeepsBlankFirstKey(t *testing.T) {
	d := Descriptor{ID: "a", SettingKeys: []string{" ", "x", "", "x"}}.Normalized()
	if want := []string{"", "x"}; !reflect.DeepEqual(d.SettingKeys, want) {
		t.Fatalf("keys: got %q want %q", d.SettingKeys, want)
	}
	if d := (Descriptor{ID: "b", SettingKeys: []string{"", ""}}).Normalized(); !reflect.DeepEqual(d.SettingKeys, []string{""}) {
		t.Fatalf("expected a single blank key, got %q", d.SettingKeys)
	}
}

func TestLookupKeyFallsBackToID(t *testing.T) {
	if key := (Descriptor{ID: "echo"}).LookupKey(); key != "echo" {
		t.Fatalf("expected id fallback, got %q", key)
	}
	if key := (Descriptor{ID: "echo", Target: "echo-v2"}).LookupKey(); key != "echo-v2" {
		t.Fatalf("expected target, got %q", key)
	}
}

func TestPhaseIndex(t *testing.T) {
	if PhaseEarlyInit.Index() != 0 || PhaseSetup.Index() != 1 || PhaseReady.Index() != 2 {
		t.Fatalf("unexpected phase order")
	}
	if Phase("teardown").Index() != -1 {
		t.Fatalf("unknown phase must report -1")
	}
}
