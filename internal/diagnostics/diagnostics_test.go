package diagnostics

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kingrea/switchboard/internal/activation"
	"github.com/kingrea/switchboard/internal/component"
)

func sampleReport() *activation.Report {
	reg := component.NewRegistry()
	reg.MustRegister(component.Descriptor{ID: "A", DisplayName: "Alpha", EntryPoint: func() (bool, error) { return true, nil }})
	reg.MustRegister(component.Descriptor{ID: "B", SettingKeys: []string{"b.enabled"}})
	reg.MustRegister(component.Descriptor{ID: "C", EntryPoint: func() (bool, error) { return false, errors.New("boom") }})
	reg.MustRegister(component.Descriptor{ID: "D"})
	gate := activation.GateFunc(func(d component.Descriptor) (bool, string) {
		if len(d.SettingKeys) > 0 {
			return false, d.SettingKeys[0]
		}
		return true, ""
	})
	engine := activation.New(activation.WithIDGenerator(func() string { return "r1" }))
	return engine.RunPhase(component.PhaseReady, reg, gate, nil)
}

func TestSummarizeSeparatesDisabledFromFailed(t *testing.T) {
	summary := Summarize(sampleReport())
	if summary.Counts != (Counts{Total: 4, Activated: 1, Failed: 2, Disabled: 1}) {
		t.Fatalf("unexpected counts: %+v", summary.Counts)
	}
	if len(summary.ActivatedNames) != 1 || summary.ActivatedNames[0] != "Alpha" {
		t.Fatalf("expected display name Alpha, got %v", summary.ActivatedNames)
	}
	if len(summary.Gated) != 1 || summary.Gated[0].Key != "b.enabled" {
		t.Fatalf("expected B gated by b.enabled, got %+v", summary.Gated)
	}
	reasons := map[string]string{}
	for _, f := range summary.Failures {
		reasons[f.ID] = f.Reason
		if f.Hint == "" {
			t.Fatalf("expected remediation hint for %s", f.ID)
		}
	}
	if reasons["C"] != "boom" || reasons["D"] != component.ReasonNotFound {
		t.Fatalf("unexpected failure reasons: %v", reasons)
	}
}

func TestSummarizeNilReportIsEmpty(t *testing.T) {
	summary := Summarize(nil)
	if !summary.Empty() || summary.Counts.Total != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
	if !strings.Contains(Render(summary, RenderOptions{}), "No activation") {
		t.Fatalf("expected empty render notice")
	}
}

func TestQuery(t *testing.T) {
	report := sampleReport()
	outcome, err := Query(report, "C")
	if err != nil || outcome.Reason != "boom" {
		t.Fatalf("expected C failure, got %+v %v", outcome, err)
	}
	if _, err := Query(report, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := Query(nil, "A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no report, got %v", err)
	}
}

func TestJSONShape(t *testing.T) {
	data, err := JSON(Summarize(sampleReport()))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["report_id"] != "r1" {
		t.Fatalf("expected report_id r1, got %v", decoded["report_id"])
	}
	counts, _ := decoded["counts"].(map[string]any)
	if counts["failed"] != float64(2) {
		t.Fatalf("expected failed=2, got %v", counts["failed"])
	}
}

func TestRenderPlain(t *testing.T) {
	out := Render(Summarize(sampleReport()), RenderOptions{Hints: true})
	for _, want := range []string{"ACTIVATED Alpha", "FAILED C: boom", "DISABLED B (off by b.enabled)", "logbook"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRemediationForDisabled(t *testing.T) {
	hint := Remediation(component.Outcome{Status: component.StatusDisabled, ByKey: "roll.enabled"})
	if hint != "set roll.enabled: true to enable" {
		t.Fatalf("unexpected hint %q", hint)
	}
	if hint := Remediation(component.Outcome{Status: component.StatusDisabled}); !strings.Contains(hint, "blank") {
		t.Fatalf("unexpected blank-key hint %q", hint)
	}
	if Remediation(component.Outcome{Status: component.StatusActivated}) != "" {
		t.Fatalf("activated outcomes need no hint")
	}
}
