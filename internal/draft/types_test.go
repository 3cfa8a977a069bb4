package draft

import (
	"fmt"
	"testing"
	"time"
)

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusDraft, false},
		{StatusInReview, false},
		{StatusApproved, false},
		{StatusRejected, true},
		{StatusSkipped, false}, // soft-terminal: re-enters review
		{StatusScheduled, false},
		{StatusPublished, true},
		{StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestGateResult_AddEvidence_Cap(t *testing.T) {
	var r GateResult
	for i := 0; i < MaxEvidenceEntries+5; i++ {
		r.AddEvidence(fmt.Sprintf("signal_%d", i), "value")
	}

	if len(r.Evidence) != MaxEvidenceEntries {
		t.Errorf("Expected evidence capped at %d entries, got %d", MaxEvidenceEntries, len(r.Evidence))
	}
}

func TestGateResult_AddEvidence_OverwriteExisting(t *testing.T) {
	var r GateResult
	for i := 0; i < MaxEvidenceEntries; i++ {
		r.AddEvidence(fmt.Sprintf("signal_%d", i), "old")
	}

	// Overwriting an existing key works even at the cap.
	r.AddEvidence("signal_0", "new")
	if r.Evidence["signal_0"] != "new" {
		t.Errorf("Expected existing key to be overwritten, got %q", r.Evidence["signal_0"])
	}
}

func TestNew_Defaults(t *testing.T) {
	d := New("client-1", "linkedin", "text", "hello world")

	if d.ID == "" {
		t.Error("New should assign an ID")
	}
	if d.Status != StatusDraft {
		t.Errorf("Expected initial status %s, got %s", StatusDraft, d.Status)
	}
	if d.GateStatus != GatePending {
		t.Errorf("Expected gate status %s, got %s", GatePending, d.GateStatus)
	}
}

func TestContentDraft_Clone_Independence(t *testing.T) {
	hint := time.Now().Add(time.Hour)
	d := New("client-1", "linkedin", "text", "original")
	d.PublishHint = &hint
	d.ResearchRefs = []string{"ref-1"}
	d.RegenerationGuidance = []string{"less jargon"}
	d.GateReport = &QualityReport{
		Results: []GateResult{{
			Gate:     "brand_safety",
			Outcome:  OutcomePass,
			Evidence: map[string]string{"competitors_checked": "3"},
			Attempts: 1,
		}},
		Passed: true,
	}

	cp := d.Clone()
	cp.Copy = "mutated"
	cp.ResearchRefs[0] = "mutated"
	cp.RegenerationGuidance[0] = "mutated"
	cp.GateReport.Results[0].Evidence["competitors_checked"] = "mutated"
	*cp.PublishHint = time.Time{}

	if d.Copy != "original" {
		t.Error("Clone should not share the copy field")
	}
	if d.ResearchRefs[0] != "ref-1" {
		t.Error("Clone should not share research refs")
	}
	if d.RegenerationGuidance[0] != "less jargon" {
		t.Error("Clone should not share regeneration guidance")
	}
	if d.GateReport.Results[0].Evidence["competitors_checked"] != "3" {
		t.Error("Clone should not share gate report evidence")
	}
	if d.PublishHint.IsZero() {
		t.Error("Clone should not share the publish hint pointer")
	}
}
