package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/copydesk/copydesk/internal/config"
	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/gate"
	"github.com/copydesk/copydesk/internal/scoring"
	"github.com/copydesk/copydesk/internal/store"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}

	if rootCmd.Use != "copydesk" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "copydesk")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"serve", "status", "config", "pause", "resume", "queue", "approve", "reject", "skip", "edit", "submit"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("Expected subcommand %q not registered", name)
		}
	}
}

func TestLimiterFromConfig(t *testing.T) {
	cfg := config.Default()
	limiter, err := limiterFromConfig(cfg)
	if err != nil {
		t.Fatalf("limiterFromConfig failed: %v", err)
	}

	rules := limiter.Rules()
	if len(rules) != len(cfg.Publish.RateLimits) {
		t.Errorf("Expected %d rules, got %d", len(cfg.Publish.RateLimits), len(rules))
	}
	if got := rules["instagram"].Window; got != 24*time.Hour {
		t.Errorf("Expected 24h instagram window, got %v", got)
	}
	if got := rules["linkedin"].MaxCalls; got != 200 {
		t.Errorf("Expected 200 linkedin calls, got %d", got)
	}
}

func TestStatusOrder_CoversAllStatuses(t *testing.T) {
	if len(statusOrder) != 8 {
		t.Errorf("Expected 8 lifecycle statuses, got %d", len(statusOrder))
	}
	seen := make(map[string]bool)
	for _, s := range statusOrder {
		if seen[string(s)] {
			t.Errorf("Duplicate status %q in display order", s)
		}
		seen[string(s)] = true
	}
}

func TestBuildGates_PipelineOrder(t *testing.T) {
	cfg := config.Default()
	scorer := scoring.NewHeuristicService()

	gates, err := buildGates(cfg, scorer)
	if err != nil {
		t.Fatalf("buildGates failed: %v", err)
	}

	want := []string{
		gate.NameSensitivity, gate.NameVoice, gate.NamePlagiarism,
		gate.NameAIPattern, gate.NameGrounding, gate.NameBrandSafety,
	}
	if len(gates) != len(want) {
		t.Fatalf("Expected %d gates, got %d", len(want), len(gates))
	}
	for i, g := range gates {
		if g.Name() != want[i] {
			t.Errorf("gate[%d] = %q, want %q", i, g.Name(), want[i])
		}
	}
}

func TestBuildGateContext(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	s := store.NewMemoryStore()
	scorer := scoring.NewHeuristicService()

	// Published history for the client becomes the voice and originality
	// corpus; another client's drafts stay out of it.
	published := draft.New("c-1", "linkedin", "post", "We shipped the quarterly report today. Numbers are up across the board.")
	published.Status = draft.StatusPublished
	other := draft.New("c-2", "linkedin", "post", "Unrelated client content.")
	other.Status = draft.StatusPublished
	for _, d := range []*draft.ContentDraft{published, other} {
		if err := s.SaveDraft(ctx, d); err != nil {
			t.Fatalf("SaveDraft failed: %v", err)
		}
	}

	article := filepath.Join(t.TempDir(), "report.html")
	html := `<html><head><title>Quarterly Report</title></head><body><article>
<p>Revenue grew twelve percent over the prior quarter according to the filing.</p>
</article></body></html>`
	if err := os.WriteFile(article, []byte(html), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	d := draft.New("c-1", "linkedin", "post", "fresh copy")
	d.ResearchRefs = []string{article}

	ec, err := buildGateContext(ctx, s, cfg, scorer, d)
	if err != nil {
		t.Fatalf("buildGateContext failed: %v", err)
	}

	if len(ec.PriorContent) != 1 || ec.PriorContent[0].DraftID != published.ID {
		t.Errorf("Expected only the client's published draft as prior content, got %d", len(ec.PriorContent))
	}
	if ec.Baseline == nil || ec.Baseline.Samples != 1 {
		t.Errorf("Expected baseline over 1 sample, got %+v", ec.Baseline)
	}
	if ec.Index == nil || ec.Index.Len() != 1 {
		t.Error("Expected one indexed prior post")
	}
	if len(ec.Findings) == 0 {
		t.Error("Expected findings extracted from the research article")
	}
}

func TestBuildGateContext_NoHistoryNoResearch(t *testing.T) {
	ctx := context.Background()
	d := draft.New("c-new", "linkedin", "post", "copy")

	ec, err := buildGateContext(ctx, store.NewMemoryStore(), config.Default(), scoring.NewHeuristicService(), d)
	if err != nil {
		t.Fatalf("buildGateContext failed: %v", err)
	}
	if ec.Baseline != nil {
		t.Error("Expected nil baseline for a client without history")
	}
	if len(ec.Findings) != 0 {
		t.Errorf("Expected no findings without research refs, got %d", len(ec.Findings))
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("short", 10); got != "short" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
	if got := excerpt("a very long piece of copy", 10); got != "a very ..." {
		t.Errorf("Expected truncated string, got %q", got)
	}
	if l := len([]rune(excerpt("a very long piece of copy", 10))); l != 10 {
		t.Errorf("Expected 10 runes, got %d", l)
	}
}
