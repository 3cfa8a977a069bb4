// Package gate implements the six quality checks every draft must clear
// before entering the review queue. Each gate is an independent evaluation
// over the draft plus read-only collaborator signals; a failing check is a
// GateResult value, never an error. Errors are reserved for infrastructure
// faults (a scoring service being unreachable, for example).
package gate

import (
	"context"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/research"
	"github.com/copydesk/copydesk/internal/scoring"
)

// Gate names, in pipeline order.
const (
	NameSensitivity = "sensitivity"
	NameVoice       = "voice_alignment"
	NamePlagiarism  = "plagiarism"
	NameAIPattern   = "ai_pattern"
	NameGrounding   = "research_grounding"
	NameBrandSafety = "brand_safety"
)

// Gate is one independent quality check.
type Gate interface {
	// Name returns the gate's stable identifier.
	Name() string

	// Evaluate checks the draft's current state against the signals in
	// ec. The returned result's Attempts field is managed by the
	// pipeline, not the gate.
	Evaluate(ctx context.Context, d *draft.ContentDraft, ec *Context) (draft.GateResult, error)
}

// Topic is one sensitive subject supplied by the context collaborator.
// Copy touching the term must carry one of the acknowledgment phrases.
type Topic struct {
	Term            string   `json:"term" yaml:"term"`
	Acknowledgments []string `json:"acknowledgments" yaml:"acknowledgments"`
}

// Baseline is a client's stylometric profile built from prior approved
// posts. Mean and Std are per-feature over the sample set.
type Baseline struct {
	Samples int
	Mean    scoring.Features
	Std     scoring.Features
}

// PriorPost is one previously published or approved text used for
// originality comparison.
type PriorPost struct {
	DraftID string
	Text    string
}

// Context carries the read-only per-draft signals gates evaluate against.
// The pipeline assembles one Context per run; gates never mutate it.
type Context struct {
	// SensitiveTopics are current local or industry subjects requiring
	// acknowledgment.
	SensitiveTopics []Topic

	// Baseline is the client's voice profile, nil when the client has no
	// approved history yet.
	Baseline *Baseline

	// PriorContent is the client's originality corpus.
	PriorContent []PriorPost

	// Index holds embeddings of the prior content for semantic lookup.
	Index *VectorIndex

	// Findings are the research facts tagged on the draft.
	Findings []research.Finding

	// Guardrails are the client's brand-safety rules.
	Guardrails *Guardrails
}

func pass(name string) draft.GateResult {
	return draft.GateResult{Gate: name, Outcome: draft.OutcomePass}
}

func fail(name, reason string) draft.GateResult {
	return draft.GateResult{Gate: name, Outcome: draft.OutcomeFail, Reason: reason}
}
