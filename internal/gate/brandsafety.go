package gate

import (
	"context"
	"fmt"

	"github.com/copydesk/copydesk/internal/draft"
)

// BrandSafetyGate enforces per-client guardrails: no competitor mentions,
// no unverifiable superlatives.
type BrandSafetyGate struct{}

// NewBrandSafetyGate creates a BrandSafetyGate.
func NewBrandSafetyGate() *BrandSafetyGate {
	return &BrandSafetyGate{}
}

// Name implements Gate.
func (g *BrandSafetyGate) Name() string { return NameBrandSafety }

// Evaluate implements Gate. A client with no guardrails passes: brand
// safety is opt-in configuration, not a universal policy.
func (g *BrandSafetyGate) Evaluate(_ context.Context, d *draft.ContentDraft, ec *Context) (draft.GateResult, error) {
	rules := ec.Guardrails
	if rules == nil {
		return pass(g.Name()), nil
	}

	if competitor := rules.FindCompetitor(d.Copy); competitor != "" {
		res := fail(g.Name(), fmt.Sprintf("copy names configured competitor %q", competitor))
		res.AddEvidence("competitor", competitor)
		return res, nil
	}

	if superlative := rules.FindSuperlative(d.Copy); superlative != "" {
		res := fail(g.Name(), fmt.Sprintf("unverifiable superlative %q without supporting evidence", superlative))
		res.AddEvidence("superlative", superlative)
		return res, nil
	}

	return pass(g.Name()), nil
}
