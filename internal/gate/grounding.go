package gate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/research"
	"github.com/copydesk/copydesk/internal/scoring"
)

// claimMarkers are phrasings that present a sentence as a factual
// assertion even without numbers.
var claimMarkers = []string{
	"according to", "research shows", "studies show", "data shows",
	"report", "survey", "found that", "proven", "statistics",
}

// GroundingGate cross-checks factual claims in the copy against the
// draft's tagged research findings. A claim no finding can back above the
// confidence threshold fails the gate.
type GroundingGate struct {
	threshold float64
}

// NewGroundingGate creates a GroundingGate with the given attribution
// confidence threshold in (0,1].
func NewGroundingGate(threshold float64) (*GroundingGate, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, errors.NewValidationError("threshold", "must be in (0,1]").WithValue(threshold)
	}
	return &GroundingGate{threshold: threshold}, nil
}

// Name implements Gate.
func (g *GroundingGate) Name() string { return NameGrounding }

// Evaluate implements Gate. Copy with no detectable claims passes without
// consulting the findings.
func (g *GroundingGate) Evaluate(_ context.Context, d *draft.ContentDraft, ec *Context) (draft.GateResult, error) {
	claims := ExtractClaims(d.Copy)
	if len(claims) == 0 {
		return pass(g.Name()), nil
	}

	for _, claim := range claims {
		confidence, findingID := bestAttribution(claim, ec.Findings)
		if confidence < g.threshold {
			res := fail(g.Name(), fmt.Sprintf("claim cannot be attributed to tagged research: %q", truncate(claim, 80)))
			res.AddEvidence("claim", truncate(claim, 120))
			res.AddEvidence("best_confidence", fmt.Sprintf("%.3f", confidence))
			res.AddEvidence("threshold", fmt.Sprintf("%.3f", g.threshold))
			if findingID != "" {
				res.AddEvidence("nearest_finding", findingID)
			}
			return res, nil
		}
	}

	res := pass(g.Name())
	res.AddEvidence("claims_checked", fmt.Sprintf("%d", len(claims)))
	return res, nil
}

// ExtractClaims returns the sentences of the copy that read as factual
// assertions: sentences carrying digits or a claim marker phrase.
func ExtractClaims(text string) []string {
	var claims []string
	for _, s := range scoring.SplitSentences(text) {
		if isClaim(s) {
			claims = append(claims, s)
		}
	}
	return claims
}

func isClaim(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, marker := range claimMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, r := range sentence {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// bestAttribution scores the claim against every finding: token overlap of
// the claim into the finding text, weighted by the finding's own
// confidence. Returns the best score and the finding that produced it.
func bestAttribution(claim string, findings []research.Finding) (float64, string) {
	claimTokens := contentTokens(claim)
	if len(claimTokens) == 0 {
		return 1, ""
	}

	var best float64
	var bestID string
	for _, f := range findings {
		findingTokens := make(map[string]bool)
		for _, t := range scoring.Tokenize(f.Text) {
			findingTokens[t] = true
		}

		var matched int
		for _, t := range claimTokens {
			if findingTokens[t] {
				matched++
			}
		}

		score := float64(matched) / float64(len(claimTokens)) * f.Confidence
		if score > best {
			best = score
			bestID = f.ID
		}
	}
	return best, bestID
}

// stopWords are excluded from attribution overlap.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "on": true, "for": true,
	"is": true, "are": true, "was": true, "were": true, "that": true,
	"this": true, "with": true, "by": true, "at": true, "it": true,
}

func contentTokens(text string) []string {
	var out []string
	for _, t := range scoring.Tokenize(text) {
		if !stopWords[t] && len(t) > 1 {
			out = append(out, t)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
