package gate

import (
	"context"
	"fmt"
	"math"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/scoring"
)

// Confidence levels for a voice-alignment verdict, driven by how much
// approved history backs the baseline.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Baseline sample-size boundaries for confidence classification.
const (
	mediumConfidenceSamples = 5
	highConfidenceSamples   = 20
)

// featureWeights weight the per-feature normalized distances. Sentence
// rhythm and readability dominate perceived voice; POS ratios are noisier.
var featureWeights = [9]float64{
	0.18, // sentence length mean
	0.12, // sentence length std
	0.10, // word length mean
	0.12, // vocabulary richness
	0.07, // noun ratio
	0.07, // verb ratio
	0.06, // adjective ratio
	0.18, // readability
	0.10, // syllables per word
}

// VoiceGate compares a draft's stylometric profile against the client's
// baseline and fails when the alignment score drops below the threshold.
type VoiceGate struct {
	scorer    scoring.Service
	threshold float64
}

// NewVoiceGate creates a VoiceGate. Threshold is the minimum alignment
// score in [0,1]; drafts scoring below it are drift failures.
func NewVoiceGate(scorer scoring.Service, threshold float64) (*VoiceGate, error) {
	if scorer == nil {
		return nil, errors.New("scoring service is required")
	}
	if threshold < 0 || threshold > 1 {
		return nil, errors.NewValidationError("threshold", "must be in [0,1]").WithValue(threshold)
	}
	return &VoiceGate{scorer: scorer, threshold: threshold}, nil
}

// Name implements Gate.
func (g *VoiceGate) Name() string { return NameVoice }

// Evaluate implements Gate. A nil baseline passes with low confidence:
// a new client has no voice to drift from yet.
func (g *VoiceGate) Evaluate(ctx context.Context, d *draft.ContentDraft, ec *Context) (draft.GateResult, error) {
	if ec.Baseline == nil || ec.Baseline.Samples == 0 {
		res := pass(g.Name())
		res.AddEvidence("confidence", ConfidenceLow)
		res.AddEvidence("baseline_samples", "0")
		return res, nil
	}

	features, err := g.scorer.StylometricFeatures(ctx, d.Copy)
	if err != nil {
		return draft.GateResult{}, errors.Wrap(err, "extracting stylometric features")
	}

	score := AlignmentScore(features, ec.Baseline)
	confidence := baselineConfidence(ec.Baseline.Samples)

	if score < g.threshold {
		res := fail(g.Name(), fmt.Sprintf("voice drift: alignment %.2f below threshold %.2f", score, g.threshold))
		res.AddEvidence("alignment_score", fmt.Sprintf("%.3f", score))
		res.AddEvidence("threshold", fmt.Sprintf("%.3f", g.threshold))
		res.AddEvidence("confidence", confidence)
		res.AddEvidence("baseline_samples", fmt.Sprintf("%d", ec.Baseline.Samples))
		return res, nil
	}

	res := pass(g.Name())
	res.AddEvidence("alignment_score", fmt.Sprintf("%.3f", score))
	res.AddEvidence("confidence", confidence)
	return res, nil
}

// AlignmentScore maps the weighted per-feature distance between the draft
// profile and the baseline into [0,1], where 1 is a perfect match. Each
// feature's deviation is normalized by the baseline's spread for that
// feature, so clients with naturally varied styles are not over-penalized.
func AlignmentScore(f scoring.Features, b *Baseline) float64 {
	fv := f.Vector()
	mean := b.Mean.Vector()
	std := b.Std.Vector()

	var distance float64
	for i := range fv {
		spread := std[i]
		if spread < 1e-9 {
			spread = math.Abs(mean[i]) * 0.1
			if spread < 1e-9 {
				spread = 1
			}
		}
		z := math.Abs(fv[i]-mean[i]) / spread
		distance += featureWeights[i] * z
	}

	// Two weighted standard deviations of aggregate drift maps to zero.
	score := 1 - distance/2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func baselineConfidence(samples int) string {
	switch {
	case samples >= highConfidenceSamples:
		return ConfidenceHigh
	case samples >= mediumConfidenceSamples:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
