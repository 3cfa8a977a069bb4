package gate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/scoring"
)

// clichePhrases are generation tells. Matching is case-insensitive
// substring search over the copy.
var clichePhrases = []string{
	"in today's fast-paced world",
	"in the ever-evolving landscape",
	"game-changer",
	"game changer",
	"unlock the power of",
	"unlock your potential",
	"take it to the next level",
	"elevate your",
	"delve into",
	"dive deep into",
	"in conclusion",
	"look no further",
	"revolutionize the way",
	"seamlessly integrate",
	"harness the power",
	"at the end of the day",
	"we've got you covered",
	"buckle up",
	"it's not just about",
	"say goodbye to",
}

// Uniformity scoring: sentence-length standard deviation below this many
// words reads as machine cadence.
const uniformityStdFloor = 2.0

// Score weights for the two signals.
const (
	clicheWeight     = 0.6
	uniformityWeight = 0.4
)

// AIPatternGate scores how detectably machine-written the copy reads:
// cliché phrases plus unnaturally uniform sentence lengths.
type AIPatternGate struct {
	threshold float64
}

// NewAIPatternGate creates an AIPatternGate failing above the combined
// score threshold in (0,1].
func NewAIPatternGate(threshold float64) (*AIPatternGate, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, errors.NewValidationError("threshold", "must be in (0,1]").WithValue(threshold)
	}
	return &AIPatternGate{threshold: threshold}, nil
}

// Name implements Gate.
func (g *AIPatternGate) Name() string { return NameAIPattern }

// Evaluate implements Gate.
func (g *AIPatternGate) Evaluate(_ context.Context, d *draft.ContentDraft, _ *Context) (draft.GateResult, error) {
	copyLower := strings.ToLower(d.Copy)

	var hits []string
	for _, phrase := range clichePhrases {
		if strings.Contains(copyLower, phrase) {
			hits = append(hits, phrase)
		}
	}

	// Each cliché adds half the weight, saturating at two hits.
	clicheScore := float64(len(hits)) * 0.5
	if clicheScore > 1 {
		clicheScore = 1
	}

	uniformityScore := sentenceUniformity(d.Copy)

	score := clicheWeight*clicheScore + uniformityWeight*uniformityScore
	if score > g.threshold {
		reason := fmt.Sprintf("AI-pattern score %.2f exceeds threshold %.2f", score, g.threshold)
		if len(hits) > 0 {
			reason = fmt.Sprintf("%s (cliché: %q)", reason, hits[0])
		}
		res := fail(g.Name(), reason)
		res.AddEvidence("score", fmt.Sprintf("%.3f", score))
		res.AddEvidence("cliche_hits", fmt.Sprintf("%d", len(hits)))
		if len(hits) > 0 {
			res.AddEvidence("first_cliche", hits[0])
		}
		res.AddEvidence("uniformity", fmt.Sprintf("%.3f", uniformityScore))
		return res, nil
	}

	res := pass(g.Name())
	res.AddEvidence("score", fmt.Sprintf("%.3f", score))
	return res, nil
}

// sentenceUniformity returns 1 when every sentence is the same length and
// decays to 0 as variance approaches the floor. Texts under three sentences
// score 0: too little signal to judge cadence.
func sentenceUniformity(text string) float64 {
	sentences := scoring.SplitSentences(text)
	if len(sentences) < 3 {
		return 0
	}

	lengths := make([]float64, len(sentences))
	var sum float64
	for i, s := range sentences {
		lengths[i] = float64(len(scoring.Tokenize(s)))
		sum += lengths[i]
	}
	mean := sum / float64(len(lengths))

	var variance float64
	for _, l := range lengths {
		d := l - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(lengths)))

	if std >= uniformityStdFloor {
		return 0
	}
	return 1 - std/uniformityStdFloor
}
