package gate

import (
	"context"
	"fmt"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/scoring"
)

// PlagiarismGate runs a dual-layer originality check: semantic similarity
// against the vector index of prior content, and lexical similarity against
// the prior texts themselves. Either layer flagging fails the gate.
type PlagiarismGate struct {
	scorer            scoring.Service
	semanticThreshold float64
	lexicalThreshold  float64
}

// NewPlagiarismGate creates a PlagiarismGate. A draft fails when its
// nearest-neighbor cosine similarity exceeds semanticThreshold, or when its
// sequence-match ratio against any prior text exceeds lexicalThreshold.
func NewPlagiarismGate(scorer scoring.Service, semanticThreshold, lexicalThreshold float64) (*PlagiarismGate, error) {
	if scorer == nil {
		return nil, errors.New("scoring service is required")
	}
	if semanticThreshold <= 0 || semanticThreshold > 1 {
		return nil, errors.NewValidationError("semantic_threshold", "must be in (0,1]").WithValue(semanticThreshold)
	}
	if lexicalThreshold <= 0 || lexicalThreshold > 1 {
		return nil, errors.NewValidationError("lexical_threshold", "must be in (0,1]").WithValue(lexicalThreshold)
	}
	return &PlagiarismGate{
		scorer:            scorer,
		semanticThreshold: semanticThreshold,
		lexicalThreshold:  lexicalThreshold,
	}, nil
}

// Name implements Gate.
func (g *PlagiarismGate) Name() string { return NamePlagiarism }

// Evaluate implements Gate.
func (g *PlagiarismGate) Evaluate(ctx context.Context, d *draft.ContentDraft, ec *Context) (draft.GateResult, error) {
	// Semantic layer.
	if ec.Index != nil && ec.Index.Len() > 0 {
		vec, err := g.scorer.Embed(ctx, d.Copy)
		if err != nil {
			return draft.GateResult{}, errors.Wrap(err, "embedding draft copy")
		}

		if id, sim, ok := ec.Index.Nearest(vec); ok && sim > g.semanticThreshold {
			res := fail(g.Name(), fmt.Sprintf("semantic similarity %.2f to prior post %s exceeds threshold %.2f", sim, id, g.semanticThreshold))
			res.AddEvidence("layer", "semantic")
			res.AddEvidence("nearest_post", id)
			res.AddEvidence("similarity", fmt.Sprintf("%.3f", sim))
			return res, nil
		}
	}

	// Lexical layer.
	for _, prior := range ec.PriorContent {
		ratio := MatchRatio(d.Copy, prior.Text)
		if ratio > g.lexicalThreshold {
			res := fail(g.Name(), fmt.Sprintf("lexical overlap %.2f with prior post %s exceeds threshold %.2f", ratio, prior.DraftID, g.lexicalThreshold))
			res.AddEvidence("layer", "lexical")
			res.AddEvidence("matched_post", prior.DraftID)
			res.AddEvidence("match_ratio", fmt.Sprintf("%.3f", ratio))
			return res, nil
		}
	}

	return pass(g.Name()), nil
}
