package gate

import (
	"context"
	"math"

	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/scoring"
)

// BuildBaseline profiles each prior post and aggregates per-feature mean
// and standard deviation. Returns nil when there is no prior content; the
// voice gate treats that as a client without approved history.
func BuildBaseline(ctx context.Context, scorer scoring.Service, prior []PriorPost) (*Baseline, error) {
	if len(prior) == 0 {
		return nil, nil
	}

	vectors := make([][9]float64, 0, len(prior))
	for _, p := range prior {
		f, err := scorer.StylometricFeatures(ctx, p.Text)
		if err != nil {
			return nil, errors.Wrapf(err, "profiling prior post %s", p.DraftID)
		}
		vectors = append(vectors, f.Vector())
	}

	var mean, std [9]float64
	n := float64(len(vectors))
	for _, v := range vectors {
		for i, x := range v {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= n
	}
	for _, v := range vectors {
		for i, x := range v {
			d := x - mean[i]
			std[i] += d * d
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / n)
	}

	return &Baseline{
		Samples: len(prior),
		Mean:    scoring.FromVector(mean),
		Std:     scoring.FromVector(std),
	}, nil
}
