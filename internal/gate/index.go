package gate

import (
	"context"
	"sync"

	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/scoring"
)

// VectorIndex is an in-process nearest-neighbor index over embeddings of
// prior content. Vectors are assumed unit-normalized so dot product equals
// cosine similarity. Safe for concurrent use.
type VectorIndex struct {
	mu      sync.RWMutex
	ids     []string
	vectors [][]float32
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

// Add stores a vector under the given id.
func (idx *VectorIndex) Add(id string, vec []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ids = append(idx.ids, id)
	idx.vectors = append(idx.vectors, vec)
}

// Len returns the number of indexed vectors.
func (idx *VectorIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// Nearest returns the id and cosine similarity of the closest indexed
// vector, or ok=false when the index is empty.
func (idx *VectorIndex) Nearest(query []float32) (id string, similarity float64, ok bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return "", 0, false
	}

	best := -1
	bestSim := -2.0
	for i, vec := range idx.vectors {
		sim := dot(query, vec)
		if sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	return idx.ids[best], bestSim, true
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// BuildIndex embeds each prior post and returns a populated index.
func BuildIndex(ctx context.Context, scorer scoring.Service, prior []PriorPost) (*VectorIndex, error) {
	idx := NewVectorIndex()
	for _, p := range prior {
		vec, err := scorer.Embed(ctx, p.Text)
		if err != nil {
			return nil, errors.Wrapf(err, "embedding prior post %s", p.DraftID)
		}
		idx.Add(p.DraftID, vec)
	}
	return idx, nil
}
