// Package scoring defines the external scoring collaborator contracts
// (stylometric features, embeddings, sentiment) and a deterministic local
// implementation used for tests and offline runs.
package scoring

import (
	"context"
)

// Features is the fixed set of nine stylometric features extracted from a
// text. Voice-alignment baselines are distributions over these features.
type Features struct {
	SentenceLenMean  float64 `json:"sentence_len_mean"`
	SentenceLenStd   float64 `json:"sentence_len_std"`
	WordLenMean      float64 `json:"word_len_mean"`
	VocabRichness    float64 `json:"vocab_richness"` // type-token ratio
	NounRatio        float64 `json:"noun_ratio"`
	VerbRatio        float64 `json:"verb_ratio"`
	AdjectiveRatio   float64 `json:"adjective_ratio"`
	Readability      float64 `json:"readability"` // Flesch reading ease, scaled to [0,1]
	SyllablesPerWord float64 `json:"syllables_per_word"`
}

// Vector returns the features as a fixed-order slice for distance math.
func (f Features) Vector() [9]float64 {
	return [9]float64{
		f.SentenceLenMean,
		f.SentenceLenStd,
		f.WordLenMean,
		f.VocabRichness,
		f.NounRatio,
		f.VerbRatio,
		f.AdjectiveRatio,
		f.Readability,
		f.SyllablesPerWord,
	}
}

// FromVector is the inverse of Vector.
func FromVector(v [9]float64) Features {
	return Features{
		SentenceLenMean:  v[0],
		SentenceLenStd:   v[1],
		WordLenMean:      v[2],
		VocabRichness:    v[3],
		NounRatio:        v[4],
		VerbRatio:        v[5],
		AdjectiveRatio:   v[6],
		Readability:      v[7],
		SyllablesPerWord: v[8],
	}
}

// Polarity is an aggregate sentiment over a set of comments.
type Polarity struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Service is the scoring collaborator contract. Implementations may call
// remote models; all methods accept a context for that reason.
type Service interface {
	// StylometricFeatures extracts the nine-feature profile of a text.
	StylometricFeatures(ctx context.Context, text string) (Features, error)

	// Embed returns a fixed-length vector representation of a text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Sentiment aggregates polarity over a set of comments.
	Sentiment(ctx context.Context, comments []string) (Polarity, error)
}
