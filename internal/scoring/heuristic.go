package scoring

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// EmbeddingDim is the vector length produced by HeuristicService.Embed.
const EmbeddingDim = 64

// HeuristicService is a deterministic, fully local Service implementation.
// It backs tests and offline runs where no remote scoring model is
// available. Feature values approximate the remote model's definitions
// closely enough for threshold logic to be exercised.
type HeuristicService struct{}

// NewHeuristicService creates a HeuristicService.
func NewHeuristicService() *HeuristicService {
	return &HeuristicService{}
}

var positiveWords = map[string]bool{
	"great": true, "love": true, "excellent": true, "good": true,
	"helpful": true, "amazing": true, "thanks": true, "useful": true,
}

var negativeWords = map[string]bool{
	"bad": true, "hate": true, "terrible": true, "awful": true,
	"useless": true, "wrong": true, "spam": true, "misleading": true,
}

// StylometricFeatures implements Service.
func (h *HeuristicService) StylometricFeatures(_ context.Context, text string) (Features, error) {
	sentences := SplitSentences(text)
	words := Tokenize(text)

	var f Features
	if len(words) == 0 {
		return f, nil
	}

	// Sentence length distribution, in words.
	lengths := make([]float64, 0, len(sentences))
	for _, s := range sentences {
		lengths = append(lengths, float64(len(Tokenize(s))))
	}
	f.SentenceLenMean = mean(lengths)
	f.SentenceLenStd = stddev(lengths, f.SentenceLenMean)

	// Word length and vocabulary richness.
	var charTotal int
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		charTotal += len(w)
		seen[w] = true
	}
	f.WordLenMean = float64(charTotal) / float64(len(words))
	f.VocabRichness = float64(len(seen)) / float64(len(words))

	// Part-of-speech approximations from suffix shape. Crude, but stable,
	// which is what a drift comparison needs.
	var nouns, verbs, adjectives int
	for _, w := range words {
		switch {
		case hasAnySuffix(w, "ing", "ed", "ize", "ise", "ify"):
			verbs++
		case hasAnySuffix(w, "ous", "ful", "ive", "able", "ible", "al", "ic"):
			adjectives++
		case hasAnySuffix(w, "tion", "ment", "ness", "ity", "er", "ism"):
			nouns++
		}
	}
	f.NounRatio = float64(nouns) / float64(len(words))
	f.VerbRatio = float64(verbs) / float64(len(words))
	f.AdjectiveRatio = float64(adjectives) / float64(len(words))

	// Syllables and Flesch reading ease (scaled into [0,1]).
	var syllables int
	for _, w := range words {
		syllables += countSyllables(w)
	}
	f.SyllablesPerWord = float64(syllables) / float64(len(words))

	sentenceCount := float64(len(sentences))
	if sentenceCount == 0 {
		sentenceCount = 1
	}
	flesch := 206.835 - 1.015*(float64(len(words))/sentenceCount) - 84.6*f.SyllablesPerWord
	f.Readability = clamp(flesch/100.0, 0, 1)

	return f, nil
}

// Embed implements Service using feature hashing of word bigrams into a
// fixed-dimension unit vector. Deterministic across processes.
func (h *HeuristicService) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, EmbeddingDim)
	words := Tokenize(text)

	emit := func(token string) {
		hasher := fnv.New32a()
		hasher.Write([]byte(token))
		sum := hasher.Sum32()
		idx := int(sum % EmbeddingDim)
		sign := float32(1)
		if sum&0x80000000 != 0 {
			sign = -1
		}
		vec[idx] += sign
	}

	for i, w := range words {
		emit(w)
		if i+1 < len(words) {
			emit(w + " " + words[i+1])
		}
	}

	// Normalize to unit length so dot products are cosine similarities.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// Sentiment implements Service with fixed word lists.
func (h *HeuristicService) Sentiment(_ context.Context, comments []string) (Polarity, error) {
	var p Polarity
	if len(comments) == 0 {
		return p, nil
	}

	for _, c := range comments {
		var pos, neg int
		for _, w := range Tokenize(c) {
			if positiveWords[w] {
				pos++
			}
			if negativeWords[w] {
				neg++
			}
		}
		switch {
		case pos > neg:
			p.Positive++
		case neg > pos:
			p.Negative++
		default:
			p.Neutral++
		}
	}

	total := float64(len(comments))
	p.Positive /= total
	p.Negative /= total
	p.Neutral /= total
	return p, nil
}

// SplitSentences splits text on terminal punctuation, dropping empties.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" && s != "." && s != "!" && s != "?" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Tokenize lowercases and splits on non-letter/digit runes.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasAnySuffix(w string, suffixes ...string) bool {
	for _, s := range suffixes {
		if len(w) > len(s)+1 && strings.HasSuffix(w, s) {
			return true
		}
	}
	return false
}

// countSyllables approximates syllable count from vowel groups.
func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
