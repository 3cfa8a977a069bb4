package gate

import "github.com/copydesk/copydesk/internal/scoring"

// MatchRatio computes a word-level similarity ratio between two texts in
// [0,1], following the classic sequence-matcher formulation:
// 2*M / (len(a)+len(b)), where M is the total length of matching blocks
// found by recursive longest-common-substring search over the token
// sequences.
func MatchRatio(a, b string) float64 {
	ta := scoring.Tokenize(a)
	tb := scoring.Tokenize(b)
	total := len(ta) + len(tb)
	if total == 0 {
		return 1
	}

	matches := matchingBlocks(ta, tb)
	return 2 * float64(matches) / float64(total)
}

// matchingBlocks returns the total token count of all matching blocks
// between a and b.
func matchingBlocks(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}

	return size +
		matchingBlocks(a[:ai], b[:bi]) +
		matchingBlocks(a[ai+size:], b[bi+size:])
}

// longestMatch finds the longest run of equal tokens between a and b.
func longestMatch(a, b []string) (ai, bi, size int) {
	// positions of each token in b, for O(len(a)*occurrences) scanning
	positions := make(map[string][]int, len(b))
	for j, tok := range b {
		positions[tok] = append(positions[tok], j)
	}

	// lengths[j] holds the current match run ending at (i-1, j-1)
	lengths := make(map[int]int)
	for i, tok := range a {
		next := make(map[int]int, len(lengths))
		for _, j := range positions[tok] {
			k := lengths[j-1] + 1
			next[j] = k
			if k > size {
				ai = i - k + 1
				bi = j - k + 1
				size = k
			}
		}
		lengths = next
	}
	return ai, bi, size
}
