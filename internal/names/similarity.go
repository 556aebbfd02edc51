package names

import (
	"github.com/agnivade/levenshtein"
)

const (
	// FamilyNameBonus is added when both names share a family-name token,
	// capturing same-family matches where given names differ
	FamilyNameBonus = 0.3

	// familyTokenMinLen is the minimum token length (exclusive) for a token to
	// count as a family name; short tokens like "jr" carry no signal
	familyTokenMinLen = 3

	// familyTokenWindow is how many trailing tokens are considered family names
	familyTokenWindow = 2

	// familyTokenMaxTypoDistance allows one-character misspellings when
	// comparing family-name tokens
	familyTokenMaxTypoDistance = 1
)

// Similarity computes a bounded similarity score in [0,1] between two
// normalized names. The score is symmetric and returns 0.0 when either input
// is empty. The base measure is a sequence-alignment ratio over matching
// blocks, which tolerates word reordering and minor insertions better than a
// plain edit distance. A shared family-name token adds FamilyNameBonus,
// capped so the total never exceeds 1.0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	score := alignmentRatio(a, b)

	if sharesFamilyToken(a, b) {
		score += FamilyNameBonus
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}

// alignmentRatio returns 2*M/T where M is the total size of matching blocks
// between the two rune sequences and T the combined length. Matching blocks
// are found by locating the longest common substring and recursing on the
// pieces to its left and right. The block search is greedy, so the raw
// measure is not perfectly symmetric; both orientations are evaluated and the
// larger one kept, which makes the ratio symmetric by construction.
func alignmentRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)

	total := len(ra) + len(rb)
	if total == 0 {
		return 0.0
	}

	matched := matchingBlocksSize(ra, rb)
	if reversed := matchingBlocksSize(rb, ra); reversed > matched {
		matched = reversed
	}

	return 2.0 * float64(matched) / float64(total)
}

// matchingBlocksSize sums the sizes of all matching blocks between a and b
func matchingBlocksSize(a, b []rune) int {
	aLo, aHi, bLo, bHi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}

	matched := size
	matched += matchingBlocksSize(a[:aLo], b[:bLo])
	matched += matchingBlocksSize(a[aHi:], b[bHi:])
	return matched
}

// longestCommonBlock finds the longest common contiguous block between a and
// b, preferring the earliest occurrence in a, then in b, so results are
// deterministic for equal-length blocks.
func longestCommonBlock(a, b []rune) (aLo, aHi, bLo, bHi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0, 0, 0
	}

	// lengths[j] holds the length of the common suffix ending at a[i], b[j]
	lengths := make([]int, len(b)+1)

	for i := 0; i < len(a); i++ {
		// Walk b right to left so lengths[j] still holds the previous row
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				length := lengths[j] + 1
				lengths[j+1] = length
				if length > size {
					size = length
					aLo = i - length + 1
					aHi = i + 1
					bLo = j - length + 1
					bHi = j + 1
				}
			} else {
				lengths[j+1] = 0
			}
		}
	}

	return aLo, aHi, bLo, bHi, size
}

// sharesFamilyToken reports whether the two normalized names share a
// family-name token: a token longer than familyTokenMinLen runes appearing in
// the last familyTokenWindow positions of both names, matched exactly or
// within one character of edit distance.
func sharesFamilyToken(a, b string) bool {
	for _, ta := range familyTokens(a) {
		for _, tb := range familyTokens(b) {
			if ta == tb {
				return true
			}
			if levenshtein.ComputeDistance(ta, tb) <= familyTokenMaxTypoDistance {
				return true
			}
		}
	}
	return false
}

// familyTokens returns the trailing tokens of a normalized name that are long
// enough to act as family names
func familyTokens(normalized string) []string {
	tokens := Tokens(normalized)

	start := len(tokens) - familyTokenWindow
	if start < 0 {
		start = 0
	}

	var family []string
	for _, token := range tokens[start:] {
		if len([]rune(token)) > familyTokenMinLen {
			family = append(family, token)
		}
	}
	return family
}
