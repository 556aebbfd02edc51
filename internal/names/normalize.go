// Package names provides payer-name canonicalization and similarity scoring.
//
// Incoming transfer records carry free-text sender names that rarely match the
// registry spelling exactly: accents are dropped or kept inconsistently,
// grammatical connectors appear and disappear ("Maria de Souza" vs
// "Maria Souza"), and first names are abbreviated. All comparisons in the
// matching pipeline therefore run on normalized names, scored with a
// sequence-alignment ratio that tolerates token reordering.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are grammatical connectors removed during normalization when they
// appear as whole tokens. The set covers the connectors of the source locale.
var stopWords = map[string]bool{
	"de":  true,
	"da":  true,
	"do":  true,
	"dos": true,
	"das": true,
	"e":   true,
	"del": true,
	"la":  true,
	"el":  true,
}

// diacriticStripper decomposes characters and removes combining marks
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a free-text name for comparison: diacritical marks
// are stripped, the result is lower-cased, repeated whitespace is collapsed
// and stop-word tokens are removed. Normalize is pure and idempotent;
// an empty or all-connector input normalizes to the empty string.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	stripped, _, err := transform.String(diacriticStripper, raw)
	if err != nil {
		// Transformation only fails on malformed UTF-8; fall back to the raw text
		stripped = raw
	}

	lowered := strings.ToLower(stripped)

	tokens := strings.Fields(lowered)
	filtered := tokens[:0]
	for _, token := range tokens {
		if !stopWords[token] {
			filtered = append(filtered, token)
		}
	}

	return strings.Join(filtered, " ")
}

// Tokens splits a normalized name into its tokens
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}
