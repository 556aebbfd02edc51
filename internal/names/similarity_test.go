package names

import (
	"testing"
)

func TestSimilarityIdentical(t *testing.T) {
	names := []string{
		"joao silva",
		"maria aparecida santos",
		"x",
	}

	for _, name := range names {
		if score := Similarity(name, name); score != 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, expected 1.0", name, name, score)
		}
	}
}

func TestSimilarityEmptyInput(t *testing.T) {
	if score := Similarity("", "joao silva"); score != 0.0 {
		t.Errorf("Similarity with empty first input = %f, expected 0.0", score)
	}
	if score := Similarity("joao silva", ""); score != 0.0 {
		t.Errorf("Similarity with empty second input = %f, expected 0.0", score)
	}
	if score := Similarity("", ""); score != 0.0 {
		t.Errorf("Similarity of two empty inputs = %f, expected 0.0", score)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"joao silva", "joao silva oliveira"},
		{"maria souza", "mariana sousa"},
		{"carlos pereira", "pereira carlos"},
		{"ana lima", "beatriz rocha"},
		{"jose santos", "j santos"},
	}

	for _, pair := range pairs {
		ab := Similarity(pair[0], pair[1])
		ba := Similarity(pair[1], pair[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %f but Similarity(%q, %q) = %f",
				pair[0], pair[1], ab, pair[1], pair[0], ba)
		}
	}
}

func TestSimilarityBounded(t *testing.T) {
	pairs := [][2]string{
		{"joao silva", "joao silva"},
		{"joao silva", "joana silva"},
		{"a", "b"},
		{"silva", "silvia"},
	}

	for _, pair := range pairs {
		score := Similarity(pair[0], pair[1])
		if score < 0.0 || score > 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, outside [0,1]", pair[0], pair[1], score)
		}
	}
}

func TestSimilarityFamilyNameBonus(t *testing.T) {
	// Different given names, same family name: the bonus must lift the score
	// above the raw alignment ratio
	withBonus := Similarity("maria oliveira", "fernanda oliveira")
	base := alignmentRatio("maria oliveira", "fernanda oliveira")

	if withBonus <= base {
		t.Errorf("expected family-name bonus to raise score: got %f, base %f", withBonus, base)
	}

	// No shared family token, no bonus
	noBonus := Similarity("maria oliveira", "fernanda rocha")
	if noBonus != alignmentRatio("maria oliveira", "fernanda rocha") {
		t.Errorf("unexpected bonus for unrelated family names: %f", noBonus)
	}
}

func TestSimilarityTokenReordering(t *testing.T) {
	// Reordered tokens still score acceptably because matching blocks are
	// order-insensitive in aggregate and the family token is shared
	score := Similarity("silva joao", "joao silva")
	if score < 0.7 {
		t.Errorf("Similarity of reordered name = %f, expected at least 0.7", score)
	}
}

func TestSharesFamilyToken(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{
			name:     "exact family token",
			a:        "joao silva",
			b:        "maria silva",
			expected: true,
		},
		{
			name:     "one character typo",
			a:        "joao silva",
			b:        "maria silvia",
			expected: true,
		},
		{
			name:     "short tokens carry no signal",
			a:        "ana vaz",
			b:        "rui vaz",
			expected: false,
		},
		{
			name:     "family token outside trailing window",
			a:        "silva joao pedro almeida costa",
			b:        "silva maria rita duarte nunes",
			expected: false,
		},
		{
			name:     "no overlap",
			a:        "joao silva",
			b:        "maria rocha",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sharesFamilyToken(tt.a, tt.b); got != tt.expected {
				t.Errorf("sharesFamilyToken(%q, %q) = %t, expected %t", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestAlignmentRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"abcde", "edcba"},
		{"joao silva", "silva joao"},
		{"aab", "baa"},
	}

	for _, pair := range pairs {
		ab := alignmentRatio(pair[0], pair[1])
		ba := alignmentRatio(pair[1], pair[0])
		if ab != ba {
			t.Errorf("alignmentRatio(%q, %q) = %f but reversed = %f", pair[0], pair[1], ab, ba)
		}
	}
}

func TestLongestCommonBlock(t *testing.T) {
	aLo, aHi, bLo, bHi, size := longestCommonBlock([]rune("xjoaoz"), []rune("yjoaow"))
	if size != 4 {
		t.Fatalf("expected block size 4, got %d", size)
	}
	if string([]rune("xjoaoz")[aLo:aHi]) != "joao" || string([]rune("yjoaow")[bLo:bHi]) != "joao" {
		t.Error("block positions do not cover the common substring")
	}

	_, _, _, _, size = longestCommonBlock([]rune("abc"), []rune("xyz"))
	if size != 0 {
		t.Errorf("expected no common block, got size %d", size)
	}
}
