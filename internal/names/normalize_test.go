package names

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "diacritics stripped",
			input:    "João Gonçalves",
			expected: "joao goncalves",
		},
		{
			name:     "stop words removed",
			input:    "Maria de Souza dos Santos",
			expected: "maria souza santos",
		},
		{
			name:     "case folded",
			input:    "CARLOS PEREIRA",
			expected: "carlos pereira",
		},
		{
			name:     "repeated whitespace collapsed",
			input:    "  Ana   Paula \t Lima ",
			expected: "ana paula lima",
		},
		{
			name:     "stop word only as whole token",
			input:    "Daniela Delgado",
			expected: "daniela delgado",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "",
		},
		{
			name:     "all connectors",
			input:    "de da do e",
			expected: "",
		},
		{
			name:     "mixed accents and connectors",
			input:    "José da Silva e Oliveira",
			expected: "jose silva oliveira",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"João da Silva",
		"MARIA APARECIDA DOS SANTOS",
		"  Pedro   Álvares  ",
		"de la Cruz",
		"",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestTokens(t *testing.T) {
	tokens := Tokens("maria souza santos")
	expected := []string{"maria", "souza", "santos"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Tokens() = %v, expected %v", tokens, expected)
	}

	if got := Tokens(""); len(got) != 0 {
		t.Errorf("Tokens(\"\") = %v, expected empty", got)
	}
}
