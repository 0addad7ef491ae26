package matching

import (
	"testing"
)

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Paracetamól", "Paracetamol"},
		{"Ibuprofène", "Ibuprofene"},
		{"Amoxicillín", "Amoxicillin"},
		{"Cetirizine", "Cetirizine"},
		{"Mixed ÁÉÍÓÚ", "Mixed AEIOU"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeStrength(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Spaced milligrams", "paracetamol 500 mg", "paracetamol 500mg"},
		{"Already joined", "paracetamol 500mg", "paracetamol 500mg"},
		{"Decimal comma", "salbutamol 0,5 ml", "salbutamol 0.5ml"},
		{"Micrograms", "levothyroxine 50 mcg", "levothyroxine 50mcg"},
		{"Unit prefix of word", "cream 5 gel", "cream 5 gel"},
		{"No strength", "cough syrup", "cough syrup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeStrength(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeStrength(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Lowercase", "Paracetamol", "paracetamol"},
		{"Diacritics and spacing", "  Paracetamól   500 MG ", "paracetamol 500mg"},
		{"Tabs and newlines", "Vitamin\tD3\n1000 IU", "vitamin d3 1000iu"},
		{"Empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
