package utils

import "testing"

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already canonical", "maps.apple.com", "maps.apple.com"},
		{"uppercase", "MAPS.Apple.COM", "maps.apple.com"},
		{"trailing dot", "maps.apple.com.", "maps.apple.com"},
		{"multiple trailing dots", "maps.apple.com...", "maps.apple.com"},
		{"surrounding whitespace", "  cdn.apple-mapkit.com \t", "cdn.apple-mapkit.com"},
		{"empty", "", ""},
		{"only dots", "...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalHost(tt.input); got != tt.expected {
				t.Errorf("CanonicalHost(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
