package main

import (
	"strings"
	"testing"
)

func TestFallbackEstimate(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"ab", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, c := range cases {
		if got := fallbackEstimate(c.text); got != c.want {
			t.Fatalf("fallbackEstimate(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestFallbackEstimateCountsRunes(t *testing.T) {
	// 8 runes, many more bytes.
	if got := fallbackEstimate("日本語のテキスト行"); got != 2 {
		t.Fatalf("expected rune-based estimate 2, got %d", got)
	}
}

func TestEstimateEmptyIsZero(t *testing.T) {
	est := newTokenEstimator()
	if got := est.estimate(""); got != 0 {
		t.Fatalf("estimate(\"\") = %d, want 0", got)
	}
}

func TestEstimatePositiveForText(t *testing.T) {
	est := newTokenEstimator()
	if got := est.estimate("some prompt text with several words"); got <= 0 {
		t.Fatalf("expected positive estimate, got %d", got)
	}
}
