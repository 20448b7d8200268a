package main

import (
	"log"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEstimator counts prompt tokens with tiktoken's cl100k_base
// encoding, falling back to a chars-per-token heuristic when the
// encoding data is unavailable (e.g. offline).
type tokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

const fallbackCharsPerToken = 4

func newTokenEstimator() *tokenEstimator {
	return &tokenEstimator{}
}

func (t *tokenEstimator) estimate(text string) int {
	if text == "" {
		return 0
	}
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("tokens tiktoken unavailable, using char estimate: %v", err)
			return
		}
		t.enc = enc
	})
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	return fallbackEstimate(text)
}

func fallbackEstimate(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text) / fallbackCharsPerToken
	if n == 0 {
		n = 1
	}
	return n
}
