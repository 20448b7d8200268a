package main

import (
	"log"
	"strings"
	"unicode"
)

func tokenize(s string) []string {
	s = strings.ToLower(s)
	var tokens []string
	var cur strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// tokensMatch accepts exact matches plus prefix matches of at least four
// characters, which covers plurals and simple suffix variation without a
// stemmer.
func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) >= 4 && strings.HasPrefix(b, a) {
		return true
	}
	if len(b) >= 4 && strings.HasPrefix(a, b) {
		return true
	}
	return false
}

// scoreRecord estimates how relevant a record is to the product area on
// a 0..1 scale. Title hits weigh double; an exact keyword phrase in the
// title or body adds a fixed bonus.
func scoreRecord(rec Record, comments []Comment, productArea string, keywords []string) float64 {
	queryTokens := tokenize(productArea)
	for _, kw := range keywords {
		queryTokens = append(queryTokens, tokenize(kw)...)
	}
	if len(queryTokens) == 0 {
		return 0
	}

	titleTokens := tokenize(rec.Title)
	bodyTokens := tokenize(rec.Body)
	for _, label := range rec.Labels {
		bodyTokens = append(bodyTokens, tokenize(label)...)
	}
	for _, c := range comments {
		bodyTokens = append(bodyTokens, tokenize(c.Body)...)
	}

	var hits float64
	for _, q := range queryTokens {
		matched := 0.0
		for _, t := range titleTokens {
			if tokensMatch(q, t) {
				matched = 2.0
				break
			}
		}
		if matched == 0 {
			for _, t := range bodyTokens {
				if tokensMatch(q, t) {
					matched = 1.0
					break
				}
			}
		}
		hits += matched
	}
	score := hits / float64(2*len(queryTokens))

	haystack := strings.ToLower(rec.Title + " " + rec.Body)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			score += 0.3
			break
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}

// filterRelevant drops records scoring below threshold, preserving the
// input order of the survivors.
func filterRelevant(records []Record, comments map[int64][]Comment, productArea string, keywords []string, threshold float64) []Record {
	var kept []Record
	for _, rec := range records {
		score := scoreRecord(rec, comments[rec.ID], productArea, keywords)
		if score >= threshold {
			kept = append(kept, rec)
		} else {
			log.Printf("scorer skipped issue=%d score=%.2f", rec.Number, score)
		}
	}
	log.Printf("scorer kept=%d of %d threshold=%.2f", len(kept), len(records), threshold)
	return kept
}
