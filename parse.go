package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseBatchResult turns raw completion text into a BatchResult.
// Models wrap JSON in markdown fences often enough that stripping them
// first is cheaper than re-prompting.
func parseBatchResult(responseText string) (BatchResult, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	if responseText == "" {
		return BatchResult{}, fmt.Errorf("empty completion response")
	}

	var result BatchResult
	if err := json.Unmarshal([]byte(responseText), &result); err != nil {
		truncated := responseText
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(responseText))
		}
		return BatchResult{}, fmt.Errorf("parsing batch response: %w (truncated response: %s)", err, truncated)
	}

	if result.Findings == nil {
		return BatchResult{}, fmt.Errorf("batch response missing required 'findings' field")
	}
	for i, f := range result.Findings {
		if strings.TrimSpace(f.Summary) == "" {
			return BatchResult{}, fmt.Errorf("batch response finding %d missing required 'summary' field", i)
		}
	}

	for i := range result.Findings {
		f := &result.Findings[i]
		if f.Relevance < 0 {
			f.Relevance = 0
		}
		if f.Relevance > 100 {
			f.Relevance = 100
		}
		f.Priority = normalizePriority(strings.ToLower(strings.TrimSpace(f.Priority)))
		f.Sentiment = normalizeSentiment(strings.ToLower(strings.TrimSpace(f.Sentiment)))
	}

	result.ProcessingError = false
	return result, nil
}
