package main

import (
	"fmt"
	"strings"
)

const maxCommentBodyChars = 600
const maxIssueBodyChars = 2500
const maxCommentsPerIssue = 15

const simplifiedIssueBodyChars = 400
const simplifiedCommentsPerIssue = 3

// batchResponseSchema is handed to the model verbatim so it produces
// output parseBatchResult can consume.
const batchResponseSchema = `{
  "findings": [
    {
      "issueNumber": 123,
      "title": "...",
      "relevance": 0-100,
      "category": "...",
      "priority": "critical|high|medium|low",
      "summary": "...",
      "workarounds": [
        {"description": "...", "author": "...", "authorRole": "maintainer|contributor|user", "confidence": 0.0-1.0, "effectiveness": "confirmed|likely|speculative"}
      ],
      "tags": ["..."],
      "sentiment": "frustrated|neutral|satisfied"
    }
  ],
  "totalAnalyzed": <number of issues you were given>,
  "relevantFound": <number of findings>,
  "topCategories": ["up to 3 most common categories in this batch"]
}`

type prompt struct {
	System string
	User   string
}

func buildAnalysisPrompt(records []Record, comments map[int64][]Comment, productArea string) prompt {
	system := fmt.Sprintf(`You analyze GitHub issues for problems affecting "%s".
For each issue decide whether it is relevant to that product area. Include a finding ONLY for relevant issues.
Score relevance 0-100, assign a short category label (e.g. "Bug", "Performance", "Documentation"), a priority tier, and a one-paragraph summary.
Extract every workaround mentioned in the issue or its comments, with the author, the author's role, your confidence it works, and an effectiveness tier.
Tag each finding with a few lowercase keywords and judge the overall reporter sentiment.

Respond with JSON only (no markdown), matching exactly:
%s`, productArea, batchResponseSchema)

	var userBuf strings.Builder
	userBuf.WriteString(fmt.Sprintf("Analyze these %d issues:\n", len(records)))
	for _, rec := range records {
		writeIssueBlock(&userBuf, rec, comments[rec.ID], maxIssueBodyChars, maxCommentsPerIssue, maxCommentBodyChars)
	}
	return prompt{System: system, User: userBuf.String()}
}

// buildSimplifiedPrompt is the fallback variant: trimmed bodies, few
// comments, and a reduced schema, for models that choke on the full form.
func buildSimplifiedPrompt(records []Record, comments map[int64][]Comment, productArea string) prompt {
	system := fmt.Sprintf(`You analyze GitHub issues for problems affecting "%s".
For each relevant issue output one finding with a relevance score (0-100), a category label, a priority tier and a one-sentence summary. Skip irrelevant issues.

Respond with JSON only (no markdown):
{"findings": [{"issueNumber": 123, "title": "...", "relevance": 80, "category": "Bug", "priority": "high", "summary": "...", "workarounds": [], "tags": [], "sentiment": "neutral"}], "totalAnalyzed": 1, "relevantFound": 1, "topCategories": ["Bug"]}`, productArea)

	var userBuf strings.Builder
	userBuf.WriteString(fmt.Sprintf("Analyze these %d issues:\n", len(records)))
	for _, rec := range records {
		writeIssueBlock(&userBuf, rec, comments[rec.ID], simplifiedIssueBodyChars, simplifiedCommentsPerIssue, maxCommentBodyChars)
	}
	return prompt{System: system, User: userBuf.String()}
}

func writeIssueBlock(buf *strings.Builder, rec Record, comments []Comment, bodyLimit, commentLimit, commentBodyLimit int) {
	buf.WriteString(fmt.Sprintf("\n--- Issue #%d (%s) ---\n", rec.Number, rec.State))
	buf.WriteString("Title: " + strings.TrimSpace(rec.Title) + "\n")
	if len(rec.Labels) > 0 {
		buf.WriteString("Labels: " + strings.Join(rec.Labels, ", ") + "\n")
	}
	body := strings.TrimSpace(rec.Body)
	if len(body) > bodyLimit {
		body = body[:bodyLimit] + "..."
	}
	if body != "" {
		buf.WriteString("Body: " + body + "\n")
	}

	if len(comments) == 0 {
		return
	}
	shown := comments
	if len(shown) > commentLimit {
		shown = shown[:commentLimit]
	}
	buf.WriteString(fmt.Sprintf("Comments (%d of %d):\n", len(shown), len(comments)))
	for _, c := range shown {
		body := strings.TrimSpace(c.Body)
		if len(body) > commentBodyLimit {
			body = body[:commentBodyLimit] + "..."
		}
		buf.WriteString(fmt.Sprintf("- [%s, %s] %s\n", c.Author, c.AuthorRole, body))
	}
}
