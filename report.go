package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

func WriteReportFile(content, outputDir, repo string, reportDate time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s.md", sanitizeFilename(repo), reportDate.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}

// BuildAnalysisReport renders the aggregate as Markdown: stats header,
// findings grouped by priority tier, workaround lists, and a failure
// footer when any batch was written off.
func BuildAnalysisReport(agg *AggregateResult, repo, productArea string, reportDate time.Time) string {
	var out strings.Builder

	out.WriteString(fmt.Sprintf("# Issue Analysis: %s\n\n", productArea))
	out.WriteString(fmt.Sprintf("Repository: %s  \n", repo))
	out.WriteString(fmt.Sprintf("Date: %s  \n", reportDate.Format("2006-01-02")))
	out.WriteString(fmt.Sprintf("Issues analyzed: %d  \n", agg.TotalAnalyzed))
	out.WriteString(fmt.Sprintf("Relevant findings: %d  \n", agg.RelevantFound))
	if len(agg.TopCategories) > 0 {
		out.WriteString(fmt.Sprintf("Top categories: %s  \n", strings.Join(agg.TopCategories, ", ")))
	}
	out.WriteString("\n")

	if len(agg.Findings) == 0 {
		out.WriteString("No relevant issues found.\n")
	}

	byPriority := make(map[string][]AnalyzedFinding)
	for _, f := range agg.Findings {
		p := normalizePriority(f.Priority)
		byPriority[p] = append(byPriority[p], f)
	}

	var tiers []string
	for tier := range byPriority {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool {
		return priorityRank[tiers[i]] < priorityRank[tiers[j]]
	})

	for _, tier := range tiers {
		out.WriteString(fmt.Sprintf("## %s priority\n\n", titleCase(tier)))
		for _, f := range byPriority[tier] {
			writeFinding(&out, f)
		}
	}

	if agg.ProcessingErrors > 0 {
		out.WriteString("---\n\n")
		out.WriteString(fmt.Sprintf("**Note:** %d of %d batches could not be analyzed; their issues are counted in the totals but produced no findings.\n",
			agg.ProcessingErrors, agg.TotalBatches))
	}

	return out.String()
}

func writeFinding(out *strings.Builder, f AnalyzedFinding) {
	out.WriteString(fmt.Sprintf("### #%d %s\n\n", f.IssueNumber, strings.TrimSpace(f.Title)))
	out.WriteString(fmt.Sprintf("Relevance: %d/100 | Category: %s | Sentiment: %s\n\n",
		f.Relevance, f.Category, f.Sentiment))
	if strings.TrimSpace(f.Summary) != "" {
		out.WriteString(strings.TrimSpace(f.Summary) + "\n\n")
	}
	if len(f.Workarounds) > 0 {
		out.WriteString("Workarounds:\n\n")
		for _, w := range f.Workarounds {
			out.WriteString(fmt.Sprintf("- %s — %s (%s), confidence %.0f%%, %s\n",
				strings.TrimSpace(w.Description), w.Author, w.AuthorRole, w.Confidence*100, w.Effectiveness))
		}
		out.WriteString("\n")
	}
	if len(f.Tags) > 0 {
		out.WriteString("Tags: " + strings.Join(f.Tags, ", ") + "\n\n")
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	return replacer.Replace(s)
}
