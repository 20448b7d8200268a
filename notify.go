package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

// PostRunSummary posts a short run summary to the configured Slack
// channel. Posting failures are logged and swallowed; the report file is
// already on disk by the time this runs.
func PostRunSummary(cfg Config, agg *AggregateResult, reportPath string) {
	if !cfg.SlackConfigured() {
		return
	}
	api := slack.New(cfg.SlackBotToken)
	_, _, err := api.PostMessage(cfg.SlackChannelID, slack.MsgOptionText(FormatRunSummary(cfg, agg, reportPath), false))
	if err != nil {
		log.Printf("slack post error: %v", err)
		return
	}
	log.Printf("slack posted summary channel=%s", cfg.SlackChannelID)
}

func FormatRunSummary(cfg Config, agg *AggregateResult, reportPath string) string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("Issue analysis for *%s* (%s): %d issues analyzed, %d relevant findings.",
		cfg.ProductArea, cfg.GitHubRepo, agg.TotalAnalyzed, agg.RelevantFound))
	if len(agg.TopCategories) > 0 {
		out.WriteString(" Top categories: " + strings.Join(agg.TopCategories, ", ") + ".")
	}
	if agg.ProcessingErrors > 0 {
		out.WriteString(fmt.Sprintf(" Warning: %d of %d batches failed.", agg.ProcessingErrors, agg.TotalBatches))
	}
	if reportPath != "" {
		out.WriteString(" Report: " + reportPath)
	}
	return out.String()
}
