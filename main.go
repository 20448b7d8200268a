package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

func main() {
	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	cmd := "analyze"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "analyze":
		if err := RunAnalysis(cfg, db); err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
	case "schedule":
		StartAnalysisScheduler(cfg, db)
	case "runs":
		// "runs <id>" shows the stored findings of one run.
		if len(os.Args) > 2 {
			findings, err := LoadRunFindings(db, os.Args[2])
			if err != nil {
				log.Fatalf("Failed to load run %s: %v", os.Args[2], err)
			}
			fmt.Print(FormatRunFindings(os.Args[2], findings))
			return
		}
		runs, err := ListRuns(db, 20)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("No analysis runs recorded.")
			return
		}
		for _, run := range runs {
			line := fmt.Sprintf("%s  %s  %s  %s/%s  analyzed=%d relevant=%d",
				run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Repo, run.Provider, run.Model,
				run.TotalAnalyzed, run.RelevantFound)
			if run.ProcessingErrors > 0 {
				line += fmt.Sprintf(" failed_batches=%d/%d", run.ProcessingErrors, run.TotalBatches)
			}
			fmt.Println(line)
		}
	default:
		log.Fatalf("Unknown command '%s' (expected analyze, schedule, or runs)", cmd)
	}
}

// FormatRunFindings renders one stored run's findings for the terminal.
func FormatRunFindings(runID string, findings []AnalyzedFinding) string {
	if len(findings) == 0 {
		return fmt.Sprintf("No findings recorded for run %s.\n", runID)
	}
	var out strings.Builder
	out.WriteString(fmt.Sprintf("Run %s: %d findings\n", runID, len(findings)))
	for _, f := range findings {
		out.WriteString(fmt.Sprintf("#%d [%s/%s] %s (relevance %d)\n",
			f.IssueNumber, f.Category, f.Priority, f.Title, f.Relevance))
		if f.Summary != "" {
			out.WriteString("  " + f.Summary + "\n")
		}
	}
	return out.String()
}

// RunAnalysis is one full pipeline pass: fetch, pre-score, batch-analyze,
// persist, render, notify. Per-batch failures are absorbed into the
// aggregate; only run-level failures (fetch errors, unavailable model)
// return an error.
func RunAnalysis(cfg Config, db *sql.DB) error {
	started := time.Now().In(cfg.Location)

	records, err := FetchIssues(cfg)
	if err != nil {
		return fmt.Errorf("fetching issues: %w", err)
	}
	if len(records) == 0 {
		log.Printf("run no issues found repo=%s since_days=%d", cfg.GitHubRepo, cfg.SinceDays)
		return nil
	}

	comments, err := FetchAllComments(cfg, records)
	if err != nil {
		return fmt.Errorf("fetching comments: %w", err)
	}

	candidates := filterRelevant(records, comments, cfg.ProductArea, cfg.Keywords, cfg.RelevanceThreshold)
	if len(candidates) == 0 {
		log.Printf("run no candidates above threshold=%.2f", cfg.RelevanceThreshold)
		return nil
	}

	engine := NewEngine(newProvider(cfg), cfg.EngineConfig())
	agg, err := engine.Analyze(context.Background(), candidates, comments, cfg.ProductArea)
	if err != nil {
		return fmt.Errorf("analyzing batches: %w", err)
	}

	report := BuildAnalysisReport(agg, cfg.GitHubRepo, cfg.ProductArea, started)
	reportPath, err := WriteReportFile(report, cfg.ReportOutputDir, cfg.GitHubRepo, started)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	runID, err := SaveAnalysisRun(db, cfg, agg, reportPath)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	PostRunSummary(cfg, agg, reportPath)

	log.Printf("run complete id=%s analyzed=%d relevant=%d errors=%d report=%s",
		runID, agg.TotalAnalyzed, agg.RelevantFound, agg.ProcessingErrors, reportPath)
	return nil
}
