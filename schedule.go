package main

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StartAnalysisScheduler runs RunAnalysis on a 5-field cron expression
// (minute hour day-of-month month day-of-week).
// Examples: "0 8 * * 1" (Mondays 8am), "0 6 * * *" (daily 6am).
func StartAnalysisScheduler(cfg Config, db *sql.DB) {
	schedule := strings.TrimSpace(cfg.AnalysisSchedule)
	if schedule == "" {
		log.Fatalf("analysis_schedule is required for the schedule command")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Fatalf("Invalid analysis_schedule '%s': %v", schedule, err)
	}

	log.Printf("Analysis scheduled (cron: %s) for %s / %s", schedule, cfg.GitHubRepo, cfg.ProductArea)

	for {
		now := time.Now().In(cfg.Location)
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next analysis at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		time.Sleep(wait)

		if err := RunAnalysis(cfg, db); err != nil {
			log.Printf("Scheduled analysis error: %v", err)
		}
	}
}
