package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id                TEXT PRIMARY KEY,
		repo              TEXT NOT NULL,
		product_area      TEXT NOT NULL,
		provider          TEXT NOT NULL,
		model             TEXT NOT NULL,
		total_analyzed    INTEGER NOT NULL,
		relevant_found    INTEGER NOT NULL,
		top_categories    TEXT DEFAULT '',
		processing_errors INTEGER DEFAULT 0,
		total_batches     INTEGER DEFAULT 0,
		report_path       TEXT DEFAULT '',
		created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON analysis_runs(created_at);

	CREATE TABLE IF NOT EXISTS findings (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id           TEXT NOT NULL,
		issue_number     INTEGER NOT NULL,
		title            TEXT NOT NULL,
		relevance        INTEGER NOT NULL,
		category         TEXT DEFAULT '',
		priority         TEXT DEFAULT '',
		summary          TEXT DEFAULT '',
		sentiment        TEXT DEFAULT '',
		tags             TEXT DEFAULT '',
		workarounds_json TEXT DEFAULT '[]',
		FOREIGN KEY (run_id) REFERENCES analysis_runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// SaveAnalysisRun persists one aggregate result and its findings, and
// returns the generated run ID.
func SaveAnalysisRun(db *sql.DB, cfg Config, agg *AggregateResult, reportPath string) (string, error) {
	runID := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO analysis_runs
		(id, repo, product_area, provider, model, total_analyzed, relevant_found, top_categories, processing_errors, total_batches, report_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, cfg.GitHubRepo, cfg.ProductArea, cfg.LLMProvider, cfg.LLMModel,
		agg.TotalAnalyzed, agg.RelevantFound, strings.Join(agg.TopCategories, ","),
		agg.ProcessingErrors, agg.TotalBatches, reportPath, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, f := range agg.Findings {
		workarounds, err := json.Marshal(f.Workarounds)
		if err != nil {
			return "", fmt.Errorf("marshaling workarounds for issue %d: %w", f.IssueNumber, err)
		}
		_, err = tx.Exec(`
			INSERT INTO findings
			(run_id, issue_number, title, relevance, category, priority, summary, sentiment, tags, workarounds_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, f.IssueNumber, f.Title, f.Relevance, f.Category, f.Priority,
			f.Summary, f.Sentiment, strings.Join(f.Tags, ","), string(workarounds))
		if err != nil {
			return "", fmt.Errorf("inserting finding for issue %d: %w", f.IssueNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

func ListRuns(db *sql.DB, limit int) ([]AnalysisRun, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, repo, product_area, provider, model, total_analyzed, relevant_found,
		       top_categories, processing_errors, total_batches, report_path, created_at
		FROM analysis_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []AnalysisRun
	for rows.Next() {
		var run AnalysisRun
		var categories string
		if err := rows.Scan(&run.ID, &run.Repo, &run.ProductArea, &run.Provider, &run.Model,
			&run.TotalAnalyzed, &run.RelevantFound, &categories,
			&run.ProcessingErrors, &run.TotalBatches, &run.ReportPath, &run.CreatedAt); err != nil {
			return nil, err
		}
		if categories != "" {
			run.TopCategories = strings.Split(categories, ",")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadRunFindings reads back the findings of one run in insert order.
func LoadRunFindings(db *sql.DB, runID string) ([]AnalyzedFinding, error) {
	rows, err := db.Query(`
		SELECT issue_number, title, relevance, category, priority, summary, sentiment, tags, workarounds_json
		FROM findings WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []AnalyzedFinding
	for rows.Next() {
		var f AnalyzedFinding
		var tags, workarounds string
		if err := rows.Scan(&f.IssueNumber, &f.Title, &f.Relevance, &f.Category,
			&f.Priority, &f.Summary, &f.Sentiment, &tags, &workarounds); err != nil {
			return nil, err
		}
		if tags != "" {
			f.Tags = strings.Split(tags, ",")
		}
		if err := json.Unmarshal([]byte(workarounds), &f.Workarounds); err != nil {
			return nil, fmt.Errorf("parsing workarounds for issue %d: %w", f.IssueNumber, err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
