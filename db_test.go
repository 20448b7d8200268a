package main

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "issuelens-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testRunConfig() Config {
	return Config{
		GitHubRepo:  "acme/widget",
		ProductArea: "widgets",
		LLMProvider: "local",
		LLMModel:    "test-model",
	}
}

func TestSaveAndListRuns(t *testing.T) {
	db := newTestDB(t)

	agg := &AggregateResult{
		Findings: []AnalyzedFinding{
			{
				IssueNumber: 5,
				Title:       "Crash on save",
				Relevance:   90,
				Category:    "Bug",
				Priority:    "critical",
				Summary:     "Crashes while saving.",
				Sentiment:   "frustrated",
				Tags:        []string{"crash", "save"},
				Workarounds: []Workaround{
					{Description: "Disable autosave", Author: "alice", AuthorRole: "maintainer", Confidence: 0.8, Effectiveness: "confirmed"},
				},
			},
		},
		TotalAnalyzed:    12,
		RelevantFound:    1,
		TopCategories:    []string{"Bug", "Performance"},
		ProcessingErrors: 1,
		TotalBatches:     3,
	}

	runID, err := SaveAnalysisRun(db, testRunConfig(), agg, "/tmp/report.md")
	if err != nil {
		t.Fatalf("SaveAnalysisRun failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run ID")
	}

	runs, err := ListRuns(db, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != runID {
		t.Fatalf("expected run ID %s, got %s", runID, run.ID)
	}
	if run.TotalAnalyzed != 12 || run.RelevantFound != 1 {
		t.Fatalf("run stats wrong: %+v", run)
	}
	if run.ProcessingErrors != 1 || run.TotalBatches != 3 {
		t.Fatalf("run failure stats wrong: %+v", run)
	}
	if len(run.TopCategories) != 2 || run.TopCategories[0] != "Bug" {
		t.Fatalf("run categories wrong: %v", run.TopCategories)
	}
	if run.ReportPath != "/tmp/report.md" {
		t.Fatalf("report path wrong: %s", run.ReportPath)
	}
}

func TestLoadRunFindingsRoundtrip(t *testing.T) {
	db := newTestDB(t)

	agg := &AggregateResult{
		Findings: []AnalyzedFinding{
			{IssueNumber: 1, Title: "first", Relevance: 50, Category: "Bug", Priority: "high", Summary: "a", Sentiment: "neutral"},
			{
				IssueNumber: 2, Title: "second", Relevance: 70, Category: "Performance", Priority: "medium",
				Summary: "b", Sentiment: "neutral", Tags: []string{"slow"},
				Workarounds: []Workaround{{Description: "restart", Author: "bob", AuthorRole: "user", Confidence: 0.4, Effectiveness: "speculative"}},
			},
		},
		TotalAnalyzed: 2,
		RelevantFound: 2,
	}

	runID, err := SaveAnalysisRun(db, testRunConfig(), agg, "")
	if err != nil {
		t.Fatalf("SaveAnalysisRun failed: %v", err)
	}

	findings, err := LoadRunFindings(db, runID)
	if err != nil {
		t.Fatalf("LoadRunFindings failed: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	if findings[0].IssueNumber != 1 || findings[1].IssueNumber != 2 {
		t.Fatalf("expected findings in insert order, got %d, %d", findings[0].IssueNumber, findings[1].IssueNumber)
	}
	w := findings[1].Workarounds
	if len(w) != 1 || w[0].Description != "restart" || w[0].Effectiveness != "speculative" {
		t.Fatalf("workarounds did not roundtrip: %+v", w)
	}
	if len(findings[1].Tags) != 1 || findings[1].Tags[0] != "slow" {
		t.Fatalf("tags did not roundtrip: %v", findings[1].Tags)
	}
	if len(findings[0].Workarounds) != 0 {
		t.Fatalf("expected no workarounds on first finding, got %+v", findings[0].Workarounds)
	}
}

func TestListRunsEmptyDB(t *testing.T) {
	db := newTestDB(t)
	runs, err := ListRuns(db, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}
