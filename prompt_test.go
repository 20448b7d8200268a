package main

import (
	"strings"
	"testing"
)

func promptTestRecords() ([]Record, map[int64][]Comment) {
	records := []Record{
		{ID: 10, Number: 101, Title: "Crash on save", Body: "The editor crashes when saving large files.", State: "open", Labels: []string{"bug", "editor"}},
		{ID: 11, Number: 102, Title: "Slow startup", Body: "Startup takes 30 seconds.", State: "closed"},
	}
	comments := map[int64][]Comment{
		10: {
			{Author: "alice", AuthorRole: "maintainer", Body: "Disable autosave as a workaround."},
			{Author: "bob", AuthorRole: "user", Body: "That worked for me."},
		},
	}
	return records, comments
}

func TestBuildAnalysisPrompt(t *testing.T) {
	records, comments := promptTestRecords()
	p := buildAnalysisPrompt(records, comments, "editor stability")

	if !strings.Contains(p.System, "editor stability") {
		t.Fatal("expected product area in system prompt")
	}
	if !strings.Contains(p.System, `"findings"`) {
		t.Fatal("expected response schema in system prompt")
	}
	if !strings.Contains(p.User, "Analyze these 2 issues:") {
		t.Fatalf("expected issue count header, got: %s", p.User[:min(len(p.User), 80)])
	}
	for _, marker := range []string{"--- Issue #101 (open) ---", "--- Issue #102 (closed) ---", "Labels: bug, editor"} {
		if !strings.Contains(p.User, marker) {
			t.Fatalf("expected user prompt to contain %q", marker)
		}
	}
	if !strings.Contains(p.User, "[alice, maintainer] Disable autosave") {
		t.Fatal("expected comment with author role in user prompt")
	}
	if !strings.Contains(p.User, "Comments (2 of 2):") {
		t.Fatal("expected comment count line in user prompt")
	}
}

func TestBuildSimplifiedPromptIsSmaller(t *testing.T) {
	longBody := strings.Repeat("word ", 1000)
	records := []Record{{ID: 1, Number: 1, Title: "Big issue", Body: longBody, State: "open"}}
	var comments []Comment
	for i := 0; i < 10; i++ {
		comments = append(comments, Comment{Author: "u", AuthorRole: "user", Body: "a comment"})
	}
	commentMap := map[int64][]Comment{1: comments}

	full := buildAnalysisPrompt(records, commentMap, "area")
	simplified := buildSimplifiedPrompt(records, commentMap, "area")

	if len(simplified.User) >= len(full.User) {
		t.Fatalf("expected simplified user prompt to be smaller: %d vs %d", len(simplified.User), len(full.User))
	}
	if len(simplified.System) >= len(full.System) {
		t.Fatalf("expected simplified system prompt to be smaller: %d vs %d", len(simplified.System), len(full.System))
	}
	if !strings.Contains(simplified.User, "--- Issue #1 (open) ---") {
		t.Fatal("expected simplified prompt to still carry the issue")
	}
	if !strings.Contains(simplified.User, "Comments (3 of 10):") {
		t.Fatal("expected simplified prompt to cap comments at 3")
	}
}

func TestWriteIssueBlockTruncatesBodies(t *testing.T) {
	var buf strings.Builder
	rec := Record{Number: 7, State: "open", Title: "t", Body: strings.Repeat("x", 500)}
	writeIssueBlock(&buf, rec, []Comment{{Author: "a", AuthorRole: "user", Body: strings.Repeat("y", 500)}}, 100, 5, 50)

	out := buf.String()
	if !strings.Contains(out, strings.Repeat("x", 100)+"...") {
		t.Fatal("expected issue body truncated to limit")
	}
	if strings.Contains(out, strings.Repeat("x", 101)) {
		t.Fatal("issue body exceeded truncation limit")
	}
	if !strings.Contains(out, strings.Repeat("y", 50)+"...") {
		t.Fatal("expected comment body truncated to limit")
	}
}
