package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const githubAPIBase = "https://api.github.com"

type githubIssueItem struct {
	ID          int64         `json:"id"`
	Number      int           `json:"number"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	State       string        `json:"state"`
	HTMLURL     string        `json:"html_url"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
	User        githubUser    `json:"user"`
	Labels      []githubLabel `json:"labels"`
	Comments    int           `json:"comments"`
	PullRequest *struct{}     `json:"pull_request"`
}

type githubUser struct {
	Login string `json:"login"`
}

type githubLabel struct {
	Name string `json:"name"`
}

type githubCommentItem struct {
	Body              string     `json:"body"`
	CreatedAt         string     `json:"created_at"`
	User              githubUser `json:"user"`
	AuthorAssociation string     `json:"author_association"`
}

// FetchIssues lists issues (not PRs) in the configured repo updated within
// the last cfg.SinceDays days, oldest first so batch order is stable.
func FetchIssues(cfg Config) ([]Record, error) {
	since := time.Now().AddDate(0, 0, -cfg.SinceDays).UTC().Format(time.RFC3339)
	var records []Record
	page := 1

	for {
		apiURL := fmt.Sprintf("%s/repos/%s/issues?state=all&since=%s&sort=created&direction=asc&per_page=100&page=%d",
			githubAPIBase, cfg.GitHubRepo, since, page)
		items, err := githubGet[[]githubIssueItem](cfg.GitHubToken, apiURL)
		if err != nil {
			return nil, fmt.Errorf("listing issues: %w", err)
		}

		for _, item := range items {
			// The issues endpoint interleaves pull requests; skip them.
			if item.PullRequest != nil {
				continue
			}
			records = append(records, convertGitHubIssue(item))
		}

		if len(items) < 100 {
			break
		}
		page++
	}

	log.Printf("github fetch issues repo=%s since_days=%d total=%d", cfg.GitHubRepo, cfg.SinceDays, len(records))
	return records, nil
}

// FetchComments loads the comment thread for one issue, in thread order.
func FetchComments(cfg Config, issueNumber int) ([]Comment, error) {
	var comments []Comment
	page := 1

	for {
		apiURL := fmt.Sprintf("%s/repos/%s/issues/%d/comments?per_page=100&page=%d",
			githubAPIBase, cfg.GitHubRepo, issueNumber, page)
		items, err := githubGet[[]githubCommentItem](cfg.GitHubToken, apiURL)
		if err != nil {
			return nil, fmt.Errorf("listing comments for issue %d: %w", issueNumber, err)
		}

		for _, item := range items {
			createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
			comments = append(comments, Comment{
				Author:     item.User.Login,
				AuthorRole: roleFromAssociation(item.AuthorAssociation),
				Body:       item.Body,
				CreatedAt:  createdAt,
			})
		}

		if len(items) < 100 {
			break
		}
		page++
	}

	return comments, nil
}

// FetchAllComments loads comment threads for every record that has any,
// keyed by record ID. Records whose listing reported zero comments are
// skipped without an API call.
func FetchAllComments(cfg Config, records []Record) (map[int64][]Comment, error) {
	comments := make(map[int64][]Comment)
	for _, rec := range records {
		if rec.CommentCount == 0 {
			continue
		}
		thread, err := FetchComments(cfg, rec.Number)
		if err != nil {
			return nil, err
		}
		if len(thread) > 0 {
			comments[rec.ID] = thread
		}
	}
	log.Printf("github fetch comments issues=%d threads=%d", len(records), len(comments))
	return comments, nil
}

func githubGet[T any](token, apiURL string) (T, error) {
	var zero T

	req, err := http.NewRequest("GET", apiURL, nil)
	if err != nil {
		return zero, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("executing request: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return zero, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return zero, fmt.Errorf("GitHub rate limit exhausted (resets at %s)", resp.Header.Get("X-RateLimit-Reset"))
	}
	if resp.StatusCode != http.StatusOK {
		return zero, fmt.Errorf("GitHub API returned %d: %s", resp.StatusCode, string(body))
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return zero, fmt.Errorf("parsing response: %w", err)
	}
	return result, nil
}

func convertGitHubIssue(item githubIssueItem) Record {
	createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)

	var labels []string
	for _, l := range item.Labels {
		labels = append(labels, l.Name)
	}

	return Record{
		ID:           item.ID,
		Number:       item.Number,
		Title:        item.Title,
		Body:         item.Body,
		State:        item.State,
		Labels:       labels,
		HTMLURL:      item.HTMLURL,
		Author:       item.User.Login,
		CommentCount: item.Comments,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

func roleFromAssociation(association string) string {
	switch strings.ToUpper(association) {
	case "OWNER", "MEMBER", "COLLABORATOR":
		return "maintainer"
	case "CONTRIBUTOR":
		return "contributor"
	default:
		return "user"
	}
}
