package main

import "time"

type Record struct {
	ID           int64
	Number       int
	Title        string
	Body         string
	State        string // "open" or "closed"
	Labels       []string
	HTMLURL      string
	Author       string
	CommentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Comment struct {
	Author     string
	AuthorRole string // "maintainer", "contributor", or "user"
	Body       string
	CreatedAt  time.Time
}

type Workaround struct {
	Description   string  `json:"description"`
	Author        string  `json:"author"`
	AuthorRole    string  `json:"authorRole"`
	Confidence    float64 `json:"confidence"`
	Effectiveness string  `json:"effectiveness"` // "confirmed", "likely", or "speculative"
}

type AnalyzedFinding struct {
	IssueNumber int          `json:"issueNumber"`
	Title       string       `json:"title"`
	Relevance   int          `json:"relevance"` // 0-100
	Category    string       `json:"category"`
	Priority    string       `json:"priority"` // "critical", "high", "medium", or "low"
	Summary     string       `json:"summary"`
	Workarounds []Workaround `json:"workarounds"`
	Tags        []string     `json:"tags"`
	Sentiment   string       `json:"sentiment"`
}

type BatchResult struct {
	Findings      []AnalyzedFinding `json:"findings"`
	TotalAnalyzed int               `json:"totalAnalyzed"`
	RelevantFound int               `json:"relevantFound"`
	TopCategories []string          `json:"topCategories"`

	// ProcessingError marks a placeholder result for a unit that could
	// not be analyzed. Never set from the LLM response.
	ProcessingError bool `json:"-"`
}

// AggregateResult is the merged output of one analysis run.
// ProcessingErrors and TotalBatches are only populated when at least one
// batch ended in a placeholder; a clean run leaves both at zero.
type AggregateResult struct {
	Findings         []AnalyzedFinding
	TotalAnalyzed    int
	RelevantFound    int
	TopCategories    []string
	ProcessingErrors int
	TotalBatches     int
}

type AnalysisRun struct {
	ID               string
	Repo             string
	ProductArea      string
	Provider         string
	Model            string
	TotalAnalyzed    int
	RelevantFound    int
	TopCategories    []string
	ProcessingErrors int
	TotalBatches     int
	ReportPath       string
	CreatedAt        time.Time
}

var priorityRank = map[string]int{
	"critical": 0,
	"high":     1,
	"medium":   2,
	"low":      3,
}

func normalizePriority(p string) string {
	switch p {
	case "critical", "high", "medium", "low":
		return p
	default:
		return "medium"
	}
}

func normalizeSentiment(s string) string {
	switch s {
	case "frustrated", "neutral", "satisfied":
		return s
	default:
		return "neutral"
	}
}
