package types

import "time"

// AnalyzeRequest is the body of POST /analyze. RepoURL accepts a GitHub
// HTTPS URL or an absolute local path.
type AnalyzeRequest struct {
	RepoURL string `json:"repo_url" binding:"required"`
}

// RepoMetrics is the subset of GitHub repository metadata the market
// analyzer grounds its research on.
type RepoMetrics struct {
	FullName     string    `json:"full_name"`
	Description  string    `json:"description"`
	Stars        int       `json:"stars"`
	Forks        int       `json:"forks"`
	Watchers     int       `json:"watchers"`
	OpenIssues   int       `json:"open_issues"`
	Contributors int       `json:"contributors"`
	Language     string    `json:"language"`
	Topics       []string  `json:"topics"`
	PushedAt     time.Time `json:"pushed_at"`
	CreatedAt    time.Time `json:"created_at"`
}
