package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/chronai/project-analyzer/internal/errors"
	"github.com/chronai/project-analyzer/internal/resilience"
	"github.com/chronai/project-analyzer/internal/types"
)

const defaultBaseURL = "https://api.github.com"

// githubRepo is the subset of the repository payload we read.
type githubRepo struct {
	FullName         string    `json:"full_name"`
	Description      string    `json:"description"`
	StargazersCount  int       `json:"stargazers_count"`
	ForksCount       int       `json:"forks_count"`
	SubscribersCount int       `json:"subscribers_count"`
	OpenIssuesCount  int       `json:"open_issues_count"`
	Language         string    `json:"language"`
	Topics           []string  `json:"topics"`
	PushedAt         time.Time `json:"pushed_at"`
	CreatedAt        time.Time `json:"created_at"`
}

type githubContributor struct {
	Login string `json:"login"`
}

// Metrics counts outbound GitHub API calls.
type Metrics interface {
	IncrementGitHubCalls()
}

// GitHubAdapter fetches repository metadata from the GitHub REST API
// through a pooled, circuit-broken client.
type GitHubAdapter struct {
	token   string
	baseURL string
	pool    *resilience.ConnectionPool
	metrics Metrics
}

// NewGitHubAdapter creates an adapter. token may be empty for anonymous
// access at GitHub's lower rate limits; metrics may be nil.
func NewGitHubAdapter(token string, metrics Metrics) *GitHubAdapter {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
	})

	return &GitHubAdapter{
		token:   token,
		baseURL: defaultBaseURL,
		pool:    resilience.NewConnectionPool("github", 10, 20, 30*time.Second, breaker),
		metrics: metrics,
	}
}

// FetchRepoMetrics returns the market-relevant metrics for a repository URL
// of the form https://github.com/{owner}/{repo}.
func (g *GitHubAdapter) FetchRepoMetrics(ctx context.Context, repoURL string) (*types.RepoMetrics, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	var repoData githubRepo
	if err := g.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s", g.baseURL, owner, repo), &repoData); err != nil {
		return nil, fmt.Errorf("fetch repo: %w", err)
	}

	metrics := &types.RepoMetrics{
		FullName:    repoData.FullName,
		Description: repoData.Description,
		Stars:       repoData.StargazersCount,
		Forks:       repoData.ForksCount,
		Watchers:    repoData.SubscribersCount,
		OpenIssues:  repoData.OpenIssuesCount,
		Language:    repoData.Language,
		Topics:      repoData.Topics,
		PushedAt:    repoData.PushedAt,
		CreatedAt:   repoData.CreatedAt,
	}

	// Contributor count is best effort; the repo payload is the signal
	// that matters.
	var contributors []githubContributor
	url := fmt.Sprintf("%s/repos/%s/%s/contributors?per_page=100", g.baseURL, owner, repo)
	if err := g.getJSON(ctx, url, &contributors); err == nil {
		metrics.Contributors = len(contributors)
	}

	return metrics, nil
}

// ParseRepoURL extracts owner and repo from a GitHub URL.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	trimmed := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	idx := strings.Index(trimmed, "github.com/")
	if idx < 0 {
		return "", "", fmt.Errorf("not a GitHub repository URL: %s", repoURL)
	}
	parts := strings.Split(trimmed[idx+len("github.com/"):], "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("not a GitHub repository URL: %s", repoURL)
	}
	return parts[0], parts[1], nil
}

func (g *GitHubAdapter) getJSON(ctx context.Context, url string, v interface{}) error {
	headers := map[string]string{
		"Accept":     "application/vnd.github.v3+json",
		"User-Agent": "project-analyzer/1.0",
	}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}

	if g.metrics != nil {
		g.metrics.IncrementGitHubCalls()
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.Retryable = apperrors.IsRetryableError
	resp, err := resilience.RetryHTTP(ctx, retryCfg, func() (*http.Response, error) {
		return g.pool.DoRequest(ctx, http.MethodGet, url, headers)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("github API status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// GetPoolStats reports the adapter's pool usage.
func (g *GitHubAdapter) GetPoolStats() map[string]interface{} {
	return g.pool.GetStats()
}

// Close releases the adapter's connections.
func (g *GitHubAdapter) Close() error {
	return g.pool.Close()
}
