package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	githubCalls int
}

func (c *countingMetrics) IncrementGitHubCalls() { c.githubCalls++ }

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		input   string
		owner   string
		repo    string
		wantErr bool
	}{
		{"https://github.com/acme/proj", "acme", "proj", false},
		{"https://github.com/acme/proj.git", "acme", "proj", false},
		{"https://github.com/acme/proj/", "acme", "proj", false},
		{"https://github.com/acme/proj/tree/main", "acme", "proj", false},
		{"https://gitlab.com/acme/proj", "", "", true},
		{"https://github.com/acme", "", "", true},
	}
	for _, tt := range tests {
		owner, repo, err := ParseRepoURL(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.owner, owner)
		assert.Equal(t, tt.repo, repo)
	}
}

func TestFetchRepoMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/repos/acme/proj":
			w.Write([]byte(`{
				"full_name": "acme/proj",
				"description": "an AI project",
				"stargazers_count": 1200,
				"forks_count": 150,
				"subscribers_count": 300,
				"open_issues_count": 42,
				"language": "Python",
				"topics": ["ai", "ml"]
			}`))
		case "/repos/acme/proj/contributors":
			w.Write([]byte(`[{"login":"a"},{"login":"b"},{"login":"c"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	counters := &countingMetrics{}
	g := NewGitHubAdapter("test-token", counters)
	g.baseURL = srv.URL
	defer g.Close()

	metrics, err := g.FetchRepoMetrics(context.Background(), "https://github.com/acme/proj")
	require.NoError(t, err)

	// One call for the repo payload, one for contributors.
	assert.Equal(t, 2, counters.githubCalls)

	assert.Equal(t, "acme/proj", metrics.FullName)
	assert.Equal(t, 1200, metrics.Stars)
	assert.Equal(t, 150, metrics.Forks)
	assert.Equal(t, 300, metrics.Watchers)
	assert.Equal(t, 3, metrics.Contributors)
	assert.Equal(t, "Python", metrics.Language)
	assert.Equal(t, []string{"ai", "ml"}, metrics.Topics)
}

func TestFetchRepoMetricsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGitHubAdapter("", nil)
	g.baseURL = srv.URL
	defer g.Close()

	_, err := g.FetchRepoMetrics(context.Background(), "https://github.com/acme/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchRepoMetricsRetriesTransientStatus(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/repos/acme/proj":
			w.Write([]byte(`{"full_name": "acme/proj", "stargazers_count": 10}`))
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	g := NewGitHubAdapter("", nil)
	g.baseURL = srv.URL
	defer g.Close()

	metrics, err := g.FetchRepoMetrics(context.Background(), "https://github.com/acme/proj")
	require.NoError(t, err)
	assert.Equal(t, "acme/proj", metrics.FullName)
	assert.GreaterOrEqual(t, hits, 2)
}

func TestFetchRepoMetricsRejectsNonGitHubURL(t *testing.T) {
	g := NewGitHubAdapter("", nil)
	defer g.Close()

	_, err := g.FetchRepoMetrics(context.Background(), "/local/path")
	require.Error(t, err)
}
