package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronai/project-analyzer/internal/analysis"
	"github.com/chronai/project-analyzer/internal/database"
)

func newTestService(t *testing.T) (*Service, *database.Repository) {
	t.Helper()

	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := NewService(db, time.Minute)
	t.Cleanup(svc.Close)

	return svc, database.NewRepository(db)
}

func save(t *testing.T, repo *database.Repository, repoURL string, overall float64, at time.Time) {
	t.Helper()

	record := database.NewProjectAnalysis(repoURL, repoURL, analysis.AnalysisResult{
		MarketValueScore: overall,
		AIFrameworkScore: overall,
		CodeQualityScore: overall,
		ExecutionScore:   overall,
		OriginalityScore: overall,
	}, overall, overall*10)
	record.CreatedAt = at
	require.NoError(t, repo.SaveAnalysis(record))
}

func TestLeaderboardRanksByBestScore(t *testing.T) {
	svc, repo := newTestService(t)
	now := time.Now().UTC()

	save(t, repo, "https://github.com/a/low", 0.3, now)
	save(t, repo, "https://github.com/a/high", 0.9, now)
	save(t, repo, "https://github.com/a/mid", 0.6, now)

	resp, err := svc.GetLeaderboard(PeriodAllTime, 50)
	require.NoError(t, err)

	require.Len(t, resp.Entries, 3)
	assert.Equal(t, 1, resp.Entries[0].Rank)
	assert.Equal(t, "https://github.com/a/high", resp.Entries[0].RepoURL)
	assert.InDelta(t, 9.0, resp.Entries[0].DisplayScore, 1e-9)
	assert.Equal(t, "https://github.com/a/low", resp.Entries[2].RepoURL)
	assert.Equal(t, 3, resp.Total)
}

func TestLeaderboardBestRunPerRepo(t *testing.T) {
	svc, repo := newTestService(t)
	now := time.Now().UTC()

	save(t, repo, "https://github.com/a/b", 0.4, now.Add(-time.Hour))
	save(t, repo, "https://github.com/a/b", 0.8, now)

	resp, err := svc.GetLeaderboard(PeriodAllTime, 50)
	require.NoError(t, err)

	require.Len(t, resp.Entries, 1)
	assert.InDelta(t, 0.8, resp.Entries[0].OverallScore, 1e-9)
}

func TestLeaderboardPeriodFiltering(t *testing.T) {
	svc, repo := newTestService(t)
	now := time.Now().UTC()

	save(t, repo, "https://github.com/a/old", 0.9, now.AddDate(0, 0, -30))
	save(t, repo, "https://github.com/a/new", 0.5, now)

	weekly, err := svc.GetLeaderboard(PeriodWeekly, 50)
	require.NoError(t, err)
	require.Len(t, weekly.Entries, 1)
	assert.Equal(t, "https://github.com/a/new", weekly.Entries[0].RepoURL)

	allTime, err := svc.GetLeaderboard(PeriodAllTime, 50)
	require.NoError(t, err)
	assert.Len(t, allTime.Entries, 2)
}

func TestLeaderboardUnknownPeriod(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetLeaderboard("hourly", 50)
	assert.Error(t, err)
}

func TestLeaderboardServesFromCache(t *testing.T) {
	svc, repo := newTestService(t)
	now := time.Now().UTC()

	save(t, repo, "https://github.com/a/b", 0.5, now)

	first, err := svc.GetLeaderboard(PeriodAllTime, 50)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)

	// A write after the first query is invisible until the cache expires.
	save(t, repo, "https://github.com/a/c", 0.9, now)

	second, err := svc.GetLeaderboard(PeriodAllTime, 50)
	require.NoError(t, err)
	assert.Len(t, second.Entries, 1)
}
