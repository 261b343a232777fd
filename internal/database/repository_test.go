package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronai/project-analyzer/internal/analysis"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db)
}

func sampleResult() analysis.AnalysisResult {
	return analysis.AnalysisResult{
		MarketValueScore: 0.8,
		AIFrameworkScore: 0.7,
		CodeQualityScore: 0.6,
		ExecutionScore:   0.9,
		OriginalityScore: 0.5,
		Issues: []analysis.Issue{
			{Severity: "high", File: "config.py", Message: "hardcoded credential"},
		},
		Recommendations: []string{"Add rate limiting"},
	}
}

func TestSaveAndLatestForRepo(t *testing.T) {
	repo := newTestRepository(t)

	record := NewProjectAnalysis("https://github.com/a/b", "b", sampleResult(), 0.73, 7.3)
	require.NoError(t, repo.SaveAnalysis(record))

	got, err := repo.LatestForRepo("https://github.com/a/b")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, "b", got.ProjectName)
	assert.InDelta(t, 0.73, got.OverallScore, 1e-9)
	assert.InDelta(t, 7.3, got.DisplayScore, 1e-9)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, "hardcoded credential", got.Issues[0].Message)
	assert.Equal(t, []string{"Add rate limiting"}, got.Recommendations)
}

func TestLatestForRepoReturnsNewest(t *testing.T) {
	repo := newTestRepository(t)

	older := NewProjectAnalysis("https://github.com/a/b", "b", sampleResult(), 0.5, 5.0)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.SaveAnalysis(older))

	newer := NewProjectAnalysis("https://github.com/a/b", "b", sampleResult(), 0.9, 9.0)
	require.NoError(t, repo.SaveAnalysis(newer))

	got, err := repo.LatestForRepo("https://github.com/a/b")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
}

func TestSaveAnalysisDuplicateIDNamesRecord(t *testing.T) {
	repo := newTestRepository(t)

	record := NewProjectAnalysis("https://github.com/a/b", "b", sampleResult(), 0.5, 5.0)
	require.NoError(t, repo.SaveAnalysis(record))

	err := repo.SaveAnalysis(record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), record.ID)
}

func TestLatestForRepoUnknown(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.LatestForRepo("https://github.com/never/seen")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecentAnalysesOrderAndLimit(t *testing.T) {
	repo := newTestRepository(t)

	for i := 0; i < 3; i++ {
		record := NewProjectAnalysis("https://github.com/a/b", "b", sampleResult(), 0.5, 5.0)
		record.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SaveAnalysis(record))
	}

	records, err := repo.RecentAnalyses(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].CreatedAt.After(records[1].CreatedAt))
}

func TestRecentAnalysesDefaultLimit(t *testing.T) {
	repo := newTestRepository(t)

	record := NewProjectAnalysis("https://github.com/a/b", "b", analysis.AnalysisResult{}, 0, 0)
	require.NoError(t, repo.SaveAnalysis(record))

	records, err := repo.RecentAnalyses(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Issues)
	assert.Empty(t, records[0].Recommendations)
}

func TestPoolStats(t *testing.T) {
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	stats := db.GetPoolStats()
	assert.Equal(t, 25, stats["max_open_connections"])
	assert.Equal(t, 5, stats["max_idle_connections"])
}
