package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 5, cfg.MaxLLMCallsHour)
	assert.Equal(t, 1000, cfg.PopularityThreshold)
	assert.InDelta(t, 0.5, cfg.MinPopularScore, 1e-9)
	assert.Equal(t, 24*time.Hour, cfg.MarketCacheTTL)
	assert.Equal(t, 15*time.Minute, cfg.ResponseCacheTTL)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "9090"
data_dir: /var/lib/analyzer
max_llm_calls_per_hour: 10
popularity_threshold: 500
min_popular_score: 0.6
market_cache_ttl: 12h
response_cache_ttl: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/var/lib/analyzer", cfg.DataDir)
	assert.Equal(t, 10, cfg.MaxLLMCallsHour)
	assert.Equal(t, 500, cfg.PopularityThreshold)
	assert.InDelta(t, 0.6, cfg.MinPopularScore, 1e-9)
	assert.Equal(t, 12*time.Hour, cfg.MarketCacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.ResponseCacheTTL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`port: "9090"`), 0644))

	t.Setenv("PORT", "7070")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("MAX_LLM_CALLS_PER_HOUR", "20")
	t.Setenv("LLM_CACHE_TTL", "1h")
	t.Setenv("MARKET_CACHE_TTL", "6h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "ghp_test", cfg.GitHubToken)
	assert.Equal(t, 20, cfg.MaxLLMCallsHour)
	assert.Equal(t, time.Hour, cfg.LLMCacheTTL)
	assert.Equal(t, 6*time.Hour, cfg.MarketCacheTTL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	t.Setenv("MIN_POPULAR_SCORE", "1.5")
	_, err := Load("")
	assert.Error(t, err)
}
