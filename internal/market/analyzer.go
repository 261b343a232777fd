package market

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/chronai/project-analyzer/internal/llm"
	"github.com/chronai/project-analyzer/internal/types"
)

// Component weights for the market score.
const (
	weightPopularity = 0.4
	weightAdoption   = 0.4
	weightImpact     = 0.2
)

// NeutralScore is used when no research source is available at all.
const NeutralScore = 0.5

// BoostThreshold is the market score above which a project earns the
// overall-score floor.
const BoostThreshold = 0.8

// Researcher supplies LLM market research.
type Researcher interface {
	AnalyzeMarketContext(ctx context.Context, projectName, repoURL string) llm.MarketAssessment
}

// MetricsFetcher supplies GitHub repository metrics.
type MetricsFetcher interface {
	FetchRepoMetrics(ctx context.Context, repoURL string) (*types.RepoMetrics, error)
}

// Config tunes the metrics-derived fallback and the minimum-score tiers.
type Config struct {
	// PopularityThreshold is the star count treated as full popularity.
	PopularityThreshold int
	// MinPopularScore is the overall minimum granted to projects at or
	// above BoostThreshold, on the [0,1] scale.
	MinPopularScore float64
	// CacheTTL bounds how long a market result is reused.
	CacheTTL time.Duration
}

type cacheEntry struct {
	result   Result
	storedAt time.Time
}

// Result is a market analysis outcome.
type Result struct {
	Score           float64
	IsPopular       bool
	Context         string
	Recommendations []string
}

// Analyzer scores a project's market traction. LLM research is preferred,
// GitHub metrics are the fallback, and a neutral score is the last resort.
type Analyzer struct {
	researcher Researcher
	metrics    MetricsFetcher
	cfg        Config

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewAnalyzer creates a market analyzer. Both researcher and metrics may be
// nil; scoring degrades accordingly.
func NewAnalyzer(researcher Researcher, metrics MetricsFetcher, cfg Config) *Analyzer {
	if cfg.PopularityThreshold <= 0 {
		cfg.PopularityThreshold = 1000
	}
	if cfg.MinPopularScore <= 0 {
		cfg.MinPopularScore = 0.5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &Analyzer{
		researcher: researcher,
		metrics:    metrics,
		cfg:        cfg,
		cache:      make(map[string]cacheEntry),
	}
}

// Score satisfies the analysis pipeline's market contract.
func (a *Analyzer) Score(ctx context.Context, projectName, repoURL string) (float64, []string, error) {
	res := a.Analyze(ctx, projectName, repoURL)
	return res.Score, res.Recommendations, nil
}

// Analyze returns the full market result for a project, cached per
// project+URL for the configured TTL.
func (a *Analyzer) Analyze(ctx context.Context, projectName, repoURL string) Result {
	key := projectName + "|" + repoURL

	a.mu.Lock()
	if entry, ok := a.cache[key]; ok && time.Since(entry.storedAt) < a.cfg.CacheTTL {
		a.mu.Unlock()
		return entry.result
	}
	a.mu.Unlock()

	result := a.analyze(ctx, projectName, repoURL)

	a.mu.Lock()
	a.cache[key] = cacheEntry{result: result, storedAt: time.Now()}
	a.mu.Unlock()

	return result
}

func (a *Analyzer) analyze(ctx context.Context, projectName, repoURL string) Result {
	if a.researcher != nil {
		assessment := a.researcher.AnalyzeMarketContext(ctx, projectName, repoURL)
		score := combine(assessment.PopularityScore, assessment.AdoptionScore, assessment.ImpactScore)
		return Result{
			Score:           score,
			IsPopular:       a.ShouldBoostScore(score),
			Context:         assessment.MarketContext,
			Recommendations: assessment.Recommendations,
		}
	}

	if a.metrics != nil {
		if metrics, err := a.metrics.FetchRepoMetrics(ctx, repoURL); err == nil {
			score := a.scoreFromMetrics(metrics)
			return Result{
				Score:     score,
				IsPopular: a.ShouldBoostScore(score),
				Context:   "Derived from repository metrics",
			}
		} else {
			slog.Warn("Repo metrics unavailable, degrading to neutral market score", "repo", repoURL, "error", err)
		}
	}

	return Result{
		Score:           NeutralScore,
		Context:         "Market analysis unavailable",
		Recommendations: []string{"Enable market research for enhanced results"},
	}
}

// scoreFromMetrics maps raw GitHub numbers onto the popularity, adoption,
// and impact components. Stars saturate at the popularity threshold; forks
// and contributors at a tenth of it.
func (a *Analyzer) scoreFromMetrics(m *types.RepoMetrics) float64 {
	threshold := float64(a.cfg.PopularityThreshold)
	popularity := math.Min(1, float64(m.Stars)/threshold)
	adoption := math.Min(1, float64(m.Forks)/(threshold/10))
	impact := math.Min(1, float64(m.Contributors)/(threshold/10))
	return combine(popularity, adoption, impact)
}

func combine(popularity, adoption, impact float64) float64 {
	score := popularity*weightPopularity + adoption*weightAdoption + impact*weightImpact
	return math.Min(1.0, math.Max(0, score))
}

// ShouldBoostScore reports whether a market score earns the overall floor.
func (a *Analyzer) ShouldBoostScore(score float64) bool {
	return score >= BoostThreshold
}

// MinimumScore returns the minimum overall score a project's market
// traction guarantees it, if any. Only the top tier feeds the aggregator;
// the moderate tier is informational for reports.
func (a *Analyzer) MinimumScore(score float64) (float64, bool) {
	switch {
	case a.ShouldBoostScore(score):
		return a.cfg.MinPopularScore, true
	case score >= 0.6:
		return 0.4, true
	default:
		return 0, false
	}
}
