package analysis

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Scorer scores one dimension of a checked-out repository tree.
type Scorer interface {
	Score(ctx context.Context, dir string) (float64, error)
}

// IssueScorer scores a dimension and reports the findings behind the score.
type IssueScorer interface {
	Score(ctx context.Context, dir string) (float64, []Issue, error)
}

// MarketScorer scores market adoption for a repository. Implementations are
// expected to degrade to a neutral score instead of failing the analysis.
type MarketScorer interface {
	Score(ctx context.Context, projectName, repoURL string) (float64, []string, error)
}

// Pipeline runs the five dimension analyzers over a repository and
// assembles their outputs into an AnalysisResult.
type Pipeline struct {
	market       MarketScorer
	authenticity Scorer
	quality      Scorer
	execution    Scorer
	originality  IssueScorer
}

// NewPipeline creates a pipeline from the five dimension analyzers.
func NewPipeline(market MarketScorer, authenticity, quality, execution Scorer, originality IssueScorer) *Pipeline {
	return &Pipeline{
		market:       market,
		authenticity: authenticity,
		quality:      quality,
		execution:    execution,
		originality:  originality,
	}
}

// Analyze scores the repository at dir along all five dimensions
// concurrently. repoURL identifies the project for market research.
// The returned result is validated; a sub-score outside [0,1] is a bug in
// the producing analyzer and fails the analysis.
func (p *Pipeline) Analyze(ctx context.Context, projectName, repoURL, dir string) (AnalysisResult, error) {
	var (
		result     AnalysisResult
		marketRecs []string
		issues     []Issue
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		score, recs, err := p.market.Score(gctx, projectName, repoURL)
		if err != nil {
			return err
		}
		result.MarketValueScore = score
		marketRecs = recs
		return nil
	})

	g.Go(func() error {
		score, err := p.authenticity.Score(gctx, dir)
		if err != nil {
			return err
		}
		result.AIFrameworkScore = score
		return nil
	})

	g.Go(func() error {
		score, err := p.quality.Score(gctx, dir)
		if err != nil {
			return err
		}
		result.CodeQualityScore = score
		return nil
	})

	g.Go(func() error {
		score, err := p.execution.Score(gctx, dir)
		if err != nil {
			return err
		}
		result.ExecutionScore = score
		return nil
	})

	g.Go(func() error {
		score, found, err := p.originality.Score(gctx, dir)
		if err != nil {
			return err
		}
		result.OriginalityScore = score
		issues = found
		return nil
	})

	if err := g.Wait(); err != nil {
		return AnalysisResult{}, err
	}

	result.Issues = issues
	result.Recommendations = marketRecs

	if err := result.Validate(); err != nil {
		return AnalysisResult{}, err
	}

	slog.Info("Analysis pipeline completed",
		"project", projectName,
		"market", result.MarketValueScore,
		"ai_framework", result.AIFrameworkScore,
		"code_quality", result.CodeQualityScore,
		"execution", result.ExecutionScore,
		"originality", result.OriginalityScore)

	return result, nil
}
