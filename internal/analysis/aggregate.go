package analysis

// Dimension weights. Market adoption dominates; originality is a tiebreaker.
const (
	WeightMarketValue = 0.30
	WeightAIFramework = 0.20
	WeightCodeQuality = 0.20
	WeightExecution   = 0.20
	WeightOriginality = 0.10
)

// Strong market validation guarantees a floor of 5.0/10 on the display scale.
const (
	MarketFloorThreshold = 0.8
	MarketFloorScore     = 0.5
)

// WeightSum returns the total of the dimension weights. Kept exported so
// callers can assert the invariant that weights sum to 1.
func WeightSum() float64 {
	return WeightMarketValue + WeightAIFramework + WeightCodeQuality +
		WeightExecution + WeightOriginality
}

// WeightedSum computes the raw weighted combination of the five sub-scores
// without the market floor. Returns an *InvalidScoreError if any sub-score
// is outside [0,1].
func WeightedSum(r AnalysisResult) (float64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	sum := WeightMarketValue*r.MarketValueScore +
		WeightAIFramework*r.AIFrameworkScore +
		WeightCodeQuality*r.CodeQualityScore +
		WeightExecution*r.ExecutionScore +
		WeightOriginality*r.OriginalityScore

	return sum, nil
}

// CalculateOverallScore combines the five sub-scores into a single overall
// score in [0,1]. When the market value score is at or above
// MarketFloorThreshold the result is floored at MarketFloorScore.
// Pure over valid inputs; no side effects.
func CalculateOverallScore(r AnalysisResult) (float64, error) {
	overall, err := WeightedSum(r)
	if err != nil {
		return 0, err
	}

	if r.MarketValueScore >= MarketFloorThreshold && overall < MarketFloorScore {
		overall = MarketFloorScore
	}

	return overall, nil
}

// DisplayScore scales an overall score in [0,1] to the user-facing 0-10 range.
func DisplayScore(overall float64) float64 {
	return overall * 10
}
