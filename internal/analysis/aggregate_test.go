package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightSum(t *testing.T) {
	assert.InDelta(t, 1.0, WeightSum(), 1e-9, "dimension weights must sum to 1")
}

func TestCalculateOverallScore(t *testing.T) {
	tests := []struct {
		name     string
		result   AnalysisResult
		expected float64
	}{
		{
			name: "all dimensions perfect",
			result: AnalysisResult{
				MarketValueScore: 1.0,
				AIFrameworkScore: 1.0,
				CodeQualityScore: 1.0,
				ExecutionScore:   1.0,
				OriginalityScore: 1.0,
			},
			expected: 1.0,
		},
		{
			name:     "all dimensions zero",
			result:   AnalysisResult{},
			expected: 0.0,
		},
		{
			name: "strong market with nothing else floors at 0.5",
			result: AnalysisResult{
				MarketValueScore: 0.8,
			},
			// raw weighted sum is 0.24, lifted to the floor
			expected: 0.5,
		},
		{
			name: "perfect market alone floors at 0.5",
			result: AnalysisResult{
				MarketValueScore: 1.0,
			},
			expected: 0.5,
		},
		{
			name: "market just below threshold gets no floor",
			result: AnalysisResult{
				MarketValueScore: 0.79,
			},
			expected: 0.237,
		},
		{
			name: "no market but everything else strong",
			result: AnalysisResult{
				MarketValueScore: 0.0,
				AIFrameworkScore: 1.0,
				CodeQualityScore: 1.0,
				ExecutionScore:   1.0,
				OriginalityScore: 1.0,
			},
			expected: 0.70,
		},
		{
			name: "strong market already above floor is untouched",
			result: AnalysisResult{
				MarketValueScore: 0.9,
				AIFrameworkScore: 0.8,
				CodeQualityScore: 0.8,
				ExecutionScore:   0.8,
				OriginalityScore: 0.8,
			},
			expected: 0.30*0.9 + 0.20*0.8 + 0.20*0.8 + 0.20*0.8 + 0.10*0.8,
		},
		{
			name: "mixed mid-range scores",
			result: AnalysisResult{
				MarketValueScore: 0.5,
				AIFrameworkScore: 0.6,
				CodeQualityScore: 0.7,
				ExecutionScore:   0.4,
				OriginalityScore: 0.3,
			},
			expected: 0.30*0.5 + 0.20*0.6 + 0.20*0.7 + 0.20*0.4 + 0.10*0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overall, err := CalculateOverallScore(tt.result)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, overall, 1e-9)
			assert.GreaterOrEqual(t, overall, 0.0)
			assert.LessOrEqual(t, overall, 1.0)
		})
	}
}

func TestCalculateOverallScoreRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name      string
		result    AnalysisResult
		dimension string
	}{
		{
			name:      "market above one",
			result:    AnalysisResult{MarketValueScore: 1.2},
			dimension: "market_value_score",
		},
		{
			name:      "negative quality",
			result:    AnalysisResult{CodeQualityScore: -0.1},
			dimension: "code_quality_score",
		},
		{
			name:      "NaN execution",
			result:    AnalysisResult{ExecutionScore: math.NaN()},
			dimension: "execution_score",
		},
		{
			name:      "infinite originality",
			result:    AnalysisResult{OriginalityScore: math.Inf(1)},
			dimension: "originality_score",
		},
		{
			name:      "ai framework barely over",
			result:    AnalysisResult{AIFrameworkScore: 1.0000001},
			dimension: "ai_framework_score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateOverallScore(tt.result)
			require.Error(t, err)

			var invalid *InvalidScoreError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.dimension, invalid.Dimension)
		})
	}
}

// Raising any single sub-score while holding the others fixed never lowers
// the overall score.
func TestCalculateOverallScoreMonotonic(t *testing.T) {
	base := AnalysisResult{
		MarketValueScore: 0.3,
		AIFrameworkScore: 0.4,
		CodeQualityScore: 0.5,
		ExecutionScore:   0.6,
		OriginalityScore: 0.2,
	}
	baseline, err := CalculateOverallScore(base)
	require.NoError(t, err)

	bumps := []struct {
		name string
		bump func(r *AnalysisResult)
	}{
		{"market", func(r *AnalysisResult) { r.MarketValueScore += 0.3 }},
		{"ai framework", func(r *AnalysisResult) { r.AIFrameworkScore += 0.3 }},
		{"code quality", func(r *AnalysisResult) { r.CodeQualityScore += 0.3 }},
		{"execution", func(r *AnalysisResult) { r.ExecutionScore += 0.3 }},
		{"originality", func(r *AnalysisResult) { r.OriginalityScore += 0.3 }},
	}

	for _, b := range bumps {
		t.Run(b.name, func(t *testing.T) {
			bumped := base
			b.bump(&bumped)
			overall, err := CalculateOverallScore(bumped)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, overall, baseline)
		})
	}
}

func TestWeightedSumSkipsFloor(t *testing.T) {
	r := AnalysisResult{MarketValueScore: 0.8}

	raw, err := WeightedSum(r)
	require.NoError(t, err)
	assert.InDelta(t, 0.24, raw, 1e-9)

	floored, err := CalculateOverallScore(r)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, floored, 1e-9)
}

func TestDisplayScore(t *testing.T) {
	assert.InDelta(t, 5.0, DisplayScore(0.5), 1e-9)
	assert.InDelta(t, 10.0, DisplayScore(1.0), 1e-9)
	assert.InDelta(t, 0.0, DisplayScore(0.0), 1e-9)
	assert.InDelta(t, 2.4, DisplayScore(0.24), 1e-9)
}
