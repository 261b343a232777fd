package analysis

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		result AnalysisResult
	}{
		{"all zero", AnalysisResult{}},
		{"all one", AnalysisResult{
			MarketValueScore: 1, AIFrameworkScore: 1, CodeQualityScore: 1,
			ExecutionScore: 1, OriginalityScore: 1,
		}},
		{"mixed boundaries", AnalysisResult{
			MarketValueScore: 0, AIFrameworkScore: 1, CodeQualityScore: 0.5,
			ExecutionScore: 1, OriginalityScore: 0,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.result.Validate())
		})
	}
}

func TestValidateNamesOffendingDimension(t *testing.T) {
	r := AnalysisResult{
		MarketValueScore: 0.5,
		ExecutionScore:   -0.2,
	}

	err := r.Validate()
	require.Error(t, err)

	var invalid *InvalidScoreError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "execution_score", invalid.Dimension)
	assert.Equal(t, -0.2, invalid.Value)
	assert.Contains(t, err.Error(), "execution_score")
	assert.Contains(t, err.Error(), "outside [0,1]")
}

func TestValidateRejectsNonFinite(t *testing.T) {
	assert.Error(t, AnalysisResult{MarketValueScore: math.NaN()}.Validate())
	assert.Error(t, AnalysisResult{OriginalityScore: math.Inf(-1)}.Validate())
}

func TestAnalysisResultJSONFieldNames(t *testing.T) {
	r := AnalysisResult{
		MarketValueScore: 0.9,
		AIFrameworkScore: 0.8,
		CodeQualityScore: 0.7,
		ExecutionScore:   0.6,
		OriginalityScore: 0.5,
		Issues:           []Issue{{Severity: "high", File: "app.py", Message: "hardcoded credential"}},
		Recommendations:  []string{"Strong market traction detected"},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "market_value_score")
	assert.Contains(t, decoded, "ai_framework_score")
	assert.Contains(t, decoded, "code_quality_score")
	assert.Contains(t, decoded, "execution_score")
	assert.Contains(t, decoded, "originality_score")
	assert.Contains(t, decoded, "issues")
	assert.Contains(t, decoded, "recommendations")
}
