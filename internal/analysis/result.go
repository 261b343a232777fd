package analysis

import (
	"fmt"
	"math"
)

// Issue is a single finding surfaced during analysis.
type Issue struct {
	Severity string `json:"severity"`
	File     string `json:"file,omitempty"`
	Message  string `json:"message"`
}

// AnalysisResult holds the five sub-scores produced by the analyzers.
// Each score is normalized to [0,1]. A result is immutable once produced;
// the aggregator only reads it.
//
// OriginalityScore carries what older tooling called the "security" score:
// the detector behind it measures copied-boilerplate and code-hygiene
// signals, so it is named for what it actually represents.
type AnalysisResult struct {
	MarketValueScore float64 `json:"market_value_score"`
	AIFrameworkScore float64 `json:"ai_framework_score"`
	CodeQualityScore float64 `json:"code_quality_score"`
	ExecutionScore   float64 `json:"execution_score"`
	OriginalityScore float64 `json:"originality_score"`

	Issues          []Issue  `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// InvalidScoreError reports a sub-score outside [0,1]. It signals a defect
// in the producing analyzer, not a user-correctable condition.
type InvalidScoreError struct {
	Dimension string
	Value     float64
}

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("invalid %s: %v is outside [0,1]", e.Dimension, e.Value)
}

// Validate checks that every sub-score is finite and within [0,1].
// Out-of-range values are never clamped; they surface as an
// *InvalidScoreError naming the offending dimension.
func (r AnalysisResult) Validate() error {
	dims := []struct {
		name  string
		value float64
	}{
		{"market_value_score", r.MarketValueScore},
		{"ai_framework_score", r.AIFrameworkScore},
		{"code_quality_score", r.CodeQualityScore},
		{"execution_score", r.ExecutionScore},
		{"originality_score", r.OriginalityScore},
	}

	for _, d := range dims {
		if math.IsNaN(d.value) || math.IsInf(d.value, 0) || d.value < 0 || d.value > 1 {
			return &InvalidScoreError{Dimension: d.name, Value: d.value}
		}
	}
	return nil
}
