package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/chronai/project-analyzer/internal/analysis"
)

// ProjectAnalysis is one persisted analysis run.
type ProjectAnalysis struct {
	ID          string `json:"id"`
	RepoURL     string `json:"repo_url"`
	ProjectName string `json:"project_name"`

	MarketValueScore float64 `json:"market_value_score"`
	AIFrameworkScore float64 `json:"ai_framework_score"`
	CodeQualityScore float64 `json:"code_quality_score"`
	ExecutionScore   float64 `json:"execution_score"`
	OriginalityScore float64 `json:"originality_score"`
	OverallScore     float64 `json:"overall_score"`
	DisplayScore     float64 `json:"display_score"`

	Issues          []analysis.Issue `json:"issues,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewProjectAnalysis builds a persistable record from a pipeline result.
func NewProjectAnalysis(repoURL, projectName string, result analysis.AnalysisResult, overall, display float64) *ProjectAnalysis {
	return &ProjectAnalysis{
		ID:               uuid.New().String(),
		RepoURL:          repoURL,
		ProjectName:      projectName,
		MarketValueScore: result.MarketValueScore,
		AIFrameworkScore: result.AIFrameworkScore,
		CodeQualityScore: result.CodeQualityScore,
		ExecutionScore:   result.ExecutionScore,
		OriginalityScore: result.OriginalityScore,
		OverallScore:     overall,
		DisplayScore:     display,
		Issues:           result.Issues,
		Recommendations:  result.Recommendations,
		CreatedAt:        time.Now().UTC(),
	}
}

// issuesJSON serializes issues for the TEXT column. Nil slices round-trip
// as empty strings.
func issuesJSON(issues []analysis.Issue) (string, error) {
	if len(issues) == 0 {
		return "", nil
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func recommendationsJSON(recs []string) (string, error) {
	if len(recs) == 0 {
		return "", nil
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parseIssues(raw string) ([]analysis.Issue, error) {
	if raw == "" {
		return nil, nil
	}
	var issues []analysis.Issue
	if err := json.Unmarshal([]byte(raw), &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func parseRecommendations(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var recs []string
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
