package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chronai/project-analyzer/internal/analysis"
)

// Display labels for the five score dimensions.
const (
	LabelMarket      = "Market Success"
	LabelAIFramework = "AI Framework Integration"
	LabelQuality     = "Code Quality"
	LabelExecution   = "Execution Performance"
	LabelOriginality = "Code Originality"
)

// Report is the user-facing view of one analysis run.
type Report struct {
	ProjectName string `json:"project_name"`
	RepoURL     string `json:"repo_url"`

	OverallScore float64 `json:"overall_score"`
	DisplayScore float64 `json:"display_score"`

	DetailedScores map[string]float64 `json:"detailed_scores"`

	Issues          []analysis.Issue `json:"issues,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`

	// FloorApplied is set when strong market traction lifted the overall
	// score to the guaranteed minimum.
	FloorApplied bool `json:"floor_applied"`
}

// Build assembles a report from a validated analysis result and its
// computed overall score.
func Build(projectName, repoURL string, result analysis.AnalysisResult, overall float64) (*Report, error) {
	raw, err := analysis.WeightedSum(result)
	if err != nil {
		return nil, err
	}

	floorApplied := result.MarketValueScore >= analysis.MarketFloorThreshold && raw < analysis.MarketFloorScore

	recommendations := make([]string, 0, len(result.Recommendations)+1)
	if floorApplied {
		recommendations = append(recommendations,
			fmt.Sprintf("Strong market adoption guarantees a minimum score of %.1f/10 despite weaker technical signals", analysis.DisplayScore(analysis.MarketFloorScore)))
	}
	recommendations = append(recommendations, result.Recommendations...)

	return &Report{
		ProjectName:  projectName,
		RepoURL:      repoURL,
		OverallScore: overall,
		DisplayScore: analysis.DisplayScore(overall),
		DetailedScores: map[string]float64{
			LabelMarket:      result.MarketValueScore,
			LabelAIFramework: result.AIFrameworkScore,
			LabelQuality:     result.CodeQualityScore,
			LabelExecution:   result.ExecutionScore,
			LabelOriginality: result.OriginalityScore,
		},
		Issues:          result.Issues,
		Recommendations: recommendations,
		FloorApplied:    floorApplied,
	}, nil
}

// Markdown renders the report for terminal or gist output.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Analysis: %s\n\n", r.ProjectName)
	if r.RepoURL != "" {
		fmt.Fprintf(&b, "Repository: %s\n\n", r.RepoURL)
	}
	fmt.Fprintf(&b, "**Overall Score: %.1f/10**\n\n", r.DisplayScore)

	b.WriteString("## Detailed Scores\n\n")
	labels := make([]string, 0, len(r.DetailedScores))
	for label := range r.DetailedScores {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&b, "- %s: %.1f/10\n", label, analysis.DisplayScore(r.DetailedScores[label]))
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n## Issues\n\n")
		for _, issue := range r.Issues {
			if issue.File != "" {
				fmt.Fprintf(&b, "- [%s] %s (%s)\n", issue.Severity, issue.Message, issue.File)
			} else {
				fmt.Fprintf(&b, "- [%s] %s\n", issue.Severity, issue.Message)
			}
		}
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	return b.String()
}
