package originality

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"github.com/chronai/project-analyzer/internal/analysis"
	"github.com/chronai/project-analyzer/internal/workspace"
)

// Per-file scoring starts neutral; risk hits pull it down, hygiene signals
// pull it up.
const (
	neutralFileScore = 0.7
	riskPenalty      = 0.15
	hygieneReward    = 0.10
)

type riskPattern struct {
	re       *regexp.Regexp
	severity string
	message  string
}

var riskPatterns = []riskPattern{
	{
		re:       regexp.MustCompile(`(API_KEY|OPENAI_KEY|SECRET_KEY)\s*=\s*["'][^"']+["']`),
		severity: "high",
		message:  "hardcoded credential",
	},
	{
		re:       regexp.MustCompile("`SELECT.*\\$\\{"),
		severity: "high",
		message:  "SQL built from template interpolation",
	},
	{
		re:       regexp.MustCompile(`dangerouslySetInnerHTML`),
		severity: "medium",
		message:  "raw HTML injection sink",
	},
	{
		re:       regexp.MustCompile(`\beval\s*\(`),
		severity: "medium",
		message:  "eval of dynamic code",
	},
}

var hygienePatterns = []*regexp.Regexp{
	regexp.MustCompile(`helmet\(`),
	regexp.MustCompile(`csrf`),
	regexp.MustCompile(`RateLimit|rateLimiter`),
	regexp.MustCompile(`zod|yup|joi|validate`),
}

// OriginalityAssessor supplies an LLM judgment of how original the code is
// versus copied boilerplate.
type OriginalityAssessor interface {
	AssessOriginality(ctx context.Context, sample string) (float64, error)
}

// Detector scores code originality and hygiene: penalizing copy-paste
// security smells, rewarding deliberate hardening. Findings surface as
// issues on the analysis result.
type Detector struct {
	assessor OriginalityAssessor
}

// NewDetector creates a detector. assessor may be nil for pattern-only scoring.
func NewDetector(assessor OriginalityAssessor) *Detector {
	return &Detector{assessor: assessor}
}

// Score walks dir and returns the mean per-file originality in [0,1] plus
// the findings behind it. Returns 0 with no issues for an empty repository.
func (d *Detector) Score(ctx context.Context, dir string) (float64, []analysis.Issue, error) {
	files, err := workspace.ListSourceFiles(dir)
	if err != nil {
		return 0, nil, err
	}
	if len(files) == 0 {
		return 0, nil, nil
	}

	var (
		total  float64
		issues []analysis.Issue
	)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Skipping unreadable file in originality scan", "file", path, "error", err)
			continue
		}

		score, found := scoreFile(dir, path, string(content))
		total += score
		issues = append(issues, found...)
	}

	patternScore := total / float64(len(files))

	if d.assessor != nil {
		if assessed, err := d.assessor.AssessOriginality(ctx, buildSample(files)); err == nil {
			patternScore = math.Min(1.0, 0.7*patternScore+0.3*clamp01(assessed))
		} else {
			slog.Warn("Originality assessment degraded to pattern score", "error", err)
		}
	}

	return patternScore, issues, nil
}

func scoreFile(dir, path, content string) (float64, []analysis.Issue) {
	score := neutralFileScore
	var issues []analysis.Issue

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = path
	}

	for _, rp := range riskPatterns {
		if rp.re.MatchString(content) {
			score -= riskPenalty
			issues = append(issues, analysis.Issue{
				Severity: rp.severity,
				File:     filepath.ToSlash(rel),
				Message:  rp.message,
			})
		}
	}
	for _, hp := range hygienePatterns {
		if hp.MatchString(content) {
			score += hygieneReward
		}
	}

	return clamp01(score), issues
}

func buildSample(files []string) string {
	const (
		maxFiles    = 5
		maxBytesPer = 2000
	)
	var out []byte
	for i, path := range files {
		if i >= maxFiles {
			break
		}
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if len(content) > maxBytesPer {
			content = content[:maxBytesPer]
		}
		out = append(out, content...)
		out = append(out, '\n', '\n')
	}
	return string(out)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
