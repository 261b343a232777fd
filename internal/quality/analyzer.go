package quality

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chronai/project-analyzer/internal/workspace"
)

// minPassingScore is what an unparseable file contributes so one broken
// file cannot zero out the repository.
const minPassingScore = 0.1

// Analyzer scores static code quality per language and averages over the
// repository's source files.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Score walks dir and returns the mean per-file quality in [0,1].
// Returns 0 when the repository has no analyzable source files; otherwise
// the result is floored at minPassingScore.
func (a *Analyzer) Score(ctx context.Context, dir string) (float64, error) {
	files, err := workspace.ListSourceFiles(dir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}

	var total float64
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Skipping unreadable file in quality scan", "file", path, "error", err)
			total += minPassingScore
			continue
		}
		total += scoreFile(path, string(content))
	}

	return math.Max(minPassingScore, total/float64(len(files))), nil
}

func scoreFile(path, content string) float64 {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return pythonQuality(content)
	case ".ts", ".tsx", ".js", ".jsx":
		return typescriptQuality(content)
	case ".rs":
		return rustQuality(content)
	case ".go":
		return goQuality(content)
	default:
		return minPassingScore
	}
}

var (
	pyFuncRe   = regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+\w+`)
	pyBranchRe = regexp.MustCompile(`(?m)\b(if|elif|for|while|except|with|and|or)\b`)
)

// pythonQuality estimates complexity from branch density, maintainability
// from function length, and rewards comment coverage.
func pythonQuality(content string) float64 {
	lines := strings.Split(content, "\n")
	var lloc, comments int
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			comments++
			continue
		}
		lloc++
	}

	funcs := len(pyFuncRe.FindAllString(content, -1))
	branches := len(pyBranchRe.FindAllString(content, -1))
	avgComplexity := 1 + float64(branches)/math.Max(1, float64(funcs))
	complexityScore := math.Max(0, 1-avgComplexity/10)

	avgFuncLen := float64(lloc) / math.Max(1, float64(funcs))
	maintainability := clamp01(1 - (avgFuncLen-20)/80)

	docRatio := float64(comments) / math.Max(1, float64(lloc))
	docScore := math.Min(1, docRatio*2)

	return complexityScore*0.4 + maintainability*0.4 + docScore*0.2
}

var (
	tsTypePatterns = compile(
		`interface\s+\w+`,
		`type\s+\w+\s*=`,
		`:\s*(string|number|boolean|any)\b`,
		`<\w+\s*extends\s*\w+>`,
		`as\s+const`,
	)
	tsComponentPatterns = compile(
		`export\s+(default\s+)?function\s+\w+`,
		`const\s+\w+\s*=\s*\([^)]*\)\s*:`,
		`useState<`,
		`useEffect`,
		`Props>`,
	)
	tsErrorPatterns = compile(
		`try\s*\{`,
		`catch\s*\(`,
		`throw\s+new\s+Error`,
		`Promise\.catch`,
		`Error>`,
	)
)

func typescriptQuality(content string) float64 {
	docScore := commentRatioScore(content, "//", "/*")
	typeScore := fractionMatching(tsTypePatterns, content)
	componentScore := fractionMatching(tsComponentPatterns, content)
	errorScore := fractionMatching(tsErrorPatterns, content)

	return docScore*0.2 + typeScore*0.3 + componentScore*0.3 + errorScore*0.2
}

var (
	rustErrorPatterns = compile(
		`Result<.*>`,
		`Option<.*>`,
		`match .*`,
		`\.unwrap_or\(`,
		`\.unwrap_or_else\(`,
		`\.map_err\(`,
	)
	rustTypePatterns = compile(
		`pub struct .*`,
		`pub enum .*`,
		`pub trait .*`,
		`pub fn .*`,
		`impl .*`,
	)
)

func rustQuality(content string) float64 {
	docScore := commentRatioScore(content, "//", "/*", "///")
	errorScore := fractionMatching(rustErrorPatterns, content)
	typeScore := fractionMatching(rustTypePatterns, content)

	return docScore*0.3 + errorScore*0.4 + typeScore*0.3
}

var (
	goErrorPatterns = compile(
		`if err != nil`,
		`fmt\.Errorf`,
		`errors\.(New|Is|As)`,
		`%w`,
		`\breturn .*err\b`,
	)
	goTypePatterns = compile(
		`type \w+ struct`,
		`type \w+ interface`,
		`func \(\w+ \*?\w+\)`,
		`func [A-Z]\w*\(`,
		`const \(`,
	)
)

func goQuality(content string) float64 {
	docScore := commentRatioScore(content, "//")
	errorScore := fractionMatching(goErrorPatterns, content)
	typeScore := fractionMatching(goTypePatterns, content)

	return docScore*0.3 + errorScore*0.4 + typeScore*0.3
}

// commentRatioScore doubles the comment-to-line ratio, capped at 1, so a
// file that is half comments earns full documentation credit.
func commentRatioScore(content string, prefixes ...string) float64 {
	lines := strings.Split(content, "\n")
	total := len(lines)
	var comments int
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				comments++
				break
			}
		}
	}
	ratio := float64(comments) / math.Max(1, float64(total))
	return math.Min(1, ratio*2)
}

func fractionMatching(patterns []*regexp.Regexp, content string) float64 {
	n := 0
	for _, p := range patterns {
		if p.MatchString(content) {
			n++
		}
	}
	return float64(n) / float64(len(patterns))
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
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
