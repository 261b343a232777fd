package execution

import (
	"context"
	"go/parser"
	"go/token"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chronai/project-analyzer/internal/workspace"
)

// Component weights. Implementation evidence dominates because an AI
// project that cannot run a model scores well on nothing else here.
const (
	weightSyntax         = 0.25
	weightImplementation = 0.65
	weightDependencies   = 0.10
)

// Dependency manifest tiers.
const (
	depsScoreLocked   = 1.0
	depsScoreManifest = 0.7
	depsScoreNone     = 0.2
)

// Verifier estimates whether the project would actually execute its AI
// operations: parseable sources, real model plumbing, and pinned
// dependencies.
type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// Score combines syntax sanity, AI implementation checks, and dependency
// manifests into an execution readiness score in [0,1].
func (v *Verifier) Score(ctx context.Context, dir string) (float64, error) {
	files, err := workspace.ListSourceFiles(dir)
	if err != nil {
		return 0, err
	}

	syntax := checkSyntax(files)
	implementation := checkImplementation(ctx, files)
	deps := checkDependencies(dir)

	score := syntax*weightSyntax + implementation*weightImplementation + deps*weightDependencies
	return math.Min(1.0, score), nil
}

// checkSyntax returns the fraction of source files that parse. Go files go
// through the real parser; other languages get a delimiter balance check.
func checkSyntax(files []string) float64 {
	if len(files) == 0 {
		return 0
	}

	valid := 0
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if strings.ToLower(filepath.Ext(path)) == ".go" {
			fset := token.NewFileSet()
			if _, err := parser.ParseFile(fset, path, content, parser.SkipObjectResolution); err == nil {
				valid++
			}
			continue
		}
		if delimitersBalanced(string(content)) {
			valid++
		}
	}
	return float64(valid) / float64(len(files))
}

// delimitersBalanced checks bracket pairing outside string literals.
// Cheap stand-in for a real parser across languages.
func delimitersBalanced(content string) bool {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var inString rune

	for _, r := range content {
		if inString != 0 {
			if r == inString {
				inString = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			inString = r
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

var (
	modelInitPatterns = compile(
		`CompletionModel::new`,
		`EmbeddingModel::new`,
		`Agent::new`,
		`model\s*=\s*[A-Za-z]+Model\(`,
		`torch\.nn\.Module`,
		`keras\.Model`,
		`openai\.New\(`,
	)
	inferencePatterns = compile(
		`async\s+fn\s+completion`,
		`async\s+fn\s+embed`,
		`fn\s+forward`,
		`def\s+predict`,
		`def\s+forward`,
		`model\.predict`,
		`GenerateContent\(`,
	)
	aiErrorPatterns = compile(
		`CompletionError`,
		`EmbeddingError`,
		`Result<.*Response`,
		`(?s)try:.*except\s+(torch|tensorflow|transformers)`,
	)
	modelConfigPatterns = compile(
		`temperature\s*=`,
		`max_tokens\s*=`,
		`model_name\s*=`,
		`batch_size\s*=`,
		`learning_rate\s*=`,
		`WithModel\(`,
	)
)

// checkImplementation scores AI plumbing depth. Each file with any AI
// signal contributes the fraction of the four checks it passes; files with
// no signal at all are ignored so utility code does not dilute the score.
func checkImplementation(ctx context.Context, files []string) float64 {
	var total float64
	counted := 0

	for _, path := range files {
		if ctx.Err() != nil {
			return 0
		}
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := string(content)

		passed := 0
		for _, checks := range [][]*regexp.Regexp{
			modelInitPatterns, inferencePatterns, aiErrorPatterns, modelConfigPatterns,
		} {
			if matchesAny(checks, text) {
				passed++
			}
		}
		if passed > 0 {
			total += float64(passed) / 4
			counted++
		}
	}

	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

var manifestNames = []string{
	"requirements.txt", "pyproject.toml", "setup.py", "Pipfile",
	"package.json", "Cargo.toml", "go.mod",
}

var lockfileNames = []string{
	"poetry.lock", "Pipfile.lock", "uv.lock",
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"Cargo.lock", "go.sum",
}

// checkDependencies grades dependency management: a manifest with a
// lockfile scores full marks, a bare manifest partial, neither is a red flag.
func checkDependencies(dir string) float64 {
	hasManifest := anyExists(dir, manifestNames)
	if !hasManifest {
		return depsScoreNone
	}
	if anyExists(dir, lockfileNames) {
		return depsScoreLocked
	}
	return depsScoreManifest
}

func anyExists(dir string, names []string) bool {
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
