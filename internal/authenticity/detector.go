package authenticity

import (
	"context"
	"log/slog"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/chronai/project-analyzer/internal/workspace"
)

// framework describes how usage of one AI framework shows up in source code.
// Import hits grant 0.2 of the framework score, basic patterns up to 0.3,
// advanced patterns up to 0.5, scaled by the framework weight.
type framework struct {
	name     string
	imports  []*regexp.Regexp
	basic    []*regexp.Regexp
	advanced []*regexp.Regexp
	weight   float64
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?im)`+p))
	}
	return out
}

var knownFrameworks = []framework{
	{
		name:    "tensorflow",
		imports: compileAll(`import\s+tensorflow`, `import\s+tf`, `from\s+tensorflow`),
		basic: compileAll(`model\s*=\s*tf`, `keras\.Sequential`, `keras\.layers`,
			`keras\.Model`, `tf\.keras`, `Sequential\s*\(\s*\)`),
		advanced: compileAll(`class\s+\w+\s*\(\s*tf\.keras\.Model\s*\)`, `tf\.GradientTape`,
			`@tf\.function`, `custom_training_loop`, `tf\.data\.Dataset`),
		weight: 1.0,
	},
	{
		name:    "pytorch",
		imports: compileAll(`import\s+torch`, `from\s+torch`, `import\s+torch\.nn`),
		basic: compileAll(`torch\.nn`, `nn\.`, `torch\.optim`, `model\.forward`,
			`torch\.utils\.data`, `Module\s*\(`, `Linear\s*\(`),
		advanced: compileAll(`class\s+\w+\s*\(\s*nn\.Module\s*\)`, `torch\.autograd`,
			`@torch\.jit\.script`, `custom_loss`, `torch\.cuda`),
		weight: 1.0,
	},
	{
		name:    "transformers",
		imports: compileAll(`from\s+transformers`, `import\s+transformers`),
		basic: compileAll(`AutoModel\s*\.`, `AutoTokenizer\s*\.`, `pipeline\s*\(`,
			`from_pretrained\s*\(`, `PreTrainedModel\s*\(`, `transformers\.`),
		advanced: compileAll(`class\s+\w+\s*\(\s*PreTrainedModel\s*\)`, `custom_head`,
			`trainer\.train`, `model\.train`, `custom_tokens`),
		weight: 0.9,
	},
	{
		name: "openai",
		imports: compileAll(`import\s+openai`, `from\s+openai`, `OpenAI`,
			`import\s*\{\s*Configuration,\s*OpenAIApi\s*\}`),
		basic: compileAll(`openai\.Completion\.create`, `openai\.ChatCompletion\.create`,
			`new\s+OpenAI\s*\(\s*\)`, `OpenAIApi`, `gpt-4`, `gpt-3\.5-turbo`,
			`createChatCompletion`, `createCompletion`),
		advanced: compileAll(`fine_tuning`, `custom_prompts`, `system_messages`,
			`context_window`, `token_handling`),
		weight: 0.5,
	},
	{
		name:    "langchain",
		imports: compileAll(`from\s+langchain`, `import\s+langchain`, `import\s*\{\s*LangChain\s*\}`),
		basic: compileAll(`LLMChain`, `PromptTemplate`, `ChatPromptTemplate`,
			`VectorStore`, `Embeddings`, `BaseLanguageModel`),
		advanced: compileAll(`custom_chain`, `custom_agent`, `custom_tool`,
			`memory_implementation`, `custom_retriever`),
		weight: 0.7,
	},
	{
		name:    "rig",
		imports: compileAll(`use rig`, `from rig`),
		basic:   compileAll(`CompletionModel`, `EmbeddingModel`, `Agent`, `VectorStore`),
		advanced: compileAll(`custom_provider`, `custom_model`, `custom_agent`,
			`custom_store`, `custom_embedding`),
		weight: 0.8,
	},
}

// CodeAssessor supplies an LLM judgment of how substantive the AI usage is.
type CodeAssessor interface {
	AssessAuthenticity(ctx context.Context, sample string) (float64, error)
}

// Detector scores how deeply a repository actually implements AI frameworks,
// as opposed to mentioning them. Pattern evidence dominates; when an
// assessor is configured its judgment is blended in at 30%.
type Detector struct {
	assessor CodeAssessor
}

// NewDetector creates a detector. assessor may be nil for pattern-only scoring.
func NewDetector(assessor CodeAssessor) *Detector {
	return &Detector{assessor: assessor}
}

// Score analyzes AI implementation depth across the source files under dir.
// Returns 0 when no framework usage is found.
func (d *Detector) Score(ctx context.Context, dir string) (float64, error) {
	files, err := workspace.ListSourceFiles(dir)
	if err != nil {
		return 0, err
	}

	patternScore := d.patternScore(files)
	if d.assessor == nil {
		return patternScore, nil
	}

	sample := buildSample(files)
	if sample == "" {
		return patternScore, nil
	}

	assessed, err := d.assessor.AssessAuthenticity(ctx, sample)
	if err != nil {
		slog.Warn("Authenticity assessment degraded to pattern score", "error", err)
		return patternScore, nil
	}

	blended := 0.7*patternScore + 0.3*clamp01(assessed)
	return math.Min(1.0, blended), nil
}

// patternScore combines per-framework implementation evidence with breadth
// of framework coverage. Two frameworks earn a 1.2x depth bonus, three or
// more 1.4x.
func (d *Detector) patternScore(files []string) float64 {
	frameworkScores := map[string]float64{}
	detected := map[string]bool{}

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := string(content)

		for _, fw := range knownFrameworks {
			score := 0.0
			imported := matchesAny(fw.imports, text)
			if imported {
				score += 0.2
			}
			if n := countMatches(fw.basic, text); n > 0 {
				score += math.Min(0.3, float64(n)*0.1)
			}
			if n := countMatches(fw.advanced, text); n > 0 {
				score += math.Min(0.5, float64(n)*0.1)
			}
			score *= fw.weight

			if score > 0 {
				if score > frameworkScores[fw.name] {
					frameworkScores[fw.name] = score
				}
				if imported || score > 0.2 {
					detected[fw.name] = true
				}
			}
		}
	}

	if len(detected) == 0 {
		return 0.0
	}

	depth := implementationDepth(detected)

	var total float64
	for _, s := range frameworkScores {
		total += s
	}
	coverage := total / float64(len(frameworkScores))

	return math.Min(1.0, (depth+coverage)/2)
}

func implementationDepth(detected map[string]bool) float64 {
	var totalWeight float64
	for _, fw := range knownFrameworks {
		if detected[fw.name] {
			totalWeight += fw.weight
		}
	}
	depth := totalWeight / float64(len(detected))

	switch {
	case len(detected) >= 3:
		depth *= 1.4
	case len(detected) == 2:
		depth *= 1.2
	}
	return math.Min(1.0, depth)
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

// buildSample concatenates the leading bytes of a handful of source files
// so the assessor sees representative code without blowing the token budget.
func buildSample(files []string) string {
	const (
		maxFiles       = 5
		maxBytesPer    = 2000
		maxTotalSample = 8000
	)

	var b strings.Builder
	for i, path := range files {
		if i >= maxFiles || b.Len() >= maxTotalSample {
			break
		}
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if len(content) > maxBytesPer {
			content = content[:maxBytesPer]
		}
		b.Write(content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
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
