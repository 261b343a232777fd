package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

const codeSystemPrompt = `You are an expert code analyzer focused on:
1. Identifying AI/ML implementations
2. Detecting code quality issues
3. Finding potential plagiarism
4. Assessing code executability

Provide analysis in JSON format with these keys:
- ai_score: float 0-1
- quality_score: float 0-1
- originality_score: float 0-1
- execution_score: float 0-1
- market_value: float 0-1
- findings: list of strings
- recommendations: list of strings`

const marketSystemPrompt = `You are an expert at analyzing AI project market success.
Focus on:
1. Project popularity (GitHub stars, forks)
2. Community adoption and engagement
3. Industry recognition and impact
4. Market presence and growth

Provide analysis in JSON format with:
- popularity_score: float 0-1
- adoption_score: float 0-1
- impact_score: float 0-1
- market_context: string
- recommendations: list of strings`

// CodeAssessment is the model's judgment of a code sample.
type CodeAssessment struct {
	AIScore          float64  `json:"ai_score"`
	QualityScore     float64  `json:"quality_score"`
	OriginalityScore float64  `json:"originality_score"`
	ExecutionScore   float64  `json:"execution_score"`
	MarketValue      float64  `json:"market_value"`
	Findings         []string `json:"findings"`
	Recommendations  []string `json:"recommendations"`
}

// MarketAssessment is the model's judgment of a project's market traction.
type MarketAssessment struct {
	PopularityScore float64  `json:"popularity_score"`
	AdoptionScore   float64  `json:"adoption_score"`
	ImpactScore     float64  `json:"impact_score"`
	MarketContext   string   `json:"market_context"`
	Recommendations []string `json:"recommendations"`
}

// contentGenerator is the slice of the langchaingo model surface the client
// needs. Satisfied by llms.Model; stubbed in tests.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Metrics counts outbound model API calls.
type Metrics interface {
	IncrementLLMCalls()
}

// Config holds the LLM client settings.
type Config struct {
	APIKey          string
	Model           string
	MaxCallsPerHour int
	CacheDir        string
	CacheTTL        time.Duration
}

// Client talks to an OpenAI-compatible chat model with a per-hour call
// budget and a persistent response cache. Every failure path degrades to a
// deterministic neutral payload so analysis never blocks on the model.
type Client struct {
	model    contentGenerator
	limiter  *rate.Limiter
	cacheDir string
	cacheTTL time.Duration
	metrics  Metrics
}

// New creates a client from cfg. The cache directory is created when set;
// metrics may be nil.
func New(cfg Config, metrics Metrics) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key not configured")
	}
	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: init model: %w", err)
	}
	return newWithModel(model, cfg, metrics)
}

func newWithModel(model contentGenerator, cfg Config, metrics Metrics) (*Client, error) {
	maxCalls := cfg.MaxCallsPerHour
	if maxCalls <= 0 {
		maxCalls = 5
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("llm: create cache dir: %w", err)
		}
	}
	return &Client{
		model:    model,
		limiter:  rate.NewLimiter(rate.Limit(float64(maxCalls)/3600.0), maxCalls),
		cacheDir: cfg.CacheDir,
		cacheTTL: ttl,
		metrics:  metrics,
	}, nil
}

// AnalyzeCodeSegment asks the model to judge a code sample. contextNote
// tells the model what is being analyzed. Never returns an error; budget
// exhaustion, transport failures, and unparseable replies all yield the
// fallback assessment.
func (c *Client) AnalyzeCodeSegment(ctx context.Context, code, contextNote string) CodeAssessment {
	key := cacheKey("analyze", code+contextNote)

	var cached CodeAssessment
	if c.readCache(key, &cached) {
		return cached
	}

	if !c.limiter.Allow() {
		slog.Warn("LLM call budget exhausted, using fallback code assessment")
		return FallbackCodeAssessment("call budget reached")
	}

	user := fmt.Sprintf("Context: %s\n\nAnalyze this code:\n```\n%s\n```", contextNote, code)
	raw, err := c.generate(ctx, codeSystemPrompt, user)
	if err != nil {
		slog.Error("LLM code analysis failed", "error", err)
		return FallbackCodeAssessment(err.Error())
	}

	assessment := CodeAssessment{
		AIScore:          0.5,
		QualityScore:     0.5,
		OriginalityScore: 0.5,
		ExecutionScore:   0.5,
		MarketValue:      0.5,
	}
	if err := decodeJSON(raw, &assessment); err != nil {
		slog.Error("LLM code analysis returned unparseable payload", "error", err)
		return FallbackCodeAssessment(err.Error())
	}

	c.writeCache(key, assessment)
	return assessment
}

// AnalyzeMarketContext asks the model for market research on a project.
func (c *Client) AnalyzeMarketContext(ctx context.Context, projectName, repoURL string) MarketAssessment {
	key := cacheKey("market", projectName+repoURL)

	var cached MarketAssessment
	if c.readCache(key, &cached) {
		return cached
	}

	if !c.limiter.Allow() {
		slog.Warn("LLM call budget exhausted, using fallback market assessment")
		return FallbackMarketAssessment("call budget reached")
	}

	user := fmt.Sprintf("Analyze market success for project %s (%s)", projectName, repoURL)
	raw, err := c.generate(ctx, marketSystemPrompt, user)
	if err != nil {
		slog.Error("LLM market analysis failed", "error", err)
		return FallbackMarketAssessment(err.Error())
	}

	assessment := MarketAssessment{
		PopularityScore: 0.5,
		AdoptionScore:   0.5,
		ImpactScore:     0.5,
	}
	if err := decodeJSON(raw, &assessment); err != nil {
		slog.Error("LLM market analysis returned unparseable payload", "error", err)
		return FallbackMarketAssessment(err.Error())
	}

	c.writeCache(key, assessment)
	return assessment
}

// AssessAuthenticity reports the model's AI implementation score for a
// code sample.
func (c *Client) AssessAuthenticity(ctx context.Context, sample string) (float64, error) {
	return c.AnalyzeCodeSegment(ctx, sample, "Assessing AI implementation depth").AIScore, nil
}

// AssessOriginality reports the model's originality score for a code sample.
func (c *Client) AssessOriginality(ctx context.Context, sample string) (float64, error) {
	return c.AnalyzeCodeSegment(ctx, sample, "Assessing code originality").OriginalityScore, nil
}

// FallbackCodeAssessment is the neutral payload used when the model is
// unavailable.
func FallbackCodeAssessment(reason string) CodeAssessment {
	return CodeAssessment{
		AIScore:          0.5,
		QualityScore:     0.5,
		OriginalityScore: 0.5,
		ExecutionScore:   0.5,
		MarketValue:      0.5,
		Findings:         []string{"Model analysis unavailable: " + reason},
		Recommendations:  []string{"Enable model analysis for enhanced results"},
	}
}

// FallbackMarketAssessment is the neutral payload used when market research
// is unavailable.
func FallbackMarketAssessment(reason string) MarketAssessment {
	return MarketAssessment{
		PopularityScore: 0.5,
		AdoptionScore:   0.5,
		ImpactScore:     0.5,
		MarketContext:   "Market analysis unavailable: " + reason,
		Recommendations: []string{"Enable market research for enhanced results"},
	}
}

func (c *Client) generate(ctx context.Context, system, user string) (string, error) {
	if c.metrics != nil {
		c.metrics.IncrementLLMCalls()
	}
	resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty model response")
	}
	return resp.Choices[0].Content, nil
}

// decodeJSON unmarshals the outermost JSON object embedded in raw. Models
// wrap payloads in prose or code fences often enough that the braces are
// the only reliable delimiter.
func decodeJSON(raw string, v interface{}) error {
	extracted, err := extractJSON(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(extracted), v)
}

func extractJSON(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in model response")
	}
	return raw[start : end+1], nil
}

func cacheKey(kind, payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return kind + "_" + hex.EncodeToString(sum[:])
}

// readCache loads a cached payload into v when present and fresh.
func (c *Client) readCache(key string, v interface{}) bool {
	if c.cacheDir == "" {
		return false
	}
	path := filepath.Join(c.cacheDir, key+".json")
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) >= c.cacheTTL {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (c *Client) writeCache(key string, v interface{}) {
	if c.cacheDir == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	path := filepath.Join(c.cacheDir, key+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("Failed to persist LLM cache entry", "key", key, "error", err)
	}
}
