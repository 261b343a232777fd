package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubModel struct {
	reply string
	err   error
	calls int
}

func (s *stubModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: s.reply}},
	}, nil
}

type countingMetrics struct {
	llmCalls int
}

func (c *countingMetrics) IncrementLLMCalls() { c.llmCalls++ }

func newTestClient(t *testing.T, model contentGenerator, cacheDir string) *Client {
	t.Helper()
	c, err := newWithModel(model, Config{
		MaxCallsPerHour: 5,
		CacheDir:        cacheDir,
		CacheTTL:        time.Hour,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestAnalyzeCodeSegmentParsesReply(t *testing.T) {
	model := &stubModel{reply: `Here is the analysis:
{"ai_score": 0.8, "quality_score": 0.7, "originality_score": 0.9, "execution_score": 0.6, "market_value": 0.85, "findings": ["Real model training loop"], "recommendations": ["Add evaluation metrics"]}
Hope that helps.`}
	c := newTestClient(t, model, "")

	got := c.AnalyzeCodeSegment(context.Background(), "import torch", "test")
	assert.Equal(t, 0.8, got.AIScore)
	assert.Equal(t, 0.9, got.OriginalityScore)
	assert.Equal(t, []string{"Real model training loop"}, got.Findings)
}

func TestAnalyzeCodeSegmentFallsBackOnTransportError(t *testing.T) {
	c := newTestClient(t, &stubModel{err: errors.New("connection refused")}, "")

	got := c.AnalyzeCodeSegment(context.Background(), "code", "test")
	assert.Equal(t, 0.5, got.AIScore)
	require.Len(t, got.Findings, 1)
	assert.Contains(t, got.Findings[0], "connection refused")
}

func TestAnalyzeCodeSegmentFallsBackOnGarbage(t *testing.T) {
	c := newTestClient(t, &stubModel{reply: "I cannot analyze that."}, "")

	got := c.AnalyzeCodeSegment(context.Background(), "code", "test")
	assert.Equal(t, 0.5, got.QualityScore)
	assert.Contains(t, got.Findings[0], "Model analysis unavailable")
}

func TestAnalyzeCodeSegmentUsesCache(t *testing.T) {
	model := &stubModel{reply: `{"ai_score": 0.8}`}
	c := newTestClient(t, model, t.TempDir())

	first := c.AnalyzeCodeSegment(context.Background(), "same code", "ctx")
	second := c.AnalyzeCodeSegment(context.Background(), "same code", "ctx")

	assert.Equal(t, first.AIScore, second.AIScore)
	assert.Equal(t, 1, model.calls, "second lookup must be served from cache")
}

func TestCallBudgetExhaustionFallsBack(t *testing.T) {
	model := &stubModel{reply: `{"ai_score": 0.8}`}
	c, err := newWithModel(model, Config{MaxCallsPerHour: 2, CacheTTL: time.Hour}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	c.AnalyzeCodeSegment(ctx, "one", "")
	c.AnalyzeCodeSegment(ctx, "two", "")
	over := c.AnalyzeCodeSegment(ctx, "three", "")

	assert.Equal(t, 2, model.calls)
	assert.Contains(t, over.Findings[0], "call budget reached")
}

func TestCountsModelCalls(t *testing.T) {
	model := &stubModel{reply: `{"ai_score": 0.8}`}
	counters := &countingMetrics{}
	c, err := newWithModel(model, Config{MaxCallsPerHour: 5, CacheDir: t.TempDir(), CacheTTL: time.Hour}, counters)
	require.NoError(t, err)

	ctx := context.Background()
	c.AnalyzeCodeSegment(ctx, "code", "ctx")
	c.AnalyzeCodeSegment(ctx, "code", "ctx")

	// The second lookup is a cache hit, so only one model call is counted.
	assert.Equal(t, 1, counters.llmCalls)
}

func TestAnalyzeMarketContext(t *testing.T) {
	model := &stubModel{reply: `{"popularity_score": 0.9, "adoption_score": 0.8, "impact_score": 0.7, "market_context": "widely adopted", "recommendations": ["Offer enterprise support"]}`}
	c := newTestClient(t, model, "")

	got := c.AnalyzeMarketContext(context.Background(), "proj", "https://github.com/acme/proj")
	assert.Equal(t, 0.9, got.PopularityScore)
	assert.Equal(t, "widely adopted", got.MarketContext)
}

func TestAssessorAdapters(t *testing.T) {
	model := &stubModel{reply: `{"ai_score": 0.8, "originality_score": 0.6}`}
	c := newTestClient(t, model, "")

	ai, err := c.AssessAuthenticity(context.Background(), "sample")
	require.NoError(t, err)
	assert.Equal(t, 0.8, ai)

	orig, err := c.AssessOriginality(context.Background(), "sample")
	require.NoError(t, err)
	assert.Equal(t, 0.6, orig)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"prose wrapped", `Sure: {"a":1} done`, `{"a":1}`, false},
		{"no object", "nothing here", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
