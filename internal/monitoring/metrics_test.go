package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.IncrementGitHubCalls()
	m.IncrementLLMCalls()
	m.IncrementAnalyses()

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["error_count"])
	assert.Equal(t, float64(50), stats["error_rate_percent"])
	assert.Equal(t, float64(50), stats["cache_hit_rate_percent"])
	assert.Equal(t, int64(1), stats["github_api_calls"])
	assert.Equal(t, int64(1), stats["llm_api_calls"])
	assert.Equal(t, int64(1), stats["analyses_completed"])
}

func TestPercentileResponseTime(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, time.Duration(0), m.PercentileResponseTime(95))

	for i := 1; i <= 100; i++ {
		m.RecordResponseTime(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 50*time.Millisecond, m.PercentileResponseTime(50))
	assert.LessOrEqual(t, 95*time.Millisecond, m.PercentileResponseTime(95))
	assert.LessOrEqual(t, m.PercentileResponseTime(95), m.PercentileResponseTime(99))
}

func TestRateLimitStats(t *testing.T) {
	m := NewMetrics()
	m.IncrementRateLimitIPBlock()
	m.IncrementRateLimitRedisError()
	m.IncrementRateLimitFallback()
	m.IncrementRateLimitFallback()

	stats := m.GetRateLimitStats()
	assert.Equal(t, int64(1), stats["ip_blocks"])
	assert.Equal(t, int64(1), stats["redis_errors"])
	assert.Equal(t, int64(2), stats["fallback_count"])
}

func TestReset(t *testing.T) {
	m := NewMetrics()
	m.IncrementRequest()
	m.RecordResponseTime(time.Second)
	m.RecordRequestByStatus(200)

	m.Reset()

	stats := m.GetStats()
	assert.Equal(t, int64(0), stats["total_requests"])
	assert.Empty(t, m.StatusCodeDistribution())
	assert.Equal(t, time.Duration(0), m.PercentileResponseTime(50))
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()
	logger := NewLogger()

	router := gin.New()
	router.Use(Middleware(m, logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["error_count"])

	dist := m.StatusCodeDistribution()
	assert.Equal(t, int64(1), dist[http.StatusOK])
	assert.Equal(t, int64(1), dist[http.StatusBadRequest])
}
