package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ConnectionPool bounds concurrent requests to one external service and
// routes every call through a circuit breaker. Connection reuse itself is
// delegated to the shared http.Transport.
type ConnectionPool struct {
	name      string
	maxActive int
	breaker   *CircuitBreaker
	client    *http.Client

	mu       sync.Mutex
	active   int
	requests int64
	failures int64
}

// NewConnectionPool creates a pool of at most maxActive in-flight requests.
func NewConnectionPool(name string, maxIdle, maxActive int, idleTimeout time.Duration, breaker *CircuitBreaker) *ConnectionPool {
	transport := &http.Transport{
		MaxIdleConns:          maxIdle,
		MaxConnsPerHost:       maxActive,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		name:      name,
		maxActive: maxActive,
		breaker:   breaker,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// DoRequest executes one HTTP request through the pool and breaker.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	if err := cp.acquire(); err != nil {
		return nil, err
	}
	defer cp.release()

	var resp *http.Response
	err := cp.breaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		resp, err = cp.client.Do(req)
		if err != nil {
			cp.countFailure()
			slog.Warn("Upstream request failed",
				"pool", cp.name, "url", url, "error", err,
				"duration_ms", time.Since(start).Milliseconds())
			return err
		}

		slog.Debug("Upstream request completed",
			"pool", cp.name, "url", url, "status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cp *ConnectionPool) acquire() error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.active >= cp.maxActive {
		return fmt.Errorf("pool %s exhausted: %d/%d in flight", cp.name, cp.active, cp.maxActive)
	}
	cp.active++
	cp.requests++
	return nil
}

func (cp *ConnectionPool) release() {
	cp.mu.Lock()
	cp.active--
	cp.mu.Unlock()
}

func (cp *ConnectionPool) countFailure() {
	cp.mu.Lock()
	cp.failures++
	cp.mu.Unlock()
}

// GetStats reports pool usage for the operational endpoints.
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return map[string]interface{}{
		"name":                  cp.name,
		"active_requests":       cp.active,
		"max_active":            cp.maxActive,
		"total_requests":        cp.requests,
		"failed_requests":       cp.failures,
		"circuit_breaker_state": cp.breaker.State().String(),
	}
}

// Close releases idle transport connections.
func (cp *ConnectionPool) Close() error {
	if transport, ok := cp.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	slog.Info("Connection pool closed", "pool", cp.name)
	return nil
}
