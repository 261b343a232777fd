package security

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// Config holds request hardening settings.
type Config struct {
	MaxInputLength int           `json:"max_input_length"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultConfig returns the hardening defaults. The input cap covers the
// longest plausible repository URL.
func DefaultConfig() Config {
	return Config{
		MaxInputLength: 200,
		RequestTimeout: 120 * time.Second,
	}
}

// Middleware bundles the request hardening handlers.
type Middleware struct {
	config Config
}

// NewMiddleware creates the security middleware set.
func NewMiddleware(config Config) *Middleware {
	return &Middleware{config: config}
}

// ownerRepoPattern matches a single GitHub owner or repository segment.
var ownerRepoPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateRepoInput checks a user-supplied repository reference before it
// reaches the clone step.
func (m *Middleware) ValidateRepoInput(input string) error {
	if input == "" {
		return fmt.Errorf("repository reference is required")
	}
	if len(input) > m.config.MaxInputLength {
		return fmt.Errorf("input exceeds maximum length of %d characters", m.config.MaxInputLength)
	}
	if strings.Contains(input, "\x00") {
		return fmt.Errorf("input contains invalid characters")
	}
	if !utf8.ValidString(input) {
		return fmt.Errorf("input contains invalid UTF-8 encoding")
	}
	if strings.Contains(input, "..") {
		return fmt.Errorf("invalid repository reference")
	}

	suspicious := []string{"<script", "javascript:", "union select", "drop table"}
	lower := strings.ToLower(input)
	for _, pattern := range suspicious {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("input contains suspicious patterns")
		}
	}

	trimmed := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(input, "https://"), "http://"), "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")
	for _, part := range strings.Split(trimmed, "/") {
		if part == "" || part == "github.com" {
			continue
		}
		if !ownerRepoPattern.MatchString(part) {
			return fmt.Errorf("invalid repository reference")
		}
	}

	return nil
}

// Headers sets the standard security response headers.
func (m *Middleware) Headers() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Header("Content-Security-Policy", "default-src 'self'")

		if os.Getenv("ENABLE_HSTS") == "true" || c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// ContentType rejects request bodies that are not JSON or form encoded.
func (m *Middleware) ContentType() gin.HandlerFunc {
	allowed := []string{
		"application/json",
		"application/x-www-form-urlencoded",
		"multipart/form-data",
	}

	return func(c *gin.Context) {
		contentType := strings.ToLower(c.GetHeader("Content-Type"))
		if contentType == "" {
			c.Next()
			return
		}

		for _, t := range allowed {
			if strings.Contains(contentType, t) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "unsupported content type",
		})
	}
}

// Timeout bounds each request's context. Analysis work downstream observes
// the deadline through c.Request.Context().
func (m *Middleware) Timeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), m.config.RequestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Timeout", strconv.Itoa(int(m.config.RequestTimeout.Seconds())))
		c.Next()
	}
}
