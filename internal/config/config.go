package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration. Values load from defaults, then
// an optional YAML file, then environment variables. Environment wins.
type Config struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`

	GitHubToken string `yaml:"github_token"`

	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	OpenAIModel     string        `yaml:"openai_model"`
	MaxLLMCallsHour int           `yaml:"max_llm_calls_per_hour"`
	LLMCacheDir     string        `yaml:"llm_cache_dir"`
	LLMCacheTTL     time.Duration `yaml:"llm_cache_ttl"`

	PopularityThreshold int           `yaml:"popularity_threshold"`
	MinPopularScore     float64       `yaml:"min_popular_score"`
	MarketCacheTTL      time.Duration `yaml:"market_cache_ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	ResponseCacheTTL time.Duration `yaml:"response_cache_ttl"`
	RateLimitPerMin  int           `yaml:"rate_limit_per_min"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                "8080",
		DataDir:             "./data",
		OpenAIModel:         "gpt-4o-mini",
		MaxLLMCallsHour:     5,
		LLMCacheDir:         "./data/llm_cache",
		LLMCacheTTL:         24 * time.Hour,
		PopularityThreshold: 1000,
		MinPopularScore:     0.5,
		MarketCacheTTL:      24 * time.Hour,
		ResponseCacheTTL:    15 * time.Minute,
		RateLimitPerMin:     60,
		RequestTimeout:      120 * time.Second,
	}
}

// Load builds the configuration. path may be empty or point to a YAML
// file; a missing file at the default path is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.GitHubToken, "GITHUB_TOKEN")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIModel, "OPENAI_MODEL")
	setInt(&cfg.MaxLLMCallsHour, "MAX_LLM_CALLS_PER_HOUR")
	setString(&cfg.LLMCacheDir, "LLM_CACHE_DIR")
	setDuration(&cfg.LLMCacheTTL, "LLM_CACHE_TTL")
	setInt(&cfg.PopularityThreshold, "POPULARITY_THRESHOLD")
	setFloat(&cfg.MinPopularScore, "MIN_POPULAR_SCORE")
	setDuration(&cfg.MarketCacheTTL, "MARKET_CACHE_TTL")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setInt(&cfg.RedisDB, "REDIS_DB")
	setDuration(&cfg.ResponseCacheTTL, "RESPONSE_CACHE_TTL")
	setInt(&cfg.RateLimitPerMin, "RATE_LIMIT_PER_MIN")
	setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
}

func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.MaxLLMCallsHour < 0 {
		return fmt.Errorf("max_llm_calls_per_hour must not be negative")
	}
	if c.PopularityThreshold <= 0 {
		return fmt.Errorf("popularity_threshold must be positive")
	}
	if c.MinPopularScore < 0 || c.MinPopularScore > 1 {
		return fmt.Errorf("min_popular_score must be within [0,1]")
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("rate_limit_per_min must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
