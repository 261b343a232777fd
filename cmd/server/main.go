package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/chronai/project-analyzer/internal/adapters"
	"github.com/chronai/project-analyzer/internal/analysis"
	"github.com/chronai/project-analyzer/internal/authenticity"
	"github.com/chronai/project-analyzer/internal/cache"
	"github.com/chronai/project-analyzer/internal/config"
	"github.com/chronai/project-analyzer/internal/database"
	"github.com/chronai/project-analyzer/internal/errors"
	"github.com/chronai/project-analyzer/internal/execution"
	"github.com/chronai/project-analyzer/internal/leaderboard"
	"github.com/chronai/project-analyzer/internal/llm"
	"github.com/chronai/project-analyzer/internal/market"
	"github.com/chronai/project-analyzer/internal/monitoring"
	"github.com/chronai/project-analyzer/internal/originality"
	"github.com/chronai/project-analyzer/internal/quality"
	"github.com/chronai/project-analyzer/internal/ratelimit"
	"github.com/chronai/project-analyzer/internal/report"
	"github.com/chronai/project-analyzer/internal/security"
	"github.com/chronai/project-analyzer/internal/types"
	"github.com/chronai/project-analyzer/internal/workspace"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfgPath := os.Getenv("CONFIG_FILE")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer errors.SafeClose(db, "database")
	repo := database.NewRepository(db)

	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}
	defer errors.SafeClose(redisClient, "redis client")
	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		IPLimitPerMin:   cfg.RateLimitPerMin,
		BurstMultiplier: 2,
	}, appMetrics)

	githubAdapter := adapters.NewGitHubAdapter(cfg.GitHubToken, appMetrics)
	defer errors.SafeClose(githubAdapter, "github adapter")

	var researcher market.Researcher
	var codeAssessor authenticity.CodeAssessor
	var originalityAssessor originality.OriginalityAssessor
	if cfg.OpenAIAPIKey != "" {
		llmClient, err := llm.New(llm.Config{
			APIKey:          cfg.OpenAIAPIKey,
			Model:           cfg.OpenAIModel,
			MaxCallsPerHour: cfg.MaxLLMCallsHour,
			CacheDir:        cfg.LLMCacheDir,
			CacheTTL:        cfg.LLMCacheTTL,
		}, appMetrics)
		if err != nil {
			slog.Error("Failed to initialize LLM client", "error", err)
			os.Exit(1)
		}
		researcher = llmClient
		codeAssessor = llmClient
		originalityAssessor = llmClient
		slog.Info("LLM research enabled", "model", cfg.OpenAIModel, "budget_per_hour", cfg.MaxLLMCallsHour)
	} else {
		slog.Warn("OPENAI_API_KEY not set, analysis runs on heuristics only")
	}

	marketAnalyzer := market.NewAnalyzer(researcher, githubAdapter, market.Config{
		PopularityThreshold: cfg.PopularityThreshold,
		MinPopularScore:     cfg.MinPopularScore,
		CacheTTL:            cfg.MarketCacheTTL,
	})

	pipeline := analysis.NewPipeline(
		marketAnalyzer,
		authenticity.NewDetector(codeAssessor),
		quality.NewAnalyzer(),
		execution.NewVerifier(),
		originality.NewDetector(originalityAssessor),
	)

	responseCache := cache.New(cfg.ResponseCacheTTL)
	defer responseCache.Close()

	board := leaderboard.NewService(db, 10*time.Minute)
	defer board.Close()

	secMiddleware := security.NewMiddleware(security.Config{
		MaxInputLength: 200,
		RequestTimeout: cfg.RequestTimeout,
	})

	router := buildRouter(routerDeps{
		pipeline: pipeline,
		market:   marketAnalyzer,
		repo:     repo,
		db:       db,
		github:   githubAdapter,
		cache:    responseCache,
		board:    board,
		limiter:  limiter,
		metrics:  appMetrics,
		logger:   appLogger,
		security: secMiddleware,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

type routerDeps struct {
	pipeline *analysis.Pipeline
	market   *market.Analyzer
	repo     *database.Repository
	db       *database.DB
	github   *adapters.GitHubAdapter
	cache    *cache.ResponseCache
	board    *leaderboard.Service
	limiter  *ratelimit.RateLimiter
	metrics  *monitoring.Metrics
	logger   *monitoring.Logger
	security *security.Middleware
}

func buildRouter(deps routerDeps) *gin.Engine {
	r := gin.New()

	r.Use(monitoring.Middleware(deps.metrics, deps.logger))
	r.Use(errors.RecoveryHandler())
	r.Use(errors.ErrorHandler())
	r.Use(cors.Default())
	r.Use(deps.security.Headers())
	r.Use(deps.security.Timeout())
	r.Use(deps.security.ContentType())
	r.Use(deps.limiter.IPRateLimitMiddleware())
	r.Use(deps.cache.Middleware(deps.metrics))

	r.POST("/analyze", analyzeHandler(deps))

	r.GET("/analyses", func(c *gin.Context) {
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		records, err := deps.repo.RecentAnalyses(limit)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"analyses": records, "count": len(records)})
	})

	r.GET("/analyses/latest", func(c *gin.Context) {
		repoURL := c.Query("repo_url")
		if repoURL == "" {
			appErr := errors.NewValidationError("repo_url query parameter is required")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		record, err := deps.repo.LatestForRepo(repoURL)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no analysis found for repository"})
			return
		}

		c.JSON(http.StatusOK, record)
	})

	r.GET("/leaderboard/:period", func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				limit = n
			}
		}

		resp, err := deps.board.GetLeaderboard(c.Param("period"), limit)
		if err != nil {
			appErr := errors.NewValidationError(err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, resp)
	})

	r.GET("/leaderboard/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.board.CacheStats())
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
		})
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.metrics.GetStats())
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.cache.Stats())
	})

	r.GET("/ratelimit/stats", func(c *gin.Context) {
		stats := deps.limiter.GetStats()
		stats["counters"] = deps.metrics.GetRateLimitStats()
		c.JSON(http.StatusOK, stats)
	})

	r.GET("/pools/github", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pool": "github", "stats": deps.github.GetPoolStats()})
	})

	r.GET("/pools/database", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pool": "database", "stats": deps.db.GetPoolStats()})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func analyzeHandler(deps routerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req types.AnalyzeRequest
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("repo_url is required")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if err := deps.security.ValidateRepoInput(req.RepoURL); err != nil {
			appErr := errors.NewValidationError(err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		ctx := c.Request.Context()
		slog.Info("Starting analysis", "repo", req.RepoURL, "ip", c.ClientIP())

		ws, err := workspace.Prepare(ctx, req.RepoURL)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		defer ws.Close()

		projectName := workspace.ProjectName(req.RepoURL)
		repoURL := ""
		if workspace.IsRemote(req.RepoURL) {
			repoURL = req.RepoURL
		}

		result, err := deps.pipeline.Analyze(ctx, projectName, repoURL, ws.Dir)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		overall, err := analysis.CalculateOverallScore(result)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		rep, err := report.Build(projectName, repoURL, result, overall)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if minScore, ok := deps.market.MinimumScore(result.MarketValueScore); ok && !rep.FloorApplied {
			rep.Recommendations = append(rep.Recommendations,
				fmt.Sprintf("Market traction suggests a minimum expected score of %.1f/10", analysis.DisplayScore(minScore)))
		}

		deps.metrics.IncrementAnalyses()
		deps.logger.AnalysisLogger(req.RepoURL, overall, rep.DisplayScore, time.Since(start), false)

		record := database.NewProjectAnalysis(req.RepoURL, projectName, result, overall, rep.DisplayScore)
		go func() {
			if err := deps.repo.SaveAnalysis(record); err != nil {
				slog.Error("Failed to persist analysis", "repo", req.RepoURL, "error", err)
			}
		}()

		c.JSON(http.StatusOK, rep)
	}
}
