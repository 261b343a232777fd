package leaderboard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chronai/project-analyzer/internal/cache"
	"github.com/chronai/project-analyzer/internal/database"
)

// Supported ranking periods.
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodAllTime = "all_time"
)

// Entry is one ranked project.
type Entry struct {
	Rank         int       `json:"rank"`
	RepoURL      string    `json:"repo_url"`
	ProjectName  string    `json:"project_name"`
	OverallScore float64   `json:"overall_score"`
	DisplayScore float64   `json:"display_score"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

// Response is the payload served at /leaderboard/:period.
type Response struct {
	Period      string    `json:"period"`
	Entries     []Entry   `json:"entries"`
	Total       int       `json:"total"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Service ranks analyzed projects by their best overall score.
type Service struct {
	db    *database.DB
	cache *cache.ResponseCache
}

// NewService creates a leaderboard service over db. Results are cached
// for ttl to keep the ranking query off the hot path.
func NewService(db *database.DB, ttl time.Duration) *Service {
	return &Service{
		db:    db,
		cache: cache.New(ttl),
	}
}

// Close releases the cache.
func (s *Service) Close() {
	s.cache.Close()
}

// GetLeaderboard returns the top projects for a period, best run per
// repository, highest score first.
func (s *Service) GetLeaderboard(period string, limit int) (*Response, error) {
	since, err := periodStart(period)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	cacheKey := fmt.Sprintf("leaderboard:%s:%d", period, limit)
	if data, ok := s.cache.Get(cacheKey); ok {
		var cached Response
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		slog.Warn("Discarding unreadable leaderboard cache entry", "key", cacheKey)
	}

	rows, err := s.db.Query(`
		SELECT repo_url, project_name, MAX(overall_score) AS best_score, MAX(created_at) AS analyzed_at
		FROM project_analyses
		WHERE created_at >= ?
		GROUP BY repo_url
		ORDER BY best_score DESC, analyzed_at DESC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	response := &Response{
		Period:      period,
		Entries:     []Entry{},
		GeneratedAt: time.Now().UTC(),
	}

	rank := 1
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.RepoURL, &entry.ProjectName, &entry.OverallScore, &entry.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entry.Rank = rank
		entry.DisplayScore = entry.OverallScore * 10
		response.Entries = append(response.Entries, entry)
		rank++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	response.Total = len(response.Entries)

	if data, err := json.Marshal(response); err == nil {
		s.cache.Set(cacheKey, data)
	}

	return response, nil
}

// CacheStats exposes the leaderboard cache snapshot.
func (s *Service) CacheStats() map[string]interface{} {
	return s.cache.Stats()
}

func periodStart(period string) (time.Time, error) {
	now := time.Now().UTC()
	switch period {
	case PeriodWeekly:
		return now.AddDate(0, 0, -7), nil
	case PeriodMonthly:
		return now.AddDate(0, -1, 0), nil
	case PeriodAllTime:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unknown leaderboard period %q", period)
	}
}
