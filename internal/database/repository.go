package database

import (
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/chronai/project-analyzer/internal/errors"
)

// Repository persists and retrieves analysis records.
type Repository struct {
	db *DB
}

// NewRepository creates a repository over db.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveAnalysis stores one analysis run.
func (r *Repository) SaveAnalysis(record *ProjectAnalysis) error {
	issues, err := issuesJSON(record.Issues)
	if err != nil {
		return fmt.Errorf("failed to encode issues: %w", err)
	}
	recs, err := recommendationsJSON(record.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}

	stmt, err := r.db.GetPreparedStatement("insert_analysis")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(
		record.ID, record.RepoURL, record.ProjectName,
		record.MarketValueScore, record.AIFrameworkScore, record.CodeQualityScore,
		record.ExecutionScore, record.OriginalityScore, record.OverallScore, record.DisplayScore,
		issues, recs, record.CreatedAt,
	)
	return apperrors.WrapError(err, "failed to save analysis %s", record.ID)
}

// RecentAnalyses returns the most recent analyses, newest first.
func (r *Repository) RecentAnalyses(limit int) ([]*ProjectAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}

	stmt, err := r.db.GetPreparedStatement("recent_analyses")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var records []*ProjectAnalysis
	for rows.Next() {
		record, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// LatestForRepo returns the newest analysis for repoURL, or nil if the
// repository has never been analyzed.
func (r *Repository) LatestForRepo(repoURL string) (*ProjectAnalysis, error) {
	stmt, err := r.db.GetPreparedStatement("latest_for_repo")
	if err != nil {
		return nil, err
	}

	record, err := scanAnalysis(stmt.QueryRow(repoURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*ProjectAnalysis, error) {
	var record ProjectAnalysis
	var issues, recs string

	err := s.Scan(
		&record.ID, &record.RepoURL, &record.ProjectName,
		&record.MarketValueScore, &record.AIFrameworkScore, &record.CodeQualityScore,
		&record.ExecutionScore, &record.OriginalityScore, &record.OverallScore, &record.DisplayScore,
		&issues, &recs, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	if record.Issues, err = parseIssues(issues); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	if record.Recommendations, err = parseRecommendations(recs); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}

	return &record, nil
}
