package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
)

func (s *DBStorage) CreateAnalysis(ctx context.Context, analysis *store.Analysis) error {
	if analysis.Status == "" {
		analysis.Status = store.StatusPending
	}
	if analysis.Stage == "" {
		analysis.Stage = util.JobStageQueued
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO analyses (id, user_id, name, status, stage, group_names, file_keys, params, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		analysis.ID,
		analysis.UserID,
		analysis.Name,
		string(analysis.Status),
		string(analysis.Stage),
		analysis.GroupNames,
		analysis.FileKeys,
		analysis.Params,
		analysis.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

func (s *DBStorage) GetAnalysis(ctx context.Context, id, userID string) (*store.Analysis, error) {
	var a store.Analysis
	var status, stage string
	err := s.conn.QueryRow(ctx, `
		SELECT id, user_id, name, status, stage, group_names, file_keys,
		       COALESCE(params, 'null'::jsonb), COALESCE(result, 'null'::jsonb),
		       error, estimated_ms, expires_at, created_at, updated_at
		FROM analyses
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&status,
		&stage,
		&a.GroupNames,
		&a.FileKeys,
		&a.Params,
		&a.Result,
		&a.Error,
		&a.EstimatedMs,
		&a.ExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	a.Status = store.AnalysisStatus(status)
	a.Stage = util.JobStage(stage)
	return &a, nil
}

func (s *DBStorage) ListAnalyses(ctx context.Context, userID string, limit int) ([]store.AnalysisSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, name, status, COALESCE(ARRAY_LENGTH(group_names, 1), 0), created_at, expires_at
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var out []store.AnalysisSummary
	for rows.Next() {
		var sum store.AnalysisSummary
		var status string
		if err := rows.Scan(&sum.ID, &sum.Name, &status, &sum.NumGroups, &sum.CreatedAt, &sum.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis summary: %w", err)
		}
		sum.Status = store.AnalysisStatus(status)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return out, nil
}

func (s *DBStorage) SetAnalysisStage(ctx context.Context, id string, stage util.JobStage) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE analyses
		SET stage = $2,
		    status = CASE WHEN $2 = 'queued' THEN 'pending' ELSE 'processing' END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, string(stage))
	if err != nil {
		return fmt.Errorf("failed to set analysis stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *DBStorage) SetAnalysisEstimate(ctx context.Context, id string, estimatedMs int64) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE analyses
		SET estimated_ms = $2, updated_at = NOW()
		WHERE id = $1
	`, id, estimatedMs)
	if err != nil {
		return fmt.Errorf("failed to set analysis estimate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *DBStorage) CompleteAnalysis(ctx context.Context, id string, result []byte) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE analyses
		SET status = 'completed', stage = 'completed', result = $2, error = '', updated_at = NOW()
		WHERE id = $1
	`, id, result)
	if err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *DBStorage) FailAnalysis(ctx context.Context, id string, message string) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE analyses
		SET status = 'failed', stage = 'failed', error = $2, updated_at = NOW()
		WHERE id = $1
	`, id, message)
	if err != nil {
		return fmt.Errorf("failed to mark analysis failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *DBStorage) ListStaleAnalyses(ctx context.Context, olderThan time.Duration, limit int) ([]store.Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, user_id, name, status, stage, group_names, file_keys,
		       COALESCE(params, 'null'::jsonb), created_at, updated_at
		FROM analyses
		WHERE status IN ('pending', 'processing')
		  AND updated_at < NOW() - ($1::bigint * interval '1 millisecond')
		ORDER BY updated_at
		LIMIT $2
	`, olderThan.Milliseconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale analyses: %w", err)
	}
	defer rows.Close()

	var out []store.Analysis
	for rows.Next() {
		var a store.Analysis
		var status, stage string
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Name,
			&status,
			&stage,
			&a.GroupNames,
			&a.FileKeys,
			&a.Params,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stale analysis: %w", err)
		}
		a.Status = store.AnalysisStatus(status)
		a.Stage = util.JobStage(stage)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stale analyses: %w", err)
	}
	return out, nil
}

func (s *DBStorage) DeleteAnalysis(ctx context.Context, id, userID string) ([]string, error) {
	var keys []string
	err := s.conn.QueryRow(ctx, `
		DELETE FROM analyses
		WHERE id = $1 AND user_id = $2
		RETURNING file_keys
	`, id, userID).Scan(&keys)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete analysis: %w", err)
	}
	return keys, nil
}

func (s *DBStorage) ListExpiredAnalyses(ctx context.Context, limit int) ([]store.ExpiredAnalysis, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, file_keys
		FROM analyses
		WHERE expires_at IS NOT NULL AND expires_at < NOW()
		ORDER BY expires_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired analyses: %w", err)
	}
	defer rows.Close()

	var out []store.ExpiredAnalysis
	for rows.Next() {
		var exp store.ExpiredAnalysis
		if err := rows.Scan(&exp.ID, &exp.FileKeys); err != nil {
			return nil, fmt.Errorf("failed to scan expired analysis: %w", err)
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expired analyses: %w", err)
	}
	return out, nil
}

func (s *DBStorage) DeleteAnalysisByID(ctx context.Context, id string) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	return nil
}
