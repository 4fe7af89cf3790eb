// Package timing records how long analysis jobs take and predicts
// the duration of new jobs from past runs with a similar document count.
package timing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordDuration stores the measured duration of one pipeline stage.
// documents is the total number of texts across all groups.
func RecordDuration(
	ctx context.Context,
	analysisID string,
	stage string,
	documents int,
	durationMs int64,
	conn *pgxpool.Pool,
) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO analysis_timings (analysis_id, stage, documents, duration_ms)
		VALUES ($1, $2, $3, $4)
	`, analysisID, stage, documents, durationMs)
	if err != nil {
		return fmt.Errorf("failed to record analysis timing: %w", err)
	}
	return nil
}

// PredictDuration estimates total processing time in milliseconds for a job
// over the given document count, scaling the median per-document rate of the
// most recent runs. Returns 0 when no history exists.
func PredictDuration(ctx context.Context, documents int, conn *pgxpool.Pool) (int64, error) {
	if documents <= 0 {
		return 0, nil
	}

	var predicted int64
	err := conn.QueryRow(ctx, `
		SELECT COALESCE(
			PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY per_doc_ms) * $1,
			0
		)::BIGINT
		FROM (
			SELECT SUM(duration_ms)::FLOAT / GREATEST(documents, 1) AS per_doc_ms
			FROM analysis_timings
			GROUP BY analysis_id, documents
			ORDER BY MAX(created_at) DESC
			LIMIT 50
		) recent
	`, documents).Scan(&predicted)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to predict analysis duration: %w", err)
	}
	return predicted, nil
}
