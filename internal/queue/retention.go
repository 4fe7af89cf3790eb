package queue

import (
	"context"

	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
)

// ObjectRemover deletes uploaded objects by key. The worker passes the S3
// cleanup from internal/storage; tests pass a recorder.
type ObjectRemover func(ctx context.Context, keys []string)

// SweepExpiredAnalyses deletes analyses past their retention expiry along
// with their uploaded objects, and returns how many records were removed.
// Per-record failures are logged and skipped so one bad record cannot
// stall the sweep.
func SweepExpiredAnalyses(
	ctx context.Context,
	st store.Storage,
	removeObjects ObjectRemover,
) (int, error) {
	expired, err := st.ListExpiredAnalyses(ctx, 100)
	if err != nil {
		return 0, err
	}

	if len(expired) == 0 {
		logger.Debug("[Queue] No expired analyses found")
		return 0, nil
	}

	deleted := 0
	for _, analysis := range expired {
		if len(analysis.FileKeys) > 0 && removeObjects != nil {
			removeObjects(ctx, analysis.FileKeys)
		}
		if err := st.DeleteAnalysisByID(ctx, analysis.ID); err != nil {
			logger.Error("[Queue] Failed to delete expired analysis", "analysis_id", analysis.ID, "err", err)
			continue
		}
		deleted++
	}

	logger.Info("[Queue] Retention sweep finished", "expired", len(expired), "deleted", deleted)
	return deleted, nil
}
