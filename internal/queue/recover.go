package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"

	"github.com/rabbitmq/amqp091-go"
)

// StaleAnalysisCutoff is how long an unfinished analysis may go without an
// update before recovery requeues it. It exceeds the processing lease TTL,
// so a held lease means the job is genuinely still running.
const StaleAnalysisCutoff = 30 * time.Minute

// RecoverStaleAnalyses requeues unfinished analyses that stopped making
// progress, typically because a worker died mid-job. The job payload is
// rebuilt from the stored params.
func RecoverStaleAnalyses(
	ctx context.Context,
	ch *amqp091.Channel,
	st store.Storage,
) error {
	stale, err := st.ListStaleAnalyses(ctx, StaleAnalysisCutoff, 50)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		logger.Debug("[Queue] No stale analyses found")
		return nil
	}

	logger.Info("[Queue] Found stale analyses", "count", len(stale))

	for _, analysis := range stale {
		var request JobRequest
		if err := json.Unmarshal(analysis.Params, &request); err != nil {
			logger.Error("[Queue] Failed to decode stored params, cannot requeue", "analysis_id", analysis.ID, "err", err)
			continue
		}
		if err := request.Validate(); err != nil {
			logger.Error("[Queue] Stored params are not a runnable job", "analysis_id", analysis.ID, "err", err)
			continue
		}

		if err := st.SetAnalysisStage(ctx, analysis.ID, util.JobStageQueued); err != nil {
			logger.Error("[Queue] Failed to reset analysis stage", "analysis_id", analysis.ID, "err", err)
			continue
		}

		job := AnalysisJob{
			AnalysisID: analysis.ID,
			UserID:     analysis.UserID,
			Request:    request,
		}
		msgBytes, err := json.Marshal(job)
		if err != nil {
			logger.Error("[Queue] Failed to marshal job message", "analysis_id", analysis.ID, "err", err)
			continue
		}

		if err := PublishFIFO(ch, AnalyzeQueue, msgBytes); err != nil {
			logger.Error("[Queue] Failed to republish analysis", "analysis_id", analysis.ID, "err", err)
			continue
		}

		logger.Info("[Queue] Requeued stale analysis", "analysis_id", analysis.ID, "stage", analysis.Stage)
	}

	return nil
}
