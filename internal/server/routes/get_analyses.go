package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

const listAnalysesLimit = 50

// GetAnalysisHandler returns a queued analysis' progress and, once the
// worker finishes, its result shaped for the caller's current tier
func GetAnalysisHandler(c echo.Context) error {
	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}

	id := c.Param("id")
	cc := appContext(c)
	ctx := c.Request().Context()

	record, err := cc.App.Store.GetAnalysis(ctx, id, cc.User.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Analysis not found"})
	}
	if err != nil {
		logger.Error("Failed to load analysis", "analysis_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	elapsed := time.Since(record.CreatedAt).Milliseconds()
	resp := map[string]any{
		"analysis_id": record.ID,
		"name":        record.Name,
		"status":      record.Status,
		"progress":    util.BuildJobProgress(record.Stage, record.EstimatedMs, elapsed),
		"group_names": record.GroupNames,
		"created_at":  record.CreatedAt,
	}
	if record.ExpiresAt != nil {
		resp["expires_at"] = record.ExpiresAt
	}

	switch record.Status {
	case store.StatusCompleted:
		var result analysis.Result
		if err := json.Unmarshal(record.Result, &result); err != nil {
			logger.Error("Failed to decode stored result", "analysis_id", id, "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		capWords(&result, tier.LimitsFor(profile.Tier).MaxWords)
		resp["result"] = result.Flatten()
	case store.StatusFailed:
		resp["error"] = record.Error
	}

	return c.JSON(http.StatusOK, resp)
}

// ListAnalysesHandler lists the caller's stored analyses, newest first
func ListAnalysesHandler(c echo.Context) error {
	type analysisRow struct {
		AnalysisID string               `json:"analysis_id"`
		Name       string               `json:"name"`
		Status     store.AnalysisStatus `json:"status"`
		NumGroups  int                  `json:"num_groups"`
		CreatedAt  time.Time            `json:"created_at"`
		ExpiresAt  *time.Time           `json:"expires_at,omitempty"`
	}
	type listResponse struct {
		Analyses []analysisRow `json:"analyses"`
	}

	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}

	cc := appContext(c)
	summaries, err := cc.App.Store.ListAnalyses(c.Request().Context(), cc.User.UserID, listAnalysesLimit)
	if err != nil {
		logger.Error("Failed to list analyses", "user", cc.User.UserID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	rows := make([]analysisRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, analysisRow{
			AnalysisID: s.ID,
			Name:       s.Name,
			Status:     s.Status,
			NumGroups:  s.NumGroups,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
		})
	}
	return c.JSON(http.StatusOK, listResponse{Analyses: rows})
}
