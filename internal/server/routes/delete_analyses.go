package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/internal/storage"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
)

// DeleteAnalysisHandler removes a stored analysis and its staged uploads
func DeleteAnalysisHandler(c echo.Context) error {
	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}

	id := c.Param("id")
	cc := appContext(c)
	ctx := c.Request().Context()

	keys, err := cc.App.Store.DeleteAnalysis(ctx, id, cc.User.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Analysis not found"})
	}
	if err != nil {
		logger.Error("Failed to delete analysis", "analysis_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	storage.DeleteFiles(ctx, cc.App.S3, keys)
	logUsage(c, "delete_analysis", map[string]any{"analysis_id": id})

	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
