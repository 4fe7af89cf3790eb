package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/export"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

// ExportAnalysisHandler serves an analysis as a downloadable file. The body
// carries either a stored analysis id or the result data itself.
func ExportAnalysisHandler(c echo.Context) error {
	type exportRequest struct {
		Format     string               `param:"format" validate:"required"`
		AnalysisID string               `json:"analysis_id"`
		Data       *analysis.FlatResult `json:"data"`
	}

	data := new(exportRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	format, err := export.ParseFormat(data.Format)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}

	var flat analysis.FlatResult
	switch {
	case data.AnalysisID != "":
		cc := appContext(c)
		record, err := cc.App.Store.GetAnalysis(c.Request().Context(), data.AnalysisID, cc.User.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Analysis not found"})
		}
		if err != nil {
			logger.Error("Failed to load analysis", "analysis_id", data.AnalysisID, "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		if record.Status != store.StatusCompleted {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Analysis is not completed yet"})
		}
		var result analysis.Result
		if err := json.Unmarshal(record.Result, &result); err != nil {
			logger.Error("Failed to decode stored result", "analysis_id", data.AnalysisID, "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		capWords(&result, tier.LimitsFor(profile.Tier).MaxWords)
		flat = result.Flatten()
	case data.Data != nil:
		flat = *data.Data
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Either analysis_id or data is required"})
	}

	out, err := export.Export(format, flat)
	if err != nil {
		logger.Error("Export failed", "format", format, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	logUsage(c, "export", map[string]any{"format": string(format)})

	filename := fmt.Sprintf("analysis.%s", format.Extension())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, format.ContentType(), out)
}
