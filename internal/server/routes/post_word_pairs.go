package routes

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/internal/cache"
	"github.com/chenraccah/semantic-network-analyzer/internal/queue"
	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

// AnalyzeWordPairsHandler returns the word pair co-occurrence table for a
// two-group comparison (multipart/form-data)
func AnalyzeWordPairsHandler(c echo.Context) error {
	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}
	limits := tier.LimitsFor(profile.Tier)

	fileA, err := c.FormFile("file_a")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file provided for group A"})
	}
	fileB, err := c.FormFile("file_b")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file provided for group B"})
	}

	groupA := c.FormValue("group_a_name")
	if groupA == "" {
		groupA = "Group A"
	}
	groupB := c.FormValue("group_b_name")
	if groupB == "" {
		groupB = "Group B"
	}
	column := textColumnFromForm(c)
	opts, err := jobOptionsFromForm(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()
	docsA, hashA, err := uploadDocuments(ctx, "word_pairs_a", fileA, column, limits)
	if err != nil {
		return uploadErrorResponse(c, err)
	}
	docsB, hashB, err := uploadDocuments(ctx, "word_pairs_b", fileB, column, limits)
	if err != nil {
		return uploadErrorResponse(c, err)
	}
	if len(docsA) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("No texts found in %s file", groupA)})
	}
	if len(docsB) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("No texts found in %s file", groupB)})
	}

	cc := appContext(c)
	key, err := cache.Key([]string{hashA, hashB}, struct {
		Endpoint   string           `json:"endpoint"`
		GroupNames []string         `json:"group_names"`
		Column     int              `json:"column"`
		Options    queue.JobOptions `json:"options"`
	}{"word_pairs", []string{groupA, groupB}, column, opts})
	if err != nil {
		logger.Error("Failed to build cache key", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	payload, cached, err := cc.App.Cache.Do(key, func() (any, error) {
		analyzer, err := analysis.NewAnalyzer(analysis.NewAnalyzerParams{
			GroupNames: []string{groupA, groupB},
			Processor:  opts.BuildProcessor(),
		})
		if err != nil {
			return nil, err
		}
		rows, err := analyzer.WordPairs(docsA, docsB)
		if err != nil {
			return nil, err
		}
		pairs := analyzer.FlattenWordPairs(rows)

		return map[string]any{
			"success":     true,
			"word_pairs":  pairs,
			"total_pairs": len(pairs),
		}, nil
	})
	if err != nil {
		logger.Error("Word pair analysis failed", "group_a", groupA, "group_b", groupB, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	recordAnalysisUsage(c, "analyze_word_pairs", map[string]any{
		"group_names": []string{groupA, groupB},
		"cached":      cached,
	})
	return c.JSON(http.StatusOK, payload)
}
