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

// AnalyzeCompareHandler compares two groups' text files and returns the
// merged network (multipart/form-data)
func AnalyzeCompareHandler(c echo.Context) error {
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

	cc := appContext(c)
	if opts.Semantic && cc.App.Similarity == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Semantic analysis is not available"})
	}

	ctx := c.Request().Context()
	docsA, hashA, err := uploadDocuments(ctx, "analyze_compare_a", fileA, column, limits)
	if err != nil {
		return uploadErrorResponse(c, err)
	}
	docsB, hashB, err := uploadDocuments(ctx, "analyze_compare_b", fileB, column, limits)
	if err != nil {
		return uploadErrorResponse(c, err)
	}
	if len(docsA) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("No texts found in %s file", groupA)})
	}
	if len(docsB) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("No texts found in %s file", groupB)})
	}

	key, err := cache.Key([]string{hashA, hashB}, struct {
		Endpoint   string           `json:"endpoint"`
		GroupNames []string         `json:"group_names"`
		Column     int              `json:"column"`
		Options    queue.JobOptions `json:"options"`
		MaxWords   *int             `json:"max_words"`
	}{"analyze_compare", []string{groupA, groupB}, column, opts, limits.MaxWords})
	if err != nil {
		logger.Error("Failed to build cache key", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	payload, cached, err := cc.App.Cache.Do(key, func() (any, error) {
		analyzer, err := analysis.NewAnalyzer(analysis.NewAnalyzerParams{
			GroupNames: []string{groupA, groupB},
			Processor:  opts.BuildProcessor(),
			Provider:   similarityProvider(cc),
		})
		if err != nil {
			return nil, err
		}
		result, err := analyzer.Analyze(ctx, [][]string{docsA, docsB}, opts.AnalysisOptions())
		if err != nil {
			return nil, err
		}
		capWords(result, limits.MaxWords)

		body := flatPayload(result.Flatten())
		body["num_texts_a"] = len(docsA)
		body["num_texts_b"] = len(docsB)
		return body, nil
	})
	if err != nil {
		logger.Error("Comparison analysis failed", "group_a", groupA, "group_b", groupB, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	recordAnalysisUsage(c, "analyze_compare", map[string]any{
		"group_names": []string{groupA, groupB},
		"num_texts_a": len(docsA),
		"num_texts_b": len(docsB),
		"cached":      cached,
	})
	return c.JSON(http.StatusOK, payload)
}
