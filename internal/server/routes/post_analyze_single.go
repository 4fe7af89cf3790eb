package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/internal/cache"
	"github.com/chenraccah/semantic-network-analyzer/internal/queue"
	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

const defaultGroupName = "Group"

// AnalyzeSingleHandler analyzes one group's text file and returns its
// network (multipart/form-data)
func AnalyzeSingleHandler(c echo.Context) error {
	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}
	limits := tier.LimitsFor(profile.Tier)

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file provided"})
	}

	groupName := c.FormValue("group_name")
	if groupName == "" {
		groupName = defaultGroupName
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
	docs, hash, err := uploadDocuments(ctx, "analyze_single", file, column, limits)
	if err != nil {
		return uploadErrorResponse(c, err)
	}
	if len(docs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No texts found in file"})
	}

	key, err := cache.Key([]string{hash}, struct {
		Endpoint  string           `json:"endpoint"`
		GroupName string           `json:"group_name"`
		Column    int              `json:"column"`
		Options   queue.JobOptions `json:"options"`
		MaxWords  *int             `json:"max_words"`
	}{"analyze_single", groupName, column, opts, limits.MaxWords})
	if err != nil {
		logger.Error("Failed to build cache key", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	payload, cached, err := cc.App.Cache.Do(key, func() (any, error) {
		analyzer, err := analysis.NewAnalyzer(analysis.NewAnalyzerParams{
			GroupNames: []string{groupName},
			Processor:  opts.BuildProcessor(),
			Provider:   similarityProvider(cc),
		})
		if err != nil {
			return nil, err
		}
		if _, err := analyzer.Analyze(ctx, [][]string{docs}, opts.AnalysisOptions()); err != nil {
			return nil, err
		}
		single, err := analyzer.SingleGroup(0, opts.AnalysisOptions())
		if err != nil {
			return nil, err
		}
		capSingleGroup(single, limits.MaxWords)

		return map[string]any{
			"success":    true,
			"group_name": single.GroupName,
			"nodes":      single.Nodes,
			"edges":      single.Edges,
			"stats":      single.Stats,
			"num_texts":  len(docs),
		}, nil
	})
	if err != nil {
		logger.Error("Single group analysis failed", "group", groupName, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	recordAnalysisUsage(c, "analyze_single", map[string]any{
		"group_name": groupName,
		"num_texts":  len(docs),
		"cached":     cached,
	})
	return c.JSON(http.StatusOK, payload)
}
