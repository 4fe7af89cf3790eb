package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/internal/cache"
	"github.com/chenraccah/semantic-network-analyzer/internal/queue"
	"github.com/chenraccah/semantic-network-analyzer/internal/server/middleware"
	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

// AnalyzeMultiHandler analyzes any number of groups in one request
// (multipart/form-data). Files map onto groups through file_groups; when
// the file and group counts match the mapping defaults to one file per
// group in order.
func AnalyzeMultiHandler(c echo.Context) error {
	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}
	limits := tier.LimitsFor(profile.Tier)

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No files provided"})
	}

	var groupNames []string
	if err := json.Unmarshal([]byte(c.FormValue("group_names")), &groupNames); err != nil || len(groupNames) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "group_names must be a JSON array of group names"})
	}
	if len(groupNames) > limits.MaxGroups {
		return c.JSON(http.StatusForbidden, middleware.GroupLimitResponse(profile.Tier, limits.MaxGroups))
	}

	assignments, errResp := fileGroupAssignments(c, len(uploads), len(groupNames))
	if assignments == nil {
		return errResp
	}
	columns, errResp := fileTextColumns(c, len(uploads))
	if columns == nil {
		return errResp
	}

	opts, err := jobOptionsFromForm(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	cc := appContext(c)
	if opts.Semantic && cc.App.Similarity == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Semantic analysis is not available"})
	}

	ctx := c.Request().Context()
	textsPerGroup := make([][]string, len(groupNames))
	hashes := make([]string, 0, len(uploads))
	for i, file := range uploads {
		docs, hash, err := uploadDocuments(ctx, fmt.Sprintf("analyze_multi_%d", i), file, columns[i], limits)
		if err != nil {
			return uploadErrorResponse(c, err)
		}
		gi := assignments[i]
		textsPerGroup[gi] = append(textsPerGroup[gi], docs...)
		hashes = append(hashes, hash)
	}
	for i, texts := range textsPerGroup {
		if len(texts) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("No texts found for group %s", groupNames[i])})
		}
	}

	key, err := cache.Key(hashes, struct {
		Endpoint    string           `json:"endpoint"`
		GroupNames  []string         `json:"group_names"`
		Assignments []int            `json:"assignments"`
		Columns     []int            `json:"columns"`
		Options     queue.JobOptions `json:"options"`
		MaxWords    *int             `json:"max_words"`
	}{"analyze_multi", groupNames, assignments, columns, opts, limits.MaxWords})
	if err != nil {
		logger.Error("Failed to build cache key", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	numTexts := make([]int, len(groupNames))
	for i, texts := range textsPerGroup {
		numTexts[i] = len(texts)
	}

	payload, cached, err := cc.App.Cache.Do(key, func() (any, error) {
		analyzer, err := analysis.NewAnalyzer(analysis.NewAnalyzerParams{
			GroupNames: groupNames,
			Processor:  opts.BuildProcessor(),
			Provider:   similarityProvider(cc),
		})
		if err != nil {
			return nil, err
		}
		result, err := analyzer.Analyze(ctx, textsPerGroup, opts.AnalysisOptions())
		if err != nil {
			return nil, err
		}
		capWords(result, limits.MaxWords)

		body := flatPayload(result.Flatten())
		body["num_texts"] = numTexts
		return body, nil
	})
	if err != nil {
		logger.Error("Multi group analysis failed", "groups", len(groupNames), "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	recordAnalysisUsage(c, "analyze_multi", map[string]any{
		"group_names": groupNames,
		"num_texts":   numTexts,
		"cached":      cached,
	})
	return c.JSON(http.StatusOK, payload)
}

// fileGroupAssignments resolves which group each uploaded file feeds. A nil
// slice means the error response has been written.
func fileGroupAssignments(c echo.Context, numFiles, numGroups int) ([]int, error) {
	raw := c.FormValue("file_groups")
	if raw == "" {
		if numFiles != numGroups {
			return nil, c.JSON(http.StatusBadRequest, map[string]string{
				"error": "file_groups is required when the file count does not match the group count",
			})
		}
		assignments := make([]int, numFiles)
		for i := range assignments {
			assignments[i] = i
		}
		return assignments, nil
	}

	var assignments []int
	if err := json.Unmarshal([]byte(raw), &assignments); err != nil || len(assignments) != numFiles {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{
			"error": "file_groups must be a JSON array with one group index per file",
		})
	}
	for i, gi := range assignments {
		if gi < 0 || gi >= numGroups {
			return nil, c.JSON(http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("file %d references group %d, request has %d groups", i, gi, numGroups),
			})
		}
	}
	return assignments, nil
}

// fileTextColumns resolves the text column per uploaded file, from the
// text_columns JSON array or the shared text_column field. A nil slice
// means the error response has been written.
func fileTextColumns(c echo.Context, numFiles int) ([]int, error) {
	raw := c.FormValue("text_columns")
	if raw == "" {
		shared := textColumnFromForm(c)
		columns := make([]int, numFiles)
		for i := range columns {
			columns[i] = shared
		}
		return columns, nil
	}

	var columns []int
	if err := json.Unmarshal([]byte(raw), &columns); err != nil || len(columns) != numFiles {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{
			"error": "text_columns must be a JSON array with one column index per file",
		})
	}
	for i, col := range columns {
		if col < 0 {
			return nil, c.JSON(http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("file %d has negative text column %d", i, col),
			})
		}
	}
	return columns, nil
}
