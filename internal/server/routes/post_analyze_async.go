package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/chenraccah/semantic-network-analyzer/internal/queue"
	"github.com/chenraccah/semantic-network-analyzer/internal/server/middleware"
	"github.com/chenraccah/semantic-network-analyzer/internal/storage"
	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

// AnalyzeAsyncHandler stages the uploads in object storage and queues the
// analysis for the worker (multipart/form-data). Options arrive as one
// JSON field rather than flat form fields. Requires a tier with saved
// analyses, since the result is delivered through the analyses endpoints.
func AnalyzeAsyncHandler(c echo.Context) error {
	type submitResponse struct {
		AnalysisID string `json:"analysis_id"`
		Status     string `json:"status"`
	}

	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}
	limits := tier.LimitsFor(profile.Tier)
	if limits.SaveAnalysesDays == 0 {
		return c.JSON(http.StatusForbidden, map[string]any{
			"error": "Background analysis is a Pro feature. Upgrade to run large analyses in the background.",
			"tier":  profile.Tier,
		})
	}

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

	var opts queue.JobOptions
	if raw := c.FormValue("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "options must be a JSON object"})
		}
	}

	cc := appContext(c)
	if opts.Semantic {
		if !limits.SemanticEnabled {
			return c.JSON(http.StatusForbidden, middleware.SemanticLimitResponse(profile.Tier))
		}
		if cc.App.Similarity == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Semantic analysis is not available"})
		}
	}

	name := util.SanitizePostgresText(c.FormValue("name"))
	if name == "" {
		name = "Analysis"
	}

	analysisID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	ctx := c.Request().Context()
	jobFiles := make([]queue.JobFile, 0, len(uploads))
	keys := make([]string, 0, len(uploads))
	for i, file := range uploads {
		content, err := readUpload(file, limits)
		if err != nil {
			storage.DeleteFiles(ctx, cc.App.S3, keys)
			return uploadErrorResponse(c, err)
		}
		fID, err := gonanoid.New()
		if err != nil {
			storage.DeleteFiles(ctx, cc.App.S3, keys)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		key := fmt.Sprintf("analyses/%s/files/%s-%s", analysisID, fID, file.Filename)
		if err := storage.PutFile(ctx, cc.App.S3, key, bytes.NewReader(content)); err != nil {
			logger.Error("Failed to stage upload", "key", key, "err", err)
			storage.DeleteFiles(ctx, cc.App.S3, keys)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		keys = append(keys, key)
		jobFiles = append(jobFiles, queue.JobFile{
			Key:        key,
			Name:       file.Filename,
			Group:      assignments[i],
			TextColumn: columns[i],
		})
	}

	request := queue.JobRequest{GroupNames: groupNames, Files: jobFiles, Options: opts}
	if err := request.Validate(); err != nil {
		storage.DeleteFiles(ctx, cc.App.S3, keys)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	params, err := json.Marshal(request)
	if err != nil {
		storage.DeleteFiles(ctx, cc.App.S3, keys)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	expiresAt := time.Now().Add(time.Duration(limits.SaveAnalysesDays) * 24 * time.Hour)
	record := &store.Analysis{
		ID:         analysisID,
		UserID:     cc.User.UserID,
		Name:       name,
		GroupNames: groupNames,
		FileKeys:   keys,
		Params:     params,
		ExpiresAt:  &expiresAt,
	}
	if err := cc.App.Store.CreateAnalysis(ctx, record); err != nil {
		logger.Error("Failed to create analysis", "analysis_id", analysisID, "err", err)
		storage.DeleteFiles(ctx, cc.App.S3, keys)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	job := queue.AnalysisJob{AnalysisID: analysisID, UserID: cc.User.UserID, Request: request}
	body, err := json.Marshal(job)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	// A failed publish is not fatal: the stale job recovery pass rebuilds
	// pending analyses from their stored params and republishes them.
	if err := queue.PublishFIFO(cc.App.Queue, queue.AnalyzeQueue, body); err != nil {
		logger.Error("Failed to publish analysis job", "analysis_id", analysisID, "err", err)
	}

	recordAnalysisUsage(c, "analyze_async", map[string]any{
		"analysis_id": analysisID,
		"group_names": groupNames,
		"num_files":   len(uploads),
	})
	return c.JSON(http.StatusAccepted, submitResponse{
		AnalysisID: analysisID,
		Status:     string(store.StatusPending),
	})
}
