// Package routes holds one handler per API operation. Handlers reach shared
// clients through the middleware.AppContext and keep their request and
// response types local.
package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/internal/cache"
	"github.com/chenraccah/semantic-network-analyzer/internal/queue"
	"github.com/chenraccah/semantic-network-analyzer/internal/server/middleware"
	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/loader"
	"github.com/chenraccah/semantic-network-analyzer/pkg/network"

	csvloader "github.com/chenraccah/semantic-network-analyzer/pkg/loader/csv"
	docloader "github.com/chenraccah/semantic-network-analyzer/pkg/loader/doc"
	excelloader "github.com/chenraccah/semantic-network-analyzer/pkg/loader/excel"
	ioloader "github.com/chenraccah/semantic-network-analyzer/pkg/loader/io"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

func appContext(c echo.Context) *middleware.AppContext {
	return c.(*middleware.AppContext)
}

// similarityProvider returns the shared provider as the analyzer's
// interface type, keeping the interface nil when no backend is configured.
func similarityProvider(cc *middleware.AppContext) analysis.SimilarityProvider {
	if cc.App.Similarity == nil {
		return nil
	}
	return cc.App.Similarity
}

// jobOptionsFromForm reads the analysis knobs shared by the synchronous
// endpoints. Field names match the first public API version, so absent
// fields keep the analyzer defaults rather than becoming zero values.
func jobOptionsFromForm(c echo.Context) (queue.JobOptions, error) {
	opts := queue.JobOptions{
		MinFrequency:        intForm(c, "min_frequency"),
		MinEdgeWeight:       intForm(c, "min_edge_weight"),
		TargetClusters:      intForm(c, "target_clusters"),
		MinScoreThreshold:   floatForm(c, "min_score_threshold"),
		Resolution:          floatForm(c, "resolution"),
		SimilarityThreshold: floatForm(c, "similarity_threshold"),
		ClusterMethod:       c.FormValue("cluster_method"),
		Semantic:            boolForm(c, "semantic"),
	}

	if raw := c.FormValue("per_group_thresholds"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.PerGroupThresholds); err != nil {
			return opts, fmt.Errorf("invalid per_group_thresholds: %w", err)
		}
	}
	if raw := c.FormValue("word_mappings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.WordMappings); err != nil {
			return opts, fmt.Errorf("invalid word_mappings: %w", err)
		}
	}
	if raw := c.FormValue("delete_words"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.DeleteWords); err != nil {
			return opts, fmt.Errorf("invalid delete_words: %w", err)
		}
	}
	if raw := c.FormValue("extra_stopwords"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.ExtraStopwords); err != nil {
			return opts, fmt.Errorf("invalid extra_stopwords: %w", err)
		}
	}

	return opts, nil
}

func intForm(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.FormValue(name))
	if err != nil {
		return 0
	}
	return v
}

func floatForm(c echo.Context, name string) float64 {
	v, err := strconv.ParseFloat(c.FormValue(name), 64)
	if err != nil {
		return 0
	}
	return v
}

func boolForm(c echo.Context, name string) bool {
	v := c.FormValue(name)
	return v == "true" || v == "1"
}

// textColumnFromForm returns the 0-indexed text column, defaulting to
// column 1 when the field is absent. Column 0 is a valid choice.
func textColumnFromForm(c echo.Context) int {
	raw := c.FormValue("text_column")
	if raw == "" {
		return loader.DefaultTextColumn
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return loader.DefaultTextColumn
	}
	return v
}

// readUpload pulls one multipart file into memory, enforcing the plan's
// file size limit.
func readUpload(file *multipart.FileHeader, limits tier.Limits) ([]byte, error) {
	if file.Size > limits.MaxUploadBytes() {
		return nil, &fileTooLargeError{name: file.Filename, maxMB: limits.MaxFileSizeMB}
	}
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", file.Filename, err)
	}
	defer src.Close()
	return io.ReadAll(src)
}

type fileTooLargeError struct {
	name  string
	maxMB int
}

func (e *fileTooLargeError) Error() string {
	return fmt.Sprintf("%s exceeds the %d MB limit for your plan", e.name, e.maxMB)
}

// uploadedSource wraps in-memory upload content in a TextSource with the
// column loader matching the file's extension.
func uploadedSource(id, filename string, content []byte, column int) (loader.TextSource, error) {
	srcType, err := loader.TypeForFile(filename)
	if err != nil {
		return loader.TextSource{}, err
	}

	byts := ioloader.NewBytesSourceLoader(content)
	params := loader.NewTextSourceParams{ID: id, Path: filename, Column: column}
	switch srcType {
	case loader.SourceTypeCSV:
		params.Loader = csvloader.NewCSVColumnLoader(byts)
		return loader.NewCSVSource(params), nil
	case loader.SourceTypeExcel:
		params.Loader = excelloader.NewExcelColumnLoader(byts)
		return loader.NewExcelSource(params), nil
	default:
		params.Loader = docloader.NewDocColumnLoader(byts)
		return loader.NewDocSource(params), nil
	}
}

// uploadDocuments reads an upload, hashes its content for the result cache,
// and extracts its documents.
func uploadDocuments(ctx context.Context, id string, file *multipart.FileHeader, column int, limits tier.Limits) ([]string, string, error) {
	content, err := readUpload(file, limits)
	if err != nil {
		return nil, "", err
	}
	src, err := uploadedSource(id, file.Filename, content, column)
	if err != nil {
		return nil, "", err
	}
	docs, err := src.Documents(ctx)
	if err != nil {
		return nil, "", err
	}
	return docs, cache.HashContent(content), nil
}

// capWords trims the result to the plan's word budget. Records arrive
// sorted by average normalized score, so the cap keeps the strongest words
// and drops edges whose endpoints fall away. Per-group network stats
// still describe the full networks.
func capWords(result *analysis.Result, maxWords *int) {
	if maxWords == nil || len(result.Records) <= *maxWords {
		return
	}
	result.Records = result.Records[:*maxWords]

	kept := make(map[string]struct{}, len(result.Records))
	wordsInAll := 0
	for _, rec := range result.Records {
		kept[rec.Word] = struct{}{}
		if rec.InAllGroups {
			wordsInAll++
		}
	}

	edges := make([]analysis.CombinedEdge, 0, len(result.Edges))
	for _, edge := range result.Edges {
		if _, ok := kept[edge.From]; !ok {
			continue
		}
		if _, ok := kept[edge.To]; !ok {
			continue
		}
		edges = append(edges, edge)
	}
	result.Edges = edges

	result.Stats.TotalWords = len(result.Records)
	result.Stats.TotalEdges = len(edges)
	result.Stats.WordsInAll = wordsInAll
}

// capSingleGroup trims a standalone group result to the plan's word budget.
// Nodes arrive sorted by normalized score descending.
func capSingleGroup(result *analysis.SingleGroupResult, maxWords *int) {
	if maxWords == nil || len(result.Nodes) <= *maxWords {
		return
	}
	result.Nodes = result.Nodes[:*maxWords]

	kept := make(map[string]struct{}, len(result.Nodes))
	for _, node := range result.Nodes {
		kept[node.Word] = struct{}{}
	}
	edges := make([]network.EdgeRow, 0, len(result.Edges))
	for _, edge := range result.Edges {
		if _, ok := kept[edge.From]; !ok {
			continue
		}
		if _, ok := kept[edge.To]; !ok {
			continue
		}
		edges = append(edges, edge)
	}
	result.Edges = edges
}

// flatPayload spreads a flattened result into the legacy response shape,
// matching the first public API version's top-level fields.
func flatPayload(flat analysis.FlatResult) map[string]any {
	return map[string]any{
		"success":       true,
		"analysis_data": flat.AnalysisData,
		"edges":         flat.Edges,
		"stats":         flat.Stats,
		"group_names":   flat.GroupNames,
		"group_keys":    flat.GroupKeys,
		"num_groups":    flat.NumGroups,
	}
}

// recordAnalysisUsage bumps the caller's daily counter and writes a usage
// log entry. Failures are logged, not surfaced; the analysis already ran.
func recordAnalysisUsage(c echo.Context, action string, metadata map[string]any) {
	cc := appContext(c)
	if cc.User == nil {
		return
	}
	ctx := c.Request().Context()
	if _, err := cc.App.Store.IncrementAnalysisCount(ctx, cc.User.UserID); err != nil {
		logger.Error("Failed to increment analysis counter", "user", cc.User.UserID, "err", err)
	}
	logUsage(c, action, metadata)
}

func logUsage(c echo.Context, action string, metadata map[string]any) {
	cc := appContext(c)
	if cc.User == nil {
		return
	}
	var encoded []byte
	if metadata != nil {
		encoded, _ = json.Marshal(metadata)
	}
	if err := cc.App.Store.LogUsage(c.Request().Context(), cc.User.UserID, action, encoded); err != nil {
		logger.Error("Failed to log usage", "user", cc.User.UserID, "action", action, "err", err)
	}
}

// uploadErrorResponse maps an upload failure onto the right status code.
func uploadErrorResponse(c echo.Context, err error) error {
	if tooLarge, ok := err.(*fileTooLargeError); ok {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": tooLarge.Error()})
	}
	return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// currentProfile loads the caller's profile or writes the error response.
// A nil profile means the response has been written already.
func currentProfile(c echo.Context) (*store.Profile, error) {
	profile, err := middleware.Profile(c)
	if errors.Is(err, middleware.ErrNoUser) {
		return nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	if err != nil {
		logger.Error("Failed to load user profile", "err", err)
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return profile, nil
}
