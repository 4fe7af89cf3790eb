package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/internal/timing"
	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/leaselock"
	"github.com/chenraccah/semantic-network-analyzer/pkg/loader"
	csvloader "github.com/chenraccah/semantic-network-analyzer/pkg/loader/csv"
	docloader "github.com/chenraccah/semantic-network-analyzer/pkg/loader/doc"
	excelloader "github.com/chenraccah/semantic-network-analyzer/pkg/loader/excel"
	s3loader "github.com/chenraccah/semantic-network-analyzer/pkg/loader/s3"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// maxParallelLoads bounds the concurrent S3 fetches and extractions per job.
const maxParallelLoads = 4

// downloadAttempts retries transient S3 failures before failing the job.
const downloadAttempts = 3

// errJobObsolete signals that the analysis record disappeared mid-run,
// usually because the user deleted it. The job is dropped, not retried.
var errJobObsolete = errors.New("analysis record no longer exists")

// ProcessAnalysisJob runs one queued analysis end to end: lease the
// analysis id, download and extract the staged uploads, run the analyzer,
// and store the result. A failure marks the analysis failed and is
// returned so the consumer can retry the message.
func ProcessAnalysisJob(
	ctx context.Context,
	s3Client *awss3.Client,
	provider analysis.SimilarityProvider,
	st store.Storage,
	conn *pgxpool.Pool,
	msg string,
) error {
	job := new(AnalysisJob)
	if err := json.Unmarshal([]byte(msg), job); err != nil {
		return fmt.Errorf("failed to decode analysis job: %w", err)
	}
	if job.AnalysisID == "" {
		return fmt.Errorf("analysis job has no id")
	}
	if err := job.Request.Validate(); err != nil {
		return fmt.Errorf("invalid analysis job %s: %w", job.AnalysisID, err)
	}

	// The lease makes redelivered copies of an in-flight job harmless: the
	// holder keeps working and the duplicate is dropped.
	lockClient := leaselock.New(conn)
	lease, err := lockClient.Acquire(ctx, "analysis:"+job.AnalysisID, leaselock.Options{
		TTL:         10 * time.Minute,
		RenewEvery:  4 * time.Minute,
		TokenPrefix: fmt.Sprintf("analyze/%s/", job.AnalysisID),
	})
	if err != nil {
		if errors.Is(err, leaselock.ErrBusy) {
			logger.Info("[Queue] Analysis already being processed, dropping duplicate", "analysis_id", job.AnalysisID)
			return nil
		}
		return err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("[Queue] Failed to release analysis lease", "analysis_id", job.AnalysisID, "err", err)
		}
	}()

	err = runAnalysisJob(lease.Context, s3Client, provider, st, conn, job)
	if errors.Is(err, errJobObsolete) {
		logger.Info("[Queue] Analysis record gone, dropping job", "analysis_id", job.AnalysisID)
		return nil
	}
	if err != nil {
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		reason := util.SanitizePostgresText(err.Error())
		if failErr := st.FailAnalysis(updateCtx, job.AnalysisID, reason); failErr != nil && !errors.Is(failErr, store.ErrNotFound) {
			logger.Warn("[Queue] Failed to mark analysis failed", "analysis_id", job.AnalysisID, "err", failErr)
		}
		return err
	}
	return nil
}

func runAnalysisJob(
	ctx context.Context,
	s3Client *awss3.Client,
	provider analysis.SimilarityProvider,
	st store.Storage,
	conn *pgxpool.Pool,
	job *AnalysisJob,
) error {
	opts := job.Request.Options
	if opts.Semantic && provider == nil {
		return fmt.Errorf("semantic augmentation requested but no embedding backend is configured")
	}

	logger.Info("[Queue] Processing analysis",
		"analysis_id", job.AnalysisID,
		"files", len(job.Request.Files),
		"groups", len(job.Request.GroupNames))

	bucket := util.GetEnvString("AWS_BUCKET", "analyses")
	byteLoader := s3loader.NewS3SourceLoaderWithClient(bucket, s3Client)
	formats := newFormatLoaders(byteLoader)

	sources := make([]loader.TextSource, len(job.Request.Files))
	for i, file := range job.Request.Files {
		src, err := formats.sourceFor(fmt.Sprintf("%s-%d", job.AnalysisID, i), file)
		if err != nil {
			return err
		}
		sources[i] = src
	}

	// Download: warm the byte loader's cache so extraction reads locally.
	if err := markStage(ctx, st, job.AnalysisID, util.JobStageDownloading); err != nil {
		return err
	}
	downloadStart := time.Now()
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelLoads)
	for _, src := range sources {
		eg.Go(func() error {
			_, err := util.RetryWithContext(egCtx, downloadAttempts, func(ctx context.Context) ([]byte, error) {
				return byteLoader.GetFileBytes(ctx, src)
			})
			if err != nil {
				return fmt.Errorf("failed to download %s: %w", src.Path, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	downloadMs := time.Since(downloadStart).Milliseconds()

	// Extract the text column (or paragraphs) of every file.
	if err := markStage(ctx, st, job.AnalysisID, util.JobStageExtracting); err != nil {
		return err
	}
	extractStart := time.Now()
	perFileDocs := make([][]string, len(sources))
	eg, egCtx = errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelLoads)
	for i, src := range sources {
		eg.Go(func() error {
			docs, err := src.Documents(egCtx)
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", src.Path, err)
			}
			perFileDocs[i] = docs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	textsPerGroup, totalDocs, err := groupDocuments(job.Request.Files, perFileDocs, job.Request.GroupNames)
	if err != nil {
		return err
	}
	extractMs := time.Since(extractStart).Milliseconds()

	recordTiming(ctx, conn, job.AnalysisID, "download", totalDocs, downloadMs)
	recordTiming(ctx, conn, job.AnalysisID, "extract", totalDocs, extractMs)

	predicted, err := timing.PredictDuration(ctx, totalDocs, conn)
	if err != nil {
		logger.Warn("[Queue] Failed to predict duration", "analysis_id", job.AnalysisID, "err", err)
	} else if predicted > 0 {
		logger.Info("[Queue] Predicted processing time", "analysis_id", job.AnalysisID, "documents", totalDocs, "time_ms", predicted)
		if err := st.SetAnalysisEstimate(ctx, job.AnalysisID, predicted); err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.Warn("[Queue] Failed to store duration estimate", "analysis_id", job.AnalysisID, "err", err)
		}
	}

	// Analyze.
	if err := markStage(ctx, st, job.AnalysisID, util.JobStageAnalyzing); err != nil {
		return err
	}
	analyzeStart := time.Now()
	analyzer, err := analysis.NewAnalyzer(analysis.NewAnalyzerParams{
		GroupNames: job.Request.GroupNames,
		Processor:  opts.BuildProcessor(),
		Provider:   provider,
	})
	if err != nil {
		return err
	}
	result, err := analyzer.Analyze(ctx, textsPerGroup, opts.AnalysisOptions())
	if err != nil {
		return err
	}
	recordTiming(ctx, conn, job.AnalysisID, "analyze", totalDocs, time.Since(analyzeStart).Milliseconds())

	for i, diags := range result.Diagnostics {
		if len(diags) > 0 {
			logger.Warn("[Queue] Metrics degraded for group",
				"analysis_id", job.AnalysisID,
				"group", job.Request.GroupNames[i],
				"degraded", len(diags))
		}
	}

	// Store the structured result; the API flattens on read so the word
	// cap of the caller's current tier applies.
	if err := markStage(ctx, st, job.AnalysisID, util.JobStageStoring); err != nil {
		return err
	}
	storeStart := time.Now()
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}
	if err := st.CompleteAnalysis(ctx, job.AnalysisID, payload); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errJobObsolete
		}
		return err
	}
	recordTiming(ctx, conn, job.AnalysisID, "store", totalDocs, time.Since(storeStart).Milliseconds())

	logger.Info("[Queue] Analysis completed",
		"analysis_id", job.AnalysisID,
		"documents", totalDocs,
		"words", result.Stats.TotalWords,
		"edges", result.Stats.TotalEdges)
	return nil
}

func markStage(ctx context.Context, st store.Storage, id string, stage util.JobStage) error {
	if err := st.SetAnalysisStage(ctx, id, stage); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errJobObsolete
		}
		return fmt.Errorf("failed to record stage %s: %w", stage, err)
	}
	return nil
}

func recordTiming(ctx context.Context, conn *pgxpool.Pool, id, stage string, documents int, durationMs int64) {
	if err := timing.RecordDuration(ctx, id, stage, documents, durationMs, conn); err != nil {
		logger.Warn("[Queue] Failed to record timing", "analysis_id", id, "stage", stage, "err", err)
	}
}

// formatLoaders holds one column loader per supported format, all reading
// through the same byte loader so each object is fetched once.
type formatLoaders struct {
	csv   *csvloader.CSVColumnLoader
	excel *excelloader.ExcelColumnLoader
	doc   *docloader.DocColumnLoader
}

func newFormatLoaders(byts loader.ByteLoader) formatLoaders {
	return formatLoaders{
		csv:   csvloader.NewCSVColumnLoader(byts),
		excel: excelloader.NewExcelColumnLoader(byts),
		doc:   docloader.NewDocColumnLoader(byts),
	}
}

// sourceFor builds the text source for a staged upload, picking the loader
// by file extension.
func (l formatLoaders) sourceFor(id string, file JobFile) (loader.TextSource, error) {
	name := file.Name
	if name == "" {
		name = file.Key
	}
	srcType, err := loader.TypeForFile(name)
	if err != nil {
		return loader.TextSource{}, fmt.Errorf("file %q: %w", name, err)
	}

	params := loader.NewTextSourceParams{
		ID:     id,
		Path:   file.Key,
		Column: file.TextColumn,
	}
	switch srcType {
	case loader.SourceTypeCSV:
		params.Loader = l.csv
		return loader.NewCSVSource(params), nil
	case loader.SourceTypeExcel:
		params.Loader = l.excel
		return loader.NewExcelSource(params), nil
	case loader.SourceTypeDoc:
		params.Loader = l.doc
		return loader.NewDocSource(params), nil
	}
	return loader.TextSource{}, fmt.Errorf("file %q: unsupported source type %s", name, srcType)
}

// groupDocuments merges per-file documents into the request's groups,
// preserving file order within each group. Every group must end up with at
// least one document.
func groupDocuments(files []JobFile, perFile [][]string, groupNames []string) ([][]string, int, error) {
	groups := make([][]string, len(groupNames))
	total := 0
	for i, file := range files {
		groups[file.Group] = append(groups[file.Group], perFile[i]...)
		total += len(perFile[i])
	}
	for i, docs := range groups {
		if len(docs) == 0 {
			return nil, 0, fmt.Errorf("no text documents found for group %q", groupNames[i])
		}
	}
	return groups, total, nil
}
