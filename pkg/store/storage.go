package store

import (
	"context"
	"errors"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

// ErrNotFound is returned when a requested record does not exist or
// belongs to a different user.
var ErrNotFound = errors.New("record not found")

type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// Profile is a user account with its subscription tier and rolling usage
// counters. AnalysesToday resets daily and ChatMessagesMonth resets monthly;
// reads always return the counter as of the current period.
type Profile struct {
	UserID            string
	Email             string
	Tier              tier.Tier
	AnalysesToday     int
	ChatMessagesMonth int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Analysis is a stored analysis job. Params holds the submitted options as
// JSON and Result holds the wire-shape output once the job completes.
// FileKeys are the S3 objects uploaded for this job. EstimatedMs is the
// predicted total duration recorded by the worker, 0 until known.
// ExpiresAt is nil for tiers without saved analyses or with unlimited
// retention.
type Analysis struct {
	ID          string
	UserID      string
	Name        string
	Status      AnalysisStatus
	Stage       util.JobStage
	GroupNames  []string
	FileKeys    []string
	Params      []byte
	Result      []byte
	Error       string
	EstimatedMs int64
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type AnalysisSummary struct {
	ID        string
	Name      string
	Status    AnalysisStatus
	NumGroups int
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// ExpiredAnalysis carries what the retention sweep needs to clean up
// a stored analysis and its uploads.
type ExpiredAnalysis struct {
	ID       string
	FileKeys []string
}

// Storage persists user profiles with their usage counters, analysis jobs
// and the word-embedding cache backing the similarity provider.
type Storage interface {
	// EnsureProfile returns the profile for userID, creating a free-tier
	// profile on first contact.
	EnsureProfile(ctx context.Context, userID, email string) (*Profile, error)
	SetTier(ctx context.Context, userID string, t tier.Tier) error
	// IncrementAnalysisCount atomically bumps today's analysis counter,
	// resetting it first if the last increment was on an earlier day,
	// and returns the new count.
	IncrementAnalysisCount(ctx context.Context, userID string) (int, error)
	// IncrementChatMessages atomically adds n to this month's chat counter,
	// resetting it first on a month rollover, and returns the new count.
	IncrementChatMessages(ctx context.Context, userID string, n int) (int, error)
	LogUsage(ctx context.Context, userID, action string, metadata []byte) error

	CreateAnalysis(ctx context.Context, analysis *Analysis) error
	GetAnalysis(ctx context.Context, id, userID string) (*Analysis, error)
	ListAnalyses(ctx context.Context, userID string, limit int) ([]AnalysisSummary, error)
	// SetAnalysisStage records pipeline progress; any stage past queued
	// also moves the status to processing.
	SetAnalysisStage(ctx context.Context, id string, stage util.JobStage) error
	// SetAnalysisEstimate records the predicted total duration once the
	// worker knows the job's document count.
	SetAnalysisEstimate(ctx context.Context, id string, estimatedMs int64) error
	CompleteAnalysis(ctx context.Context, id string, result []byte) error
	FailAnalysis(ctx context.Context, id string, message string) error
	// ListStaleAnalyses returns unfinished analyses whose last update is
	// older than olderThan, oldest first, so a recovery pass can requeue them.
	ListStaleAnalyses(ctx context.Context, olderThan time.Duration, limit int) ([]Analysis, error)
	// DeleteAnalysis removes the record and returns its file keys so the
	// caller can delete the uploaded objects.
	DeleteAnalysis(ctx context.Context, id, userID string) ([]string, error)
	ListExpiredAnalyses(ctx context.Context, limit int) ([]ExpiredAnalysis, error)
	DeleteAnalysisByID(ctx context.Context, id string) error

	// CachedEmbeddings returns the stored vectors for the given words under
	// the given model, keyed by word. Missing words are absent from the map.
	CachedEmbeddings(ctx context.Context, model string, words []string) (map[string][]float32, error)
	StoreEmbeddings(ctx context.Context, model string, embeddings map[string][]float32) error
}
