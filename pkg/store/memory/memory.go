// Package memory provides an in-memory store.Storage used by tests and
// by local development runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

type profileRow struct {
	profile         store.Profile
	analysesResetOn string
	chatResetOn     string
}

type Storage struct {
	mu  sync.Mutex
	now func() time.Time

	profiles   map[string]*profileRow
	analyses   map[string]*store.Analysis
	usage      []usageEntry
	embeddings map[string]map[string][]float32
}

type usageEntry struct {
	userID   string
	action   string
	metadata []byte
	at       time.Time
}

var _ store.Storage = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{
		now:        time.Now,
		profiles:   make(map[string]*profileRow),
		analyses:   make(map[string]*store.Analysis),
		embeddings: make(map[string]map[string][]float32),
	}
}

func (s *Storage) day() string   { return s.now().Format("2006-01-02") }
func (s *Storage) month() string { return s.now().Format("2006-01") }

func (s *Storage) EnsureProfile(ctx context.Context, userID, email string) (*store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.profiles[userID]
	if !ok {
		row = &profileRow{
			profile: store.Profile{
				UserID:    userID,
				Email:     email,
				Tier:      tier.Free,
				CreatedAt: s.now(),
				UpdatedAt: s.now(),
			},
			analysesResetOn: s.day(),
			chatResetOn:     s.month(),
		}
		s.profiles[userID] = row
	} else if email != "" {
		row.profile.Email = email
	}

	p := row.profile
	if row.analysesResetOn != s.day() {
		p.AnalysesToday = 0
	}
	if row.chatResetOn != s.month() {
		p.ChatMessagesMonth = 0
	}
	return &p, nil
}

func (s *Storage) SetTier(ctx context.Context, userID string, t tier.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.profiles[userID]
	if !ok {
		return store.ErrNotFound
	}
	row.profile.Tier = t
	row.profile.UpdatedAt = s.now()
	return nil
}

func (s *Storage) IncrementAnalysisCount(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.profiles[userID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if row.analysesResetOn != s.day() {
		row.profile.AnalysesToday = 0
		row.analysesResetOn = s.day()
	}
	row.profile.AnalysesToday++
	row.profile.UpdatedAt = s.now()
	return row.profile.AnalysesToday, nil
}

func (s *Storage) IncrementChatMessages(ctx context.Context, userID string, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.profiles[userID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if row.chatResetOn != s.month() {
		row.profile.ChatMessagesMonth = 0
		row.chatResetOn = s.month()
	}
	row.profile.ChatMessagesMonth += n
	row.profile.UpdatedAt = s.now()
	return row.profile.ChatMessagesMonth, nil
}

func (s *Storage) LogUsage(ctx context.Context, userID, action string, metadata []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, usageEntry{userID: userID, action: action, metadata: metadata, at: s.now()})
	return nil
}

func (s *Storage) CreateAnalysis(ctx context.Context, analysis *store.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.analyses[analysis.ID]; exists {
		return fmt.Errorf("analysis %s already exists", analysis.ID)
	}
	a := *analysis
	if a.Status == "" {
		a.Status = store.StatusPending
	}
	if a.Stage == "" {
		a.Stage = util.JobStageQueued
	}
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	s.analyses[a.ID] = &a
	return nil
}

func (s *Storage) GetAnalysis(ctx context.Context, id, userID string) (*store.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[id]
	if !ok || a.UserID != userID {
		return nil, store.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (s *Storage) ListAnalyses(ctx context.Context, userID string, limit int) ([]store.AnalysisSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var out []store.AnalysisSummary
	for _, a := range s.analyses {
		if a.UserID != userID {
			continue
		}
		out = append(out, store.AnalysisSummary{
			ID:        a.ID,
			Name:      a.Name,
			Status:    a.Status,
			NumGroups: len(a.GroupNames),
			CreatedAt: a.CreatedAt,
			ExpiresAt: a.ExpiresAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) SetAnalysisStage(ctx context.Context, id string, stage util.JobStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Stage = stage
	if stage == util.JobStageQueued {
		a.Status = store.StatusPending
	} else {
		a.Status = store.StatusProcessing
	}
	a.UpdatedAt = s.now()
	return nil
}

func (s *Storage) SetAnalysisEstimate(ctx context.Context, id string, estimatedMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[id]
	if !ok {
		return store.ErrNotFound
	}
	a.EstimatedMs = estimatedMs
	a.UpdatedAt = s.now()
	return nil
}

func (s *Storage) CompleteAnalysis(ctx context.Context, id string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = store.StatusCompleted
	a.Stage = util.JobStageCompleted
	a.Result = result
	a.Error = ""
	a.UpdatedAt = s.now()
	return nil
}

func (s *Storage) FailAnalysis(ctx context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = store.StatusFailed
	a.Stage = util.JobStageFailed
	a.Error = message
	a.UpdatedAt = s.now()
	return nil
}

func (s *Storage) ListStaleAnalyses(ctx context.Context, olderThan time.Duration, limit int) ([]store.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	cutoff := s.now().Add(-olderThan)
	var out []store.Analysis
	for _, a := range s.analyses {
		if a.Status != store.StatusPending && a.Status != store.StatusProcessing {
			continue
		}
		if !a.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) DeleteAnalysis(ctx context.Context, id, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[id]
	if !ok || a.UserID != userID {
		return nil, store.ErrNotFound
	}
	delete(s.analyses, id)
	return a.FileKeys, nil
}

func (s *Storage) ListExpiredAnalyses(ctx context.Context, limit int) ([]store.ExpiredAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	var out []store.ExpiredAnalysis
	for _, a := range s.analyses {
		if a.ExpiresAt != nil && a.ExpiresAt.Before(s.now()) {
			out = append(out, store.ExpiredAnalysis{ID: a.ID, FileKeys: a.FileKeys})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) DeleteAnalysisByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.analyses, id)
	return nil
}

func (s *Storage) CachedEmbeddings(ctx context.Context, model string, words []string) (map[string][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]float32)
	byWord := s.embeddings[model]
	for _, word := range store.DedupeStrings(words) {
		if vec, ok := byWord[word]; ok {
			cp := make([]float32, len(vec))
			copy(cp, vec)
			out[word] = cp
		}
	}
	return out, nil
}

func (s *Storage) StoreEmbeddings(ctx context.Context, model string, embeddings map[string][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byWord := s.embeddings[model]
	if byWord == nil {
		byWord = make(map[string][]float32)
		s.embeddings[model] = byWord
	}
	for word, vec := range embeddings {
		cp := make([]float32, len(vec))
		copy(cp, vec)
		byWord[word] = cp
	}
	return nil
}
