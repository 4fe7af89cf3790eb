package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

func TestEnsureProfileCreatesFreeTier(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	p, err := s.EnsureProfile(ctx, "user-1", "u@example.com")
	if err != nil {
		t.Fatalf("EnsureProfile returned error: %v", err)
	}
	if p.Tier != tier.Free {
		t.Errorf("expected free tier, got %q", p.Tier)
	}
	if p.AnalysesToday != 0 || p.ChatMessagesMonth != 0 {
		t.Errorf("expected zero counters, got %d/%d", p.AnalysesToday, p.ChatMessagesMonth)
	}

	// Second call keeps the profile and fills in a missing email only.
	p2, err := s.EnsureProfile(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("EnsureProfile returned error: %v", err)
	}
	if p2.Email != "u@example.com" {
		t.Errorf("expected email preserved, got %q", p2.Email)
	}
}

func TestIncrementAnalysisCountResetsDaily(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day1 }

	if _, err := s.EnsureProfile(ctx, "user-1", ""); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		n, err := s.IncrementAnalysisCount(ctx, "user-1")
		if err != nil {
			t.Fatalf("IncrementAnalysisCount returned error: %v", err)
		}
		if n != i {
			t.Errorf("expected count %d, got %d", i, n)
		}
	}

	s.now = func() time.Time { return day1.Add(24 * time.Hour) }
	n, err := s.IncrementAnalysisCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("IncrementAnalysisCount returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected count reset to 1 on new day, got %d", n)
	}

	p, err := s.EnsureProfile(ctx, "user-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.AnalysesToday != 1 {
		t.Errorf("expected profile to report 1, got %d", p.AnalysesToday)
	}
}

func TestIncrementChatMessagesResetsMonthly(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	march := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return march }

	if _, err := s.EnsureProfile(ctx, "user-1", ""); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.IncrementChatMessages(ctx, "user-1", 4); n != 4 {
		t.Errorf("expected 4, got %d", n)
	}
	if n, _ := s.IncrementChatMessages(ctx, "user-1", 2); n != 6 {
		t.Errorf("expected 6, got %d", n)
	}

	s.now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }
	if n, _ := s.IncrementChatMessages(ctx, "user-1", 1); n != 1 {
		t.Errorf("expected reset to 1 in new month, got %d", n)
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	a := &store.Analysis{
		ID:         "an-1",
		UserID:     "user-1",
		Name:       "pilot study",
		GroupNames: []string{"Group A", "Group B"},
		FileKeys:   []string{"uploads/user-1/x.csv"},
		Params:     []byte(`{"min_frequency":1}`),
	}
	if err := s.CreateAnalysis(ctx, a); err != nil {
		t.Fatalf("CreateAnalysis returned error: %v", err)
	}
	if err := s.CreateAnalysis(ctx, a); err == nil {
		t.Error("expected duplicate create to fail")
	}

	got, err := s.GetAnalysis(ctx, "an-1", "user-1")
	if err != nil {
		t.Fatalf("GetAnalysis returned error: %v", err)
	}
	if got.Status != store.StatusPending || got.Stage != util.JobStageQueued {
		t.Errorf("expected pending/queued, got %s/%s", got.Status, got.Stage)
	}

	if _, err := s.GetAnalysis(ctx, "an-1", "someone-else"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for wrong user, got %v", err)
	}

	if err := s.SetAnalysisStage(ctx, "an-1", util.JobStageAnalyzing); err != nil {
		t.Fatalf("SetAnalysisStage returned error: %v", err)
	}
	got, _ = s.GetAnalysis(ctx, "an-1", "user-1")
	if got.Status != store.StatusProcessing {
		t.Errorf("expected processing after stage update, got %s", got.Status)
	}

	if err := s.CompleteAnalysis(ctx, "an-1", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("CompleteAnalysis returned error: %v", err)
	}
	got, _ = s.GetAnalysis(ctx, "an-1", "user-1")
	if got.Status != store.StatusCompleted || string(got.Result) != `{"ok":true}` {
		t.Errorf("unexpected completed analysis: %s %s", got.Status, got.Result)
	}

	keys, err := s.DeleteAnalysis(ctx, "an-1", "user-1")
	if err != nil {
		t.Fatalf("DeleteAnalysis returned error: %v", err)
	}
	if len(keys) != 1 || keys[0] != "uploads/user-1/x.csv" {
		t.Errorf("unexpected file keys: %v", keys)
	}
	if _, err := s.GetAnalysis(ctx, "an-1", "user-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFailAnalysis(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	a := &store.Analysis{ID: "an-2", UserID: "user-1"}
	if err := s.CreateAnalysis(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.FailAnalysis(ctx, "an-2", "column out of range"); err != nil {
		t.Fatalf("FailAnalysis returned error: %v", err)
	}
	got, _ := s.GetAnalysis(ctx, "an-2", "user-1")
	if got.Status != store.StatusFailed || got.Error != "column out of range" {
		t.Errorf("unexpected failed analysis: %s %q", got.Status, got.Error)
	}
}

func TestListAnalysesNewestFirst(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		tick := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return tick }
		if err := s.CreateAnalysis(ctx, &store.Analysis{ID: id, UserID: "user-1", GroupNames: []string{"g"}}); err != nil {
			t.Fatal(err)
		}
	}
	s.now = time.Now

	got, err := s.ListAnalyses(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("ListAnalyses returned error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("unexpected list order: %+v", got)
	}
}

func TestListExpiredAnalyses(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	if err := s.CreateAnalysis(ctx, &store.Analysis{ID: "old", UserID: "u", ExpiresAt: &past, FileKeys: []string{"k1"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAnalysis(ctx, &store.Analysis{ID: "fresh", UserID: "u", ExpiresAt: &future}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAnalysis(ctx, &store.Analysis{ID: "keeper", UserID: "u"}); err != nil {
		t.Fatal(err)
	}

	expired, err := s.ListExpiredAnalyses(ctx, 10)
	if err != nil {
		t.Fatalf("ListExpiredAnalyses returned error: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "old" || len(expired[0].FileKeys) != 1 {
		t.Errorf("unexpected expired set: %+v", expired)
	}

	if err := s.DeleteAnalysisByID(ctx, "old"); err != nil {
		t.Fatalf("DeleteAnalysisByID returned error: %v", err)
	}
	expired, _ = s.ListExpiredAnalyses(ctx, 10)
	if len(expired) != 0 {
		t.Errorf("expected no expired analyses after sweep, got %+v", expired)
	}
}

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	if err := s.StoreEmbeddings(ctx, "m1", map[string][]float32{
		"cat": {0.1, 0.2},
		"dog": {0.3, 0.4},
	}); err != nil {
		t.Fatalf("StoreEmbeddings returned error: %v", err)
	}

	got, err := s.CachedEmbeddings(ctx, "m1", []string{"cat", "bird", "cat"})
	if err != nil {
		t.Fatalf("CachedEmbeddings returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(got))
	}
	if got["cat"][0] != 0.1 || got["cat"][1] != 0.2 {
		t.Errorf("unexpected vector: %v", got["cat"])
	}

	// Other models do not see the vectors.
	got, _ = s.CachedEmbeddings(ctx, "m2", []string{"cat"})
	if len(got) != 0 {
		t.Errorf("expected no hits for other model, got %v", got)
	}
}
