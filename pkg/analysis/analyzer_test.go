package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/chenraccah/semantic-network-analyzer/pkg/network"
)

func almost(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func newTwoGroupAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(NewAnalyzerParams{
		GroupNames: []string{"Group A", "Group B"},
	})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	return a
}

func zeroThresholdOptions() Options {
	opts := DefaultOptions()
	opts.MinScoreThreshold = 0
	return opts
}

func TestGroupKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Group A", "group_a"},
		{"upper", "UPPER", "upper"},
		{"whitespace runs", "  Multi   Word  Name ", "multi_word_name"},
		{"tabs", "tabs\tand spaces", "tabs_and_spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GroupKey(tt.in); got != tt.want {
				t.Errorf("GroupKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnalyzeTwoGroups(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	result, err := a.Analyze(context.Background(), [][]string{
		{"cats and dogs", "dogs and birds"},
		{"birds and fish"},
	}, zeroThresholdOptions())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	type row struct {
		word       string
		counts     []int
		norms      []float64
		avg        float64
		inAll      bool
		groupCount int
		diff       float64
	}
	got := make([]row, 0, len(result.Records))
	for _, r := range result.Records {
		if r.Difference == nil {
			t.Fatalf("record %q has no difference in a two-group analysis", r.Word)
		}
		got = append(got, row{
			word:       r.Word,
			counts:     []int{r.PerGroup[0].Count, r.PerGroup[1].Count},
			norms:      []float64{r.PerGroup[0].Normalized, r.PerGroup[1].Normalized},
			avg:        r.AvgNormalized,
			inAll:      r.InAllGroups,
			groupCount: r.GroupCount,
			diff:       *r.Difference,
		})
	}
	want := []row{
		{"bird", []int{1, 1}, []float64{50, 100}, 75, true, 2, -50},
		{"dog", []int{2, 0}, []float64{100, 0}, 50, false, 1, 100},
		{"fish", []int{0, 1}, []float64{0, 100}, 50, false, 1, -100},
		{"cat", []int{1, 0}, []float64{50, 0}, 25, false, 1, 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %+v, want %+v", got, want)
	}

	wantEdges := []CombinedEdge{
		{From: "bird", To: "dog", Weight: 1},
		{From: "bird", To: "fish", Weight: 1},
		{From: "cat", To: "dog", Weight: 1},
	}
	if !reflect.DeepEqual(result.Edges, wantEdges) {
		t.Errorf("edges = %+v, want %+v", result.Edges, wantEdges)
	}

	if result.Stats.TotalWords != 4 || result.Stats.WordsInAll != 1 || result.Stats.TotalEdges != 3 {
		t.Errorf("stats = %+v, want 4 words, 1 in all, 3 edges", result.Stats)
	}

	if result.GroupKeys[0] != "group_a" || result.GroupKeys[1] != "group_b" {
		t.Errorf("group keys = %v, want [group_a group_b]", result.GroupKeys)
	}

	a0 := result.GroupStats[0]
	if a0.IncludedWords != 3 || a0.OnlyWords != 2 || a0.Clusters != 1 {
		t.Errorf("group A stats = %+v, want 3 words, 2 only, 1 cluster", a0)
	}
	if a0.NumBridges != 2 || !reflect.DeepEqual(a0.ArticulationPoints, []string{"dog"}) {
		t.Errorf("group A structural = %+v, want 2 bridges and articulation point dog", a0)
	}
	b0 := result.GroupStats[1]
	if b0.IncludedWords != 2 || b0.OnlyWords != 1 || b0.Clusters != 1 {
		t.Errorf("group B stats = %+v, want 2 words, 1 only, 1 cluster", b0)
	}

	// A two-node group has no degree variance, so its assortativity
	// degrades to zero and reports a diagnostic.
	found := false
	for _, d := range result.Diagnostics[1] {
		if d.Metric == "assortativity" {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %+v, want assortativity degradation for group B", result.Diagnostics[1])
	}
}

func TestAnalyzeGroupCountMismatch(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	_, err := a.Analyze(context.Background(), [][]string{{"only one group"}}, DefaultOptions())
	if !errors.Is(err, ErrGroupCountMismatch) {
		t.Errorf("Analyze() error = %v, want ErrGroupCountMismatch", err)
	}
}

func TestAnalyzeThresholdBoundary(t *testing.T) {
	a, err := NewAnalyzer(NewAnalyzerParams{GroupNames: []string{"Solo"}})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	opts := DefaultOptions()
	opts.MinScoreThreshold = 66.67
	result, err := a.Analyze(context.Background(), [][]string{
		{"alpha beta", "alpha beta", "alpha gamma"},
	}, opts)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	words := make([]string, 0, len(result.Records))
	for _, r := range result.Records {
		words = append(words, r.Word)
		if r.Difference != nil {
			t.Errorf("record %q has difference %v in a one-group analysis", r.Word, *r.Difference)
		}
	}
	// beta sits exactly on the threshold and must be kept.
	if !reflect.DeepEqual(words, []string{"alpha", "beta"}) {
		t.Errorf("included words = %v, want [alpha beta]", words)
	}

	wantEdges := []CombinedEdge{{From: "alpha", To: "beta", Weight: 2}}
	if !reflect.DeepEqual(result.Edges, wantEdges) {
		t.Errorf("edges = %+v, want %+v", result.Edges, wantEdges)
	}
	if result.Stats.WordsInAll != 2 {
		t.Errorf("WordsInAll = %d, want 2", result.Stats.WordsInAll)
	}
}

func TestAnalyzePerGroupThresholds(t *testing.T) {
	tests := []struct {
		name      string
		opts      func() Options
		wantWords []string
	}{
		{
			"per group thresholds applied",
			func() Options {
				opts := zeroThresholdOptions()
				opts.PerGroupThresholds = []float64{50, 101}
				return opts
			},
			[]string{"aa", "bb"},
		},
		{
			"wrong length falls back to global",
			func() Options {
				opts := DefaultOptions()
				opts.MinScoreThreshold = 101
				opts.PerGroupThresholds = []float64{50}
				return opts
			},
			[]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTwoGroupAnalyzer(t)
			result, err := a.Analyze(context.Background(), [][]string{
				{"aa bb"},
				{"cc dd"},
			}, tt.opts())
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			words := make([]string, 0, len(result.Records))
			for _, r := range result.Records {
				words = append(words, r.Word)
			}
			if len(words) == 0 && len(tt.wantWords) == 0 {
				return
			}
			if !reflect.DeepEqual(words, tt.wantWords) {
				t.Errorf("included words = %v, want %v", words, tt.wantWords)
			}
		})
	}
}

func TestAnalyzeEmptyGroup(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	result, err := a.Analyze(context.Background(), [][]string{
		{"cats dogs"},
		{},
	}, zeroThresholdOptions())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Stats.TotalWords != 2 || result.Stats.WordsInAll != 0 {
		t.Errorf("stats = %+v, want 2 words, none in all groups", result.Stats)
	}
	for _, r := range result.Records {
		if r.PerGroup[1].Count != 0 || r.PerGroup[1].Normalized != 0 {
			t.Errorf("record %q group B cell = %+v, want zeros", r.Word, r.PerGroup[1])
		}
		if r.PerGroup[1].Cluster != -1 {
			t.Errorf("record %q group B cluster = %d, want -1", r.Word, r.PerGroup[1].Cluster)
		}
	}
	b := result.GroupStats[1]
	if b.IncludedWords != 0 || b.Clusters != 0 || b.Density != 0 {
		t.Errorf("group B stats = %+v, want all zero", b)
	}
}

func TestAnalyzeSemanticAugmentation(t *testing.T) {
	provider := &stubSimilarityProvider{
		edges: []network.SimilarityEdge{{From: "red", To: "blue", Similarity: 0.9}},
	}
	a, err := NewAnalyzer(NewAnalyzerParams{
		GroupNames: []string{"Solo"},
		Provider:   provider,
	})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	opts := zeroThresholdOptions()
	opts.Semantic = true
	result, err := a.Analyze(context.Background(), [][]string{
		{"red blue", "red blue"},
	}, opts)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
	if !reflect.DeepEqual(provider.gotWords, []string{"blue", "red"}) {
		t.Errorf("provider words = %v, want [blue red]", provider.gotWords)
	}
	if provider.gotThreshold != 0.5 {
		t.Errorf("provider threshold = %v, want 0.5", provider.gotThreshold)
	}

	wantEdges := []CombinedEdge{{From: "blue", To: "red", Weight: 11}}
	if !reflect.DeepEqual(result.Edges, wantEdges) {
		t.Errorf("edges = %+v, want similarity-weighted %+v", result.Edges, wantEdges)
	}
}

func TestAnalyzeSemanticProviderMissing(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	opts := DefaultOptions()
	opts.Semantic = true
	_, err := a.Analyze(context.Background(), [][]string{{"aa bb"}, {"cc dd"}}, opts)
	if !errors.Is(err, ErrNoSimilarityProvider) {
		t.Errorf("Analyze() error = %v, want ErrNoSimilarityProvider", err)
	}
}

func TestAnalyzeSemanticProviderFailure(t *testing.T) {
	provider := &stubSimilarityProvider{err: fmt.Errorf("embedding backend down")}
	a, err := NewAnalyzer(NewAnalyzerParams{
		GroupNames: []string{"Solo"},
		Provider:   provider,
	})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	opts := zeroThresholdOptions()
	opts.Semantic = true
	result, err := a.Analyze(context.Background(), [][]string{{"red blue"}}, opts)
	if err != nil {
		t.Fatalf("Analyze() error = %v, want degraded result", err)
	}

	found := false
	for _, d := range result.Diagnostics[0] {
		if d.Metric == "semantic" {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %+v, want semantic degradation", result.Diagnostics[0])
	}
	// The co-occurrence edge survives untouched.
	wantEdges := []CombinedEdge{{From: "blue", To: "red", Weight: 1}}
	if !reflect.DeepEqual(result.Edges, wantEdges) {
		t.Errorf("edges = %+v, want %+v", result.Edges, wantEdges)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	texts := [][]string{
		{"cats and dogs", "dogs and birds", "networks of dogs"},
		{"birds and fish", "fish and cats"},
	}

	first, err := newTwoGroupAnalyzer(t).Analyze(context.Background(), texts, zeroThresholdOptions())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	second, err := newTwoGroupAnalyzer(t).Analyze(context.Background(), texts, zeroThresholdOptions())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated analysis differs:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestFlatten(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	result, err := a.Analyze(context.Background(), [][]string{
		{"cats and dogs", "dogs and birds"},
		{"birds and fish"},
	}, zeroThresholdOptions())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	flat := result.Flatten()
	if flat.NumGroups != 2 {
		t.Errorf("NumGroups = %d, want 2", flat.NumGroups)
	}
	if len(flat.AnalysisData) != 4 {
		t.Fatalf("len(AnalysisData) = %d, want 4", len(flat.AnalysisData))
	}

	bird := flat.AnalysisData[0]
	if bird["word"] != "bird" {
		t.Fatalf("first row word = %v, want bird", bird["word"])
	}
	if bird["group_a_count"] != 1 || bird["group_b_count"] != 1 {
		t.Errorf("bird counts = %v/%v, want 1/1", bird["group_a_count"], bird["group_b_count"])
	}
	if bird["group_b_normalized"] != 100.0 {
		t.Errorf("bird group_b_normalized = %v, want 100", bird["group_b_normalized"])
	}
	if bird["difference"] != -50.0 {
		t.Errorf("bird difference = %v, want -50", bird["difference"])
	}
	if bird["group_a_cluster"] != 0 {
		t.Errorf("bird group_a_cluster = %v, want 0", bird["group_a_cluster"])
	}

	if flat.Stats["total_words"] != 4 {
		t.Errorf("total_words = %v, want 4", flat.Stats["total_words"])
	}
	if flat.Stats["group_a_total"] != 3 || flat.Stats["group_b_only"] != 1 {
		t.Errorf("per-group stats = %v/%v, want 3/1",
			flat.Stats["group_a_total"], flat.Stats["group_b_only"])
	}
	if _, ok := flat.Stats["group_a_assortativity"]; !ok {
		t.Error("missing group_a_assortativity in flat stats")
	}
}

func TestSingleGroup(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	_, err := a.Analyze(context.Background(), [][]string{
		{"cats and dogs", "dogs and birds"},
		{"birds and fish"},
	}, zeroThresholdOptions())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	single, err := a.SingleGroup(0, DefaultOptions())
	if err != nil {
		t.Fatalf("SingleGroup() error = %v", err)
	}
	if single.GroupName != "Group A" || single.GroupKey != "group_a" {
		t.Errorf("group identity = %q/%q, want Group A/group_a", single.GroupName, single.GroupKey)
	}
	if len(single.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(single.Nodes))
	}
	if single.Nodes[0].Word != "dog" || single.Nodes[0].Normalized != 100 {
		t.Errorf("top node = %+v, want dog at 100", single.Nodes[0])
	}
	if single.Stats.NumNodes != 3 || single.Stats.NumEdges != 2 {
		t.Errorf("stats = %+v, want 3 nodes and 2 edges", single.Stats)
	}

	if _, err := a.SingleGroup(5, DefaultOptions()); !errors.Is(err, ErrGroupIndex) {
		t.Errorf("SingleGroup(5) error = %v, want ErrGroupIndex", err)
	}
}

func TestSingleGroupBeforeAnalyze(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	_, err := a.SingleGroup(0, DefaultOptions())
	if !errors.Is(err, network.ErrNotBuilt) {
		t.Errorf("SingleGroup() error = %v, want ErrNotBuilt", err)
	}
}

// stubSimilarityProvider implements SimilarityProvider for tests.
type stubSimilarityProvider struct {
	edges        []network.SimilarityEdge
	err          error
	gotWords     []string
	gotThreshold float64
	calls        int
}

func (s *stubSimilarityProvider) SimilarEdges(_ context.Context, words []string, threshold float64) ([]network.SimilarityEdge, error) {
	s.calls++
	s.gotWords = append([]string(nil), words...)
	s.gotThreshold = threshold
	return s.edges, s.err
}
