package network

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func almost(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name          string
		documents     [][]string
		minFrequency  int
		minEdgeWeight int
		wantWords     []string
		wantCounts    map[string]int
		wantEdges     map[WordPair]int
	}{
		{
			name:          "single document pairs",
			documents:     [][]string{{"p", "q", "r"}},
			minFrequency:  1,
			minEdgeWeight: 1,
			wantWords:     []string{"p", "q", "r"},
			wantCounts:    map[string]int{"p": 1, "q": 1, "r": 1},
			wantEdges: map[WordPair]int{
				{A: "p", B: "q"}: 1,
				{A: "p", B: "r"}: 1,
				{A: "q", B: "r"}: 1,
			},
		},
		{
			name:          "repeated word in one document counts its pair once",
			documents:     [][]string{{"a", "b", "a"}},
			minFrequency:  1,
			minEdgeWeight: 1,
			wantWords:     []string{"a", "b"},
			wantCounts:    map[string]int{"a": 2, "b": 1},
			wantEdges:     map[WordPair]int{{A: "a", B: "b"}: 1},
		},
		{
			name:          "pair weight accumulates across documents",
			documents:     [][]string{{"a", "b"}, {"b", "a"}, {"a", "c"}},
			minFrequency:  1,
			minEdgeWeight: 1,
			wantWords:     []string{"a", "b", "c"},
			wantCounts:    map[string]int{"a": 3, "b": 2, "c": 1},
			wantEdges: map[WordPair]int{
				{A: "a", B: "b"}: 2,
				{A: "a", B: "c"}: 1,
			},
		},
		{
			name:          "minimum frequency drops rare words",
			documents:     [][]string{{"a", "b"}, {"a", "c"}},
			minFrequency:  2,
			minEdgeWeight: 1,
			wantWords:     []string{"a"},
			wantCounts:    map[string]int{"a": 2},
			wantEdges:     map[WordPair]int{},
		},
		{
			name:          "minimum edge weight keeps the node but drops the edge",
			documents:     [][]string{{"a", "b"}, {"a", "b"}, {"a", "c"}},
			minFrequency:  1,
			minEdgeWeight: 2,
			wantWords:     []string{"a", "b", "c"},
			wantCounts:    map[string]int{"a": 3, "b": 2, "c": 1},
			wantEdges:     map[WordPair]int{{A: "a", B: "b"}: 2},
		},
		{
			name:          "no documents",
			documents:     [][]string{},
			minFrequency:  1,
			minEdgeWeight: 1,
			wantWords:     []string{},
			wantCounts:    map[string]int{},
			wantEdges:     map[WordPair]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New()
			n.Build(tt.documents, tt.minFrequency, tt.minEdgeWeight)

			if got := n.Words(); !reflect.DeepEqual(got, tt.wantWords) {
				t.Errorf("Words() = %v, want %v", got, tt.wantWords)
			}
			if got := n.Counts(); !reflect.DeepEqual(got, tt.wantCounts) {
				t.Errorf("Counts() = %v, want %v", got, tt.wantCounts)
			}
			if n.NumEdges() != len(tt.wantEdges) {
				t.Errorf("NumEdges() = %d, want %d", n.NumEdges(), len(tt.wantEdges))
			}
			for pair, weight := range tt.wantEdges {
				info, ok := n.Edge(pair.A, pair.B)
				if !ok {
					t.Errorf("missing edge %v", pair)
					continue
				}
				if info.Weight != weight {
					t.Errorf("edge %v weight = %d, want %d", pair, info.Weight, weight)
				}
			}
		})
	}
}

func TestBuildFrequencyInvariant(t *testing.T) {
	documents := [][]string{
		{"alpha", "beta", "gamma"},
		{"alpha", "beta"},
		{"beta", "delta", "alpha"},
		{"epsilon"},
	}
	n := New()
	n.Build(documents, 2, 2)

	for _, word := range n.Words() {
		if n.Count(word) < 2 {
			t.Errorf("node %q has count %d below the frequency floor", word, n.Count(word))
		}
	}
	for _, row := range n.EdgeList(false) {
		if row.Weight < 2 {
			t.Errorf("edge %s-%s has weight %d below the edge floor", row.From, row.To, row.Weight)
		}
		if n.Count(row.From) < 2 || n.Count(row.To) < 2 {
			t.Errorf("edge %s-%s touches a filtered word", row.From, row.To)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	documents := [][]string{
		{"cat", "dog", "bird"},
		{"dog", "fish"},
		{"cat", "dog"},
	}
	first := New()
	first.Build(documents, 1, 1)
	second := New()
	second.Build(documents, 1, 1)

	if !reflect.DeepEqual(first.Words(), second.Words()) {
		t.Errorf("word sets differ: %v vs %v", first.Words(), second.Words())
	}
	if !reflect.DeepEqual(first.Counts(), second.Counts()) {
		t.Errorf("counts differ: %v vs %v", first.Counts(), second.Counts())
	}
	if !reflect.DeepEqual(first.EdgeList(false), second.EdgeList(false)) {
		t.Errorf("edge lists differ: %v vs %v", first.EdgeList(false), second.EdgeList(false))
	}
}

func TestBuildResetsPreviousState(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b", "c"}}, 1, 1)
	n.DetectClusters(MethodLouvain, 5, 1.0)
	if n.LastPartition() == nil {
		t.Fatal("expected a stored partition after clustering")
	}

	n.Build([][]string{{"x", "y"}}, 1, 1)
	if n.LastPartition() != nil {
		t.Error("rebuild should clear the stored partition")
	}
	if got := n.Words(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Words() after rebuild = %v, want [x y]", got)
	}
	if len(n.Diagnostics()) != 0 {
		t.Errorf("rebuild should clear diagnostics, got %v", n.Diagnostics())
	}
}

func TestCentralityNotBuilt(t *testing.T) {
	if _, err := New().Centrality(); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("Centrality() error = %v, want ErrNotBuilt", err)
	}
}

func TestEmptyNetworkDefaults(t *testing.T) {
	n := New()
	n.Build(nil, 1, 1)

	scores, err := n.Centrality()
	if err != nil {
		t.Fatalf("Centrality() error = %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("Centrality() = %v, want empty", scores)
	}
	if adv := n.Advanced(); len(adv) != 0 {
		t.Errorf("Advanced() = %v, want empty", adv)
	}
	if part := n.DetectClusters(MethodLouvain, 5, 1.0); len(part) != 0 {
		t.Errorf("DetectClusters() = %v, want empty", part)
	}
	stats := n.Stats()
	if stats.NumNodes != 0 || stats.NumEdges != 0 || stats.Density != 0 ||
		stats.AvgDegree != 0 || stats.NumComponents != 0 || stats.Modularity != nil {
		t.Errorf("Stats() = %+v, want zero values", stats)
	}
}
