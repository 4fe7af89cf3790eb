package network

import (
	"reflect"
	"testing"
)

func TestAddSimilarityEdges(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b"}, {"a", "b"}, {"c", "a"}}, 1, 1)

	added := n.AddSimilarityEdges([]SimilarityEdge{
		{From: "b", To: "c", Similarity: 0.8},
		{From: "a", To: "b", Similarity: 0.55},
	}, 10)
	if added != 1 {
		t.Fatalf("AddSimilarityEdges added = %d, want 1", added)
	}

	bc, ok := n.Edge("b", "c")
	if !ok {
		t.Fatal("missing edge b-c")
	}
	want := EdgeInfo{Weight: 8, Similarity: 0.8, HasSimilarity: true, Semantic: true}
	if bc != want {
		t.Errorf("edge b-c = %+v, want %+v", bc, want)
	}

	// Existing co-occurrence edges absorb the similarity weight instead of
	// being flagged as semantic-only.
	ab, ok := n.Edge("a", "b")
	if !ok {
		t.Fatal("missing edge a-b")
	}
	want = EdgeInfo{Weight: 7, Similarity: 0.55, HasSimilarity: true, Semantic: false}
	if ab != want {
		t.Errorf("edge a-b = %+v, want %+v", ab, want)
	}
}

func TestAddSimilarityEdgesTruncatesWeight(t *testing.T) {
	n := New()
	n.Build([][]string{{"a"}, {"b"}}, 1, 1)

	n.AddSimilarityEdges([]SimilarityEdge{{From: "a", To: "b", Similarity: 0.59}}, 10)
	e, ok := n.Edge("a", "b")
	if !ok {
		t.Fatal("missing edge a-b")
	}
	if e.Weight != 5 {
		t.Errorf("weight = %d, want 5", e.Weight)
	}
}

func TestAddSimilarityEdgesSkipsUnknownWords(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b"}}, 1, 1)

	added := n.AddSimilarityEdges([]SimilarityEdge{
		{From: "a", To: "ghost", Similarity: 0.9},
		{From: "a", To: "a", Similarity: 0.9},
	}, 10)
	if added != 0 {
		t.Errorf("added = %d, want 0", added)
	}
	if n.NumEdges() != 1 {
		t.Errorf("NumEdges = %d, want 1", n.NumEdges())
	}
}

func TestAddSimilarityEdgesTooFewNodes(t *testing.T) {
	n := New()
	n.Build([][]string{{"only"}}, 1, 1)

	added := n.AddSimilarityEdges([]SimilarityEdge{{From: "only", To: "only", Similarity: 1}}, 10)
	if added != 0 {
		t.Errorf("added = %d, want 0", added)
	}
}

func TestEdgeListIncludesSimilarity(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b"}, {"a", "b"}, {"c", "a"}}, 1, 1)
	n.AddSimilarityEdges([]SimilarityEdge{
		{From: "b", To: "c", Similarity: 0.8},
		{From: "a", To: "b", Similarity: 0.55},
	}, 10)

	rows := n.EdgeList(true)
	sims := map[WordPair]float64{}
	types := map[WordPair]string{}
	weights := map[WordPair]int{}
	for _, r := range rows {
		p := NewWordPair(r.From, r.To)
		weights[p] = r.Weight
		if r.Similarity != nil {
			sims[p] = *r.Similarity
		}
		types[p] = r.Type
	}

	wantWeights := map[WordPair]int{
		{A: "a", B: "b"}: 7,
		{A: "a", B: "c"}: 1,
		{A: "b", B: "c"}: 8,
	}
	if !reflect.DeepEqual(weights, wantWeights) {
		t.Errorf("weights = %v, want %v", weights, wantWeights)
	}
	wantSims := map[WordPair]float64{
		{A: "a", B: "b"}: 0.55,
		{A: "b", B: "c"}: 0.8,
	}
	if !reflect.DeepEqual(sims, wantSims) {
		t.Errorf("similarities = %v, want %v", sims, wantSims)
	}
	if types[WordPair{A: "b", B: "c"}] != "semantic" {
		t.Errorf("b-c type = %q, want %q", types[WordPair{A: "b", B: "c"}], "semantic")
	}
	if types[WordPair{A: "a", B: "b"}] != "" {
		t.Errorf("a-b type = %q, want empty", types[WordPair{A: "a", B: "b"}])
	}
}

func TestEdgeListExcludesSimilarityWhenDisabled(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b"}}, 1, 1)
	n.AddSimilarityEdges([]SimilarityEdge{{From: "a", To: "b", Similarity: 0.9}}, 10)

	rows := n.EdgeList(false)
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].Similarity != nil {
		t.Errorf("Similarity = %v, want nil", *rows[0].Similarity)
	}
	if rows[0].Type != "" {
		t.Errorf("Type = %q, want empty", rows[0].Type)
	}
}
