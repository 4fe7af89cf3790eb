package network

import (
	"reflect"
	"testing"
)

func TestStructuralPathGraph(t *testing.T) {
	n := buildPath3(t)
	stats := n.Structural()

	wantBridges := []WordPair{{A: "a", B: "b"}, {A: "b", B: "c"}}
	if !reflect.DeepEqual(stats.Bridges, wantBridges) {
		t.Errorf("Bridges = %v, want %v", stats.Bridges, wantBridges)
	}
	if !reflect.DeepEqual(stats.ArticulationPoints, []string{"b"}) {
		t.Errorf("ArticulationPoints = %v, want [b]", stats.ArticulationPoints)
	}
}

func TestStructuralTriangle(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b", "c"}}, 1, 1)
	stats := n.Structural()

	if len(stats.Bridges) != 0 {
		t.Errorf("Bridges = %v, want none", stats.Bridges)
	}
	if len(stats.ArticulationPoints) != 0 {
		t.Errorf("ArticulationPoints = %v, want none", stats.ArticulationPoints)
	}
	// All degrees equal, so the degree correlation is undefined and falls
	// back to 0 with a diagnostic.
	if stats.Assortativity != 0 {
		t.Errorf("Assortativity = %v, want 0", stats.Assortativity)
	}
	found := false
	for _, diag := range n.Diagnostics() {
		if diag.Metric == "assortativity" {
			found = true
		}
	}
	if !found {
		t.Error("expected an assortativity diagnostic for uniform degrees")
	}
}

func TestAssortativityStar(t *testing.T) {
	n := buildStar(t)
	stats := n.Structural()
	if !almost(stats.Assortativity, -1, 1e-9) {
		t.Errorf("Assortativity = %v, want -1", stats.Assortativity)
	}
}

func TestStructuralBridgeBetweenTriangles(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b", "c"}, {"x", "y", "z"}, {"a", "x"}}, 1, 1)
	stats := n.Structural()

	if !reflect.DeepEqual(stats.Bridges, []WordPair{{A: "a", B: "x"}}) {
		t.Errorf("Bridges = %v, want [{a x}]", stats.Bridges)
	}
	if !reflect.DeepEqual(stats.ArticulationPoints, []string{"a", "x"}) {
		t.Errorf("ArticulationPoints = %v, want [a x]", stats.ArticulationPoints)
	}
}

func TestStructuralEmpty(t *testing.T) {
	stats := New().Structural()
	if len(stats.Bridges) != 0 || len(stats.ArticulationPoints) != 0 || stats.Assortativity != 0 {
		t.Errorf("Structural() on unbuilt network = %+v, want zero values", stats)
	}
}
