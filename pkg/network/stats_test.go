package network

import "testing"

func TestStatsTriangle(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b", "c"}}, 1, 1)
	stats := n.Stats()

	if stats.NumNodes != 3 {
		t.Errorf("NumNodes = %d, want 3", stats.NumNodes)
	}
	if stats.NumEdges != 3 {
		t.Errorf("NumEdges = %d, want 3", stats.NumEdges)
	}
	if !almost(stats.Density, 1, 1e-9) {
		t.Errorf("Density = %v, want 1", stats.Density)
	}
	if !almost(stats.AvgDegree, 2, 1e-9) {
		t.Errorf("AvgDegree = %v, want 2", stats.AvgDegree)
	}
	if stats.NumComponents != 1 {
		t.Errorf("NumComponents = %d, want 1", stats.NumComponents)
	}
	if !almost(stats.ClusteringCoefficient, 1, 1e-9) {
		t.Errorf("ClusteringCoefficient = %v, want 1", stats.ClusteringCoefficient)
	}
	if stats.Diameter != 1 {
		t.Errorf("Diameter = %d, want 1", stats.Diameter)
	}
	if !almost(stats.AvgPathLength, 1, 1e-9) {
		t.Errorf("AvgPathLength = %v, want 1", stats.AvgPathLength)
	}
	if stats.Modularity != nil {
		t.Errorf("Modularity = %v, want nil before clustering", *stats.Modularity)
	}
}

func TestStatsPathGraph(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b"}, {"b", "c"}, {"c", "d"}}, 1, 1)
	stats := n.Stats()

	if !almost(stats.Density, 0.5, 1e-9) {
		t.Errorf("Density = %v, want 0.5", stats.Density)
	}
	if !almost(stats.AvgDegree, 1.5, 1e-9) {
		t.Errorf("AvgDegree = %v, want 1.5", stats.AvgDegree)
	}
	if stats.ClusteringCoefficient != 0 {
		t.Errorf("ClusteringCoefficient = %v, want 0", stats.ClusteringCoefficient)
	}
	if stats.Diameter != 3 {
		t.Errorf("Diameter = %d, want 3", stats.Diameter)
	}
	if !almost(stats.AvgPathLength, 1.666667, 1e-6) {
		t.Errorf("AvgPathLength = %v, want 1.666667", stats.AvgPathLength)
	}
}

func TestStatsDisconnected(t *testing.T) {
	n := New()
	n.Build([][]string{{"a", "b"}, {"c", "d"}}, 1, 1)
	stats := n.Stats()

	if stats.NumComponents != 2 {
		t.Errorf("NumComponents = %d, want 2", stats.NumComponents)
	}
	// Diameter and path length come from the largest component only.
	if stats.Diameter != 1 {
		t.Errorf("Diameter = %d, want 1", stats.Diameter)
	}
	if !almost(stats.AvgPathLength, 1, 1e-9) {
		t.Errorf("AvgPathLength = %v, want 1", stats.AvgPathLength)
	}
}

func TestStatsModularityFromStoredPartition(t *testing.T) {
	n := buildTwoTriangles(t)
	n.DetectClusters(MethodLouvain, 5, 1.0)
	stats := n.Stats()

	if stats.Modularity == nil {
		t.Fatal("Modularity = nil, want a value after clustering")
	}
	// Two triangle communities over 7 edges: 2*(3/7 - (7/14)^2).
	if !almost(*stats.Modularity, 0.357143, 1e-6) {
		t.Errorf("Modularity = %v, want 0.357143", *stats.Modularity)
	}
}

func TestStatsSingleNodeComponent(t *testing.T) {
	n := New()
	n.Build([][]string{{"solo"}}, 1, 1)
	stats := n.Stats()

	if stats.NumNodes != 1 || stats.NumEdges != 0 {
		t.Errorf("stats = %+v, want 1 node and 0 edges", stats)
	}
	if stats.Diameter != 0 || stats.AvgPathLength != 0 {
		t.Errorf("Diameter = %d, AvgPathLength = %v, want 0, 0", stats.Diameter, stats.AvgPathLength)
	}
	if stats.NumComponents != 1 {
		t.Errorf("NumComponents = %d, want 1", stats.NumComponents)
	}
}
