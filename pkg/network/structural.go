package network

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StructuralStats describes the connectivity-critical elements of the
// network.
type StructuralStats struct {
	Bridges            []WordPair `json:"bridges"`
	ArticulationPoints []string   `json:"articulation_points"`
	Assortativity      float64    `json:"assortativity"`
}

// Structural finds bridge edges, articulation points and the degree
// assortativity coefficient. An unbuilt or empty network yields empty
// lists and 0; an undefined assortativity is reported as 0 and noted in
// Diagnostics. Bridge and articulation lists are sorted by word.
func (n *Network) Structural() StructuralStats {
	stats := StructuralStats{Bridges: []WordPair{}, ArticulationPoints: []string{}}
	if !n.built || len(n.words) == 0 {
		return stats
	}
	stats.Bridges, stats.ArticulationPoints = n.cutElements()
	stats.Assortativity = n.assortativity()
	return stats
}

// cutElements runs a lowpoint depth-first search to find bridges and
// articulation points in one pass.
func (n *Network) cutElements() ([]WordPair, []string) {
	nn := len(n.words)
	disc := make([]int, nn)
	low := make([]int, nn)
	parent := make([]int64, nn)
	for i := range parent {
		parent[i] = -1
	}
	isCut := make([]bool, nn)
	bridges := []WordPair{}
	timer := 0

	var dfs func(u int64)
	dfs = func(u int64) {
		timer++
		disc[u] = timer
		low[u] = timer
		children := 0
		for _, v := range n.sortedNeighbors(u) {
			if disc[v] == 0 {
				parent[v] = u
				children++
				dfs(v)
				if low[v] < low[u] {
					low[u] = low[v]
				}
				if parent[u] != -1 && low[v] >= disc[u] {
					isCut[u] = true
				}
				if low[v] > disc[u] {
					bridges = append(bridges, NewWordPair(n.word(u), n.word(v)))
				}
			} else if v != parent[u] && disc[v] < low[u] {
				low[u] = disc[v]
			}
		}
		if parent[u] == -1 && children > 1 {
			isCut[u] = true
		}
	}

	for id := range n.words {
		if disc[id] == 0 {
			dfs(int64(id))
		}
	}

	articulation := []string{}
	for i, word := range n.words {
		if isCut[i] {
			articulation = append(articulation, word)
		}
	}
	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].A != bridges[j].A {
			return bridges[i].A < bridges[j].A
		}
		return bridges[i].B < bridges[j].B
	})
	return bridges, articulation
}

// assortativity computes the degree assortativity coefficient: the Pearson
// correlation of unweighted degrees across edge endpoints, with every edge
// counted in both directions. Rounded to 6 decimals.
func (n *Network) assortativity() float64 {
	if len(n.edges) == 0 {
		n.fault("assortativity", errAssortativityUndefined)
		return 0
	}
	degrees := make(map[string]float64, len(n.words))
	for _, word := range n.words {
		degrees[word] = float64(n.degreeOf(word))
	}
	xs := make([]float64, 0, 2*len(n.edges))
	ys := make([]float64, 0, 2*len(n.edges))
	for pair := range n.edges {
		dx := degrees[pair.A]
		dy := degrees[pair.B]
		xs = append(xs, dx, dy)
		ys = append(ys, dy, dx)
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		n.fault("assortativity", errAssortativityUndefined)
		return 0
	}
	return round(r, 6)
}
