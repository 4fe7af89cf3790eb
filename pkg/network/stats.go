package network

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// NetworkStats summarizes the structure of the whole network.
type NetworkStats struct {
	NumNodes              int      `json:"num_nodes"`
	NumEdges              int      `json:"num_edges"`
	Density               float64  `json:"density"`
	AvgDegree             float64  `json:"avg_degree"`
	NumComponents         int      `json:"num_components"`
	ClusteringCoefficient float64  `json:"clustering_coefficient"`
	Diameter              int      `json:"diameter"`
	AvgPathLength         float64  `json:"avg_path_length"`
	Modularity            *float64 `json:"modularity,omitempty"`
}

// Stats computes whole-network statistics. Diameter and average path
// length are measured on the largest connected component with unit edge
// costs and are 0 when that component has at most one node. Modularity is
// derived from the partition stored by the last DetectClusters call and is
// nil when clustering has not run since Build.
func (n *Network) Stats() NetworkStats {
	stats := NetworkStats{}
	if !n.built {
		return stats
	}
	nn := len(n.words)
	stats.NumNodes = nn
	stats.NumEdges = len(n.edges)
	if nn > 1 {
		stats.Density = round(2*float64(len(n.edges))/(float64(nn)*float64(nn-1)), 6)
	}
	if nn > 0 {
		stats.AvgDegree = 2 * float64(len(n.edges)) / float64(nn)
	}
	components := n.components()
	stats.NumComponents = len(components)
	stats.ClusteringCoefficient = n.averageClustering()
	stats.Diameter, stats.AvgPathLength = n.pathMetrics(components)
	if n.partition != nil {
		m := n.modularity()
		stats.Modularity = &m
	}
	return stats
}

// components returns the connected components as sorted word lists,
// ordered largest first with ties broken by smallest member word.
func (n *Network) components() [][]string {
	if len(n.words) == 0 {
		return nil
	}
	comps := topo.ConnectedComponents(n.g)
	out := make([][]string, 0, len(comps))
	for _, comp := range comps {
		words := make([]string, 0, len(comp))
		for _, node := range comp {
			words = append(words, n.word(node.ID()))
		}
		sort.Strings(words)
		out = append(out, words)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// averageClustering computes the weighted average clustering coefficient
// with the geometric mean of triangle edge weights, each weight rescaled
// by the maximum edge weight in the network. Nodes with fewer than two
// neighbors contribute 0. Rounded to 6 decimals.
func (n *Network) averageClustering() float64 {
	nn := len(n.words)
	if nn == 0 {
		return 0
	}
	maxWeight := 0.0
	for _, info := range n.edges {
		if w := float64(info.Weight); w > maxWeight {
			maxWeight = w
		}
	}
	if maxWeight == 0 {
		maxWeight = 1
	}

	total := 0.0
	for _, word := range n.words {
		uid := n.ids[word]
		neighbors := n.sortedNeighbors(uid)
		k := len(neighbors)
		if k < 2 {
			continue
		}
		sum := 0.0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				w3, ok := n.g.Weight(neighbors[i], neighbors[j])
				if !ok {
					continue
				}
				w1, _ := n.g.Weight(uid, neighbors[i])
				w2, _ := n.g.Weight(uid, neighbors[j])
				sum += math.Cbrt(w1 / maxWeight * w2 / maxWeight * w3 / maxWeight)
			}
		}
		total += 2 * sum / float64(k*(k-1))
	}
	return round(total/float64(nn), 6)
}

// pathMetrics computes diameter and average path length over the largest
// component with unit distances. Average path length is rounded to 6
// decimals.
func (n *Network) pathMetrics(components [][]string) (int, float64) {
	if len(components) == 0 || len(components[0]) <= 1 {
		return 0, 0
	}
	largest := components[0]
	p := n.unitAllPaths()
	maxDist := 0.0
	sum := 0.0
	count := 0
	for i := range largest {
		for j := range largest {
			if i == j {
				continue
			}
			d := p.Weight(n.ids[largest[i]], n.ids[largest[j]])
			if math.IsInf(d, 1) {
				continue
			}
			sum += d
			count++
			if d > maxDist {
				maxDist = d
			}
		}
	}
	if count == 0 {
		return 0, 0
	}
	return int(maxDist), round(sum/float64(count), 6)
}

// modularity computes the weighted modularity of the stored partition at
// resolution 1, rounded to 6 decimals. A network without edges has no
// meaningful modularity and yields 0.
func (n *Network) modularity() float64 {
	if len(n.edges) == 0 {
		return 0
	}
	groups := make(map[int][]graph.Node)
	for _, word := range n.words {
		cluster, ok := n.partition[word]
		if !ok {
			continue
		}
		groups[cluster] = append(groups[cluster], simple.Node(n.ids[word]))
	}
	clusterIDs := make([]int, 0, len(groups))
	for id := range groups {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)
	communities := make([][]graph.Node, 0, len(groups))
	for _, id := range clusterIDs {
		communities = append(communities, groups[id])
	}

	q := community.Q(n.g, communities, 1)
	if math.IsNaN(q) {
		n.fault("modularity", errModularityUndefined)
		return 0
	}
	return round(q, 6)
}
