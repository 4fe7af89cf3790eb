package network

import (
	"math"

	gonet "gonum.org/v1/gonum/graph/network"
)

const eigenvectorMaxIter = 1000

// CentralityScores holds the first tier of per-node metrics.
type CentralityScores struct {
	Degree      float64 `json:"degree"`
	Strength    float64 `json:"strength"`
	Betweenness float64 `json:"betweenness"`
	Closeness   float64 `json:"closeness"`
	Eigenvector float64 `json:"eigenvector"`
}

// Centrality computes degree, strength, betweenness, closeness and
// eigenvector centrality for every node. Degree, strength, betweenness and
// eigenvector are each divided by their graph-wide maximum so the top node
// scores exactly 1.0 and the rest scale proportionally; closeness keeps
// its standard value. A failed eigenvector iteration degrades to zeros and
// is recorded in Diagnostics. Returns ErrNotBuilt before Build.
func (n *Network) Centrality() (map[string]CentralityScores, error) {
	if !n.built {
		return nil, ErrNotBuilt
	}

	degree := make(map[string]float64, len(n.words))
	strength := make(map[string]float64, len(n.words))
	for _, word := range n.words {
		degree[word] = float64(n.degreeOf(word))
		strength[word] = n.strengthOf(word)
	}

	betweenness := n.betweenness()
	closeness := n.closeness()
	eigenvector, err := n.eigenvector()
	if err != nil {
		n.fault("eigenvector", err)
		eigenvector = zeroScores(n.words)
	}

	maxDegree := maxValue(degree)
	maxStrength := maxValue(strength)
	maxBetweenness := maxValue(betweenness)
	maxEigenvector := maxValue(eigenvector)

	scores := make(map[string]CentralityScores, len(n.words))
	for _, word := range n.words {
		scores[word] = CentralityScores{
			Degree:      degree[word] / maxDegree,
			Strength:    strength[word] / maxStrength,
			Betweenness: betweenness[word] / maxBetweenness,
			Closeness:   closeness[word],
			Eigenvector: eigenvector[word] / maxEigenvector,
		}
	}
	return scores, nil
}

// betweenness computes shortest-path betweenness with co-occurrence weight
// used directly as distance cost.
func (n *Network) betweenness() map[string]float64 {
	out := zeroScores(n.words)
	if len(n.words) == 0 {
		return out
	}
	for id, v := range gonet.BetweennessWeighted(n.g, n.weightedAllPaths()) {
		out[n.word(id)] = v
	}
	return out
}

// closeness computes closeness centrality over unit distances using the
// Wasserman-Faust formulation for disconnected graphs:
// C(u) = ((r-1)/totsp) * ((r-1)/(n-1)), where r counts the nodes reachable
// from u including u itself and totsp sums their distances.
func (n *Network) closeness() map[string]float64 {
	out := zeroScores(n.words)
	total := len(n.words)
	if total <= 1 {
		return out
	}
	p := n.unitAllPaths()
	for _, word := range n.words {
		uid := n.ids[word]
		reachable := 1
		sum := 0.0
		for _, other := range n.words {
			if other == word {
				continue
			}
			d := p.Weight(uid, n.ids[other])
			if math.IsInf(d, 1) {
				continue
			}
			reachable++
			sum += d
		}
		if sum > 0 {
			r := float64(reachable - 1)
			out[word] = (r / sum) * (r / float64(total-1))
		}
	}
	return out
}

// eigenvector runs weighted power iteration on A+I with L2 normalization
// per step, stopping once the L1 step difference drops below n*1e-6.
func (n *Network) eigenvector() (map[string]float64, error) {
	nn := len(n.words)
	out := zeroScores(n.words)
	if nn == 0 {
		return out, nil
	}

	x := make([]float64, nn)
	for i := range x {
		x[i] = 1 / float64(nn)
	}
	next := make([]float64, nn)
	tol := float64(nn) * 1e-6

	for iter := 0; iter < eigenvectorMaxIter; iter++ {
		copy(next, x)
		edges := n.g.WeightedEdges()
		for edges.Next() {
			e := edges.WeightedEdge()
			u := e.From().ID()
			v := e.To().ID()
			w := e.Weight()
			next[v] += x[u] * w
			next[u] += x[v] * w
		}
		norm := 0.0
		for _, v := range next {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		diff := 0.0
		for i := range next {
			next[i] /= norm
			diff += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if diff < tol {
			for i, word := range n.words {
				out[word] = x[i]
			}
			return out, nil
		}
	}
	return nil, errNoConvergence
}
