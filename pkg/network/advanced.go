package network

import (
	"math"

	"github.com/james-bowman/sparse"
	gonet "gonum.org/v1/gonum/graph/network"
)

const (
	pagerankDamping = 0.85
	pagerankMaxIter = 100
)

// AdvancedScores holds the second tier of per-node metrics.
type AdvancedScores struct {
	PageRank   float64 `json:"pagerank"`
	Harmonic   float64 `json:"harmonic"`
	KCore      int     `json:"kcore"`
	Constraint float64 `json:"constraint"`
}

// Advanced computes pagerank, harmonic centrality, k-core index and Burt
// constraint for every node. An empty network yields an empty map. Each
// metric is computed independently; one that cannot be computed degrades
// to zeros for that metric alone and is recorded in Diagnostics. PageRank
// and harmonic are divided by their graph-wide maximum and rounded to 4
// decimals, k-core stays the raw integer, constraint is rounded to 4
// decimals with undefined values reported as 0.
func (n *Network) Advanced() map[string]AdvancedScores {
	if !n.built || len(n.words) == 0 {
		return map[string]AdvancedScores{}
	}

	pagerank, err := n.pagerank()
	if err != nil {
		n.fault("pagerank", err)
		pagerank = zeroScores(n.words)
	}
	harmonic := n.harmonic()
	kcore := n.kcore()
	constraint := n.constraint()

	maxPagerank := maxValue(pagerank)
	maxHarmonic := maxValue(harmonic)

	out := make(map[string]AdvancedScores, len(n.words))
	for _, word := range n.words {
		out[word] = AdvancedScores{
			PageRank:   round(pagerank[word]/maxPagerank, 4),
			Harmonic:   round(harmonic[word]/maxHarmonic, 4),
			KCore:      kcore[word],
			Constraint: round(constraint[word], 4),
		}
	}
	return out
}

// pagerank runs the weighted power iteration over a sparse row-normalized
// transition matrix with damping 0.85. Dangling mass is spread uniformly.
// Convergence is an L1 step difference below n*1e-6 within 100 iterations.
func (n *Network) pagerank() (map[string]float64, error) {
	nn := len(n.words)
	strength := make([]float64, nn)
	edges := n.g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		strength[int(e.From().ID())] += e.Weight()
		strength[int(e.To().ID())] += e.Weight()
	}

	transition := sparse.NewDOK(nn, nn)
	edges = n.g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		u := int(e.From().ID())
		v := int(e.To().ID())
		w := e.Weight()
		if strength[u] > 0 {
			transition.Set(u, v, w/strength[u])
		}
		if strength[v] > 0 {
			transition.Set(v, u, w/strength[v])
		}
	}
	csr := transition.ToCSR()

	x := make([]float64, nn)
	uniform := 1 / float64(nn)
	for i := range x {
		x[i] = uniform
	}
	next := make([]float64, nn)
	tol := float64(nn) * 1e-6

	for iter := 0; iter < pagerankMaxIter; iter++ {
		dangling := 0.0
		for i, s := range strength {
			if s == 0 {
				dangling += x[i]
			}
		}
		base := pagerankDamping*dangling*uniform + (1-pagerankDamping)*uniform
		for i := range next {
			next[i] = base
		}
		csr.DoNonZero(func(u, v int, t float64) {
			next[v] += pagerankDamping * x[u] * t
		})
		diff := 0.0
		for i := range next {
			diff += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if diff < tol {
			out := make(map[string]float64, nn)
			for i, word := range n.words {
				out[word] = x[i]
			}
			return out, nil
		}
	}
	return nil, errNoConvergence
}

// harmonic computes unit-distance harmonic centrality.
func (n *Network) harmonic() map[string]float64 {
	out := zeroScores(n.words)
	for id, v := range gonet.Harmonic(unitView{n.g}, n.unitAllPaths()) {
		out[n.word(id)] = v
	}
	return out
}

// kcore computes each node's core number by iterative peeling: at stage k
// every remaining node whose residual degree is at most k is removed and
// assigned core k.
func (n *Network) kcore() map[string]int {
	degrees := make(map[string]int, len(n.words))
	neighbors := make(map[string][]string, len(n.words))
	for _, word := range n.words {
		it := n.g.From(n.ids[word])
		for it.Next() {
			neighbors[word] = append(neighbors[word], n.word(it.Node().ID()))
		}
		degrees[word] = len(neighbors[word])
	}

	remaining := make(map[string]struct{}, len(n.words))
	for _, word := range n.words {
		remaining[word] = struct{}{}
	}
	core := make(map[string]int, len(n.words))
	for k := 0; len(remaining) > 0; k++ {
		for peeled := true; peeled; {
			peeled = false
			for _, word := range n.words {
				if _, ok := remaining[word]; !ok {
					continue
				}
				if degrees[word] > k {
					continue
				}
				core[word] = k
				delete(remaining, word)
				for _, nb := range neighbors[word] {
					if _, ok := remaining[nb]; ok {
						degrees[nb]--
					}
				}
				peeled = true
			}
		}
	}
	return core
}

// constraint computes Burt's structural holes constraint with tie
// proportions p(u,v) = w(u,v)/strength(u). Neighbors are visited in sorted
// word order to keep the floating point sums reproducible. Nodes without
// neighbors have an undefined constraint, reported as 0 and noted in
// Diagnostics.
func (n *Network) constraint() map[string]float64 {
	type tie struct {
		to string
		p  float64
	}
	ties := make(map[string][]tie, len(n.words))
	lookup := make(map[string]map[string]float64, len(n.words))
	for _, word := range n.words {
		id := n.ids[word]
		var row []tie
		sum := 0.0
		for _, vid := range n.sortedNeighbors(id) {
			w, _ := n.g.Weight(id, vid)
			row = append(row, tie{to: n.word(vid), p: w})
			sum += w
		}
		if sum > 0 {
			for i := range row {
				row[i].p /= sum
			}
		}
		ties[word] = row
		index := make(map[string]float64, len(row))
		for _, t := range row {
			index[t.to] = t.p
		}
		lookup[word] = index
	}

	out := make(map[string]float64, len(n.words))
	undefined := false
	for _, word := range n.words {
		row := ties[word]
		if len(row) == 0 {
			out[word] = 0
			undefined = true
			continue
		}
		total := 0.0
		for _, t := range row {
			indirect := 0.0
			for _, u := range row {
				if u.to == t.to {
					continue
				}
				indirect += u.p * lookup[u.to][t.to]
			}
			l := t.p + indirect
			total += l * l
		}
		out[word] = total
	}
	if undefined {
		n.fault("constraint", errConstraintUndefined)
	}
	return out
}
