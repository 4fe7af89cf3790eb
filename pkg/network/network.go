// Package network builds word co-occurrence networks and computes the
// graph metrics used to compare vocabulary between groups.
package network

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

var (
	// ErrNotBuilt is returned when metrics are requested before Build.
	ErrNotBuilt = errors.New("network not built")

	errNoConvergence          = errors.New("power iteration failed to converge")
	errConstraintUndefined    = errors.New("constraint undefined for nodes without neighbors")
	errAssortativityUndefined = errors.New("assortativity undefined")
	errModularityUndefined    = errors.New("modularity undefined")
)

// WordPair is the canonical unordered key for an edge between two words.
type WordPair struct {
	A string `json:"from"`
	B string `json:"to"`
}

// NewWordPair returns the lexicographically ordered pair for two words.
func NewWordPair(w1, w2 string) WordPair {
	if w2 < w1 {
		w1, w2 = w2, w1
	}
	return WordPair{A: w1, B: w2}
}

// EdgeInfo carries the attributes of a single edge.
type EdgeInfo struct {
	Weight int
	// Similarity is the recorded semantic similarity, valid when
	// HasSimilarity is set.
	Similarity    float64
	HasSimilarity bool
	// Semantic marks edges created purely from semantic similarity rather
	// than observed co-occurrence.
	Semantic bool
}

// Partition maps each word to its cluster id.
type Partition map[string]int

// MetricError records a metric computation that degraded to its documented
// default instead of failing the call.
type MetricError struct {
	Metric string
	Err    error
}

func (e MetricError) Error() string {
	return fmt.Sprintf("%s: %v", e.Metric, e.Err)
}

func (e MetricError) Unwrap() error { return e.Err }

// Network is a word co-occurrence network over one group of documents.
// A Network is not safe for concurrent use; analyses running in parallel
// must each build their own instance.
type Network struct {
	g      *simple.WeightedUndirectedGraph
	words  []string // sorted node words, index doubles as the node id
	ids    map[string]int64
	counts map[string]int
	edges  map[WordPair]EdgeInfo
	built  bool

	partition Partition
	diags     []MetricError

	weightedPaths *path.AllShortest
	unitPaths     *path.AllShortest
}

// New returns an empty, unbuilt network.
func New() *Network {
	return &Network{}
}

// Build constructs the co-occurrence network from tokenized documents.
// Words occurring fewer than minFrequency times across all documents are
// dropped. Within each document the surviving words are deduplicated and
// every unordered pair increments a shared counter; pairs below
// minEdgeWeight are dropped and the rest become edges weighted by their
// counter value. Building twice from the same input yields an identical
// network.
func (n *Network) Build(documents [][]string, minFrequency, minEdgeWeight int) {
	n.reset()

	counts := make(map[string]int)
	for _, doc := range documents {
		for _, word := range doc {
			counts[word]++
		}
	}
	for word, count := range counts {
		if count < minFrequency {
			delete(counts, word)
		}
	}
	n.counts = counts

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Strings(words)
	n.words = words
	n.ids = make(map[string]int64, len(words))
	for i, word := range words {
		n.ids[word] = int64(i)
	}

	weights := make(map[WordPair]int)
	for _, doc := range documents {
		seen := make(map[string]struct{}, len(doc))
		for _, word := range doc {
			if _, ok := counts[word]; ok {
				seen[word] = struct{}{}
			}
		}
		docWords := make([]string, 0, len(seen))
		for word := range seen {
			docWords = append(docWords, word)
		}
		sort.Strings(docWords)
		for i := 0; i < len(docWords); i++ {
			for j := i + 1; j < len(docWords); j++ {
				weights[WordPair{A: docWords[i], B: docWords[j]}]++
			}
		}
	}

	n.edges = make(map[WordPair]EdgeInfo)
	n.g = simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for _, word := range words {
		n.g.AddNode(simple.Node(n.ids[word]))
	}
	for pair, weight := range weights {
		if weight < minEdgeWeight {
			continue
		}
		n.edges[pair] = EdgeInfo{Weight: weight}
		n.g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(n.ids[pair.A]),
			T: simple.Node(n.ids[pair.B]),
			W: float64(weight),
		})
	}
	n.built = true
}

func (n *Network) reset() {
	n.g = nil
	n.words = nil
	n.ids = nil
	n.counts = nil
	n.edges = nil
	n.built = false
	n.partition = nil
	n.diags = nil
	n.invalidatePaths()
}

func (n *Network) invalidatePaths() {
	n.weightedPaths = nil
	n.unitPaths = nil
}

// Built reports whether Build has completed.
func (n *Network) Built() bool { return n.built }

// Words returns the node words in sorted order.
func (n *Network) Words() []string {
	out := make([]string, len(n.words))
	copy(out, n.words)
	return out
}

// Count returns the recorded frequency for word, or 0 for unknown words.
func (n *Network) Count(word string) int { return n.counts[word] }

// Counts returns a copy of the word frequency table.
func (n *Network) Counts() map[string]int {
	out := make(map[string]int, len(n.counts))
	for word, count := range n.counts {
		out[word] = count
	}
	return out
}

// NumNodes returns the number of nodes.
func (n *Network) NumNodes() int { return len(n.words) }

// NumEdges returns the number of edges.
func (n *Network) NumEdges() int { return len(n.edges) }

// Edge returns the attributes of the edge between two words.
func (n *Network) Edge(w1, w2 string) (EdgeInfo, bool) {
	info, ok := n.edges[NewWordPair(w1, w2)]
	return info, ok
}

// LastPartition returns the partition stored by the most recent
// DetectClusters call, or nil if clustering has not run since Build.
func (n *Network) LastPartition() Partition {
	if n.partition == nil {
		return nil
	}
	out := make(Partition, len(n.partition))
	for word, cluster := range n.partition {
		out[word] = cluster
	}
	return out
}

// Diagnostics lists metric computations that fell back to their defaults
// since the last Build.
func (n *Network) Diagnostics() []MetricError {
	out := make([]MetricError, len(n.diags))
	copy(out, n.diags)
	return out
}

func (n *Network) fault(metric string, err error) {
	n.diags = append(n.diags, MetricError{Metric: metric, Err: err})
}

func (n *Network) word(id int64) string { return n.words[id] }

func (n *Network) degreeOf(word string) int {
	return n.g.From(n.ids[word]).Len()
}

func (n *Network) strengthOf(word string) float64 {
	id := n.ids[word]
	sum := 0.0
	neighbors := n.g.From(id)
	for neighbors.Next() {
		w, _ := n.g.Weight(id, neighbors.Node().ID())
		sum += w
	}
	return sum
}

// sortedNeighbors returns the neighbor ids of u in ascending id order,
// which matches sorted word order.
func (n *Network) sortedNeighbors(u int64) []int64 {
	var ids []int64
	it := n.g.From(u)
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// weightedAllPaths returns all-pairs shortest paths with co-occurrence
// weight used directly as distance cost, computed once per build.
func (n *Network) weightedAllPaths() path.AllShortest {
	if n.weightedPaths == nil {
		p := path.DijkstraAllPaths(n.g)
		n.weightedPaths = &p
	}
	return *n.weightedPaths
}

// unitAllPaths returns all-pairs shortest paths with every edge at cost 1.
func (n *Network) unitAllPaths() path.AllShortest {
	if n.unitPaths == nil {
		p := path.DijkstraAllPaths(unitView{n.g})
		n.unitPaths = &p
	}
	return *n.unitPaths
}

// unitView hides the Weight method of the underlying graph so shortest
// path searches treat every edge as cost 1.
type unitView struct {
	graph.Graph
}

func zeroScores(words []string) map[string]float64 {
	out := make(map[string]float64, len(words))
	for _, w := range words {
		out[w] = 0
	}
	return out
}

// maxValue returns the maximum value in m, or 1 when the maximum is not
// positive, so it can be used directly as a divisor.
func maxValue(m map[string]float64) float64 {
	max := 0.0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return 1
	}
	return max
}

// round rounds x to the given number of decimal places.
func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}
