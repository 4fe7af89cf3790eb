package network

import "gonum.org/v1/gonum/graph/simple"

// SimilarityEdge is an externally computed semantic similarity between two
// words, with Similarity in [0,1].
type SimilarityEdge struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Similarity float64 `json:"similarity"`
}

// AddSimilarityEdges folds semantic similarity edges into the network.
// Each similarity is scaled to an integer weight with weightMultiplier and
// truncated. Pairs that already co-occur get the scaled weight added and
// the similarity recorded; pairs that do not become new semantic-only
// edges. Returns the number of newly created edges. Calling this twice
// with the same input doubles the added weight, so run it at most once per
// build.
func (n *Network) AddSimilarityEdges(edges []SimilarityEdge, weightMultiplier float64) int {
	if !n.built || len(n.words) < 2 {
		return 0
	}
	n.invalidatePaths()

	added := 0
	for _, e := range edges {
		uid, uok := n.ids[e.From]
		vid, vok := n.ids[e.To]
		if !uok || !vok || uid == vid {
			continue
		}
		weight := int(e.Similarity * weightMultiplier)
		pair := NewWordPair(e.From, e.To)
		info, exists := n.edges[pair]
		if exists {
			info.Weight += weight
			info.Similarity = e.Similarity
			info.HasSimilarity = true
		} else {
			info = EdgeInfo{
				Weight:        weight,
				Similarity:    e.Similarity,
				HasSimilarity: true,
				Semantic:      true,
			}
			added++
		}
		n.edges[pair] = info
		n.g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(uid),
			T: simple.Node(vid),
			W: float64(info.Weight),
		})
	}
	return added
}
