package network

import "sort"

// NodeRow is one word's row in the serialized node table.
type NodeRow struct {
	Word        string  `json:"word"`
	Count       int     `json:"count"`
	Normalized  float64 `json:"normalized"`
	Cluster     int     `json:"cluster"`
	Degree      float64 `json:"degree"`
	Strength    float64 `json:"strength"`
	Betweenness float64 `json:"betweenness"`
	Closeness   float64 `json:"closeness"`
	Eigenvector float64 `json:"eigenvector"`
	PageRank    float64 `json:"pagerank"`
	Harmonic    float64 `json:"harmonic"`
	KCore       int     `json:"kcore"`
	Constraint  float64 `json:"constraint"`
}

// EdgeRow is one edge in the serialized edge list.
type EdgeRow struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Weight     int      `json:"weight"`
	Similarity *float64 `json:"semantic_similarity,omitempty"`
	Type       string   `json:"edge_type,omitempty"`
}

// NodesTable flattens per-node data into rows sorted descending by
// normalized score. The normalized score scales each count to [0,100]
// against the most frequent word; words missing from clusters get cluster
// -1; centrality values are rounded to 3 decimals.
func (n *Network) NodesTable(centrality map[string]CentralityScores, clusters Partition, advanced map[string]AdvancedScores) []NodeRow {
	maxCount := 1
	for _, count := range n.counts {
		if count > maxCount {
			maxCount = count
		}
	}

	rows := make([]NodeRow, 0, len(n.words))
	for _, word := range n.words {
		cluster, ok := clusters[word]
		if !ok {
			cluster = -1
		}
		c := centrality[word]
		row := NodeRow{
			Word:        word,
			Count:       n.counts[word],
			Normalized:  round(float64(n.counts[word])/float64(maxCount)*100, 2),
			Cluster:     cluster,
			Degree:      round(c.Degree, 3),
			Strength:    round(c.Strength, 3),
			Betweenness: round(c.Betweenness, 3),
			Closeness:   round(c.Closeness, 3),
			Eigenvector: round(c.Eigenvector, 3),
		}
		if advanced != nil {
			a := advanced[word]
			row.PageRank = a.PageRank
			row.Harmonic = a.Harmonic
			row.KCore = a.KCore
			row.Constraint = a.Constraint
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Normalized > rows[j].Normalized })
	return rows
}

// EdgeList returns every edge sorted by word pair. Semantic similarity
// attributes are attached when includeSemantic is set.
func (n *Network) EdgeList(includeSemantic bool) []EdgeRow {
	pairs := make([]WordPair, 0, len(n.edges))
	for pair := range n.edges {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})

	rows := make([]EdgeRow, 0, len(pairs))
	for _, pair := range pairs {
		info := n.edges[pair]
		row := EdgeRow{From: pair.A, To: pair.B, Weight: info.Weight}
		if includeSemantic {
			if info.HasSimilarity {
				sim := info.Similarity
				row.Similarity = &sim
			}
			if info.Semantic {
				row.Type = "semantic"
			}
		}
		rows = append(rows, row)
	}
	return rows
}
