package analysis

import "github.com/chenraccah/semantic-network-analyzer/pkg/network"

// GroupCell holds one word's measurements inside a single group.
type GroupCell struct {
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

// Record is one word's unified row across all groups. PerGroup is indexed
// by group position, matching the analyzer's configured group order.
type Record struct {
	Word          string      `json:"word"`
	PerGroup      []GroupCell `json:"groups"`
	AvgNormalized float64     `json:"avg_normalized"`
	InAllGroups   bool        `json:"in_all"`
	GroupCount    int         `json:"group_count"`
	// Difference is the signed normalized-score difference between the
	// first and the second group; set only for two-group analyses.
	Difference *float64 `json:"difference,omitempty"`
}

// CombinedEdge is a co-occurrence edge with weights summed across groups.
type CombinedEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// GlobalStats summarizes the merged result.
type GlobalStats struct {
	TotalWords int `json:"total_words"`
	WordsInAll int `json:"words_in_all"`
	TotalEdges int `json:"total_edges"`
}

// GroupStats summarizes one group's network.
type GroupStats struct {
	Name                  string   `json:"group_name"`
	Key                   string   `json:"group_key"`
	IncludedWords         int      `json:"total"`
	OnlyWords             int      `json:"only"`
	Clusters              int      `json:"clusters"`
	Density               float64  `json:"density"`
	Modularity            float64  `json:"modularity"`
	ClusteringCoefficient float64  `json:"clustering_coefficient"`
	AvgPathLength         float64  `json:"avg_path_length"`
	Diameter              int      `json:"diameter"`
	NumBridges            int      `json:"num_bridges"`
	NumArticulationPoints int      `json:"num_articulation_points"`
	Assortativity         float64  `json:"assortativity"`
	ArticulationPoints    []string `json:"articulation_points"`
}

// Result is the full outcome of one multi-group analysis. Diagnostics
// collects per-group metric degradations so callers can distinguish a
// legitimately zero value from a failed computation.
type Result struct {
	Records     []Record                `json:"analysis_data"`
	Edges       []CombinedEdge          `json:"edges"`
	Stats       GlobalStats             `json:"stats"`
	GroupStats  []GroupStats            `json:"group_stats"`
	GroupNames  []string                `json:"group_names"`
	GroupKeys   []string                `json:"group_keys"`
	NumGroups   int                     `json:"num_groups"`
	Diagnostics [][]network.MetricError `json:"-"`
}

// FlatResult is the wire shape with per-group values spread into
// group-key-prefixed fields.
type FlatResult struct {
	AnalysisData []map[string]any `json:"analysis_data"`
	Edges        []CombinedEdge   `json:"edges"`
	Stats        map[string]any   `json:"stats"`
	GroupNames   []string         `json:"group_names"`
	GroupKeys    []string         `json:"group_keys"`
	NumGroups    int              `json:"num_groups"`
}

// Flatten spreads per-group cells into group-key-prefixed fields, the
// shape consumed by the HTTP and export layers.
func (r *Result) Flatten() FlatResult {
	rows := make([]map[string]any, 0, len(r.Records))
	for _, rec := range r.Records {
		row := map[string]any{
			"word":           rec.Word,
			"avg_normalized": rec.AvgNormalized,
			"in_all":         rec.InAllGroups,
			"group_count":    rec.GroupCount,
		}
		if rec.Difference != nil {
			row["difference"] = *rec.Difference
		}
		for i, key := range r.GroupKeys {
			cell := rec.PerGroup[i]
			row[key+"_count"] = cell.Count
			row[key+"_normalized"] = cell.Normalized
			row[key+"_cluster"] = cell.Cluster
			row[key+"_degree"] = cell.Degree
			row[key+"_strength"] = cell.Strength
			row[key+"_betweenness"] = cell.Betweenness
			row[key+"_closeness"] = cell.Closeness
			row[key+"_eigenvector"] = cell.Eigenvector
			row[key+"_pagerank"] = cell.PageRank
			row[key+"_harmonic"] = cell.Harmonic
			row[key+"_kcore"] = cell.KCore
			row[key+"_constraint"] = cell.Constraint
		}
		rows = append(rows, row)
	}

	stats := map[string]any{
		"total_words":  r.Stats.TotalWords,
		"words_in_all": r.Stats.WordsInAll,
		"total_edges":  r.Stats.TotalEdges,
	}
	for _, gs := range r.GroupStats {
		stats[gs.Key+"_total"] = gs.IncludedWords
		stats[gs.Key+"_only"] = gs.OnlyWords
		stats[gs.Key+"_clusters"] = gs.Clusters
		stats[gs.Key+"_density"] = gs.Density
		stats[gs.Key+"_modularity"] = gs.Modularity
		stats[gs.Key+"_clustering_coefficient"] = gs.ClusteringCoefficient
		stats[gs.Key+"_avg_path_length"] = gs.AvgPathLength
		stats[gs.Key+"_diameter"] = gs.Diameter
		stats[gs.Key+"_num_bridges"] = gs.NumBridges
		stats[gs.Key+"_num_articulation_points"] = gs.NumArticulationPoints
		stats[gs.Key+"_assortativity"] = gs.Assortativity
		stats[gs.Key+"_articulation_points"] = gs.ArticulationPoints
	}

	return FlatResult{
		AnalysisData: rows,
		Edges:        r.Edges,
		Stats:        stats,
		GroupNames:   r.GroupNames,
		GroupKeys:    r.GroupKeys,
		NumGroups:    r.NumGroups,
	}
}
