// Package analysis aggregates word co-occurrence networks across one or
// more named groups into a unified comparison result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/network"
	"github.com/chenraccah/semantic-network-analyzer/pkg/textproc"
)

var (
	// ErrGroupCountMismatch is returned when the number of text groups
	// passed to Analyze differs from the configured group count.
	ErrGroupCountMismatch = errors.New("group count mismatch")
	// ErrTwoGroupsRequired is returned by word pair analysis when the
	// analyzer is not configured with exactly two groups.
	ErrTwoGroupsRequired = errors.New("word pair analysis requires exactly two groups")
	// ErrGroupIndex is returned when a group index is out of range.
	ErrGroupIndex = errors.New("group index out of range")
	// ErrNoSimilarityProvider is returned when semantic augmentation is
	// requested but no provider was configured.
	ErrNoSimilarityProvider = errors.New("no similarity provider configured")
)

// SimilarityProvider supplies semantic similarity edges for a word list.
// Implementations typically embed the words and compare vectors pairwise,
// returning only pairs whose similarity reaches the threshold.
type SimilarityProvider interface {
	SimilarEdges(ctx context.Context, words []string, threshold float64) ([]network.SimilarityEdge, error)
}

// Analyzer builds and compares word co-occurrence networks across one or
// more named groups. All groups share a single text processor so their
// vocabularies stay comparable.
//
// An Analyzer is not safe for concurrent use; each request should own its
// own instance.
//
// An Analyzer should be created using NewAnalyzer.
type Analyzer struct {
	groupNames []string
	groupKeys  []string
	processor  *textproc.Processor
	networks   []*network.Network
	provider   SimilarityProvider
}

// NewAnalyzerParams defines the configuration for creating a new Analyzer.
//
// GroupNames names each comparison group; at least one is required.
// Processor normalizes raw text into canonical tokens; when nil a default
// processor is created.
// Provider optionally supplies semantic similarity edges and is only
// consulted when Options.Semantic is set.
type NewAnalyzerParams struct {
	GroupNames []string
	Processor  *textproc.Processor
	Provider   SimilarityProvider
}

// NewAnalyzer creates and returns a new Analyzer configured with the
// provided parameters.
//
// Example:
//
//	analyzer, err := analysis.NewAnalyzer(analysis.NewAnalyzerParams{
//		GroupNames: []string{"Group A", "Group B"},
//		Processor:  textproc.New(),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewAnalyzer(params NewAnalyzerParams) (*Analyzer, error) {
	if len(params.GroupNames) == 0 {
		return nil, errors.New("at least one group name is required")
	}
	processor := params.Processor
	if processor == nil {
		processor = textproc.New()
	}

	keys := make([]string, len(params.GroupNames))
	networks := make([]*network.Network, len(params.GroupNames))
	for i, name := range params.GroupNames {
		keys[i] = GroupKey(name)
		networks[i] = network.New()
	}

	return &Analyzer{
		groupNames: append([]string(nil), params.GroupNames...),
		groupKeys:  keys,
		processor:  processor,
		networks:   networks,
		provider:   params.Provider,
	}, nil
}

// GroupKey converts a group display name into its key form: lowercased
// with whitespace runs collapsed to single underscores.
func GroupKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// NumGroups returns the configured group count.
func (a *Analyzer) NumGroups() int { return len(a.groupNames) }

// GroupNames returns a copy of the configured group display names.
func (a *Analyzer) GroupNames() []string {
	return append([]string(nil), a.groupNames...)
}

// GroupKeys returns a copy of the normalized group keys.
func (a *Analyzer) GroupKeys() []string {
	return append([]string(nil), a.groupKeys...)
}

// Processor returns the shared text processor.
func (a *Analyzer) Processor() *textproc.Processor { return a.processor }

// Options control a single analysis run.
type Options struct {
	// MinFrequency drops words occurring fewer times within a group.
	MinFrequency int
	// MinEdgeWeight drops co-occurrence edges below this weight.
	MinEdgeWeight int
	// MinScoreThreshold is the minimum normalized score a word must
	// reach in at least one group to be included.
	MinScoreThreshold float64
	// PerGroupThresholds overrides MinScoreThreshold per group when its
	// length matches the group count; otherwise it is ignored.
	PerGroupThresholds []float64
	// ClusterMethod selects the community detection method.
	ClusterMethod string
	// TargetClusters is the cluster count used by spectral clustering.
	TargetClusters int
	// Resolution tunes louvain community granularity.
	Resolution float64
	// Semantic enables similarity edge augmentation via the provider.
	Semantic bool
	// SimilarityThreshold is the minimum similarity for a semantic edge.
	SimilarityThreshold float64
	// SimilarityWeightMultiplier scales similarity values into integer
	// edge weights.
	SimilarityWeightMultiplier float64
}

// DefaultOptions returns the standard analysis options.
func DefaultOptions() Options {
	return Options{
		MinFrequency:               1,
		MinEdgeWeight:              1,
		MinScoreThreshold:          2.0,
		ClusterMethod:              network.MethodLouvain,
		TargetClusters:             5,
		Resolution:                 1.0,
		SimilarityThreshold:        0.5,
		SimilarityWeightMultiplier: 10,
	}
}

func (o Options) withDefaults() Options {
	if o.MinFrequency < 1 {
		o.MinFrequency = 1
	}
	if o.MinEdgeWeight < 1 {
		o.MinEdgeWeight = 1
	}
	if o.ClusterMethod == "" {
		o.ClusterMethod = network.MethodLouvain
	}
	if o.TargetClusters < 1 {
		o.TargetClusters = 5
	}
	if o.Resolution <= 0 {
		o.Resolution = 1.0
	}
	if o.SimilarityWeightMultiplier <= 0 {
		o.SimilarityWeightMultiplier = 10
	}
	return o
}

type groupComputation struct {
	centrality map[string]network.CentralityScores
	clusters   network.Partition
	advanced   map[string]network.AdvancedScores
}

// Analyze normalizes each group's texts, builds the per-group networks,
// computes metrics and clusters, and merges everything into a unified
// comparison result. The number of text groups must match the configured
// group count.
func (a *Analyzer) Analyze(ctx context.Context, textsPerGroup [][]string, opts Options) (*Result, error) {
	if len(textsPerGroup) != len(a.groupNames) {
		return nil, fmt.Errorf("expected %d text groups, got %d: %w",
			len(a.groupNames), len(textsPerGroup), ErrGroupCountMismatch)
	}
	if opts.Semantic && a.provider == nil {
		return nil, ErrNoSimilarityProvider
	}
	opts = opts.withDefaults()
	thresholds := a.effectiveThresholds(opts)

	diagnostics := make([][]network.MetricError, len(a.networks))

	for i, texts := range textsPerGroup {
		stats := a.processor.ProcessTexts(texts)
		a.networks[i].Build(stats.Documents, opts.MinFrequency, opts.MinEdgeWeight)
		logger.Debug("[Analyzer] built group network",
			"group", a.groupNames[i],
			"documents", len(stats.Documents),
			"nodes", a.networks[i].NumNodes(),
			"edges", a.networks[i].NumEdges())

		if opts.Semantic {
			if err := a.augment(ctx, i, opts); err != nil {
				diagnostics[i] = append(diagnostics[i], network.MetricError{Metric: "semantic", Err: err})
			}
		}
	}

	perGroup := make([]groupComputation, len(a.networks))
	for i, net := range a.networks {
		centrality, err := net.Centrality()
		if err != nil {
			return nil, fmt.Errorf("failed to compute centrality for group %q: %w", a.groupNames[i], err)
		}
		perGroup[i] = groupComputation{
			centrality: centrality,
			clusters:   net.DetectClusters(opts.ClusterMethod, opts.TargetClusters, opts.Resolution),
			advanced:   net.Advanced(),
		}
	}

	maxCounts := a.maxCounts()
	numGroups := len(a.groupNames)

	records := make([]Record, 0)
	for _, word := range a.unionWords() {
		cells := make([]GroupCell, numGroups)
		include := false
		groupCount := 0
		var sumNorm float64
		for i := range a.networks {
			count := a.networks[i].Count(word)
			var norm float64
			if count > 0 {
				norm = round(float64(count)/float64(maxCounts[i])*100, 2)
				groupCount++
			}
			if norm >= thresholds[i] {
				include = true
			}
			sumNorm += norm

			cell := GroupCell{Count: count, Normalized: norm, Cluster: -1}
			if id, ok := perGroup[i].clusters[word]; ok {
				cell.Cluster = id
			}
			if c, ok := perGroup[i].centrality[word]; ok {
				cell.Degree = round(c.Degree, 3)
				cell.Strength = round(c.Strength, 3)
				cell.Betweenness = round(c.Betweenness, 3)
				cell.Closeness = round(c.Closeness, 3)
				cell.Eigenvector = round(c.Eigenvector, 3)
			}
			if adv, ok := perGroup[i].advanced[word]; ok {
				cell.PageRank = adv.PageRank
				cell.Harmonic = adv.Harmonic
				cell.KCore = adv.KCore
				cell.Constraint = adv.Constraint
			}
			cells[i] = cell
		}
		if !include {
			continue
		}

		record := Record{
			Word:          word,
			PerGroup:      cells,
			AvgNormalized: round(sumNorm/float64(numGroups), 2),
			InAllGroups:   groupCount == numGroups,
			GroupCount:    groupCount,
		}
		if numGroups == 2 {
			diff := round(cells[0].Normalized-cells[1].Normalized, 2)
			record.Difference = &diff
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].AvgNormalized > records[j].AvgNormalized
	})

	edges := a.combinedEdges(records)

	global := GlobalStats{TotalWords: len(records), TotalEdges: len(edges)}
	for _, r := range records {
		if r.InAllGroups {
			global.WordsInAll++
		}
	}

	groupStats := make([]GroupStats, len(a.networks))
	for i, net := range a.networks {
		gs := GroupStats{
			Name:               a.groupNames[i],
			Key:                a.groupKeys[i],
			ArticulationPoints: []string{},
		}
		for _, r := range records {
			if r.PerGroup[i].Count > 0 {
				gs.IncludedWords++
				if r.GroupCount == 1 {
					gs.OnlyWords++
				}
			}
		}

		clusterIDs := make(map[int]struct{})
		for _, id := range perGroup[i].clusters {
			clusterIDs[id] = struct{}{}
		}
		gs.Clusters = len(clusterIDs)

		stats := net.Stats()
		gs.Density = stats.Density
		if stats.Modularity != nil {
			gs.Modularity = *stats.Modularity
		}
		gs.ClusteringCoefficient = stats.ClusteringCoefficient
		gs.AvgPathLength = stats.AvgPathLength
		gs.Diameter = stats.Diameter

		structural := net.Structural()
		gs.NumBridges = len(structural.Bridges)
		gs.NumArticulationPoints = len(structural.ArticulationPoints)
		gs.Assortativity = structural.Assortativity
		gs.ArticulationPoints = structural.ArticulationPoints

		diagnostics[i] = append(diagnostics[i], net.Diagnostics()...)
		groupStats[i] = gs
	}

	logger.Info("[Analyzer] analysis complete",
		"groups", numGroups,
		"words", len(records),
		"edges", len(edges))

	return &Result{
		Records:     records,
		Edges:       edges,
		Stats:       global,
		GroupStats:  groupStats,
		GroupNames:  a.GroupNames(),
		GroupKeys:   a.GroupKeys(),
		NumGroups:   numGroups,
		Diagnostics: diagnostics,
	}, nil
}

// augment fetches similarity edges for one group's vocabulary and merges
// them into its network.
func (a *Analyzer) augment(ctx context.Context, i int, opts Options) error {
	net := a.networks[i]
	words := net.Words()
	if len(words) < 2 {
		return nil
	}
	edges, err := a.provider.SimilarEdges(ctx, words, opts.SimilarityThreshold)
	if err != nil {
		logger.Warn("[Analyzer] similarity augmentation failed",
			"group", a.groupNames[i],
			"error", err)
		return fmt.Errorf("failed to fetch similarity edges: %w", err)
	}
	added := net.AddSimilarityEdges(edges, opts.SimilarityWeightMultiplier)
	logger.Debug("[Analyzer] semantic edges merged",
		"group", a.groupNames[i],
		"candidates", len(edges),
		"added", added)
	return nil
}

func (a *Analyzer) effectiveThresholds(opts Options) []float64 {
	if len(opts.PerGroupThresholds) > 0 && len(opts.PerGroupThresholds) == len(a.groupNames) {
		return opts.PerGroupThresholds
	}
	thresholds := make([]float64, len(a.groupNames))
	for i := range thresholds {
		thresholds[i] = opts.MinScoreThreshold
	}
	return thresholds
}

// unionWords returns every word present in any group's network, sorted.
func (a *Analyzer) unionWords() []string {
	seen := make(map[string]struct{})
	for _, net := range a.networks {
		for _, word := range net.Words() {
			seen[word] = struct{}{}
		}
	}
	words := make([]string, 0, len(seen))
	for word := range seen {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

func (a *Analyzer) maxCounts() []int {
	maxes := make([]int, len(a.networks))
	for i, net := range a.networks {
		max := 1
		for _, count := range net.Counts() {
			if count > max {
				max = count
			}
		}
		maxes[i] = max
	}
	return maxes
}

// combinedEdges unions edges across all groups, summing weights for
// recurring pairs and keeping only pairs whose endpoints survived the
// inclusion filter.
func (a *Analyzer) combinedEdges(records []Record) []CombinedEdge {
	included := make(map[string]struct{}, len(records))
	for _, r := range records {
		included[r.Word] = struct{}{}
	}

	combined := make(map[network.WordPair]int)
	for _, net := range a.networks {
		for _, e := range net.EdgeList(false) {
			combined[network.NewWordPair(e.From, e.To)] += e.Weight
		}
	}

	pairs := make([]network.WordPair, 0, len(combined))
	for pair := range combined {
		if _, ok := included[pair.A]; !ok {
			continue
		}
		if _, ok := included[pair.B]; !ok {
			continue
		}
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})

	edges := make([]CombinedEdge, 0, len(pairs))
	for _, pair := range pairs {
		edges = append(edges, CombinedEdge{From: pair.A, To: pair.B, Weight: combined[pair]})
	}
	return edges
}

func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}
