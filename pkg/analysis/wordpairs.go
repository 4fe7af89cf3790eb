package analysis

import (
	"fmt"
	"sort"

	"github.com/chenraccah/semantic-network-analyzer/pkg/network"
)

// WordPairRow is one co-occurring word pair with per-group document
// connection counts for a two-group comparison.
type WordPairRow struct {
	Word1           string
	Word2           string
	CountA          int
	CountB          int
	Total           int
	NormalizedA     float64
	NormalizedB     float64
	TotalNormalized float64
	Difference      float64
}

// WordPairs counts document-level co-occurrences of word pairs across two
// text groups, with no frequency or threshold filtering. Rows are sorted
// by total connections descending and normalized against each column's
// maximum.
func (a *Analyzer) WordPairs(textsA, textsB []string) ([]WordPairRow, error) {
	if len(a.groupNames) != 2 {
		return nil, fmt.Errorf("%d groups configured: %w", len(a.groupNames), ErrTwoGroupsRequired)
	}

	pairsA := countPairs(a.processor.ProcessTexts(textsA).Documents)
	pairsB := countPairs(a.processor.ProcessTexts(textsB).Documents)

	union := make(map[network.WordPair]struct{}, len(pairsA)+len(pairsB))
	for pair := range pairsA {
		union[pair] = struct{}{}
	}
	for pair := range pairsB {
		union[pair] = struct{}{}
	}
	ordered := make([]network.WordPair, 0, len(union))
	for pair := range union {
		ordered = append(ordered, pair)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].A != ordered[j].A {
			return ordered[i].A < ordered[j].A
		}
		return ordered[i].B < ordered[j].B
	})

	rows := make([]WordPairRow, 0, len(ordered))
	maxA, maxB, maxTotal := 1, 1, 1
	for _, pair := range ordered {
		row := WordPairRow{
			Word1:  pair.A,
			Word2:  pair.B,
			CountA: pairsA[pair],
			CountB: pairsB[pair],
		}
		row.Total = row.CountA + row.CountB
		if row.CountA > maxA {
			maxA = row.CountA
		}
		if row.CountB > maxB {
			maxB = row.CountB
		}
		if row.Total > maxTotal {
			maxTotal = row.Total
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Total > rows[j].Total })

	for i := range rows {
		rows[i].NormalizedA = round(float64(rows[i].CountA)/float64(maxA)*100, 2)
		rows[i].NormalizedB = round(float64(rows[i].CountB)/float64(maxB)*100, 2)
		rows[i].TotalNormalized = round(float64(rows[i].Total)/float64(maxTotal)*100, 2)
		rows[i].Difference = round(rows[i].NormalizedA-rows[i].NormalizedB, 2)
	}
	return rows, nil
}

// FlattenWordPairs spreads word pair rows into the group-key-prefixed
// wire shape.
func (a *Analyzer) FlattenWordPairs(rows []WordPairRow) []map[string]any {
	if len(a.groupKeys) != 2 {
		return nil
	}
	keyA, keyB := a.groupKeys[0], a.groupKeys[1]
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"word_1":              row.Word1,
			"word_2":              row.Word2,
			keyA + "_connections": row.CountA,
			keyB + "_connections": row.CountB,
			"total_connections":   row.Total,
			keyA + "_normalized":  row.NormalizedA,
			keyB + "_normalized":  row.NormalizedB,
			"total_normalized":    row.TotalNormalized,
			"difference":          row.Difference,
		})
	}
	return out
}

// countPairs tallies, per document, each unordered pair of distinct words
// appearing together. A pair counts once per document no matter how often
// the words repeat.
func countPairs(documents [][]string) map[network.WordPair]int {
	counts := make(map[network.WordPair]int)
	for _, doc := range documents {
		seen := make(map[string]struct{}, len(doc))
		for _, word := range doc {
			seen[word] = struct{}{}
		}
		unique := make([]string, 0, len(seen))
		for word := range seen {
			unique = append(unique, word)
		}
		sort.Strings(unique)
		for i := 0; i < len(unique); i++ {
			for j := i + 1; j < len(unique); j++ {
				counts[network.WordPair{A: unique[i], B: unique[j]}]++
			}
		}
	}
	return counts
}
