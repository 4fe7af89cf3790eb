package insights

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
)

// DefaultMaxContextWords bounds how many top words PrepareContext includes.
const DefaultMaxContextWords = 30

const (
	leaningCutoff    = 10.0
	emphasisCutoff   = 20.0
	bridgeCutoff     = 0.05
	maxEmphasisWords = 5
	maxBridgeWords   = 3
)

// PrepareContext condenses an analysis result into a compact plain-text
// summary for the chat model: header stats, the top maxWords words with
// per-group counts and normalized scores, two-group leaning labels, and key
// patterns (emphasized words per side, bridge words per group). Only the top
// slice feeds the pattern sections, keeping the token footprint small.
func PrepareContext(result *analysis.Result, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultMaxContextWords
	}
	numGroups := result.NumGroups

	parts := []string{
		"=== SEMANTIC NETWORK ANALYSIS SUMMARY ===",
		"Groups: " + strings.Join(result.GroupNames, ", "),
		fmt.Sprintf("Total unique words: %d", result.Stats.TotalWords),
		fmt.Sprintf("Total edges (connections): %d", result.Stats.TotalEdges),
	}

	for _, gs := range result.GroupStats {
		parts = append(parts, fmt.Sprintf("%s: %d words, %d clusters", gs.Name, gs.IncludedWords, gs.Clusters))
	}
	if numGroups > 1 {
		parts = append(parts, fmt.Sprintf("Words in all groups: %d", result.Stats.WordsInAll))
	}

	parts = append(parts, fmt.Sprintf("\n=== TOP %d WORDS ===", maxWords))

	top := topRecords(result.Records, maxWords)
	for _, rec := range top {
		groupInfo := make([]string, 0, numGroups)
		for i, name := range result.GroupNames {
			cell := rec.PerGroup[i]
			groupInfo = append(groupInfo, fmt.Sprintf("%s:%d(%s%%)", name, cell.Count, formatNum(cell.Normalized)))
		}

		diffLabel := ""
		if numGroups == 2 {
			switch diff := difference(rec); {
			case diff > leaningCutoff:
				diffLabel = fmt.Sprintf(" [%s-leaning]", result.GroupNames[0])
			case diff < -leaningCutoff:
				diffLabel = fmt.Sprintf(" [%s-leaning]", result.GroupNames[1])
			default:
				diffLabel = " [balanced]"
			}
		}

		parts = append(parts, fmt.Sprintf("- %s: avg=%s%%, %s%s",
			rec.Word, formatNum(rec.AvgNormalized), strings.Join(groupInfo, ", "), diffLabel))
	}

	parts = append(parts, "\n=== KEY PATTERNS ===")

	if numGroups == 2 {
		first := emphasizedWords(top, func(diff float64) bool { return diff > emphasisCutoff })
		second := emphasizedWords(top, func(diff float64) bool { return diff < -emphasisCutoff })
		if len(first) > 0 {
			parts = append(parts, fmt.Sprintf("%s-emphasized words: %s", result.GroupNames[0], strings.Join(first, ", ")))
		}
		if len(second) > 0 {
			parts = append(parts, fmt.Sprintf("%s-emphasized words: %s", result.GroupNames[1], strings.Join(second, ", ")))
		}
	}

	for i, name := range result.GroupNames {
		bridges := bridgeWords(top, i)
		if len(bridges) > 0 {
			parts = append(parts, fmt.Sprintf("%s bridge words: %s", name, strings.Join(bridges, ", ")))
		}
	}

	return strings.Join(parts, "\n")
}

// topRecords returns the maxWords highest-scoring records by average
// normalized score, ties kept in input order.
func topRecords(records []analysis.Record, maxWords int) []analysis.Record {
	top := make([]analysis.Record, len(records))
	copy(top, records)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].AvgNormalized > top[j].AvgNormalized
	})
	if len(top) > maxWords {
		top = top[:maxWords]
	}
	return top
}

func emphasizedWords(top []analysis.Record, keep func(diff float64) bool) []string {
	words := make([]string, 0, maxEmphasisWords)
	for _, rec := range top {
		if !keep(difference(rec)) {
			continue
		}
		words = append(words, rec.Word)
		if len(words) == maxEmphasisWords {
			break
		}
	}
	return words
}

func bridgeWords(top []analysis.Record, group int) []string {
	type scored struct {
		word        string
		betweenness float64
	}
	candidates := make([]scored, 0)
	for _, rec := range top {
		if b := rec.PerGroup[group].Betweenness; b > bridgeCutoff {
			candidates = append(candidates, scored{word: rec.Word, betweenness: b})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].betweenness > candidates[j].betweenness
	})
	if len(candidates) > maxBridgeWords {
		candidates = candidates[:maxBridgeWords]
	}
	words := make([]string, len(candidates))
	for i, c := range candidates {
		words[i] = c.word
	}
	return words
}

func difference(rec analysis.Record) float64 {
	if rec.Difference == nil {
		return 0
	}
	return *rec.Difference
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
