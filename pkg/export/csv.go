package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"sort"

	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
)

// emphasisCutoff is the absolute score difference below which a word counts
// as balanced between two groups.
const emphasisCutoff = 10.0

// CSVZip encodes the result as a zip archive holding words.csv, edges.csv
// and stats.csv.
func CSVZip(result analysis.FlatResult) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := []struct {
		name  string
		build func(analysis.FlatResult) ([][]string, error)
	}{
		{"words.csv", wordRows},
		{"edges.csv", edgeRows},
		{"stats.csv", statRows},
	}
	for _, file := range files {
		rows, err := file.build(result)
		if err != nil {
			return nil, err
		}
		w, err := zw.Create(file.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", file.name, err)
		}
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(rows); err != nil {
			return nil, fmt.Errorf("write %s: %w", file.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wordRows builds the word table: one row per word with per-group counts and
// scores, the average score, and per-group cluster and betweenness columns.
// Two-group results additionally carry the score difference and an emphasis
// label naming the group a word leans toward.
func wordRows(result analysis.FlatResult) ([][]string, error) {
	twoGroups := len(result.GroupNames) == 2

	header := []string{"Word"}
	for _, name := range result.GroupNames {
		header = append(header, name+"_Count", name+"_Score")
	}
	header = append(header, "Avg_Score")
	if twoGroups {
		header = append(header, "Difference", "Emphasis")
	}
	for _, name := range result.GroupNames {
		header = append(header, name+"_Cluster", name+"_Betweenness")
	}

	rows := [][]string{header}
	for _, node := range result.AnalysisData {
		row := []string{stringValue(node, "word")}
		for _, key := range result.GroupKeys {
			row = append(row,
				numString(numValue(node, key+"_count", 0)),
				numString(numValue(node, key+"_normalized", 0)))
		}
		row = append(row, numString(numValue(node, "avg_normalized", 0)))
		if twoGroups {
			diff := numValue(node, "difference", 0)
			row = append(row, numString(diff), emphasisLabel(diff, result.GroupNames))
		}
		for _, key := range result.GroupKeys {
			row = append(row,
				numString(numValue(node, key+"_cluster", -1)),
				numString(numValue(node, key+"_betweenness", 0)))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func emphasisLabel(diff float64, groupNames []string) string {
	if math.Abs(diff) < emphasisCutoff {
		return "Balanced"
	}
	if diff > 0 {
		return groupNames[0]
	}
	return groupNames[1]
}

// edgeRows builds the edge table. Combined edges carry no semantic
// similarity, so that column stays empty and the type defaults to
// cooccurrence.
func edgeRows(result analysis.FlatResult) ([][]string, error) {
	rows := [][]string{{"From", "To", "Weight", "Semantic_Similarity", "Edge_Type"}}
	for _, edge := range result.Edges {
		rows = append(rows, []string{
			edge.From,
			edge.To,
			numString(float64(edge.Weight)),
			"",
			"cooccurrence",
		})
	}
	return rows, nil
}

// statRows builds the stats table with one Metric/Value row per entry,
// sorted by metric name so the output is stable.
func statRows(result analysis.FlatResult) ([][]string, error) {
	keys := make([]string, 0, len(result.Stats))
	for key := range result.Stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := [][]string{{"Metric", "Value"}}
	for _, key := range keys {
		rows = append(rows, []string{key, statString(result.Stats[key])})
	}
	return rows, nil
}

func statString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if s {
			return "true"
		}
		return "false"
	case int:
		return numString(float64(s))
	case float64:
		return numString(s)
	case []string:
		out := ""
		for i, item := range s {
			if i > 0 {
				out += "; "
			}
			out += item
		}
		return out
	case []any:
		out := ""
		for i, item := range s {
			if i > 0 {
				out += "; "
			}
			out += statString(item)
		}
		return out
	}
	return fmt.Sprintf("%v", v)
}
