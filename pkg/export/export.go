// Package export encodes analysis results for download: plain JSON, a zip
// of CSV tables mirroring the classic workbook sheets, and the GraphML and
// GEXF graph interchange formats.
package export

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
)

// Format identifies an export encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatGraphML Format = "graphml"
	FormatGEXF    Format = "gexf"
)

// ParseFormat validates a format string from a request.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV, FormatGraphML, FormatGEXF:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported export format: %q", s)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "application/zip"
	case FormatGraphML, FormatGEXF:
		return "application/xml"
	}
	return "application/octet-stream"
}

// Extension returns the download file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "zip"
	case FormatGraphML:
		return "graphml"
	case FormatGEXF:
		return "gexf"
	}
	return "bin"
}

// Export encodes the result in the requested format.
func Export(format Format, result analysis.FlatResult) ([]byte, error) {
	switch format {
	case FormatJSON:
		return JSON(result)
	case FormatCSV:
		return CSVZip(result)
	case FormatGraphML:
		return GraphML(result)
	case FormatGEXF:
		return GEXF(result)
	}
	return nil, fmt.Errorf("unsupported export format: %q", format)
}

// JSON encodes the result as indented JSON with the node rows under "nodes".
func JSON(result analysis.FlatResult) ([]byte, error) {
	payload := struct {
		Nodes      []map[string]any        `json:"nodes"`
		Edges      []analysis.CombinedEdge `json:"edges"`
		Stats      map[string]any          `json:"stats"`
		GroupNames []string                `json:"group_names"`
		GroupKeys  []string                `json:"group_keys"`
	}{
		Nodes:      result.AnalysisData,
		Edges:      result.Edges,
		Stats:      result.Stats,
		GroupNames: result.GroupNames,
		GroupKeys:  result.GroupKeys,
	}
	return json.MarshalIndent(payload, "", "  ")
}

// numValue reads a numeric cell from a flattened row. Stored results come
// back from JSON with every number as float64, fresh ones carry ints.
func numValue(row map[string]any, key string, fallback float64) float64 {
	switch n := row[key].(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return fallback
}

func stringValue(row map[string]any, key string) string {
	if s, ok := row[key].(string); ok {
		return s
	}
	return ""
}

// numString renders a number without trailing zeros; integers stay bare.
func numString(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
