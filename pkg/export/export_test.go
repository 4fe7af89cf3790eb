package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"reflect"
	"strings"
	"testing"

	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
)

func floatPtr(v float64) *float64 { return &v }

func twoGroupFlat() analysis.FlatResult {
	result := analysis.Result{
		Records: []analysis.Record{
			{
				Word: "climate",
				PerGroup: []analysis.GroupCell{
					{Count: 12, Normalized: 40, Cluster: 0, Betweenness: 0.2},
					{Count: 5, Normalized: 10, Cluster: 1, Betweenness: 0.01},
				},
				AvgNormalized: 25,
				InAllGroups:   true,
				GroupCount:    2,
				Difference:    floatPtr(30),
			},
			{
				Word: "policy",
				PerGroup: []analysis.GroupCell{
					{Count: 5, Normalized: 15, Cluster: 0, Betweenness: 0.05},
					{Count: 6, Normalized: 18, Cluster: 2, Betweenness: 0.3},
				},
				AvgNormalized: 16.5,
				InAllGroups:   true,
				GroupCount:    2,
				Difference:    floatPtr(-3),
			},
		},
		Edges: []analysis.CombinedEdge{
			{From: "climate", To: "policy", Weight: 7},
		},
		Stats: analysis.GlobalStats{TotalWords: 2, WordsInAll: 2, TotalEdges: 1},
		GroupStats: []analysis.GroupStats{
			{Name: "Rural", Key: "rural", IncludedWords: 2, Clusters: 1, Density: 0.5, ArticulationPoints: []string{"climate", "policy"}},
			{Name: "Urban", Key: "urban", IncludedWords: 2, Clusters: 2, Density: 0.25, ArticulationPoints: []string{}},
		},
		GroupNames: []string{"Rural", "Urban"},
		GroupKeys:  []string{"rural", "urban"},
		NumGroups:  2,
	}
	return result.Flatten()
}

func singleGroupFlat() analysis.FlatResult {
	result := analysis.Result{
		Records: []analysis.Record{
			{
				Word:          "solar",
				PerGroup:      []analysis.GroupCell{{Count: 3, Normalized: 100, Cluster: 0}},
				AvgNormalized: 100,
				InAllGroups:   true,
				GroupCount:    1,
			},
		},
		Edges:      []analysis.CombinedEdge{},
		Stats:      analysis.GlobalStats{TotalWords: 1, WordsInAll: 1},
		GroupStats: []analysis.GroupStats{{Name: "All Texts", Key: "all_texts", IncludedWords: 1, ArticulationPoints: []string{}}},
		GroupNames: []string{"All Texts"},
		GroupKeys:  []string{"all_texts"},
		NumGroups:  1,
	}
	return result.Flatten()
}

func readZip(t *testing.T, data []byte) map[string][][]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	files := map[string][][]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		rows, err := csv.NewReader(rc).ReadAll()
		rc.Close()
		if err != nil {
			t.Fatalf("parse %s: %v", f.Name, err)
		}
		files[f.Name] = rows
	}
	return files
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"json", "csv", "graphml", "gexf"} {
		format, err := ParseFormat(name)
		if err != nil {
			t.Fatalf("ParseFormat(%q) error: %v", name, err)
		}
		if string(format) != name {
			t.Errorf("ParseFormat(%q) = %q", name, format)
		}
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatContentType(t *testing.T) {
	cases := map[Format]string{
		FormatJSON:    "application/json",
		FormatCSV:     "application/zip",
		FormatGraphML: "application/xml",
		FormatGEXF:    "application/xml",
	}
	for format, want := range cases {
		if got := format.ContentType(); got != want {
			t.Errorf("%s content type = %q, want %q", format, got, want)
		}
	}
	if got := FormatCSV.Extension(); got != "zip" {
		t.Errorf("csv extension = %q, want zip", got)
	}
}

func TestJSONShape(t *testing.T) {
	out, err := JSON(twoGroupFlat())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.HasPrefix(string(out), "{\n  \"nodes\":") {
		t.Errorf("output should open with an indented nodes key, got %q", string(out[:30]))
	}

	var decoded struct {
		Nodes      []map[string]any `json:"nodes"`
		Edges      []map[string]any `json:"edges"`
		Stats      map[string]any   `json:"stats"`
		GroupNames []string         `json:"group_names"`
		GroupKeys  []string         `json:"group_keys"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Nodes) != 2 || len(decoded.Edges) != 1 {
		t.Fatalf("got %d nodes, %d edges", len(decoded.Nodes), len(decoded.Edges))
	}
	if decoded.Nodes[0]["word"] != "climate" {
		t.Errorf("first node = %v", decoded.Nodes[0]["word"])
	}
	if !reflect.DeepEqual(decoded.GroupNames, []string{"Rural", "Urban"}) {
		t.Errorf("group names = %v", decoded.GroupNames)
	}
	if decoded.Stats["total_words"] != float64(2) {
		t.Errorf("total_words = %v", decoded.Stats["total_words"])
	}
}

func TestCSVZipFiles(t *testing.T) {
	out, err := CSVZip(twoGroupFlat())
	if err != nil {
		t.Fatalf("CSVZip: %v", err)
	}
	files := readZip(t, out)
	for _, name := range []string{"words.csv", "edges.csv", "stats.csv"} {
		if _, ok := files[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}
	if len(files) != 3 {
		t.Errorf("got %d files, want 3", len(files))
	}
}

func TestCSVZipWordsTwoGroups(t *testing.T) {
	out, err := CSVZip(twoGroupFlat())
	if err != nil {
		t.Fatalf("CSVZip: %v", err)
	}
	words := readZip(t, out)["words.csv"]

	wantHeader := []string{
		"Word",
		"Rural_Count", "Rural_Score", "Urban_Count", "Urban_Score",
		"Avg_Score", "Difference", "Emphasis",
		"Rural_Cluster", "Rural_Betweenness", "Urban_Cluster", "Urban_Betweenness",
	}
	if !reflect.DeepEqual(words[0], wantHeader) {
		t.Fatalf("header = %v, want %v", words[0], wantHeader)
	}
	wantClimate := []string{"climate", "12", "40", "5", "10", "25", "30", "Rural", "0", "0.2", "1", "0.01"}
	if !reflect.DeepEqual(words[1], wantClimate) {
		t.Errorf("climate row = %v, want %v", words[1], wantClimate)
	}
	wantPolicy := []string{"policy", "5", "15", "6", "18", "16.5", "-3", "Balanced", "0", "0.05", "2", "0.3"}
	if !reflect.DeepEqual(words[2], wantPolicy) {
		t.Errorf("policy row = %v, want %v", words[2], wantPolicy)
	}
}

func TestCSVZipWordsSingleGroup(t *testing.T) {
	out, err := CSVZip(singleGroupFlat())
	if err != nil {
		t.Fatalf("CSVZip: %v", err)
	}
	words := readZip(t, out)["words.csv"]

	wantHeader := []string{
		"Word",
		"All Texts_Count", "All Texts_Score",
		"Avg_Score",
		"All Texts_Cluster", "All Texts_Betweenness",
	}
	if !reflect.DeepEqual(words[0], wantHeader) {
		t.Fatalf("header = %v, want %v", words[0], wantHeader)
	}
	for _, cell := range words[0] {
		if cell == "Difference" || cell == "Emphasis" {
			t.Errorf("single group export should not carry %s", cell)
		}
	}
}

func TestCSVZipEdges(t *testing.T) {
	out, err := CSVZip(twoGroupFlat())
	if err != nil {
		t.Fatalf("CSVZip: %v", err)
	}
	edges := readZip(t, out)["edges.csv"]

	wantHeader := []string{"From", "To", "Weight", "Semantic_Similarity", "Edge_Type"}
	if !reflect.DeepEqual(edges[0], wantHeader) {
		t.Fatalf("header = %v, want %v", edges[0], wantHeader)
	}
	want := []string{"climate", "policy", "7", "", "cooccurrence"}
	if !reflect.DeepEqual(edges[1], want) {
		t.Errorf("edge row = %v, want %v", edges[1], want)
	}
}

func TestCSVZipStats(t *testing.T) {
	flat := twoGroupFlat()
	out, err := CSVZip(flat)
	if err != nil {
		t.Fatalf("CSVZip: %v", err)
	}
	stats := readZip(t, out)["stats.csv"]

	if !reflect.DeepEqual(stats[0], []string{"Metric", "Value"}) {
		t.Fatalf("header = %v", stats[0])
	}
	if len(stats) != len(flat.Stats)+1 {
		t.Errorf("got %d rows, want %d", len(stats), len(flat.Stats)+1)
	}
	values := map[string]string{}
	for _, row := range stats[1:] {
		values[row[0]] = row[1]
	}
	if values["total_words"] != "2" {
		t.Errorf("total_words = %q", values["total_words"])
	}
	if values["rural_articulation_points"] != "climate; policy" {
		t.Errorf("rural_articulation_points = %q", values["rural_articulation_points"])
	}
	for i := 2; i < len(stats); i++ {
		if stats[i-1][0] > stats[i][0] {
			t.Fatalf("metrics not sorted: %q before %q", stats[i-1][0], stats[i][0])
		}
	}
}

func TestGraphML(t *testing.T) {
	out, err := GraphML(twoGroupFlat())
	if err != nil {
		t.Fatalf("GraphML: %v", err)
	}
	if !strings.HasPrefix(string(out), xml.Header) {
		t.Error("missing xml header")
	}

	var doc graphmlDoc
	if err := xml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Graph.EdgeDefault != "undirected" {
		t.Errorf("edgedefault = %q", doc.Graph.EdgeDefault)
	}
	if len(doc.Graph.Nodes) != 2 || len(doc.Graph.Edges) != 1 {
		t.Fatalf("got %d nodes, %d edges", len(doc.Graph.Nodes), len(doc.Graph.Edges))
	}
	if doc.Graph.Nodes[0].ID != "climate" {
		t.Errorf("first node id = %q", doc.Graph.Nodes[0].ID)
	}

	// 4 shared columns plus 12 metrics per group, then the edge weight key.
	wantKeys := 4 + 12*2 + 1
	if len(doc.Keys) != wantKeys {
		t.Errorf("got %d keys, want %d", len(doc.Keys), wantKeys)
	}
	last := doc.Keys[len(doc.Keys)-1]
	if last.For != "edge" || last.Name != "weight" {
		t.Errorf("last key = %+v, want the edge weight", last)
	}
	for i := 1; i < len(doc.Keys)-1; i++ {
		if doc.Keys[i-1].Name > doc.Keys[i].Name {
			t.Fatalf("node keys not sorted: %q before %q", doc.Keys[i-1].Name, doc.Keys[i].Name)
		}
	}

	edge := doc.Graph.Edges[0]
	if edge.Source != "climate" || edge.Target != "policy" {
		t.Errorf("edge = %s-%s", edge.Source, edge.Target)
	}
	if len(edge.Data) != 1 || edge.Data[0].Value != "7" {
		t.Errorf("edge data = %+v", edge.Data)
	}

	byName := map[string]graphmlKey{}
	for _, key := range doc.Keys {
		byName[key.Name] = key
	}
	if byName["avg_normalized"].Type != "double" {
		t.Errorf("avg_normalized type = %q", byName["avg_normalized"].Type)
	}
	if byName["in_all"].Type != "boolean" {
		t.Errorf("in_all type = %q", byName["in_all"].Type)
	}
	if byName["rural_count"].Type != "long" {
		t.Errorf("rural_count type = %q", byName["rural_count"].Type)
	}
}

func TestGEXF(t *testing.T) {
	out, err := GEXF(twoGroupFlat())
	if err != nil {
		t.Fatalf("GEXF: %v", err)
	}

	var doc gexfDoc
	if err := xml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Version != "1.2" {
		t.Errorf("version = %q", doc.Version)
	}
	if doc.Graph.DefaultEdgeType != "undirected" || doc.Graph.Mode != "static" {
		t.Errorf("graph attrs = %q/%q", doc.Graph.DefaultEdgeType, doc.Graph.Mode)
	}
	if doc.Graph.Attributes.Class != "node" {
		t.Errorf("attributes class = %q", doc.Graph.Attributes.Class)
	}
	if len(doc.Graph.Nodes) != 2 || len(doc.Graph.Edges) != 1 {
		t.Fatalf("got %d nodes, %d edges", len(doc.Graph.Nodes), len(doc.Graph.Edges))
	}

	node := doc.Graph.Nodes[0]
	if node.ID != "climate" || node.Label != "climate" {
		t.Errorf("node = %q/%q", node.ID, node.Label)
	}
	if len(node.AttValues) != len(doc.Graph.Attributes.Attributes) {
		t.Errorf("got %d attvalues, want %d", len(node.AttValues), len(doc.Graph.Attributes.Attributes))
	}

	edge := doc.Graph.Edges[0]
	if edge.Source != "climate" || edge.Target != "policy" || edge.Weight != 7 {
		t.Errorf("edge = %+v", edge)
	}
}

func TestNodeAttributesSkipNil(t *testing.T) {
	nodes := []map[string]any{
		{"word": "a", "score": 1.5, "note": nil},
		{"word": "b", "score": 2.0},
	}
	attrs := nodeAttributes(nodes)
	if len(attrs) != 1 {
		t.Fatalf("got %d attrs, want 1: %+v", len(attrs), attrs)
	}
	if attrs[0].name != "score" || attrs[0].typ != "double" {
		t.Errorf("attr = %+v", attrs[0])
	}
}

func TestExportDispatch(t *testing.T) {
	flat := singleGroupFlat()
	for _, format := range []Format{FormatJSON, FormatCSV, FormatGraphML, FormatGEXF} {
		out, err := Export(format, flat)
		if err != nil {
			t.Fatalf("Export(%s): %v", format, err)
		}
		if len(out) == 0 {
			t.Errorf("Export(%s) returned empty output", format)
		}
	}
	if _, err := Export(Format("pdf"), flat); err == nil {
		t.Error("expected error for unknown format")
	}
}
