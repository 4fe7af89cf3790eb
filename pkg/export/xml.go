package export

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"

	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
)

// nodeAttribute describes one flattened node column carried into a graph
// export. The word itself becomes the node id and is not repeated as an
// attribute.
type nodeAttribute struct {
	name string
	typ  string
}

// nodeAttributes collects the union of attribute columns across nodes,
// sorted by name. Nil cells are skipped, so a column's type comes from its
// first populated cell.
func nodeAttributes(nodes []map[string]any) []nodeAttribute {
	types := map[string]string{}
	for _, node := range nodes {
		for key, value := range node {
			if key == "word" || value == nil {
				continue
			}
			if _, ok := types[key]; !ok {
				types[key] = attrType(value)
			}
		}
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]nodeAttribute, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, nodeAttribute{name: name, typ: types[name]})
	}
	return attrs
}

func attrType(v any) string {
	switch v.(type) {
	case int, int64:
		return "long"
	case float32, float64:
		return "double"
	case bool:
		return "boolean"
	}
	return "string"
}

func attrString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float32:
		return numString(float64(s))
	case float64:
		return numString(s)
	}
	return fmt.Sprintf("%v", v)
}

type graphmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

// GraphML encodes the result as an undirected GraphML document with one
// attribute key per flattened node column and a weight key on edges.
func GraphML(result analysis.FlatResult) ([]byte, error) {
	attrs := nodeAttributes(result.AnalysisData)

	doc := graphmlDoc{Xmlns: "http://graphml.graphdrawing.org/xmlns"}
	keyIDs := map[string]string{}
	for i, attr := range attrs {
		id := "d" + strconv.Itoa(i)
		keyIDs[attr.name] = id
		doc.Keys = append(doc.Keys, graphmlKey{ID: id, For: "node", Name: attr.name, Type: attr.typ})
	}
	weightKey := "d" + strconv.Itoa(len(attrs))
	doc.Keys = append(doc.Keys, graphmlKey{ID: weightKey, For: "edge", Name: "weight", Type: "long"})

	doc.Graph.EdgeDefault = "undirected"
	for _, node := range result.AnalysisData {
		out := graphmlNode{ID: stringValue(node, "word")}
		for _, attr := range attrs {
			value, ok := node[attr.name]
			if !ok || value == nil {
				continue
			}
			out.Data = append(out.Data, graphmlData{Key: keyIDs[attr.name], Value: attrString(value)})
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, out)
	}
	for _, edge := range result.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: edge.From,
			Target: edge.To,
			Data:   []graphmlData{{Key: weightKey, Value: strconv.Itoa(edge.Weight)}},
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

type gexfAttribute struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfAttributes struct {
	Class      string          `xml:"class,attr"`
	Mode       string          `xml:"mode,attr"`
	Attributes []gexfAttribute `xml:"attribute"`
}

type gexfAttValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type gexfNode struct {
	ID        string         `xml:"id,attr"`
	Label     string         `xml:"label,attr"`
	AttValues []gexfAttValue `xml:"attvalues>attvalue"`
}

type gexfEdge struct {
	ID     string  `xml:"id,attr"`
	Source string  `xml:"source,attr"`
	Target string  `xml:"target,attr"`
	Weight float64 `xml:"weight,attr"`
}

type gexfGraph struct {
	DefaultEdgeType string         `xml:"defaultedgetype,attr"`
	Mode            string         `xml:"mode,attr"`
	Attributes      gexfAttributes `xml:"attributes"`
	Nodes           []gexfNode     `xml:"nodes>node"`
	Edges           []gexfEdge     `xml:"edges>edge"`
}

type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	Xmlns   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Graph   gexfGraph `xml:"graph"`
}

// GEXF encodes the result as a static undirected GEXF 1.2 document.
func GEXF(result analysis.FlatResult) ([]byte, error) {
	attrs := nodeAttributes(result.AnalysisData)

	doc := gexfDoc{
		Xmlns:   "http://www.gexf.net/1.2draft",
		Version: "1.2",
	}
	doc.Graph.DefaultEdgeType = "undirected"
	doc.Graph.Mode = "static"
	doc.Graph.Attributes = gexfAttributes{Class: "node", Mode: "static"}

	attrIDs := map[string]string{}
	for i, attr := range attrs {
		id := strconv.Itoa(i)
		attrIDs[attr.name] = id
		doc.Graph.Attributes.Attributes = append(doc.Graph.Attributes.Attributes, gexfAttribute{
			ID:    id,
			Title: attr.name,
			Type:  attr.typ,
		})
	}
	for _, node := range result.AnalysisData {
		word := stringValue(node, "word")
		out := gexfNode{ID: word, Label: word}
		for _, attr := range attrs {
			value, ok := node[attr.name]
			if !ok || value == nil {
				continue
			}
			out.AttValues = append(out.AttValues, gexfAttValue{For: attrIDs[attr.name], Value: attrString(value)})
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, out)
	}
	for i, edge := range result.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{
			ID:     strconv.Itoa(i),
			Source: edge.From,
			Target: edge.To,
			Weight: float64(edge.Weight),
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
