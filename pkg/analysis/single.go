package analysis

import (
	"fmt"

	"github.com/chenraccah/semantic-network-analyzer/pkg/network"
)

// SingleGroupResult is the standalone view of one group's network.
type SingleGroupResult struct {
	Nodes     []network.NodeRow    `json:"nodes"`
	Edges     []network.EdgeRow    `json:"edges"`
	Stats     network.NetworkStats `json:"stats"`
	GroupName string               `json:"group_name"`
	GroupKey  string               `json:"group_key"`
}

// SingleGroup returns one group's network as a standalone result. The
// group's network must already be built, so Analyze has to run first.
func (a *Analyzer) SingleGroup(index int, opts Options) (*SingleGroupResult, error) {
	if index < 0 || index >= len(a.networks) {
		return nil, fmt.Errorf("group index %d with %d groups: %w", index, len(a.networks), ErrGroupIndex)
	}
	opts = opts.withDefaults()

	net := a.networks[index]
	centrality, err := net.Centrality()
	if err != nil {
		return nil, fmt.Errorf("failed to compute centrality for group %q: %w", a.groupNames[index], err)
	}
	clusters := net.DetectClusters(opts.ClusterMethod, opts.TargetClusters, opts.Resolution)
	advanced := net.Advanced()

	return &SingleGroupResult{
		Nodes:     net.NodesTable(centrality, clusters, advanced),
		Edges:     net.EdgeList(true),
		Stats:     net.Stats(),
		GroupName: a.groupNames[index],
		GroupKey:  a.groupKeys[index],
	}, nil
}
