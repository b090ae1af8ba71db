// Package connectivity reports how well connected the road network is.
// A route exists between two nodes only if they share a strongly connected
// component, so the report points operators at isolated nodes and one-way
// dead ends.
package connectivity

import (
	"sort"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/route-viewer/pkg/graph"
)

// Component is a set of mutually reachable nodes
type Component struct {
	Nodes []string `json:"nodes"`
}

// Report summarises the strongly connected components of a road graph
type Report struct {
	Components   int      `json:"components"`
	LargestSize  int      `json:"largestSize"`
	Isolated     []string `json:"isolated"`
	Disconnected bool     `json:"disconnected"`
}

// Components returns all components of rg, largest first. Node names inside a
// component are sorted.
func Components(rg *graph.RoadGraph) []Component {
	sccs := topo.TarjanSCC(rg.Directed())

	out := make([]Component, 0, len(sccs))
	for _, scc := range sccs {
		names := make([]string, 0, len(scc))
		for _, n := range scc {
			names = append(names, rg.NodeName(n.ID()))
		}
		sort.Strings(names)
		out = append(out, Component{Nodes: names})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Nodes) != len(out[j].Nodes) {
			return len(out[i].Nodes) > len(out[j].Nodes)
		}
		return out[i].Nodes[0] < out[j].Nodes[0]
	})
	return out
}

// Analyze builds a Report for rg
func Analyze(rg *graph.RoadGraph) Report {
	comps := Components(rg)
	r := Report{
		Components: len(comps),
		Isolated:   make([]string, 0),
	}
	if len(comps) > 0 {
		r.LargestSize = len(comps[0].Nodes)
	}
	r.Disconnected = len(comps) > 1

	for _, c := range comps {
		if len(c.Nodes) == 1 && len(rg.Neighbors(c.Nodes[0])) == 0 {
			r.Isolated = append(r.Isolated, c.Nodes[0])
		}
	}
	sort.Strings(r.Isolated)
	return r
}
