package graph

import (
	"fmt"
	"math"

	"github.com/ritzau/route-viewer/pkg/geo"
	"github.com/ritzau/route-viewer/pkg/model"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// RoadGraph is the routable form of a model.Graph. Undirected edges are
// stored as two directed edges; closed edges are left out.
type RoadGraph struct {
	graph  *simple.DirectedGraph
	source *model.Graph
	ids    map[string]int64        // node name -> graph ID
	edges  map[[2]int64]model.Edge // directed (from, to) -> edge attributes
	points []geo.Point             // indexed by graph ID

	// detour is the smallest ratio of edge length to straight-line distance
	// seen in the graph, capped at 1. Heuristics are scaled by it so they
	// never overestimate.
	detour float64
}

// Build creates a RoadGraph from a model graph. The model is validated first.
func Build(src *model.Graph) (*RoadGraph, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil graph", model.ErrInvalidGraph)
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	rg := &RoadGraph{
		graph:  simple.NewDirectedGraph(),
		source: src,
		ids:    make(map[string]int64, len(src.Nodes)),
		edges:  make(map[[2]int64]model.Edge, 2*len(src.Edges)),
		points: make([]geo.Point, len(src.Nodes)),
		detour: 1,
	}

	for _, n := range src.Nodes {
		id := int64(n.ID)
		rg.ids[n.Name] = id
		rg.points[id] = geo.Point{Lat: n.Lat, Lon: n.Lon}
		rg.graph.AddNode(simple.Node(id))
	}

	for _, e := range src.Edges {
		if e.Closed {
			continue
		}
		if e.RoadType == "" {
			e.RoadType = model.DefaultRoadType
		}
		from, to := rg.ids[e.From], rg.ids[e.To]
		rg.addDirected(from, to, e)
		if !e.OneWay {
			rev := e
			rev.From, rev.To = e.To, e.From
			rg.addDirected(to, from, rev)
		}

		if straight := geo.Haversine(rg.points[from], rg.points[to]); straight > 0 {
			rg.detour = math.Min(rg.detour, e.Distance/straight)
		}
	}

	return rg, nil
}

// addDirected adds from->to, keeping the shorter edge when one already exists
func (rg *RoadGraph) addDirected(from, to int64, e model.Edge) {
	key := [2]int64{from, to}
	if existing, ok := rg.edges[key]; ok && existing.Distance <= e.Distance {
		return
	}
	rg.edges[key] = e
	if !rg.graph.HasEdgeFromTo(from, to) {
		rg.graph.SetEdge(rg.graph.NewEdge(rg.graph.Node(from), rg.graph.Node(to)))
	}
}

// Source returns the validated model graph the RoadGraph was built from
func (rg *RoadGraph) Source() *model.Graph {
	return rg.source
}

// Directed returns the underlying gonum graph
func (rg *RoadGraph) Directed() gonum.Directed {
	return rg.graph
}

// NodeID returns the graph ID of the named node
func (rg *RoadGraph) NodeID(name string) (int64, bool) {
	id, ok := rg.ids[name]
	return id, ok
}

// NodeName returns the name of the node with the given graph ID
func (rg *RoadGraph) NodeName(id int64) string {
	if id < 0 || int(id) >= len(rg.source.Nodes) {
		return ""
	}
	return rg.source.Nodes[id].Name
}

// HasNode reports whether a node with that name exists
func (rg *RoadGraph) HasNode(name string) bool {
	_, ok := rg.NodeID(name)
	return ok
}

// NodeCount returns the number of nodes
func (rg *RoadGraph) NodeCount() int {
	return len(rg.source.Nodes)
}

// EdgeCount returns the number of open directed edges
func (rg *RoadGraph) EdgeCount() int {
	return len(rg.edges)
}

// Edge returns the attributes of the directed edge from -> to
func (rg *RoadGraph) Edge(from, to string) (model.Edge, bool) {
	fid, ok := rg.ids[from]
	if !ok {
		return model.Edge{}, false
	}
	tid, ok := rg.ids[to]
	if !ok {
		return model.Edge{}, false
	}
	e, ok := rg.edges[[2]int64{fid, tid}]
	return e, ok
}

// Neighbors returns the open edges leaving the named node
func (rg *RoadGraph) Neighbors(name string) []model.Edge {
	id, ok := rg.ids[name]
	if !ok {
		return nil
	}

	var out []model.Edge
	iter := rg.graph.From(id)
	for iter.Next() {
		out = append(out, rg.edges[[2]int64{id, iter.Node().ID()}])
	}
	return out
}

// metricGraph exposes the road graph to gonum's path package with edge
// weights expressed in one metric.
type metricGraph struct {
	*simple.DirectedGraph
	rg     *RoadGraph
	metric model.Metric
}

// Weight implements path.Weighted
func (m metricGraph) Weight(xid, yid int64) (float64, bool) {
	if xid == yid {
		return 0, true
	}
	e, ok := m.rg.edges[[2]int64{xid, yid}]
	if !ok {
		return math.Inf(1), false
	}
	return m.metric.Cost(e.Distance, e.RoadType), true
}

func (rg *RoadGraph) weighted(metric model.Metric) metricGraph {
	return metricGraph{DirectedGraph: rg.graph, rg: rg, metric: metric}
}
