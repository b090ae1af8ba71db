package model

import (
	"fmt"
	"math"
)

// Graph is the stored description of the road network.
// Node IDs are dense and equal to the node's index in Nodes.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}

// AddNode appends a node and assigns it the next dense ID.
func (g *Graph) AddNode(name string, lat, lon float64) Node {
	n := Node{ID: len(g.Nodes), Name: name, Lat: lat, Lon: lon}
	g.Nodes = append(g.Nodes, n)
	return n
}

// AddEdge appends an edge.
func (g *Graph) AddEdge(edge Edge) {
	if edge.RoadType == "" {
		edge.RoadType = DefaultRoadType
	}
	g.Edges = append(g.Edges, edge)
}

// Index maps node names to their IDs.
func (g *Graph) Index() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		idx[n.Name] = n.ID
	}
	return idx
}

// Validate checks that the graph is self consistent: node IDs are dense,
// names are unique, coordinates are in range and every edge references
// existing nodes.
func (g *Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID != i {
			return fmt.Errorf("%w: node %q has id %d at position %d", ErrInvalidGraph, n.Name, n.ID, i)
		}
		if n.Name == "" {
			return fmt.Errorf("%w: node %d has no name", ErrInvalidGraph, i)
		}
		if seen[n.Name] {
			return fmt.Errorf("%w: duplicate node name %q", ErrInvalidGraph, n.Name)
		}
		seen[n.Name] = true
		if math.IsNaN(n.Lat) || n.Lat < -90 || n.Lat > 90 {
			return fmt.Errorf("%w: node %q latitude %v out of range", ErrInvalidGraph, n.Name, n.Lat)
		}
		if math.IsNaN(n.Lon) || n.Lon < -180 || n.Lon > 180 {
			return fmt.Errorf("%w: node %q longitude %v out of range", ErrInvalidGraph, n.Name, n.Lon)
		}
	}

	for _, e := range g.Edges {
		if !seen[e.From] {
			return fmt.Errorf("%w: edge %s-%s references unknown node %q", ErrInvalidGraph, e.From, e.To, e.From)
		}
		if !seen[e.To] {
			return fmt.Errorf("%w: edge %s-%s references unknown node %q", ErrInvalidGraph, e.From, e.To, e.To)
		}
		if e.From == e.To {
			return fmt.Errorf("%w: self loop on %q", ErrInvalidGraph, e.From)
		}
		if math.IsNaN(e.Distance) || e.Distance < 0 {
			return fmt.Errorf("%w: edge %s-%s has invalid distance %v", ErrInvalidGraph, e.From, e.To, e.Distance)
		}
		if _, err := ParseRoadType(string(e.RoadType)); err != nil {
			return fmt.Errorf("%w: edge %s-%s: %v", ErrInvalidGraph, e.From, e.To, err)
		}
	}
	return nil
}

// WireNode is the node shape the browser client expects: x is longitude,
// y is latitude.
type WireNode struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Name string  `json:"name"`
}

// WireGraph is the /get-graph payload. Edges are pairs of node indices.
type WireGraph struct {
	Nodes []WireNode `json:"nodes"`
	Edges [][2]int   `json:"edges"`
}

// Wire converts the graph to the client payload. Closed edges are left out
// and duplicates with the same Key are collapsed.
func (g *Graph) Wire() *WireGraph {
	w := &WireGraph{
		Nodes: make([]WireNode, 0, len(g.Nodes)),
		Edges: make([][2]int, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		w.Nodes = append(w.Nodes, WireNode{X: n.Lon, Y: n.Lat, Name: n.Name})
	}

	idx := g.Index()
	seen := make(map[[2]string]bool, len(g.Edges))
	for _, e := range g.Edges {
		if e.Closed {
			continue
		}
		from, okFrom := idx[e.From]
		to, okTo := idx[e.To]
		if !okFrom || !okTo {
			continue
		}
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		w.Edges = append(w.Edges, [2]int{from, to})
	}
	return w
}
