package seed

import (
	"math/rand"
	"sort"

	"github.com/ritzau/route-viewer/pkg/geo"
	"github.com/ritzau/route-viewer/pkg/model"
)

// GenerateEdges connects every node of g to up to perNode random partners.
// Pairs are undirected and deduplicated, each gets a random road type and a
// great-circle distance. The result is sorted by (from, to).
func GenerateEdges(g *model.Graph, perNode int, rng *rand.Rand) []model.Edge {
	names := make([]string, len(g.Nodes))
	points := make(map[string]geo.Point, len(g.Nodes))
	for i, n := range g.Nodes {
		names[i] = n.Name
		points[n.Name] = geo.Point{Lat: n.Lat, Lon: n.Lon}
	}

	pairs := make(map[[2]string]bool)
	for _, name := range names {
		others := make([]string, 0, len(names)-1)
		for _, other := range names {
			if other != name {
				others = append(others, other)
			}
		}
		rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

		for _, other := range others[:min(perNode, len(others))] {
			pair := [2]string{name, other}
			if other < name {
				pair = [2]string{other, name}
			}
			pairs[pair] = true
		}
	}

	keys := make([][2]string, 0, len(pairs))
	for p := range pairs {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	roadTypes := model.RoadTypes()
	edges := make([]model.Edge, 0, len(keys))
	for _, p := range keys {
		edges = append(edges, model.Edge{
			From:     p[0],
			To:       p[1],
			RoadType: roadTypes[rng.Intn(len(roadTypes))],
			Distance: round4(geo.Haversine(points[p[0]], points[p[1]])),
		})
	}
	return edges
}
