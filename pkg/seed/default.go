package seed

import (
	"math"

	"github.com/ritzau/route-viewer/pkg/geo"
	"github.com/ritzau/route-viewer/pkg/model"
)

// defaultNodes is the ten-node sample network around Delhi. Some places
// deliberately share coordinates.
var defaultNodes = []struct {
	name     string
	lat, lon float64
}{
	{"A", 28.6139, 77.2090},
	{"B", 28.7041, 77.1025},
	{"C", 28.5355, 77.3910},
	{"D", 28.4089, 77.3178},
	{"E", 28.4595, 77.0266},
	{"F", 28.9845, 77.7064},
	{"G", 28.6692, 77.4538},
	{"H", 28.9845, 77.7064},
	{"I", 28.5355, 77.3910},
	{"J", 28.4089, 77.3178},
}

var defaultEdges = [][2]string{
	{"A", "B"}, {"A", "C"},
	{"B", "C"}, {"B", "D"},
	{"C", "D"}, {"C", "F"},
	{"D", "E"}, {"E", "G"},
	{"F", "G"}, {"F", "H"},
	{"G", "I"}, {"H", "I"},
	{"I", "J"}, {"H", "J"},
}

// Default returns the sample network. Edge distances are the great-circle
// distance between their endpoints rounded to four decimals.
func Default() *model.Graph {
	g := model.NewGraph()
	points := make(map[string]geo.Point, len(defaultNodes))
	for _, n := range defaultNodes {
		g.AddNode(n.name, n.lat, n.lon)
		points[n.name] = geo.Point{Lat: n.lat, Lon: n.lon}
	}

	for _, e := range defaultEdges {
		g.AddEdge(model.Edge{
			From:     e[0],
			To:       e[1],
			RoadType: model.RoadHighway,
			Distance: round4(geo.Haversine(points[e[0]], points[e[1]])),
		})
	}
	return g
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
