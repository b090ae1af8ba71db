package graph

import (
	"context"
	"fmt"
	"math"

	"github.com/ritzau/route-viewer/pkg/geo"
	"github.com/ritzau/route-viewer/pkg/model"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
)

// heuristic returns an A* heuristic for the metric that is consistent with
// the metric's edge weights: straight-line distance to the goal, scaled by
// the graph's detour ratio and priced at the best road profile.
func (rg *RoadGraph) heuristic(metric model.Metric) path.Heuristic {
	best := model.BestProfile()
	factor := rg.detour
	switch metric {
	case model.MetricTime:
		factor *= 60 / best.SpeedKmh
	case model.MetricFuel:
		factor *= best.LitresPerKm
	}

	return func(x, y gonum.Node) float64 {
		return factor * geo.Haversine(rg.points[x.ID()], rg.points[y.ID()])
	}
}

// ShortestPath finds the cheapest path from start to goal under metric
// using A*. The result carries distance, time and fuel totals of the chosen
// path regardless of the metric it was optimised for.
func (rg *RoadGraph) ShortestPath(ctx context.Context, metric model.Metric, start, goal string) (*model.PathResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := model.ParseMetric(string(metric)); err != nil {
		return nil, err
	}

	sid, ok := rg.NodeID(start)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownNode, start)
	}
	tid, ok := rg.NodeID(goal)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownNode, goal)
	}
	if sid == tid {
		return nil, model.ErrSameNode
	}

	g := rg.weighted(metric)
	shortest, expanded := path.AStar(g.Node(sid), g.Node(tid), g, rg.heuristic(metric))
	nodes, cost := shortest.To(tid)
	if len(nodes) == 0 || math.IsInf(cost, 1) {
		return nil, fmt.Errorf("%w: %s to %s", model.ErrNoPath, start, goal)
	}

	result := &model.PathResult{
		Path:     make([]string, 0, len(nodes)),
		Metric:   metric,
		Cost:     model.Round2(cost),
		Expanded: expanded,
	}

	var distance, minutes, litres float64
	for i, n := range nodes {
		result.Path = append(result.Path, rg.NodeName(n.ID()))
		if i == 0 {
			continue
		}
		e := rg.edges[[2]int64{nodes[i-1].ID(), n.ID()}]
		distance += model.MetricDistance.Cost(e.Distance, e.RoadType)
		minutes += model.MetricTime.Cost(e.Distance, e.RoadType)
		litres += model.MetricFuel.Cost(e.Distance, e.RoadType)
	}
	result.Distance = model.Round2(distance)
	result.Time = model.Round2(minutes)
	result.Fuel = model.Round2(litres)

	return result, nil
}
