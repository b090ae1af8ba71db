// Package metrics exposes Prometheus collectors for route planning.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for route requests
const (
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeNoPath   = "no_path"
	OutcomeBadInput = "bad_input"
	OutcomeError    = "error"
)

var (
	routeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "route_viewer_route_requests_total",
		Help: "Route requests by metric and outcome",
	}, []string{"metric", "outcome"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "route_viewer_search_duration_seconds",
		Help:    "Time spent in A* searches",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
	}, []string{"metric"})

	searchExpanded = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "route_viewer_search_expanded_nodes",
		Help:    "Nodes expanded per A* search",
		Buckets: prometheus.ExponentialBuckets(1, 2, 16),
	})

	graphReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "route_viewer_graph_reloads_total",
		Help: "Graph reloads by result",
	}, []string{"result"})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "route_viewer_graph_nodes",
		Help: "Nodes in the loaded graph",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "route_viewer_graph_directed_edges",
		Help: "Open directed edges in the loaded graph",
	})
)

// ObserveRoute records the outcome of one route request
func ObserveRoute(metric, outcome string) {
	routeRequests.WithLabelValues(metric, outcome).Inc()
}

// ObserveSearch records one completed A* search
func ObserveSearch(metric string, seconds float64, expanded int) {
	searchDuration.WithLabelValues(metric).Observe(seconds)
	searchExpanded.Observe(float64(expanded))
}

// ObserveReload records a graph reload and the resulting graph size
func ObserveReload(err error, nodes, edges int) {
	if err != nil {
		graphReloads.WithLabelValues("error").Inc()
		return
	}
	graphReloads.WithLabelValues("ok").Inc()
	graphNodes.Set(float64(nodes))
	graphEdges.Set(float64(edges))
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
