// Package output prints colored terminal reports for the CLI.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/ritzau/route-viewer/pkg/planner"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

func metricColor(m model.Metric) *color.Color {
	switch m {
	case model.MetricTime:
		return green
	case model.MetricFuel:
		return yellow
	default:
		return red
	}
}

// PrintRoute prints one route with its totals
func PrintRoute(w io.Writer, r *model.PathResult) {
	c := metricColor(r.Metric)
	c.Fprintf(w, "%s-optimal route", r.Metric)
	fmt.Fprintf(w, " (%d nodes expanded)\n", r.Expanded)
	cyan.Fprintf(w, "  %s\n", strings.Join(r.Path, " → "))
	fmt.Fprintf(w, "  Distance: %.2f km\n", r.Distance)
	fmt.Fprintf(w, "  Time:     %.2f min\n", r.Time)
	fmt.Fprintf(w, "  Fuel:     %.2f L\n", r.Fuel)
}

// PrintComparison prints every metric's route followed by a summary of
// which route wins on each dimension
func PrintComparison(w io.Writer, results map[model.Metric]*model.PathResult) {
	bold.Fprintln(w, "Route comparison")
	bold.Fprintln(w, "================")
	for _, m := range model.Metrics() {
		r, ok := results[m]
		if !ok {
			continue
		}
		PrintRoute(w, r)
		fmt.Fprintln(w)
	}

	same := true
	var first []string
	for _, m := range model.Metrics() {
		r, ok := results[m]
		if !ok {
			continue
		}
		if first == nil {
			first = r.Path
		} else if strings.Join(first, "\x00") != strings.Join(r.Path, "\x00") {
			same = false
		}
	}
	if same {
		green.Fprintln(w, "✓ All metrics agree on the same route")
	} else {
		yellow.Fprintln(w, "Metrics disagree: the cheapest route depends on what you optimise for")
	}
}

// PrintStats prints the network summary and connectivity report
func PrintStats(w io.Writer, s planner.Stats) {
	bold.Fprintln(w, "Road network")
	bold.Fprintln(w, "============")
	fmt.Fprintf(w, "Nodes:          %d\n", s.Nodes)
	fmt.Fprintf(w, "Roads:          %d", s.Edges)
	if s.ClosedEdges > 0 {
		yellow.Fprintf(w, " (%d closed)", s.ClosedEdges)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Directed edges: %d\n", s.DirectedEdges)
	fmt.Fprintln(w)

	c := s.Connectivity
	if !c.Disconnected {
		green.Fprintf(w, "✓ Every node can reach every other node (%d components)\n", c.Components)
	} else {
		red.Fprintf(w, "Network is split into %d strongly connected components\n", c.Components)
		fmt.Fprintf(w, "Largest component: %d of %d nodes\n", c.LargestSize, s.Nodes)
	}
	if len(c.Isolated) > 0 {
		yellow.Fprintf(w, "Isolated nodes: %s\n", strings.Join(c.Isolated, ", "))
	}
}
