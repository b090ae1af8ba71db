package main

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/ritzau/route-viewer/pkg/output"
	"github.com/ritzau/route-viewer/pkg/render"
)

func newRouteCmd(a *app) *cobra.Command {
	var (
		metric string
		svg    string
		labels string
	)
	cmd := &cobra.Command{
		Use:   "route <start> <goal>",
		Short: "Compute a route and print its distance, time and fuel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start, goal := args[0], args[1]

			scheme, err := render.ParseLabelScheme(labels)
			if err != nil {
				return err
			}

			p, s, err := a.openPlanner(ctx, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			var overlays []render.Overlay
			if metric == "all" {
				results, err := p.Compare(ctx, start, goal)
				if err != nil {
					return err
				}
				output.PrintComparison(cmd.OutOrStdout(), results)
				for _, m := range model.Metrics() {
					overlays = append(overlays, render.OverlayOf(results[m]))
				}
			} else {
				m, err := model.ParseMetric(metric)
				if err != nil {
					return err
				}
				r, err := p.Route(ctx, m, start, goal)
				if err != nil {
					return err
				}
				output.PrintRoute(cmd.OutOrStdout(), r)
				overlays = append(overlays, render.OverlayOf(r))
			}

			if svg == "" {
				return nil
			}
			rg, err := p.Graph()
			if err != nil {
				return err
			}
			f, err := os.Create(svg)
			if err != nil {
				return err
			}
			opts := render.DefaultOptions()
			opts.Labels = scheme
			if err := render.SVG(f, rg.Source(), overlays, opts); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&metric, "metric", "m", "distance", "distance, time, fuel or all")
	cmd.Flags().StringVar(&svg, "svg", "", "also render the route to this SVG file")
	cmd.Flags().StringVar(&labels, "labels", "names", "SVG node labels: names or letters")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report network size and connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, s, err := a.openPlanner(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := p.Stats()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			output.PrintStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a report")
	return cmd
}
