package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ritzau/route-viewer/pkg/cache"
	"github.com/ritzau/route-viewer/pkg/config"
	"github.com/ritzau/route-viewer/pkg/logging"
	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/ritzau/route-viewer/pkg/planner"
	"github.com/ritzau/route-viewer/pkg/pubsub"
	"github.com/ritzau/route-viewer/pkg/seed"
	"github.com/ritzau/route-viewer/pkg/store"
)

// app carries state resolved once per invocation
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "route-viewer",
		Short: "Plan and visualise routes over a road network",
		Long: `route-viewer stores a road network, finds distance, time and fuel
optimal routes with A* and serves an interactive map of them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			cfg.ApplyLogging()
			a.cfg = cfg
			logging.Debug("configuration loaded", "store", cfg.Store.Driver, "addr", cfg.Addr)
			return nil
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(a),
		newSeedCmd(a),
		newGenerateEdgesCmd(a),
		newRouteCmd(a),
		newStatsCmd(a),
	)
	return root
}

// seedGraph returns the configured seed network: the CSV pair in seed.dir
// when set, the built-in network otherwise
func (a *app) seedGraph() (*model.Graph, error) {
	if a.cfg.Seed.Dir == "" {
		return seed.Default(), nil
	}
	return seed.LoadCSV(
		filepath.Join(a.cfg.Seed.Dir, seed.NodesFile),
		filepath.Join(a.cfg.Seed.Dir, seed.EdgesFile),
	)
}

// openPlanner opens the store, seeds it when empty and allowed to, and
// loads the graph. The caller closes the returned store.
func (a *app) openPlanner(ctx context.Context, pub pubsub.Publisher) (*planner.Planner, store.Store, error) {
	s, err := store.Open(ctx, a.cfg.StoreOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	empty, err := store.IsEmpty(ctx, s)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	if empty {
		if !a.cfg.Seed.Default {
			s.Close()
			return nil, nil, fmt.Errorf("store is empty; run `route-viewer seed` first")
		}
		g, err := a.seedGraph()
		if err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("seed: %w", err)
		}
		if err := s.ReplaceGraph(ctx, g); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("seed: %w", err)
		}
		logging.Info("seeded empty store", "nodes", len(g.Nodes), "edges", len(g.Edges))
	}

	p := planner.New(s, cache.NewRouteCache(a.cfg.Cache.Size), pub)
	if err := p.Reload(ctx); err != nil {
		s.Close()
		return nil, nil, err
	}
	return p, s, nil
}
