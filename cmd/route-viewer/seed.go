package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/route-viewer/pkg/logging"
	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/ritzau/route-viewer/pkg/seed"
	"github.com/ritzau/route-viewer/pkg/store"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace the stored network with the seed CSVs or the built-in network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.seedGraph()
			if err != nil {
				return err
			}

			s, err := store.Open(cmd.Context(), a.cfg.StoreOptions())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ReplaceGraph(cmd.Context(), g); err != nil {
				return err
			}
			logging.Info("store seeded", "nodes", len(g.Nodes), "edges", len(g.Edges))
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d nodes and %d roads\n", len(g.Nodes), len(g.Edges))
			return nil
		},
	}
}

type generateOptions struct {
	nodes   string
	out     string
	perNode int
	rngSeed int64
}

func newGenerateEdgesCmd(a *app) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate-edges",
		Short: "Write a random edges.csv connecting the places in a nodes.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.nodes == "" {
				opts.nodes = filepath.Join(a.cfg.Seed.Dir, seed.NodesFile)
			}
			if opts.out == "" {
				opts.out = filepath.Join(filepath.Dir(opts.nodes), seed.EdgesFile)
			}
			return generateEdges(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.nodes, "nodes", "", "nodes.csv to read (default: seed dir)")
	cmd.Flags().StringVar(&opts.out, "out", "", `edges.csv to write, "-" for stdout (default: next to nodes)`)
	cmd.Flags().IntVar(&opts.perNode, "per-node", 3, "random partners per node")
	cmd.Flags().Int64Var(&opts.rngSeed, "rng-seed", 0, "random seed, 0 picks one from the clock")
	return cmd
}

func generateEdges(stdout io.Writer, opts *generateOptions) error {
	if opts.perNode < 1 {
		return fmt.Errorf("--per-node must be at least 1")
	}

	f, err := os.Open(opts.nodes)
	if err != nil {
		return err
	}
	defer f.Close()

	g := model.NewGraph()
	if err := seed.ReadNodes(f, g); err != nil {
		return fmt.Errorf("%s: %w", opts.nodes, err)
	}

	rngSeed := opts.rngSeed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	edges := seed.GenerateEdges(g, opts.perNode, rand.New(rand.NewSource(rngSeed)))

	if opts.out == "-" {
		return seed.WriteEdgesCSV(stdout, edges)
	}
	out, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := seed.WriteEdgesCSV(out, edges); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Created %d undirected edges with random road types in %s\n", len(edges), opts.out)
	return nil
}
