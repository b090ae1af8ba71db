package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/route-viewer/pkg/logging"
	"github.com/ritzau/route-viewer/pkg/pubsub"
	"github.com/ritzau/route-viewer/pkg/watcher"
	"github.com/ritzau/route-viewer/pkg/web"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the map client and routing API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	pub := pubsub.NewSSEPublisher()
	defer pub.Close()

	p, s, err := a.openPlanner(ctx, pub)
	if err != nil {
		return err
	}
	defer s.Close()

	srv, err := web.NewServer(p, pub, web.Options{
		RateLimit: a.cfg.Rate.Limit,
		RateBurst: a.cfg.Rate.Burst,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx, a.cfg.Addr)
	})

	if a.cfg.Watch {
		if a.cfg.Seed.Dir == "" {
			logging.Warn("watch requested without seed.dir; nothing to watch")
		} else {
			g.Go(func() error {
				err := watcher.WatchSeedDir(ctx, a.cfg.Seed.Dir, p, watcher.DefaultQuietPeriod, watcher.DefaultMaxWait)
				if ctx.Err() != nil {
					return nil
				}
				return err
			})
		}
	}

	return g.Wait()
}
