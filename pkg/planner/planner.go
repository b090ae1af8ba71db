// Package planner ties the store, the road graph, the route cache and the
// event publisher together. It is the single entry point the HTTP server,
// the file watcher and the CLI use to query and mutate the network.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ritzau/route-viewer/pkg/cache"
	"github.com/ritzau/route-viewer/pkg/connectivity"
	"github.com/ritzau/route-viewer/pkg/graph"
	"github.com/ritzau/route-viewer/pkg/logging"
	"github.com/ritzau/route-viewer/pkg/metrics"
	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/ritzau/route-viewer/pkg/pubsub"
	"github.com/ritzau/route-viewer/pkg/store"
	"golang.org/x/sync/errgroup"
)

// ErrNotLoaded is returned by queries issued before the first Reload
var ErrNotLoaded = errors.New("graph not loaded")

type snapshot struct {
	graph    *graph.RoadGraph
	epoch    uint64
	loadedAt time.Time
}

// Planner serves routes over the most recently loaded graph. Queries never
// block on reloads: a reload builds the new graph aside and swaps it in.
type Planner struct {
	store store.Store
	cache *cache.RouteCache
	pub   pubsub.Publisher

	reloadMu sync.Mutex // serialises store mutations and reloads
	current  atomic.Pointer[snapshot]
}

// New creates a planner. pub may be nil when nobody listens for events.
func New(s store.Store, c *cache.RouteCache, pub pubsub.Publisher) *Planner {
	if c == nil {
		c = cache.NewRouteCache(cache.DefaultSize)
	}
	return &Planner{store: s, cache: c, pub: pub}
}

// Graph returns the currently loaded road graph
func (p *Planner) Graph() (*graph.RoadGraph, error) {
	snap := p.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap.graph, nil
}

// Reload reads the network from the store and makes it current
func (p *Planner) Reload(ctx context.Context) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()
	return p.reloadLocked(ctx)
}

func (p *Planner) reloadLocked(ctx context.Context) error {
	p.publish(pubsub.EventLoading, pubsub.GraphStatus{State: pubsub.EventLoading, Epoch: p.cache.Epoch()})

	rg, err := p.build(ctx)
	if err != nil {
		metrics.ObserveReload(err, 0, 0)
		p.publish(pubsub.EventFailed, pubsub.GraphStatus{State: pubsub.EventFailed, Message: err.Error(), Epoch: p.cache.Epoch()})
		return err
	}

	epoch := p.cache.BumpEpoch()
	p.current.Store(&snapshot{graph: rg, epoch: epoch, loadedAt: time.Now()})
	metrics.ObserveReload(nil, rg.NodeCount(), rg.EdgeCount())

	logging.InfoContext(ctx, "graph loaded", "nodes", rg.NodeCount(), "edges", rg.EdgeCount(), "epoch", epoch)
	p.publish(pubsub.EventReloaded, pubsub.GraphStatus{
		State: pubsub.EventReloaded,
		Nodes: rg.NodeCount(),
		Edges: rg.EdgeCount(),
		Epoch: epoch,
	})
	return nil
}

func (p *Planner) build(ctx context.Context) (*graph.RoadGraph, error) {
	g, err := p.store.LoadGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	rg, err := graph.Build(g)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return rg, nil
}

func (p *Planner) publish(eventType string, status pubsub.GraphStatus) {
	if p.pub == nil {
		return
	}
	if err := p.pub.Publish(pubsub.TopicGraphStatus, eventType, status); err != nil {
		logging.Debug("graph status not published", "type", eventType, "error", err)
	}
}

// Route returns the cheapest path from start to goal under metric
func (p *Planner) Route(ctx context.Context, metric model.Metric, start, goal string) (*model.PathResult, error) {
	snap := p.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}

	key := cache.RouteKey{Metric: metric, Start: start, Goal: goal, Epoch: snap.epoch}
	if r, ok := p.cache.Get(key); ok {
		metrics.ObserveRoute(string(metric), metrics.OutcomeCached)
		return clone(r), nil
	}

	began := time.Now()
	r, err := snap.graph.ShortestPath(ctx, metric, start, goal)
	if err != nil {
		metrics.ObserveRoute(string(metric), outcome(err))
		return nil, err
	}
	metrics.ObserveSearch(string(metric), time.Since(began).Seconds(), r.Expanded)
	metrics.ObserveRoute(string(metric), metrics.OutcomeOK)

	logging.TraceContext(ctx, "route computed", "metric", metric, "start", start, "goal", goal, "cost", r.Cost, "expanded", r.Expanded)
	p.cache.Put(key, r)
	return clone(r), nil
}

// Compare routes start to goal under every metric in parallel. The first
// error aborts the comparison.
func (p *Planner) Compare(ctx context.Context, start, goal string) (map[model.Metric]*model.PathResult, error) {
	var (
		mu      sync.Mutex
		results = make(map[model.Metric]*model.PathResult, len(model.Metrics()))
	)

	eg, egCtx := errgroup.WithContext(ctx)
	for _, metric := range model.Metrics() {
		metric := metric
		eg.Go(func() error {
			r, err := p.Route(egCtx, metric, start, goal)
			if err != nil {
				return err
			}
			mu.Lock()
			results[metric] = r
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CloseRoad opens or closes the road between from and to
func (p *Planner) CloseRoad(ctx context.Context, from, to string, closed bool) error {
	return p.UpdateEdge(ctx, from, to, store.EdgeUpdate{Closed: &closed})
}

// SetRoadType changes the road type of the road between from and to
func (p *Planner) SetRoadType(ctx context.Context, from, to string, rt model.RoadType) error {
	return p.UpdateEdge(ctx, from, to, store.EdgeUpdate{RoadType: &rt})
}

// UpdateEdge applies every field of u to the road between from and to as
// one store update followed by one reload
func (p *Planner) UpdateEdge(ctx context.Context, from, to string, u store.EdgeUpdate) error {
	if u.Empty() {
		return fmt.Errorf("%w: empty edge update for %s-%s", model.ErrInvalidGraph, from, to)
	}
	if u.RoadType != nil {
		if _, err := model.ParseRoadType(string(*u.RoadType)); err != nil {
			return fmt.Errorf("%w: %v", model.ErrInvalidGraph, err)
		}
	}
	return p.mutate(ctx, func(ctx context.Context) error {
		return p.store.UpdateEdge(ctx, from, to, u)
	})
}

// Import replaces the stored network with g
func (p *Planner) Import(ctx context.Context, g *model.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return p.mutate(ctx, func(ctx context.Context) error {
		return p.store.ReplaceGraph(ctx, g)
	})
}

func (p *Planner) mutate(ctx context.Context, apply func(context.Context) error) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	if err := apply(ctx); err != nil {
		return err
	}
	return p.reloadLocked(ctx)
}

// Stats describes the loaded graph and the cache
type Stats struct {
	Nodes         int                 `json:"nodes"`
	Edges         int                 `json:"edges"`
	ClosedEdges   int                 `json:"closedEdges"`
	DirectedEdges int                 `json:"directedEdges"`
	Epoch         uint64              `json:"epoch"`
	LoadedAt      time.Time           `json:"loadedAt"`
	Connectivity  connectivity.Report `json:"connectivity"`
	Cache         cache.Stats         `json:"cache"`
}

// Stats reports on the current graph
func (p *Planner) Stats() (Stats, error) {
	snap := p.current.Load()
	if snap == nil {
		return Stats{}, ErrNotLoaded
	}

	src := snap.graph.Source()
	s := Stats{
		Nodes:         len(src.Nodes),
		Edges:         len(src.Edges),
		DirectedEdges: snap.graph.EdgeCount(),
		Epoch:         snap.epoch,
		LoadedAt:      snap.loadedAt,
		Connectivity:  connectivity.Analyze(snap.graph),
		Cache:         p.cache.Stats(),
	}
	for _, e := range src.Edges {
		if e.Closed {
			s.ClosedEdges++
		}
	}
	return s, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, model.ErrNoPath):
		return metrics.OutcomeNoPath
	case errors.Is(err, model.ErrUnknownNode),
		errors.Is(err, model.ErrUnknownMetric),
		errors.Is(err, model.ErrSameNode):
		return metrics.OutcomeBadInput
	default:
		return metrics.OutcomeError
	}
}

func clone(r *model.PathResult) *model.PathResult {
	c := *r
	c.Path = append([]string(nil), r.Path...)
	return &c
}
