package web

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/route-viewer/pkg/cache"
	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/ritzau/route-viewer/pkg/planner"
	"github.com/ritzau/route-viewer/pkg/pubsub"
	"github.com/ritzau/route-viewer/pkg/seed"
	"github.com/ritzau/route-viewer/pkg/store"
)

type fixture struct {
	server  *Server
	planner *planner.Planner
	pub     *pubsub.SSEPublisher
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.ReplaceGraph(context.Background(), seed.Default()))

	pub := pubsub.NewSSEPublisher()
	t.Cleanup(func() { pub.Close() })

	p := planner.New(s, cache.NewRouteCache(64), pub)
	require.NoError(t, p.Reload(context.Background()))

	srv, err := NewServer(p, pub, opts)
	require.NoError(t, err)
	return &fixture{server: srv, planner: p, pub: pub}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGetGraph(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/get-graph", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	g := decode[model.WireGraph](t, rec)
	assert.Len(t, g.Nodes, 10)
	assert.Len(t, g.Edges, 14)
	assert.Equal(t, model.WireNode{X: 77.2090, Y: 28.6139, Name: "A"}, g.Nodes[0])
}

func TestPathEndpoint(t *testing.T) {
	f := newFixture(t, Options{})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
	}{
		{"ok", "/path/distance/A/B", http.StatusOK, ""},
		{"metric is case insensitive", "/path/TIME/A/J", http.StatusOK, ""},
		{"same node", "/path/time/C/C", http.StatusBadRequest, "must be different"},
		{"unknown metric", "/path/speed/A/B", http.StatusBadRequest, "unknown metric"},
		{"unknown node", "/path/fuel/A/Zed", http.StatusNotFound, "unknown node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Contains(t, decode[errorBody](t, rec).Error, tt.wantError)
			}
		})
	}

	res := decode[model.PathResult](t, f.do(t, http.MethodGet, "/path/distance/A/B", ""))
	assert.Equal(t, []string{"A", "B"}, res.Path)
	assert.Equal(t, model.MetricDistance, res.Metric)
	assert.InDelta(t, 14.44, res.Distance, 0.01)
	assert.Equal(t, res.Distance, res.Cost)
	assert.Greater(t, res.Time, 0.0)
	assert.Greater(t, res.Fuel, 0.0)
}

func TestCompareEndpoint(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/path/compare/A/J", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[compareResponse](t, rec)
	require.Len(t, body.Results, 3)
	for _, m := range model.Metrics() {
		assert.Equal(t, m, body.Results[m].Metric)
	}

	rec = f.do(t, http.MethodGet, "/path/compare/A/A", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShortestPathEndpoint(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/shortest_path/A/B", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[shortestPathResponse](t, rec)
	assert.Equal(t, []string{"A", "B"}, body.Path)
	assert.InDelta(t, 14.44, body.Cost, 0.01)

	rec = f.do(t, http.MethodGet, "/shortest_path/A/A", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, shortestPathResponse{Path: []string{"A"}, Cost: 0}, decode[shortestPathResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/shortest_path/A/Nowhere", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Path not found", decode[errorBody](t, rec).Error)
}

func TestNoPath(t *testing.T) {
	f := newFixture(t, Options{})
	// I and J hang off H and I; closing both of J's roads strands it
	require.NoError(t, f.planner.CloseRoad(context.Background(), "I", "J", true))
	require.NoError(t, f.planner.CloseRoad(context.Background(), "H", "J", true))

	rec := f.do(t, http.MethodGet, "/path/distance/A/J", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Error, "path not found")
}

func TestRenderSVG(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/render.svg?start=A&goal=J&metric=all", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	out := rec.Body.String()
	for _, want := range []string{"<svg", "distance:", "time:", "fuel:"} {
		assert.Contains(t, out, want)
	}

	rec = f.do(t, http.MethodGet, "/render.svg?labels=letters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "distance:")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/render.svg?labels=emoji", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/render.svg?start=A&goal=Q", "").Code)
}

func TestPatchEdge(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodPatch, "/api/edges/A/B", `{"closed": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decode[planner.Stats](t, rec)
	assert.Equal(t, 1, stats.ClosedEdges)

	res := decode[model.PathResult](t, f.do(t, http.MethodGet, "/path/distance/A/B", ""))
	assert.NotEqual(t, []string{"A", "B"}, res.Path)

	// Both fields land in one update and one reload
	rec = f.do(t, http.MethodPatch, "/api/edges/B/A", `{"closed": false, "road_type": "mountain"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	after := decode[planner.Stats](t, rec)
	assert.Equal(t, stats.Epoch+1, after.Epoch)
	assert.Equal(t, 0, after.ClosedEdges)
	rg, err := f.planner.Graph()
	require.NoError(t, err)
	e, ok := rg.Edge("A", "B")
	require.True(t, ok)
	assert.Equal(t, model.RoadMountain, e.RoadType)

	tests := []struct {
		name, target, body string
		want               int
	}{
		{"empty patch", "/api/edges/A/B", `{}`, http.StatusBadRequest},
		{"unknown field", "/api/edges/A/B", `{"speed": 3}`, http.StatusBadRequest},
		{"bad road type", "/api/edges/A/B", `{"road_type": "canal"}`, http.StatusBadRequest},
		{"malformed", "/api/edges/A/B", `{"closed":`, http.StatusBadRequest},
		{"no such road", "/api/edges/A/J", `{"closed": true}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.do(t, http.MethodPatch, tt.target, tt.body).Code)
		})
	}
}

func TestNodeNamesWithSlash(t *testing.T) {
	f := newFixture(t, Options{})

	g := model.NewGraph()
	g.AddNode("Gate 1/2", 28.61, 77.20)
	g.AddNode("Depot", 28.70, 77.10)
	g.AddNode("Yard", 28.53, 77.39)
	g.AddEdge(model.Edge{From: "Gate 1/2", To: "Depot", Distance: 14.5})
	g.AddEdge(model.Edge{From: "Depot", To: "Yard", Distance: 34.1})
	require.NoError(t, f.planner.Import(context.Background(), g))

	rec := f.do(t, http.MethodGet, "/path/distance/Gate%201%2F2/Depot", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Gate 1/2", "Depot"}, decode[model.PathResult](t, rec).Path)

	rec = f.do(t, http.MethodGet, "/path/time/Yard/Gate%201%2F2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Yard", "Depot", "Gate 1/2"}, decode[model.PathResult](t, rec).Path)

	rec = f.do(t, http.MethodGet, "/path/compare/Gate%201%2F2/Yard", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[compareResponse](t, rec).Results, 3)

	rec = f.do(t, http.MethodGet, "/shortest_path/Gate%201%2F2/Depot", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Gate 1/2", "Depot"}, decode[shortestPathResponse](t, rec).Path)

	rec = f.do(t, http.MethodPatch, "/api/edges/Depot/Gate%201%2F2", `{"closed": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[planner.Stats](t, rec).ClosedEdges)

	// Unknown names still get the JSON error, not the static 404 page
	rec = f.do(t, http.MethodGet, "/path/distance/Gate%202%2F2/Depot", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestStatsAndReload(t *testing.T) {
	f := newFixture(t, Options{})

	stats := decode[planner.Stats](t, f.do(t, http.MethodGet, "/api/graph/stats", ""))
	assert.Equal(t, 10, stats.Nodes)

	rec := f.do(t, http.MethodPost, "/api/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Greater(t, decode[planner.Stats](t, rec).Epoch, stats.Epoch)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code)

	empty, err := NewServer(planner.New(nil, nil, nil), nil, Options{})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	empty.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	empty.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get-graph", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Options{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/path/distance/A/B", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/path/time/A/B", "").Code)
	rec := f.do(t, http.MethodGet, "/path/fuel/A/B", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Only route endpoints are limited
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/get-graph", "").Code)
}

func TestStaticClient(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "graphCanvas")

	rec = f.do(t, http.MethodGet, "/app.js", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rec.Body.String(), "/get-graph")

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/missing.png", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, Options{})
	f.do(t, http.MethodGet, "/path/distance/A/C", "")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "route_viewer_route_requests_total")
}

func TestSubscribeGraphStatus(t *testing.T) {
	f := newFixture(t, Options{})
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/subscribe/graph_status", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextEvent := func() pubsub.Event {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var ev pubsub.Event
				require.NoError(t, json.Unmarshal([]byte(data), &ev))
				return ev
			}
		}
	}

	// The latest status is replayed on connect
	assert.Equal(t, pubsub.EventReloaded, nextEvent().Type)

	require.NoError(t, f.planner.Reload(context.Background()))
	assert.Equal(t, pubsub.EventLoading, nextEvent().Type)
	assert.Equal(t, pubsub.EventReloaded, nextEvent().Type)
}

func TestServeShutsDown(t *testing.T) {
	f := newFixture(t, Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.server.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
