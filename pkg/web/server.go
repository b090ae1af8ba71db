// Package web serves the route viewer: the embedded canvas client, the JSON
// routing API and a server-sent events stream of graph status changes.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/ritzau/route-viewer/pkg/logging"
	"github.com/ritzau/route-viewer/pkg/metrics"
	"github.com/ritzau/route-viewer/pkg/planner"
	"github.com/ritzau/route-viewer/pkg/pubsub"
)

const shutdownTimeout = 5 * time.Second

// Options tunes the server
type Options struct {
	// RateLimit is route requests per second across all clients; 0 disables
	RateLimit float64
	RateBurst int
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	planner   *planner.Planner
	publisher pubsub.Publisher
	limiter   *rate.Limiter

	done     chan struct{}
	doneOnce sync.Once
}

// NewServer wires the routes. The static client is minified once here.
func NewServer(p *planner.Planner, pub pubsub.Publisher, opts Options) (*Server, error) {
	s := &Server{
		router:    mux.NewRouter().UseEncodedPath(),
		planner:   p,
		publisher: pub,
		done:      make(chan struct{}),
	}
	if opts.RateLimit > 0 {
		burst := max(opts.RateBurst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	static, err := newStaticHandler()
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	s.setupRoutes(static)
	return s, nil
}

func (s *Server) setupRoutes(static http.Handler) {
	r := s.router

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/get-graph", s.handleGetGraph).Methods(http.MethodGet)

	// Routes match the encoded path so a node name containing "/" stays one
	// segment; handlers unescape through pathVars. compare must be registered
	// before the {metric} route it would match.
	r.Handle("/path/compare/{start}/{goal}", s.limit(s.handleCompare)).Methods(http.MethodGet)
	r.Handle("/path/{metric}/{start}/{goal}", s.limit(s.handlePath)).Methods(http.MethodGet)
	r.Handle("/shortest_path/{start}/{goal}", s.limit(s.handleShortestPath)).Methods(http.MethodGet)
	r.Handle("/render.svg", s.limit(s.handleRenderSVG)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/graph/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/edges/{from}/{to}", s.handlePatchEdge).Methods(http.MethodPatch)
	api.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)
	api.HandleFunc("/subscribe/"+pubsub.TopicGraphStatus, s.handleSubscribeGraphStatus).Methods(http.MethodGet)

	r.PathPrefix("/").Handler(static)
}

// Handler returns the router wrapped in request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// limit rejects requests beyond the configured rate with 429
func (s *Server) limit(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}
		h(w, r)
	})
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
// Streaming clients are disconnected before in-flight requests are drained.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logging.Logger().Handler(), slog.LevelError),
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("web server listening", "url", "http://"+ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down web server")
	s.doneOnce.Do(func() { close(s.done) })

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
